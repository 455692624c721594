package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"chat-relay/contract"
	"chat-relay/errors"

	"golang.org/x/crypto/argon2"
)

var _ contract.PasscodeHasher = (*Argon2Hasher)(nil)

const (
	SaltLength = 16
	KeyLength  = 32
)

// Params are the argon2id cost parameters. Memory is expressed in KiB.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams follow the OWASP minimum for argon2id (19 MiB, 2 passes, 1 lane).
var DefaultParams = Params{Memory: 19 * 1024, Iterations: 2, Parallelism: 1}

// Argon2Hasher stores group passcodes as self-describing argon2id strings.
type Argon2Hasher struct {
	params Params
}

func NewArgon2Hasher(params Params) *Argon2Hasher {
	return &Argon2Hasher{params: params}
}

// Hash generates a secure Argon2id hash from a plain text passcode
func (h *Argon2Hasher) Hash(passcode string) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("unable to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(passcode), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// Every parameter needed for verification travels with the hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism, b64Salt, b64Hash), nil
}

// Compare checks a plain text passcode against a stored hash in constant time
func (h *Argon2Hasher) Compare(passcode, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("%w: %w", errors.ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported version %d", errors.ErrInvalidHash, version)
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("%w: %w", errors.ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: %w", errors.ErrInvalidHash, err)
	}

	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("%w: %w", errors.ErrInvalidHash, err)
	}

	comparisonHash := argon2.IDKey([]byte(passcode), salt, iterations, memory, parallelism, uint32(len(decodedHash)))

	return subtle.ConstantTimeCompare(decodedHash, comparisonHash) == 1, nil
}
