package runtime

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/group"
	"chat-relay/errors"

	"github.com/samber/lo"
)

var _ contract.GroupDirectory = (*Directory)(nil)

// dummyPasscode is hashed once so that a join on an unknown group
// pays the same comparison cost as a join with a wrong passcode.
const dummyPasscode = "chat-relay:no-such-group"

type groupEntry struct {
	mu           sync.RWMutex
	passcodeHash string // written once before the entry is published
	members      map[group.ConnectionID]struct{}
}

type membership struct {
	mu     sync.Mutex
	groups map[string]struct{}
}

// Directory maps group names to their passcode and member set.
// Every group has its own lock: unrelated groups never contend.
type Directory struct {
	log         *slog.Logger
	hasher      contract.PasscodeHasher
	groups      sync.Map // string -> *groupEntry
	memberships sync.Map // group.ConnectionID -> *membership
	dummyHash   string
	count       atomic.Int64
}

func NewDirectory(log *slog.Logger, hasher contract.PasscodeHasher) (*Directory, error) {
	dummyHash, err := hasher.Hash(dummyPasscode)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare directory: %w", err)
	}
	return &Directory{log: log, hasher: hasher, dummyHash: dummyHash}, nil
}

// CreateGroup is an atomic insert-if-absent: among concurrent creators of the same name
// exactly one observes OutcomeCreated.
func (d *Directory) CreateGroup(name, passcode string) (group.Outcome, error) {
	if outcome := auth.ValidateCreateGroup(name, passcode); !outcome.Ok() {
		return outcome, nil
	}
	if _, ok := d.groups.Load(name); ok {
		return group.OutcomeAlreadyExists, nil
	}

	hash, err := d.hasher.Hash(passcode)
	if err != nil {
		return group.OutcomeUnknown, fmt.Errorf("%w: %w", errors.ErrInternalFault, err)
	}

	entry := &groupEntry{passcodeHash: hash, members: make(map[group.ConnectionID]struct{})}
	if _, loaded := d.groups.LoadOrStore(name, entry); loaded {
		return group.OutcomeAlreadyExists, nil
	}
	d.count.Add(1)
	d.log.Debug("Group created", "group", name)
	return group.OutcomeCreated, nil
}

// Join never tells an unknown group apart from a wrong passcode.
func (d *Directory) Join(conn group.ConnectionID, name, passcode string) (group.Outcome, error) {
	if outcome := auth.ValidateJoinGroup(name, passcode); !outcome.Ok() {
		return outcome, nil
	}

	entry, found := d.load(name)
	encoded := d.dummyHash
	if found {
		encoded = entry.passcodeHash
	}

	match, err := d.hasher.Compare(passcode, encoded)
	if err != nil {
		return group.OutcomeUnknown, fmt.Errorf("%w: %w", errors.ErrInternalFault, err)
	}
	if !found || !match {
		return group.OutcomeUnauthorized, nil
	}

	entry.mu.Lock()
	entry.members[conn] = struct{}{}
	entry.mu.Unlock()

	d.track(conn, name)
	return group.OutcomeJoined, nil
}

// Leave is idempotent: leaving a group you are not in, or an unknown group, still succeeds.
func (d *Directory) Leave(conn group.ConnectionID, name string) group.Outcome {
	if !auth.ValidateGroupName(name) {
		return group.OutcomeInvalidInput
	}
	if entry, ok := d.load(name); ok {
		entry.mu.Lock()
		delete(entry.members, conn)
		entry.mu.Unlock()
	}
	d.untrack(conn, name)
	return group.OutcomeLeft
}

// Members returns a sorted snapshot of the group's member set.
func (d *Directory) Members(name string) []group.ConnectionID {
	entry, ok := d.load(name)
	if !ok {
		return nil
	}
	entry.mu.RLock()
	members := lo.Keys(entry.members)
	entry.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// Drop removes a departed connection from every group it had joined
// and returns those group names.
func (d *Directory) Drop(conn group.ConnectionID) []string {
	value, ok := d.memberships.LoadAndDelete(conn)
	if !ok {
		return nil
	}
	m := value.(*membership)
	m.mu.Lock()
	names := lo.Keys(m.groups)
	m.mu.Unlock()

	for _, name := range names {
		if entry, ok := d.load(name); ok {
			entry.mu.Lock()
			delete(entry.members, conn)
			entry.mu.Unlock()
		}
	}
	sort.Strings(names)
	return names
}

func (d *Directory) Count() int {
	return int(d.count.Load())
}

func (d *Directory) load(name string) (*groupEntry, bool) {
	value, ok := d.groups.Load(name)
	if !ok {
		return nil, false
	}
	return value.(*groupEntry), true
}

func (d *Directory) track(conn group.ConnectionID, name string) {
	value, _ := d.memberships.LoadOrStore(conn, &membership{groups: make(map[string]struct{})})
	m := value.(*membership)
	m.mu.Lock()
	m.groups[name] = struct{}{}
	m.mu.Unlock()
}

func (d *Directory) untrack(conn group.ConnectionID, name string) {
	value, ok := d.memberships.Load(conn)
	if !ok {
		return
	}
	m := value.(*membership)
	m.mu.Lock()
	delete(m.groups, name)
	m.mu.Unlock()
}
