package repositories

import (
	"context"
	"crypto/rand"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/group"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
)

var _ contract.MessageStore = (*HistoryRepository)(nil)

const lockStripes = 64

// OpenInMemory opens a badger instance that never touches the disk.
// Histories do not survive a restart.
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("unable to open in-memory badger: %w", err)
	}
	return db, nil
}

// HistoryRepository keeps group histories in badger.
// Keys are "hist:{len(group)}:{group}:{ulid}": the length prefix keeps "a" and "a:b" apart
// and ULIDs sort in insertion order, so a prefix scan returns a history oldest first.
// Appends on the same group are serialized by a striped lock; badger would otherwise
// reject one of two concurrent trims with a conflict.
type HistoryRepository struct {
	db       *badger.DB
	log      *slog.Logger
	capacity int
	locks    [lockStripes]sync.Mutex
	now      func() time.Time
}

func NewHistoryRepository(db *badger.DB, log *slog.Logger, capacity int) *HistoryRepository {
	return &HistoryRepository{db: db, log: log, capacity: capacity, now: time.Now}
}

// Append writes the message and deletes the oldest entries beyond capacity in one transaction.
func (r *HistoryRepository) Append(ctx context.Context, name string, sender group.ConnectionID, body string) (group.Message, group.Outcome, error) {
	trimmed, outcome := auth.ValidateMessage(name, body)
	if !outcome.Ok() {
		return group.Message{}, outcome, nil
	}
	if err := ctx.Err(); err != nil {
		return group.Message{}, group.OutcomeUnknown, err
	}

	lock := r.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	msg := group.Message{
		Group:  name,
		Sender: sender,
		Body:   trimmed,
		SentAt: r.now().UTC(),
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		existing, err := keysWithPrefix(txn, prefixOf(name))
		if err != nil {
			return err
		}
		previous := ""
		if n := len(existing); n > 0 {
			last, err := messageAt(txn, existing[n-1])
			if err != nil {
				return err
			}
			if msg.SentAt.Before(last.SentAt) {
				msg.SentAt = last.SentAt
			}
			previous = last.ID
		}
		if msg.ID, err = idAfter(msg.SentAt, previous); err != nil {
			return err
		}
		if err := txn.Set(keyOf(name, msg.ID), encodeMessage(msg)); err != nil {
			return err
		}
		for _, key := range oldest(existing, len(existing)+1-r.capacity) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return group.Message{}, group.OutcomeUnknown, fmt.Errorf("unable to append to %s: %w", name, err)
	}
	return msg, group.OutcomeAccepted, nil
}

// History scans the group prefix; an unknown group yields an empty slice.
func (r *HistoryRepository) History(ctx context.Context, name string) ([]group.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	messages := make([]group.Message, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := prefixOf(name)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				msg, err := decodeMessage(val)
				if err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read history of %s: %w", name, err)
	}
	return messages, nil
}

func messageAt(txn *badger.Txn, key []byte) (group.Message, error) {
	item, err := txn.Get(key)
	if err != nil {
		return group.Message{}, err
	}
	var msg group.Message
	err = item.Value(func(val []byte) error {
		msg, err = decodeMessage(val)
		return err
	})
	return msg, err
}

// idAfter stamps a ULID with sentAt that sorts after previous, keeping the key order equal
// to the append order even when the wall clock steps back.
func idAfter(sentAt time.Time, previous string) (string, error) {
	ms := ulid.Timestamp(sentAt)
	if previous == "" {
		return ulid.MustNew(ms, ulid.DefaultEntropy()).String(), nil
	}
	last, err := ulid.ParseStrict(previous)
	if err != nil {
		return "", fmt.Errorf("unable to parse stored id %q: %w", previous, err)
	}
	ms = max(ms, last.Time())
	id := ulid.MustNew(ms, ulid.DefaultEntropy())
	for id.Compare(last) <= 0 {
		id = ulid.MustNew(ms, rand.Reader)
	}
	return id.String(), nil
}

func (r *HistoryRepository) lockFor(name string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return &r.locks[h.Sum32()%lockStripes]
}

// keysWithPrefix only reads keys: values stay untouched.
func keysWithPrefix(txn *badger.Txn, prefix []byte) ([][]byte, error) {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}

func oldest(keys [][]byte, n int) [][]byte {
	if n <= 0 {
		return nil
	}
	return keys[:min(n, len(keys))]
}

func prefixOf(name string) []byte {
	return []byte(fmt.Sprintf("hist:%d:%s:", len(name), name))
}

func keyOf(name, id string) []byte {
	return append(prefixOf(name), id...)
}
