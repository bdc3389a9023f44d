// Package kv is the embedded key-value store backend built on Badger.
//
// Key layout:
//
//	content:item:{id}                             ContentItem JSON (read_count not authoritative)
//	reads:{id}                                    uint64 big-endian read counter
//	content:idx:created:{inv}:{id}                newest-first listing index
//	content:idx:author:{author}:{inv}:{id}        per-author listing index
//	rel:{user}:{kind}:c:{content}                 existence key, value is {inv}
//	rel:{user}:{kind}:t:{inv}:{content}           newest-first relation index
//
// {inv} is the zero padded inverse of the Unix nanosecond timestamp, so that a
// forward prefix scan yields the newest entries first.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/talespring/talespring-server/internal/store"
)

const (
	prefixContent        = "content:item:"
	prefixReads          = "reads:"
	prefixCreatedIndex   = "content:idx:created:"
	prefixAuthorIndex    = "content:idx:author:"
	prefixRelation       = "rel:"
	invTimestampWidth    = 20
	conflictBackoffMin   = 50 * time.Microsecond
	conflictBackoffMax   = 5 * time.Millisecond
	relationExistsMarker = ":c:"
	relationTimeMarker   = ":t:"
)

// Options tunes how the database is opened.
type Options struct {
	// InMemory keeps everything in RAM; path is ignored. Used by tests.
	InMemory bool
	// ReadOnly opens an existing directory without taking the write lock.
	ReadOnly bool
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens the database at path.
func Open(path string, logger *slog.Logger, o Options) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = !o.InMemory
	opts.ReadOnly = o.ReadOnly
	opts.CompactL0OnClose = !o.ReadOnly

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	if logger != nil {
		logger.Info("badger database opened", "path", path, "in_memory", o.InMemory, "read_only", o.ReadOnly)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping fails once the database has been closed.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return store.Unavailable("badger: ping", errors.New("database closed"))
	}
	return nil
}

// update runs fn in a read-write transaction. SSI conflicts are retried with
// jittered backoff until one commit succeeds or ctx is done.
func (s *Store) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	backoff := conflictBackoffMin
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return wrap(op, err)
		}

		timer := time.NewTimer(backoff/2 + rand.N(backoff))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, conflictBackoffMax)
	}
}

func (s *Store) view(op string, fn func(txn *badger.Txn) error) error {
	return wrap(op, s.db.View(fn))
}

// wrap passes store errors through and marks everything else transient.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *store.Error
	if errors.As(err, &se) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return store.Unavailable("badger: "+op, err)
}

func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// invTimestamp renders t so that lexical order is reverse chronological.
func invTimestamp(t time.Time) string {
	v := uint64(math.MaxInt64 - t.UnixNano())
	s := strconv.FormatUint(v, 10)
	for len(s) < invTimestampWidth {
		s = "0" + s
	}
	return s
}

func contentKey(id string) []byte {
	return fmt.Appendf(nil, "%s%s", prefixContent, id)
}

func readsKey(id string) []byte {
	return fmt.Appendf(nil, "%s%s", prefixReads, id)
}

func createdIndexKey(inv, id string) []byte {
	return fmt.Appendf(nil, "%s%s:%s", prefixCreatedIndex, inv, id)
}

func authorIndexPrefix(authorID string) []byte {
	return fmt.Appendf(nil, "%s%s:", prefixAuthorIndex, authorID)
}

func relationPrefix(userID, kind string) string {
	return prefixRelation + userID + ":" + kind
}
