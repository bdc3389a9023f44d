package kv

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/talespring/talespring-server/internal/domain"
)

func relationExistsKey(key domain.RelationKey) []byte {
	return []byte(relationPrefix(key.UserID, string(key.Kind)) + relationExistsMarker + key.ContentID)
}

func relationTimePrefix(userID string, kind domain.RelationKind) []byte {
	return []byte(relationPrefix(userID, string(kind)) + relationTimeMarker)
}

func relationTimeKey(key domain.RelationKey, inv string) []byte {
	return append(relationTimePrefix(key.UserID, key.Kind), inv+":"+key.ContentID...)
}

// RelationExists checks the existence key.
func (s *Store) RelationExists(ctx context.Context, key domain.RelationKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := s.view("relation exists", func(txn *badger.Txn) error {
		var err error
		found, err = exists(txn, relationExistsKey(key))
		return err
	})
	return found, err
}

// AddRelation writes both keys unless the existence key is already present.
// Two racing adds conflict on the existence key; the retry sees it and returns.
func (s *Store) AddRelation(ctx context.Context, key domain.RelationKey, at time.Time) error {
	inv := invTimestamp(at)
	return s.update(ctx, "add relation", func(txn *badger.Txn) error {
		found, err := exists(txn, relationExistsKey(key))
		if err != nil || found {
			return err
		}
		if err := txn.Set(relationExistsKey(key), []byte(inv)); err != nil {
			return err
		}
		return txn.Set(relationTimeKey(key, inv), nil)
	})
}

// RemoveRelation deletes both keys if present.
func (s *Store) RemoveRelation(ctx context.Context, key domain.RelationKey) error {
	return s.update(ctx, "remove relation", func(txn *badger.Txn) error {
		item, err := txn.Get(relationExistsKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		inv, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Delete(relationTimeKey(key, string(inv))); err != nil {
			return err
		}
		return txn.Delete(relationExistsKey(key))
	})
}

// ListRelatedContentIDs scans the time index, which is already newest first.
func (s *Store) ListRelatedContentIDs(ctx context.Context, userID string, kind domain.RelationKind) ([]string, error) {
	prefix := relationTimePrefix(userID, kind)
	ids := make([]string, 0)
	err := s.view("list relations", func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			suffix := it.Item().Key()[len(prefix):]
			if len(suffix) <= invTimestampWidth+1 {
				continue
			}
			ids = append(ids, string(suffix[invTimestampWidth+1:]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
