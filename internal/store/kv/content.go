package kv

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/store"
)

// GetContent loads the item and its counter in one snapshot.
func (s *Store) GetContent(ctx context.Context, id string) (*domain.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var item *domain.ContentItem
	err := s.view("get content", func(txn *badger.Txn) error {
		var err error
		item, err = loadContent(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func loadContent(txn *badger.Txn, id string) (*domain.ContentItem, error) {
	var item domain.ContentItem
	if err := getJSON(txn, contentKey(id), &item); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrContentNotFound
		}
		return nil, err
	}
	count, err := readCount(txn, id)
	if err != nil {
		return nil, err
	}
	item.ReadCount = int64(count)
	return &item, nil
}

func readCount(txn *badger.Txn, id string) (uint64, error) {
	it, err := txn.Get(readsKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var n uint64
	err = it.Value(func(val []byte) error {
		if len(val) == 8 {
			n = binary.BigEndian.Uint64(val)
		}
		return nil
	})
	return n, err
}

// ListContent walks the created index newest first and stops after PageSize matches.
func (s *Store) ListContent(ctx context.Context, filter store.ListFilter) ([]*domain.ContentItem, error) {
	filter = filter.Normalize()
	return s.scanIndex(ctx, "list content", []byte(prefixCreatedIndex), store.PageSize, filter.Matches)
}

// ListContentByAuthor walks the author index.
func (s *Store) ListContentByAuthor(ctx context.Context, authorID string) ([]*domain.ContentItem, error) {
	return s.scanIndex(ctx, "list content by author", authorIndexPrefix(authorID), 0, nil)
}

func (s *Store) scanIndex(ctx context.Context, op string, prefix []byte, limit int, keep func(*domain.ContentItem) bool) ([]*domain.ContentItem, error) {
	items := make([]*domain.ContentItem, 0)
	err := s.view(op, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Suffix is "{inv}:{id}".
			suffix := it.Item().Key()[len(prefix):]
			if len(suffix) <= invTimestampWidth+1 {
				continue
			}
			id := string(suffix[invTimestampWidth+1:])

			item, err := loadContent(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if keep != nil && !keep(item) {
				continue
			}
			items = append(items, item)
			if limit > 0 && len(items) == limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CreateContent writes the item with its index entries in one transaction.
func (s *Store) CreateContent(ctx context.Context, item *domain.ContentItem) error {
	inv := invTimestamp(item.CreatedAt)
	stored := *item
	stored.ReadCount = 0

	return s.update(ctx, "create content", func(txn *badger.Txn) error {
		found, err := exists(txn, contentKey(item.ID))
		if err != nil {
			return err
		}
		if found {
			return store.ErrAlreadyExists.WithMessage("content id already exists")
		}
		if err := setJSON(txn, contentKey(item.ID), &stored); err != nil {
			return err
		}
		if item.ReadCount > 0 {
			if err := txn.Set(readsKey(item.ID), binary.BigEndian.AppendUint64(nil, uint64(item.ReadCount))); err != nil {
				return err
			}
		}
		if err := txn.Set(createdIndexKey(inv, item.ID), nil); err != nil {
			return err
		}
		return txn.Set(append(authorIndexPrefix(item.AuthorID), inv+":"+item.ID...), nil)
	})
}

// IncrementReadCount is a read-modify-write inside a serializable transaction.
// Badger aborts a commit whose read set was written concurrently, and update
// retries it, so no increment is lost.
func (s *Store) IncrementReadCount(ctx context.Context, id string) error {
	return s.update(ctx, "increment read count", func(txn *badger.Txn) error {
		found, err := exists(txn, contentKey(id))
		if err != nil {
			return err
		}
		if !found {
			return store.ErrContentNotFound
		}
		n, err := readCount(txn, id)
		if err != nil {
			return err
		}
		return txn.Set(readsKey(id), binary.BigEndian.AppendUint64(nil, n+1))
	})
}

// DeleteContent removes the item, its counter and index entries. Relations are kept.
func (s *Store) DeleteContent(ctx context.Context, id string) error {
	return s.update(ctx, "delete content", func(txn *badger.Txn) error {
		var item domain.ContentItem
		if err := getJSON(txn, contentKey(id), &item); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		inv := invTimestamp(item.CreatedAt)
		for _, k := range [][]byte{
			contentKey(id),
			readsKey(id),
			createdIndexKey(inv, id),
			append(authorIndexPrefix(item.AuthorID), inv+":"+id...),
		} {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
