package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/talespring/talespring-server/internal/domain"
)

// Stats summarizes database contents for operators.
type Stats struct {
	ContentItems     int
	TotalReads       uint64
	ByCategory       map[domain.Category]int
	Relations        map[domain.RelationKind]int
	DanglingRelation int // relations naming content that no longer exists
	TopRead          []*domain.ContentItem
}

// Inspect walks the whole keyspace once. It is meant for offline tooling.
func (s *Store) Inspect(ctx context.Context, top int) (*Stats, error) {
	st := &Stats{
		ByCategory: make(map[domain.Category]int),
		Relations:  make(map[domain.RelationKind]int),
	}
	err := s.view("inspect", func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			switch {
			case bytes.HasPrefix(key, []byte(prefixContent)):
				var item domain.ContentItem
				if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &item) }); err != nil {
					return err
				}
				n, err := readCount(txn, item.ID)
				if err != nil {
					return err
				}
				item.ReadCount = int64(n)
				st.ContentItems++
				st.TotalReads += n
				st.ByCategory[item.Category]++
				st.TopRead = insertTop(st.TopRead, &item, top)
			case bytes.HasPrefix(key, []byte(prefixRelation)) && bytes.Contains(key, []byte(relationExistsMarker)):
				// rel:{user}:{kind}:c:{content}
				head, contentID, _ := strings.Cut(string(key), relationExistsMarker)
				kind := domain.RelationKind(head[strings.LastIndexByte(head, ':')+1:])
				st.Relations[kind]++
				if ok, err := exists(txn, contentKey(contentID)); err != nil {
					return err
				} else if !ok {
					st.DanglingRelation++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// insertTop keeps list sorted by read count, descending, capped at n.
func insertTop(list []*domain.ContentItem, item *domain.ContentItem, n int) []*domain.ContentItem {
	if n <= 0 {
		return list
	}
	i := len(list)
	for i > 0 && list[i-1].ReadCount < item.ReadCount {
		i--
	}
	if i >= n {
		return list
	}
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = item
	if len(list) > n {
		list = list[:n]
	}
	return list
}
