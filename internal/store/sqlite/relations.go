package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/store"
)

// RelationExists reports whether the relation row exists.
func (s *Store) RelationExists(ctx context.Context, key domain.RelationKey) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM relations WHERE user_id = ? AND content_id = ? AND kind = ?`,
		key.UserID, key.ContentID, string(key.Kind),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, store.Unavailable("sqlite: relation exists", err)
	}
	return true, nil
}

// AddRelation relies on the primary key and INSERT OR IGNORE for idempotence.
func (s *Store) AddRelation(ctx context.Context, key domain.RelationKey, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO relations (user_id, content_id, kind, created_at) VALUES (?, ?, ?, ?)`,
		key.UserID, key.ContentID, string(key.Kind), formatTime(at),
	)
	if err != nil {
		return store.Unavailable("sqlite: add relation", err)
	}
	return nil
}

// RemoveRelation deletes the row if it exists.
func (s *Store) RemoveRelation(ctx context.Context, key domain.RelationKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM relations WHERE user_id = ? AND content_id = ? AND kind = ?`,
		key.UserID, key.ContentID, string(key.Kind),
	)
	if err != nil {
		return store.Unavailable("sqlite: remove relation", err)
	}
	return nil
}

// ListRelatedContentIDs breaks created_at ties by insertion order.
func (s *Store) ListRelatedContentIDs(ctx context.Context, userID string, kind domain.RelationKind) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_id FROM relations WHERE user_id = ? AND kind = ? ORDER BY created_at DESC, rowid DESC`,
		userID, string(kind),
	)
	if err != nil {
		return nil, store.Unavailable("sqlite: list relations", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, store.Unavailable("sqlite: list relations", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("sqlite: list relations", err)
	}
	return ids, nil
}
