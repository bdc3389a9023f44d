package postgres

import (
	"context"
	"time"

	"github.com/talespring/talespring-server/internal/domain"
	"github.com/talespring/talespring-server/internal/store"
)

// RelationExists reports whether the relation row exists.
func (s *Store) RelationExists(ctx context.Context, key domain.RelationKey) (bool, error) {
	var found bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM relations WHERE user_id = $1 AND content_id = $2 AND kind = $3)`,
		key.UserID, key.ContentID, string(key.Kind),
	).Scan(&found)
	if err != nil {
		return false, store.Unavailable("postgres: relation exists", err)
	}
	return found, nil
}

// AddRelation inserts the row; the primary key makes repeats a no-op.
func (s *Store) AddRelation(ctx context.Context, key domain.RelationKey, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO relations (user_id, content_id, kind, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		key.UserID, key.ContentID, string(key.Kind), at.UTC(),
	)
	if err != nil {
		return store.Unavailable("postgres: add relation", err)
	}
	return nil
}

// RemoveRelation deletes the row if it exists.
func (s *Store) RemoveRelation(ctx context.Context, key domain.RelationKey) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM relations WHERE user_id = $1 AND content_id = $2 AND kind = $3`,
		key.UserID, key.ContentID, string(key.Kind),
	)
	if err != nil {
		return store.Unavailable("postgres: remove relation", err)
	}
	return nil
}

// ListRelatedContentIDs orders by time, then insertion sequence.
func (s *Store) ListRelatedContentIDs(ctx context.Context, userID string, kind domain.RelationKind) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT content_id FROM relations WHERE user_id = $1 AND kind = $2 ORDER BY created_at DESC, seq DESC`,
		userID, string(kind),
	)
	if err != nil {
		return nil, store.Unavailable("postgres: list relations", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, store.Unavailable("postgres: list relations", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("postgres: list relations", err)
	}
	return ids, nil
}
