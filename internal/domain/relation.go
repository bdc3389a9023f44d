package domain

import (
	"fmt"
	"time"
)

// RelationKind is the way a user relates to a content item.
type RelationKind string

// Relation kinds.
const (
	RelationFavorite RelationKind = "favorite"
	RelationBookmark RelationKind = "bookmark"
)

// RelationKinds lists every relation kind.
func RelationKinds() []RelationKind {
	return []RelationKind{RelationFavorite, RelationBookmark}
}

// Valid reports whether k is a known kind.
func (k RelationKind) Valid() bool {
	return k == RelationFavorite || k == RelationBookmark
}

// Plural returns the collection name used in URLs ("favorites", "bookmarks").
func (k RelationKind) Plural() string {
	return string(k) + "s"
}

// ParseRelationKind accepts the singular or plural name of a kind.
func ParseRelationKind(s string) (RelationKind, error) {
	switch s {
	case "favorite", "favorites":
		return RelationFavorite, nil
	case "bookmark", "bookmarks":
		return RelationBookmark, nil
	}
	return "", fmt.Errorf("unknown relation kind %q", s)
}

// RelationKey identifies at most one relation record.
type RelationKey struct {
	UserID    string       `json:"user_id"`
	ContentID string       `json:"content_id"`
	Kind      RelationKind `json:"kind"`
}

func (k RelationKey) String() string {
	return k.UserID + "/" + string(k.Kind) + "/" + k.ContentID
}

// RelationRecord is the durable fact that a user relates to a content item.
type RelationRecord struct {
	RelationKey
	CreatedAt time.Time `json:"created_at"`
}

// Presence is the existence state of a relation.
type Presence string

// Presence values.
const (
	Absent  Presence = "absent"
	Present Presence = "present"
)

// PresenceOf converts an existence flag.
func PresenceOf(exists bool) Presence {
	if exists {
		return Present
	}
	return Absent
}

// Flip returns the opposite presence.
func (p Presence) Flip() Presence {
	if p == Present {
		return Absent
	}
	return Present
}

// Exists reports whether p is Present.
func (p Presence) Exists() bool {
	return p == Present
}

// RelationStatus is the per-kind presence for one user and content item.
type RelationStatus struct {
	ContentID string `json:"content_id"`
	Favorite  bool   `json:"favorite"`
	Bookmark  bool   `json:"bookmark"`
}

// Has returns the presence of kind in the status.
func (s RelationStatus) Has(kind RelationKind) bool {
	if kind == RelationFavorite {
		return s.Favorite
	}
	return s.Bookmark
}
