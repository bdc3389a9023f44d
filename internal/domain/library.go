package domain

// LibraryView is a user's favorited and bookmarked items, each list ordered
// by relation time, most recent first. It is derived and never stored.
type LibraryView struct {
	Bookmarked []*ContentItem `json:"bookmarked"`
	Favorited  []*ContentItem `json:"favorited"`
}

// Items returns the list for kind.
func (v *LibraryView) Items(kind RelationKind) []*ContentItem {
	if kind == RelationFavorite {
		return v.Favorited
	}
	return v.Bookmarked
}

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Anonymous reports whether no user is signed in.
func (i Identity) Anonymous() bool {
	return i.ID == ""
}
