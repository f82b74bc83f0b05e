package bookmarks

import (
	"context"
	"time"
)

// FieldUpdate lists the columns a partial update writes.
type FieldUpdate struct {
	Title     *string
	Summary   *string
	Tags      *TagSet
	UpdatedAt time.Time
}

// Repository is the persistence contract consumed by Service. Every method is
// individually atomic; no multi-call transaction is assumed.
type Repository interface {
	// FindByID returns ErrNotFound when the id does not resolve for any user.
	FindByID(ctx context.Context, bookmarkID BookmarkID) (Bookmark, error)
	// ExistsForURL reports whether userID already saved url.
	ExistsForURL(ctx context.Context, userID UserID, url string) (bool, error)
	// ListByUser returns the user's bookmarks sorted ascending by order key.
	ListByUser(ctx context.Context, userID UserID) ([]Bookmark, error)
	// Append assigns max(order)+1 (or 0) to the bookmark and inserts it.
	// A (user, url) collision is reported as ErrDuplicate.
	Append(ctx context.Context, bookmark *Bookmark) error
	// UpdateFields writes the non-nil fields and returns the stored record.
	UpdateFields(ctx context.Context, bookmarkID BookmarkID, update FieldUpdate) (Bookmark, error)
	// Delete removes the bookmark. Sibling order keys are left untouched.
	Delete(ctx context.Context, bookmarkID BookmarkID) error
	// ApplyOrder rewrites order keys for the user's bookmarks listed in assignments.
	// Ids that do not belong to the user are ignored. It returns how many rows changed.
	ApplyOrder(ctx context.Context, userID UserID, assignments []OrderAssignment, updatedAt time.Time) (int, error)
}
