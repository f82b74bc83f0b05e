package bookmarks

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const maxIdentifierLength = 190

const maxURLLength = 2048

var (
	// ErrInvalidBookmarkID indicates that a bookmark identifier is empty or exceeds storage bounds.
	ErrInvalidBookmarkID = errors.New("bookmarks: invalid bookmark id")
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("bookmarks: invalid user id")
	// ErrInvalidURL indicates that a bookmark URL is missing or malformed.
	ErrInvalidURL = errors.New("bookmarks: invalid url")
)

// BookmarkID represents a validated bookmark identifier.
type BookmarkID string

// NewBookmarkID validates raw input and returns a BookmarkID.
func NewBookmarkID(rawInput string) (BookmarkID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBookmarkID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidBookmarkID, maxIdentifierLength)
	}
	return BookmarkID(trimmed), nil
}

// String returns the underlying string identifier.
func (id BookmarkID) String() string {
	return string(id)
}

// UserID represents a validated user identifier.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserID, maxIdentifierLength)
	}
	return UserID(trimmed), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// BookmarkURL represents a syntactically valid absolute http(s) URL.
type BookmarkURL string

// NewBookmarkURL validates raw input and returns a BookmarkURL.
func NewBookmarkURL(rawInput string) (BookmarkURL, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if len(trimmed) > maxURLLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidURL, maxURLLength)
	}
	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return BookmarkURL(trimmed), nil
}

// String returns the URL text.
func (u BookmarkURL) String() string {
	return string(u)
}

// TagSet stores normalized tags. SQL drivers persist it as a JSON array.
type TagSet []string

// Value implements driver.Valuer.
func (tags TagSet) Value() (driver.Value, error) {
	if tags == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal([]string(tags))
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner.
func (tags *TagSet) Scan(source any) error {
	var raw []byte
	switch value := source.(type) {
	case nil:
		*tags = TagSet{}
		return nil
	case string:
		raw = []byte(value)
	case []byte:
		raw = value
	default:
		return fmt.Errorf("bookmarks: unsupported tag column type %T", source)
	}
	if len(raw) == 0 {
		*tags = TagSet{}
		return nil
	}
	var decoded []string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("bookmarks: decode tags: %w", err)
	}
	*tags = NormalizeTags(decoded)
	return nil
}

// Contains reports whether the set carries the tag.
func (tags TagSet) Contains(tag string) bool {
	needle := strings.TrimSpace(tag)
	for _, candidate := range tags {
		if candidate == needle {
			return true
		}
	}
	return false
}

// Bookmark models a persisted bookmark with its derived metadata and order key.
type Bookmark struct {
	ID        string    `gorm:"column:bookmark_id;primaryKey;size:190;not null" bson:"_id"`
	UserID    string    `gorm:"column:user_id;size:190;not null;uniqueIndex:idx_bookmarks_user_url,priority:1;index:idx_bookmarks_user_order,priority:1" bson:"user_id"`
	URL       string    `gorm:"column:url;size:2048;not null;uniqueIndex:idx_bookmarks_user_url,priority:2" bson:"url"`
	Title     string    `gorm:"column:title;size:1024;not null" bson:"title"`
	Favicon   string    `gorm:"column:favicon;size:2048;not null;default:''" bson:"favicon"`
	Summary   string    `gorm:"column:summary;type:text;not null" bson:"summary"`
	Tags      TagSet    `gorm:"column:tags;type:text;not null" bson:"tags"`
	Order     int64     `gorm:"column:order_key;not null;index:idx_bookmarks_user_order,priority:2" bson:"order"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false" bson:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" bson:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Bookmark) TableName() string {
	return "bookmarks"
}

// CreateRequest describes a bookmark save issued by an authenticated user.
type CreateRequest struct {
	UserID UserID
	URL    string
	Tags   []string
}

// Patch carries the partial fields accepted by Update. Nil fields are left untouched.
type Patch struct {
	Title   *string
	Summary *string
	Tags    *[]string
}

// OrderAssignment binds a bookmark to its new order key.
type OrderAssignment struct {
	BookmarkID BookmarkID
	Order      int64
}

// ReorderResult reports how many listed ids resolved to the caller's bookmarks.
type ReorderResult struct {
	Requested int
	Applied   int
}
