package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
)

// bookmarkPayload is the wire shape of a bookmark. "_id" duplicates "id"
// for clients written against the document-store field name.
type bookmarkPayload struct {
	DocumentID string    `json:"_id"`
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Favicon    string    `json:"favicon"`
	Summary    string    `json:"summary"`
	Tags       []string  `json:"tags"`
	Order      int64     `json:"order"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newBookmarkPayload(bookmark bookmarks.Bookmark) bookmarkPayload {
	tags := []string(bookmark.Tags)
	if tags == nil {
		tags = []string{}
	}
	return bookmarkPayload{
		DocumentID: bookmark.ID,
		ID:         bookmark.ID,
		UserID:     bookmark.UserID,
		URL:        bookmark.URL,
		Title:      bookmark.Title,
		Favicon:    bookmark.Favicon,
		Summary:    bookmark.Summary,
		Tags:       tags,
		Order:      bookmark.Order,
		CreatedAt:  bookmark.CreatedAt,
		UpdatedAt:  bookmark.UpdatedAt,
	}
}

func newBookmarkPayloads(stored []bookmarks.Bookmark) []bookmarkPayload {
	payloads := make([]bookmarkPayload, 0, len(stored))
	for _, bookmark := range stored {
		payloads = append(payloads, newBookmarkPayload(bookmark))
	}
	return payloads
}

// tagInput accepts either a JSON array of strings or a comma separated string.
type tagInput []string

func (t *tagInput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*t = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*t = tagInput(bookmarks.ParseTagList(raw))
		return nil
	}
	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return fmt.Errorf("tags must be an array of strings or a comma separated string: %w", err)
	}
	*t = tagInput(list)
	return nil
}

type createBookmarkRequest struct {
	URL  string   `json:"url"`
	Tags tagInput `json:"tags"`
}

type updateBookmarkRequest struct {
	Title   *string   `json:"title"`
	Summary *string   `json:"summary"`
	Tags    *tagInput `json:"tags"`
}

func (r updateBookmarkRequest) toPatch() bookmarks.Patch {
	patch := bookmarks.Patch{Title: r.Title, Summary: r.Summary}
	if r.Tags != nil {
		tags := []string(*r.Tags)
		if tags == nil {
			tags = []string{}
		}
		patch.Tags = &tags
	}
	return patch
}

type reorderBookmarksRequest struct {
	BookmarkIDs []string `json:"bookmarkIds"`
}
