package bookmarks

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks user-correctable input problems.
	ErrValidation = errors.New("bookmarks: validation failed")
	// ErrDuplicate marks a (user, url) uniqueness violation.
	ErrDuplicate = errors.New("bookmarks: bookmark already exists")
	// ErrNotFound marks an identifier that does not resolve.
	ErrNotFound = errors.New("bookmarks: bookmark not found")
	// ErrForbidden marks an authenticated caller that does not own the bookmark.
	ErrForbidden = errors.New("bookmarks: bookmark belongs to another user")

	errMissingRepository = errors.New("repository is required")
	errMissingEnricher   = errors.New("enricher is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingIDList     = errors.New("bookmark id list is required")
)

// ServiceError carries a stable "<operation>.<reason>" code alongside the cause.
type ServiceError struct {
	code    string
	message string
	err     error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

// Message returns the human readable reason shown to users.
func (e *ServiceError) Message() string {
	return e.message
}

const (
	opServiceNew = "bookmarks.service.new"
	opList       = "bookmarks.list"
	opCreate     = "bookmarks.create"
	opUpdate     = "bookmarks.update"
	opDelete     = "bookmarks.delete"
	opReorder    = "bookmarks.reorder"
)

const (
	reasonMissingRepository = "missing_repository"
	reasonMissingEnricher   = "missing_enricher"
	reasonMissingIDProvider = "missing_id_provider"
	reasonInvalidUserID     = "invalid_user_id"
	reasonInvalidBookmarkID = "invalid_bookmark_id"
	reasonMissingURL        = "missing_url"
	reasonInvalidURL        = "invalid_url"
	reasonMissingIDList     = "missing_bookmark_ids"
	reasonDuplicate         = "duplicate"
	reasonNotFound          = "not_found"
	reasonForbidden         = "forbidden"
	reasonQueryFailed       = "query_failed"
	reasonInsertFailed      = "insert_failed"
	reasonUpdateFailed      = "update_failed"
	reasonDeleteFailed      = "delete_failed"
	reasonIDGeneration      = "id_generation_failed"
)

// User facing messages.
const (
	MessageURLRequired     = "URL is required"
	MessageInvalidURL      = "URL is invalid"
	MessageDuplicate       = "Bookmark already exists"
	MessageNotFound        = "Bookmark not found"
	MessageForbidden       = "Unauthorized"
	MessageIDsRequired     = "bookmarkIds array is required"
	MessageInvalidUser     = "Invalid user"
	MessageInvalidBookmark = "Invalid bookmark id"
	MessageInternal        = "An unexpected error occurred"
)

func newServiceError(operation, reason, message string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, message: message, err: cause}
}
