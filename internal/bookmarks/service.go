package bookmarks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/enrichment"
	"go.uber.org/zap"
)

var noOpLogger = zap.NewNop()

const (
	fieldUserID     = "user_id"
	fieldBookmarkID = "bookmark_id"
	fieldURL        = "url"
)

// Enricher derives title, favicon and summary for a URL. It never fails:
// problems surface as fallback values.
type Enricher interface {
	Enrich(ctx context.Context, pageURL string) enrichment.Enrichment
}

// IDProvider issues bookmark identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the bookmark store.
type ServiceConfig struct {
	Repository Repository
	Enricher   Enricher
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns the per-user bookmark collection.
type Service struct {
	repository Repository
	enricher   Enricher
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, newServiceError(opServiceNew, reasonMissingRepository, MessageInternal, errMissingRepository)
	}
	if cfg.Enricher == nil {
		return nil, newServiceError(opServiceNew, reasonMissingEnricher, MessageInternal, errMissingEnricher)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, reasonMissingIDProvider, MessageInternal, errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		repository: cfg.Repository,
		enricher:   cfg.Enricher,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// List returns the user's bookmarks in ascending order-key order.
func (s *Service) List(ctx context.Context, userID UserID) ([]Bookmark, error) {
	if s.repository == nil {
		return nil, newServiceError(opList, reasonMissingRepository, MessageInternal, errMissingRepository)
	}
	if _, err := NewUserID(userID.String()); err != nil {
		return nil, newServiceError(opList, reasonInvalidUserID, MessageInvalidUser, errors.Join(ErrValidation, err))
	}

	stored, err := s.repository.ListByUser(ctx, userID)
	if err != nil {
		s.logError(opList, reasonQueryFailed, err, zap.String(fieldUserID, userID.String()))
		return nil, newServiceError(opList, reasonQueryFailed, MessageInternal, err)
	}
	sortByOrder(stored)
	return stored, nil
}

// ListByTag returns the user's bookmarks carrying tag, order preserved.
// An empty tag returns the full list.
func (s *Service) ListByTag(ctx context.Context, userID UserID, tag string) ([]Bookmark, error) {
	all, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return all, nil
	}
	filtered := make([]Bookmark, 0, len(all))
	for _, bookmark := range all {
		if bookmark.Tags.Contains(tag) {
			filtered = append(filtered, bookmark)
		}
	}
	return filtered, nil
}

// Tags returns the sorted set of tags used across the user's bookmarks.
func (s *Service) Tags(ctx context.Context, userID UserID) ([]string, error) {
	all, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, bookmark := range all {
		for _, tag := range bookmark.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// Create validates the request, enriches the URL and appends the bookmark to
// the end of the user's list.
func (s *Service) Create(ctx context.Context, request CreateRequest) (Bookmark, error) {
	if s.repository == nil {
		return Bookmark{}, newServiceError(opCreate, reasonMissingRepository, MessageInternal, errMissingRepository)
	}
	if s.enricher == nil {
		return Bookmark{}, newServiceError(opCreate, reasonMissingEnricher, MessageInternal, errMissingEnricher)
	}
	userID, err := NewUserID(request.UserID.String())
	if err != nil {
		return Bookmark{}, newServiceError(opCreate, reasonInvalidUserID, MessageInvalidUser, errors.Join(ErrValidation, err))
	}
	bookmarkURL, err := NewBookmarkURL(request.URL)
	if err != nil {
		if strings.TrimSpace(request.URL) == "" {
			return Bookmark{}, newServiceError(opCreate, reasonMissingURL, MessageURLRequired, errors.Join(ErrValidation, err))
		}
		return Bookmark{}, newServiceError(opCreate, reasonInvalidURL, MessageInvalidURL, errors.Join(ErrValidation, err))
	}

	exists, err := s.repository.ExistsForURL(ctx, userID, bookmarkURL.String())
	if err != nil {
		s.logError(opCreate, reasonQueryFailed, err,
			zap.String(fieldUserID, userID.String()),
			zap.String(fieldURL, bookmarkURL.String()))
		return Bookmark{}, newServiceError(opCreate, reasonQueryFailed, MessageInternal, err)
	}
	if exists {
		return Bookmark{}, newServiceError(opCreate, reasonDuplicate, MessageDuplicate, ErrDuplicate)
	}

	bookmarkID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, reasonIDGeneration, err, zap.String(fieldUserID, userID.String()))
		return Bookmark{}, newServiceError(opCreate, reasonIDGeneration, MessageInternal, err)
	}

	derived := s.enricher.Enrich(ctx, bookmarkURL.String())

	now := s.clock().UTC()
	bookmark := Bookmark{
		ID:        bookmarkID,
		UserID:    userID.String(),
		URL:       bookmarkURL.String(),
		Title:     derived.Title,
		Favicon:   derived.Favicon,
		Summary:   derived.Summary,
		Tags:      NormalizeTags(request.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repository.Append(ctx, &bookmark); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Bookmark{}, newServiceError(opCreate, reasonDuplicate, MessageDuplicate, ErrDuplicate)
		}
		s.logError(opCreate, reasonInsertFailed, err,
			zap.String(fieldUserID, userID.String()),
			zap.String(fieldURL, bookmarkURL.String()))
		return Bookmark{}, newServiceError(opCreate, reasonInsertFailed, MessageInternal, err)
	}

	s.logger.Debug("bookmark created",
		zap.String(fieldUserID, userID.String()),
		zap.String(fieldBookmarkID, bookmark.ID),
		zap.Int64("order", bookmark.Order))
	return bookmark, nil
}

// Update applies a partial update to a bookmark owned by userID and stamps a
// new modification time.
func (s *Service) Update(ctx context.Context, userID UserID, rawBookmarkID string, patch Patch) (Bookmark, error) {
	if s.repository == nil {
		return Bookmark{}, newServiceError(opUpdate, reasonMissingRepository, MessageInternal, errMissingRepository)
	}
	bookmarkID, err := s.authorizeOwner(ctx, opUpdate, userID, rawBookmarkID)
	if err != nil {
		return Bookmark{}, err
	}

	update := FieldUpdate{
		Title:     patch.Title,
		Summary:   patch.Summary,
		UpdatedAt: s.clock().UTC(),
	}
	if patch.Tags != nil {
		tags := NormalizeTags(*patch.Tags)
		update.Tags = &tags
	}

	updated, err := s.repository.UpdateFields(ctx, bookmarkID, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Bookmark{}, newServiceError(opUpdate, reasonNotFound, MessageNotFound, ErrNotFound)
		}
		s.logError(opUpdate, reasonUpdateFailed, err,
			zap.String(fieldUserID, userID.String()),
			zap.String(fieldBookmarkID, bookmarkID.String()))
		return Bookmark{}, newServiceError(opUpdate, reasonUpdateFailed, MessageInternal, err)
	}
	return updated, nil
}

// Delete removes a bookmark owned by userID without renumbering siblings.
func (s *Service) Delete(ctx context.Context, userID UserID, rawBookmarkID string) error {
	if s.repository == nil {
		return newServiceError(opDelete, reasonMissingRepository, MessageInternal, errMissingRepository)
	}
	bookmarkID, err := s.authorizeOwner(ctx, opDelete, userID, rawBookmarkID)
	if err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, bookmarkID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newServiceError(opDelete, reasonNotFound, MessageNotFound, ErrNotFound)
		}
		s.logError(opDelete, reasonDeleteFailed, err,
			zap.String(fieldUserID, userID.String()),
			zap.String(fieldBookmarkID, bookmarkID.String()))
		return newServiceError(opDelete, reasonDeleteFailed, MessageInternal, err)
	}
	return nil
}

// Reorder commits a client-computed sequence: each listed id receives its
// zero-based position as order key. Unknown or foreign ids are ignored and
// repeated ids keep their first position.
func (s *Service) Reorder(ctx context.Context, userID UserID, rawBookmarkIDs []string) (ReorderResult, error) {
	if s.repository == nil {
		return ReorderResult{}, newServiceError(opReorder, reasonMissingRepository, MessageInternal, errMissingRepository)
	}
	if rawBookmarkIDs == nil {
		return ReorderResult{}, newServiceError(opReorder, reasonMissingIDList, MessageIDsRequired, errors.Join(ErrValidation, errMissingIDList))
	}
	if _, err := NewUserID(userID.String()); err != nil {
		return ReorderResult{}, newServiceError(opReorder, reasonInvalidUserID, MessageInvalidUser, errors.Join(ErrValidation, err))
	}

	assignments := PlanOrder(rawBookmarkIDs)
	result := ReorderResult{Requested: len(rawBookmarkIDs)}
	if len(assignments) == 0 {
		return result, nil
	}

	applied, err := s.repository.ApplyOrder(ctx, userID, assignments, s.clock().UTC())
	if err != nil {
		s.logError(opReorder, reasonUpdateFailed, err,
			zap.String(fieldUserID, userID.String()),
			zap.Int("assignments", len(assignments)))
		return ReorderResult{}, newServiceError(opReorder, reasonUpdateFailed, MessageInternal, err)
	}
	result.Applied = applied
	if applied < len(assignments) {
		s.logger.Debug("reorder ignored unknown bookmark ids",
			zap.String(fieldUserID, userID.String()),
			zap.Int("requested", len(assignments)),
			zap.Int("applied", applied))
	}
	return result, nil
}

// PlanOrder maps an id sequence onto order assignments. Blank, oversized and
// repeated ids are skipped; positions stay tied to the original sequence.
func PlanOrder(rawBookmarkIDs []string) []OrderAssignment {
	assignments := make([]OrderAssignment, 0, len(rawBookmarkIDs))
	seen := make(map[BookmarkID]struct{}, len(rawBookmarkIDs))
	for position, raw := range rawBookmarkIDs {
		bookmarkID, err := NewBookmarkID(raw)
		if err != nil {
			continue
		}
		if _, repeated := seen[bookmarkID]; repeated {
			continue
		}
		seen[bookmarkID] = struct{}{}
		assignments = append(assignments, OrderAssignment{BookmarkID: bookmarkID, Order: int64(position)})
	}
	return assignments
}

func (s *Service) authorizeOwner(ctx context.Context, operation string, userID UserID, rawBookmarkID string) (BookmarkID, error) {
	if _, err := NewUserID(userID.String()); err != nil {
		return "", newServiceError(operation, reasonInvalidUserID, MessageInvalidUser, errors.Join(ErrValidation, err))
	}
	bookmarkID, err := NewBookmarkID(rawBookmarkID)
	if err != nil {
		return "", newServiceError(operation, reasonInvalidBookmarkID, MessageInvalidBookmark, errors.Join(ErrValidation, err))
	}

	existing, err := s.repository.FindByID(ctx, bookmarkID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", newServiceError(operation, reasonNotFound, MessageNotFound, ErrNotFound)
		}
		s.logError(operation, reasonQueryFailed, err,
			zap.String(fieldUserID, userID.String()),
			zap.String(fieldBookmarkID, bookmarkID.String()))
		return "", newServiceError(operation, reasonQueryFailed, MessageInternal, err)
	}
	if existing.UserID != userID.String() {
		s.logger.Info("bookmark ownership mismatch",
			zap.String("operation", operation),
			zap.String(fieldUserID, userID.String()),
			zap.String(fieldBookmarkID, bookmarkID.String()))
		return "", newServiceError(operation, reasonForbidden, MessageForbidden, ErrForbidden)
	}
	return bookmarkID, nil
}

func sortByOrder(bookmarks []Bookmark) {
	sort.SliceStable(bookmarks, func(i, j int) bool {
		if bookmarks[i].Order != bookmarks[j].Order {
			return bookmarks[i].Order < bookmarks[j].Order
		}
		return bookmarks[i].CreatedAt.Before(bookmarks[j].CreatedAt)
	})
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("bookmarks service error", attrs...)
}
