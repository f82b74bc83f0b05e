package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/enrichment"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "bookmarks.db")
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.AutoMigrate(&Bookmark{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return database
}

type stubEnricher struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubEnricher) Enrich(_ context.Context, pageURL string) enrichment.Enrichment {
	s.mu.Lock()
	s.calls = append(s.calls, pageURL)
	s.mu.Unlock()
	return enrichment.Enrichment{
		Title:   "Title of " + pageURL,
		Favicon: pageURL + "/favicon.ico",
		Summary: "Summary of " + pageURL,
		Fetched: true,
	}
}

type sequenceIDProvider struct {
	mu   sync.Mutex
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("bookmark-%d", p.next), nil
}

type failingIDProvider struct{}

func (failingIDProvider) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}

type steppingClock struct {
	mu      sync.Mutex
	current time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{current: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestService(t *testing.T) (*Service, *stubEnricher) {
	t.Helper()
	enricher := &stubEnricher{}
	service, err := NewService(ServiceConfig{
		Repository: NewGormRepository(openTestDatabase(t)),
		Enricher:   enricher,
		Clock:      newSteppingClock().Now,
		IDProvider: &sequenceIDProvider{},
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, enricher
}

func mustUserID(t *testing.T, value string) UserID {
	t.Helper()
	id, err := NewUserID(value)
	if err != nil {
		t.Fatalf("unexpected user id error: %v", err)
	}
	return id
}

func mustCreate(t *testing.T, service *Service, userID UserID, rawURL string, tags ...string) Bookmark {
	t.Helper()
	bookmark, err := service.Create(context.Background(), CreateRequest{UserID: userID, URL: rawURL, Tags: tags})
	if err != nil {
		t.Fatalf("unexpected create error for %s: %v", rawURL, err)
	}
	return bookmark
}

func listIDs(t *testing.T, service *Service, userID UserID) []string {
	t.Helper()
	stored, err := service.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	ids := make([]string, 0, len(stored))
	for _, bookmark := range stored {
		ids = append(ids, bookmark.ID)
	}
	return ids
}

func requireServiceError(t *testing.T, err error, sentinel error, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error wrapping %v", sentinel)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected error wrapping %v, got %v", sentinel, err)
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if message != "" && serviceErr.Message() != message {
		t.Fatalf("expected message %q, got %q", message, serviceErr.Message())
	}
}
