package users

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate user schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:     db,
		PasswordCost: bcrypt.MinCost,
		Clock: func() time.Time {
			return time.Unix(1700000000, 0)
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestRegisterNormalizesEmailAndHashesPassword(t *testing.T) {
	service := newTestService(t)

	user, err := service.Register(context.Background(), "  Person@Example.COM ", "correct horse")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "person@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.ID == "" {
		t.Fatalf("expected generated user id")
	}
	if user.PasswordHash == "correct horse" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")); err != nil {
		t.Fatalf("expected hash to verify: %v", err)
	}

	_, err = service.Register(context.Background(), "person@example.com", "another password")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	service := newTestService(t)
	testCases := []struct {
		name     string
		email    string
		password string
		expected error
	}{
		{name: "missing email", email: "", password: "longenough", expected: ErrMissingCredentials},
		{name: "missing password", email: "a@example.com", password: "", expected: ErrMissingCredentials},
		{name: "malformed email", email: "not-an-email", password: "longenough", expected: ErrInvalidEmail},
		{name: "display name form", email: "Someone <a@example.com>", password: "longenough", expected: ErrInvalidEmail},
		{name: "short password", email: "a@example.com", password: "short", expected: ErrPasswordTooShort},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), testCase.email, testCase.password)
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	service := newTestService(t)
	registered, err := service.Register(context.Background(), "person@example.com", "correct horse")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, err := service.Authenticate(context.Background(), "PERSON@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("expected %q, got %q", registered.ID, user.ID)
	}

	if _, err := service.Authenticate(context.Background(), "person@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := service.Authenticate(context.Background(), "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestFindByEmailNormalizesLookup(t *testing.T) {
	service := newTestService(t)
	registered, err := service.Register(context.Background(), "person@example.com", "correct horse")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	found, err := service.FindByEmail(context.Background(), "  Person@Example.COM ")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.ID != registered.ID {
		t.Fatalf("unexpected user %+v", found)
	}

	if _, err := service.FindByEmail(context.Background(), "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
