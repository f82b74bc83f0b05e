package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/database"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/enrichment"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSigningSecret = "router-test-secret"
	testIssuer        = "bookmarks-api"
	testCookieName    = "auth_token"
)

type fixedEnricher struct{}

func (fixedEnricher) Enrich(_ context.Context, pageURL string) enrichment.Enrichment {
	return enrichment.Enrichment{Title: "Title " + pageURL, Favicon: pageURL + "/favicon.ico", Summary: "Summary", Fetched: true}
}

type testServer struct {
	deps    Dependencies
	handler http.Handler
	issuer  *auth.TokenIssuer
	users   *users.Service
}

func newTestServer(t *testing.T, log *zap.Logger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQL(database.SQLConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "server.db"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	bookmarkService, err := bookmarks.NewService(bookmarks.ServiceConfig{
		Repository: bookmarks.NewGormRepository(db),
		Enricher:   fixedEnricher{},
		IDProvider: bookmarks.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build bookmark service: %v", err)
	}
	userService, err := users.NewService(users.ServiceConfig{Database: db, PasswordCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("failed to build user service: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{SigningSecret: []byte(testSigningSecret), Issuer: testIssuer})
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}
	validator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
		CookieName:    testCookieName,
	})
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	deps := Dependencies{
		Bookmarks:      bookmarkService,
		Accounts:       userService,
		TokenIssuer:    issuer,
		Sessions:       validator,
		AllowedOrigins: []string{"https://app.example.com"},
		Logger:         log,
	}
	handler, err := NewHTTPHandler(deps)
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return &testServer{deps: deps, handler: handler, issuer: issuer, users: userService}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

// login registers an account and returns its session cookie.
func (s *testServer) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	password := "correct horse battery"
	if recorder := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": email, "password": password}, nil); recorder.Code != http.StatusOK {
		t.Fatalf("register failed: %d %s", recorder.Code, recorder.Body.String())
	}
	recorder := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", recorder.Code, recorder.Body.String())
	}
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == testCookieName && cookie.Value != "" {
			if !cookie.HttpOnly {
				t.Fatalf("expected http-only session cookie")
			}
			return &http.Cookie{Name: cookie.Name, Value: cookie.Value}
		}
	}
	t.Fatalf("expected session cookie to be set")
	return nil
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode %q: %v", recorder.Body.String(), err)
	}
}

func expectError(t *testing.T, recorder *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if recorder.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, recorder.Code, recorder.Body.String())
	}
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, recorder, &body)
	if body.Error != message {
		t.Fatalf("expected error %q, got %q", message, body.Error)
	}
}

func expiredSessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
		TokenTTL:      time.Hour,
		Clock:         func() time.Time { return time.Now().Add(-2 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}
	token, _, err := issuer.IssueSessionToken(context.Background(), "user-1", "user@example.com")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return &http.Cookie{Name: testCookieName, Value: token}
}
