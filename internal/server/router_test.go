package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type bookmarkListResponse struct {
	Bookmarks []bookmarkPayload `json:"bookmarks"`
}

type bookmarkResponse struct {
	Message  string          `json:"message"`
	Bookmark bookmarkPayload `json:"bookmark"`
}

func createBookmark(t *testing.T, server *testServer, cookie *http.Cookie, body any) bookmarkPayload {
	t.Helper()
	recorder := server.do(t, http.MethodPost, "/api/bookmarks", body, cookie)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var response bookmarkResponse
	decodeBody(t, recorder, &response)
	if response.Message != messageCreated {
		t.Fatalf("unexpected message %q", response.Message)
	}
	return response.Bookmark
}

func listBookmarks(t *testing.T, server *testServer, path string, cookie *http.Cookie) []bookmarkPayload {
	t.Helper()
	recorder := server.do(t, http.MethodGet, path, nil, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var response bookmarkListResponse
	decodeBody(t, recorder, &response)
	return response.Bookmarks
}

func payloadIDs(payloads []bookmarkPayload) []string {
	ids := make([]string, 0, len(payloads))
	for _, payload := range payloads {
		ids = append(ids, payload.ID)
	}
	return ids
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	recorder := server.do(t, http.MethodGet, "/healthz", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if recorder.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store cache header")
	}
}

func TestAnonymousReadsReturnEmptyCollections(t *testing.T) {
	server := newTestServer(t, zap.NewNop())

	if got := listBookmarks(t, server, "/api/bookmarks", nil); len(got) != 0 {
		t.Fatalf("expected no bookmarks, got %d", len(got))
	}
	recorder := server.do(t, http.MethodGet, "/api/tags", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for tags, got %d", recorder.Code)
	}
	var tags struct {
		Tags []string `json:"tags"`
	}
	decodeBody(t, recorder, &tags)
	if tags.Tags == nil || len(tags.Tags) != 0 {
		t.Fatalf("expected empty tag array, got %v", tags.Tags)
	}
}

func TestCreateRequiresSession(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	body := map[string]any{"url": "https://example.com"}

	expectError(t, server.do(t, http.MethodPost, "/api/bookmarks", body, nil), http.StatusUnauthorized, messageLoginToSave)

	garbage := &http.Cookie{Name: testCookieName, Value: "not-a-jwt"}
	expectError(t, server.do(t, http.MethodPost, "/api/bookmarks", body, garbage), http.StatusUnauthorized, messageSessionExpired)

	expectError(t, server.do(t, http.MethodPatch, "/api/bookmarks/abc", map[string]any{"title": "x"}, nil), http.StatusUnauthorized, messageNotAuthenticated)
	expectError(t, server.do(t, http.MethodDelete, "/api/bookmarks/abc", nil, garbage), http.StatusUnauthorized, messageInvalidToken)
	expectError(t, server.do(t, http.MethodPost, "/api/bookmarks/reorder", map[string]any{"bookmarkIds": []string{}}, nil), http.StatusUnauthorized, messageNotAuthenticated)
}

func TestCreateValidatesURL(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	cookie := server.login(t, "owner@example.com")

	expectError(t, server.do(t, http.MethodPost, "/api/bookmarks", map[string]any{"url": "   "}, cookie), http.StatusBadRequest, "URL is required")
	expectError(t, server.do(t, http.MethodPost, "/api/bookmarks", map[string]any{"url": "not a url"}, cookie), http.StatusBadRequest, "URL is invalid")
	expectError(t, server.do(t, http.MethodPost, "/api/bookmarks", "{", cookie), http.StatusBadRequest, messageBadBody)
}

func TestCreateEnrichesAndRejectsDuplicates(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	cookie := server.login(t, "owner@example.com")

	created := createBookmark(t, server, cookie, map[string]any{"url": "https://example.com", "tags": " go, reading, go"})
	if created.ID == "" || created.DocumentID != created.ID {
		t.Fatalf("expected matching id fields, got %+v", created)
	}
	if created.Title != "Title https://example.com" || created.Summary != "Summary" {
		t.Fatalf("expected enrichment to populate bookmark, got %+v", created)
	}
	if len(created.Tags) != 2 || created.Tags[0] != "go" || created.Tags[1] != "reading" {
		t.Fatalf("expected normalized tags [go reading], got %v", created.Tags)
	}

	expectError(t, server.do(t, http.MethodPost, "/api/bookmarks", map[string]any{"url": "https://example.com"}, cookie), http.StatusBadRequest, "Bookmark already exists")

	second := createBookmark(t, server, cookie, map[string]any{"url": "https://example.org", "tags": []string{"News"}})
	if second.Order <= created.Order {
		t.Fatalf("expected appended bookmark to sort last, got %d after %d", second.Order, created.Order)
	}
}

func TestListFiltersByTag(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	cookie := server.login(t, "owner@example.com")

	first := createBookmark(t, server, cookie, map[string]any{"url": "https://a.example", "tags": []string{"go"}})
	createBookmark(t, server, cookie, map[string]any{"url": "https://b.example", "tags": []string{"news"}})
	third := createBookmark(t, server, cookie, map[string]any{"url": "https://c.example", "tags": "go,news"})

	got := payloadIDs(listBookmarks(t, server, "/api/bookmarks?tag=go", cookie))
	if len(got) != 2 || got[0] != first.ID || got[1] != third.ID {
		t.Fatalf("unexpected tag filter result %v", got)
	}

	recorder := server.do(t, http.MethodGet, "/api/tags", nil, cookie)
	var tags struct {
		Tags []string `json:"tags"`
	}
	decodeBody(t, recorder, &tags)
	if len(tags.Tags) != 2 || tags.Tags[0] != "go" || tags.Tags[1] != "news" {
		t.Fatalf("unexpected tags %v", tags.Tags)
	}
}

func TestReorderPersistsRequestedSequence(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	cookie := server.login(t, "owner@example.com")

	a := createBookmark(t, server, cookie, map[string]any{"url": "https://a.example"})
	b := createBookmark(t, server, cookie, map[string]any{"url": "https://b.example"})
	c := createBookmark(t, server, cookie, map[string]any{"url": "https://c.example"})

	recorder := server.do(t, http.MethodPost, "/api/bookmarks/reorder", map[string]any{"bookmarkIds": []string{c.ID, a.ID, b.ID}}, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var response struct {
		Message string `json:"message"`
		Applied int    `json:"applied"`
	}
	decodeBody(t, recorder, &response)
	if response.Message != messageReordered || response.Applied != 3 {
		t.Fatalf("unexpected reorder response %+v", response)
	}

	got := payloadIDs(listBookmarks(t, server, "/api/bookmarks", cookie))
	want := []string{c.ID, a.ID, b.ID}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestReorderRequiresIDArray(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	cookie := server.login(t, "owner@example.com")

	testCases := []struct {
		name string
		body any
	}{
		{name: "missing field", body: map[string]any{}},
		{name: "null field", body: `{"bookmarkIds":null}`},
		{name: "wrong type", body: `{"bookmarkIds":"abc"}`},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := server.do(t, http.MethodPost, "/api/bookmarks/reorder", testCase.body, cookie)
			expectError(t, recorder, http.StatusBadRequest, "bookmarkIds array is required")
		})
	}
}

func TestReorderIgnoresForeignBookmarks(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	owner := server.login(t, "owner@example.com")
	intruder := server.login(t, "intruder@example.com")

	mine := createBookmark(t, server, owner, map[string]any{"url": "https://a.example"})
	theirs := createBookmark(t, server, intruder, map[string]any{"url": "https://b.example"})

	recorder := server.do(t, http.MethodPost, "/api/bookmarks/reorder", map[string]any{"bookmarkIds": []string{theirs.ID, mine.ID, "missing"}}, owner)
	var response struct {
		Applied int `json:"applied"`
	}
	decodeBody(t, recorder, &response)
	if response.Applied != 1 {
		t.Fatalf("expected only the caller's bookmark to be reordered, got %d", response.Applied)
	}

	got := listBookmarks(t, server, "/api/bookmarks", intruder)
	if len(got) != 1 || got[0].Order != theirs.Order {
		t.Fatalf("expected foreign bookmark order untouched, got %+v", got)
	}
}

func TestUpdateAndDeleteEnforceOwnership(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	owner := server.login(t, "owner@example.com")
	intruder := server.login(t, "intruder@example.com")

	bookmark := createBookmark(t, server, owner, map[string]any{"url": "https://example.com", "tags": []string{"go"}})
	path := "/api/bookmarks/" + bookmark.ID

	expectError(t, server.do(t, http.MethodPatch, path, map[string]any{"title": "stolen"}, intruder), http.StatusForbidden, "Unauthorized")
	expectError(t, server.do(t, http.MethodDelete, path, nil, intruder), http.StatusForbidden, "Unauthorized")
	expectError(t, server.do(t, http.MethodPatch, "/api/bookmarks/missing", map[string]any{"title": "x"}, owner), http.StatusNotFound, "Bookmark not found")

	recorder := server.do(t, http.MethodPatch, path, map[string]any{"title": "Renamed", "tags": "Reading"}, owner)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var updated bookmarkResponse
	decodeBody(t, recorder, &updated)
	if updated.Bookmark.Title != "Renamed" || updated.Bookmark.Summary != "Summary" {
		t.Fatalf("expected only the title to change, got %+v", updated.Bookmark)
	}
	if len(updated.Bookmark.Tags) != 1 || updated.Bookmark.Tags[0] != "Reading" {
		t.Fatalf("expected tags replaced, got %v", updated.Bookmark.Tags)
	}

	recorder = server.do(t, http.MethodDelete, path, nil, owner)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	expectError(t, server.do(t, http.MethodDelete, path, nil, owner), http.StatusNotFound, "Bookmark not found")
}

func TestAuthFlow(t *testing.T) {
	server := newTestServer(t, zap.NewNop())

	expectError(t, server.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": "", "password": ""}, nil), http.StatusBadRequest, messageCredentialsRequired)

	cookie := server.login(t, "Reader@Example.com")
	expectError(t, server.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": "reader@example.com", "password": "another password"}, nil), http.StatusBadRequest, messageRegistrationFailed)
	expectError(t, server.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "reader@example.com", "password": "wrong password"}, nil), http.StatusUnauthorized, messageInvalidCredentials)

	recorder := server.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var me struct {
		User userPayload `json:"user"`
	}
	decodeBody(t, recorder, &me)
	if me.User.Email != "reader@example.com" || me.User.ID == "" {
		t.Fatalf("unexpected identity %+v", me.User)
	}

	expectError(t, server.do(t, http.MethodGet, "/api/auth/me", nil, nil), http.StatusUnauthorized, messageNotAuthenticated)

	recorder = server.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", recorder.Code)
	}
	cleared := false
	for _, setCookie := range recorder.Result().Cookies() {
		if setCookie.Name == testCookieName && setCookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected logout to clear the session cookie")
	}
}

func TestBearerTokenAuthenticates(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	cookie := server.login(t, "owner@example.com")

	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	request.Header.Set("Authorization", "Bearer "+cookie.Value)
	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected bearer token to authenticate, got %d", recorder.Code)
	}
}

func TestCORSAllowsConfiguredOriginWithCredentials(t *testing.T) {
	server := newTestServer(t, zap.NewNop())

	request := httptest.NewRequest(http.MethodOptions, "/api/bookmarks", nil)
	request.Header.Set("Origin", "https://app.example.com")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, request)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}
}

func TestSessionFailuresAreLoggedBySeverity(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	server := newTestServer(t, zap.New(core))

	server.do(t, http.MethodGet, "/api/bookmarks", nil, nil)
	if logs.Len() != 0 {
		t.Fatalf("expected anonymous requests to log nothing, got %d entries", logs.Len())
	}

	server.do(t, http.MethodGet, "/api/bookmarks", nil, expiredSessionCookie(t))
	expired := logs.FilterMessage("session validation failed").TakeAll()
	if len(expired) != 1 || expired[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected one info entry for an expired session, got %+v", expired)
	}

	server.do(t, http.MethodGet, "/api/bookmarks", nil, &http.Cookie{Name: testCookieName, Value: "garbage"})
	invalid := logs.FilterMessage("session validation failed").TakeAll()
	if len(invalid) != 1 || invalid[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one warn entry for an invalid session, got %+v", invalid)
	}
}

type fixedVerifier struct {
	identity auth.Identity
}

func (v fixedVerifier) Verify(*http.Request) (auth.Identity, error) {
	return v.identity, nil
}

func (fixedVerifier) CookieName() string {
	return testCookieName
}

func TestSessionIdentityComesFromVerifier(t *testing.T) {
	server := newTestServer(t, zap.NewNop())
	deps := server.deps
	deps.Sessions = fixedVerifier{identity: auth.Identity{UserID: "user-from-verifier", Email: "verified@example.com"}}
	handler, err := NewHTTPHandler(deps)
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var me struct {
		User userPayload `json:"user"`
	}
	decodeBody(t, recorder, &me)
	if me.User.ID != "user-from-verifier" || me.User.Email != "verified@example.com" {
		t.Fatalf("expected identity from verifier, got %+v", me.User)
	}
}
