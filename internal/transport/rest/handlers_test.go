package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"chess-arena/internal/msgcat"
	"chess-arena/internal/presence"
	"chess-arena/internal/store"
)

func newTestMux(t *testing.T, tracker *presence.Tracker) (*http.ServeMux, *store.Memory) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	mem := store.NewMemory()
	mux := http.NewServeMux()
	NewHandlers(mem, tracker, cat, nil).Register(mux)
	return mux, mem
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestRootHealth(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := doJSON(t, mux, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if got := decode(t, rec)["message"]; got != "Chess API is running" {
		t.Fatalf("unexpected message %v", got)
	}
}

func TestSignupValidation(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rec := doJSON(t, mux, http.MethodPost, "/signup", map[string]string{"username": "ab", "password": "longenough"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short username: status %d", rec.Code)
	}
	if got := decode(t, rec)["detail"]; got != "Username must be at least 3 characters" {
		t.Fatalf("unexpected detail %v", got)
	}

	rec = doJSON(t, mux, http.MethodPost, "/signup", map[string]string{"username": "alice", "password": "short"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short password: status %d", rec.Code)
	}
	if got := decode(t, rec)["detail"]; got != "Password must be at least 6 characters" {
		t.Fatalf("unexpected detail %v", got)
	}
}

func TestSignupAndDuplicate(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rec := doJSON(t, mux, http.MethodPost, "/signup", map[string]string{"username": "alice", "password": "hunter22"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["message"] != "User created" || body["user_id"] == nil {
		t.Fatalf("unexpected body %v", body)
	}

	rec = doJSON(t, mux, http.MethodPost, "/signup", map[string]string{"username": "alice", "password": "hunter22"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: status %d", rec.Code)
	}
	if got := decode(t, rec)["detail"]; got != "Username already taken" {
		t.Fatalf("unexpected detail %v", got)
	}
}

func TestLogin(t *testing.T) {
	mux, mem := newTestMux(t, nil)
	u, err := mem.CreateUser(context.Background(), "alice", "hunter22")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	rec := doJSON(t, mux, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "hunter22"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d", rec.Code)
	}
	body := decode(t, rec)
	if int64(body["user_id"].(float64)) != u.ID || body["username"] != "alice" {
		t.Fatalf("unexpected body %v", body)
	}

	rec = doJSON(t, mux, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", rec.Code)
	}
	if got := decode(t, rec)["detail"]; got != "Invalid username or password" {
		t.Fatalf("unexpected detail %v", got)
	}
}

func TestOnlineUsersEmptyWithoutTracker(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	rec := doJSON(t, mux, http.MethodGet, "/online-users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"online_users":[]`) {
		t.Fatalf("expected empty roster, got %s", rec.Body.String())
	}
}

func TestOnlineUsersWithTracker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	tracker := presence.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	mux, _ := newTestMux(t, tracker)
	if err := tracker.Connect(context.Background(), 7, "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	rec := doJSON(t, mux, http.MethodGet, "/online-users", nil)
	body := rec.Body.String()
	if !strings.Contains(body, `"username":"alice"`) || !strings.Contains(body, `"user_id":7`) {
		t.Fatalf("roster missing alice: %s", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	handler := CORS(nil, mux)

	req := httptest.NewRequest(http.MethodOptions, "/signup", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestCORSAllowlistEchoesSingleOrigin(t *testing.T) {
	mux, _ := newTestMux(t, nil)
	handler := CORS([]string{"https://a.example", "https://b.example"}, mux)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://b.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// the header must carry the single matching origin, never a joined list
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://b.example" {
		t.Fatalf("expected echoed origin, got %q", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Fatalf("missing Vary: Origin")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin must get no CORS header, got %q", got)
	}
}
