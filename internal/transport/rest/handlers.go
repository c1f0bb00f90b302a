// Package rest serves the account and roster endpoints.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"chess-arena/internal/msgcat"
	"chess-arena/internal/presence"
	"chess-arena/internal/store"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// Handlers bundles the REST endpoints and their dependencies.
type Handlers struct {
	st      store.Store
	tracker *presence.Tracker // nil means the roster is always empty
	cat     *msgcat.Catalog
	log     *zap.Logger
}

func NewHandlers(st store.Store, tracker *presence.Tracker, cat *msgcat.Catalog, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{st: st, tracker: tracker, cat: cat, log: log}
}

// Register mounts all REST routes on the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("POST /signup", h.signup)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("GET /online-users", h.onlineUsers)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": h.cat.Message("rest.root")})
}

func (h *Handlers) signup(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "errors.protocol")
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if len(creds.Username) < minUsernameLen {
		h.writeDetail(w, http.StatusBadRequest, "rest.username_too_short")
		return
	}
	if len(creds.Password) < minPasswordLen {
		h.writeDetail(w, http.StatusBadRequest, "rest.password_too_short")
		return
	}

	u, err := h.st.CreateUser(r.Context(), creds.Username, creds.Password)
	if errors.Is(err, store.ErrUsernameTaken) {
		h.writeDetail(w, http.StatusConflict, "rest.username_taken")
		return
	}
	if err != nil {
		h.log.Error("signup_error", zap.String("username", creds.Username), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.log.Info("user_signup", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": h.cat.Message("rest.user_created"),
		"user_id": u.ID,
	})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "errors.protocol")
		return
	}

	u, err := h.st.Authenticate(r.Context(), strings.TrimSpace(creds.Username), creds.Password)
	if errors.Is(err, store.ErrInvalidCredential) {
		h.writeDetail(w, http.StatusUnauthorized, "rest.invalid_credentials")
		return
	}
	if err != nil {
		h.log.Error("login_error", zap.String("username", creds.Username), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  u.ID,
		"username": u.Username,
		"rating":   u.Rating,
	})
}

func (h *Handlers) onlineUsers(w http.ResponseWriter, r *http.Request) {
	online := []presence.OnlineUser{}
	if h.tracker != nil {
		var err error
		online, err = h.tracker.Online(r.Context())
		if err != nil {
			h.log.Error("online_users_error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"online_users": online})
}

func (h *Handlers) writeDetail(w http.ResponseWriter, status int, key string) {
	writeJSON(w, status, map[string]string{"detail": h.cat.Message(key)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// CORS wraps the mux with cross-origin headers so browser clients hosted
// elsewhere can reach the API. With an allowlist, the matching request
// origin is echoed back; the header carries a single origin, never a list.
func CORS(allowed []string, next http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allowedSet[strings.TrimSpace(o)] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(allowedSet) == 0 {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin := r.Header.Get("Origin"); origin != "" {
			if _, ok := allowedSet[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
