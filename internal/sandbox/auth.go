package sandbox

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

// sessions tracks issued bearer tokens and the operating context attached to
// each. Tokens are ephemeral and live only for the sandbox process lifetime.
type sessions struct {
	mu     sync.Mutex
	byTok  map[string]*model.SessionContext
	nextID int64
}

func newSessions() *sessions {
	return &sessions{byTok: make(map[string]*model.SessionContext), nextID: 1}
}

func (s *sessions) issue(email string) (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTok[token] = &model.SessionContext{UserID: s.nextID, UserEmail: email}
	s.nextID++
	return token, nil
}

func (s *sessions) lookup(token string) (*model.SessionContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.byTok[token]
	if !ok {
		return nil, false
	}
	copied := *ctx
	return &copied, true
}

func (s *sessions) update(token string, apply func(*model.SessionContext)) (*model.SessionContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.byTok[token]
	if !ok {
		return nil, false
	}
	apply(ctx)
	copied := *ctx
	return &copied, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// openPaths are reachable without a bearer token.
var openPaths = map[string]struct{}{
	"/health":     {},
	"/auth/login": {},
	"/ws":         {},
	"/openapi":    {},
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, open := openPaths[r.URL.Path]; open || strings.HasPrefix(r.URL.Path, "/openapi") {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			writeUnauthorized(w, "missing bearer token")
			return
		}
		if _, ok := s.sessions.lookup(token); !ok {
			writeUnauthorized(w, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"` + detail + `"}`))
}
