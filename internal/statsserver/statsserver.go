// Package statsserver exposes a read-only HTTP endpoint reporting live
// cache stats (bytes used/budget, resident texture count, queue depth) so
// an operator can watch streamer health on a shared machine without
// fetching or exposing any image data. It's built on github.com/gorilla/mux
// (the teacher pack's own router choice in cmd/server/main.go) and gated by
// a bearer token: either the operator's plaintext token, checked against
// its bcrypt hash, or a JWT minted from it with MintToken and checked with
// github.com/golang-jwt/jwt/v5, modeled on pkg/auth/auth.go's Manager, minus
// the session bookkeeping that package needs for interactive login (this
// endpoint has exactly one fixed operator token, set once at startup).
//
// handleStats runs on the HTTP server's own goroutine, never the
// render/driver goroutine, so it must never read streamer.Controller's
// Cache() directly — that would be a concurrent map/field access racing
// QueriesEnd (see SPEC_FULL §5). It only ever calls Controller.Stats(),
// an atomically published snapshot safe for any goroutine to read.
package statsserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/halvardh/streamview/internal/streamer"
)

// Claims is the JWT payload minted for the single operator token this
// server accepts.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Server serves GET /stats behind a bearer-token check. Exactly one
// Controller is reported on.
type Server struct {
	ctl       *streamer.Controller
	jwtSecret []byte
	tokenHash string // bcrypt hash of the plaintext bearer token
}

// Option configures New.
type Option func(*Server)

// WithPlaintextToken sets the bearer token operators must present, hashed
// with bcrypt so the server never retains it in recoverable form — matching
// pkg/auth/auth.go's HashPassword/CompareHashAndPassword pattern applied to
// a static token instead of a per-user password.
func WithPlaintextToken(token string) Option {
	return func(s *Server) {
		hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			panic(fmt.Sprintf("statsserver: hashing bearer token: %v", err))
		}
		s.tokenHash = string(hash)
	}
}

// New constructs a Server reporting on ctl, signing/validating JWTs with
// jwtSecret.
func New(ctl *streamer.Controller, jwtSecret []byte, opts ...Option) *Server {
	s := &Server{ctl: ctl, jwtSecret: jwtSecret}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MintToken issues a signed JWT an operator can present as
// "Authorization: Bearer <token>". plaintext must match what
// WithPlaintextToken was configured with.
func (s *Server) MintToken(plaintext string, ttl time.Duration) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.tokenHash), []byte(plaintext)); err != nil {
		return "", fmt.Errorf("statsserver: invalid bearer token")
	}
	claims := Claims{
		Subject: "streamview-stats",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "streamview",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// Router builds the mux.Router serving /stats, gated by requireBearer.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/stats", s.requireBearer(http.HandlerFunc(s.handleStats))).Methods(http.MethodGet)
	return r
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !s.validate(token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) validate(tokenString string) bool {
	if s.tokenHash != "" && bcrypt.CompareHashAndPassword([]byte(s.tokenHash), []byte(tokenString)) == nil {
		return true
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	return err == nil && parsed.Valid
}

// statsResponse is the JSON body of GET /stats.
type statsResponse struct {
	CacheMemoryUsed   int64 `json:"cache_memory_used"`
	CacheMemoryBudget int64 `json:"cache_memory_budget"`
	ResidentTextures  int   `json:"resident_textures"`
	QueuedJobs        int   `json:"queued_jobs"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.ctl.Stats()
	resp := statsResponse{
		CacheMemoryUsed:   stats.CacheMemoryUsed,
		CacheMemoryBudget: stats.CacheMemoryBudget,
		ResidentTextures:  stats.ResidentTextures,
		QueuedJobs:        stats.QueuedJobs,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
