// Package server exposes the favorites-sync backend over HTTP. The wire
// shapes match what the client's RemoteStore sends and expects; errors are
// JSON {"error": "..."} bodies.
package server

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/chirag6451/idiom-master/internal/logging"
	"github.com/chirag6451/idiom-master/internal/storage"
)

// Config tunes the optional server knobs. Zero values mean open access and
// the default per-client rate limit.
type Config struct {
	Username string
	Password string
	// PerClientRPS caps request throughput per remote host. Burst defaults
	// to twice the rate.
	PerClientRPS float64
	Burst        int
	Log          *logrus.Logger
}

type Server struct {
	db    *storage.DB
	log   *logrus.Logger
	user  string
	pass  string
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

func New(db *storage.DB, cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = logging.Log
	}
	rps := cfg.PerClientRPS
	if rps <= 0 {
		rps = 25
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps * 2)
		if burst < 1 {
			burst = 1
		}
	}
	return &Server{
		db:      db,
		log:     log,
		user:    cfg.Username,
		pass:    cfg.Password,
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*rate.Limiter),
	}
}

// Handler builds the route table. Health stays open so clients can probe
// reachability before they have credentials.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /favorites/{userID}", s.basicAuth(s.handleList))
	mux.HandleFunc("POST /favorites", s.basicAuth(s.handleAdd))
	mux.HandleFunc("POST /favorites/sync", s.basicAuth(s.handleSync))
	mux.HandleFunc("DELETE /favorites/{userID}/{text}/{language}", s.basicAuth(s.handleRemove))
	mux.HandleFunc("GET /audio/{key}", s.basicAuth(s.handleAudio))

	return s.logRequests(s.rateLimit(mux))
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.user == "" && s.pass == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.user || pass != s.pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiterFor(r.RemoteAddr).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiterFor(remoteAddr string) *rate.Limiter {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.clients[host]
	if !ok {
		lim = rate.NewLimiter(s.limit, s.burst)
		s.clients[host] = lim
	}
	return lim
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Info("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
