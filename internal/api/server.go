// Package api provides the HTTP API for observing and playing the town.
// GET endpoints are public. Farm and input POSTs are rate limited per IP.
// Admin POSTs require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/taixu/internal/engine"
	"github.com/talgya/taixu/internal/farm"
	"github.com/talgya/taixu/internal/logger"
	"github.com/talgya/taixu/internal/metrics"
	"github.com/talgya/taixu/internal/player"
	"github.com/talgya/taixu/internal/world"
)

const (
	maxStreamConns = 8
	requestTimeout = 5 * time.Second
)

// Saver persists the simulation. It runs on the engine loop goroutine.
type Saver interface {
	SaveWorldState(ctx context.Context, sim *engine.Simulation) error
}

// Server serves the town over HTTP.
type Server struct {
	Sim         *engine.Simulation
	Eng         *engine.Engine
	DB          Saver    // Nil disables POST /snapshot
	Addr        string   // Listen address, e.g. ":8080"
	AdminKey    string   // Bearer token for admin POSTs. Empty = admin disabled.
	CORSOrigins []string // "*" allows any origin

	// Limiter for gameplay POSTs. Nil = unlimited.
	Limiter *RateLimiter

	streamConns atomic.Int32
	srv         *http.Server
}

// Router builds the chi router with every route and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(metrics.Middleware)
	r.Use(s.cors)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public reads.
		r.Get("/status", s.handleStatus)
		r.Get("/calendar", s.handleCalendar)
		r.Get("/frame", s.handleFrame)
		r.Get("/tile/{col}/{row}", s.handleTile)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
		r.Get("/ws", s.handleWS)

		// Gameplay.
		r.Group(func(r chi.Router) {
			r.Use(s.limit)
			r.Post("/input", s.handleInput)
			r.Post("/farm/plant", s.handlePlant)
			r.Post("/farm/harvest", s.handleHarvest)
		})

		// Admin control plane.
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/build", s.handleBuild)
			r.Post("/demolish", s.handleDemolish)
			r.Post("/terraform", s.handleTerraform)
			r.Post("/teleport", s.handleTeleport)
			r.Post("/speed", s.handleSpeed)
			r.Post("/snapshot", s.handleSnapshot)
		})
	})
	return r
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// do runs fn on the engine loop with a request-scoped timeout.
func (s *Server) do(r *http.Request, fn func()) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	return s.Eng.Do(ctx, fn)
}

// requestID tags each request with an id and echoes it back.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logger.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// cors adds CORS headers for allowed frontend origins.
func (s *Server) cors(next http.Handler) http.Handler {
	wildcard := slices.Contains(s.CORSOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (wildcard || slices.Contains(s.CORSOrigins, origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limit(next http.Handler) http.Handler {
	if s.Limiter == nil {
		return next
	}
	return RateLimitMiddleware(s.Limiter, next)
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no TAIXU_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, world.ErrOutOfBounds):
		return http.StatusNotFound
	case errors.Is(err, world.ErrOccupied), errors.Is(err, farm.ErrNotHarvestable):
		return http.StatusConflict
	case errors.Is(err, world.ErrUnbuildable),
		errors.Is(err, farm.ErrInvalidTile),
		errors.Is(err, farm.ErrOutOfSeason),
		errors.Is(err, farm.ErrUnknownCrop),
		errors.Is(err, player.ErrNoPath):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrStopped),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// fail logs err and writes it with the mapped status.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	log := logger.FromContext(r.Context())
	if code >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		log.Debug("request rejected", "path", r.URL.Path, "error", err)
	}
	writeError(w, code, err.Error())
}
