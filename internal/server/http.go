package server

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-engine/internal/config"
	"github.com/gokatarajesh/trivia-engine/internal/logging"
	httperrors "github.com/gokatarajesh/trivia-engine/pkg/http/errors"
)

// WSUpgrader handles WebSocket upgrades. Session tokens authorize the socket,
// so any origin may connect.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Routes are the API handlers mounted by NewHTTPServer. Nil handlers are skipped.
type Routes struct {
	ListPackages  http.HandlerFunc
	GetPackage    http.HandlerFunc
	PackageStats  http.HandlerFunc
	CreateQuiz    http.HandlerFunc
	CreateTest    http.HandlerFunc
	GetSession    http.HandlerFunc
	CloseSession  http.HandlerFunc
	SessionSocket http.HandlerFunc
}

// NewHTTPServer wires health, metrics and API routes.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps []Pinger, routes Routes) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, logger, deps, routes),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed handler with CORS and request logging applied.
func NewHandler(cfg *config.App, logger zerolog.Logger, deps []Pinger, routes Routes) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), deps); err != nil {
			reqLogger := logging.FromContext(r.Context())
			reqLogger.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "upstream error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	handle(mux, "GET /v1/packages", routes.ListPackages)
	handle(mux, "GET /v1/packages/{id}", routes.GetPackage)
	handle(mux, "GET /v1/packages/{id}/stats", routes.PackageStats)
	handle(mux, "POST /v1/quizzes", routes.CreateQuiz)
	handle(mux, "POST /v1/tests", routes.CreateTest)
	handle(mux, "GET /v1/sessions/{id}", routes.GetSession)
	handle(mux, "DELETE /v1/sessions/{id}", routes.CloseSession)

	if routes.SessionSocket != nil {
		mux.HandleFunc("GET /ws/sessions", routes.SessionSocket)
	} else {
		mux.HandleFunc("GET /ws/sessions", func(w http.ResponseWriter, r *http.Request) {
			httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "WebSocket handler not configured")
		})
	}

	return withRequestLogging(logger, withCORS(cfg.CORS, mux))
}

func handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	if h != nil {
		mux.HandleFunc(pattern, h)
	}
}

func pingDependencies(ctx context.Context, deps []Pinger) error {
	for _, dep := range deps {
		if err := dep.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// withCORS answers preflight requests and tags responses for allowed origins.
func withCORS(cfg config.CORS, next http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && (slices.Contains(cfg.AllowedOrigins, origin) || slices.Contains(cfg.AllowedOrigins, "*"))
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
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

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestLogging stores a request-scoped logger in the context and logs
// each completed request.
func withRequestLogging(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLogger := logger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		ctx := logging.IntoContext(r.Context(), reqLogger)

		if strings.HasPrefix(r.URL.Path, "/ws/") {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		reqLogger.Debug().Int("status", rec.status).Dur("duration", time.Since(start)).Msg("request served")
	})
}
