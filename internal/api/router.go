package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eugenenazirov/health-alarm/internal/config"
)

const requestIDHeader = "X-Request-ID"

// RouterOption configures the behaviour of NewRouter.
type RouterOption func(*routerConfig)

// WithLogging controls whether access logs are emitted.
func WithLogging(enabled bool) RouterOption {
	return func(cfg *routerConfig) {
		cfg.accessLog = enabled
	}
}

// WithRateLimit gives every client address its own token bucket sized by
// cfg. A disabled cfg removes limiting.
func WithRateLimit(cfg config.RateLimitConfig) RouterOption {
	return func(rc *routerConfig) {
		if !cfg.Enabled() {
			rc.limiter = nil
			return
		}
		rc.limiter = newClientLimiter(cfg.RPS, cfg.Burst, nil)
	}
}

func withLimiter(l admitter) RouterOption {
	return func(rc *routerConfig) {
		rc.limiter = l
	}
}

type routerConfig struct {
	accessLog bool
	logger    *zap.Logger
	limiter   admitter
}

type middleware func(http.Handler) http.Handler

type route struct {
	pattern string
	handler http.HandlerFunc
	// quiet routes are polled by load balancers and log at debug.
	quiet bool
}

func (h *Handler) routes() []route {
	return []route{
		{pattern: "GET /api/health", handler: h.handleHealth, quiet: true},
		{pattern: "GET /api/services", handler: h.handleServices},
		{pattern: "GET /api/findings", handler: h.handleFindings},
	}
}

// NewRouter creates the status API router. Requests pass, outermost first,
// through request ID, CORS, per-client rate limiting, access logging and
// panic recovery. Limiting is off unless WithRateLimit enables it.
func NewRouter(handler *Handler, logger *zap.Logger, opts ...RouterOption) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := routerConfig{
		accessLog: true,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mux := http.NewServeMux()
	quiet := make(map[string]bool)
	for _, rt := range handler.routes() {
		mux.Handle(rt.pattern, rt.handler)
		if rt.quiet {
			_, path, _ := strings.Cut(rt.pattern, " ")
			quiet[path] = true
		}
	}

	var access middleware
	if cfg.accessLog {
		access = accessLog(cfg.logger, quiet)
	}

	return chain(mux,
		assignRequestID,
		allowCORS,
		limitByClient(cfg.limiter),
		access,
		recoverPanics(cfg.logger),
	)
}

// chain wraps h so that the first middleware runs first. Nil entries are skipped.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type,"+requestIDHeader)
		h.Set("Access-Control-Expose-Headers", requestIDHeader+",Retry-After")
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(logger *zap.Logger, quiet map[string]bool) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)

			level := zapcore.InfoLevel
			switch {
			case sw.status >= http.StatusInternalServerError:
				level = zapcore.ErrorLevel
			case quiet[r.URL.Path]:
				level = zapcore.DebugLevel
			}
			logger.Log(level, "request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Int("bytes", sw.written),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestIDFromContext(r.Context())),
				zap.String("client", clientKey(r)),
			)
		})
	}
}

func recoverPanics(logger *zap.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("error", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", requestIDFromContext(r.Context())),
					)
					writeError(w, http.StatusInternalServerError, "Internal error", "unexpected server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func assignRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(contextWithRequestID(r.Context(), id)))
	})
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.written += n
	return n, err
}
