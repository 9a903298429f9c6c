package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/errs"
	"rncflow/internal/ports"
)

type identityKey struct{}

func withIdentity(ctx context.Context, identity ports.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func identityFrom(ctx context.Context) (ports.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(ports.Identity)
	return identity, ok
}

// bearerToken returns the credential from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// requestContext attaches the base logger and request attributes to every request.
func (h *Handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.baseCtx != nil {
			ctx = logging.WithLogger(ctx, logging.Logger(h.baseCtx))
			ctx = logging.WithAttrs(ctx, logging.Attrs(h.baseCtx)...)
		}
		ctx = logging.WithAttrs(
			ctx,
			slog.String("component", "transport.http"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// observe records the request latency by route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if h.metrics != nil {
			h.metrics.HTTPRequestTimes.
				WithLabelValues(r.Method, route, strconv.Itoa(status)).
				Observe(elapsed.Seconds())
		}
		logging.Debug(r.Context(), "request served",
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("elapsed", elapsed),
		)
	})
}

// authenticate rejects requests without a valid bearer token and stores the
// verified identity in the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := bearerToken(r)
		if credential == "" {
			writeError(w, http.StatusUnauthorized, errs.KindUnauthorized, "missing bearer token")
			return
		}
		identity, err := h.auth.Verify(r.Context(), credential)
		if err != nil {
			respondError(r.Context(), w, err)
			return
		}

		ctx := withIdentity(r.Context(), identity)
		ctx = logging.WithAttrs(ctx, slog.Uint64("user_id", identity.UserID), slog.String("role", string(identity.Role)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
