package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/realtime"
)

// serveWS upgrades /ws/rncs?token=... and hands the connection to the hub.
// Credential failures close the socket with policy violation after the upgrade.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, errs.KindInternal, "notification hub unavailable")
		return
	}
	if !h.originAllowed(r) {
		logging.Warn(ctx, "websocket origin rejected", slog.String("origin", r.Header.Get("Origin")))
		writeError(w, http.StatusForbidden, errs.KindForbidden, "origin not allowed")
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		logging.Warn(ctx, "websocket upgrade failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	conn := realtime.NewWSConn(raw)

	identity, err := h.hub.Register(ctx, conn, r.URL.Query().Get("token"))
	if err != nil {
		code, reason := realtime.ClosePolicyViolation, "unauthorized"
		if !errors.Is(err, realtime.ErrUnauthorized) {
			code, reason = realtime.CloseInternalError, "registration failed"
		}
		logging.Warn(ctx, "websocket registration rejected", slog.Any("err", errs.Loggable(err)))
		_ = conn.Close(code, reason)
		return
	}
	defer func() {
		h.hub.Unregister(conn)
		_ = conn.Close(realtime.CloseGoingAway, "bye")
	}()

	ctx = logging.WithAttrs(ctx, slog.Uint64("user_id", identity.UserID), slog.String("role", string(identity.Role)))
	started := time.Now()
	if err := conn.Serve(ctx, h.pingInterval); err != nil {
		logging.Debug(ctx, "websocket read loop ended", slog.Any("err", errs.Loggable(err)))
	}
	logging.Info(ctx, "websocket closed", slog.Duration("duration", time.Since(started)))
}

// originAllowed accepts requests without Origin (non-browser clients) and
// any origin when the allow-list is empty.
func (h *Handler) originAllowed(r *http.Request) bool {
	origin := strings.TrimRight(strings.TrimSpace(r.Header.Get("Origin")), "/")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	_, ok := h.allowedOrigins[strings.ToLower(origin)]
	return ok
}
