package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/errs"
)

// StatusInsufficientStorage answers CapacityExceeded: the report number space is exhausted.
const StatusInsufficientStorage = http.StatusInsufficientStorage

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind errs.Kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind.String()})
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(err error) (int, errs.Kind) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, errs.KindInternal
	}
	kind := errs.KindOf(err)
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest, kind
	case errs.KindNotFound:
		return http.StatusNotFound, kind
	case errs.KindConflict:
		return http.StatusConflict, kind
	case errs.KindForbidden:
		return http.StatusForbidden, kind
	case errs.KindUnauthorized:
		return http.StatusUnauthorized, kind
	case errs.KindCapacity:
		return StatusInsufficientStorage, kind
	default:
		return http.StatusInternalServerError, errs.KindInternal
	}
}

// respondError writes err to the client. Internal failures are logged and
// answered with a generic message.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logging.Error(ctx, "request failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, status, kind, "internal error")
	case http.StatusGatewayTimeout:
		logging.Warn(ctx, "request timed out", slog.Any("err", errs.Loggable(err)))
		writeError(w, status, kind, "action timed out")
	default:
		writeError(w, status, kind, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errs.Newf(errs.KindValidation, "invalid request body: %v", err)
	}
	return nil
}
