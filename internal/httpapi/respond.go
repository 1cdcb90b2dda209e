package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DoyleJ11/loto-backend/internal/apperr"
	pub "github.com/DoyleJ11/loto-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HostHeader carries the caller identity established by the identity layer in front of us.
const HostHeader = "X-Host-ID"

var errUnauthenticated = apperr.New(apperr.KindForbidden, "UNAUTHORIZED", "missing or invalid "+HostHeader+" header")

func hostID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.Header.Get(HostHeader))
	if err != nil {
		return uuid.Nil, errUnauthenticated
	}
	return id, nil
}

func statusFor(err error) int {
	// Shares its code with ErrNotHost, so match the value itself.
	var e *apperr.Error
	if errors.As(err, &e) && e == errUnauthenticated {
		return http.StatusUnauthorized
	}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindIllegalState:
		return http.StatusConflict
	case apperr.KindTerminal:
		return http.StatusGone
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, pub.Error{Error: apperr.CodeOf(err), Message: apperr.MessageOf(err)})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.ErrInvalidInput.WithMessage("request body must be valid JSON")
	}
	return nil
}
