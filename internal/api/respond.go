package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"groupledger/internal/auth"
	"groupledger/internal/ledger"
	"groupledger/internal/service"
	"groupledger/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respond writes v as a JSON response with the given status.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError maps domain errors onto HTTP statuses: validation
// failures are 400, illegal state transitions 409, missing records 404,
// store timeouts 503 (retriable), permission problems 401/403.
func respondError(w http.ResponseWriter, err error) {
	var verr *ledger.ValidationError
	var serr *ledger.InvalidStateError
	switch {
	case errors.As(err, &verr):
		respond(w, http.StatusBadRequest, errorBody{Error: verr.Reason, Code: string(verr.Code)})
	case errors.As(err, &serr):
		respond(w, http.StatusConflict, errorBody{Error: serr.Reason, Code: string(serr.Code)})
	case errors.Is(err, service.ErrSplitRequired), errors.Is(err, auth.ErrWeakPassword):
		respond(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, ledger.ErrAllocationNotFound), errors.Is(err, storage.ErrNotFound):
		respond(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrAlreadyMember), errors.Is(err, auth.ErrEmailExists):
		respond(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrNotGroupMember), errors.Is(err, service.ErrPermissionDenied):
		respond(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		respond(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, storage.ErrTimeout):
		respond(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		slog.Error("internal error", "error", err)
		respond(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decode parses the request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, reason string) {
	respond(w, http.StatusBadRequest, errorBody{Error: reason})
}
