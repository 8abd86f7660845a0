package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/narrative-engine/pkg/engine"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeResult writes an engine result with the status its code maps to
func writeResult(w http.ResponseWriter, logger *slog.Logger, res *engine.Result) {
	writeJSON(w, logger, statusFor(res), res)
}

func statusFor(res *engine.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Code {
	case engine.CodeInvalidRequest, engine.CodeInvalidChoiceIndex:
		return http.StatusBadRequest
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeNoActiveChapter, engine.CodeNoChoicesAvailable, engine.CodeNotEligible, engine.CodeNotTriggered:
		return http.StatusConflict
	case engine.CodeInvalidChoice:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
