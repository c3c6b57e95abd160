package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/bizledger/internal/domain"
)

// envelope is the uniform response shape. Successful responses carry data,
// failures carry a message or a list of field errors.
type envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Message: message})
}

func respondErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}

// respondError maps domain errors onto HTTP statuses: validation failures are
// 400, absent or foreign-tenant entities are 404, bad credentials are 401,
// anything else is a 500 with the detail kept out of the response body.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	w.Header().Set("Content-Type", "application/json")

	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(envelope{Success: false, Errors: verrs.Messages()})
	case domain.IsValidation(err), domain.IsInsufficientStock(err):
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: clientMessage(err)})
	case domain.IsNotFound(err):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: err.Error()})
	case err == domain.ErrUnauthorized:
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: "Unauthorized"})
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: "Internal server error"})
	}
}

// clientMessage strips the field prefix from single validation errors so the
// body reads like a sentence.
func clientMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return err.Error()
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
