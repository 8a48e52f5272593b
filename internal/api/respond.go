package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"irrigation-gateway/internal/ml"
	"irrigation-gateway/internal/services"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeError maps domain errors to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	var (
		notReady   *ml.ModelNotReadyError
		validation *ml.ValidationError
		typeErr    *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &notReady):
		writeDetail(w, http.StatusServiceUnavailable, notReady.Error())
	case errors.As(err, &validation):
		writeDetail(w, http.StatusUnprocessableEntity, validation.Error())
	case errors.Is(err, ml.ErrEmptyBatch):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		writeDetail(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &typeErr):
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
	default:
		log.Printf("Error handling request: %v", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
