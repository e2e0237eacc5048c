package http

import (
	"encoding/json"
	"net/http"

	apperrors "rentmate/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is embedded in every success body so callers can rely on the
// status field instead of the HTTP code.
type Envelope struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

func Success(msg string) Envelope {
	return Envelope{Status: StatusSuccess, Msg: msg}
}

type DataResponse struct {
	Envelope
	Data any `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Envelope
	Data  any   `json:"data"`
	Total int64 `json:"total"`
	Step  int   `json:"step"`
	Limit int   `json:"limit"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, err error) error {
	return apperrors.WriteError(w, err)
}

func WriteMessage(w http.ResponseWriter, statusCode int, msg string) error {
	return WriteJSON(w, statusCode, Success(msg))
}

func WriteSuccess(w http.ResponseWriter, msg string, data any) error {
	return WriteJSON(w, http.StatusOK, DataResponse{Envelope: Success(msg), Data: data})
}

func WritePaginated(w http.ResponseWriter, msg string, data any, total int64, step, limit int) error {
	return WriteJSON(w, http.StatusOK, PaginatedResponse{
		Envelope: Success(msg),
		Data:     data,
		Total:    total,
		Step:     step,
		Limit:    limit,
	})
}
