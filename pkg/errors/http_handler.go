package errors

import (
	"encoding/json"
	"net/http"
)

const statusError = "error"

// ErrorResponse is the error half of the {status, msg} envelope.
type ErrorResponse struct {
	Status  string         `json:"status"`
	Msg     string         `json:"msg"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func newErrorResponse(e *AppError) ErrorResponse {
	msg := e.Message
	if e.HTTPStatus >= http.StatusInternalServerError && e.Code == CodeInternal {
		msg = "Internal server error"
	}
	return ErrorResponse{
		Status:  statusError,
		Msg:     msg,
		Code:    e.Code,
		Details: e.Details,
	}
}

// WriteError writes err as an error envelope. Non-AppErrors become 500s.
// The returned error is the encoding failure, if any.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	return json.NewEncoder(w).Encode(newErrorResponse(appErr))
}
