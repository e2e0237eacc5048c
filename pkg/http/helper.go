package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"rentmate/pkg/config"
	apperrors "rentmate/pkg/errors"
)

// ExtractStepLimit reads the 1-based step and the page size from the query.
// step is clamped to >= 1 and limit into [1, maxLimit].
func ExtractStepLimit(r *http.Request, defaultLimit, maxLimit int) (int, int, error) {
	query := r.URL.Query()

	step, err := QueryInt(query.Get("step"), "step", 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err := QueryInt(query.Get("limit"), "limit", 0)
	if err != nil {
		return 0, 0, err
	}

	return config.NormalizeStep(step), config.NormalizeLimit(limit, defaultLimit, maxLimit), nil
}

// QueryInt parses an optional integer query parameter.
func QueryInt(raw, name string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid " + name + " parameter: " + raw)
	}
	return v, nil
}

// QueryOptionalInt is QueryInt for parameters whose absence must stay visible.
func QueryOptionalInt(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := QueryInt(raw, name, 0)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DecodeJSON decodes the request body into dst. An empty body is allowed when
// allowEmpty is set.
func DecodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return apperrors.InvalidInput("Invalid request body")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.InvalidInput("Invalid request body")
	}
	return nil
}
