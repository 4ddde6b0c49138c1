package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors mapped from API error codes. Use errors.Is() to check.
var (
	ErrBadRequest   = errors.New("propsearch: bad request")
	ErrEmptyQuery   = errors.New("propsearch: empty query")
	ErrUnauthorized = errors.New("propsearch: unauthorized")
	ErrEngine       = errors.New("propsearch: search engine unavailable")
)

// APIError carries the raw code and message from a failed response. It wraps
// the matching sentinel so callers can branch with errors.Is.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("propsearch: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the error code onto a sentinel.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	switch e.Code {
	case "empty_query":
		return ErrEmptyQuery
	case "engine_error":
		return ErrEngine
	case "bad_request":
		return ErrBadRequest
	default:
		return nil
	}
}

func errorFromResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: "unknown"}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	return apiErr
}
