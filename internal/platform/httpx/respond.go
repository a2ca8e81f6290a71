// Package httpx provides the JSON envelope shared by every endpoint.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 1 << 20

// Envelope wraps every response payload.
type Envelope struct {
	RequestID string  `json:"requestId"`
	Data      any     `json:"data"`
	Message   *string `json:"message"`
	Success   bool    `json:"success"`
}

// RequestID returns the id assigned to r by the request id middleware,
// generating one when the middleware did not run.
func RequestID(r *http.Request) string {
	if r != nil {
		if id := middleware.GetReqID(r.Context()); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK writes a successful envelope. An empty message is encoded as null.
func OK(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	JSON(w, status, Envelope{
		RequestID: RequestID(r),
		Data:      data,
		Message:   optional(message),
		Success:   true,
	})
}

// Fail writes a failed envelope with a null data field.
func Fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, status, Envelope{
		RequestID: RequestID(r),
		Message:   optional(message),
		Success:   false,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("httpx: decode body: %w", err)
	}
	return nil
}

// ErrEmptyBody indicates a request without a JSON document.
var ErrEmptyBody = errors.New("httpx: empty body")

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
