package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"esuvi/internal/chat"
	"esuvi/internal/core"
	"esuvi/internal/identity"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse maps err to its status and user-facing message.
func ErrorResponse(err error) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusFor(err)).
		Body(errorBody{Error: userMessage(err)})
}

// MessageResponse creates an error response with a fixed message.
func MessageResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrInvalidRecord),
		errors.Is(err, core.ErrTypeMismatch),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrEmptyUserID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrPersistenceFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrCompletionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrEmptyUserID):
		return err.Error()
	case errors.Is(err, chat.ErrCompletionFailed):
		return "The assistant is unavailable. Please try again."
	case statusFor(err) == http.StatusInternalServerError:
		return "Internal error."
	default:
		return core.UserMessage(err)
	}
}
