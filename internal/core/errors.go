package core

import "errors"

// Outcomes reported to the UI layer. Each maps to its own message because
// the corrective action differs.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrTypeMismatch      = errors.New("type mismatch")
)

// UserMessage returns the message shown to the user for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "Please sign in to continue."
	case errors.Is(err, ErrInvalidRecord):
		return "The entry is not valid: " + detail(err)
	case errors.Is(err, ErrPersistenceFailed):
		return "Could not save your data. Please try again."
	case errors.Is(err, ErrNotFound):
		return "The requested setting does not exist."
	case errors.Is(err, ErrTypeMismatch):
		return "The value has the wrong type for this setting."
	default:
		return "Unexpected error: " + err.Error()
	}
}

// detail strips the wrapping sentinel prefix, leaving the field problem.
func detail(err error) string {
	msg := err.Error()
	prefix := ErrInvalidRecord.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
