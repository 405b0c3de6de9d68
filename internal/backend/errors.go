package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSessionExpired is returned for any call the backend rejected because the
// session token is missing, invalid or expired. By the time a caller sees it the
// session has already been cleared and a login redirect requested.
var ErrSessionExpired = errors.New("session expired")

// User-facing fallbacks
const (
	GenericMessage = "Something went wrong. Please try again."
	NetworkMessage = "We could not reach the payments service. Check your connection and try again."
)

// Error is a non-2xx backend response carrying a problem-detail body
type Error struct {
	Status  int    `json:"-"`
	Type    string `json:"type,omitempty"`
	Title   string `json:"title,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
	Err     string `json:"error,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.UserMessage())
}

// UserMessage picks the most specific human-readable text the backend sent
func (e *Error) UserMessage() string {
	for _, s := range []string{e.Detail, e.Title, e.Message, e.Err} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return GenericMessage
}

// TransportError wraps a failure to get any response from the backend
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message extracts a message suitable for showing to the user
func Message(err error) string {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.UserMessage()
	}
	var te *TransportError
	if errors.As(err, &te) {
		return NetworkMessage
	}
	if errors.Is(err, ErrSessionExpired) {
		return "Your session has expired. Please sign in again."
	}
	return GenericMessage
}
