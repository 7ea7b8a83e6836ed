package fetch

import "fmt"

// Reason classifies a fetch failure.
type Reason string

const (
	// ReasonTimeout covers connect, read and total-budget timeouts.
	ReasonTimeout Reason = "TIMEOUT"
	// ReasonHTTPError is a non-2xx response.
	ReasonHTTPError Reason = "HTTP_ERROR"
	// ReasonUnsupportedContent is a response that is not HTML.
	ReasonUnsupportedContent Reason = "UNSUPPORTED_CONTENT"
	// ReasonInvalidURL is a URL without scheme or host.
	ReasonInvalidURL Reason = "INVALID_URL"
	// ReasonNetwork is any other transport failure (DNS, refused, reset).
	ReasonNetwork Reason = "NETWORK"
)

// Error represents a failed fetch of one URL.
type Error struct {
	URL         string
	Reason      Reason
	StatusCode  int
	ContentType string
	Attempts    int
	Message     string
	Cause       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fetch error for %s: %s", e.URL, e.Reason)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is eligible for another attempt:
// timeouts and 5xx responses only.
func (e *Error) Retryable() bool {
	switch e.Reason {
	case ReasonTimeout:
		return true
	case ReasonHTTPError:
		return e.StatusCode >= 500
	default:
		return false
	}
}
