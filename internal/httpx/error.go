package httpx

import (
	"fmt"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body Error() echoes.
const maxErrorBody = 256

// HTTPError represents a non-2xx HTTP response returned by the remote service.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	if body == "" {
		return fmt.Sprintf("http error: status=%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, body)
}

// Retryable reports whether the error should be considered transient.
func (e *HTTPError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		(e.StatusCode >= 500 && e.StatusCode <= 599)
}
