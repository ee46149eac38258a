package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the events backend. The body is
// kept verbatim so pages can surface the backend's message as-is.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.Status, e.Body)
	}
	return fmt.Sprintf("backend %s: status %d", e.Endpoint, e.Status)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
