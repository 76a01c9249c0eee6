package dataapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 * 1024

// APIError is returned for every non-2xx response from the data API.
// Message holds the server's error text when one could be extracted.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed (%d)", e.Status)
}

// ServerMessage returns the error text sent by the server for err, or ""
// when err is not an APIError or the body carried no usable message.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsNotFound reports whether err is a 404 from the data API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}

// parseErrorBody extracts a human-readable message from an error body.
// JSON bodies contribute their "error" (or "message") field; plain text is
// used as-is. HTML error pages are ignored.
func parseErrorBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	if strings.HasPrefix(text, "{") {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if payload.Error != "" {
				return payload.Error
			}
			return payload.Message
		}
		return ""
	}

	if strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

// IsSuccessStatus returns true if status code is 2xx
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
