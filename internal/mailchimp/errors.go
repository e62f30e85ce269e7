package mailchimp

import (
	"errors"
	"fmt"
)

// ErrInvalidAPIKey indicates an API key without a data center suffix
var ErrInvalidAPIKey = errors.New("mailchimp api key must end in -<dc>")

// APIError is a non-2xx response from the API, decoded from problem+json when possible
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("mailchimp api error %d: %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("mailchimp api error %d: %s", e.StatusCode, e.Body)
}

// ErrRateLimited is returned after retries on 429 are exhausted
type ErrRateLimited struct {
	RetryAfter int // seconds
}

func (e ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited by mailchimp, retry after %d seconds", e.RetryAfter)
}
