package zia

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error types for admin API responses.
var (
	// ErrAuth indicates the sign-in request was rejected. Sign-in is never
	// retried automatically; the obfuscated key would carry a stale timestamp.
	ErrAuth = errors.New("zia: authentication failed")

	// ErrFetch indicates a non-200 response while paging a collection.
	// Pagination is not resumable mid-fetch, so this aborts the whole run.
	ErrFetch = errors.New("zia: fetch failed")

	// ErrUnauthorised indicates the session token is invalid or expired.
	ErrUnauthorised = errors.New("zia: unauthorised")

	// ErrForbidden indicates the admin account lacks the required role.
	ErrForbidden = errors.New("zia: forbidden")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("zia: not found")

	// ErrRateLimited indicates the request was throttled server-side despite
	// the local call budget.
	ErrRateLimited = errors.New("zia: rate limited")

	// ErrBadRequest indicates the request was malformed.
	ErrBadRequest = errors.New("zia: bad request")

	// ErrServerError indicates a server-side error from the admin API.
	ErrServerError = errors.New("zia: server error")

	// ErrNotLoaded indicates a reference cache was read before its explicit
	// load call.
	ErrNotLoaded = errors.New("zia: reference data not loaded")
)

// WrapError converts an HTTP status code to an appropriate error.
func WrapError(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorised
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if statusCode >= 500 {
			return ErrServerError
		}
		return fmt.Errorf("zia: unexpected status %d", statusCode)
	}
}

// IsRateLimited checks if the status code indicates server-side throttling.
func IsRateLimited(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests
}

// ValidationError reports department or group names that are not present in
// the hosted reference data. It is raised before any mutating call is made.
type ValidationError struct {
	// Kind is the vocabulary that was checked, "department" or "group".
	Kind string
	// Names are the unknown names, in input order.
	Names []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("zia: unknown %s name(s): %s", e.Kind, strings.Join(e.Names, ", "))
}
