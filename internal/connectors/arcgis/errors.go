package arcgis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

// ArcGIS-specific errors.
var (
	// ErrMissingJob indicates an export response without job identifiers.
	ErrMissingJob = errors.New("arcgis: export response missing job or export item ID")

	// ErrDeleteRejected indicates the portal answered a delete with success=false.
	ErrDeleteRejected = errors.New("arcgis: item delete rejected")

	// ErrNoToken indicates generateToken returned an empty token.
	ErrNoToken = errors.New("arcgis: no token in response")
)

// messageCodeItemNotFound is returned for unknown or inaccessible item IDs.
const messageCodeItemNotFound = "CONT_0001"

// APIError represents an ArcGIS REST error.
// The REST API usually reports errors with HTTP 200 and an error envelope, so
// StatusCode (HTTP) and Code (envelope) are tracked separately.
type APIError struct {
	StatusCode  int
	Code        int
	MessageCode string
	Message     string
	Details     []string
	URL         string
}

func (e *APIError) Error() string {
	code := e.Code
	if code == 0 {
		code = e.StatusCode
	}
	msg := e.Message
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return fmt.Sprintf("arcgis: API error %d: %s (URL: %s)", code, msg, e.URL)
}

// RateLimitError represents an HTTP 429 response with its reset time.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("arcgis: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// IsNotFound checks if the error indicates an item was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == 404 || apiErr.StatusCode == 404 || apiErr.MessageCode == messageCodeItemNotFound {
		return true
	}
	return apiErr.Code == 400 &&
		strings.Contains(strings.ToLower(apiErr.Message), "does not exist or is inaccessible")
}

// IsUnauthorized checks if the error indicates an invalid or missing token.
// 498 and 499 are the ArcGIS invalid-token and token-required codes.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401, apiErr.Code == 498, apiErr.Code == 499:
			return true
		case apiErr.StatusCode == 401:
			return true
		}
	}
	return false
}

// IsForbidden checks if the error indicates a forbidden resource.
func IsForbidden(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 403 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// toDomain wraps err with the matching domain sentinel so services can
// classify it without importing this package.
func toDomain(err error) error {
	switch {
	case err == nil:
		return nil
	case IsRateLimited(err):
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case IsUnauthorized(err):
		return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
	case IsNotFound(err), IsForbidden(err):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	default:
		return err
	}
}
