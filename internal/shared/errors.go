package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Credential errors, fatal for the single operation that hit them
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrNoLinkedAccount = fmt.Errorf("user has no linked spotify account")
	ErrNoAccessToken   = fmt.Errorf("could not get any access token")
	ErrRefreshFailed   = fmt.Errorf("token refresh failed")

	// API and service errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrSearchFailed     = fmt.Errorf("track search failed")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// ErrTimeout indicates an operation exceeded its deadline
	ErrTimeout = fmt.Errorf("operation timed out")
)
