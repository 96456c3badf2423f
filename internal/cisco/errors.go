package cisco

import (
	"github.com/pkg/errors"
)

var (
	// ErrCredentials is returned when the client-credential pair is not configured.
	ErrCredentials = errors.New("support API credentials not configured")

	// ErrAuth is returned when the OAuth2 token exchange fails.
	ErrAuth = errors.New("support API authentication failed")

	// ErrTransport is returned on network errors and request timeouts.
	ErrTransport = errors.New("support API request failed")

	// ErrUpstream is returned when a data endpoint responds with a non-2xx status
	// or a body that cannot be decoded.
	ErrUpstream = errors.New("support API returned an error response")

	// ErrNoSerials is returned by the bulk coverage lookup for an empty serial list.
	ErrNoSerials = errors.New("no serial numbers provided")
)

// errorKind classifies an error for the request error metric.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "upstream"
	}
}
