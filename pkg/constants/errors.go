package constants

import "errors"

// Errors
var (
	InvalidResponse   = errors.New("invalid SurrealDB response") //nolint:stylecheck
	ErrQuery          = errors.New("error occurred processing the SurrealDB query")
	ErrTooManyResults = errors.New("expected a single record but the query returned several")
	ErrDecode         = errors.New("error decoding the SurrealDB response")
	ErrInvalidVersion = errors.New("invalid SurrealDB version string")
)

var (
	ErrConnection         = errors.New("error connecting to SurrealDB")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrInvalidParams      = errors.New("invalid parameters for method")
	ErrIDInUse            = errors.New("id already in use")
	ErrTimeout            = errors.New("timeout")
	ErrNoBaseURL          = errors.New("base url not set")
	ErrNoMarshaler        = errors.New("marshaler is not set")
	ErrNoUnmarshaler      = errors.New("unmarshaler is not set")
	ErrNoNamespaceOrDB    = errors.New("namespace or database or both are not set")
	ErrMethodNotAvailable = errors.New("method not available on this connection")
	ErrUnsupportedScheme  = errors.New("unsupported connection scheme")
)
