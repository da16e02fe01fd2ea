package domain

import "errors"

var (
	// ErrAuth is returned when the login form is missing or credentials are rejected.
	ErrAuth = errors.New("authentication failed")
	// ErrDiscovery is returned when no catalog entries could be discovered.
	ErrDiscovery = errors.New("catalog discovery failed")
	// ErrMetadata marks a course whose metadata is unusable.
	ErrMetadata = errors.New("invalid course metadata")
	// ErrTransport marks a request that failed at the transport level.
	ErrTransport = errors.New("transport error")
	// ErrPersistence is returned when progress cannot be stored durably.
	ErrPersistence = errors.New("progress persistence failed")
	// ErrNoCandidates is returned when a clip has no media location.
	ErrNoCandidates = errors.New("no media candidates")
	// ErrInvalidQuery is returned when a media query parameter is rejected.
	ErrInvalidQuery = errors.New("invalid query parameter")
)

// ErrUnknownEntry is returned when marking an identifier that is not pending.
var ErrUnknownEntry = errors.New("entry not pending")
