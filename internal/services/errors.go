package services

import "errors"

var (
	// ErrUserNotFound is returned when the profile store has no such user.
	ErrUserNotFound = errors.New("user not found")
	// ErrUpstreamUnavailable marks failures of the profile or candidate store.
	ErrUpstreamUnavailable = errors.New("upstream data unavailable")
	ErrInvalidRequest      = errors.New("invalid recommendation request")
	ErrSnapshotUnavailable = errors.New("similarity snapshot unavailable")
)
