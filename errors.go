package authstate

import "errors"

var (
	// ErrStoreRequired is returned by [Builder.Build] when no persistence
	// adapter was supplied.
	ErrStoreRequired = errors.New("store required")
	// ErrBuilderUsed is returned when a [Builder] is built twice.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrClosed is returned by [Manager] operations after Close.
	ErrClosed = errors.New("session manager closed")
	// ErrEmptyToken is returned by [Manager.Login] for an empty token string.
	ErrEmptyToken = errors.New("empty token")
)
