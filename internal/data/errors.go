package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrPasswordHashRequired = errors.New("password hash is required")
	ErrSeriesRequired       = errors.New("series is required")
)
