package model

import "errors"

var (
	// ErrInvalidCredentials is returned when the credential endpoint rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenExpired is returned when the access token expiry is detected
	// locally, before any network round-trip.
	ErrTokenExpired = errors.New("access token expired")
	// ErrRefreshFailed is returned when the backend rejects a refresh token.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrUnauthorized is returned for a residual 401 after the single retry.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStreamClosed is returned when the event stream terminated.
	ErrStreamClosed = errors.New("event stream closed")
)
