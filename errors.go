package main

import "errors"

var (
	// ErrNoCredentials is returned when the credentials file is missing or unreadable
	ErrNoCredentials = errors.New("no Claude Code credentials found")

	// ErrTokenExpired is returned when the stored OAuth token is past its expiry
	ErrTokenExpired = errors.New("OAuth token expired, open Claude Code to refresh it")

	// ErrAuthRejected is returned when the usage endpoint rejects the token (401/403)
	ErrAuthRejected = errors.New("usage endpoint rejected token")

	// ErrUnavailable is returned for transient failures: 5xx, network errors, timeouts
	ErrUnavailable = errors.New("usage endpoint unavailable")

	// ErrBadResponse is returned when the response decodes to nothing recognizable
	ErrBadResponse = errors.New("unexpected usage response shape")

	// ErrCacheEmpty is returned when no snapshot has ever been written
	ErrCacheEmpty = errors.New("no cached usage snapshot")

	// ErrCacheCorrupt is returned when the cache file exists but fails to parse
	ErrCacheCorrupt = errors.New("cached usage snapshot unreadable")
)
