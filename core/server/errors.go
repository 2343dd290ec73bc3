package server

import "errors"

var (
	// ErrServerAlreadyRunning is returned by Start on a running server.
	ErrServerAlreadyRunning = errors.New("server is already running")

	// ErrMissingAddress is returned when the listen address is empty.
	ErrMissingAddress = errors.New("server address is required")
)
