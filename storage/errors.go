package storage

import "errors"

var (
	// ErrNoOutputPaths is returned when a materializer has nowhere to write
	ErrNoOutputPaths = errors.New("no output paths configured")

	// ErrInvalidSnapshot is returned when a materialized file cannot be decoded
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
