package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("generation not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrNotQueued         = errors.New("generation already started")
	ErrBusy              = errors.New("generation queue is full")
	ErrBatchFailed       = errors.New("batch description failed")
	ErrInvalidTransition = errors.New("invalid generation status transition")
	ErrResultAlreadySet  = errors.New("generation result already set")

	// ErrFatal marks store corruption or broken invariants. A job that hits it ends as failed.
	ErrFatal = errors.New("fatal generation error")
)
