package core

import "errors"

var (
	ErrUnknownDimension = errors.New("unknown dimension")
	// ErrInvalidSelection is returned when a pair grouping does not get exactly two distinct dimensions.
	ErrInvalidSelection = errors.New("select exactly 2 variables")
	ErrUnknownInterval  = errors.New("unknown time bucket interval")
	ErrNoTimestamps     = errors.New("dataset has no timestamp column")
	ErrUnknownVariant   = errors.New("unknown dashboard variant")
)
