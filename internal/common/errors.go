package common

import "errors"

var (
	// Local validation errors, returned before any network call.
	ErrInvalidToken  = errors.New("token is empty or too short")
	ErrEmptyPrompt   = errors.New("positive prompt is required")
	ErrInvalidIndex  = errors.New("invalid prompt index")
	ErrInvalidTarget = errors.New("reserved instance target must be 0 or 1")
)
