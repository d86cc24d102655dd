package errors

import "errors"

var (
	ErrValidation   = errors.New("order event input is invalid")
	ErrUnknownType  = errors.New("event_type is not recognised")
	ErrNotFound     = errors.New("order event not found")
	ErrAlreadyDone  = errors.New("order event is already done")
	ErrStorage      = errors.New("order storage operation failed")
	ErrDepthExceeded = errors.New("request body exceeds the allowed JSON nesting depth")
)
