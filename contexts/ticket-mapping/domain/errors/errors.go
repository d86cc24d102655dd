package errors

import "errors"

var (
	ErrValidation = errors.New("ticket mapping input is invalid")
	ErrNotFound   = errors.New("ticket mapping not found")
)
