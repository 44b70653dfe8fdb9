package model

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrKeyTooShort = errors.New("namespace key too short")
)
