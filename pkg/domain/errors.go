package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrTransport    = errors.New("transport failure")
	ErrStorage      = errors.New("storage failure")
)
