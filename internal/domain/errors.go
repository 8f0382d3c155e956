package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrDataAccess = errors.New("data access error")
)
