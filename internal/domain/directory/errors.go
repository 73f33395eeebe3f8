package directory

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrDuplicateEmail   = errors.New("employee email already exists")
	ErrInvalidEmployee  = errors.New("invalid employee")
)
