package employee

import "errors"

var (
	ErrInvalidID                 = errors.New("employee: invalid id")
	ErrInvalidEmployeeCode       = errors.New("employee: invalid employee code")
	ErrInvalidName               = errors.New("employee: invalid name")
	ErrInvalidEmail              = errors.New("employee: invalid email")
	ErrInvalidStatus             = errors.New("employee: invalid status")
	ErrInvalidDateRange          = errors.New("employee: invalid employment period")
	ErrEmployeeNotFound          = errors.New("employee: not found")
	ErrEmployeeCodeAlreadyExists = errors.New("employee: employee code already exists")
)
