package services

import "errors"

var (
	ErrApplicationNotFound     = errors.New("application not found")
	ErrApplicationLimitReached = errors.New("you can only create one application")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidInput            = errors.New("invalid input")
)
