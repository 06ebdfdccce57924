package user

import "errors"

var (
	// ErrNotFound is returned when the user does not exist
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when the email is already registered
	ErrEmailTaken = errors.New("email already registered")
)
