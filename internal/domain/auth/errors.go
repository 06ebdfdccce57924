package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidReferral    = errors.New("unknown referral code")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInternal           = errors.New("internal auth error")
)
