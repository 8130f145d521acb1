package auth

import "errors"

var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrWrongKind    = errors.New("auth: token kind mismatch")
)
