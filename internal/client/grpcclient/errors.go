package grpcclient

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrNotSignedIn  = errors.New("not signed in")
	ErrInvalidInput = errors.New("email and password are required")
)
