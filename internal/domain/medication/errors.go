package medication

import "errors"

var (
	ErrNameRequired    = errors.New("medication name is required")
	ErrIndexOutOfRange = errors.New("medication index out of range")
)
