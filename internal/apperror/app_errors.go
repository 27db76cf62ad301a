package apperror

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptySessionID  = errors.New("session id is empty")
	ErrBadRequest      = errors.New("bad request")
	ErrUnknownAction   = errors.New("unknown action")
)
