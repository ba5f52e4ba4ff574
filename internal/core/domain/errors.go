package domain

import "errors"

var (
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrInvalidContent   = errors.New("message must carry a body or a media reference")
	ErrAlreadyLive      = errors.New("stream already live")
	ErrNotLive          = errors.New("stream is not live")
	ErrRateLimited      = errors.New("commenting too fast")
	ErrIdentityMismatch = errors.New("identity does not match connection")
	ErrStreamNotFound   = errors.New("stream not found")
	ErrStorageFailure   = errors.New("storage failure")
)
