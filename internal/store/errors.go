package store

import "errors"

var (
	ErrCorruptEntry   = errors.New("corrupt cache entry")
	ErrEncodeFailed   = errors.New("failed to encode cache entry")
	ErrBackendFailed  = errors.New("cache backend operation failed")
	ErrUnknownBackend = errors.New("unknown cache backend")
)
