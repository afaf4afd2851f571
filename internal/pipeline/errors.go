package pipeline

import "errors"

var (
	ErrHistoryClientFailed    = errors.New("failed to create history client")
	ErrStoreCreationFailed    = errors.New("failed to create cache store")
	ErrSinkCreationFailed     = errors.New("failed to create chart update sink")
	ErrControllerCreateFailed = errors.New("failed to create series controller")
	ErrRefresherRunFailed     = errors.New("refresher component failed")
	ErrEmitterRunFailed       = errors.New("emitter component failed")
	ErrServerRunFailed        = errors.New("HTTP API component failed")
)
