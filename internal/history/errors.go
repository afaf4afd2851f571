package history

import "errors"

var (
	ErrInvalidBaseURL   = errors.New("invalid history base URL")
	ErrHistoryRequest   = errors.New("history request failed")
	ErrUnexpectedStatus = errors.New("unexpected status from history API")
	ErrDecodeResponse   = errors.New("failed to decode history response")
)
