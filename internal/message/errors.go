package message

import "errors"

var (
	ErrJSONUnmarshalFailed = errors.New("failed to unmarshal JSON message")
	ErrInvalidTimestamp    = errors.New("invalid timestamp")
	ErrMissingEntityID     = errors.New("state object has no entity_id")
)
