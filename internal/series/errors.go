package series

import "errors"

var (
	ErrUnknownFunc        = errors.New("unknown aggregation function")
	ErrUnknownFill        = errors.New("unknown fill policy")
	ErrInvalidBucketSize  = errors.New("bucket duration must be at least one millisecond")
	ErrInvalidHoursToShow = errors.New("hoursToShow must be positive")
	ErrEmptyEntityID      = errors.New("entity id cannot be empty")
	ErrMalformedPoint     = errors.New("malformed point")
)
