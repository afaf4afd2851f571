package publish

import "errors"

var (
	ErrInvalidKafkaConfig = errors.New("invalid Kafka configuration provided")
	ErrEncodeUpdate       = errors.New("failed to encode chart update")
	ErrPublishFailed      = errors.New("failed to publish chart update")
)
