package config

import "errors"

var (
	ErrReadingConfigFile      = errors.New("failed to read config file")
	ErrUnmarshallingConfig    = errors.New("failed to unmarshal config")
	ErrConfigFileMissing      = errors.New("config file not found")
	ErrEmptyHistoryURL        = errors.New("history baseURL cannot be empty")
	ErrInvalidRefreshInterval = errors.New("refresh interval must be positive")
	ErrInvalidConcurrency     = errors.New("refresh concurrency must be positive")
	ErrInvalidCacheBackend    = errors.New("cache backend must be memory or disk")
	ErrEmptyKafkaTopic        = errors.New("kafka topic cannot be empty when brokers are set")
	ErrNoSeries               = errors.New("at least one series must be configured")
	ErrInvalidSeries          = errors.New("invalid series configuration")
	ErrInvalidDuration        = errors.New("invalid bucket duration")
)
