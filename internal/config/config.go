package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"

	"github.com/sanspareilsmyn/historylens/internal/series"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendDisk   = "disk"
)

const (
	defaultHistoryTimeout     = 10 * time.Second
	defaultRequestsPerSecond  = 5.0
	defaultCacheEnabled       = true
	defaultCacheCompress      = false
	defaultCacheBackend       = CacheBackendMemory
	defaultCacheDirectory     = "cache"
	defaultRefreshInterval    = 30 * time.Second
	defaultRefreshConcurrency = 4
	defaultHTTPAddr           = ":8080"
	defaultKafkaTopic         = "chart-updates"
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
	defaultLogFileEnabled     = false
	defaultLogDirectory       = "log"
	defaultLogFilename        = "app.log"
	defaultLogMaxSizeMB       = 100
	defaultLogMaxBackups      = 3
	defaultLogMaxAgeDays      = 7
	defaultLogCompress        = false

	// Per-series defaults, applied after unmarshalling.
	defaultHoursToShow   = 24.0
	defaultGroupFunc     = "avg"
	defaultGroupDuration = "1h"
	defaultGroupFill     = "last"

	// Environment variable prefix
	envPrefix = "HISTORYLENS"
)

type Config struct {
	History HistoryConfig  `mapstructure:"history"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Refresh RefreshConfig  `mapstructure:"refresh"`
	Series  []SeriesConfig `mapstructure:"series"`
	Kafka   KafkaConfig    `mapstructure:"kafka"`
	HTTP    HTTPConfig     `mapstructure:"http"`
	Log     LogConfig      `mapstructure:"log"`
}

type HistoryConfig struct {
	BaseURL           string        `mapstructure:"baseURL"`
	Token             string        `mapstructure:"token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond"` // 0 disables limiting
}

type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Compress  bool          `mapstructure:"compress"`
	Backend   string        `mapstructure:"backend"` // memory | disk
	Directory string        `mapstructure:"directory"`
	MemoryTTL time.Duration `mapstructure:"memoryTTL"` // 0 keeps entries forever
}

type RefreshConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
}

type SeriesConfig struct {
	Entity      string        `mapstructure:"entity"`
	HoursToShow float64       `mapstructure:"hoursToShow"`
	Cache       *bool         `mapstructure:"cache"` // overrides cache.enabled when set
	GroupBy     GroupByConfig `mapstructure:"groupBy"`
}

type GroupByConfig struct {
	Func     string `mapstructure:"func"`     // raw, avg, min, max, first, last, sum, median, delta
	Duration string `mapstructure:"duration"` // e.g. "5m", "1h", "1d"
	Fill     string `mapstructure:"fill"`     // last, zero, null
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"` // empty disables the Kafka sink
	Topic   string   `mapstructure:"topic"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Load initializes viper, reads config, applies defaults, unmarshals, and validates.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	// Set default values before reading config source .yaml
	setDefaults(v)

	// Read configuration from file (error if mandatory file is missing)
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal the configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}
	applySeriesDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults applies default configuration values using Viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("history.timeout", defaultHistoryTimeout)
	v.SetDefault("history.requestsPerSecond", defaultRequestsPerSecond)
	v.SetDefault("cache.enabled", defaultCacheEnabled)
	v.SetDefault("cache.compress", defaultCacheCompress)
	v.SetDefault("cache.backend", defaultCacheBackend)
	v.SetDefault("cache.directory", defaultCacheDirectory)
	v.SetDefault("refresh.interval", defaultRefreshInterval)
	v.SetDefault("refresh.concurrency", defaultRefreshConcurrency)
	v.SetDefault("kafka.topic", defaultKafkaTopic)
	v.SetDefault("http.addr", defaultHTTPAddr)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// applySeriesDefaults fills unset per-series fields; viper defaults do not reach into lists.
func applySeriesDefaults(cfg *Config) {
	for i := range cfg.Series {
		s := &cfg.Series[i]
		if s.HoursToShow == 0 {
			s.HoursToShow = defaultHoursToShow
		}
		if s.GroupBy.Func == "" {
			s.GroupBy.Func = defaultGroupFunc
		}
		if s.GroupBy.Duration == "" {
			s.GroupBy.Duration = defaultGroupDuration
		}
		if s.GroupBy.Fill == "" {
			s.GroupBy.Fill = defaultGroupFill
		}
	}
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, fs.ErrNotExist) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.History.BaseURL == "" {
		return ErrEmptyHistoryURL
	}
	if cfg.Refresh.Interval <= 0 {
		return ErrInvalidRefreshInterval
	}
	if cfg.Refresh.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	switch cfg.Cache.Backend {
	case CacheBackendMemory, CacheBackendDisk:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCacheBackend, cfg.Cache.Backend)
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return ErrEmptyKafkaTopic
	}
	if len(cfg.Series) == 0 {
		return ErrNoSeries
	}
	for i, s := range cfg.Series {
		if _, err := s.Options(i, cfg.Cache.Enabled); err != nil {
			return fmt.Errorf("%w: series[%d] %q: %w", ErrInvalidSeries, i, s.Entity, err)
		}
	}
	return nil
}

// Options resolves the series configuration at position index. cacheDefault
// applies when the series does not set its own cache flag.
func (s SeriesConfig) Options(index int, cacheDefault bool) (series.Options, error) {
	fn, err := series.ParseFunc(s.GroupBy.Func)
	if err != nil {
		return series.Options{}, err
	}
	fill, err := series.ParseFillPolicy(s.GroupBy.Fill)
	if err != nil {
		return series.Options{}, err
	}
	var bucket time.Duration
	if fn != series.FuncRaw {
		if bucket, err = ParseDuration(s.GroupBy.Duration); err != nil {
			return series.Options{}, err
		}
	}
	if s.Entity == "" {
		return series.Options{}, series.ErrEmptyEntityID
	}
	if s.HoursToShow <= 0 {
		return series.Options{}, series.ErrInvalidHoursToShow
	}
	cache := cacheDefault
	if s.Cache != nil {
		cache = *s.Cache
	}
	return series.Options{
		EntityID:    s.Entity,
		Index:       index,
		HoursToShow: s.HoursToShow,
		Cache:       cache,
		Func:        fn,
		BucketSize:  bucket,
		Fill:        fill,
	}, nil
}

// ParseDuration parses a bucket duration such as "90s", "5m", "1h30m" or "1d".
// The result must be at least one millisecond.
func ParseDuration(s string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidDuration, s, err)
	}
	if d < time.Millisecond {
		return 0, fmt.Errorf("%w: %q is shorter than 1ms", ErrInvalidDuration, s)
	}
	return d, nil
}
