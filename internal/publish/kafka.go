package publish

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/historylens/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type kafkaZapLogger struct {
	log *zap.Logger
}

func (l kafkaZapLogger) Printf(msg string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(msg, args...))
}

type kafkaZapErrorLogger struct {
	log *zap.Logger
}

func (l kafkaZapErrorLogger) Printf(msg string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes chart updates as JSON to a topic, keyed by entity id so
// updates of one entity stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaSink creates a sink writing to cfg.Topic on cfg.Brokers.
func NewKafkaSink(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		logger.Error("Kafka configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
		)
		return nil, ErrInvalidKafkaConfig
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Logger:                 kafkaZapLogger{logger.Named("kafka-writer").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger:            kafkaZapErrorLogger{logger.Named("kafka-writer-error").WithOptions(zap.AddCallerSkip(1))},
	}

	logger.Info("Kafka sink created",
		zap.String("topic", cfg.Topic),
		zap.Strings("brokers", cfg.Brokers),
	)
	return newKafkaSink(w, logger), nil
}

func newKafkaSink(w messageWriter, logger *zap.Logger) *KafkaSink {
	return &KafkaSink{writer: w, logger: logger}
}

func (s *KafkaSink) Publish(ctx context.Context, update ChartUpdate) error {
	value, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeUpdate, err)
	}
	msg := kafka.Message{Key: []byte(update.EntityID), Value: value}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	s.logger.Debug("Chart update published",
		zap.String("entity_id", update.EntityID),
		zap.Int("index", update.Index),
		zap.Int("bytes", len(value)),
	)
	return nil
}

func (s *KafkaSink) Close() error {
	s.logger.Info("Closing Kafka sink writer...")
	return s.writer.Close()
}

// New returns a KafkaSink when brokers are configured and a LogSink otherwise.
func New(cfg config.KafkaConfig, logger *zap.Logger) (Sink, error) {
	if len(cfg.Brokers) == 0 {
		logger.Info("No Kafka brokers configured, chart updates go to the log")
		return NewLogSink(logger), nil
	}
	return NewKafkaSink(cfg, logger)
}
