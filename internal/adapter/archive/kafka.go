// Package archive ships raw provider payloads to a Kafka topic for offline
// replay and debugging. Archival is fire-and-forget: a failed write is
// logged and dropped, never blocking ingestion.
package archive

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// writeTimeout bounds each archive write independently of the ingestion
// run's context, so a slow broker cannot stall a run.
const writeTimeout = 10 * time.Second

// KafkaArchiver publishes raw feed payloads to an archive topic.
type KafkaArchiver struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewKafkaArchiver creates a producer for the archive topic.
func NewKafkaArchiver(brokers []string, topic string, logger *slog.Logger) *KafkaArchiver {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}
	return &KafkaArchiver{writer: w, logger: logger}
}

// Archive publishes one raw payload asynchronously. Errors are logged, never
// returned: the archive is a best-effort sink.
func (a *KafkaArchiver) Archive(_ context.Context, source, runID string, payload []byte) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		msg := kafkago.Message{
			Key:   []byte(source),
			Value: payload,
			Headers: []kafkago.Header{
				{Key: "source", Value: []byte(source)},
				{Key: "run_id", Value: []byte(runID)},
			},
		}
		if err := a.writer.WriteMessages(ctx, msg); err != nil {
			a.logger.Warn("raw payload archive failed", "source", source, "run_id", runID, "error", err)
		}
	}()
}

func (a *KafkaArchiver) Close() error {
	return a.writer.Close()
}
