package archive

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaArchiver(t *testing.T) {
	t.Run("archive never blocks the caller", func(t *testing.T) {
		// Unroutable broker: the write fails inside the background goroutine
		// and is logged there, while Archive itself returns immediately.
		a := NewKafkaArchiver([]string{"127.0.0.1:1"}, "raw-hazard-payloads", slog.Default())
		defer a.Close() //nolint:errcheck

		done := make(chan struct{})
		go func() {
			a.Archive(context.Background(), "usgs", "run-1", []byte(`{"features":[]}`))
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Archive blocked on an unreachable broker")
		}
	})

	t.Run("writer is configured for the archive topic", func(t *testing.T) {
		a := NewKafkaArchiver([]string{"broker-1:9092", "broker-2:9092"}, "raw-hazard-payloads", slog.Default())

		assert.Equal(t, "raw-hazard-payloads", a.writer.Topic)
		require.NoError(t, a.Close())
	})
}
