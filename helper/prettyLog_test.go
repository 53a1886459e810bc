package helper

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPrettyHandler(t *testing.T) {
	t.Run("Create PrettyHandler with default options", func(t *testing.T) {
		var buf bytes.Buffer
		opts := PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{},
		}

		handler := NewPrettyHandler(&buf, opts)

		assert.NotNil(t, handler, "Expected NewPrettyHandler to return a non-nil handler")
		assert.NotNil(t, handler.Handler, "Expected handler to have a non-nil Handler field")
		assert.NotNil(t, handler.l, "Expected handler to have a non-nil logger field")
	})
}

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	newHandler := func(level slog.Level) (*PrettyHandler, *bytes.Buffer) {
		var buf bytes.Buffer
		opts := PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{Level: level},
		}
		return NewPrettyHandler(&buf, opts), &buf
	}

	t.Run("Handle DEBUG level log", func(t *testing.T) {
		handler, buf := newHandler(slog.LevelDebug)

		record := slog.NewRecord(time.Now(), slog.LevelDebug, "debug message", 0)
		record.AddAttrs(slog.String("key", "value"))

		err := handler.Handle(ctx, record)

		assert.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "DEBUG:", "Expected output to contain DEBUG level")
		assert.Contains(t, output, "debug message")
		assert.Contains(t, output, "key")
		assert.Contains(t, output, "value")
	})

	t.Run("Handle INFO level log", func(t *testing.T) {
		handler, buf := newHandler(slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "info message", 0)
		record.AddAttrs(slog.Int("num_chunks", 42))

		err := handler.Handle(ctx, record)

		assert.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "INFO:", "Expected output to contain INFO level")
		assert.Contains(t, output, "info message")
		assert.Contains(t, output, "num_chunks")
		assert.Contains(t, output, "42")
	})

	t.Run("Handle WARN level log", func(t *testing.T) {
		handler, buf := newHandler(slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelWarn, "warning message", 0)
		record.AddAttrs(slog.Bool("flag", true))

		err := handler.Handle(ctx, record)

		assert.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "WARN:", "Expected output to contain WARN level")
		assert.Contains(t, output, "warning message")
	})

	t.Run("Handle ERROR level log", func(t *testing.T) {
		handler, buf := newHandler(slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelError, "error message", 0)
		record.AddAttrs(slog.String("error", "something went wrong"))

		err := handler.Handle(ctx, record)

		assert.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "ERROR:", "Expected output to contain ERROR level")
		assert.Contains(t, output, "something went wrong")
	})

	t.Run("Handle log with no attributes", func(t *testing.T) {
		handler, buf := newHandler(slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "simple message", 0)

		err := handler.Handle(ctx, record)

		assert.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "simple message")
		assert.Contains(t, output, "{}", "Expected output to contain empty JSON object for attributes")
	})

	t.Run("Handle log formats timestamp correctly", func(t *testing.T) {
		handler, buf := newHandler(slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "time test", 0)

		err := handler.Handle(ctx, record)

		assert.NoError(t, err)
		// Timestamp should be in format [15:04:05.000]
		assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, buf.String(),
			"Expected output to contain properly formatted timestamp")
	})
}
