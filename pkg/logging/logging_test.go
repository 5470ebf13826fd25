package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logging.ParseLevel(tt.in))
		})
	}
}

func TestNewLoggerFromConfig(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)

	t.Run("file output rotates through lumberjack", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{
			Level:  "info",
			Format: "json",
			Output: path,
		})
		logger.Info().Str("title", "Stripe Rules").Msg("record refreshed")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"title":"Stripe Rules"`)
		assert.Contains(t, string(data), "record refreshed")
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		logger := logging.NewLoggerFromConfig(nil)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})
}

func TestContextLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithCycle(ctx, "cycle-1")
	ctx = logging.WithRecord(ctx, "My Rule")
	logging.FromContext(ctx).Info().Msg("visited")

	assert.True(t, tl.Contains(`"cycle_id":"cycle-1"`))
	assert.True(t, tl.Contains(`"title":"My Rule"`))
	assert.Len(t, tl.Lines(), 1)
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
	//nolint:staticcheck // nil context is part of the contract
	assert.Same(t, logging.Default(), logging.FromContext(nil))
}

func TestCaptureLoggingForTest(t *testing.T) {
	tl := logging.CaptureLoggingForTest(t)
	logging.Warn().Msg("captured")
	assert.True(t, tl.Contains("captured"))
}
