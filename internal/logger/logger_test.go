package logger

import (
	"bytes"
	"testing"

	"github.com/deppfellow/foodgram-entrypoint/internal/config"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json in production at info", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := config.DefaultObservabilityConfig()

		l := NewWithWriter(cfg, &buf)
		l.Debug().Msg("hidden")
		l.Info().Msg("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"message":"shown"`)
		assert.Contains(t, buf.String(), `"service":"foodgram-entrypoint"`)
		assert.Contains(t, buf.String(), `"environment":"production"`)
	})

	t.Run("console and debug elsewhere", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := config.DefaultObservabilityConfig()
		cfg.Environment = "local"
		cfg.Logging.Format = "console"

		l := NewWithWriter(cfg, &buf)
		l.Debug().Msg("visible")

		assert.Contains(t, buf.String(), "visible")
		assert.NotContains(t, buf.String(), `"message"`)
		assert.Equal(t, zerolog.DebugLevel, l.GetLevel())
	})
}

func TestGetPgxTraceLogLevel(t *testing.T) {
	tests := map[zerolog.Level]tracelog.LogLevel{
		zerolog.TraceLevel: tracelog.LogLevelTrace,
		zerolog.DebugLevel: tracelog.LogLevelDebug,
		zerolog.InfoLevel:  tracelog.LogLevelInfo,
		zerolog.WarnLevel:  tracelog.LogLevelWarn,
		zerolog.ErrorLevel: tracelog.LogLevelError,
		zerolog.FatalLevel: tracelog.LogLevelError,
		zerolog.Disabled:   tracelog.LogLevelNone,
	}
	for level, want := range tests {
		assert.Equal(t, want, GetPgxTraceLogLevel(level), level.String())
	}
}
