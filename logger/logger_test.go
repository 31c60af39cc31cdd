package logger

import (
	"bytes"
	"testing"

	"boostpanel-backend/config"

	"github.com/stretchr/testify/require"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)

	log.Info().Msg("hidden")
	require.Zero(t, buf.Len())

	log.Warn().Str("k", "v").Msg("shown")
	require.Contains(t, buf.String(), `"message":"shown"`)
	require.Contains(t, buf.String(), `"k":"v"`)
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LogConfig{Level: "nonsense"}, false, &buf)

	log.Debug().Msg("hidden")
	require.Zero(t, buf.Len())
	log.Info().Msg("shown")
	require.NotZero(t, buf.Len())
}

func TestRedact(t *testing.T) {
	require.Equal(t, "***", Redact("short"))
	require.Equal(t, "ABCD...YZ", Redact("ABCD-EFGH-WXYZ"))
}
