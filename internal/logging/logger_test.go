package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WarnLevel, &buf)

	logger.Debug("too quiet")
	logger.Info("still too quiet")
	logger.Warn("heard")
	logger.Error("also heard")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "heard")
	assert.Contains(t, lines[1], "also heard")
}

func TestLoggerJSONEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	logger.WithField("sweep_id", "sweep_1").Info("sweep complete", map[string]interface{}{
		"cases": 9,
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "sweep complete", entry["message"])
	assert.Equal(t, "sweep_1", entry["sweep_id"])
	assert.Equal(t, float64(9), entry["cases"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(InfoLevel, &buf)
	child := parent.WithField("rank", 3)

	parent.Info("plain")
	child.Info("decorated")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "rank")
	assert.Contains(t, lines[1], `"rank":3`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, parseLevel("debug"))
	assert.Equal(t, WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, InfoLevel, parseLevel("nonsense"))
	assert.Equal(t, InfoLevel, parseLevel(""))
}

func TestZapAdapterForwardsEntries(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(DebugLevel, &buf))

	zl.Named("engine").Info("starting sweep",
		zap.Int("cases", 9),
		zap.String("sampling", "fixed"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "starting sweep", entry["message"])
	assert.Equal(t, float64(9), entry["cases"])
	assert.Equal(t, "fixed", entry["sampling"])
	assert.Equal(t, "engine", entry["logger"])
}

func TestZapAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(ErrorLevel, &buf))

	zl.Debug("ignored")
	zl.Info("ignored too")
	assert.Zero(t, buf.Len())

	zl.Error("kept")
	assert.Contains(t, buf.String(), "kept")
}
