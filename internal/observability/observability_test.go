package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("count skipped", "system", "ENS", "step", 36)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "count skipped", line["msg"])
	assert.Equal(t, "ENS", line["system"])
	assert.InDelta(t, 36, line["step"], 0)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "text").Debug("hello", "threshold", "0.2")
	assert.Contains(t, buf.String(), "threshold=0.2")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestNewMetricsForTesting_Isolated(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.RecordsCounted.WithLabelValues("ENS").Add(3)
	assert.InDelta(t, 3, counterValue(t, a, "ENS"), 0)
	assert.Zero(t, counterValue(t, b, "ENS"))
}

func counterValue(t *testing.T, m *Metrics, system string) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.RecordsCounted.WithLabelValues(system).Write(&out))
	return out.GetCounter().GetValue()
}
