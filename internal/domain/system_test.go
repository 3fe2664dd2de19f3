package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForecastSystem(t *testing.T) {
	sys, err := ParseForecastSystem("ENS:51:cumulative")
	require.NoError(t, err)
	assert.Equal(t, ForecastSystem{Name: "ENS", Members: 51, Kind: Cumulative}, sys)
	assert.Equal(t, "ENS:51:cumulative", sys.String())

	sys, err = ParseForecastSystem(" ecPoint_SingleWT : 99 : Accumulated ")
	require.NoError(t, err)
	assert.Equal(t, Accumulated, sys.Kind)

	for _, bad := range []string{"ENS", "ENS:0:cumulative", "ENS:x:cumulative", ":51:cumulative", "ENS:51:hourly"} {
		_, err := ParseForecastSystem(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatThreshold(t *testing.T) {
	assert.Equal(t, "0.2", FormatThreshold(0.2))
	assert.Equal(t, "10", FormatThreshold(10))
	assert.Equal(t, "25", FormatThreshold(25.0))
}

func TestParseThresholds(t *testing.T) {
	v, err := ParseThresholds("0.2, 10,25 ,50")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 10, 25, 50}, v)

	_, err = ParseThresholds("0.2,abc")
	require.Error(t, err)
	_, err = ParseThresholds("-1")
	require.Error(t, err)
	_, err = ParseThresholds(" , ")
	require.Error(t, err)
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("THRESHOLDS", "bad value %q", "x")
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "THRESHOLDS", ce.Setting)
	assert.Contains(t, err.Error(), "THRESHOLDS")
}
