package kafka

import (
	"math"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	row := domain.SummaryRow{
		RunID:        "run-1",
		Accumulation: 12,
		System:       "ecPoint_MultipleWT",
		Threshold:    0.2,
		Statistic:    domain.StatAROCz,
		LeadTime:     36,
		ValidDays:    300,
		Original:     0.91,
		Lower:        0.9,
		Upper:        0.92,
		Mean:         0.91,
		StdDev:       math.NaN(),
		Level:        95,
		Repetitions:  1000,
		ComputedAt:   now,
	}

	msg, err := serializeToMessage(row)
	require.NoError(t, err)

	assert.Equal(t, []byte("ecPoint_MultipleWT|0.2|AROCz|036"), msg.Key)
	assert.Contains(t, string(msg.Value), `"statistic":"AROCz"`)
	assert.Contains(t, string(msg.Value), `"bootstrap_stddev":null`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "statistic", msg.Headers[0].Key)
	assert.Equal(t, []byte("AROCz"), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	back, err := DecodeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, row.RunID, back.RunID)
	assert.Equal(t, row.LeadTime, back.LeadTime)
	assert.InDelta(t, row.Original, back.Original, 0)
	assert.True(t, math.IsNaN(back.StdDev))
	assert.True(t, now.Equal(back.ComputedAt))
}

func TestDecodeMessage_Invalid(t *testing.T) {
	_, err := DecodeMessage(kafkaMessage("not json"))
	require.Error(t, err)
}

func kafkaMessage(v string) kafkago.Message {
	return kafkago.Message{Value: []byte(v)}
}
