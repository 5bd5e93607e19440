package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotrack/climate-engine/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	point := domain.ForecastPoint{
		Step:       3,
		Year:       2027,
		Month:      2,
		Label:      "Feb 2027",
		Value:      8.4,
		Lower:      7.9,
		Upper:      8.9,
		Confidence: 88,
	}

	msg, err := serializeToMessage(42, domain.GranularityMonthly, point)
	require.NoError(t, err)

	assert.Equal(t, []byte("42"), msg.Key)

	var decoded forecastMessage
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, int64(42), decoded.RegionID)
	assert.Equal(t, domain.GranularityMonthly, decoded.Granularity)
	assert.Equal(t, point, decoded.Point)
	assert.False(t, decoded.PublishedAt.IsZero())

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "granularity", msg.Headers[0].Key)
	assert.Equal(t, []byte("monthly"), msg.Headers[0].Value)
	assert.Equal(t, "step", msg.Headers[1].Key)
	assert.Equal(t, []byte("3"), msg.Headers[1].Value)
}
