package kafka

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/utility-usage-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	p := domain.Point{
		Date:  time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC),
		Value: 30.5,
	}

	msg, err := serializeToMessage("electric_smoothed", p)
	require.NoError(t, err)

	assert.Equal(t, []byte("electric_smoothed/2024-04-26"), msg.Key)
	assert.JSONEq(t, `{"series":"electric_smoothed","date":"2024-04-26","value":30.5}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "series", msg.Headers[0].Key)
	assert.Equal(t, []byte("electric_smoothed"), msg.Headers[0].Value)
}

func TestSerializeToMessage_GapIsNull(t *testing.T) {
	p := domain.Point{
		Date:  time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC),
		Value: math.NaN(),
	}

	msg, err := serializeToMessage("gas_smoothed", p)
	require.NoError(t, err)

	assert.JSONEq(t, `{"series":"gas_smoothed","date":"2024-04-26","value":null}`, string(msg.Value))
}
