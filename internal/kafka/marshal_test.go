package kafka_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/rushinski/rdk-webstore-sub003/internal/kafka"
)

type payload struct {
	OrderID string `json:"order_id"`
	Total   int64  `json:"total"`
}

func TestUnwrapPayloadRoundTrip(t *testing.T) {
	raw := kafkax.MustMarshal(payload{OrderID: "o1", Total: 4200})

	got, err := kafkax.UnwrapPayload[payload](raw)
	require.NoError(t, err)
	assert.Equal(t, payload{OrderID: "o1", Total: 4200}, got)
}

func TestUnwrapPayloadRejectsGarbage(t *testing.T) {
	_, err := kafkax.UnwrapPayload[payload]([]byte("not json"))
	assert.Error(t, err)
}
