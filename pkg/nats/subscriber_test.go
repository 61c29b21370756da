package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	payload := []byte(`{"session_id": "abc", "spent": 1500000}`)

	event, err := decodeEvent("events.BUILD_SESSION_COMPLETED", payload)
	require.NoError(t, err)

	assert.Equal(t, "BUILD_SESSION_COMPLETED", event.EventType())
	assert.Equal(t, "abc", event.Payload()["session_id"])
	assert.Equal(t, float64(1500000), event.Payload()["spent"])
	assert.False(t, event.Timestamp().IsZero())
}

func TestDecodeEvent_BadPayload(t *testing.T) {
	_, err := decodeEvent("events.BUILD_SESSION_COMPLETED", []byte("not json"))
	assert.Error(t, err)
}
