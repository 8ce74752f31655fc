package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "corpauth/pkg/platform/audit"
)

type captureProducer struct {
	key   []byte
	value []byte
}

func (c *captureProducer) Produce(_ context.Context, key, value []byte) error {
	c.key, c.value = key, value
	return nil
}

func TestSinkAppendKeysByCharacter(t *testing.T) {
	p := &captureProducer{}
	sink := NewSink(p)

	err := sink.Append(context.Background(), audit.Event{
		Category:    audit.CategoryCompliance,
		Timestamp:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		CharacterID: 90000001,
		Action:      string(audit.EventAffiliationChanged),
		PassID:      "pass-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "90000001", string(p.key))
	var got map[string]any
	require.NoError(t, json.Unmarshal(p.value, &got))
	assert.Equal(t, "affiliation_changed", got["action"])
	assert.Equal(t, "2025-01-02T03:04:05Z", got["timestamp"])
	assert.Equal(t, "pass-1", got["pass_id"])
	assert.NotContains(t, got, "chat_user_id")
}

func TestSinkAppendWithoutCharacterHasNoKey(t *testing.T) {
	p := &captureProducer{}
	require.NoError(t, NewSink(p).Append(context.Background(), audit.Event{Action: string(audit.EventPassCompleted)}))
	assert.Nil(t, p.key)
}
