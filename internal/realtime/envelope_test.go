package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/xpboard/internal/apperr"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"event":"markAsRead","data":{"notification_id":12}}`))
	require.NoError(t, err)
	assert.Equal(t, EventMarkAsRead, env.Event)

	var data markAsReadData
	require.NoError(t, decodeData(env, &data))
	assert.Equal(t, int64(12), data.NotificationID)
}

func TestDecodeEnvelopeRejects(t *testing.T) {
	for name, raw := range map[string]string{
		"not json": `hello`,
		"no event": `{"data":{}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEnvelope([]byte(raw))
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestDecodeDataValidates(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"event":"joinGroup","data":{"group_id":3}}`))
	require.NoError(t, err)

	var data joinGroupData
	err = decodeData(env, &data)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "user_id is required")

	env, err = decodeEnvelope([]byte(`{"event":"sendMessage"}`))
	require.NoError(t, err)
	assert.ErrorIs(t, decodeData(env, &sendMessageData{}), apperr.ErrValidation)
}

func TestEncode(t *testing.T) {
	raw, err := encode(EventNotificationMarkedAsRead, markedAsReadData{ID: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"notificationMarkedAsRead","data":{"id":5}}`, string(raw))
}
