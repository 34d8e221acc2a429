package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDecodePayload(t *testing.T) {
	key, value, err := DecodePayload(EncodePayload("k1-abc", "50x50"))
	require.NoError(t, err)
	assert.Equal(t, "k1-abc", key)
	assert.Equal(t, "50x50", value)

	key, value, err = DecodePayload("only-key")
	require.NoError(t, err)
	assert.Equal(t, "only-key", key)
	assert.Empty(t, value)

	_, _, err = DecodePayload(":native")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseCallbackData(t *testing.T) {
	unique, payload := ParseCallbackData(&tele.Callback{Data: "\finq_type|k1:native"})
	assert.Equal(t, "inq_type", unique)
	assert.Equal(t, "k1:native", payload)

	unique, payload = ParseCallbackData(&tele.Callback{Data: "\finq_cancel"})
	assert.Equal(t, "inq_cancel", unique)
	assert.Empty(t, payload)

	unique, payload = ParseCallbackData(nil)
	assert.Empty(t, unique)
	assert.Empty(t, payload)
}
