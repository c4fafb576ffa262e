package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeMessages(t *testing.T) {
	id, err := DecodeClientID(EncodeClientID("seller-1"))
	require.NoError(t, err)
	assert.Equal(t, "seller-1", id)

	phrase, ok, err := DecodePhrase(EncodePhrase("a1b2c3"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a1b2c3", phrase)

	_, ok, err = DecodePhrase(EncodePhraseFailure())
	require.NoError(t, err)
	assert.False(t, ok)

	answer, err := DecodeAnswer(EncodeAnswer("3c2b1a"))
	require.NoError(t, err)
	assert.Equal(t, "3c2b1a", answer)

	for _, status := range []bool{true, false} {
		got, err := DecodeConnected(EncodeConnected(status))
		require.NoError(t, err)
		assert.Equal(t, status, got)
	}
}

func TestDecodePhrase_Empty(t *testing.T) {
	_, _, err := DecodePhrase(nil)
	assert.ErrorIs(t, err, ErrUnknownPayload)
}

func TestReversePhrase(t *testing.T) {
	assert.Equal(t, "olleh", ReversePhrase("hello"))
	assert.Equal(t, "", ReversePhrase(""))
	assert.Equal(t, "界世ab", ReversePhrase("ba世界"))
}
