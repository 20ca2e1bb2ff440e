package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		sender   UserRef
		receiver UserRef
		message  string
	}{
		{
			name:     "numeric identifiers",
			raw:      `{"sender": 1, "receiver": 2, "message": "hello"}`,
			sender:   UserRef{ID: 1, Valid: true, Raw: "1"},
			receiver: UserRef{ID: 2, Valid: true, Raw: "2"},
			message:  "hello",
		},
		{
			name:     "string identifiers",
			raw:      `{"sender": "10", "receiver": " 20 ", "message": "hi"}`,
			sender:   UserRef{ID: 10, Valid: true, Raw: "10"},
			receiver: UserRef{ID: 20, Valid: true, Raw: "20"},
			message:  "hi",
		},
		{
			name:    "null and missing receiver",
			raw:     `{"sender": null, "message": "broadcast"}`,
			message: "broadcast",
		},
		{
			name:     "non numeric identifier is unresolvable",
			raw:      `{"sender": "alice", "receiver": 3, "message": "x"}`,
			sender:   UserRef{Raw: "alice"},
			receiver: UserRef{ID: 3, Valid: true, Raw: "3"},
			message:  "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.sender, p.Sender)
			assert.Equal(t, tt.receiver, p.Receiver)
			assert.Equal(t, tt.message, p.Message)
		})
	}
}

func TestDecodePayload_Malformed(t *testing.T) {
	t.Run("invalid utf8", func(t *testing.T) {
		_, err := DecodePayload([]byte{0xff, 0xfe, 0xfd})
		assert.ErrorIs(t, err, ErrInvalidUTF8)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodePayload([]byte("hello there"))
		assert.Error(t, err)
	})

	t.Run("json array", func(t *testing.T) {
		_, err := DecodePayload([]byte(`[1, 2, 3]`))
		assert.ErrorIs(t, err, ErrNotAnObject)
	})

	t.Run("truncated object", func(t *testing.T) {
		_, err := DecodePayload([]byte(`{"sender": 1,`))
		assert.Error(t, err)
	})

	t.Run("wrong message type", func(t *testing.T) {
		_, err := DecodePayload([]byte(`{"message": 12}`))
		assert.Error(t, err)
	})

	t.Run("empty object", func(t *testing.T) {
		_, err := DecodePayload([]byte(`{}`))
		assert.ErrorIs(t, err, ErrMissingMessage)
	})

	t.Run("unrelated fields", func(t *testing.T) {
		_, err := DecodePayload([]byte(`{"foo": 1}`))
		assert.ErrorIs(t, err, ErrMissingMessage)
	})

	t.Run("null message", func(t *testing.T) {
		_, err := DecodePayload([]byte(`{"sender": 1, "receiver": 2, "message": null}`))
		assert.ErrorIs(t, err, ErrMissingMessage)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodePayload(nil)
		assert.Error(t, err)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate([]byte("short"), 10))
	assert.Equal(t, "abc...", Truncate([]byte("abcdef"), 3))
}
