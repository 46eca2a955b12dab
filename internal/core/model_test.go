package core

import (
	"strings"
	"testing"
	"time"

	"github.com/mikey/tagmda/internal/address"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessageID(t *testing.T) {
	ts, err := ParseMessageID("1243439251.12345")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1243439251, 0), ts)

	for _, bad := range []string{"", "1243439251", ".12345", "abc.12345", "1243439251.x"} {
		_, err := ParseMessageID(bad)
		assert.ErrorIs(t, err, ErrInvalidMessageID, bad)
	}
}

func TestNewPendingMessage(t *testing.T) {
	unwrapper := address.DefaultUnwrapper()

	for i, id := range []string{"1243439251.12345", "1303349951.12346", "1303433207.12347"} {
		raw := []byte(strings.Join(testMessages[id], "\r\n"))
		msg, err := NewPendingMessage(id, raw, unwrapper)
		require.NoError(t, err)

		assert.Equal(t, expectedSenders[i], msg.Sender)
		assert.NotEmpty(t, msg.ReturnPath)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestNewPendingMessageFields(t *testing.T) {
	raw := []byte(strings.Join(testMessages["1303433207.12347"], "\r\n"))
	msg, err := NewPendingMessage("1303433207.12347", raw, address.DefaultUnwrapper())
	require.NoError(t, err)

	assert.Equal(t, "SRS0=SRS-tag=example.com=return.path.3@example.org", msg.ReturnPath)
	assert.Equal(t, "testuser-extension@example.com", msg.Recipient)
	assert.Equal(t, time.Unix(1303433207, 0), msg.Timestamp)

	subject, err := msg.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, `Test message "numéro" last (ISO-8859-1).`, subject)
}

func TestNewPendingMessageNullSender(t *testing.T) {
	msg, err := NewPendingMessage("x", []byte("Return-Path: <>\r\n\r\nbody"), nil)
	require.NoError(t, err)

	assert.Empty(t, msg.Sender)
	assert.True(t, msg.Timestamp.IsZero())
}

func TestParseDisposition(t *testing.T) {
	for _, d := range []Disposition{DispositionPass, DispositionShow, DispositionRelease,
		DispositionWhitelist, DispositionBlacklist, DispositionDelete} {
		parsed, err := ParseDisposition(strings.ToUpper(d.String()))
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}

	_, err := ParseDisposition("confirm")
	assert.ErrorIs(t, err, ErrUnknownDisposition)

	assert.False(t, DispositionPass.Mutates())
	assert.False(t, DispositionShow.Mutates())
	assert.True(t, DispositionBlacklist.Mutates())
}
