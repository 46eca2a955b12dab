package core

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/tagmda/internal/address"
)

var (
	// ErrMessageNotFound is returned by a MailQueue when the id is gone
	ErrMessageNotFound = errors.New("message not found in pending queue")
	// ErrInvalidMessageID is returned for ids not shaped "<epoch>.<pid>"
	ErrInvalidMessageID = errors.New("invalid message id")
)

// PendingMessage is one held message as seen by the pending loop
type PendingMessage struct {
	ID        string
	Timestamp time.Time
	Raw       []byte
	Header    mail.Header
	// ReturnPath is the envelope sender as recorded in the Return-Path header
	ReturnPath string
	// Sender is ReturnPath with any BATV/SRS wrapper removed; empty for the null sender
	Sender string
	// Recipient is the address the message was held for
	Recipient string
}

// ParseMessageID returns the creation time encoded in "<epoch>.<pid>"
func ParseMessageID(id string) (time.Time, error) {
	epoch, pid, ok := strings.Cut(id, ".")
	if !ok || epoch == "" || pid == "" {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMessageID, id)
	}
	secs, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMessageID, id)
	}
	if _, err := strconv.Atoi(pid); err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMessageID, id)
	}
	return time.Unix(secs, 0), nil
}

// NewPendingMessage parses the headers of raw and derives the effective
// sender. Timestamp is left zero when id does not carry one.
func NewPendingMessage(id string, raw []byte, unwrapper *address.Unwrapper) (*PendingMessage, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("failed to parse message %s: %w", id, err)
	}
	msg := &PendingMessage{
		ID:     id,
		Raw:    raw,
		Header: mail.Header{Header: entity.Header},
	}
	if ts, err := ParseMessageID(id); err == nil {
		msg.Timestamp = ts
	}
	msg.ReturnPath = envelopeAddress(msg.Header.Get("Return-Path"))
	msg.Sender = msg.ReturnPath
	if unwrapper != nil && msg.Sender != "" {
		msg.Sender = unwrapper.Unwrap(msg.Sender)
	}
	msg.Recipient = envelopeAddress(msg.Header.Get("X-TMDA-Recipient"))
	return msg, nil
}

// envelopeAddress strips angle brackets and comments from a header holding
// a single address. "<>" yields the empty string.
func envelopeAddress(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == "<>" {
		return ""
	}
	if addr, err := mail.ParseAddress(value); err == nil {
		return addr.Address
	}
	return strings.Trim(value, "<> ")
}
