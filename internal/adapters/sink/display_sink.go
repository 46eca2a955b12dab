package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/tagmda/internal/core"
	"github.com/mikey/tagmda/internal/utils"
	"go.uber.org/zap"
)

// TerminalDisplay prints a summary of held messages
type TerminalDisplay struct {
	out         io.Writer
	text        *utils.TextProcessor
	logger      *zap.Logger
	previewSize int
}

// NewTerminalDisplay creates a display writing to out. A previewSize of
// zero or less prints the whole text body.
func NewTerminalDisplay(out io.Writer, text *utils.TextProcessor, previewSize int, logger *zap.Logger) *TerminalDisplay {
	return &TerminalDisplay{
		out:         out,
		text:        text,
		logger:      logger,
		previewSize: previewSize,
	}
}

// Render prints the decoded headers and a preview of the text body
func (d *TerminalDisplay) Render(ctx context.Context, msg *core.PendingMessage) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== %s ===\n", msg.ID)
	if !msg.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Held: %s\n", msg.Timestamp.Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	}
	fmt.Fprintf(&b, "Sender: %s\n", displaySender(msg.Sender))
	for _, key := range []string{"From", "To", "Subject", "Date"} {
		if value := decodedHeader(msg.Header, key); value != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, value)
		}
	}

	body, err := extractText(msg.Raw)
	if err != nil {
		d.logger.Warn("Failed to extract message text", zap.String("msgid", msg.ID), zap.Error(err))
		body = "[Unable to decode message body]"
	}
	fmt.Fprintf(&b, "\n%s\n", d.text.ProcessText(strings.TrimRight(body, "\r\n"), d.previewSize))

	if _, err := io.WriteString(d.out, b.String()); err != nil {
		return fmt.Errorf("failed to write display: %w", err)
	}
	return nil
}

func displaySender(sender string) string {
	if sender == "" {
		return "<>"
	}
	return sender
}

// decodedHeader decodes RFC 2047 words, falling back to the raw value
func decodedHeader(h mail.Header, key string) string {
	value, err := h.Text(key)
	if err != nil {
		return h.Get(key)
	}
	return value
}

// extractText concatenates the text/plain parts of raw, converted to UTF-8
func extractText(raw []byte) (string, error) {
	r, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return "", err
	}
	defer r.Close()

	var text strings.Builder
	for {
		part, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			if text.Len() > 0 {
				return text.String(), nil
			}
			return "", err
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := inline.ContentType()
		if err == nil && contentType != "" && contentType != "text/plain" {
			continue
		}
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		text.Write(data)
		text.WriteString("\n")
	}

	if text.Len() == 0 {
		return "[No text content found in message]", nil
	}
	return text.String(), nil
}
