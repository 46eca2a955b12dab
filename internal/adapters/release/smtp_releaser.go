package release

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/emersion/go-message/textproto"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/tagmda/internal/core"
	"go.uber.org/zap"
)

// ReleasedHeader marks a message that left the pending queue
const ReleasedHeader = "X-TMDA-Released"

// Config describes the SMTP service released messages are handed to
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Helo     string
	Timeout  time.Duration
}

// SMTPReleaser re-injects released messages over SMTP
type SMTPReleaser struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewSMTPReleaser creates a releaser for the given relay
func NewSMTPReleaser(cfg Config, logger *zap.Logger) *SMTPReleaser {
	if cfg.Helo == "" {
		if hostname, err := os.Hostname(); err == nil {
			cfg.Helo = hostname
		} else {
			cfg.Helo = "localhost"
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPReleaser{cfg: cfg, logger: logger, now: time.Now}
}

// Release delivers msg to its recipient with the original envelope sender
func (r *SMTPReleaser) Release(ctx context.Context, msg *core.PendingMessage) error {
	if msg.Recipient == "" {
		return fmt.Errorf("message %s has no recipient", msg.ID)
	}
	data, err := BuildReleased(msg.Raw, r.now())
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(r.cfg.Host, fmt.Sprint(r.cfg.Port))
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	// Set a deadline for the connection
	if err := conn.SetDeadline(time.Now().Add(r.cfg.Timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(r.cfg.Helo); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if r.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return fmt.Errorf("relay %s does not support AUTH", addr)
		}
		auth := sasl.NewPlainClient("", r.cfg.Username, r.cfg.Password)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	// An empty sender is the null return path
	if err := c.Mail(msg.ReturnPath, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(msg.Recipient, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// The message has already been accepted
		r.logger.Warn("QUIT command failed", zap.Error(err))
	}

	r.logger.Debug("Released message",
		zap.String("msgid", msg.ID),
		zap.String("recipient", msg.Recipient),
		zap.String("relay", addr))
	return nil
}

// BuildReleased returns raw with Return-Path removed and the release
// header prepended; the body is copied unchanged.
func BuildReleased(raw []byte, at time.Time) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	header, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message header: %w", err)
	}
	header.Del("Return-Path")
	header.Del(ReleasedHeader)
	header.Add(ReleasedHeader, at.Format(time.RFC1123Z))

	var buf bytes.Buffer
	if err := textproto.WriteHeader(&buf, header); err != nil {
		return nil, fmt.Errorf("failed to write message header: %w", err)
	}
	if _, err := io.Copy(&buf, br); err != nil {
		return nil, fmt.Errorf("failed to copy message body: %w", err)
	}
	return buf.Bytes(), nil
}
