package cookie

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Settings is the immutable cookie configuration built once at startup
type Settings struct {
	Current        Key
	Rollover       *Key
	EncodingCompat bool
	// Delimiter is the recipient delimiter, not allowed inside keywords
	Delimiter string
	// DatedTimeout is the default lifetime of dated cookies, e.g. "5d"
	DatedTimeout string
}

// Engine builds and verifies cookies. It holds no mutable state.
type Engine struct {
	ring         *KeyRing
	codec        *Codec
	delimiter    string
	datedTimeout int64
}

// NewEngine validates settings and returns a ready engine
func NewEngine(s Settings) (*Engine, error) {
	ring, err := NewKeyRing(s.Current, s.Rollover)
	if err != nil {
		return nil, err
	}
	lifetime, err := ParseDuration(s.DatedTimeout)
	if err != nil {
		return nil, configError("dated.timeout", err)
	}
	timeout := int64(lifetime / time.Second)
	return &Engine{
		ring:         ring,
		codec:        NewCodec(ring, s.EncodingCompat),
		delimiter:    s.Delimiter,
		datedTimeout: timeout,
	}, nil
}

// KeyRing returns the engine's keys
func (e *Engine) KeyRing() *KeyRing {
	return e.ring
}

// Codec returns the MAC codec
func (e *Engine) Codec() *Codec {
	return e.codec
}

// Delimiter returns the configured recipient delimiter
func (e *Engine) Delimiter() string {
	return e.delimiter
}

func (e *Engine) mac(items ...string) string {
	return e.codec.Encode(e.ring.MAC(false, items...), false, false)
}

// ConfirmMAC returns the MAC of a confirmation cookie
func (e *Engine) ConfirmMAC(timestamp int64, pid int, keyword string) string {
	return e.mac(strconv.FormatInt(timestamp, 10), strconv.Itoa(pid), keyword)
}

// VerifyConfirmMAC checks a confirmation MAC. timestamp and pid are taken
// verbatim as they appear in the cookie.
func (e *Engine) VerifyConfirmMAC(mac, timestamp, pid, keyword string) bool {
	return e.codec.Verify(mac, timestamp, pid, keyword)
}

// ConfirmCookie returns "<time>.<pid>.<mac>"
func (e *Engine) ConfirmCookie(timestamp int64, pid int, keyword string) string {
	return strconv.FormatInt(timestamp, 10) + "." + strconv.Itoa(pid) + "." + e.ConfirmMAC(timestamp, pid, keyword)
}

// DatedMAC returns the MAC of a dated cookie expiring at expire
func (e *Engine) DatedMAC(expire int64) string {
	return e.mac(strconv.FormatInt(expire, 10))
}

// VerifyDatedMAC checks the MAC only; comparing expire with the clock is up
// to the caller.
func (e *Engine) VerifyDatedMAC(mac, expire string) bool {
	return e.codec.Verify(mac, expire)
}

// DatedCookie returns "<expire>.<mac>" where expire is t plus timeout, or
// plus the default lifetime when timeout is empty.
func (e *Engine) DatedCookie(t int64, timeout string) (string, error) {
	lifetime := e.datedTimeout
	if timeout != "" {
		secs, err := ParseTimeout(timeout)
		if err != nil {
			return "", configError("timeout", err)
		}
		lifetime = secs
	}
	if t > 0 && lifetime > math.MaxInt64-t {
		return "", configError("timeout", fmt.Errorf("%w: %q expires beyond the representable range", ErrInvalidTimeout, timeout))
	}
	expire := t + lifetime
	return strconv.FormatInt(expire, 10) + "." + e.DatedMAC(expire), nil
}

// DefaultDatedCookie is DatedCookie with the configured lifetime
func (e *Engine) DefaultDatedCookie(t time.Time) string {
	expire := t.Unix() + e.datedTimeout
	return strconv.FormatInt(expire, 10) + "." + e.DatedMAC(expire)
}

// SenderMAC returns the MAC of a sender cookie. Addresses are compared
// case-insensitively here.
func (e *Engine) SenderMAC(address string) string {
	return e.mac(strings.ToLower(address))
}

// VerifySenderMAC checks a sender MAC against address
func (e *Engine) VerifySenderMAC(mac, address string) bool {
	return e.codec.Verify(mac, strings.ToLower(address))
}

// SenderCookie is the bare sender MAC
func (e *Engine) SenderCookie(address string) string {
	return e.SenderMAC(address)
}

// SanitizeKeyword replaces every character outside the RFC 2822 atom set,
// and the recipient delimiter, with '?'.
func (e *Engine) SanitizeKeyword(keyword string) string {
	var b strings.Builder
	for _, r := range keyword {
		if isAtomChar(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	if e.delimiter == "" {
		return b.String()
	}
	return strings.ReplaceAll(b.String(), e.delimiter, "?")
}

func isAtomChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-!#$%&*+/=?^_`{|}'~", r)
}

// KeywordMAC returns the MAC over the sanitized, lowercased keyword
func (e *Engine) KeywordMAC(keyword string) string {
	return e.mac(strings.ToLower(e.SanitizeKeyword(keyword)))
}

// VerifyKeywordMAC checks a keyword MAC
func (e *Engine) VerifyKeywordMAC(mac, keyword string) bool {
	return e.codec.Verify(mac, strings.ToLower(e.SanitizeKeyword(keyword)))
}

// KeywordCookie returns "<sanitized keyword>.<mac>", keeping the keyword case
func (e *Engine) KeywordCookie(keyword string) string {
	keyword = e.SanitizeKeyword(keyword)
	return keyword + "." + e.KeywordMAC(keyword)
}

// Fingerprint returns the full HMAC of the ordered headers with the current
// key, in unpadded standard base64.
func (e *Engine) Fingerprint(headers []string) string {
	return base64.RawStdEncoding.EncodeToString(e.ring.Digest(headers...))
}
