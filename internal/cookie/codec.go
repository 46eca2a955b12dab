package cookie

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Encoding is the printable form of a cookie MAC
type Encoding int

const (
	// Alphanumeric is the compact lowercase [a-z0-9] form
	Alphanumeric Encoding = iota
	// LegacyHex is the hexadecimal form of older cookies
	LegacyHex
)

func (e Encoding) String() string {
	if e == LegacyHex {
		return "hex"
	}
	return "alphanumeric"
}

// Codec turns raw MAC bytes into cookie strings
type Codec struct {
	ring   *KeyRing
	compat bool
}

// NewCodec creates a codec. With compat enabled, alphanumeric strings that
// contain no letter in [g-z] are replaced by the hex form, and verifiers
// treat such candidates as hex.
func NewCodec(ring *KeyRing, compat bool) *Codec {
	return &Codec{ring: ring, compat: compat}
}

// alphanumericLength is the number of [a-z0-9] characters carrying the
// entropy of n bytes, ceil(log(256)/log(36) * n) for the usual sizes.
func alphanumericLength(n int) int {
	return int(1.55*float64(n) + 0.5)
}

// hasHighLetter reports whether s contains any of [g-z]
func hasHighLetter(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return r >= 'g' && r <= 'z'
	})
}

// Encode renders a MAC with the size of the current or rollover key
func (c *Codec) Encode(mac []byte, useRollover, legacy bool) string {
	size := c.ring.MACSize(useRollover)
	if legacy {
		return truncate(hex.EncodeToString(mac), 2*size)
	}
	var b strings.Builder
	for _, r := range strings.ToLower(base64.StdEncoding.EncodeToString(mac)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := truncate(b.String(), alphanumericLength(size))
	if c.compat && !hasHighLetter(s) {
		return c.Encode(mac, useRollover, true)
	}
	return s
}

// EncodingOf infers the encoding of a candidate MAC from its alphabet
func (c *Codec) EncodingOf(candidate string) Encoding {
	if c.compat && !hasHighLetter(strings.ToLower(candidate)) {
		return LegacyHex
	}
	return Alphanumeric
}

// Verify checks candidate against the MAC over items under the current key
// and, failing that, the rollover key. It never fails for any input.
func (c *Codec) Verify(candidate string, items ...string) bool {
	candidate = strings.ToLower(candidate)
	legacy := c.EncodingOf(candidate) == LegacyHex
	if equal(candidate, c.Encode(c.ring.MAC(false, items...), false, legacy)) {
		return true
	}
	if !c.ring.HasRollover() {
		return false
	}
	return equal(candidate, c.Encode(c.ring.MAC(true, items...), true, legacy))
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
