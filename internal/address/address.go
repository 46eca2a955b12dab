// Package address composes tagged e-mail addresses and recovers original
// senders from rewritten envelope addresses.
package address

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedAddress is returned when an address does not split into a
// local part and a domain at a single '@'.
var ErrMalformedAddress = errors.New("malformed address")

// Tagged is the decomposed view of "<local><delim><tag><delim><cookie>@<domain>"
type Tagged struct {
	LocalPart string
	Delimiter string
	TagName   string
	Cookie    string
	Domain    string
}

// String rebuilds the tagged address
func (t Tagged) String() string {
	return t.LocalPart + t.Delimiter + t.TagName + t.Delimiter + t.Cookie + "@" + t.Domain
}

// Split separates an address into local part and domain
func Split(addr string) (string, string, error) {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || strings.Contains(domain, "@") {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedAddress, addr)
	}
	return local, domain, nil
}

// Embed inserts tag and cookie into the local part of addr
func Embed(addr, delimiter, tagName, cookie string) (string, error) {
	local, domain, err := Split(addr)
	if err != nil {
		return "", err
	}
	return Tagged{
		LocalPart: local,
		Delimiter: delimiter,
		TagName:   tagName,
		Cookie:    cookie,
		Domain:    domain,
	}.String(), nil
}

// Extract finds the rightmost "<delim><tag><delim>" in the local part for any
// of tagNames (case-insensitive) and splits the address around it. ok is
// false when no tag is present.
func Extract(addr, delimiter string, tagNames ...string) (Tagged, bool, error) {
	local, domain, err := Split(addr)
	if err != nil {
		return Tagged{}, false, err
	}
	if delimiter == "" {
		return Tagged{}, false, nil
	}
	lower := asciiLower(local)
	best := -1
	var bestTag string
	for _, tag := range tagNames {
		if tag == "" {
			continue
		}
		marker := asciiLower(delimiter + tag + delimiter)
		if i := strings.LastIndex(lower, marker); i > best {
			best = i
			bestTag = local[i+len(delimiter) : i+len(delimiter)+len(tag)]
		}
	}
	if best < 0 {
		return Tagged{}, false, nil
	}
	return Tagged{
		LocalPart: local[:best],
		Delimiter: delimiter,
		TagName:   bestTag,
		Cookie:    local[best+2*len(delimiter)+len(bestTag):],
		Domain:    domain,
	}, true, nil
}

// asciiLower lowercases A-Z only so byte offsets stay valid
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
