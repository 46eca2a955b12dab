package address

import (
	"strconv"
	"strings"
	"time"

	"github.com/mikey/tagmda/internal/cookie"
)

// Kind identifies a cookie family
type Kind int

const (
	KindNone Kind = iota
	KindConfirm
	KindDated
	KindSender
	KindKeyword
)

func (k Kind) String() string {
	switch k {
	case KindConfirm:
		return "confirm"
	case KindDated:
		return "dated"
	case KindSender:
		return "sender"
	case KindKeyword:
		return "keyword"
	default:
		return "none"
	}
}

// Tags lists the accepted tag names per family. The first name of each
// family is used when building addresses.
type Tags struct {
	Confirm []string
	Dated   []string
	Sender  []string
	Keyword []string
}

// Tagger builds full tagged addresses and checks incoming ones
type Tagger struct {
	engine         *cookie.Engine
	tags           Tags
	confirmAddress string
}

// NewTagger creates a tagger. When confirmAddress is set, confirmation
// addresses are built on it instead of the given address.
func NewTagger(engine *cookie.Engine, tags Tags, confirmAddress string) *Tagger {
	return &Tagger{engine: engine, tags: tags, confirmAddress: confirmAddress}
}

func first(names []string, fallback string) string {
	if len(names) == 0 || names[0] == "" {
		return fallback
	}
	return names[0]
}

func (t *Tagger) embed(addr string, tag, cookie string) (string, error) {
	return Embed(addr, t.engine.Delimiter(), tag, cookie)
}

// ConfirmAddress returns e.g. "user-confirm-1262937386.12345.mac@host"
func (t *Tagger) ConfirmAddress(addr string, timestamp int64, pid int, keyword string) (string, error) {
	if t.confirmAddress != "" {
		addr = t.confirmAddress
	}
	return t.embed(addr, first(t.tags.Confirm, "confirm"), t.engine.ConfirmCookie(timestamp, pid, keyword))
}

// DatedAddress returns a dated address valid for the default lifetime from now
func (t *Tagger) DatedAddress(addr string, now time.Time) (string, error) {
	return t.embed(addr, first(t.tags.Dated, "dated"), t.engine.DefaultDatedCookie(now))
}

// DatedAddressFor returns a dated address valid for timeout from now
func (t *Tagger) DatedAddressFor(addr string, now time.Time, timeout string) (string, error) {
	c, err := t.engine.DatedCookie(now.Unix(), timeout)
	if err != nil {
		return "", err
	}
	return t.embed(addr, first(t.tags.Dated, "dated"), c)
}

// SenderAddress returns an address only sender may use
func (t *Tagger) SenderAddress(addr, sender string) (string, error) {
	return t.embed(addr, first(t.tags.Sender, "sender"), t.engine.SenderCookie(sender))
}

// KeywordAddress returns a keyword address
func (t *Tagger) KeywordAddress(addr, keyword string) (string, error) {
	return t.embed(addr, first(t.tags.Keyword, "keyword"), t.engine.KeywordCookie(keyword))
}

// Result is the outcome of checking a recipient address
type Result struct {
	Kind    Kind
	Tagged  Tagged
	Valid   bool
	Expired bool
	// Expires is set for dated cookies
	Expires time.Time
}

func (t *Tagger) kindOf(tag string) Kind {
	for kind, names := range map[Kind][]string{
		KindConfirm: t.tags.Confirm,
		KindDated:   t.tags.Dated,
		KindSender:  t.tags.Sender,
		KindKeyword: t.tags.Keyword,
	} {
		for _, n := range names {
			if strings.EqualFold(n, tag) {
				return kind
			}
		}
	}
	return KindNone
}

func (t *Tagger) allTags() []string {
	all := make([]string, 0, len(t.tags.Confirm)+len(t.tags.Dated)+len(t.tags.Sender)+len(t.tags.Keyword))
	all = append(all, t.tags.Confirm...)
	all = append(all, t.tags.Dated...)
	all = append(all, t.tags.Sender...)
	return append(all, t.tags.Keyword...)
}

// Check extracts the cookie of addr and verifies it. sender is the envelope
// sender and only matters for sender cookies. A malformed cookie yields an
// invalid result, never an error; only an address without '@' fails.
func (t *Tagger) Check(addr, sender string, now time.Time) (Result, error) {
	tagged, ok, err := Extract(addr, t.engine.Delimiter(), t.allTags()...)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Kind: KindNone}, nil
	}
	res := Result{Kind: t.kindOf(tagged.TagName), Tagged: tagged}
	switch res.Kind {
	case KindConfirm:
		parts := strings.SplitN(tagged.Cookie, ".", 3)
		if len(parts) == 3 {
			res.Valid = t.engine.VerifyConfirmMAC(parts[2], parts[0], parts[1], "")
		}
	case KindDated:
		expire, mac, found := strings.Cut(tagged.Cookie, ".")
		if !found {
			break
		}
		res.Valid = t.engine.VerifyDatedMAC(mac, expire)
		if secs, err := strconv.ParseInt(expire, 10, 64); err == nil {
			res.Expires = time.Unix(secs, 0)
			res.Expired = now.After(res.Expires)
		} else {
			res.Valid = false
		}
	case KindSender:
		res.Valid = sender != "" && t.engine.VerifySenderMAC(tagged.Cookie, sender)
	case KindKeyword:
		i := strings.LastIndex(tagged.Cookie, ".")
		if i > 0 {
			res.Valid = t.engine.VerifyKeywordMAC(tagged.Cookie[i+1:], tagged.Cookie[:i])
		}
	}
	return res, nil
}
