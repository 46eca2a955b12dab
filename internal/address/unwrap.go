package address

import (
	"strings"
)

// UnwrapFunc recovers the original local part and domain from the payload
// that follows a recognised envelope-rewriting prefix. ok is false when the
// payload does not match the scheme.
type UnwrapFunc func(payload, domain string) (local, origDomain string, ok bool)

// Unwrapper strips envelope-rewriting wrappers (BATV, SRS) from addresses.
// Prefixes are matched case-insensitively against the local part.
type Unwrapper struct {
	prefixes []string
	schemes  map[string]UnwrapFunc
}

// NewUnwrapper returns an unwrapper with no schemes registered
func NewUnwrapper() *Unwrapper {
	return &Unwrapper{schemes: make(map[string]UnwrapFunc)}
}

// DefaultUnwrapper knows BATV (prvs=, msprvs1=, btv1=) and SRS (SRS0, SRS1)
func DefaultUnwrapper() *Unwrapper {
	u := NewUnwrapper()
	u.Register("prvs=", unwrapPRVS)
	u.Register("msprvs1=", unwrapPRVS)
	u.Register("btv1=", unwrapBTV1)
	for _, sep := range []string{"=", "+", "-"} {
		u.Register("srs0"+sep, unwrapSRS0)
		u.Register("srs1"+sep, unwrapSRS1)
	}
	return u
}

// Register adds a scheme for prefix
func (u *Unwrapper) Register(prefix string, fn UnwrapFunc) {
	prefix = strings.ToLower(prefix)
	if _, exists := u.schemes[prefix]; !exists {
		u.prefixes = append(u.prefixes, prefix)
	}
	u.schemes[prefix] = fn
}

// Unwrap returns the protected address inside addr, or addr itself when it
// is not wrapped. Wrappers nested inside each other are all removed.
func (u *Unwrapper) Unwrap(addr string) string {
	for depth := 0; depth < 4; depth++ {
		next, ok := u.unwrapOnce(addr)
		if !ok {
			break
		}
		addr = next
	}
	return addr
}

func (u *Unwrapper) unwrapOnce(addr string) (string, bool) {
	local, domain, err := Split(addr)
	if err != nil {
		return addr, false
	}
	lower := asciiLower(local)
	for _, prefix := range u.prefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		l, d, ok := u.schemes[prefix](local[len(prefix):], domain)
		if ok && l != "" && d != "" {
			return l + "@" + d, true
		}
	}
	return addr, false
}

// unwrapPRVS handles "prvs=<tag>=<local>" and the older "prvs=<local>/<tag>"
func unwrapPRVS(payload, domain string) (string, string, bool) {
	if _, local, ok := strings.Cut(payload, "="); ok {
		return local, domain, true
	}
	if local, _, ok := strings.Cut(payload, "/"); ok {
		return local, domain, true
	}
	return "", "", false
}

// unwrapBTV1 handles "btv1==<hash>==<local>"
func unwrapBTV1(payload, domain string) (string, string, bool) {
	i := strings.LastIndex(payload, "==")
	if i < 0 {
		return "", "", false
	}
	return payload[i+2:], domain, true
}

// unwrapSRS0 handles "SRS0=<hash>=<tt>=<domain>=<local>". The original
// domain is the first field after the hash that looks like a domain, so the
// timestamp field may be absent.
func unwrapSRS0(payload, _ string) (string, string, bool) {
	fields := strings.Split(payload, "=")
	for i := 1; i < len(fields)-1; i++ {
		if strings.Contains(fields[i], ".") {
			return strings.Join(fields[i+1:], "="), fields[i], true
		}
	}
	return "", "", false
}

// unwrapSRS1 handles "SRS1=<hash>=<forwarder>==<srs0 payload>"
func unwrapSRS1(payload, domain string) (string, string, bool) {
	_, inner, ok := strings.Cut(payload, "==")
	if !ok {
		return "", "", false
	}
	return unwrapSRS0(inner, domain)
}
