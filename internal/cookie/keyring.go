package cookie

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"math"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// kdfPrefix marks an algorithm name as a PBKDF2 variant, e.g. "p2sha256"
const kdfPrefix = "p2"

// maxRounds bounds the PBKDF2 round exponent (10^maxRounds iterations)
const maxRounds = 8

var digests = map[string]func() hash.Hash{
	"md5":        md5.New,
	"sha1":       sha1.New,
	"sha224":     sha256.New224,
	"sha256":     sha256.New,
	"sha384":     sha512.New384,
	"sha512":     sha512.New,
	"sha512_224": sha512.New512_224,
	"sha512_256": sha512.New512_256,
	"sha3_224":   sha3.New224,
	"sha3_256":   sha3.New256,
	"sha3_384":   sha3.New384,
	"sha3_512":   sha3.New512,
	"blake2b": func() hash.Hash {
		h, _ := blake2b.New512(nil)
		return h
	},
	"blake3": func() hash.Hash {
		return blake3.New(32, nil)
	},
}

// AlgoSpec describes how a MAC is computed: either a plain HMAC over a digest
// or PBKDF2 over that digest with 10^Rounds iterations.
type AlgoSpec struct {
	Digest string
	KDF    bool
	Rounds int

	newHash func() hash.Hash
}

// ParseAlgo resolves an algorithm name as found in the configuration.
// Names are case-insensitive; a "p2" prefix selects the PBKDF2 variant and
// rounds is then the iteration exponent.
func ParseAlgo(name string, rounds int) (AlgoSpec, error) {
	digest := strings.ToLower(strings.TrimSpace(name))
	algo := AlgoSpec{}
	if strings.HasPrefix(digest, kdfPrefix) {
		digest = strings.TrimPrefix(digest, kdfPrefix)
		if rounds < 0 || rounds > maxRounds {
			return AlgoSpec{}, fmt.Errorf("%w: round exponent %d out of range", ErrUnsupportedAlgorithm, rounds)
		}
		algo.KDF = true
		algo.Rounds = rounds
	}
	newHash, ok := digests[digest]
	if !ok {
		return AlgoSpec{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
	algo.Digest = digest
	algo.newHash = newHash
	return algo, nil
}

// String returns the configuration name of the algorithm
func (a AlgoSpec) String() string {
	if a.KDF {
		return kdfPrefix + a.Digest
	}
	return a.Digest
}

// Size is the length of the raw MAC in bytes
func (a AlgoSpec) Size() int {
	if a.newHash == nil {
		return 0
	}
	return a.newHash().Size()
}

func (a AlgoSpec) iterations() int {
	return int(math.Pow10(a.Rounds))
}

// Key is one signing key together with its algorithm and the number of MAC
// bytes that end up in a cookie.
type Key struct {
	Secret []byte
	Algo   AlgoSpec
	Bytes  int
}

func (k Key) validate(setting string) error {
	if len(k.Secret) == 0 {
		return configError(setting+".key", ErrMissingKey)
	}
	if k.Algo.newHash == nil {
		return configError(setting+".algo", ErrUnsupportedAlgorithm)
	}
	if k.Bytes <= 0 || k.Bytes > k.Algo.Size() {
		return configError(setting+".bytes", fmt.Errorf("mac size %d must be between 1 and %d", k.Bytes, k.Algo.Size()))
	}
	return nil
}

func (k Key) mac(data []byte) []byte {
	if k.Algo.KDF {
		// Items are the password, the secret key is the salt
		return pbkdf2.Key(data, k.Secret, k.Algo.iterations(), k.Algo.Size(), k.Algo.newHash)
	}
	h := hmac.New(k.Algo.newHash, k.Secret)
	h.Write(data)
	return h.Sum(nil)
}

// KeyRing holds the current key and an optional rollover key. It is
// immutable once built and safe for concurrent use.
type KeyRing struct {
	current  Key
	rollover *Key
}

// NewKeyRing validates the keys and builds a ring. rollover may be nil.
func NewKeyRing(current Key, rollover *Key) (*KeyRing, error) {
	if err := current.validate("hmac"); err != nil {
		return nil, err
	}
	ring := &KeyRing{current: cloneKey(current)}
	if rollover != nil {
		if err := rollover.validate("hmac_rollover"); err != nil {
			return nil, err
		}
		r := cloneKey(*rollover)
		ring.rollover = &r
	}
	return ring, nil
}

func cloneKey(k Key) Key {
	k.Secret = append([]byte(nil), k.Secret...)
	return k
}

// HasRollover reports whether a rollover key is configured
func (r *KeyRing) HasRollover() bool {
	return r.rollover != nil
}

// Current returns the algorithm and MAC size of the signing key
func (r *KeyRing) Current() (AlgoSpec, int) {
	return r.current.Algo, r.current.Bytes
}

// MACSize returns the cookie MAC size of the selected key
func (r *KeyRing) MACSize(useRollover bool) int {
	if useRollover {
		if r.rollover == nil {
			return 0
		}
		return r.rollover.Bytes
	}
	return r.current.Bytes
}

// MAC computes the raw MAC over the concatenation of items. The items are
// joined without a separator, so callers must keep field boundaries
// unambiguous. With useRollover and no rollover key it returns nil.
func (r *KeyRing) MAC(useRollover bool, items ...string) []byte {
	data := []byte(strings.Join(items, ""))
	if useRollover {
		if r.rollover == nil {
			return nil
		}
		return r.rollover.mac(data)
	}
	return r.current.mac(data)
}

// Digest computes a plain HMAC with the current key over the concatenated
// items, ignoring any KDF setting.
func (r *KeyRing) Digest(items ...string) []byte {
	h := hmac.New(r.current.Algo.newHash, r.current.Secret)
	for _, item := range items {
		h.Write([]byte(item))
	}
	return h.Sum(nil)
}
