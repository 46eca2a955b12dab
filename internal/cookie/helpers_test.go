package cookie

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testKey         = "d2b5f0e1c3a4968778695a4b3c2d1e0f11223344"
	testRolloverKey = "a1b2c3d4e5f60718293a4b5c6d7e8f9001122334"
	testTime        = int64(1262937386)
	testPID         = 12345
)

func mustKey(t *testing.T, secret, algo string, rounds, size int) Key {
	t.Helper()
	raw, err := hex.DecodeString(secret)
	require.NoError(t, err)
	spec, err := ParseAlgo(algo, rounds)
	require.NoError(t, err)
	return Key{Secret: raw, Algo: spec, Bytes: size}
}

func testSettings(t *testing.T, withRollover bool) Settings {
	t.Helper()
	s := Settings{
		Current:        mustKey(t, testKey, "sha256", 0, 5),
		EncodingCompat: true,
		Delimiter:      "-",
		DatedTimeout:   "5d",
	}
	if withRollover {
		r := mustKey(t, testRolloverKey, "sha1", 0, 3)
		s.Rollover = &r
	}
	return s
}

func newTestEngine(t *testing.T, withRollover bool) *Engine {
	t.Helper()
	e, err := NewEngine(testSettings(t, withRollover))
	require.NoError(t, err)
	return e
}
