package address

import (
	"encoding/hex"
	"regexp"
	"testing"
	"time"

	"github.com/mikey/tagmda/internal/cookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userAddress = "TestUser@example.com"

func newTestTagger(t *testing.T, confirmAddress string) *Tagger {
	t.Helper()
	secret, err := hex.DecodeString("d2b5f0e1c3a4968778695a4b3c2d1e0f11223344")
	require.NoError(t, err)
	algo, err := cookie.ParseAlgo("sha256", 0)
	require.NoError(t, err)
	engine, err := cookie.NewEngine(cookie.Settings{
		Current:        cookie.Key{Secret: secret, Algo: algo, Bytes: 5},
		EncodingCompat: true,
		Delimiter:      "-",
		DatedTimeout:   "5d",
	})
	require.NoError(t, err)
	return NewTagger(engine, Tags{
		Confirm: []string{"confirm"},
		Dated:   []string{"dated", "d"},
		Sender:  []string{"sender"},
		Keyword: []string{"keyword"},
	}, confirmAddress)
}

func TestTaggerAddresses(t *testing.T) {
	tg := newTestTagger(t, "")
	now := time.Unix(1262937386, 0)

	got, err := tg.ConfirmAddress(userAddress, 1262937386, 12345, "")
	require.NoError(t, err)
	assert.Equal(t, "TestUser-confirm-1262937386.12345.2zdhcok2@example.com", got)

	got, err = tg.DatedAddress(userAddress, now)
	require.NoError(t, err)
	assert.Equal(t, "TestUser-dated-1263369386.mfmlbesl@example.com", got)

	got, err = tg.DatedAddressFor(userAddress, now, "1m")
	require.NoError(t, err)
	assert.Equal(t, "TestUser-dated-1262937446.hca5or1u@example.com", got)

	got, err = tg.SenderAddress(userAddress, "Sender@EXAMPLE.org")
	require.NoError(t, err)
	assert.Equal(t, "TestUser-sender-kqbz3hxe@example.com", got)

	got, err = tg.KeywordAddress(userAddress, "keyword-test")
	require.NoError(t, err)
	assert.Equal(t, "TestUser-keyword-keyword?test.exrjyroi@example.com", got)

	got, err = tg.DatedAddress(userAddress, time.Now())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^TestUser-dated-\d{10}\.[0-9a-z]{8}@example\.com$`), got)

	_, err = tg.SenderAddress("broken", "x@y")
	assert.ErrorIs(t, err, ErrMalformedAddress)
}

func TestTaggerConfirmAddressOverride(t *testing.T) {
	tg := newTestTagger(t, "confirm@example.net")
	got, err := tg.ConfirmAddress(userAddress, 1262937386, 12345, "")
	require.NoError(t, err)
	assert.Equal(t, "confirm-confirm-1262937386.12345.2zdhcok2@example.net", got)
}

func TestTaggerCheck(t *testing.T) {
	tg := newTestTagger(t, "")
	before := time.Unix(1262937386, 0)
	after := time.Unix(1263369387, 0)

	tests := []struct {
		name    string
		addr    string
		sender  string
		now     time.Time
		kind    Kind
		valid   bool
		expired bool
	}{
		{"confirm", "TestUser-confirm-1262937386.12345.2zdhcok2@example.com", "", before, KindConfirm, true, false},
		{"confirm tampered pid", "TestUser-confirm-1262937386.12346.2zdhcok2@example.com", "", before, KindConfirm, false, false},
		{"confirm truncated", "TestUser-confirm-1262937386@example.com", "", before, KindConfirm, false, false},
		{"dated fresh", "TestUser-dated-1263369386.mfmlbesl@example.com", "", before, KindDated, true, false},
		{"dated expired", "TestUser-dated-1263369386.mfmlbesl@example.com", "", after, KindDated, true, true},
		{"dated alias tag", "TestUser-d-1263369386.mfmlbesl@example.com", "", before, KindDated, true, false},
		{"dated garbage", "TestUser-dated-soon.mfmlbesl@example.com", "", before, KindDated, false, false},
		{"sender match", "TestUser-sender-kqbz3hxe@example.com", "SENDER@example.org", before, KindSender, true, false},
		{"sender mismatch", "TestUser-sender-kqbz3hxe@example.com", "other@example.org", before, KindSender, false, false},
		{"sender missing", "TestUser-sender-kqbz3hxe@example.com", "", before, KindSender, false, false},
		{"keyword", "TestUser-keyword-keyword?test.exrjyroi@example.com", "", before, KindKeyword, true, false},
		{"keyword altered case", "TestUser-keyword-KEYWORD?TEST.EXRJYROI@example.com", "", before, KindKeyword, true, false},
		{"keyword without mac", "TestUser-keyword-nomac@example.com", "", before, KindKeyword, false, false},
		{"untagged", "TestUser@example.com", "", before, KindNone, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tg.Check(tt.addr, tt.sender, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.expired, res.Expired)
		})
	}

	_, err := tg.Check("no-at-sign", "", before)
	assert.ErrorIs(t, err, ErrMalformedAddress)
}
