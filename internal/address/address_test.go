package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	got, err := Embed("TestUser@example.com", "-", "confirm", "1262937386.12345.2zdhcok2")
	require.NoError(t, err)
	assert.Equal(t, "TestUser-confirm-1262937386.12345.2zdhcok2@example.com", got)

	_, err = Embed("no-at-sign", "-", "dated", "x")
	assert.ErrorIs(t, err, ErrMalformedAddress)

	_, err = Embed("a@b@c", "-", "dated", "x")
	assert.ErrorIs(t, err, ErrMalformedAddress)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		addr   string
		want   Tagged
		tagged bool
	}{
		{
			name:   "confirm",
			addr:   "TestUser-confirm-1262937386.12345.2zdhcok2@example.com",
			want:   Tagged{"TestUser", "-", "confirm", "1262937386.12345.2zdhcok2", "example.com"},
			tagged: true,
		},
		{
			name:   "local part containing delimiter",
			addr:   "test-user-dated-1263369386.mfmlbesl@example.com",
			want:   Tagged{"test-user", "-", "dated", "1263369386.mfmlbesl", "example.com"},
			tagged: true,
		},
		{
			name:   "tag case is preserved",
			addr:   "bob-KEYWORD-Hello.abc@example.com",
			want:   Tagged{"bob", "-", "KEYWORD", "Hello.abc", "example.com"},
			tagged: true,
		},
		{
			name: "untagged",
			addr: "plain@example.com",
		},
		{
			name: "unknown tag",
			addr: "bob-other-x@example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := Extract(tt.addr, "-", "confirm", "dated", "sender", "keyword")
			require.NoError(t, err)
			assert.Equal(t, tt.tagged, ok)
			if tt.tagged {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.addr, got.String())
			}
		})
	}

	_, _, err := Extract("nobody", "-", "confirm")
	assert.ErrorIs(t, err, ErrMalformedAddress)
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	for _, cookie := range []string{"abc", "1.2.3", "x?y", "KeyWord.mac"} {
		addr, err := Embed("user.name@example.org", "+", "sender", cookie)
		require.NoError(t, err)
		tagged, ok, err := Extract(addr, "+", "sender")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, cookie, tagged.Cookie)
		assert.Equal(t, addr, tagged.String())
	}
}

func TestUnwrap(t *testing.T) {
	u := DefaultUnwrapper()
	tests := []struct {
		in   string
		want string
	}{
		{"return.path.1@example.com", "return.path.1@example.com"},
		{"prvs=BATV-tag=return.path.2@example.com", "return.path.2@example.com"},
		{"PRVS=0123456789=bob@example.com", "bob@example.com"},
		{"msprvs1=1234abcd=bob@example.com", "bob@example.com"},
		{"prvs=bob/0123456789@example.com", "bob@example.com"},
		{"btv1==abc123==bob@example.com", "bob@example.com"},
		{"SRS0=SRS-tag=example.com=return.path.3@example.org", "return.path.3@example.com"},
		{"SRS0=HHH=TT=orig.example=alice@forwarder.example", "alice@orig.example"},
		{"SRS0+HHH=TT=orig.example=al=ice@forwarder.example", "al=ice@orig.example"},
		{"SRS1=HHH=first.example==HHH=TT=orig.example=alice@second.example", "alice@orig.example"},
		{"SRS0=broken@forwarder.example", "SRS0=broken@forwarder.example"},
		{"prvs@example.com", "prvs@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, u.Unwrap(tt.in), tt.in)
	}
}

func TestUnwrapNested(t *testing.T) {
	u := DefaultUnwrapper()
	assert.Equal(t, "bob@orig.example", u.Unwrap("prvs=tag=SRS0=HHH=TT=orig.example=bob@fwd.example"))
}

func TestUnwrapperRegister(t *testing.T) {
	u := NewUnwrapper()
	assert.Equal(t, "prvs=x=bob@example.com", u.Unwrap("prvs=x=bob@example.com"))

	u.Register("fwd.", func(payload, domain string) (string, string, bool) {
		return payload, "inner.example", true
	})
	assert.Equal(t, "bob@inner.example", u.Unwrap("FWD.bob@outer.example"))
}
