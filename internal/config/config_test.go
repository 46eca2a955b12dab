package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/tagmda/internal/cookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "d2b5f0e1c3a4968778695a4b3c2d1e0f11223344"

func newTestConfig(t *testing.T, values map[string]any) *Config {
	t.Helper()
	v := NewEmptyViper()
	for k, val := range values {
		v.Set(k, val)
	}
	return NewFromViper(v)
}

func TestDefaults(t *testing.T) {
	cfg := newTestConfig(t, nil)

	assert.Equal(t, "sha256", cfg.GetString("hmac.algo"))
	assert.Equal(t, 5, cfg.GetInt("hmac.bytes"))
	assert.Equal(t, 3, cfg.GetInt("hmac.bytes_rollover"))
	assert.True(t, cfg.GetBool("hmac.encoding_compat"))
	assert.Equal(t, "5d", cfg.GetString("dated.timeout"))

	p := cfg.GetPending()
	assert.Equal(t, 5000, p.Cache.Len)
	assert.True(t, p.WhitelistRelease)
	assert.False(t, p.BlacklistDelete)

	assert.Equal(t, []string{"confirm"}, cfg.GetTags().Confirm)
}

func TestNewReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagmda.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hmac:\n  bytes: 8\npending:\n  cache:\n    len: 10\n"), 0o600))

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.GetInt("hmac.bytes"))
	assert.Equal(t, 10, cfg.GetPending().Cache.Len)
	assert.Equal(t, "sha1", cfg.GetString("hmac.algo_rollover"))
}

func TestNewMissingExplicitFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCookieSettingsInlineKey(t *testing.T) {
	cfg := newTestConfig(t, map[string]any{"crypt.key": testKeyHex})

	settings, err := cfg.CookieSettings()
	require.NoError(t, err)
	assert.Len(t, settings.Current.Secret, 20)
	assert.Equal(t, "sha256", settings.Current.Algo.String())
	assert.Nil(t, settings.Rollover)

	engine, err := cfg.CookieEngine()
	require.NoError(t, err)
	assert.Equal(t, "2zdhcok2", engine.ConfirmMAC(1262937386, 12345, ""))
}

func TestCookieSettingsKeyFiles(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "crypt_key")
	rolloverFile := filepath.Join(dir, "crypt_key_rollover")
	require.NoError(t, os.WriteFile(keyFile, []byte(testKeyHex+"\n"), 0o600))
	require.NoError(t, os.WriteFile(rolloverFile, []byte("a1b2c3d4e5f60718293a4b5c6d7e8f9001122334\n"), 0o600))

	cfg := newTestConfig(t, map[string]any{
		"crypt.key_file":          keyFile,
		"crypt.key_rollover_file": rolloverFile,
	})
	settings, err := cfg.CookieSettings()
	require.NoError(t, err)
	require.NotNil(t, settings.Rollover)
	assert.Equal(t, "sha1", settings.Rollover.Algo.String())
	assert.Equal(t, 3, settings.Rollover.Bytes)
}

func TestCookieSettingsErrors(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		setting string
	}{
		{"missing key", nil, "crypt.key"},
		{"bad hex", map[string]any{"crypt.key": "zz"}, "crypt.key"},
		{"missing file", map[string]any{"crypt.key_file": "/nonexistent/key"}, "crypt.key_file"},
		{"bad algo", map[string]any{"crypt.key": testKeyHex, "hmac.algo": "rot13"}, "hmac.algo"},
		{"bad rollover algo", map[string]any{
			"crypt.key":          testKeyHex,
			"crypt.key_rollover": testKeyHex,
			"hmac.algo_rollover": "crc32",
		}, "hmac.algo_rollover"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestConfig(t, tc.values).CookieSettings()
			var cfgErr *cookie.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.setting, cfgErr.Setting)
		})
	}
}

func TestCookieEngineRejectsTimeout(t *testing.T) {
	cfg := newTestConfig(t, map[string]any{"crypt.key": testKeyHex, "dated.timeout": "5x"})

	_, err := cfg.CookieEngine()
	assert.ErrorIs(t, err, cookie.ErrInvalidTimeout)
}

func TestPendingSettings(t *testing.T) {
	cfg := newTestConfig(t, map[string]any{
		"pending.whitelist_append":  "/tmp/whitelist",
		"db.pending_release_append": "INSERT INTO released VALUES (:sender)",
		"identity.username":         "testuser",
		"identity.hostname":         "example.com",
		"pending.blacklist_delete":  true,
	})

	s := cfg.PendingSettings()
	assert.Equal(t, "/tmp/whitelist", s.Whitelist.File)
	assert.Equal(t, "INSERT INTO released VALUES (:sender)", s.Release.Statement)
	assert.Empty(t, s.Release.File)
	assert.True(t, s.BlacklistDelete)
	assert.Equal(t, "testuser@example.com", s.Identity.Recipient)
}

func TestGetRelease(t *testing.T) {
	cfg := newTestConfig(t, map[string]any{"release.smtp_port": 2525})

	r, err := cfg.GetRelease()
	require.NoError(t, err)
	assert.Equal(t, "localhost", r.Host)
	assert.Equal(t, 2525, r.Port)

	cfg.Set("release.timeout", "soon")
	_, err = cfg.GetRelease()
	assert.Error(t, err)
}
