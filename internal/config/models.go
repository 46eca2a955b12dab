package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/mikey/tagmda/internal/adapters/release"
	"github.com/mikey/tagmda/internal/address"
	"github.com/mikey/tagmda/internal/cookie"
	"github.com/mikey/tagmda/internal/core"
)

// CacheConfig selects the processed-id cache store
type CacheConfig struct {
	Enabled bool
	Type    string
	Path    string
	Len     int
}

// PendingConfig represents the configuration of the pending queue
type PendingConfig struct {
	Dir              string
	ListsDir         string
	Cache            CacheConfig
	WhitelistAppend  string
	BlacklistAppend  string
	ReleaseAppend    string
	DeleteAppend     string
	WhitelistRelease bool
	BlacklistDelete  bool
	PreviewSize      int
}

// DatabaseConfig represents the database sink configuration
type DatabaseConfig struct {
	Driver          string
	DSN             string
	WhitelistAppend string
	BlacklistAppend string
	ReleaseAppend   string
	DeleteAppend    string
}

// MetricsConfig represents the metrics export configuration
type MetricsConfig struct {
	Textfile string
}

// GetPending returns the pending queue configuration
func (c *Config) GetPending() PendingConfig {
	return PendingConfig{
		Dir:      c.GetPath("pending.dir"),
		ListsDir: c.GetPath("pending.lists_dir"),
		Cache: CacheConfig{
			Enabled: c.GetBool("pending.cache.enabled"),
			Type:    c.GetString("pending.cache.type"),
			Path:    c.GetPath("pending.cache.path"),
			Len:     c.GetInt("pending.cache.len"),
		},
		WhitelistAppend:  c.GetPath("pending.whitelist_append"),
		BlacklistAppend:  c.GetPath("pending.blacklist_append"),
		ReleaseAppend:    c.GetPath("pending.release_append"),
		DeleteAppend:     c.GetPath("pending.delete_append"),
		WhitelistRelease: c.GetBool("pending.whitelist_release"),
		BlacklistDelete:  c.GetBool("pending.blacklist_delete"),
		PreviewSize:      c.GetInt("pending.preview_size"),
	}
}

// GetDatabase returns the database sink configuration
func (c *Config) GetDatabase() DatabaseConfig {
	return DatabaseConfig{
		Driver:          c.GetString("db.driver"),
		DSN:             c.GetString("db.dsn"),
		WhitelistAppend: c.GetString("db.pending_whitelist_append"),
		BlacklistAppend: c.GetString("db.pending_blacklist_append"),
		ReleaseAppend:   c.GetString("db.pending_release_append"),
		DeleteAppend:    c.GetString("db.pending_delete_append"),
	}
}

// GetIdentity returns the queue owner; the recipient defaults to
// username@hostname.
func (c *Config) GetIdentity() core.Identity {
	id := core.Identity{
		Recipient: c.GetString("identity.recipient"),
		Username:  c.GetString("identity.username"),
		Hostname:  c.GetString("identity.hostname"),
	}
	if id.Recipient == "" && id.Username != "" && id.Hostname != "" {
		id.Recipient = id.Username + "@" + id.Hostname
	}
	return id
}

// GetRelease returns the SMTP release configuration
func (c *Config) GetRelease() (release.Config, error) {
	timeout, err := c.GetDuration("release.timeout")
	if err != nil {
		return release.Config{}, fmt.Errorf("invalid release.timeout: %w", err)
	}
	return release.Config{
		Host:     c.GetString("release.smtp_host"),
		Port:     c.GetInt("release.smtp_port"),
		Username: c.GetString("release.username"),
		Password: c.GetString("release.password"),
		Helo:     c.GetString("release.helo"),
		Timeout:  timeout,
	}, nil
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{Textfile: c.GetPath("metrics.textfile")}
}

// GetTags returns the accepted tag names per family
func (c *Config) GetTags() address.Tags {
	return address.Tags{
		Confirm: c.GetStringSlice("tags.confirm"),
		Dated:   c.GetStringSlice("tags.dated"),
		Sender:  c.GetStringSlice("tags.sender"),
		Keyword: c.GetStringSlice("tags.keyword"),
	}
}

// PendingSettings assembles the sink targets and policies of the pending loop
func (c *Config) PendingSettings() core.PendingSettings {
	p := c.GetPending()
	db := c.GetDatabase()
	return core.PendingSettings{
		Whitelist:        core.SinkTarget{File: p.WhitelistAppend, Statement: db.WhitelistAppend},
		Blacklist:        core.SinkTarget{File: p.BlacklistAppend, Statement: db.BlacklistAppend},
		Release:          core.SinkTarget{File: p.ReleaseAppend, Statement: db.ReleaseAppend},
		Delete:           core.SinkTarget{File: p.DeleteAppend, Statement: db.DeleteAppend},
		WhitelistRelease: p.WhitelistRelease,
		BlacklistDelete:  p.BlacklistDelete,
		CacheLen:         p.Cache.Len,
		Identity:         c.GetIdentity(),
	}
}

// CookieSettings reads the key material and MAC settings. Problems are
// reported as *cookie.ConfigurationError.
func (c *Config) CookieSettings() (cookie.Settings, error) {
	secret, err := c.keyMaterial("crypt.key", "crypt.key_file")
	if err != nil {
		return cookie.Settings{}, err
	}
	if secret == nil {
		return cookie.Settings{}, &cookie.ConfigurationError{Setting: "crypt.key", Err: cookie.ErrMissingKey}
	}
	current, err := c.key(secret, "hmac.algo", "hmac.rounds", "hmac.bytes")
	if err != nil {
		return cookie.Settings{}, err
	}

	settings := cookie.Settings{
		Current:        current,
		EncodingCompat: c.GetBool("hmac.encoding_compat"),
		Delimiter:      c.GetString("address.recipient_delimiter"),
		DatedTimeout:   c.GetString("dated.timeout"),
	}

	rolloverSecret, err := c.keyMaterial("crypt.key_rollover", "crypt.key_rollover_file")
	if err != nil {
		return cookie.Settings{}, err
	}
	if rolloverSecret != nil {
		rollover, err := c.key(rolloverSecret, "hmac.algo_rollover", "hmac.rounds_rollover", "hmac.bytes_rollover")
		if err != nil {
			return cookie.Settings{}, err
		}
		settings.Rollover = &rollover
	}
	return settings, nil
}

// CookieEngine builds the engine from CookieSettings
func (c *Config) CookieEngine() (*cookie.Engine, error) {
	settings, err := c.CookieSettings()
	if err != nil {
		return nil, err
	}
	return cookie.NewEngine(settings)
}

func (c *Config) key(secret []byte, algoKey, roundsKey, bytesKey string) (cookie.Key, error) {
	algo, err := cookie.ParseAlgo(c.GetString(algoKey), c.GetInt(roundsKey))
	if err != nil {
		return cookie.Key{}, &cookie.ConfigurationError{Setting: algoKey, Err: err}
	}
	return cookie.Key{Secret: secret, Algo: algo, Bytes: c.GetInt(bytesKey)}, nil
}

// keyMaterial returns the hex key set inline or in a file; nil when neither is set
func (c *Config) keyMaterial(inlineKey, fileKey string) ([]byte, error) {
	encoded, setting := c.GetString(inlineKey), inlineKey
	if encoded == "" {
		path := c.GetPath(fileKey)
		if path == "" {
			return nil, nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &cookie.ConfigurationError{Setting: fileKey, Err: fmt.Errorf("%w: %v", cookie.ErrMissingKey, err)}
		}
		encoded, setting = string(data), fileKey
	}
	secret, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, &cookie.ConfigurationError{Setting: setting, Err: fmt.Errorf("key is not hex: %w", err)}
	}
	if len(secret) == 0 {
		return nil, &cookie.ConfigurationError{Setting: setting, Err: cookie.ErrMissingKey}
	}
	return secret, nil
}
