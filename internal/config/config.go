package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. An explicit file replaces the
// search path and must exist.
func New(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/tagmda/")
		v.AddConfigPath("$HOME/.tmda")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("TMDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Key material has no default
	v.SetDefault("crypt.key", "")
	v.SetDefault("crypt.key_file", "")
	v.SetDefault("crypt.key_rollover", "")
	v.SetDefault("crypt.key_rollover_file", "")

	// MAC defaults
	v.SetDefault("hmac.algo", "sha256")
	v.SetDefault("hmac.rounds", 0)
	v.SetDefault("hmac.bytes", 5)
	v.SetDefault("hmac.algo_rollover", "sha1")
	v.SetDefault("hmac.rounds_rollover", 0)
	v.SetDefault("hmac.bytes_rollover", 3)
	v.SetDefault("hmac.encoding_compat", true)

	// Address defaults
	v.SetDefault("address.recipient_delimiter", "-")
	v.SetDefault("address.confirm_address", "")
	v.SetDefault("tags.confirm", []string{"confirm"})
	v.SetDefault("tags.dated", []string{"dated"})
	v.SetDefault("tags.sender", []string{"sender"})
	v.SetDefault("tags.keyword", []string{"keyword"})
	v.SetDefault("dated.timeout", "5d")

	// Pending queue defaults
	v.SetDefault("pending.dir", "$HOME/.tmda/pending")
	v.SetDefault("pending.lists_dir", "")
	v.SetDefault("pending.cache.enabled", false)
	v.SetDefault("pending.cache.type", "file")
	v.SetDefault("pending.cache.path", "$HOME/.tmda/pending/.cache")
	v.SetDefault("pending.cache.len", 5000)
	v.SetDefault("pending.whitelist_append", "")
	v.SetDefault("pending.blacklist_append", "")
	v.SetDefault("pending.release_append", "")
	v.SetDefault("pending.delete_append", "")
	v.SetDefault("pending.whitelist_release", true)
	v.SetDefault("pending.blacklist_delete", false)
	v.SetDefault("pending.preview_size", 2048)

	// Database defaults
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.pending_whitelist_append", "")
	v.SetDefault("db.pending_blacklist_append", "")
	v.SetDefault("db.pending_release_append", "")
	v.SetDefault("db.pending_delete_append", "")

	// Identity defaults
	v.SetDefault("identity.username", os.Getenv("USER"))
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	v.SetDefault("identity.hostname", hostname)
	v.SetDefault("identity.recipient", "")

	// Release defaults
	v.SetDefault("release.smtp_host", "localhost")
	v.SetDefault("release.smtp_port", 25)
	v.SetDefault("release.username", "")
	v.SetDefault("release.password", "")
	v.SetDefault("release.helo", "")
	v.SetDefault("release.timeout", "30s")

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetPath gets a string value with environment variables expanded
func (c *Config) GetPath(key string) string {
	return os.ExpandEnv(c.v.GetString(key))
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// Set overrides a value, used for command-line flags
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
