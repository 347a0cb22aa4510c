// Package config loads the demo backend configuration from defaults, an
// optional config file, a .env file and CSRFGUARD_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CSRFGUARD_SERVER_ADDR.
const EnvPrefix = "CSRFGUARD"

// minSecretBytes is the shortest accepted csrf.secret once hex-decoded.
const minSecretBytes = 16

// Config holds all configuration for the demo backend.
type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Log struct {
		Env   string `mapstructure:"env"`   // dev | prod
		Level string `mapstructure:"level"` // debug | info | warn | error
	} `mapstructure:"log"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	CSRF CSRF `mapstructure:"csrf"`
}

// CSRF mirrors csrf.Config in a file/env friendly shape.
type CSRF struct {
	CookieName     string `mapstructure:"cookie_name"`
	HeaderName     string `mapstructure:"header_name"`
	BodyField      string `mapstructure:"body_field"`
	Secret         string `mapstructure:"secret"` // hex; empty = random per process
	CookieSecure   bool   `mapstructure:"cookie_secure"`
	CookieSameSite string `mapstructure:"cookie_samesite"` // lax | strict | none
	CookieMaxAge   int    `mapstructure:"cookie_max_age"`  // seconds
	EnforceOrigin  bool   `mapstructure:"enforce_origin"`
	AllowedOrigin  string `mapstructure:"allowed_origin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("log.env", "dev")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.path", "data/app.db")

	v.SetDefault("csrf.cookie_name", "csrf-token")
	v.SetDefault("csrf.header_name", "x-csrf-token")
	v.SetDefault("csrf.body_field", "_csrf")
	v.SetDefault("csrf.secret", "")
	v.SetDefault("csrf.cookie_secure", false)
	v.SetDefault("csrf.cookie_samesite", "lax")
	v.SetDefault("csrf.cookie_max_age", 3600)
	v.SetDefault("csrf.enforce_origin", false)
	v.SetDefault("csrf.allowed_origin", "")
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and the environment are consulted.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New("config: server timeouts must not be negative")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("config: database.path is required")
	}
	if _, err := c.CSRF.SecretKey(); err != nil {
		return err
	}
	if _, err := c.CSRF.SameSite(); err != nil {
		return err
	}
	if c.CSRF.CookieMaxAge < 0 {
		return errors.New("config: csrf.cookie_max_age must not be negative")
	}
	return nil
}

// SecretKey decodes csrf.secret. A nil key means "generate one at startup".
func (c CSRF) SecretKey() ([]byte, error) {
	if c.Secret == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Secret)
	if err != nil {
		return nil, fmt.Errorf("config: csrf.secret must be hex: %w", err)
	}
	if len(key) < minSecretBytes {
		return nil, fmt.Errorf("config: csrf.secret must be at least %d bytes, got %d", minSecretBytes, len(key))
	}
	return key, nil
}

// SameSite maps csrf.cookie_samesite to http.SameSite.
func (c CSRF) SameSite() (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(c.CookieSameSite)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("config: unknown csrf.cookie_samesite %q", c.CookieSameSite)
	}
}
