package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "dev", cfg.Log.Env)
	assert.Equal(t, "data/app.db", cfg.Database.Path)
	assert.Equal(t, "csrf-token", cfg.CSRF.CookieName)
	assert.Equal(t, "x-csrf-token", cfg.CSRF.HeaderName)
	assert.Equal(t, "_csrf", cfg.CSRF.BodyField)
	assert.Equal(t, 3600, cfg.CSRF.CookieMaxAge)

	key, err := cfg.CSRF.SecretKey()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "csrfguard.yaml")
	content := `
server:
  addr: ":9000"
csrf:
  header_name: x-custom-csrf
  cookie_samesite: strict
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CSRFGUARD_CSRF_COOKIE_NAME", "custom-csrf")
	t.Setenv("CSRFGUARD_CSRF_SECRET", "00112233445566778899aabbccddeeff")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "x-custom-csrf", cfg.CSRF.HeaderName)
	assert.Equal(t, "custom-csrf", cfg.CSRF.CookieName)

	ss, err := cfg.CSRF.SameSite()
	require.NoError(t, err)
	assert.Equal(t, http.SameSiteStrictMode, ss)

	key, err := cfg.CSRF.SecretKey()
	require.NoError(t, err)
	assert.Len(t, key, 16)
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"empty addr":       func(c *Config) { c.Server.Addr = " " },
		"negative timeout": func(c *Config) { c.Server.ReadTimeout = -time.Second },
		"empty db path":    func(c *Config) { c.Database.Path = "" },
		"non hex secret":   func(c *Config) { c.CSRF.Secret = "not-hex" },
		"short secret":     func(c *Config) { c.CSRF.Secret = "abcd" },
		"bad samesite":     func(c *Config) { c.CSRF.CookieSameSite = "sometimes" },
		"negative max age": func(c *Config) { c.CSRF.CookieMaxAge = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := *base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}
