package csrf

import (
	"crypto/rand"
	"net/http"

	"go.uber.org/zap"
)

// Default names used when the corresponding Config field is empty.
const (
	DefaultCookieName = "csrf-token"
	DefaultHeaderName = "x-csrf-token"
	DefaultBodyField  = "_csrf"

	defaultTokenBytes = 32
	defaultKeyBytes   = 32
)

type Config struct {
	// Cookie
	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
	CookieMaxAge   int  // in seconds
	CookieHTTPOnly bool // keep false: the client echoes the cookie value back

	// Token transport
	HeaderName string // e.g.: "x-csrf-token"
	BodyField  string // e.g.: "_csrf", read from form or JSON bodies

	// Signing key for the HMAC. Random per Protector when empty.
	SecretKey []byte

	// Extra security
	EnforceOriginCheck bool
	AllowedOrigin      string // if empty, uses r.Host

	// Entropy of the secret segment
	TokenBytes int

	// Hooks
	Logger       *zap.Logger
	Reporter     Reporter
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err *Error)
}

// Protector holds an immutable Config and serves as the CSRF guard.
// It is safe for concurrent use.
type Protector struct {
	cfg Config
	key []byte
	log *zap.Logger
	rep Reporter
}

// New builds a Protector from cfg, filling unset fields with defaults.
//
// Params:
// - cfg: guard configuration; SecretKey is copied, so later changes by the caller are ignored.
//
// Returns:
// - a ready *Protector.
//
// New panics if SecretKey is empty and the system random source fails.
func New(cfg Config) *Protector {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.BodyField == "" {
		cfg.BodyField = DefaultBodyField
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.TokenBytes <= 0 {
		cfg.TokenBytes = defaultTokenBytes
	}
	if cfg.CookieSameSite == 0 {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	key := make([]byte, len(cfg.SecretKey))
	copy(key, cfg.SecretKey)
	if len(key) == 0 {
		key = make([]byte, defaultKeyBytes)
		if _, err := rand.Read(key); err != nil {
			panic("csrf: generating secret key: " + err.Error())
		}
	}
	cfg.SecretKey = nil

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rep := cfg.Reporter
	if rep == nil {
		rep = nopReporter{}
	}

	return &Protector{
		cfg: cfg,
		key: key,
		log: log.Named("csrf"),
		rep: rep,
	}
}

// CookieName returns the configured token cookie name.
func (p *Protector) CookieName() string { return p.cfg.CookieName }

// HeaderName returns the configured request header carrying the token.
func (p *Protector) HeaderName() string { return p.cfg.HeaderName }

// BodyField returns the configured body field carrying the token.
func (p *Protector) BodyField() string { return p.cfg.BodyField }
