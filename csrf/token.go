package csrf

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// maxJSONTokenBody bounds how much of a JSON body is buffered to look for the token field.
const maxJSONTokenBody = 1 << 20

// NewToken mints a signed token of the form "<secret>.<signature>".
//
// Returns:
// - the token, or an error if the random source fails.
func (p *Protector) NewToken() (string, error) {
	b := make([]byte, p.cfg.TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(b)
	return secret + "." + p.sign(secret), nil
}

// Verify checks that tok was signed with this Protector's key.
//
// Returns:
// - nil for a valid token, ErrTokenMissing for an empty one, ErrTokenInvalid otherwise.
func (p *Protector) Verify(tok string) error {
	if tok == "" {
		return ErrTokenMissing
	}
	secret, sig, ok := splitToken(tok)
	if !ok {
		return ErrTokenInvalid
	}
	if !hmac.Equal([]byte(sig), []byte(p.sign(secret))) {
		return ErrTokenInvalid
	}
	return nil
}

func (p *Protector) sign(secret string) string {
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// splitToken accepts exactly "<hex>.<hex>" with both segments non-empty.
func splitToken(tok string) (secret, sig string, ok bool) {
	secret, sig, found := strings.Cut(tok, ".")
	if !found || !isHex(secret) || !isHex(sig) {
		return "", "", false
	}
	return secret, sig, true
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// extractClientToken returns the first non-empty candidate: header, then body field.
func extractClientToken(r *http.Request, headerName, bodyField string) string {
	if h := strings.TrimSpace(r.Header.Get(headerName)); h != "" {
		return h
	}
	return bodyToken(r, bodyField)
}

func bodyToken(r *http.Request, field string) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		// parsed values stay on r.Form / r.PostForm for downstream handlers
		return strings.TrimSpace(r.PostFormValue(field))
	case "application/json":
		return jsonBodyToken(r, field)
	}
	return ""
}

// jsonBodyToken reads the body, restores it for the next handler and looks up field
// in a top-level JSON object.
func jsonBodyToken(r *http.Request, field string) string {
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxJSONTokenBody+1))
	if err != nil || len(buf) > maxJSONTokenBody {
		r.Body = readCloser{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
		return ""
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf))

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(buf, &obj); err != nil {
		return ""
	}
	raw, ok := obj[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// sameSite reports whether the Origin/Referer value points at allowedHost.
func sameSite(originOrRef, allowedHost string) bool {
	u, err := url.Parse(originOrRef)
	if err != nil {
		return false
	}
	return u.Host != "" && strings.EqualFold(u.Host, allowedHost)
}
