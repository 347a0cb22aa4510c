// Package csrf provides stateless CSRF protection for Go net/http servers
// using the double-submit cookie pattern with HMAC-signed tokens.
//
// Tokens have the form "<secret>.<signature>": secret is random hex and
// signature is the lowercase hex HMAC-SHA256 of secret under the Protector's
// key. Validation recomputes the signature and compares it in constant time,
// so the server keeps no token store. Rotating the key invalidates every
// token issued under the old one.
//
// How it works
//   - Safe methods (GET, HEAD, OPTIONS): pass through. If the client has no
//     valid token cookie one is minted, and the token is injected into the
//     request context (read it with TokenFromContext).
//   - Any other method: the token must be sent in the header (HeaderName) or,
//     failing that, in the body field (BodyField) of a form or JSON body.
//     Missing tokens are rejected with CSRF_TOKEN_MISSING, malformed or
//     badly signed ones with CSRF_TOKEN_INVALID, both as 403 with the body
//     {"success":false,"error":{"code":"...","message":"..."}}.
//
// # Configuration
//
// All behavior is driven by Config. Key fields include:
//   - CookieName (default: "csrf-token"), CookiePath, CookieDomain, CookieSecure,
//     CookieSameSite, CookieMaxAge, CookieHTTPOnly
//   - HeaderName (default: "x-csrf-token")
//   - BodyField (default: "_csrf")
//   - SecretKey (random per Protector when empty)
//   - EnforceOriginCheck and AllowedOrigin (empty means use the request host)
//   - TokenBytes (default: 32)
//   - Logger, Reporter and ErrorHandler hooks
//
// Typical usage
//
//	p := csrf.New(csrf.Config{SecretKey: key})
//	mux.Handle("GET /csrf-token", p.TokenHandler())
//	http.ListenAndServe(":8080", p.Protect(mux))
//
// The SPA fetches /csrf-token and echoes data.csrfToken in the x-csrf-token
// header on every state-changing request.
package csrf
