package csrf

import "context"

type ctxKey struct{}

// ctxToken is what the middleware stores for the request.
// minted is true when the token cookie was set while handling this request.
type ctxToken struct {
	value  string
	minted bool
}

func contextWithToken(ctx context.Context, tok string, minted bool) context.Context {
	return context.WithValue(ctx, ctxKey{}, ctxToken{value: tok, minted: minted})
}

func tokenFromContext(ctx context.Context) (ctxToken, bool) {
	v, ok := ctx.Value(ctxKey{}).(ctxToken)
	return v, ok
}

// TokenFromContext returns the CSRF token stored in ctx by Protect, if present.
//
// Params:
// - ctx: context potentially containing a token set by the middleware.
//
// Returns:
// - token (string) and a boolean indicating whether a token was found.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := tokenFromContext(ctx)
	if !ok || t.value == "" {
		return "", false
	}
	return t.value, true
}
