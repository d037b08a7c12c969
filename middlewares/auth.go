package middlewares

import (
	"errors"

	"github.com/dmitrymomot/treeserve/internal"
)

// ErrInvalidToken is returned by token validators to reject a credential.
var ErrInvalidToken = errors.New("invalid token")

// DefaultPrincipalKey is the request state key the authenticated principal is stored under.
const DefaultPrincipalKey = "user"

// TokenValidator resolves a token to the principal it authenticates.
// Returning ErrInvalidToken (or any error wrapping it) yields a 401;
// other errors abort the request as server errors.
type TokenValidator func(c internal.Context, token string) (any, error)

// AuthConfig configures the token authentication middleware.
type AuthConfig struct {
	Extractor    internal.Extractor
	Key          string
	extractorSet bool
}

// AuthOption configures AuthConfig.
type AuthOption func(*AuthConfig)

// WithAuthExtractor sets a custom token extractor chain.
func WithAuthExtractor(ext internal.Extractor) AuthOption {
	return func(cfg *AuthConfig) {
		cfg.Extractor = ext
		cfg.extractorSet = true
	}
}

// WithAuthKey sets the request state key the principal is stored under.
func WithAuthKey(key string) AuthOption {
	return func(cfg *AuthConfig) {
		cfg.Key = key
	}
}

// TokenAuth returns middleware that extracts a token from the request,
// resolves it with validate and stores the principal in the request state.
// The default extractor reads a Bearer token from the Authorization header.
// Missing or rejected tokens short-circuit the chain with a 401.
func TokenAuth(validate TokenValidator, opts ...AuthOption) internal.MiddlewareFunc {
	cfg := &AuthConfig{Key: DefaultPrincipalKey}
	for _, opt := range opts {
		opt(cfg)
	}

	if !cfg.extractorSet {
		cfg.Extractor = internal.NewExtractor(
			internal.FromBearerToken(),
		)
	}

	return func(c internal.Context, next internal.Next) (any, error) {
		token, ok := cfg.Extractor.Extract(c)
		if !ok {
			return nil, internal.ErrUnauthorized("Unauthorized")
		}

		principal, err := validate(c, token)
		switch {
		case errors.Is(err, ErrInvalidToken):
			return nil, internal.ErrUnauthorized("Unauthorized")
		case err != nil:
			return nil, err
		}

		c.Set(cfg.Key, principal)
		return next()
	}
}

// StaticToken returns a validator accepting exactly token and resolving it to principal.
func StaticToken(token string, principal any) TokenValidator {
	return func(_ internal.Context, got string) (any, error) {
		if got != token {
			return nil, ErrInvalidToken
		}
		return principal, nil
	}
}
