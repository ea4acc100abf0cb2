// Package auth defines how stream sessions authenticate.
//
// Token issuance, hashing, and account management live in a separate
// service; this daemon only checks presented tokens against a validator.
package auth

// Authenticator validates a client-presented token.
type Authenticator interface {
	// Validate reports whether token is valid and, if so, the identity
	// bound to it.
	Validate(token string) (identity string, ok bool)
}

// AuthenticatorFunc is a function adapter for Authenticator.
type AuthenticatorFunc func(token string) (string, bool)

func (f AuthenticatorFunc) Validate(token string) (string, bool) {
	return f(token)
}

// StaticAuthenticator validates tokens against a fixed token→identity table.
// The table is read-only after construction, so lookups need no locking.
type StaticAuthenticator struct {
	tokens map[string]string
}

// NewStaticAuthenticator copies the given table into a validator.
func NewStaticAuthenticator(tokens map[string]string) *StaticAuthenticator {
	t := make(map[string]string, len(tokens))
	for token, identity := range tokens {
		t[token] = identity
	}
	return &StaticAuthenticator{tokens: t}
}

// Validate implements Authenticator.
func (a *StaticAuthenticator) Validate(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	identity, ok := a.tokens[token]
	return identity, ok
}
