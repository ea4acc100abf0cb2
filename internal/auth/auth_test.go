package auth

import "testing"

func TestStaticAuthenticator(t *testing.T) {
	a := NewStaticAuthenticator(map[string]string{
		"tok-alice": "alice",
		"tok-bob":   "bob",
	})

	tests := []struct {
		name         string
		token        string
		wantIdentity string
		wantOK       bool
	}{
		{"known token", "tok-alice", "alice", true},
		{"another known token", "tok-bob", "bob", true},
		{"unknown token", "tok-mallory", "", false},
		{"empty token", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, ok := a.Validate(tt.token)
			if ok != tt.wantOK {
				t.Errorf("Validate(%q) ok = %v, want %v", tt.token, ok, tt.wantOK)
			}
			if identity != tt.wantIdentity {
				t.Errorf("Validate(%q) identity = %q, want %q", tt.token, identity, tt.wantIdentity)
			}
		})
	}
}

func TestStaticAuthenticatorCopiesTable(t *testing.T) {
	source := map[string]string{"tok": "user"}
	a := NewStaticAuthenticator(source)

	// Mutating the source table must not affect the validator.
	source["late"] = "other"
	if _, ok := a.Validate("late"); ok {
		t.Error("token added after construction was accepted")
	}
}

func TestAuthenticatorFunc(t *testing.T) {
	a := AuthenticatorFunc(func(token string) (string, bool) {
		if token == "yes" {
			return "someone", true
		}
		return "", false
	})

	if identity, ok := a.Validate("yes"); !ok || identity != "someone" {
		t.Errorf("Validate(yes) = (%q, %v), want (someone, true)", identity, ok)
	}
	if _, ok := a.Validate("no"); ok {
		t.Error("Validate(no) accepted")
	}
}
