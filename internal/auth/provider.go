// Package auth provides the OAuth providers, session tokens, and password
// hashing for the topnews front end.
//
// LOGIN FLOW OVERVIEW:
// 1. User visits /login/{provider} → redirected to the provider's consent page
// 2. The provider calls back /login/{provider}/callback with a code
// 3. The handler exchanges the code for a normalized Profile (this package)
// 4. The identity service reconciles the Profile against the user directory
// 5. The server issues a JWT session cookie for the resolved user
package auth

import (
	"context"

	"github.com/sakif/topnews/internal/apperror"
)

// Profile is the normalized identity a provider returns after a successful
// code exchange. It contains facts from the provider only — no directory
// lookups, no user creation. Reconciliation happens downstream.
type Profile struct {
	Provider   string // "twitter" or "github"
	ExternalID string // provider-scoped stable user identifier
	Name       string // display name; the internal id is derived from it
	Thumbnail  string // avatar URL
	URL        string // profile/blog URL (may be empty)
}

// Provider is the contract every external auth provider implements.
// Implementations return identity facts only and must not touch the user
// directory or the session.
type Provider interface {
	// Name returns the provider identifier used in login URLs.
	Name() string

	// AuthCodeURL returns the provider's authorization URL. State and the
	// PKCE challenge are generated by the caller, which owns the cookies
	// that carry them across the redirect.
	AuthCodeURL(state, codeChallenge string) string

	// Exchange trades the authorization code for a normalized Profile.
	Exchange(ctx context.Context, code, codeVerifier string) (*Profile, error)
}

// Registry holds the configured providers, looked up by name.
// The provider set is closed: a name that was never registered is an
// unsupported provider, not a fallback.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registers the given providers by name. Names must be unique.
func NewRegistry(list ...Provider) *Registry {
	m := make(map[string]Provider)
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider by name, or an UnsupportedProvider error.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperror.UnsupportedProvider(name)
	}
	return p, nil
}

// Names returns the registered provider names, for the login page.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
