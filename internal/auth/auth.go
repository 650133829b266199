// Package auth acquires and stores Azure AD access tokens for the Power BI
// REST API. Tokens come from the Azure CLI's context or an interactive
// device code flow and are persisted per profile in
// ~/.pbicli/credentials.json.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Errors surfaced to commands that need a signed-in user.
var (
	// ErrNotLoggedIn indicates no credential is stored for the profile.
	ErrNotLoggedIn = errors.New("not logged in, run 'pbicli auth login'")
	// ErrTokenExpired indicates the stored credential has expired.
	ErrTokenExpired = errors.New("access token expired, run 'pbicli auth login'")
)

// Credential is one stored access token with its lifetime and the
// tenant/app pair it was issued for.
type Credential struct {
	Profile     string    `json:"profile"`
	AccessToken string    `json:"access_token"`
	TenantID    string    `json:"tenant_id,omitempty"`
	ClientID    string    `json:"client_id,omitempty"`
	Identity    string    `json:"identity,omitempty"`
	AcquiredAt  time.Time `json:"acquired_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the credential's lifetime has passed. A small
// margin keeps requests from being signed with a token that dies in
// flight.
func (c *Credential) Expired(now time.Time) bool {
	const margin = 2 * time.Minute
	return !c.ExpiresAt.IsZero() && now.Add(margin).After(c.ExpiresAt)
}

// CredentialFromToken packages a pre-acquired bearer token as a storable
// credential. Identity, tenant, and expiry are filled from the token's
// claims when it parses as a JWT; an opaque token is stored as-is with no
// expiry.
func CredentialFromToken(profile, token string) (*Credential, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}

	cred := &Credential{
		Profile:     profile,
		AccessToken: token,
		AcquiredAt:  time.Now(),
	}

	if claims, err := ParseClaims(token); err == nil {
		cred.Identity = claims.Identity()
		cred.TenantID = claims.TenantID
		if expiry, ok := claims.Expiry(); ok {
			cred.ExpiresAt = expiry
		}
	}

	return cred, nil
}

// StoreTokenSource yields bearer tokens from the credential store. It is
// the token source commands hand to the API client.
type StoreTokenSource struct {
	store   *Store
	profile string
	now     func() time.Time
}

// NewStoreTokenSource creates a token source reading the named profile's
// credential from store.
func NewStoreTokenSource(store *Store, profile string) *StoreTokenSource {
	return &StoreTokenSource{
		store:   store,
		profile: profile,
		now:     time.Now,
	}
}

// Token returns the stored access token for the profile. It fails with
// ErrNotLoggedIn when no credential exists and ErrTokenExpired when the
// stored one is stale.
func (s *StoreTokenSource) Token(_ context.Context) (string, error) {
	cred, ok := s.store.Get(s.profile)
	if !ok {
		return "", fmt.Errorf("profile %s: %w", s.profile, ErrNotLoggedIn)
	}
	if cred.Expired(s.now()) {
		return "", fmt.Errorf("profile %s: %w", s.profile, ErrTokenExpired)
	}
	return cred.AccessToken, nil
}
