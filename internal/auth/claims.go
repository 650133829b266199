package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the fields pbicli reads out of a Power BI access token
// for display and bookkeeping.
type TokenClaims struct {
	UPN      string `json:"upn,omitempty"`
	Name     string `json:"name,omitempty"`
	AppID    string `json:"appid,omitempty"`
	TenantID string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the claims of an access token without verifying its
// signature. Verification is the API's job; pbicli only reads display
// fields and the expiry from tokens Azure AD already issued.
func ParseClaims(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}
	return claims, nil
}

// Identity returns the most descriptive name available for the signed-in
// principal: the user principal name, then the display name, then the
// application id, then the subject.
func (c *TokenClaims) Identity() string {
	switch {
	case c.UPN != "":
		return c.UPN
	case c.Name != "":
		return c.Name
	case c.AppID != "":
		return c.AppID
	default:
		return c.Subject
	}
}

// Expiry returns the token's expiry time and whether one is present.
func (c *TokenClaims) Expiry() (time.Time, bool) {
	if c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}
