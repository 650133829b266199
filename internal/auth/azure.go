package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// PowerBIScope is the target scope for Power BI REST APIs.
const PowerBIScope = "https://analysis.windows.net/powerbi/api/.default"

// DefaultPublicClientID is the well-known Azure CLI public client,
// used for the device code flow when a profile does not configure its
// own application.
const DefaultPublicClientID = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"

// Method selects how a token is acquired.
type Method string

const (
	// MethodCLI reuses the token context of a signed-in Azure CLI.
	MethodCLI Method = "cli"
	// MethodDeviceCode runs the interactive device code flow.
	MethodDeviceCode Method = "device-code"
)

// Authenticator acquires Power BI access tokens from Azure AD.
type Authenticator struct {
	cred     azcore.TokenCredential
	profile  string
	tenantID string
	clientID string
}

// AuthenticatorOptions configures NewAuthenticator.
type AuthenticatorOptions struct {
	// Profile names the configuration profile the credential is stored under.
	Profile string
	// TenantID scopes sign-in to one directory. Empty uses the account default.
	TenantID string
	// ClientID is the Azure AD application to sign in as. Empty uses
	// DefaultPublicClientID for the device code flow.
	ClientID string
	// Prompt receives the device code instructions to display to the user.
	// Only used by MethodDeviceCode.
	Prompt func(message string)
}

// NewAuthenticator creates an authenticator for the given method.
func NewAuthenticator(method Method, opts AuthenticatorOptions) (*Authenticator, error) {
	a := &Authenticator{
		profile:  opts.Profile,
		tenantID: opts.TenantID,
		clientID: opts.ClientID,
	}

	switch method {
	case MethodCLI:
		cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
			TenantID: opts.TenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure CLI credential: %w", err)
		}
		a.cred = cred
	case MethodDeviceCode:
		clientID := opts.ClientID
		if clientID == "" {
			clientID = DefaultPublicClientID
		}
		a.clientID = clientID

		cred, err := azidentity.NewDeviceCodeCredential(&azidentity.DeviceCodeCredentialOptions{
			TenantID: opts.TenantID,
			ClientID: clientID,
			UserPrompt: func(_ context.Context, dc azidentity.DeviceCodeMessage) error {
				if opts.Prompt != nil {
					opts.Prompt(dc.Message)
				}
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create device code credential: %w", err)
		}
		a.cred = cred
	default:
		return nil, fmt.Errorf("unknown auth method %q", method)
	}

	return a, nil
}

// Acquire requests a Power BI access token and packages it as a storable
// credential. For the device code flow this blocks until the user
// completes sign-in or ctx is done.
func (a *Authenticator) Acquire(ctx context.Context) (*Credential, error) {
	token, err := a.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{PowerBIScope},
	})
	if err != nil {
		return nil, fmt.Errorf("acquiring token: %w", err)
	}

	cred := &Credential{
		Profile:     a.profile,
		AccessToken: token.Token,
		TenantID:    a.tenantID,
		ClientID:    a.clientID,
		AcquiredAt:  time.Now(),
		ExpiresAt:   token.ExpiresOn,
	}

	if claims, claimsErr := ParseClaims(token.Token); claimsErr == nil {
		cred.Identity = claims.Identity()
		if cred.TenantID == "" {
			cred.TenantID = claims.TenantID
		}
	}

	return cred, nil
}
