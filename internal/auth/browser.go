package auth

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"azpim/internal/logging"
	"azpim/internal/models"
)

// interactiveCredential is the part of azidentity.InteractiveBrowserCredential we use
type interactiveCredential interface {
	Authenticate(ctx context.Context, opts *policy.TokenRequestOptions) (azidentity.AuthenticationRecord, error)
	GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error)
}

// BrowserAuthenticator signs the user in through the system browser
type BrowserAuthenticator struct {
	authorityHost string
	scope         string
	out           io.Writer
	logger        *logging.Logger
	newCredential func(tenantID, authorityHost string) (interactiveCredential, error)
}

// NewBrowserAuthenticator creates an authenticator for the public Azure cloud.
// Progress messages are written to out.
func NewBrowserAuthenticator(out io.Writer, logger *logging.Logger) *BrowserAuthenticator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BrowserAuthenticator{
		authorityHost: models.AuthorityHost,
		scope:         models.PIMScope,
		out:           out,
		logger:        logger,
		newCredential: newInteractiveBrowserCredential,
	}
}

func newInteractiveBrowserCredential(tenantID, authorityHost string) (interactiveCredential, error) {
	cfg := cloud.AzurePublic
	cfg.ActiveDirectoryAuthorityHost = authorityHost

	cred, err := azidentity.NewInteractiveBrowserCredential(&azidentity.InteractiveBrowserCredentialOptions{
		ClientOptions: azcore.ClientOptions{Cloud: cfg},
		TenantID:      tenantID,
	})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Authenticate opens the browser, waits for sign-in and returns a PIM credential
func (a *BrowserAuthenticator) Authenticate(ctx context.Context, tenantID string) (Credential, error) {
	if tenantID == "" {
		return Credential{}, &AuthenticationError{Message: "tenant id is required"}
	}

	cred, err := a.newCredential(tenantID, a.authorityHost)
	if err != nil {
		return Credential{}, &AuthenticationError{TenantID: tenantID, Message: "failed to create browser credential", Err: err}
	}

	fmt.Fprintln(a.out, "Opening browser for interactive authentication...")

	opts := policy.TokenRequestOptions{Scopes: []string{a.scope}, TenantID: tenantID}
	record, err := cred.Authenticate(ctx, &opts)
	if err != nil {
		return Credential{}, &AuthenticationError{TenantID: tenantID, Message: "interactive sign-in did not complete", Err: err}
	}

	token, err := cred.GetToken(ctx, opts)
	if err != nil {
		return Credential{}, &AuthenticationError{TenantID: tenantID, Message: "failed to acquire PIM access token", Err: err}
	}

	subject := models.Subject{
		ID:    subjectIDFromHomeAccount(record.HomeAccountID),
		Email: record.Username,
	}
	if subject.ID == "" {
		return Credential{}, &AuthenticationError{TenantID: tenantID, Message: "signed-in account has no object id"}
	}

	a.logger.Info("authenticated as %s (object id %s)", subject.Email, subject.ID)
	fmt.Fprintf(a.out, "Authenticated as %s\n", subject.Email)

	return Credential{
		Token:     token.Token,
		Subject:   subject,
		ExpiresOn: token.ExpiresOn,
	}, nil
}
