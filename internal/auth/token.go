package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"azpim/internal/logging"
	"azpim/internal/models"
)

// TokenClaims holds the Azure AD access token claims needed to identify the caller.
// The signature is not verified: the PIM API verifies the token, we only read it.
type TokenClaims struct {
	ObjectID          string `json:"oid"`
	TenantID          string `json:"tid"`
	UserPrincipalName string `json:"upn,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	UniqueName        string `json:"unique_name,omitempty"`
	Email             string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Username returns the best available sign-in name
func (c *TokenClaims) Username() string {
	for _, name := range []string{c.UserPrincipalName, c.PreferredUsername, c.UniqueName, c.Email} {
		if name != "" {
			return name
		}
	}
	return ""
}

// ParseTokenClaims extracts claims from an access token without verification
func ParseTokenClaims(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// StaticTokenAuthenticator uses an access token acquired elsewhere, e.g. by
// `az account get-access-token --resource 01fc33a7-78ba-4d2f-a4b7-768e336e890e`
type StaticTokenAuthenticator struct {
	token  string
	logger *logging.Logger
	now    func() time.Time
}

// NewStaticTokenAuthenticator wraps a pre-acquired access token
func NewStaticTokenAuthenticator(token string, logger *logging.Logger) *StaticTokenAuthenticator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &StaticTokenAuthenticator{
		token:  strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")),
		logger: logger,
		now:    time.Now,
	}
}

// Authenticate reads the caller's identity from the token claims
func (a *StaticTokenAuthenticator) Authenticate(_ context.Context, tenantID string) (Credential, error) {
	if a.token == "" {
		return Credential{}, &AuthenticationError{TenantID: tenantID, Message: "access token is empty"}
	}

	claims, err := ParseTokenClaims(a.token)
	if err != nil {
		return Credential{}, &AuthenticationError{TenantID: tenantID, Message: "access token is not a valid JWT", Err: err}
	}

	if claims.ObjectID == "" {
		return Credential{}, &AuthenticationError{TenantID: tenantID, Message: "access token has no oid claim"}
	}
	if tenantID != "" && claims.TenantID != "" && !strings.EqualFold(tenantID, claims.TenantID) {
		return Credential{}, &AuthenticationError{TenantID: tenantID, Message: "access token was issued for tenant " + claims.TenantID}
	}

	var expiresOn time.Time
	if claims.ExpiresAt != nil {
		expiresOn = claims.ExpiresAt.Time
		if !a.now().Before(expiresOn) {
			return Credential{}, &AuthenticationError{TenantID: tenantID, Message: "access token expired at " + expiresOn.Format(time.RFC3339)}
		}
	}

	subject := models.Subject{ID: claims.ObjectID, Email: claims.Username()}
	a.logger.Info("using supplied access token for %s (object id %s)", subject.Email, subject.ID)

	return Credential{
		Token:     a.token,
		Subject:   subject,
		ExpiresOn: expiresOn,
	}, nil
}
