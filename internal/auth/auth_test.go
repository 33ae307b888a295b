package auth

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azpim/internal/models"
)

func signedToken(t *testing.T, claims TokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestStaticTokenAuthenticator(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		claims        TokenClaims
		tenantID      string
		expectSubject models.Subject
		expectError   string
	}{
		{
			name: "user principal name",
			claims: TokenClaims{
				ObjectID:          "0f8fad5b-d9cb-469f-a165-70867728950e",
				TenantID:          "tenant-1",
				UserPrincipalName: "ada@contoso.com",
				RegisteredClaims:  jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
			},
			tenantID:      "tenant-1",
			expectSubject: models.Subject{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", Email: "ada@contoso.com"},
		},
		{
			name: "falls back to preferred username",
			claims: TokenClaims{
				ObjectID:          "oid-2",
				PreferredUsername: "grace@contoso.com",
			},
			tenantID:      "tenant-1",
			expectSubject: models.Subject{ID: "oid-2", Email: "grace@contoso.com"},
		},
		{
			name:        "missing object id",
			claims:      TokenClaims{UserPrincipalName: "ada@contoso.com"},
			tenantID:    "tenant-1",
			expectError: "no oid claim",
		},
		{
			name:        "tenant mismatch",
			claims:      TokenClaims{ObjectID: "oid", TenantID: "other-tenant"},
			tenantID:    "tenant-1",
			expectError: "issued for tenant other-tenant",
		},
		{
			name: "expired token",
			claims: TokenClaims{
				ObjectID:         "oid",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))},
			},
			tenantID:    "tenant-1",
			expectError: "expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewStaticTokenAuthenticator(signedToken(t, tt.claims), nil)
			a.now = func() time.Time { return now }

			cred, err := a.Authenticate(context.Background(), tt.tenantID)

			if tt.expectError != "" {
				var authErr *AuthenticationError
				require.ErrorAs(t, err, &authErr)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectSubject, cred.Subject)
			assert.NotEmpty(t, cred.Token)
		})
	}
}

func TestStaticTokenAuthenticator_StripsBearerPrefix(t *testing.T) {
	raw := signedToken(t, TokenClaims{ObjectID: "oid"})

	cred, err := NewStaticTokenAuthenticator("Bearer "+raw+"\n", nil).Authenticate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, raw, cred.Token)
}

func TestStaticTokenAuthenticator_Garbage(t *testing.T) {
	_, err := NewStaticTokenAuthenticator("not-a-jwt", nil).Authenticate(context.Background(), "tenant-1")

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, err.Error(), "not a valid JWT")

	_, err = NewStaticTokenAuthenticator("   ", nil).Authenticate(context.Background(), "tenant-1")
	require.ErrorAs(t, err, &authErr)
}

type fakeCredential struct {
	record      azidentity.AuthenticationRecord
	authErr     error
	token       azcore.AccessToken
	tokenErr    error
	gotScopes   []string
	gotTenantID string
}

func (f *fakeCredential) Authenticate(_ context.Context, opts *policy.TokenRequestOptions) (azidentity.AuthenticationRecord, error) {
	f.gotScopes = opts.Scopes
	f.gotTenantID = opts.TenantID
	return f.record, f.authErr
}

func (f *fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return f.token, f.tokenErr
}

func newTestBrowserAuthenticator(fake *fakeCredential, createErr error) (*BrowserAuthenticator, *bytes.Buffer) {
	var out bytes.Buffer
	a := NewBrowserAuthenticator(&out, nil)
	a.newCredential = func(string, string) (interactiveCredential, error) {
		if createErr != nil {
			return nil, createErr
		}
		return fake, nil
	}
	return a, &out
}

func TestBrowserAuthenticator(t *testing.T) {
	expires := time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC)
	fake := &fakeCredential{
		record: azidentity.AuthenticationRecord{
			HomeAccountID: "0f8fad5b-d9cb-469f-a165-70867728950e.tenant-1",
			Username:      "ada@contoso.com",
		},
		token: azcore.AccessToken{Token: "pim-token", ExpiresOn: expires},
	}
	a, out := newTestBrowserAuthenticator(fake, nil)

	cred, err := a.Authenticate(context.Background(), "tenant-1")
	require.NoError(t, err)

	assert.Equal(t, "pim-token", cred.Token)
	assert.Equal(t, models.Subject{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", Email: "ada@contoso.com"}, cred.Subject)
	assert.Equal(t, expires, cred.ExpiresOn)
	assert.Equal(t, []string{models.PIMScope}, fake.gotScopes)
	assert.Equal(t, "tenant-1", fake.gotTenantID)
	assert.Contains(t, out.String(), "Opening browser")
	assert.Contains(t, out.String(), "Authenticated as ada@contoso.com")
}

func TestBrowserAuthenticator_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		tenantID  string
		fake      *fakeCredential
		createErr error
		message   string
	}{
		{name: "missing tenant", tenantID: "", fake: &fakeCredential{}, message: "tenant id is required"},
		{name: "credential construction fails", tenantID: "t", createErr: boom, message: "failed to create browser credential"},
		{name: "sign-in cancelled", tenantID: "t", fake: &fakeCredential{authErr: boom}, message: "did not complete"},
		{name: "token acquisition fails", tenantID: "t", fake: &fakeCredential{record: azidentity.AuthenticationRecord{HomeAccountID: "oid.tid"}, tokenErr: boom}, message: "failed to acquire"},
		{name: "record without object id", tenantID: "t", fake: &fakeCredential{token: azcore.AccessToken{Token: "x"}}, message: "no object id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestBrowserAuthenticator(tt.fake, tt.createErr)

			_, err := a.Authenticate(context.Background(), tt.tenantID)

			var authErr *AuthenticationError
			require.ErrorAs(t, err, &authErr)
			assert.Contains(t, authErr.Message, tt.message)
		})
	}
}

func TestAuthenticationErrorMessage(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		err      *AuthenticationError
		expected string
	}{
		{
			name:     "with tenant",
			err:      &AuthenticationError{TenantID: "tenant-1", Message: "interactive sign-in did not complete", Err: boom},
			expected: `authentication failed for tenant "tenant-1": interactive sign-in did not complete: boom`,
		},
		{
			name:     "without tenant",
			err:      &AuthenticationError{Message: "tenant id is required"},
			expected: "authentication failed: tenant id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSubjectIDFromHomeAccount(t *testing.T) {
	assert.Equal(t, "oid", subjectIDFromHomeAccount("oid.tid"))
	assert.Equal(t, "oid", subjectIDFromHomeAccount("oid"))
	assert.Equal(t, "", subjectIDFromHomeAccount(""))
}
