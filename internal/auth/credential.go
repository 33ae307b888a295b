// Package auth acquires the bearer credential used for every PIM API call.
package auth

import (
	"fmt"
	"strings"
	"time"

	"azpim/internal/models"
)

// Credential is a bearer token plus the identity it was issued to
type Credential struct {
	Token     string
	Subject   models.Subject
	ExpiresOn time.Time
}

// AuthenticationError is returned when no credential could be acquired
type AuthenticationError struct {
	TenantID string
	Message  string
	Err      error
}

func (e *AuthenticationError) Error() string {
	msg := "authentication failed"
	if e.TenantID != "" {
		msg = fmt.Sprintf("%s for tenant %q", msg, e.TenantID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", msg, e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// subjectIDFromHomeAccount extracts the object id from an MSAL home account id ("<oid>.<tid>")
func subjectIDFromHomeAccount(homeAccountID string) string {
	id, _, _ := strings.Cut(homeAccountID, ".")
	return id
}
