package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"azpim/internal/api"
	"azpim/internal/auth"
	"azpim/internal/resolve"
	"azpim/internal/workflow"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitPanic   = 2
)

// ErrorCategory represents different types of errors
type ErrorCategory int

const (
	ErrorCategoryUnknown ErrorCategory = iota
	ErrorCategoryConfiguration
	ErrorCategoryValidation
	ErrorCategoryAuthentication
	ErrorCategoryNetwork
	ErrorCategoryAPI
	ErrorCategoryDecode
	ErrorCategoryResolution
	ErrorCategoryInterrupted
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryConfiguration:
		return "configuration"
	case ErrorCategoryValidation:
		return "validation"
	case ErrorCategoryAuthentication:
		return "authentication"
	case ErrorCategoryNetwork:
		return "network"
	case ErrorCategoryAPI:
		return "api"
	case ErrorCategoryDecode:
		return "decode"
	case ErrorCategoryResolution:
		return "resolution"
	case ErrorCategoryInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// ConfigurationError is returned when the configuration cannot be loaded or is invalid
type ConfigurationError struct {
	Field    string
	Message  string
	Guidance string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Classify maps an error chain onto its category. Interruption wins over
// every other kind because a cancelled request surfaces wrapped in them.
func Classify(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	var (
		configErr     *ConfigurationError
		validationErr *workflow.ValidationError
		authErr       *auth.AuthenticationError
		transportErr  *api.TransportError
		apiErr        *api.APIError
		decodeErr     *api.DecodeError
		resolutionErr *resolve.ResolutionError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return ErrorCategoryInterrupted
	case errors.As(err, &configErr):
		return ErrorCategoryConfiguration
	case errors.As(err, &validationErr):
		return ErrorCategoryValidation
	case errors.As(err, &authErr):
		return ErrorCategoryAuthentication
	case errors.As(err, &transportErr):
		return ErrorCategoryNetwork
	case errors.As(err, &apiErr):
		return ErrorCategoryAPI
	case errors.As(err, &decodeErr):
		return ErrorCategoryDecode
	case errors.As(err, &resolutionErr):
		return ErrorCategoryResolution
	default:
		return ErrorCategoryUnknown
	}
}

// FormatError renders an error for the terminal, with a Help line where we know one
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var b strings.Builder

	switch Classify(err) {
	case ErrorCategoryInterrupted:
		b.WriteString("Error: interrupted\n")

	case ErrorCategoryConfiguration:
		var configErr *ConfigurationError
		errors.As(err, &configErr)
		fmt.Fprintf(&b, "Configuration Error: %s\n", configErr.Message)
		writeHelp(&b, configErr.Guidance)

	case ErrorCategoryValidation:
		var validationErr *workflow.ValidationError
		errors.As(err, &validationErr)
		fmt.Fprintf(&b, "Error: %s\n", validationErr.Message)
		writeHelp(&b, validationErr.Guidance)

	case ErrorCategoryAuthentication:
		var authErr *auth.AuthenticationError
		errors.As(err, &authErr)
		fmt.Fprintf(&b, "Authentication Error: %s\n", authErr.Error())
		writeHelp(&b, "Complete the sign-in in the browser and check that the tenant ID is correct")

	case ErrorCategoryNetwork:
		var transportErr *api.TransportError
		errors.As(err, &transportErr)
		fmt.Fprintf(&b, "Error: Connection failed: %v\n", transportErr.Err)
		writeHelp(&b, "Check your network connection and the base_url setting")

	case ErrorCategoryAPI:
		var apiErr *api.APIError
		errors.As(err, &apiErr)
		if msg := apiErr.Message(); msg != "" {
			fmt.Fprintf(&b, "Error: %s\n", msg)
		}
		fmt.Fprintf(&b, "Response with status code %d received:\n", apiErr.StatusCode)
		if body := apiErr.BodyString(); body != "" {
			fmt.Fprintf(&b, "%s\n", body)
		}
		if apiErr.RequestID != "" {
			fmt.Fprintf(&b, "Request ID: %s\n", apiErr.RequestID)
		}
		if apiErr.IsAuthorizationFailure() {
			writeHelp(&b, "Check that you are still eligible for this role and that it is not already active")
		}

	case ErrorCategoryDecode:
		fmt.Fprintf(&b, "Error: unexpected response from the PIM API: %v\n", err)
		writeHelp(&b, "Run again with --log-level debug to see the request details")

	case ErrorCategoryResolution:
		var resolutionErr *resolve.ResolutionError
		errors.As(err, &resolutionErr)
		writeResolutionError(&b, resolutionErr)

	default:
		fmt.Fprintf(&b, "Error: %v\n", err)
	}

	return b.String()
}

func writeResolutionError(b *strings.Builder, err *resolve.ResolutionError) {
	if err.Kind == resolve.NoMatch {
		b.WriteString("No matches were returned when filtering eligible role assignments:\n")
		fmt.Fprintf(b, "Filter:\n\tSubscription name: %s\n\tSubscription number: %s\n\tRole type: %s\n",
			err.Filter.SubscriptionName, err.Filter.SubscriptionNumber, err.Filter.RoleType)
	} else {
		fmt.Fprintf(b, "Unable to determine subscription based on filters. Got %d potential matches:\n", len(err.Candidates))
		for _, c := range err.Candidates {
			fmt.Fprintf(b, "  - %s\n", c)
		}
	}
	writeHelp(b, err.Hint())
}

func writeHelp(b *strings.Builder, guidance string) {
	if guidance != "" {
		fmt.Fprintf(b, "Help: %s\n", guidance)
	}
}

// HandleError writes the rendered error to w and returns the process exit code
func HandleError(w io.Writer, err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprint(w, FormatError(err))
	return ExitFailure
}
