// Package workflow sequences authentication, listing, resolution and activation.
package workflow

import (
	"context"
	"fmt"
	"io"

	"azpim/internal/auth"
	"azpim/internal/logging"
	"azpim/internal/models"
	"azpim/internal/resolve"
)

// Authenticator acquires a credential for a tenant
type Authenticator interface {
	Authenticate(ctx context.Context, tenantID string) (auth.Credential, error)
}

// Repository defines the PIM operations the workflow needs
type Repository interface {
	ListEligible(ctx context.Context, subjectID, token, resourceType string) ([]models.RoleAssignment, error)
	RequestActivation(ctx context.Context, target models.ActivationTarget, token, resourceType string) (models.ActivationResult, error)
}

// Stage is a step of the activation state machine
type Stage int

const (
	Unauthenticated Stage = iota
	Authenticated
	AssignmentsListed
	Resolved
	Activated
)

func (s Stage) String() string {
	switch s {
	case Unauthenticated:
		return "Unauthenticated"
	case Authenticated:
		return "Authenticated"
	case AssignmentsListed:
		return "AssignmentsListed"
	case Resolved:
		return "Resolved"
	case Activated:
		return "Activated"
	default:
		return "Unknown"
	}
}

// ValidationError is returned before any network call when the input is incomplete
type ValidationError struct {
	Field    string
	Message  string
	Guidance string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// StageError records the last stage reached before a failure
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ListResult is the outcome of the list operation
type ListResult struct {
	Subject   models.Subject
	Resources []resolve.ResourceRoles
}

// ActivateInput is the caller's already-parsed activation request
type ActivateInput struct {
	TenantID string
	Filter   resolve.Filter
}

// ActivationOutcome is the outcome of a successful activation
type ActivationOutcome struct {
	Subject    models.Subject
	Assignment models.RoleAssignment
	Result     models.ActivationResult
}

// Workflow runs the list and activate operations
type Workflow struct {
	auth         Authenticator
	repo         Repository
	logger       *logging.Logger
	progress     io.Writer
	resourceType string
}

// Option configures a Workflow
type Option func(*Workflow)

// WithProgress sets where user facing progress lines are written
func WithProgress(out io.Writer) Option {
	return func(w *Workflow) {
		w.progress = out
	}
}

// New creates a workflow
func New(authenticator Authenticator, repo Repository, logger *logging.Logger, opts ...Option) *Workflow {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	w := &Workflow{
		auth:         authenticator,
		repo:         repo,
		logger:       logger,
		progress:     io.Discard,
		resourceType: models.ResourceTypeAzureResources,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func validateTenant(tenantID string) error {
	if tenantID == "" {
		return &ValidationError{
			Field:    "tenant_id",
			Message:  "you must provide a value for tenant id",
			Guidance: "Pass --tenant-id or set the AZPIM_TENANT_ID (or TENANT_ID) environment variable",
		}
	}
	return nil
}

func (w *Workflow) fail(stage Stage, err error) error {
	w.logger.Debug("workflow failed after reaching %s: %v", stage, err)
	return &StageError{Stage: stage, Err: err}
}

// List returns the caller's eligible roles grouped by resource
func (w *Workflow) List(ctx context.Context, tenantID string) (ListResult, error) {
	if err := validateTenant(tenantID); err != nil {
		return ListResult{}, w.fail(Unauthenticated, err)
	}

	cred, err := w.auth.Authenticate(ctx, tenantID)
	if err != nil {
		return ListResult{}, w.fail(Unauthenticated, err)
	}

	fmt.Fprintln(w.progress, "Fetching eligible role assignments from Azure PIM...")
	var assignments []models.RoleAssignment
	err = w.logger.TimedOperation("list eligible role assignments", func() error {
		var listErr error
		assignments, listErr = w.repo.ListEligible(ctx, cred.Subject.ID, cred.Token, w.resourceType)
		return listErr
	})
	if err != nil {
		return ListResult{}, w.fail(Authenticated, err)
	}

	return ListResult{
		Subject:   cred.Subject,
		Resources: resolve.GroupByResource(assignments),
	}, nil
}

// Activate resolves the filter to a single eligible assignment and activates it.
// At most one activation request is sent and it is never retried.
func (w *Workflow) Activate(ctx context.Context, in ActivateInput) (ActivationOutcome, error) {
	stage := Unauthenticated

	if err := validateTenant(in.TenantID); err != nil {
		return ActivationOutcome{}, w.fail(stage, err)
	}
	if !in.Filter.HasSubscription() {
		return ActivationOutcome{}, w.fail(stage, &ValidationError{
			Field:    "subscription",
			Message:  "you must specify either subscription name or subscription number",
			Guidance: "Pass -s/--subscription-name or -n/--subscription-number",
		})
	}

	cred, err := w.auth.Authenticate(ctx, in.TenantID)
	if err != nil {
		return ActivationOutcome{}, w.fail(stage, err)
	}
	stage = w.advance(Authenticated)

	fmt.Fprintln(w.progress, "Fetching eligible role assignments from Azure PIM...")
	var assignments []models.RoleAssignment
	err = w.logger.TimedOperation("list eligible role assignments", func() error {
		var listErr error
		assignments, listErr = w.repo.ListEligible(ctx, cred.Subject.ID, cred.Token, w.resourceType)
		return listErr
	})
	if err != nil {
		return ActivationOutcome{}, w.fail(stage, err)
	}
	stage = w.advance(AssignmentsListed)

	match, err := resolve.Resolve(assignments, in.Filter)
	if err != nil {
		return ActivationOutcome{}, w.fail(stage, err)
	}
	stage = w.advance(Resolved)
	fmt.Fprintf(w.progress, "Found eligible role assignment matching filters: %s (%s)\n", match.ResourceName(), match.RoleName())
	fmt.Fprintln(w.progress, "Requesting activation of role assignment...")

	var result models.ActivationResult
	err = w.logger.TimedOperation("request role activation", func() error {
		var activateErr error
		result, activateErr = w.repo.RequestActivation(ctx, models.TargetFor(cred.Subject.ID, match), cred.Token, w.resourceType)
		return activateErr
	})
	if err != nil {
		return ActivationOutcome{}, w.fail(stage, err)
	}
	w.advance(Activated)

	return ActivationOutcome{
		Subject:    cred.Subject,
		Assignment: match,
		Result:     result,
	}, nil
}

func (w *Workflow) advance(to Stage) Stage {
	w.logger.Debug("workflow stage: %s", to)
	return to
}
