// Package pim implements the role assignment operations of the Azure PIM API.
package pim

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"azpim/internal/api"
	"azpim/internal/logging"
	"azpim/internal/models"
)

const (
	roleAssignmentsPath        = "roleAssignments"
	roleAssignmentRequestsPath = "roleAssignmentRequests"

	eligibleExpand = "linkedEligibleRoleAssignment,subject,scopedResource,roleDefinition($expand=resource)"
)

// Repository lists eligible role assignments and requests their activation
type Repository struct {
	sender          api.Sender
	logger          *logging.Logger
	reason          string
	durationMinutes int
}

// Option configures a Repository
type Option func(*Repository)

// WithReason sets the justification sent with activation requests
func WithReason(reason string) Option {
	return func(r *Repository) {
		if reason != "" {
			r.reason = reason
		}
	}
}

// WithDuration sets the activation window in minutes
func WithDuration(minutes int) Option {
	return func(r *Repository) {
		if minutes != 0 {
			r.durationMinutes = minutes
		}
	}
}

// NewRepository creates a repository on top of an API sender
func NewRepository(sender api.Sender, logger *logging.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Repository{
		sender:          sender,
		logger:          logger,
		reason:          models.DefaultReason,
		durationMinutes: models.DefaultDurationMinutes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EligibleParams returns the OData query used to list a subject's eligible assignments
func EligibleParams(subjectID string) url.Values {
	return url.Values{
		"$expand": []string{eligibleExpand},
		"$filter": []string{fmt.Sprintf("(subject/id eq '%s') and (assignmentState eq '%s')", subjectID, models.AssignmentStateEligible)},
		"$count":  []string{"true"},
	}
}

// ListEligible returns the role assignments the subject may activate.
// An empty result is not an error.
func (r *Repository) ListEligible(ctx context.Context, subjectID, token, resourceType string) ([]models.RoleAssignment, error) {
	if resourceType == "" {
		resourceType = models.ResourceTypeAzureResources
	}

	raw, err := r.sender.Send(ctx, api.Request{
		ResourceType: resourceType,
		Path:         roleAssignmentsPath,
		Method:       http.MethodGet,
		Token:        token,
		Params:       EligibleParams(subjectID),
	})
	if err != nil {
		return nil, err
	}

	list, err := api.Decode[models.RoleAssignmentList](raw, "RoleAssignmentList")
	if err != nil {
		return nil, err
	}
	if list.Value == nil {
		return nil, &api.DecodeError{Type: "RoleAssignmentList", Err: errors.New("response is missing value")}
	}
	for _, assignment := range list.Value {
		if err := assignment.Validate(); err != nil {
			return nil, &api.DecodeError{Type: "RoleAssignment", Err: err}
		}
	}

	r.logger.Debug("listed %d eligible role assignments", len(list.Value))
	return list.Value, nil
}

// RequestActivation submits a single activation request for an eligible assignment
func (r *Repository) RequestActivation(ctx context.Context, target models.ActivationTarget, token, resourceType string) (models.ActivationResult, error) {
	if resourceType == "" {
		resourceType = models.ResourceTypeAzureResources
	}

	body, err := models.NewActivationRequest(target, r.reason, r.durationMinutes)
	if err != nil {
		return models.ActivationResult{}, fmt.Errorf("invalid activation request: %w", err)
	}

	r.logger.Debug("requesting activation of assignment %s for %d minutes", target.RoleAssignmentID, r.durationMinutes)

	raw, err := r.sender.Send(ctx, api.Request{
		ResourceType: resourceType,
		Path:         roleAssignmentRequestsPath,
		Method:       http.MethodPost,
		Token:        token,
		Body:         body,
	})
	if err != nil {
		return models.ActivationResult{}, err
	}

	result, err := api.Decode[models.ActivationResult](raw, "ActivationResult")
	if err != nil {
		return models.ActivationResult{}, err
	}
	if err := result.Validate(); err != nil {
		return models.ActivationResult{}, &api.DecodeError{Type: "ActivationResult", Err: err}
	}

	return result, nil
}
