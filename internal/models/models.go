package models

import (
	"errors"
	"fmt"
)

// Constants for the Azure PIM endpoints and activation defaults
const (
	// PIMBaseURL is the Azure RBAC PIM API host
	PIMBaseURL = "https://api.azrbac.mspim.azure.com"
	// PIMBasePath is the path segment every PIM operation lives under
	PIMBasePath = "api/v2/privilegedAccess"
	// AuthorityHost is the Azure AD authority used for interactive sign-in
	AuthorityHost = "https://login.microsoftonline.com/"
	// PIMScope is the token scope for the MS-PIM first party application
	PIMScope = "01fc33a7-78ba-4d2f-a4b7-768e336e890e/.default"

	// ResourceTypeAzureResources is the only resource type the tool works with
	ResourceTypeAzureResources = "azureResources"

	// DefaultDurationMinutes is the default activation window
	DefaultDurationMinutes = 480
	// MaxDurationMinutes is the upper bound accepted for an activation window
	MaxDurationMinutes = 1440
	// DefaultReason is sent when the user does not provide a justification
	DefaultReason = "Activated with azpim"

	AssignmentStateEligible = "Eligible"
	AssignmentStateActive   = "Active"
	RequestTypeUserAdd      = "UserAdd"
	ScheduleTypeOnce        = "Once"
)

// Subject identifies the signed-in user
type Subject struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// RoleResource is the Azure resource (usually a subscription) a role applies to
type RoleResource struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
	Status      string `json:"status"`
}

// RoleDefinition is a role scoped to a resource
type RoleDefinition struct {
	ID          string       `json:"id"`
	ResourceID  string       `json:"resourceId"`
	DisplayName string       `json:"displayName"`
	Type        string       `json:"type"`
	Resource    RoleResource `json:"resource"`
}

// RoleAssignmentSubject is the principal a role assignment is bound to
type RoleAssignmentSubject struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	DisplayName   string `json:"displayName"`
	PrincipalName string `json:"principalName"`
	Email         string `json:"email"`
}

// RoleAssignment is one eligible (or active) binding of the caller to a role
type RoleAssignment struct {
	ID               string                `json:"id"`
	ResourceID       string                `json:"resourceId"`
	RoleDefinitionID string                `json:"roleDefinitionId"`
	SubjectID        string                `json:"subjectId"`
	AssignmentState  string                `json:"assignmentState"`
	Status           string                `json:"status"`
	Subject          RoleAssignmentSubject `json:"subject"`
	RoleDefinition   RoleDefinition        `json:"roleDefinition"`
}

// ResourceName returns the display name of the resource the assignment targets
func (ra RoleAssignment) ResourceName() string {
	return ra.RoleDefinition.Resource.DisplayName
}

// RoleName returns the display name of the assigned role
func (ra RoleAssignment) RoleName() string {
	return ra.RoleDefinition.DisplayName
}

// Validate checks the fields the activation workflow depends on
func (ra RoleAssignment) Validate() error {
	switch {
	case ra.ID == "":
		return errors.New("role assignment is missing id")
	case ra.ResourceID == "":
		return fmt.Errorf("role assignment %s is missing resourceId", ra.ID)
	case ra.RoleDefinitionID == "":
		return fmt.Errorf("role assignment %s is missing roleDefinitionId", ra.ID)
	case ra.RoleDefinition.DisplayName == "":
		return fmt.Errorf("role assignment %s is missing roleDefinition.displayName", ra.ID)
	case ra.RoleDefinition.Resource.DisplayName == "":
		return fmt.Errorf("role assignment %s is missing roleDefinition.resource.displayName", ra.ID)
	}
	return nil
}

// RoleAssignmentList is the envelope returned by the roleAssignments listing
type RoleAssignmentList struct {
	Count *int             `json:"@odata.count,omitempty"`
	Value []RoleAssignment `json:"value"`
}

// Schedule is the activation window. Start and end are filled in by the server.
type Schedule struct {
	Type          string  `json:"type"`
	StartDateTime *string `json:"startDateTime,omitempty"`
	EndDateTime   *string `json:"endDateTime,omitempty"`
	Duration      string  `json:"duration"`
}

// NewSchedule returns a one-off schedule lasting the given number of minutes
func NewSchedule(minutes int) Schedule {
	return Schedule{
		Type:     ScheduleTypeOnce,
		Duration: fmt.Sprintf("PT%dM", minutes),
	}
}

// ActivationRequest is the body posted to roleAssignmentRequests
type ActivationRequest struct {
	RoleDefinitionID               string   `json:"roleDefinitionId"`
	ResourceID                     string   `json:"resourceId"`
	SubjectID                      string   `json:"subjectId"`
	AssignmentState                string   `json:"assignmentState"`
	Type                           string   `json:"type"`
	Reason                         string   `json:"reason"`
	TicketNumber                   string   `json:"ticketNumber"`
	TicketSystem                   string   `json:"ticketSystem"`
	Schedule                       Schedule `json:"schedule"`
	LinkedEligibleRoleAssignmentID string   `json:"linkedEligibleRoleAssignmentId"`
	ScopedResourceID               string   `json:"scopedResourceId"`
}

// ActivationTarget holds the identifiers needed to activate an eligible assignment
type ActivationTarget struct {
	SubjectID        string
	ResourceID       string
	RoleDefinitionID string
	RoleAssignmentID string
}

// TargetFor builds the activation target for an eligible assignment
func TargetFor(subjectID string, ra RoleAssignment) ActivationTarget {
	return ActivationTarget{
		SubjectID:        subjectID,
		ResourceID:       ra.ResourceID,
		RoleDefinitionID: ra.RoleDefinitionID,
		RoleAssignmentID: ra.ID,
	}
}

// NewActivationRequest builds a validated activation request.
// An empty reason falls back to DefaultReason.
func NewActivationRequest(target ActivationTarget, reason string, durationMinutes int) (ActivationRequest, error) {
	switch {
	case target.SubjectID == "":
		return ActivationRequest{}, errors.New("subject id is required")
	case target.ResourceID == "":
		return ActivationRequest{}, errors.New("resource id is required")
	case target.RoleDefinitionID == "":
		return ActivationRequest{}, errors.New("role definition id is required")
	case target.RoleAssignmentID == "":
		return ActivationRequest{}, errors.New("eligible role assignment id is required")
	case durationMinutes <= 0 || durationMinutes > MaxDurationMinutes:
		return ActivationRequest{}, fmt.Errorf("duration must be between 1 and %d minutes, got %d", MaxDurationMinutes, durationMinutes)
	}

	if reason == "" {
		reason = DefaultReason
	}

	return ActivationRequest{
		RoleDefinitionID:               target.RoleDefinitionID,
		ResourceID:                     target.ResourceID,
		SubjectID:                      target.SubjectID,
		AssignmentState:                AssignmentStateActive,
		Type:                           RequestTypeUserAdd,
		Reason:                         reason,
		Schedule:                       NewSchedule(durationMinutes),
		LinkedEligibleRoleAssignmentID: target.RoleAssignmentID,
	}, nil
}

// ActivationStatus describes how far the server got processing a request
type ActivationStatus struct {
	Status        string              `json:"status"`
	SubStatus     string              `json:"subStatus"`
	StatusDetails []map[string]string `json:"statusDetails"`
}

// ActivationResult is the server's response to an activation request
type ActivationResult struct {
	ID                             string            `json:"id"`
	ResourceID                     string            `json:"resourceId"`
	RoleDefinitionID               string            `json:"roleDefinitionId"`
	SubjectID                      string            `json:"subjectId"`
	ScopedResourceID               string            `json:"scopedResourceId"`
	LinkedEligibleRoleAssignmentID string            `json:"linkedEligibleRoleAssignmentId"`
	Type                           string            `json:"type"`
	AssignmentState                string            `json:"assignmentState"`
	RequestedDateTime              string            `json:"requestedDateTime"`
	RoleAssignmentStartDateTime    string            `json:"roleAssignmentStartDateTime"`
	RoleAssignmentEndDateTime      string            `json:"roleAssignmentEndDateTime"`
	Reason                         *string           `json:"reason"`
	TicketNumber                   *string           `json:"ticketNumber"`
	TicketSystem                   *string           `json:"ticketSystem"`
	Condition                      *string           `json:"condition"`
	ConditionVersion               *string           `json:"conditionVersion"`
	ConditionDescription           *string           `json:"conditionDescription"`
	Status                         *ActivationStatus `json:"status"`
	Schedule                       Schedule          `json:"schedule"`
	Metadata                       map[string]any    `json:"metadata"`
}

// Validate checks that the response identifies the request and its state
func (r ActivationResult) Validate() error {
	if r.ID == "" {
		return errors.New("activation result is missing id")
	}
	if r.AssignmentState == "" {
		return fmt.Errorf("activation result %s is missing assignmentState", r.ID)
	}
	return nil
}

// ExpiresAt returns the end of the activation window, preferring the schedule
func (r ActivationResult) ExpiresAt() string {
	if r.Schedule.EndDateTime != nil && *r.Schedule.EndDateTime != "" {
		return *r.Schedule.EndDateTime
	}
	return r.RoleAssignmentEndDateTime
}

// Config represents the application configuration
type Config struct {
	TenantID        string `yaml:"tenant_id" json:"tenant_id"`
	LogLevel        string `yaml:"log_level" json:"log_level"`
	BaseURL         string `yaml:"base_url" json:"base_url"`
	DurationMinutes int    `yaml:"duration_minutes" json:"duration_minutes"`
	Reason          string `yaml:"reason" json:"reason"`
	AccessToken     string `yaml:"access_token" json:"access_token"`
}
