package pim

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azpim/internal/api"
	"azpim/internal/models"
)

const eligibleResponse = `{
	"@odata.count": 2,
	"value": [
		{
			"id": "assignment-1",
			"resourceId": "resource-1",
			"roleDefinitionId": "roledef-owner",
			"subjectId": "subject-1",
			"assignmentState": "Eligible",
			"status": "Accepted",
			"subject": {"id": "subject-1", "type": "User", "displayName": "Ada", "principalName": "ada@contoso.com", "email": "ada@contoso.com"},
			"roleDefinition": {
				"id": "roledef-owner", "resourceId": "resource-1", "displayName": "Owner", "type": "BuiltInRole",
				"resource": {"id": "resource-1", "type": "subscription", "displayName": "S123-Prod", "status": "Active"}
			}
		},
		{
			"id": "assignment-2",
			"resourceId": "resource-2",
			"roleDefinitionId": "roledef-contrib",
			"subjectId": "subject-1",
			"assignmentState": "Eligible",
			"status": "Accepted",
			"subject": {"id": "subject-1", "type": "User", "displayName": "Ada", "principalName": "ada@contoso.com", "email": "ada@contoso.com"},
			"roleDefinition": {
				"id": "roledef-contrib", "resourceId": "resource-2", "displayName": "Contributor", "type": "BuiltInRole",
				"resource": {"id": "resource-2", "type": "subscription", "displayName": "S456-Dev", "status": "Active"}
			}
		}
	]
}`

const activationResponse = `{
	"id": "request-1",
	"resourceId": "resource-1",
	"roleDefinitionId": "roledef-owner",
	"subjectId": "subject-1",
	"scopedResourceId": "",
	"linkedEligibleRoleAssignmentId": "assignment-1",
	"type": "UserAdd",
	"assignmentState": "Active",
	"requestedDateTime": "2026-10-18T10:00:00Z",
	"roleAssignmentStartDateTime": "2026-10-18T10:00:00Z",
	"roleAssignmentEndDateTime": "2026-10-18T18:00:00Z",
	"reason": "Activated with azpim",
	"ticketNumber": "",
	"ticketSystem": "",
	"condition": null,
	"conditionVersion": null,
	"conditionDescription": null,
	"status": {"status": "Closed", "subStatus": "Provisioned", "statusDetails": [{"key": "EligibilityRule", "value": "Passed"}]},
	"schedule": {"type": "Once", "startDateTime": "2026-10-18T10:00:00Z", "endDateTime": "2026-10-18T18:00:00Z", "duration": "PT480M"},
	"metadata": {}
}`

func newTestRepository(t *testing.T, handler http.HandlerFunc, opts ...Option) *Repository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := api.NewClient(server.URL, nil)
	require.NoError(t, err)
	return NewRepository(client, nil, opts...)
}

func TestListEligible(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v2/privilegedAccess/azureResources/roleAssignments", r.URL.Path)
		assert.Equal(t, "Bearer pim-token", r.Header.Get("Authorization"))

		query := r.URL.Query()
		assert.Equal(t, "linkedEligibleRoleAssignment,subject,scopedResource,roleDefinition($expand=resource)", query.Get("$expand"))
		assert.Equal(t, "(subject/id eq 'subject-1') and (assignmentState eq 'Eligible')", query.Get("$filter"))
		assert.Equal(t, "true", query.Get("$count"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, eligibleResponse)
	})

	assignments, err := repo.ListEligible(context.Background(), "subject-1", "pim-token", "")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "assignment-1", assignments[0].ID)
	assert.Equal(t, "S123-Prod", assignments[0].ResourceName())
	assert.Equal(t, "Contributor", assignments[1].RoleName())
}

func TestListEligible_Empty(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"@odata.count": 0, "value": []}`)
	})

	assignments, err := repo.ListEligible(context.Background(), "subject-1", "pim-token", models.ResourceTypeAzureResources)
	require.NoError(t, err)
	assert.NotNil(t, assignments)
	assert.Empty(t, assignments)
}

func TestListEligible_UnexpectedShape(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		typeName string
	}{
		{name: "missing value", body: `{"@odata.count": 0}`, typeName: "RoleAssignmentList"},
		{name: "value is not a list", body: `{"value": "nope"}`, typeName: "RoleAssignmentList"},
		{name: "assignment without role definition", body: `{"value": [{"id": "a", "resourceId": "r", "roleDefinitionId": "d"}]}`, typeName: "RoleAssignment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.body)
			})

			_, err := repo.ListEligible(context.Background(), "subject-1", "pim-token", "")

			var decodeErr *api.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tt.typeName, decodeErr.Type)
		})
	}
}

func TestRequestActivation(t *testing.T) {
	var posted map[string]any
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v2/privilegedAccess/azureResources/roleAssignmentRequests", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, activationResponse)
	})

	target := models.ActivationTarget{
		SubjectID:        "subject-1",
		ResourceID:       "resource-1",
		RoleDefinitionID: "roledef-owner",
		RoleAssignmentID: "assignment-1",
	}
	result, err := repo.RequestActivation(context.Background(), target, "pim-token", "")
	require.NoError(t, err)

	assert.Equal(t, "request-1", result.ID)
	assert.Equal(t, "Active", result.AssignmentState)
	assert.Equal(t, "2026-10-18T18:00:00Z", result.ExpiresAt())
	require.NotNil(t, result.Status)
	assert.Equal(t, "Provisioned", result.Status.SubStatus)

	assert.Equal(t, "roledef-owner", posted["roleDefinitionId"])
	assert.Equal(t, "resource-1", posted["resourceId"])
	assert.Equal(t, "subject-1", posted["subjectId"])
	assert.Equal(t, "assignment-1", posted["linkedEligibleRoleAssignmentId"])
	assert.Equal(t, "Active", posted["assignmentState"])
	assert.Equal(t, "UserAdd", posted["type"])
	assert.Equal(t, models.DefaultReason, posted["reason"])
	assert.Equal(t, "", posted["ticketNumber"])
	assert.Equal(t, "", posted["ticketSystem"])
	assert.Equal(t, "", posted["scopedResourceId"])
	assert.Equal(t, map[string]any{"type": "Once", "duration": "PT480M"}, posted["schedule"])
}

func TestRequestActivation_CustomReasonAndDuration(t *testing.T) {
	var posted models.ActivationRequest
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, activationResponse)
	}, WithReason("deploy hotfix"), WithDuration(90))

	_, err := repo.RequestActivation(context.Background(), models.ActivationTarget{
		SubjectID: "s", ResourceID: "r", RoleDefinitionID: "d", RoleAssignmentID: "a",
	}, "pim-token", "")
	require.NoError(t, err)

	assert.Equal(t, "deploy hotfix", posted.Reason)
	assert.Equal(t, "PT90M", posted.Schedule.Duration)
}

func TestRequestActivation_Forbidden(t *testing.T) {
	attempts := 0
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":"Forbidden"}`)
	})

	result, err := repo.RequestActivation(context.Background(), models.ActivationTarget{
		SubjectID: "s", ResourceID: "r", RoleDefinitionID: "d", RoleAssignmentID: "a",
	}, "pim-token", "")

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, map[string]any{"error": "Forbidden"}, apiErr.Body)
	assert.Equal(t, models.ActivationResult{}, result)
	assert.Equal(t, 1, attempts, "activation must never be retried")
}

func TestRequestActivation_InvalidTargetSendsNothing(t *testing.T) {
	called := false
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := repo.RequestActivation(context.Background(), models.ActivationTarget{SubjectID: "s"}, "pim-token", "")
	require.Error(t, err)
	assert.False(t, called)
}

func TestRequestActivation_ResultMissingState(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "request-1"}`)
	})

	_, err := repo.RequestActivation(context.Background(), models.ActivationTarget{
		SubjectID: "s", ResourceID: "r", RoleDefinitionID: "d", RoleAssignmentID: "a",
	}, "pim-token", "")

	var decodeErr *api.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "ActivationResult", decodeErr.Type)
}
