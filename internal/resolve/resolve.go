// Package resolve narrows a list of eligible role assignments down to the one the caller means.
package resolve

import (
	"fmt"
	"strings"

	"azpim/internal/models"
)

// subscriptionNumberLength is how many leading characters of a resource name form its number
const subscriptionNumberLength = 4

// Filter holds the caller's criteria. Empty fields are ignored.
type Filter struct {
	SubscriptionName   string
	SubscriptionNumber string
	RoleType           string
}

// HasSubscription reports whether a name or number filter was supplied
func (f Filter) HasSubscription() bool {
	return f.SubscriptionName != "" || f.SubscriptionNumber != ""
}

// ErrorKind distinguishes why resolution failed
type ErrorKind int

const (
	NoMatch ErrorKind = iota
	Ambiguous
)

func (k ErrorKind) String() string {
	switch k {
	case NoMatch:
		return "no match"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Candidate is a display summary of a matching assignment
type Candidate struct {
	AssignmentID string
	ResourceName string
	RoleName     string
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s (%s)", c.ResourceName, c.RoleName)
}

// ResolutionError is returned when the filter does not select exactly one assignment
type ResolutionError struct {
	Kind       ErrorKind
	Filter     Filter
	Candidates []Candidate
}

func (e *ResolutionError) Error() string {
	if e.Kind == NoMatch {
		return fmt.Sprintf("no eligible role assignment matches %s", e.Filter.describe())
	}
	return fmt.Sprintf("unable to determine subscription based on filters: got %d potential matches", len(e.Candidates))
}

// Hint suggests how the caller can refine the filter
func (e *ResolutionError) Hint() string {
	if e.Kind == Ambiguous {
		return "Add a role type filter with '-r/--role-type' to further narrow down the matches"
	}
	return "Run 'azpim list' to see the roles you are eligible for"
}

func (f Filter) describe() string {
	return fmt.Sprintf("subscription name %q, subscription number %q, role type %q",
		f.SubscriptionName, f.SubscriptionNumber, f.RoleType)
}

// Matches reports whether a single assignment satisfies the filter.
//
// Name and number are alternatives: when both are given either one qualifies.
// The role type, when given, must also match.
func Matches(assignment models.RoleAssignment, filter Filter) bool {
	resourceName := strings.ToLower(assignment.ResourceName())
	name := strings.ToLower(filter.SubscriptionName)
	number := strings.ToLower(filter.SubscriptionNumber)

	base := (name != "" && strings.Contains(resourceName, name)) ||
		(number != "" && number == prefix(resourceName, subscriptionNumberLength))
	if !base {
		return false
	}

	if filter.RoleType == "" {
		return true
	}
	return strings.Contains(strings.ToLower(assignment.RoleName()), strings.ToLower(filter.RoleType))
}

// prefix returns the first n characters of s, or all of s when it is shorter
func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// FilterAssignments returns every assignment that satisfies the filter, in input order
func FilterAssignments(assignments []models.RoleAssignment, filter Filter) []models.RoleAssignment {
	matches := []models.RoleAssignment{}
	for _, assignment := range assignments {
		if Matches(assignment, filter) {
			matches = append(matches, assignment)
		}
	}
	return matches
}

// Resolve returns the single assignment selected by the filter
func Resolve(assignments []models.RoleAssignment, filter Filter) (models.RoleAssignment, error) {
	matches := FilterAssignments(assignments, filter)

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return models.RoleAssignment{}, &ResolutionError{Kind: NoMatch, Filter: filter, Candidates: []Candidate{}}
	default:
		return models.RoleAssignment{}, &ResolutionError{Kind: Ambiguous, Filter: filter, Candidates: candidates(matches)}
	}
}

func candidates(matches []models.RoleAssignment) []Candidate {
	out := make([]Candidate, len(matches))
	for i, m := range matches {
		out[i] = Candidate{
			AssignmentID: m.ID,
			ResourceName: m.ResourceName(),
			RoleName:     m.RoleName(),
		}
	}
	return out
}

// ResourceRoles is the set of roles a caller is eligible for on one resource
type ResourceRoles struct {
	ResourceName string
	Roles        []string
}

// GroupByResource groups role names by resource display name.
// Resources keep the order they are first seen in, roles keep listing order.
func GroupByResource(assignments []models.RoleAssignment) []ResourceRoles {
	index := make(map[string]int)
	groups := []ResourceRoles{}

	for _, assignment := range assignments {
		name := assignment.ResourceName()
		i, seen := index[name]
		if !seen {
			i = len(groups)
			index[name] = i
			groups = append(groups, ResourceRoles{ResourceName: name})
		}
		groups[i].Roles = append(groups[i].Roles, assignment.RoleName())
	}

	return groups
}
