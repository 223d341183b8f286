package statemachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncidentTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{"New", "In Progress", true},
		{"New", "On Hold", true},
		{"New", "Resolved", true},
		{"New", "Closed", true},
		{"New", "Reopened", false},
		{"In Progress", "On Hold", true},
		{"In Progress", "New", false},
		{"On Hold", "In Progress", true},
		{"Resolved", "Closed", true},
		{"Resolved", "Reopened", true},
		{"Resolved", "In Progress", false},
		{"Closed", "Reopened", true},
		{"Closed", "Closed", false},
		{"Reopened", "Resolved", true},
		{"Reopened", "New", false},
	}

	for _, tt := range tests {
		got := CanTransition(KindIncident, tt.from, tt.to)
		require.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestConfirmedIncidentTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{"Pending", "Investigating", true},
		{"Pending", "Closed", true},
		{"Pending", "Recovered", false},
		{"Investigating", "Recovering", true},
		{"Investigating", "Closed", true},
		{"Investigating", "Recovered", false},
		{"Recovering", "Recovered", true},
		{"Recovering", "Investigating", true},
		{"Recovering", "Closed", false},
		{"Recovered", "Post-Mortem", true},
		{"Recovered", "Investigating", true},
		{"Post-Mortem", "Closed", true},
		{"Post-Mortem", "Investigating", false},
	}

	for _, tt := range tests {
		got := CanTransition(KindConfirmedIncident, tt.from, tt.to)
		require.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestClosedConfirmedIncidentIsTerminal(t *testing.T) {
	for _, to := range []string{"Pending", "Investigating", "Recovering", "Recovered", "Post-Mortem", "Closed"} {
		require.False(t, CanTransition(KindConfirmedIncident, "Closed", to), "Closed -> %s must be rejected", to)
	}
	require.Empty(t, Allowed(KindConfirmedIncident, "Closed"))
}

func TestProblemTransitions(t *testing.T) {
	require.True(t, CanTransition(KindProblem, "New", "Investigating"))
	require.True(t, CanTransition(KindProblem, "Investigating", "Pending Approval"))
	require.True(t, CanTransition(KindProblem, "Pending Approval", "Closed"))
	require.True(t, CanTransition(KindProblem, "Pending Approval", "Investigating"))
	require.True(t, CanTransition(KindProblem, "Known Error", "Pending Approval"))
	require.False(t, CanTransition(KindProblem, "Closed", "Investigating"))
	require.False(t, CanTransition(KindProblem, "Pending Approval", "Known Error"))
}

func TestUnknownStatesAreRejected(t *testing.T) {
	require.False(t, CanTransition(KindIncident, "Bogus", "Closed"))
	require.False(t, CanTransition(KindIncident, "New", "Bogus"))
	require.False(t, CanTransition(Kind("unknown"), "New", "Closed"))
	require.Nil(t, Allowed(Kind("unknown"), "New"))
}
