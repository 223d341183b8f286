// Package statemachine declares the transition tables for the lifecycle
// entities. Validation is pure: no side effects, no database access.
// Absence of a state from its table means the state is terminal.
package statemachine

// Kind selects which entity's transition table applies.
type Kind string

const (
	KindIncident          Kind = "incident"
	KindConfirmedIncident Kind = "confirmed_incident"
	KindProblem           Kind = "problem"
)

var transitions = map[Kind]map[string][]string{
	KindIncident: {
		"New":         {"In Progress", "On Hold", "Resolved", "Closed"},
		"In Progress": {"On Hold", "Resolved", "Closed"},
		"On Hold":     {"In Progress", "Resolved", "Closed"},
		"Resolved":    {"Closed", "Reopened"},
		"Closed":      {"Reopened"},
		"Reopened":    {"In Progress", "On Hold", "Resolved", "Closed"},
	},
	KindConfirmedIncident: {
		"Pending":       {"Investigating", "Closed"},
		"Investigating": {"Recovering", "Closed"},
		"Recovering":    {"Recovered", "Investigating"},
		"Recovered":     {"Post-Mortem", "Investigating"},
		"Post-Mortem":   {"Closed"},
		"Closed":        {},
	},
	KindProblem: {
		"New":              {"Investigating", "Known Error", "Pending Approval", "Closed"},
		"Investigating":    {"Known Error", "Pending Approval", "Closed"},
		"Known Error":      {"Investigating", "Pending Approval", "Closed"},
		"Pending Approval": {"Investigating", "Closed"},
		"Closed":           {},
	},
}

// CanTransition reports whether the entity kind may move from one status
// to another in a single step.
func CanTransition(kind Kind, from, to string) bool {
	table, ok := transitions[kind]
	if !ok {
		return false
	}

	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// Allowed returns the statuses reachable from the given status in one step.
func Allowed(kind Kind, from string) []string {
	table, ok := transitions[kind]
	if !ok {
		return nil
	}

	out := make([]string, len(table[from]))
	copy(out, table[from])
	return out
}
