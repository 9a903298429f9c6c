package rnc

import "fmt"

type Action string

const (
	ActionOpen    Action = "open"
	ActionAnalyze Action = "analyze"
	ActionRework  Action = "rework"
	ActionClose   Action = "close"
	ActionUpdate  Action = "update"
	// ActionList browses every report. Openers list their own via open_by_id.
	ActionList Action = "list"
)

// rule lists who may perform an action and from which conditions.
// An empty From means the action creates the record.
type rule struct {
	Roles RoleSet
	From  []Condition
}

var nonTerminal = []Condition{
	ConditionInAnalysis,
	ConditionAwaitingRework,
	ConditionAwaitingVerification,
}

var authorizationTable = map[Action]rule{
	ActionOpen: {
		Roles: roles(RoleOperator),
	},
	ActionAnalyze: {
		Roles: roles(RoleQuality, RoleEngineer),
		From:  []Condition{ConditionInAnalysis, ConditionAwaitingVerification},
	},
	ActionRework: {
		Roles: roles(RoleTechnician),
		From:  []Condition{ConditionAwaitingRework},
	},
	ActionClose: {
		Roles: roles(RoleQuality, RoleEngineer),
		From:  nonTerminal,
	},
	ActionUpdate: {
		Roles: roles(RoleQuality, RoleEngineer, RoleTechnician),
		From:  nonTerminal,
	},
	ActionList: {
		Roles: roles(RoleQuality, RoleEngineer, RoleTechnician),
	},
}

// Authorize checks the role half of the table only.
func Authorize(action Action, role Role) error {
	r, ok := authorizationTable[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrTransitionNotAllowed, action)
	}
	if !r.Roles.Allows(role) {
		return fmt.Errorf("%w: %s cannot %s", ErrRoleNotAllowed, role, action)
	}
	return nil
}

// CheckTransition evaluates, in order: terminal status, role, source condition.
func CheckTransition(current RNC, action Action, actor Actor) error {
	if current.IsClosed() {
		return fmt.Errorf("%w: rnc %d", ErrRNCClosed, current.Number)
	}
	if err := Authorize(action, actor.Role); err != nil {
		return err
	}

	for _, from := range authorizationTable[action].From {
		if current.Condition == from {
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrTransitionNotAllowed, action, current.Condition)
}

// AllowedActions lists what actor may do on current right now.
func AllowedActions(current RNC, actor Actor) []Action {
	out := make([]Action, 0, 4)
	for _, action := range []Action{ActionAnalyze, ActionRework, ActionClose, ActionUpdate} {
		if CheckTransition(current, action, actor) == nil {
			out = append(out, action)
		}
	}
	return out
}
