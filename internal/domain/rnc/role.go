package rnc

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleOperator   Role = "OPERADOR"
	RoleQuality    Role = "QUALIDADE"
	RoleTechnician Role = "TECNICO"
	RoleEngineer   Role = "ENGENHARIA"
)

var roleAliases = map[string]Role{
	"admin":            RoleAdmin,
	"operador":         RoleOperator,
	"qualidade":        RoleQuality,
	"tecnico":          RoleTechnician,
	"tecnico_usinagem": RoleTechnician,
	"tecnico_fundicao": RoleTechnician,
	"engenharia":       RoleEngineer,
}

func ParseRole(raw string) (Role, error) {
	role, ok := roleAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
	return role, nil
}

// Group is the name of the live-connection group a role belongs to.
func (r Role) Group() string {
	return strings.ToLower(string(r))
}

func AllRoles() []Role {
	return []Role{RoleAdmin, RoleOperator, RoleQuality, RoleTechnician, RoleEngineer}
}

// RoleSet is an allow-list. ADMIN passes every check.
type RoleSet map[Role]struct{}

func roles(in ...Role) RoleSet {
	set := make(RoleSet, len(in))
	for _, r := range in {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Allows(role Role) bool {
	if role == RoleAdmin {
		return true
	}
	_, ok := s[role]
	return ok
}
