package domain

import (
	"fmt"
	"sort"
)

// Plan enumerates subscription tier codes. Each tier has a paid variant and a
// trial variant; the trial variant grants the same entitlements until the
// expiration sweeper demotes the user.
type Plan string

const (
	PlanBasicoTrial       Plan = "basico_trial"
	PlanBasico            Plan = "basico"
	PlanProfissionalTrial Plan = "profissional_trial"
	PlanProfissional      Plan = "profissional"
)

// TrialPlan is the plan assigned to new users on their first authenticated visit.
const TrialPlan = PlanBasicoTrial

// Entitlements describes what a plan unlocks.
type Entitlements struct {
	MaxPatients   int
	MaxStaffRoles int
	AIChat        bool
	Trial         bool
}

var planCatalog = map[Plan]Entitlements{
	PlanBasicoTrial:       {MaxPatients: 50, MaxStaffRoles: 3, AIChat: false, Trial: true},
	PlanBasico:            {MaxPatients: 200, MaxStaffRoles: 5, AIChat: false},
	PlanProfissionalTrial: {MaxPatients: 1000, MaxStaffRoles: 20, AIChat: true, Trial: true},
	PlanProfissional:      {MaxPatients: 1000, MaxStaffRoles: 20, AIChat: true},
}

// legacyPlanCodes maps codes written by pre-launch builds to their current
// equivalents. They are never accepted at the persistence boundary; planctl
// migrates them explicitly.
var legacyPlanCodes = map[string]Plan{
	"trial":   PlanBasicoTrial,
	"basic":   PlanBasico,
	"premium": PlanProfissional,
}

// ParsePlan validates a raw plan code read from storage or input.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlan, s)
	}
	return p, nil
}

// MigrateLegacyPlan resolves a legacy plan code to its current replacement.
func MigrateLegacyPlan(code string) (Plan, bool) {
	p, ok := legacyPlanCodes[code]
	return p, ok
}

// LegacyPlanCodes lists the retired codes planctl knows how to migrate.
func LegacyPlanCodes() []string {
	out := make([]string, 0, len(legacyPlanCodes))
	for code := range legacyPlanCodes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Plans returns every valid plan code, trial variants included.
func Plans() []Plan {
	return []Plan{PlanBasicoTrial, PlanBasico, PlanProfissionalTrial, PlanProfissional}
}

func (p Plan) IsValid() bool {
	_, ok := planCatalog[p]
	return ok
}

// IsTrial reports whether the code is a trial variant.
func (p Plan) IsTrial() bool {
	return planCatalog[p].Trial
}

// Entitlements returns the catalog entry for the plan. Invalid codes get the
// zero value, which unlocks nothing.
func (p Plan) Entitlements() Entitlements {
	return planCatalog[p]
}

// Tier strips the trial suffix, leaving the billable tier name.
func (p Plan) Tier() string {
	switch p {
	case PlanBasicoTrial, PlanBasico:
		return "basico"
	case PlanProfissionalTrial, PlanProfissional:
		return "profissional"
	}
	return ""
}
