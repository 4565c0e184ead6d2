package domain

import (
	"errors"
	"testing"
)

func TestParsePlanAcceptsCatalogCodes(t *testing.T) {
	for _, p := range Plans() {
		got, err := ParsePlan(string(p))
		if err != nil {
			t.Fatalf("ParsePlan(%q) returned error: %v", p, err)
		}
		if got != p {
			t.Fatalf("ParsePlan(%q) = %q", p, got)
		}
	}
}

func TestParsePlanRejectsLegacyAndUnknownCodes(t *testing.T) {
	for _, code := range []string{"", "trial", "basic", "premium", "BASICO", "basico "} {
		if _, err := ParsePlan(code); !errors.Is(err, ErrInvalidPlan) {
			t.Fatalf("ParsePlan(%q) err = %v, want ErrInvalidPlan", code, err)
		}
	}
}

func TestMigrateLegacyPlan(t *testing.T) {
	cases := map[string]Plan{
		"trial":   PlanBasicoTrial,
		"basic":   PlanBasico,
		"premium": PlanProfissional,
	}
	for code, want := range cases {
		got, ok := MigrateLegacyPlan(code)
		if !ok || got != want {
			t.Fatalf("MigrateLegacyPlan(%q) = %q, %v; want %q", code, got, ok, want)
		}
	}
	if _, ok := MigrateLegacyPlan("basico"); ok {
		t.Fatal("current codes must not round-trip through the legacy table")
	}
}

func TestTrialVariantsShareTierEntitlements(t *testing.T) {
	if !PlanBasicoTrial.IsTrial() || PlanBasico.IsTrial() {
		t.Fatal("trial flag wrong for basico tier")
	}
	if PlanBasicoTrial.Tier() != PlanBasico.Tier() {
		t.Fatal("trial variant reports a different tier")
	}
	trial := PlanProfissionalTrial.Entitlements()
	paid := PlanProfissional.Entitlements()
	if trial.MaxPatients != paid.MaxPatients || trial.AIChat != paid.AIChat {
		t.Fatalf("profissional trial entitlements %+v diverge from paid %+v", trial, paid)
	}
}

func TestInvalidPlanUnlocksNothing(t *testing.T) {
	e := Plan("premium").Entitlements()
	if e.MaxPatients != 0 || e.AIChat {
		t.Fatalf("invalid plan got entitlements: %+v", e)
	}
}
