package handlers

import (
	"strings"
	"testing"

	"snapsell-bot/internal/store"
)

func TestPlanPayloadRoundTrip(t *testing.T) {
	for _, plan := range []store.Plan{store.PlanBasic, store.PlanPro} {
		payload := planPayload(plan, 424242)

		got, userID, ok := parsePlanPayload(payload)
		if !ok {
			t.Fatalf("parsePlanPayload(%q) not ok", payload)
		}
		if got != plan {
			t.Errorf("plan = %q, want %q", got, plan)
		}
		if userID != 424242 {
			t.Errorf("userID = %d, want 424242", userID)
		}
	}
}

func TestParsePlanPayloadRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"plan_basic",
		"plan_free_1",
		"plan_enterprise_1",
		"plan_basic_notanumber",
		"sub_basic_1",
		"plan_basic_1_extra",
	}
	for _, payload := range cases {
		if _, _, ok := parsePlanPayload(payload); ok {
			t.Errorf("parsePlanPayload(%q) ok, want rejected", payload)
		}
	}
}

func TestBalanceTextPerPlan(t *testing.T) {
	cases := []struct {
		name  string
		usage store.Usage
		want  string
	}{
		{"pro", store.Usage{Plan: store.PlanPro}, "безлимитные"},
		{"basic", store.Usage{Plan: store.PlanBasic, PaidLeft: 12}, "*12*"},
		{"free", store.Usage{Plan: store.PlanFree, FreeUses: 1}, "Осталось: *2*"},
		{"free exhausted", store.Usage{Plan: store.PlanFree, FreeUses: 7}, "Осталось: *0*"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := balanceText(tc.usage, 3)
			if !strings.Contains(got, tc.want) {
				t.Errorf("balanceText = %q, want substring %q", got, tc.want)
			}
		})
	}
}
