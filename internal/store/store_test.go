package store

import (
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *fakeClock) AdvanceDays(days int)    { c.Advance(time.Duration(days) * 24 * time.Hour) }

func newTestStore(t *testing.T, freeLimit int) (*Store, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s, err := Open(Options{
		Path:      filepath.Join(t.TempDir(), "test.db"),
		FreeLimit: freeLimit,
		Now:       clock.Now,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestEnsureAccountIdempotent(t *testing.T) {
	s, _ := newTestStore(t, 3)

	if err := s.EnsureAccount(1, "alice", "Alice"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := s.EnsureAccount(1, "alice_new", "Alice"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	acc, found, err := s.account(1)
	if err != nil || !found {
		t.Fatalf("account lookup: found=%v err=%v", found, err)
	}
	if acc.Username != "alice_new" {
		t.Errorf("username = %q, want %q", acc.Username, "alice_new")
	}
	if acc.Plan != PlanFree {
		t.Errorf("plan = %q, want free", acc.Plan)
	}
}

func TestCanGenerateFreeLimit(t *testing.T) {
	s, _ := newTestStore(t, 3)
	if err := s.EnsureAccount(1, "u", "U"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		ok, err := s.CanGenerate(1)
		if err != nil {
			t.Fatalf("CanGenerate #%d: %v", i, err)
		}
		if !ok {
			t.Fatalf("CanGenerate #%d = false, want true", i)
		}
		if _, err := s.RecordUse(1); err != nil {
			t.Fatalf("RecordUse #%d: %v", i, err)
		}
	}

	ok, err := s.CanGenerate(1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("CanGenerate after exhausting free limit = true, want false")
	}
}

func TestRecordUseFreeIncrements(t *testing.T) {
	s, _ := newTestStore(t, 3)
	if err := s.EnsureAccount(1, "u", "U"); err != nil {
		t.Fatal(err)
	}

	usage, err := s.RecordUse(1)
	if err != nil {
		t.Fatal(err)
	}
	if usage.Plan != PlanFree || usage.FreeUses != 1 {
		t.Errorf("usage = %+v, want plan free with FreeUses 1", usage)
	}
}

func TestRecordUseBasicClampsAtZero(t *testing.T) {
	s, _ := newTestStore(t, 3)
	if err := s.EnsureAccount(1, "u", "U"); err != nil {
		t.Fatal(err)
	}
	if err := s.GrantPlan(1, PlanBasic, 2, 0); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		usage, err := s.RecordUse(1)
		if err != nil {
			t.Fatalf("RecordUse #%d: %v", i, err)
		}
		if usage.Plan != PlanBasic {
			t.Fatalf("usage plan = %q, want basic", usage.Plan)
		}
		want := 2 - (i + 1)
		if want < 0 {
			want = 0
		}
		if usage.PaidLeft != want {
			t.Errorf("PaidLeft after %d uses = %d, want %d", i+1, usage.PaidLeft, want)
		}
	}
}

func TestRecordUseProLeavesCountersAlone(t *testing.T) {
	s, _ := newTestStore(t, 3)
	if err := s.EnsureAccount(1, "u", "U"); err != nil {
		t.Fatal(err)
	}
	if err := s.GrantPlan(1, PlanPro, 0, 30); err != nil {
		t.Fatal(err)
	}

	usage, err := s.RecordUse(1)
	if err != nil {
		t.Fatal(err)
	}
	if usage.Plan != PlanPro || usage.FreeUses != 0 || usage.PaidLeft != 0 {
		t.Errorf("usage = %+v, want untouched pro counters", usage)
	}
}

func TestGrantBasicIsAdditive(t *testing.T) {
	s, _ := newTestStore(t, 3)
	if err := s.EnsureAccount(1, "u", "U"); err != nil {
		t.Fatal(err)
	}

	if err := s.GrantPlan(1, PlanBasic, 30, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.GrantPlan(1, PlanBasic, 30, 0); err != nil {
		t.Fatal(err)
	}

	usage, err := s.Usage(1)
	if err != nil {
		t.Fatal(err)
	}
	if usage.PaidLeft != 60 {
		t.Errorf("PaidLeft after two grants of 30 = %d, want 60", usage.PaidLeft)
	}
}

func TestGrantProReplacesWindow(t *testing.T) {
	s, clock := newTestStore(t, 3)
	if err := s.EnsureAccount(1, "u", "U"); err != nil {
		t.Fatal(err)
	}

	if err := s.GrantPlan(1, PlanPro, 0, 30); err != nil {
		t.Fatal(err)
	}
	clock.AdvanceDays(10)
	if err := s.GrantPlan(1, PlanPro, 0, 30); err != nil {
		t.Fatal(err)
	}

	acc, _, err := s.account(1)
	if err != nil {
		t.Fatal(err)
	}
	want := clock.Now().Add(30 * 24 * time.Hour)
	if acc.ProUntil == nil || !acc.ProUntil.Equal(want) {
		t.Errorf("ProUntil = %v, want %v (repurchase restarts the window)", acc.ProUntil, want)
	}
}

func TestLazyProExpiryIsIdempotent(t *testing.T) {
	s, clock := newTestStore(t, 3)
	if err := s.EnsureAccount(1, "u", "U"); err != nil {
		t.Fatal(err)
	}
	if err := s.GrantPlan(1, PlanPro, 0, 30); err != nil {
		t.Fatal(err)
	}

	plan, err := s.CurrentPlan(1)
	if err != nil {
		t.Fatal(err)
	}
	if plan != PlanPro {
		t.Fatalf("plan before expiry = %q, want pro", plan)
	}

	clock.AdvanceDays(31)

	for i := 0; i < 2; i++ {
		plan, err = s.CurrentPlan(1)
		if err != nil {
			t.Fatalf("CurrentPlan after expiry #%d: %v", i, err)
		}
		if plan != PlanFree {
			t.Errorf("plan after expiry read #%d = %q, want free", i, plan)
		}
	}

	acc, _, err := s.account(1)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Plan != PlanFree || acc.ProUntil != nil {
		t.Errorf("stored account = plan %q ProUntil %v, want free with ProUntil cleared", acc.Plan, acc.ProUntil)
	}
}

func TestEffectivePlan(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		acc  Account
		want Plan
	}{
		{"free stays free", Account{Plan: PlanFree}, PlanFree},
		{"basic stays basic", Account{Plan: PlanBasic}, PlanBasic},
		{"pro with future window", Account{Plan: PlanPro, ProUntil: &future}, PlanPro},
		{"pro with past window", Account{Plan: PlanPro, ProUntil: &past}, PlanFree},
		{"pro with missing window", Account{Plan: PlanPro}, PlanFree},
		{"unknown plan reads free", Account{Plan: Plan("vip")}, PlanFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectivePlan(tt.acc, now); got != tt.want {
				t.Errorf("EffectivePlan = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStats(t *testing.T) {
	s, _ := newTestStore(t, 3)

	for id := int64(1); id <= 3; id++ {
		if err := s.EnsureAccount(id, "u", "U"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.GrantPlan(2, PlanBasic, 30, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.LogGeneration(1, "ceramic mug"); err != nil {
		t.Fatal(err)
	}
	if err := s.LogGeneration(2, "leather wallet"); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalUsers != 3 {
		t.Errorf("TotalUsers = %d, want 3", st.TotalUsers)
	}
	if st.PaidUsers != 1 {
		t.Errorf("PaidUsers = %d, want 1", st.PaidUsers)
	}
	if st.TotalGenerations != 2 {
		t.Errorf("TotalGenerations = %d, want 2", st.TotalGenerations)
	}
}

func TestUnknownUserReadsAsFree(t *testing.T) {
	s, _ := newTestStore(t, 3)

	plan, err := s.CurrentPlan(404)
	if err != nil {
		t.Fatal(err)
	}
	if plan != PlanFree {
		t.Errorf("plan for unknown user = %q, want free", plan)
	}

	ok, err := s.CanGenerate(404)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("CanGenerate for unknown user = false, want true (fresh free quota)")
	}
}
