package reminder

import (
	"context"
	"testing"
	"time"
)

var quotaNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// stubCounter returns canned counts and records the window it was asked
// about.
type stubCounter struct {
	count  int
	active int

	lastTypes []string
	lastFrom  time.Time
	lastTo    time.Time
}

func (c *stubCounter) CountBookings(ctx context.Context, employeeID string, types []string, from, to time.Time) (int, error) {
	c.lastTypes = types
	c.lastFrom = from
	c.lastTo = to
	return c.count, nil
}

func (c *stubCounter) CountActiveBookings(ctx context.Context, employeeID string, types []string, from time.Time) (int, error) {
	return c.active, nil
}

func newQuotaService(t *testing.T, counter BookingCounter) *Service {
	t.Helper()
	store := NewMemoryStore()
	svc := NewService(store, counter)
	svc.Now = func() time.Time { return quotaNow }
	for _, policy := range DefaultPolicies() {
		if err := svc.RegisterPolicy(context.Background(), policy); err != nil {
			t.Fatalf("register policy: %v", err)
		}
	}
	return svc
}

func seedProfile(t *testing.T, svc *Service, profile EmployeeProfile) {
	t.Helper()
	if profile.HireDate.IsZero() {
		profile.HireDate = quotaNow.AddDate(-2, 0, 0)
	}
	if err := svc.UpsertProfile(context.Background(), profile); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
}

func TestCheckQuotaUnknownEmployee(t *testing.T) {
	svc := newQuotaService(t, &stubCounter{})
	decision, err := svc.CheckQuota(context.Background(), "ghost", TypeAdHoc)
	if err != nil {
		t.Fatalf("check quota: %v", err)
	}
	if decision.Allowed || decision.Code != codePermissionDenied {
		t.Fatalf("expected permission denial, got %+v", decision)
	}
}

func TestCheckQuotaMandatoryWindows(t *testing.T) {
	cases := []struct {
		name     string
		status   EmploymentStatus
		itype    string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			"new employee monthly uses the calendar month",
			StatusNewEmployee, TypeNewEmployeeMonthly,
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"regular annual uses the calendar year",
			StatusRegularEmployee, TypeAnnual,
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"management biannual uses a rolling six-month window",
			StatusManagement, TypeBiannual,
			time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			counter := &stubCounter{}
			svc := newQuotaService(t, counter)
			seedProfile(t, svc, EmployeeProfile{EmployeeID: "emp-1", Status: tc.status})

			decision, err := svc.CheckQuota(context.Background(), "emp-1", tc.itype)
			if err != nil {
				t.Fatalf("check quota: %v", err)
			}
			if !decision.Allowed {
				t.Fatalf("expected allow, got %+v", decision)
			}
			if !counter.lastFrom.Equal(tc.wantFrom) || !counter.lastTo.Equal(tc.wantTo) {
				t.Fatalf("window [%v, %v), want [%v, %v)", counter.lastFrom, counter.lastTo, tc.wantFrom, tc.wantTo)
			}

			counter.count = 1
			decision, err = svc.CheckQuota(context.Background(), "emp-1", tc.itype)
			if err != nil {
				t.Fatalf("check quota: %v", err)
			}
			if decision.Allowed || decision.Code != codeQuotaExceeded {
				t.Fatalf("expected quota denial, got %+v", decision)
			}
		})
	}
}

func TestCheckQuotaOpenBookingConsumesQuota(t *testing.T) {
	counter := &stubCounter{active: 1}
	svc := newQuotaService(t, counter)
	seedProfile(t, svc, EmployeeProfile{EmployeeID: "emp-1", Status: StatusRegularEmployee})

	decision, err := svc.CheckQuota(context.Background(), "emp-1", TypeAnnual)
	if err != nil {
		t.Fatalf("check quota: %v", err)
	}
	if decision.Allowed || decision.Code != codeQuotaExceeded {
		t.Fatalf("expected quota denial for open booking, got %+v", decision)
	}
}

func TestCheckQuotaTypeStatusMismatch(t *testing.T) {
	svc := newQuotaService(t, &stubCounter{})
	seedProfile(t, svc, EmployeeProfile{EmployeeID: "emp-1", Status: StatusRegularEmployee})

	for _, itype := range []string{TypeReturnToWork, TypeExitInterview, TypeNewEmployeeMonthly, TypeBiannual} {
		decision, err := svc.CheckQuota(context.Background(), "emp-1", itype)
		if err != nil {
			t.Fatalf("check quota %s: %v", itype, err)
		}
		if decision.Allowed || decision.Code != codePermissionDenied {
			t.Fatalf("%s: expected permission denial, got %+v", itype, decision)
		}
	}
}

func TestCheckQuotaAdHocByStatus(t *testing.T) {
	t.Run("new employee capped at one per month", func(t *testing.T) {
		counter := &stubCounter{}
		svc := newQuotaService(t, counter)
		seedProfile(t, svc, EmployeeProfile{EmployeeID: "emp-1", Status: StatusNewEmployee})

		decision, _ := svc.CheckQuota(context.Background(), "emp-1", TypeAdHoc)
		if !decision.Allowed {
			t.Fatalf("expected allow, got %+v", decision)
		}
		counter.count = 1
		decision, _ = svc.CheckQuota(context.Background(), "emp-1", TypeAdHoc)
		if decision.Allowed || decision.Code != codeQuotaExceeded {
			t.Fatalf("expected quota denial, got %+v", decision)
		}
	})

	t.Run("regular capped at two per rolling quarter", func(t *testing.T) {
		counter := &stubCounter{count: 1}
		svc := newQuotaService(t, counter)
		seedProfile(t, svc, EmployeeProfile{EmployeeID: "emp-1", Status: StatusRegularEmployee})

		decision, _ := svc.CheckQuota(context.Background(), "emp-1", TypeAdHoc)
		if !decision.Allowed {
			t.Fatalf("expected allow at one prior booking, got %+v", decision)
		}
		wantFrom := time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC)
		wantTo := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
		if !counter.lastFrom.Equal(wantFrom) || !counter.lastTo.Equal(wantTo) {
			t.Fatalf("window [%v, %v), want [%v, %v)", counter.lastFrom, counter.lastTo, wantFrom, wantTo)
		}

		counter.count = 2
		decision, _ = svc.CheckQuota(context.Background(), "emp-1", TypeAdHoc)
		if decision.Allowed || decision.Code != codeQuotaExceeded {
			t.Fatalf("expected quota denial at two, got %+v", decision)
		}
	})

	t.Run("management is uncapped", func(t *testing.T) {
		counter := &stubCounter{count: 40}
		svc := newQuotaService(t, counter)
		seedProfile(t, svc, EmployeeProfile{EmployeeID: "emp-1", Status: StatusManagement})

		decision, _ := svc.CheckQuota(context.Background(), "emp-1", TypeAdHoc)
		if !decision.Allowed {
			t.Fatalf("expected allow, got %+v", decision)
		}
	})
}

func TestCheckQuotaOnLeave(t *testing.T) {
	svc := newQuotaService(t, &stubCounter{})
	seedProfile(t, svc, EmployeeProfile{
		EmployeeID: "emp-1",
		Status:     StatusOnLeave,
		Special:    SpecialCircumstances{OnLeave: true, ReturnDate: "2026-03-20"},
	})
	ctx := context.Background()

	decision, _ := svc.CheckQuota(ctx, "emp-1", TypeAdHoc)
	if decision.Allowed || decision.Code != codePermissionDenied {
		t.Fatalf("expected permission denial for ad-hoc on leave, got %+v", decision)
	}

	decision, _ = svc.CheckQuota(ctx, "emp-1", TypeReturnToWork)
	if !decision.Allowed {
		t.Fatalf("expected allow inside the return window, got %+v", decision)
	}

	// Return date more than a month out closes the window.
	seedProfile(t, svc, EmployeeProfile{
		EmployeeID: "emp-1",
		Status:     StatusOnLeave,
		Special:    SpecialCircumstances{OnLeave: true, ReturnDate: "2026-06-01"},
	})
	decision, _ = svc.CheckQuota(ctx, "emp-1", TypeReturnToWork)
	if decision.Allowed || decision.Code != codePermissionDenied {
		t.Fatalf("expected denial outside the return window, got %+v", decision)
	}

	// No return date on record at all.
	seedProfile(t, svc, EmployeeProfile{EmployeeID: "emp-1", Status: StatusOnLeave})
	decision, _ = svc.CheckQuota(ctx, "emp-1", TypeReturnToWork)
	if decision.Allowed {
		t.Fatalf("expected denial without a return date, got %+v", decision)
	}
}

func TestCheckQuotaRetiring(t *testing.T) {
	counter := &stubCounter{}
	svc := newQuotaService(t, counter)
	seedProfile(t, svc, EmployeeProfile{
		EmployeeID: "emp-1",
		Status:     StatusRetiring,
		Special:    SpecialCircumstances{Retiring: true},
	})
	ctx := context.Background()

	decision, _ := svc.CheckQuota(ctx, "emp-1", TypeAnnual)
	if decision.Allowed || decision.Code != codePermissionDenied {
		t.Fatalf("expected permission denial for annual while retiring, got %+v", decision)
	}

	decision, err := svc.CheckQuota(ctx, "emp-1", TypeExitInterview)
	if err != nil {
		t.Fatalf("check quota: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected allow for first exit interview, got %+v", decision)
	}

	counter.active = 1
	decision, _ = svc.CheckQuota(ctx, "emp-1", TypeExitInterview)
	if decision.Allowed || decision.Code != codeQuotaExceeded {
		t.Fatalf("expected quota denial for second exit interview, got %+v", decision)
	}
}
