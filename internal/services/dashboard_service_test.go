package services

import (
	"context"
	"errors"
	"testing"

	"khidma/internal/core"
)

func TestDashboardService_Dashboard(t *testing.T) {
	st := seededStore()
	st.areas = []core.Area{{ID: "a1", Name: "الحي الأول"}, {ID: "a2", Name: "الحي الثاني"}}
	st.collections = []core.Collection{
		{ID: "col1", SponsorID: "s1", Month: april, Amount: core.Pounds(500), Status: core.StatusConfirmed},
		{ID: "col2", SponsorID: "s2", Month: april, Amount: core.Pounds(100), Status: core.StatusConfirmed},
	}
	svc := NewDashboardService(st)

	d, err := svc.Dashboard(context.Background(), core.MonthFilter{Month: april})
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.TotalObligation != core.Pounds(900) {
		t.Fatalf("obligation = %v, want 900", d.TotalObligation)
	}
	if d.TotalCollected != core.Pounds(600) || d.PaidCount != 1 {
		t.Fatalf("collected = %v paid = %d", d.TotalCollected, d.PaidCount)
	}
	if len(d.Sponsors) != 2 {
		t.Fatalf("virtual sponsor must be excluded, got %d sponsors", len(d.Sponsors))
	}

	all, err := svc.Dashboard(context.Background(), core.MonthFilter{All: true})
	if err != nil {
		t.Fatalf("Dashboard(all): %v", err)
	}
	if all.TotalCollected.Cents != 0 {
		t.Fatalf("month collections are not loaded for all months, got %v", all.TotalCollected)
	}
	st.fail["ListSadaqat"] = errBoom
	if _, err := svc.Dashboard(context.Background(), core.MonthFilter{Month: april}); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
