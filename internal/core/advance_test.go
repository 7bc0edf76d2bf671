package core

import (
	"testing"
	"time"
)

func TestProjectAdvanceSingleMonth(t *testing.T) {
	if _, ok := ProjectAdvance(AdvanceRequest{Start: Month{2026, 3}, Months: 1, Fixed: Pounds(500)}); ok {
		t.Fatalf("single month should not produce a plan")
	}
}

func TestProjectAdvanceWrapsYear(t *testing.T) {
	req := AdvanceRequest{
		SponsorID:   "s1",
		Start:       Month{2026, 11},
		Months:      6,
		AdvanceType: AdvanceSemiAnnual,
		Fixed:       Pounds(3000),
		ReceivedBy:  "o1",
		Method:      MethodInstapay,
	}
	plan, ok := ProjectAdvance(req)
	if !ok {
		t.Fatalf("expected a plan")
	}
	if plan.PaymentType != AdvanceSemiAnnual {
		t.Fatalf("PaymentType = %q", plan.PaymentType)
	}
	if want := time.Date(2027, 4, 30, 0, 0, 0, 0, time.UTC); !plan.PaidUntil.Equal(want) {
		t.Fatalf("PaidUntil = %s", plan.PaidUntil)
	}
	if len(plan.Placeholders) != 5 {
		t.Fatalf("expected 5 placeholders, got %d", len(plan.Placeholders))
	}
	wantMonths := []Month{{2026, 12}, {2027, 1}, {2027, 2}, {2027, 3}, {2027, 4}}
	for i, p := range plan.Placeholders {
		if p.Month != wantMonths[i] {
			t.Fatalf("placeholder %d month = %v", i, p.Month)
		}
		if p.Amount != Pounds(500) || p.Fixed != Pounds(500) || !p.Extra.IsZero() || !p.Sadaqat.IsZero() {
			t.Fatalf("placeholder %d amounts = %+v", i, p)
		}
		if p.AdvanceMonths != 0 || p.AdvanceType != AdvanceSemiAnnual {
			t.Fatalf("placeholder %d advance fields = %q/%d", i, p.AdvanceType, p.AdvanceMonths)
		}
		if p.Notes != "دفعة مقدمة من شهر 2026-11" {
			t.Fatalf("placeholder %d note = %q", i, p.Notes)
		}
		if p.ReceivedBy != "o1" || p.Method != MethodInstapay || p.Status != StatusConfirmed {
			t.Fatalf("placeholder %d metadata = %+v", i, p)
		}
	}
}

func TestPaymentTypeFor(t *testing.T) {
	cases := map[string]string{
		AdvanceAnnual:     AdvanceAnnual,
		AdvanceSemiAnnual: AdvanceSemiAnnual,
		AdvanceMonthly:    AdvanceAdvance,
		"":                AdvanceAdvance,
	}
	for in, want := range cases {
		if got := PaymentTypeFor(in); got != want {
			t.Fatalf("PaymentTypeFor(%q) = %q, want %q", in, got, want)
		}
	}
	if DefaultAdvanceMonths(AdvanceAnnual) != 12 || DefaultAdvanceMonths(AdvanceSemiAnnual) != 6 || DefaultAdvanceMonths(AdvanceMonthly) != 1 {
		t.Fatalf("unexpected default month counts")
	}
}
