package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"khidma/internal/core"
)

var april = core.Month{Year: 2026, Month: 4}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC) }
}

func seededStore() *memStore {
	st := newMemStore()
	st.sponsors = []core.Sponsor{
		{ID: "s1", LegacyID: 1, Name: "محمد علي", IsActive: true},
		{ID: "s2", LegacyID: 2, Name: "أحمد حسن", IsActive: true},
		{ID: "sq", LegacyID: core.VirtualSadaqatLegacyID, Name: "صدقات", IsActive: true},
	}
	st.sponsorships = []core.Sponsorship{
		{ID: "sp1", SponsorID: "s1", CaseID: "c1", FixedAmount: core.Pounds(300), Status: core.StatusActive, AreaID: "a1"},
		{ID: "sp2", SponsorID: "s1", CaseID: "c2", FixedAmount: core.Pounds(200), Status: core.StatusActive, AreaID: "a1"},
		{ID: "sp3", SponsorID: "s2", CaseID: "c3", FixedAmount: core.Pounds(400), Status: core.StatusActive, AreaID: "a2"},
		{ID: "sp4", SponsorID: "sq", CaseID: "c4", FixedAmount: core.Pounds(100), Status: core.StatusActive, AreaID: "a2"},
	}
	st.operators = []core.Operator{{ID: "o1", Name: "أحمد"}, {ID: "o2", Name: core.ExcludedOperatorName}}
	return st
}

func TestCollectionService_SaveWithSadaqat(t *testing.T) {
	st := seededStore()
	pub := &fakePublisher{}
	svc := NewCollectionService(st, pub)
	svc.now = fixedClock()

	res, err := svc.SaveCollection(context.Background(), SaveCollectionRequest{
		SponsorID:   "s1",
		SponsorName: "محمد علي",
		Month:       april,
		Amount:      core.Pounds(600),
		Fixed:       core.Pounds(500),
		Sadaqat:     core.Pounds(100),
		ReceivedBy:  "o1",
		Method:      core.MethodInstapay,
	})
	if err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}
	if len(st.collections) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(st.collections))
	}
	c := st.collections[0]
	if c.Status != core.StatusConfirmed || c.AdvanceType != core.AdvanceMonthly || c.AdvanceMonths != 1 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if len(st.sadaqat) != 1 {
		t.Fatalf("expected 1 sadaqat inflow, got %d", len(st.sadaqat))
	}
	in := st.sadaqat[0]
	if in.Type != core.Inflow || in.SourceType != core.SourceCollectionExtra || in.SourceCollectionID != res.CollectionID {
		t.Fatalf("unexpected inflow: %+v", in)
	}
	if in.DonorName != "محمد علي" || in.Amount != core.Pounds(100) || in.Month != april {
		t.Fatalf("unexpected inflow fields: %+v", in)
	}
	if len(st.advances) != 0 || res.Placeholders != 0 {
		t.Fatalf("single-month payment must not create advances")
	}
	if len(pub.collections) != 1 || pub.collections[0].SadaqatCents != 10000 || pub.collections[0].Month != "2026-04" {
		t.Fatalf("unexpected events: %+v", pub.collections)
	}
}

func TestCollectionService_SaveAnnualAdvance(t *testing.T) {
	st := seededStore()
	svc := NewCollectionService(st, nil)
	svc.now = fixedClock()

	res, err := svc.SaveCollection(context.Background(), SaveCollectionRequest{
		SponsorID:     "s1",
		Month:         april,
		Amount:        core.Pounds(6000),
		Fixed:         core.Pounds(6000),
		ReceivedBy:    "o1",
		Method:        core.MethodCash,
		AdvanceType:   core.AdvanceAnnual,
		AdvanceMonths: 12,
	})
	if err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}
	if res.Placeholders != 11 || len(st.collections) != 12 {
		t.Fatalf("expected 11 placeholders, got %d (%d rows)", res.Placeholders, len(st.collections))
	}
	if len(st.advances) != 1 {
		t.Fatalf("expected 1 advance row, got %d", len(st.advances))
	}
	adv := st.advances[0]
	if adv.PaymentType != core.AdvanceAnnual || adv.MonthsCovered != 12 || adv.CaseID != "c1" {
		t.Fatalf("unexpected advance: %+v", adv)
	}
	if want := time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC); !adv.PaidUntil.Equal(want) {
		t.Fatalf("paid until = %v, want %v", adv.PaidUntil, want)
	}
	if adv.CollectionID != res.CollectionID || adv.Amount != core.Pounds(6000) {
		t.Fatalf("advance must reference the collection: %+v", adv)
	}

	last := st.collections[11]
	if last.Month != (core.Month{Year: 2027, Month: 3}) {
		t.Fatalf("last placeholder month = %v", last.Month)
	}
	if last.Amount != core.Pounds(500) || last.Fixed != core.Pounds(500) || last.AdvanceMonths != 0 {
		t.Fatalf("unexpected placeholder: %+v", last)
	}
	if last.Notes != "دفعة مقدمة من شهر 2026-04" || last.ReceivedBy != "o1" || last.Method != core.MethodCash {
		t.Fatalf("unexpected placeholder details: %+v", last)
	}
}

func TestCollectionService_SaveMonthsInAdvance(t *testing.T) {
	st := seededStore()
	svc := NewCollectionService(st, nil)
	svc.now = fixedClock()

	_, err := svc.SaveCollection(context.Background(), SaveCollectionRequest{
		SponsorID:     "s1",
		Month:         april,
		Amount:        core.Pounds(1500),
		Fixed:         core.Pounds(1500),
		Method:        core.MethodCash,
		AdvanceType:   core.AdvanceMonthsAhead,
		AdvanceMonths: 3,
	})
	if err != nil {
		t.Fatalf("SaveCollection: %v", err)
	}
	if c := st.collections[0]; c.AdvanceType != core.AdvanceMonthsAhead || c.AdvanceMonths != 3 {
		t.Fatalf("collection advance = %q/%d, want months_in_advance/3", c.AdvanceType, c.AdvanceMonths)
	}
	if len(st.advances) != 1 || st.advances[0].PaymentType != core.AdvanceAdvance {
		t.Fatalf("advance rows = %+v, want one typed advance", st.advances)
	}
}

func TestCollectionService_SaveStopsOnFailure(t *testing.T) {
	st := seededStore()
	st.fail["CreateSadaqat"] = errBoom
	svc := NewCollectionService(st, nil)

	res, err := svc.SaveCollection(context.Background(), SaveCollectionRequest{
		SponsorID: "s1",
		Month:     april,
		Amount:    core.Pounds(600),
		Fixed:     core.Pounds(500),
		Sadaqat:   core.Pounds(100),
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if res.CollectionID == "" || len(st.collections) != 1 {
		t.Fatal("the collection written before the failure must stay")
	}
}

func TestCollectionService_PublishFailureIsNotReturned(t *testing.T) {
	st := seededStore()
	svc := NewCollectionService(st, &fakePublisher{err: errBoom})

	if _, err := svc.SaveCollection(context.Background(), SaveCollectionRequest{
		SponsorID: "s2",
		Month:     april,
		Amount:    core.Pounds(400),
		Fixed:     core.Pounds(400),
	}); err != nil {
		t.Fatalf("publish errors must not fail the save: %v", err)
	}
}

func TestCollectionService_SaveValidation(t *testing.T) {
	tests := []struct {
		name string
		req  SaveCollectionRequest
		want error
	}{
		{"no sponsor", SaveCollectionRequest{Month: april, Amount: core.Pounds(1)}, core.ErrEmptySponsor},
		{"no month", SaveCollectionRequest{SponsorID: "s1", Amount: core.Pounds(1)}, core.ErrInvalidMonth},
		{"zero amount", SaveCollectionRequest{SponsorID: "s1", Month: april}, core.ErrInvalidAmount},
		{"portions over amount", SaveCollectionRequest{SponsorID: "s1", Month: april, Amount: core.Pounds(100),
			Fixed: core.Pounds(100), Sadaqat: core.Pounds(1)}, core.ErrPortionsExceedAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := seededStore()
			svc := NewCollectionService(st, nil)
			_, err := svc.SaveCollection(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(st.collections) != 0 {
				t.Fatal("nothing must be written on validation errors")
			}
		})
	}
}

func TestCollectionService_PendingCollections(t *testing.T) {
	st := seededStore()
	st.adjustments = []core.Adjustment{
		{ID: "adj1", SponsorID: "s1", Month: april, Type: core.OneTimeExtra, Amount: core.Pounds(100)},
	}
	st.collections = []core.Collection{
		{ID: "col1", SponsorID: "s1", Month: april, Amount: core.Pounds(200)},
		{ID: "col2", SponsorID: "s2", Month: april, Amount: core.Pounds(400)},
	}
	svc := NewCollectionService(st, nil)

	rows, err := svc.PendingCollections(context.Background(), april)
	if err != nil {
		t.Fatalf("PendingCollections: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only s1 pending, got %d rows", len(rows))
	}
	r := rows[0]
	if r.Sponsor.ID != "s1" || r.Obligation != core.Pounds(600) || r.Outstanding != core.Pounds(400) {
		t.Fatalf("unexpected row: %+v", r)
	}
	if len(r.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(r.Cases))
	}
}

func TestCollectionService_ConfirmCollection(t *testing.T) {
	st := seededStore()
	may := april.Next()
	st.collections = []core.Collection{
		{ID: "old1", SponsorID: "s1", Month: april, Amount: core.Pounds(100)},
		{ID: "old2", SponsorID: "s1", Month: april, Amount: core.Pounds(50)},
		{ID: "keep", SponsorID: "s1", Month: may, Amount: core.Pounds(500)},
	}
	svc := NewCollectionService(st, nil)

	id, err := svc.ConfirmCollection(context.Background(), core.Confirmation{
		SponsorID:  "s1",
		OperatorID: "o1",
		Amount:     core.Pounds(700),
	}, april)
	if err != nil {
		t.Fatalf("ConfirmCollection: %v", err)
	}

	var aprilRows []core.Collection
	for _, c := range st.collections {
		if c.Month == april {
			aprilRows = append(aprilRows, c)
		}
	}
	if len(aprilRows) != 1 || aprilRows[0].ID != id {
		t.Fatalf("expected the month to hold only the confirmation, got %+v", aprilRows)
	}
	c := aprilRows[0]
	if c.Fixed != core.Pounds(500) || c.Extra != core.Pounds(200) {
		t.Fatalf("split = %v/%v, want 500/200", c.Fixed, c.Extra)
	}
	if c.Method != core.MethodCash || c.Status != core.StatusPaid || c.ReceivedBy != "o1" {
		t.Fatalf("unexpected confirmation: %+v", c)
	}
	if len(st.collections) != 2 {
		t.Fatalf("other months must be kept, got %d rows", len(st.collections))
	}
}

func TestCollectionService_ConfirmCollections(t *testing.T) {
	st := seededStore()
	svc := NewCollectionService(st, nil)

	sum, err := svc.ConfirmCollections(context.Background(), []core.Confirmation{
		{SponsorID: "s1", SponsorName: "محمد علي", OperatorID: "o1", Amount: core.Pounds(500)},
		{SponsorID: "s2", SponsorName: "أحمد حسن", Amount: core.Pounds(400)},
		{SponsorName: "بدون", Amount: core.Pounds(10)},
	}, april)
	if err == nil {
		t.Fatal("expected the invalid confirmation to be reported")
	}
	if sum.Total != core.Pounds(900) {
		t.Fatalf("total = %v, want 900", sum.Total)
	}
	if len(sum.ByOperator) != 1 || sum.ByOperator[0].OperatorName != "أحمد" {
		t.Fatalf("unexpected operator totals: %+v", sum.ByOperator)
	}
	if len(sum.Unassigned) != 1 {
		t.Fatalf("expected 1 unassigned, got %d", len(sum.Unassigned))
	}
}

func TestCollectionService_MonthSheet(t *testing.T) {
	st := seededStore()
	st.collections = []core.Collection{
		{ID: "col1", SponsorID: "s1", Month: april, Amount: core.Pounds(500), Fixed: core.Pounds(500), ReceivedBy: "o1", Method: core.MethodCash},
		{ID: "col2", SponsorID: "s2", Month: april.Next(), Amount: core.Pounds(400)},
	}
	svc := NewCollectionService(st, nil)

	rows, err := svc.MonthSheet(context.Background(), april)
	if err != nil {
		t.Fatalf("MonthSheet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].SponsorName != "محمد علي" || rows[0].ReceivedBy != "أحمد" || rows[0].Month != "2026-04" {
		t.Errorf("unexpected row: %+v", rows[0])
	}

	if _, err := svc.MonthSheet(context.Background(), core.Month{}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("zero month err = %v", err)
	}
}
