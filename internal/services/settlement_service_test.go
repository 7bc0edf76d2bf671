package services

import (
	"context"
	"errors"
	"testing"

	"khidma/internal/core"
)

func TestSettlementService_LoadRows(t *testing.T) {
	st := seededStore()
	st.sponsorships[0].ChildName = "يوسف"
	st.sponsorships[1].ChildName = "أمل"
	st.adjustments = []core.Adjustment{
		{ID: "adj1", SponsorshipID: "sp1", Month: april, Type: core.OneTimeExtra, Amount: core.Pounds(150)},
	}
	svc := NewSettlementService(st, nil)

	rows, err := svc.LoadRows(context.Background(), "a1", april)
	if err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ChildName != "أمل" {
		t.Fatalf("rows must be sorted by child name, got %q first", rows[0].ChildName)
	}
	if rows[1].ExtraAdjID != "adj1" || rows[1].Extras != core.Pounds(150) {
		t.Fatalf("extra not attached: %+v", rows[1])
	}

	manual, err := svc.LoadRows(context.Background(), "", april)
	if err != nil || len(manual) != 0 {
		t.Fatalf("manual mode must start empty: %v %v", manual, err)
	}
}

func TestSettlementService_CreateCaseRow(t *testing.T) {
	t.Run("existing sponsor", func(t *testing.T) {
		st := seededStore()
		svc := NewSettlementService(st, nil)
		row, err := svc.CreateCaseRow(context.Background(), NewCaseRow{
			ChildName:   " سارة ",
			SponsorName: "محمد علي ",
			AreaID:      "a1",
			Fixed:       core.Pounds(250),
		})
		if err != nil {
			t.Fatalf("CreateCaseRow: %v", err)
		}
		if row.SponsorID != "s1" || row.ChildName != "سارة" || !row.Included || row.Fixed != core.Pounds(250) {
			t.Fatalf("unexpected row: %+v", row)
		}
		if len(st.sponsors) != 3 {
			t.Fatal("no sponsor must be created for an existing name")
		}
		if c := st.cases[0]; c.Type != core.CaseOrphan || c.Status != core.StatusActive || c.AreaID != "a1" {
			t.Fatalf("unexpected case: %+v", c)
		}
	})

	t.Run("new sponsor", func(t *testing.T) {
		st := seededStore()
		svc := NewSettlementService(st, nil)
		row, err := svc.CreateCaseRow(context.Background(), NewCaseRow{
			ChildName:   "خالد",
			SponsorName: "كفيل جديد",
			Fixed:       core.Pounds(100),
		})
		if err != nil {
			t.Fatalf("CreateCaseRow: %v", err)
		}
		if len(st.sponsors) != 4 || st.sponsors[3].ID != row.SponsorID {
			t.Fatalf("expected a new sponsor, got %+v", st.sponsors)
		}
		if st.sponsors[3].LegacyID != core.VirtualSadaqatLegacyID+1 {
			t.Fatalf("legacy id = %d", st.sponsors[3].LegacyID)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		svc := NewSettlementService(seededStore(), nil)
		if _, err := svc.CreateCaseRow(context.Background(), NewCaseRow{ChildName: "خالد", SponsorName: "x"}); !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("err = %v", err)
		}
		if _, err := svc.CreateCaseRow(context.Background(), NewCaseRow{SponsorName: "x", Fixed: core.Pounds(1)}); !errors.Is(err, core.ErrEmptyName) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestSettlementService_Save(t *testing.T) {
	st := seededStore()
	st.adjustments = []core.Adjustment{
		{ID: "adj1", SponsorshipID: "sp1", Month: april, Type: core.OneTimeExtra, Amount: core.Pounds(150)},
		{ID: "adj2", SponsorshipID: "sp2", Month: april, Type: core.OneTimeExtra, Amount: core.Pounds(80)},
	}
	svc := NewSettlementService(st, nil)

	rows := []core.SettleRow{
		// extra edited
		{SponsorshipID: "sp1", SponsorID: "s1", CaseID: "c1", Fixed: core.Pounds(300), NewFixed: core.Pounds(300),
			Extras: core.Pounds(150), NewExtras: core.Pounds(200), ExtraAdjID: "adj1", Included: true},
		// extra cleared
		{SponsorshipID: "sp2", SponsorID: "s1", CaseID: "c2", Fixed: core.Pounds(200), NewFixed: core.Pounds(200),
			Extras: core.Pounds(80), ExtraAdjID: "adj2"},
		// new extra and fixed raise
		{SponsorshipID: "sp3", SponsorID: "s2", CaseID: "c3", Fixed: core.Pounds(400), NewFixed: core.Pounds(450),
			NewExtras: core.Pounds(50), Included: true},
	}
	if err := svc.Save(context.Background(), april, rows); err != nil {
		t.Fatalf("Save: %v", err)
	}

	byID := map[string]core.Adjustment{}
	var inserted []core.Adjustment
	for _, a := range st.adjustments {
		byID[a.ID] = a
		if a.ID != "adj1" && a.ID != "adj2" {
			inserted = append(inserted, a)
		}
	}
	if byID["adj1"].Amount != core.Pounds(200) {
		t.Fatalf("adj1 = %v, want 200", byID["adj1"].Amount)
	}
	if _, ok := byID["adj2"]; ok {
		t.Fatal("adj2 must be deleted")
	}
	if len(inserted) != 2 {
		t.Fatalf("expected 2 inserted adjustments, got %+v", inserted)
	}
	if inserted[0].Type != core.OneTimeExtra || inserted[0].Amount != core.Pounds(50) {
		t.Fatalf("unexpected extra: %+v", inserted[0])
	}
	if inserted[1].Type != core.PermanentIncrease || inserted[1].Amount != core.Pounds(450) || inserted[1].OldFixed != core.Pounds(400) {
		t.Fatalf("unexpected increase: %+v", inserted[1])
	}
	if st.sponsorships[2].FixedAmount != core.Pounds(450) {
		t.Fatalf("sponsorship fixed = %v, want 450", st.sponsorships[2].FixedAmount)
	}
}

func TestSettlementService_SaveCollectsErrors(t *testing.T) {
	st := seededStore()
	st.fail["UpdateSponsorshipFixed"] = errBoom
	svc := NewSettlementService(st, nil)

	rows := []core.SettleRow{
		{SponsorshipID: "sp1", Fixed: core.Pounds(300), NewFixed: core.Pounds(350)},
		{SponsorshipID: "sp2", Fixed: core.Pounds(200), NewFixed: core.Pounds(200), NewExtras: core.Pounds(40)},
	}
	err := svc.Save(context.Background(), april, rows)
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(st.adjustments) != 1 || st.adjustments[0].Type != core.OneTimeExtra {
		t.Fatalf("later writes must still run: %+v", st.adjustments)
	}
}

func TestSettlementService_SaveAgainAfterPartialFailure(t *testing.T) {
	st := seededStore()
	st.fail["UpdateSponsorshipFixed"] = errBoom
	svc := NewSettlementService(st, nil)
	ctx := context.Background()

	edit := func(rows []core.SettleRow) []core.SettleRow {
		for i := range rows {
			if rows[i].SponsorshipID == "sp1" {
				rows[i].NewExtras = core.Pounds(50)
				rows[i].NewFixed = core.Pounds(350)
			}
		}
		return rows
	}

	rows, err := svc.LoadRows(ctx, "a1", april)
	if err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	if err := svc.Save(ctx, april, edit(rows)); !errors.Is(err, errBoom) {
		t.Fatalf("first save err = %v, want boom", err)
	}

	delete(st.fail, "UpdateSponsorshipFixed")
	rows, err = svc.LoadRows(ctx, "a1", april)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := svc.Save(ctx, april, edit(rows)); err != nil {
		t.Fatalf("second save: %v", err)
	}

	counts := map[core.AdjustmentType]int{}
	for _, a := range st.adjustments {
		if a.SponsorshipID == "sp1" {
			counts[a.Type]++
		}
	}
	if counts[core.OneTimeExtra] != 1 || counts[core.PermanentIncrease] != 1 {
		t.Fatalf("adjustments for sp1 = %v, want one of each", counts)
	}
	if st.sponsorships[0].FixedAmount != core.Pounds(350) {
		t.Fatalf("sponsorship fixed = %v, want 350", st.sponsorships[0].FixedAmount)
	}
}

func TestSettlementService_Outflows(t *testing.T) {
	st := seededStore()
	st.cases = []core.Case{{ID: "c1", ChildName: "يوسف", GuardianName: "أم يوسف", AreaName: "الحي الأول", Status: core.StatusActive}}
	st.sadaqat = []core.SadaqatEntry{
		{ID: "in1", Type: core.Inflow, Amount: core.Pounds(1000), Month: april},
		{ID: "in0", Type: core.Inflow, Amount: core.Pounds(70), Month: april.Add(-1)},
	}
	svc := NewSettlementService(st, nil)
	ctx := context.Background()

	e, err := svc.AddOutflow(ctx, Outflow{Month: april, CaseID: "c1", Amount: core.Pounds(600), ApprovedBy: "o1"})
	if err != nil {
		t.Fatalf("AddOutflow: %v", err)
	}
	if e.Cause != core.DestinationKafalaCase || e.DestinationDescription != "يوسف (أم يوسف) — الحي الأول" {
		t.Fatalf("unexpected case outflow: %+v", e)
	}
	ext, err := svc.AddOutflow(ctx, Outflow{Month: april, RecipientName: "أسرة", RecipientDetail: "إيجار", Amount: core.Pounds(400)})
	if err != nil {
		t.Fatalf("AddOutflow: %v", err)
	}
	if ext.Cause != core.DestinationOneTime || ext.DestinationDescription != "أسرة — إيجار" {
		t.Fatalf("unexpected external outflow: %+v", ext)
	}
	if _, err := svc.AddOutflow(ctx, Outflow{Month: april, Amount: core.Pounds(5)}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("err = %v, want ErrEmptyName", err)
	}

	alloc, err := svc.Allocation(ctx, april)
	if err != nil {
		t.Fatalf("Allocation: %v", err)
	}
	if alloc.Inflow != core.Pounds(1000) || alloc.Allocated != core.Pounds(1000) || !alloc.FullyAllocated {
		t.Fatalf("unexpected allocation: %+v", alloc)
	}

	if err := svc.RemoveOutflow(ctx, ext.ID); err != nil {
		t.Fatalf("RemoveOutflow: %v", err)
	}
	alloc, _ = svc.Allocation(ctx, april)
	if alloc.Remaining != core.Pounds(400) || alloc.FullyAllocated {
		t.Fatalf("unexpected allocation after removal: %+v", alloc)
	}
}

func TestSettlementService_Finalize(t *testing.T) {
	st := seededStore()
	pub := &fakePublisher{}
	svc := NewSettlementService(st, pub)

	rows := []core.SettleRow{
		{NewFixed: core.Pounds(300), NewExtras: core.Pounds(50), Included: true},
		{NewFixed: core.Pounds(200), Included: true},
		{NewFixed: core.Pounds(999)},
	}
	totals, err := svc.Finalize(context.Background(), "a1", april, rows)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if totals.Count != 2 || totals.GrandTotal != core.Pounds(550) {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if _, err := svc.Finalize(context.Background(), "a1", april, rows[:1]); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(st.disbursements) != 1 || st.disbursements[0].FixedTotal != core.Pounds(300) {
		t.Fatalf("disbursement must be upserted: %+v", st.disbursements)
	}
	if len(pub.settlements) != 2 || pub.settlements[0].Rows != 2 || pub.settlements[0].ExtrasCents != 5000 {
		t.Fatalf("unexpected events: %+v", pub.settlements)
	}
}

func TestSettlementService_ReceivingCases(t *testing.T) {
	st := seededStore()
	st.cases = []core.Case{
		{ID: "c1", ChildName: "يوسف", AreaName: "الحي الأول", Status: core.StatusActive},
		{ID: "c2", ChildName: "مريم", GuardianName: "أم يوسف", AreaName: "الحي الثاني", Status: core.StatusActive},
		{ID: "c3", ChildName: "علي", AreaName: "الحي الثاني", Status: core.StatusActive},
	}
	svc := NewSettlementService(st, nil)

	got, err := svc.ReceivingCases(context.Background(), "يوسف", 25)
	if err != nil {
		t.Fatalf("ReceivingCases: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected child and guardian matches, got %d", len(got))
	}
	got, _ = svc.ReceivingCases(context.Background(), "", 1)
	if len(got) != 1 {
		t.Fatalf("limit not applied: %d", len(got))
	}
}
