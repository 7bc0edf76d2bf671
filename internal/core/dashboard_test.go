package core

import "testing"

func dashboardFixture(filter MonthFilter) DashboardInput {
	return DashboardInput{
		Filter: filter,
		Sponsors: []Sponsor{
			{ID: "s1", Name: "سعيد", IsActive: true, ResponsibleOperatorID: "o1"},
			{ID: "s2", Name: "باسم", IsActive: true, PaidThroughSponsorID: "s1"},
			{ID: "s3", Name: "زياد", IsActive: true},
			{ID: "s4", Name: "بدون كفالة", IsActive: true},
			{ID: "v", Name: "صدقات", IsActive: true, LegacyID: VirtualSadaqatLegacyID},
		},
		Sponsorships: []Sponsorship{
			{SponsorID: "s1", AreaID: "a1", FixedAmount: Pounds(500), Status: StatusActive},
			{SponsorID: "s2", AreaID: "a1", FixedAmount: Pounds(300), Status: StatusActive},
			{SponsorID: "s2", AreaID: "a2", FixedAmount: Pounds(200), Status: StatusActive},
			{SponsorID: "s3", AreaID: "a2", FixedAmount: Pounds(400), Status: StatusActive},
			{SponsorID: "v", AreaID: "a2", FixedAmount: Pounds(9000), Status: StatusActive},
		},
		Areas:     []Area{{ID: "a1", Name: "المنيا"}, {ID: "a2", Name: "أسيوط"}},
		Operators: []Operator{{ID: "o1", Name: "محمود"}, {ID: "o2", Name: ExcludedOperatorName}},
		Sadaqat: []SadaqatEntry{
			{Type: Inflow, Amount: Pounds(1000), Month: Month{2026, 3}},
			{Type: Outflow, Amount: Pounds(200), Month: Month{2026, 4}},
			{Type: Inflow, Amount: Pounds(100), Month: Month{2026, 4}},
		},
		Collections: []Collection{
			{SponsorID: "s1", Month: Month{2026, 4}, Amount: Pounds(500), Status: StatusConfirmed},
			{SponsorID: "s2", Month: Month{2026, 4}, Amount: Pounds(100), Status: StatusConfirmed},
		},
	}
}

func TestBuildDashboardMonth(t *testing.T) {
	d := BuildDashboard(dashboardFixture(MonthFilter{Month: Month{2026, 4}}))

	if len(d.Sponsors) != 3 {
		t.Fatalf("expected 3 sponsors with obligations, got %d", len(d.Sponsors))
	}
	if d.TotalObligation != Pounds(1400) || d.TotalCollected != Pounds(600) || d.EffectiveCollected != Pounds(600) {
		t.Fatalf("totals = %v %v %v", d.TotalObligation, d.TotalCollected, d.EffectiveCollected)
	}
	if d.Remaining != Pounds(800) || d.CollectedPercent != 43 {
		t.Fatalf("remaining = %v, percent = %d", d.Remaining, d.CollectedPercent)
	}
	if d.PaidCount != 1 {
		t.Fatalf("PaidCount = %d", d.PaidCount)
	}

	status := map[string]SponsorStatus{}
	for _, s := range d.Sponsors {
		status[s.Sponsor.ID] = s.Status
		if s.Sponsor.ID == "s1" && s.Responsible != "محمود" {
			t.Fatalf("responsible = %q", s.Responsible)
		}
		if s.Sponsor.ID == "s2" {
			if s.PaidThrough != "سعيد" || s.CaseCount != 2 || s.ByArea["a2"] != Pounds(200) {
				t.Fatalf("s2 = %+v", s)
			}
		}
	}
	if status["s1"] != SponsorPaid || status["s2"] != SponsorPartial || status["s3"] != SponsorUnpaid {
		t.Fatalf("statuses = %v", status)
	}

	if d.Sadaqat.In != Pounds(100) || d.Sadaqat.Out != Pounds(200) || d.Sadaqat.Balance != Pounds(-100) {
		t.Fatalf("sadaqat = %+v", d.Sadaqat)
	}

	if len(d.Areas) != 2 || d.AreaTotal != Pounds(1400) || d.AreaCases != 4 || !d.AreaExtras.IsZero() {
		t.Fatalf("areas = %+v total %v", d.Areas, d.AreaTotal)
	}
}

func TestBuildDashboardUsesDisbursements(t *testing.T) {
	in := dashboardFixture(MonthFilter{Month: Month{2026, 4}})
	in.Disbursements = []Disbursement{
		{AreaID: "a1", Month: Month{2026, 4}, FixedTotal: Pounds(800), ExtrasTotal: Pounds(150)},
	}
	d := BuildDashboard(in)
	if len(d.Areas) != 1 {
		t.Fatalf("expected 1 area, got %d", len(d.Areas))
	}
	a := d.Areas[0]
	if a.Name != "المنيا" || a.Cases != 2 || a.Extras != Pounds(150) || a.Total != Pounds(950) || a.Permille != 1000 {
		t.Fatalf("area = %+v", a)
	}
}

func TestBuildDashboardBeforeCollectionStart(t *testing.T) {
	d := BuildDashboard(dashboardFixture(MonthFilter{Month: Month{2026, 1}}))
	if !d.TotalCollected.IsZero() {
		t.Fatalf("no collections expected in January, got %v", d.TotalCollected)
	}
	if d.EffectiveCollected != d.TotalObligation || !d.Remaining.IsZero() || d.CollectedPercent != 100 {
		t.Fatalf("early months count as fully collected: %+v", d)
	}
}

func TestBuildDashboardAll(t *testing.T) {
	in := dashboardFixture(MonthFilter{All: true})
	in.Disbursements = []Disbursement{{AreaID: "a1", FixedTotal: Pounds(1)}}
	d := BuildDashboard(in)
	if !d.TotalCollected.IsZero() {
		t.Fatalf("collections are month specific, got %v", d.TotalCollected)
	}
	if d.Sadaqat.Balance != Pounds(900) {
		t.Fatalf("balance = %v", d.Sadaqat.Balance)
	}
	if len(d.Areas) != 2 {
		t.Fatalf("all months should use sponsorships, got %+v", d.Areas)
	}
}

func TestFilterSponsorBalances(t *testing.T) {
	d := BuildDashboard(dashboardFixture(MonthFilter{Month: Month{2026, 4}}))

	byName := FilterSponsorBalances(d.Sponsors, "", SortByName)
	if byName[0].Sponsor.Name != "باسم" || byName[2].Sponsor.Name != "سعيد" {
		t.Fatalf("name order = %s, %s, %s", byName[0].Sponsor.Name, byName[1].Sponsor.Name, byName[2].Sponsor.Name)
	}
	byObligation := FilterSponsorBalances(d.Sponsors, "", SortByObligation)
	if byObligation[2].Sponsor.ID != "s3" {
		t.Fatalf("obligation order last = %s", byObligation[2].Sponsor.ID)
	}
	matched := FilterSponsorBalances(d.Sponsors, "سعيد", SortByCases)
	if len(matched) != 2 || matched[0].Sponsor.ID != "s2" {
		t.Fatalf("search should match names and pays-through names: %+v", matched)
	}
}
