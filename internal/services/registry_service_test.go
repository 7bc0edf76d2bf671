package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"khidma/internal/cache"
	"khidma/internal/core"
)

func TestRegistryService_CreateSponsorAssignsNextLegacyID(t *testing.T) {
	st := seededStore()
	svc := NewRegistryService(st, time.Minute, nil)

	sp, err := svc.CreateSponsor(context.Background(), core.Sponsor{Name: "  كفيل جديد ", Phone: " 0100 "})
	if err != nil {
		t.Fatalf("CreateSponsor: %v", err)
	}
	if sp.LegacyID != core.VirtualSadaqatLegacyID+1 {
		t.Fatalf("legacy id = %d, want %d", sp.LegacyID, core.VirtualSadaqatLegacyID+1)
	}
	if sp.Name != "كفيل جديد" || sp.Phone != "0100" || !sp.IsActive || sp.PaymentFrequency != core.AdvanceMonthly {
		t.Fatalf("unexpected sponsor: %+v", sp)
	}

	if _, err := svc.CreateSponsor(context.Background(), core.Sponsor{Name: "   "}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("err = %v, want ErrEmptyName", err)
	}
}

func TestRegistryService_CreateCase(t *testing.T) {
	t.Run("with sponsorship", func(t *testing.T) {
		st := seededStore()
		svc := NewRegistryService(st, time.Minute, nil)
		id, err := svc.CreateCase(context.Background(), NewCase{
			Case:        core.Case{ChildName: "يوسف", AreaID: "a1"},
			SponsorID:   "s1",
			FixedAmount: core.Pounds(300),
		})
		if err != nil {
			t.Fatalf("CreateCase: %v", err)
		}
		c := st.cases[len(st.cases)-1]
		if c.ID != id || c.Type != core.CaseOrphan || c.Status != core.StatusActive {
			t.Fatalf("unexpected case: %+v", c)
		}
		sp := st.sponsorships[len(st.sponsorships)-1]
		if sp.CaseID != id || sp.SponsorID != "s1" || sp.FixedAmount != core.Pounds(300) {
			t.Fatalf("unexpected sponsorship: %+v", sp)
		}
	})

	t.Run("failing sponsorship keeps the case", func(t *testing.T) {
		st := seededStore()
		st.fail["CreateSponsorship"] = errBoom
		svc := NewRegistryService(st, time.Minute, nil)
		id, err := svc.CreateCase(context.Background(), NewCase{
			Case:        core.Case{ChildName: "مريم", AreaID: "a2"},
			SponsorID:   "s2",
			FixedAmount: core.Pounds(250),
		})
		if !errors.Is(err, ErrSponsorshipFailed) || !errors.Is(err, errBoom) {
			t.Fatalf("err = %v", err)
		}
		if id == "" || len(st.cases) != 1 {
			t.Fatal("the case must stay when its sponsorship fails")
		}
	})

	t.Run("missing area", func(t *testing.T) {
		svc := NewRegistryService(seededStore(), time.Minute, nil)
		if _, err := svc.CreateCase(context.Background(), NewCase{Case: core.Case{ChildName: "علي"}}); !errors.Is(err, core.ErrEmptyArea) {
			t.Fatalf("err = %v, want ErrEmptyArea", err)
		}
	})
}

func TestRegistryService_LookupsAreCached(t *testing.T) {
	st := seededStore()
	st.areas = []core.Area{{ID: "a1", Name: "الحي الأول", IsActive: true}, {ID: "a2", Name: "قديم"}}
	mgr := cache.NewManager()
	svc := NewRegistryService(st, time.Minute, mgr)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		areas, err := svc.Areas(ctx, true)
		if err != nil {
			t.Fatalf("Areas: %v", err)
		}
		if len(areas) != 1 {
			t.Fatalf("expected 1 active area, got %d", len(areas))
		}
	}
	ops, err := svc.Operators(ctx)
	if err != nil {
		t.Fatalf("Operators: %v", err)
	}
	for _, o := range ops {
		if o.Name == core.ExcludedOperatorName {
			t.Fatal("excluded operator listed")
		}
	}

	count := func(name string) int {
		n := 0
		for _, c := range st.calls {
			if c == name {
				n++
			}
		}
		return n
	}
	if got := count("ListAreas"); got != 1 {
		t.Fatalf("ListAreas called %d times, want 1", got)
	}

	if _, err := svc.Sponsors(ctx); err != nil {
		t.Fatalf("Sponsors: %v", err)
	}
	if _, err := svc.CreateSponsor(ctx, core.Sponsor{Name: "جديد"}); err != nil {
		t.Fatalf("CreateSponsor: %v", err)
	}
	sponsors, err := svc.Sponsors(ctx)
	if err != nil {
		t.Fatalf("Sponsors: %v", err)
	}
	if len(sponsors) != 4 {
		t.Fatalf("new sponsor must be visible after create, got %d", len(sponsors))
	}

	svc.Invalidate()
	if _, err := svc.Areas(ctx, true); err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if got := count("ListAreas"); got != 2 {
		t.Fatalf("ListAreas called %d times after Invalidate, want 2", got)
	}
}
