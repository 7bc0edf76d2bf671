package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// DashboardService loads everything the dashboard tabs need.
type DashboardService struct {
	store ports.Store
}

func NewDashboardService(store ports.Store) *DashboardService {
	return &DashboardService{store: store}
}

// Dashboard runs the independent loads concurrently and reduces them. Month
// collections and disbursements are skipped when the filter covers all
// months.
func (s *DashboardService) Dashboard(ctx context.Context, filter core.MonthFilter) (core.Dashboard, error) {
	in := core.DashboardInput{Filter: filter}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		in.Sponsors, err = s.store.ListSponsors(gctx, false)
		return wrap("sponsors", err)
	})
	g.Go(func() (err error) {
		in.Sponsorships, err = s.store.ListSponsorships(gctx, ports.SponsorshipFilter{})
		return wrap("sponsorships", err)
	})
	g.Go(func() (err error) {
		in.Areas, err = s.store.ListAreas(gctx, false)
		return wrap("areas", err)
	})
	g.Go(func() (err error) {
		in.Operators, err = s.store.ListOperators(gctx)
		return wrap("operators", err)
	})
	g.Go(func() (err error) {
		in.Sadaqat, err = s.store.ListSadaqat(gctx, ports.SadaqatFilter{})
		return wrap("sadaqat", err)
	})
	g.Go(func() (err error) {
		in.Advances, err = s.store.ListActiveAdvances(gctx)
		return wrap("advances", err)
	})
	if !filter.All {
		g.Go(func() (err error) {
			in.Collections, err = s.store.ListCollections(gctx, filter.Month)
			return wrap("collections", err)
		})
		g.Go(func() (err error) {
			in.Disbursements, err = s.store.ListDisbursements(gctx, filter.Month)
			return wrap("disbursements", err)
		})
	}
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}
	return core.BuildDashboard(in), nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}
