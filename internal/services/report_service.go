package services

import (
	"context"
	"fmt"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// ReportService builds the printable area reports.
type ReportService struct {
	store ports.Store
}

func NewReportService(store ports.Store) *ReportService {
	return &ReportService{store: store}
}

// AreaReport loads the area's active cases, their sponsorships and the
// month's one-time extras and reduces them into the report.
func (s *ReportService) AreaReport(ctx context.Context, areaID string, month core.Month) (core.AreaReport, error) {
	if areaID == "" {
		return core.AreaReport{}, core.ErrEmptyArea
	}
	if err := month.Validate(); err != nil {
		return core.AreaReport{}, err
	}
	area, err := s.store.GetArea(ctx, areaID)
	if err != nil {
		return core.AreaReport{}, fmt.Errorf("load area: %w", err)
	}
	cases, err := s.store.ListCases(ctx, areaID)
	if err != nil {
		return core.AreaReport{}, fmt.Errorf("load cases: %w", err)
	}
	sps, err := s.store.ListSponsorships(ctx, ports.SponsorshipFilter{AreaID: areaID})
	if err != nil {
		return core.AreaReport{}, fmt.Errorf("load sponsorships: %w", err)
	}
	adjs, err := s.store.ListAdjustments(ctx, month, core.OneTimeExtra)
	if err != nil {
		return core.AreaReport{}, fmt.Errorf("load extras: %w", err)
	}
	return core.BuildAreaReport(area, month, cases, sps, adjs), nil
}
