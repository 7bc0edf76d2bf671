package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// CollectionService records payments and confirms cash collections.
type CollectionService struct {
	store  ports.Store
	events ports.EventPublisher
	now    func() time.Time
}

func NewCollectionService(store ports.Store, events ports.EventPublisher) *CollectionService {
	return &CollectionService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// SaveCollectionRequest is a payment as entered on the collect page.
type SaveCollectionRequest struct {
	SponsorID     string
	SponsorName   string
	Month         core.Month
	Amount        core.Money
	Fixed         core.Money
	Extra         core.Money
	Sadaqat       core.Money
	ReceivedBy    string
	Method        string
	OCRRaw        string
	Notes         string
	AdvanceType   string
	AdvanceMonths int
}

// SaveResult reports what a saved collection produced.
type SaveResult struct {
	CollectionID string
	SadaqatID    string
	AdvanceID    string
	Placeholders int
}

// SaveCollection inserts the collection, then the sadaqat inflow for its
// sadaqat portion and, for multi-month payments, the advance payment row and
// one placeholder collection per later month. The follow-up writes run in
// order without a transaction: a failure stops there and leaves earlier rows.
func (s *CollectionService) SaveCollection(ctx context.Context, req SaveCollectionRequest) (SaveResult, error) {
	advType := req.AdvanceType
	if advType == "" {
		advType = core.AdvanceMonthly
	}
	months := req.AdvanceMonths
	if months < 1 {
		months = 1
	}
	c := core.Collection{
		SponsorID:     req.SponsorID,
		Month:         req.Month,
		Amount:        req.Amount,
		Fixed:         req.Fixed,
		Extra:         req.Extra,
		Sadaqat:       req.Sadaqat,
		ReceivedBy:    req.ReceivedBy,
		Method:        req.Method,
		OCRRaw:        req.OCRRaw,
		Status:        core.StatusConfirmed,
		Notes:         req.Notes,
		AdvanceType:   advType,
		AdvanceMonths: months,
		CreatedAt:     s.now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return SaveResult{}, err
	}

	var res SaveResult
	id, err := s.store.CreateCollection(ctx, c)
	if err != nil {
		return res, fmt.Errorf("save collection: %w", err)
	}
	res.CollectionID = id

	if req.Sadaqat.Cents > 0 {
		sid, err := s.store.CreateSadaqat(ctx, core.SadaqatEntry{
			Type:               core.Inflow,
			Amount:             req.Sadaqat,
			SourceType:         core.SourceCollectionExtra,
			SourceCollectionID: id,
			DonorName:          req.SponsorName,
			Month:              req.Month,
		})
		if err != nil {
			return res, fmt.Errorf("save sadaqat inflow: %w", err)
		}
		res.SadaqatID = sid
	}

	plan, ok := core.ProjectAdvance(core.AdvanceRequest{
		SponsorID:   req.SponsorID,
		Start:       req.Month,
		Months:      months,
		AdvanceType: advType,
		Fixed:       req.Fixed,
		ReceivedBy:  req.ReceivedBy,
		Method:      req.Method,
	})
	if ok {
		sps, err := s.store.ListSponsorships(ctx, ports.SponsorshipFilter{SponsorID: req.SponsorID})
		if err != nil {
			return res, fmt.Errorf("load sponsorships: %w", err)
		}
		var caseID string
		if len(sps) > 0 {
			caseID = sps[0].CaseID
		}
		aid, err := s.store.CreateAdvance(ctx, core.AdvancePayment{
			SponsorID:     req.SponsorID,
			CaseID:        caseID,
			CollectionID:  id,
			PaymentType:   plan.PaymentType,
			Amount:        req.Amount,
			MonthsCovered: plan.MonthsCovered,
			StartMonth:    plan.StartMonth,
			PaidUntil:     plan.PaidUntil,
			Status:        core.StatusActive,
		})
		if err != nil {
			return res, fmt.Errorf("save advance payment: %w", err)
		}
		res.AdvanceID = aid
		for _, p := range plan.Placeholders {
			p.CreatedAt = s.now().UTC()
			if _, err := s.store.CreateCollection(ctx, p); err != nil {
				return res, fmt.Errorf("save placeholder %s: %w", p.Month, err)
			}
			res.Placeholders++
		}
	}

	s.publishRecorded(ctx, c, res)
	return res, nil
}

func (s *CollectionService) publishRecorded(ctx context.Context, c core.Collection, res SaveResult) {
	if s.events == nil {
		slog.DebugContext(ctx, "No event publisher, skipping collection event", "collection_id", res.CollectionID)
		return
	}
	err := s.events.PublishCollectionRecorded(ctx, ports.CollectionRecorded{
		CollectionID: res.CollectionID,
		SponsorID:    c.SponsorID,
		Month:        c.Month.String(),
		AmountCents:  c.Amount.Cents,
		SadaqatCents: c.Sadaqat.Cents,
		Placeholders: res.Placeholders,
		Timestamp:    s.now().UTC(),
	})
	if err != nil {
		// the collection is saved; the spreadsheet catches up on the next sync
		slog.ErrorContext(ctx, "Failed to publish collection event",
			"collection_id", res.CollectionID, "error", err)
	}
}

// SponsorObligation is the sum of the sponsor's active fixed pledges.
func (s *CollectionService) SponsorObligation(ctx context.Context, sponsorID string) (core.Money, error) {
	sps, err := s.SponsorCases(ctx, sponsorID)
	if err != nil {
		return core.Money{}, err
	}
	return core.Obligation(sps), nil
}

// SponsorCases lists the sponsor's active sponsorships with case names.
func (s *CollectionService) SponsorCases(ctx context.Context, sponsorID string) ([]core.Sponsorship, error) {
	if sponsorID == "" {
		return nil, core.ErrEmptySponsor
	}
	sps, err := s.store.ListSponsorships(ctx, ports.SponsorshipFilter{SponsorID: sponsorID})
	if err != nil {
		return nil, fmt.Errorf("sponsor cases: %w", err)
	}
	return sps, nil
}

// PendingCollections lists the sponsors that still owe money for the month.
func (s *CollectionService) PendingCollections(ctx context.Context, month core.Month) ([]core.PendingRow, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	sponsors, err := s.store.ListSponsors(ctx, true)
	if err != nil {
		return nil, err
	}
	sps, err := s.store.ListSponsorships(ctx, ports.SponsorshipFilter{})
	if err != nil {
		return nil, err
	}
	adjs, err := s.store.ListAdjustments(ctx, month, core.OneTimeExtra)
	if err != nil {
		return nil, err
	}
	cols, err := s.store.ListCollections(ctx, month)
	if err != nil {
		return nil, err
	}
	return core.PendingCollections(core.PendingInput{
		Month:        month,
		Sponsors:     sponsors,
		Sponsorships: sps,
		Adjustments:  adjs,
		Collections:  cols,
	}), nil
}

// ConfirmCollection replaces the sponsor's collections for the month with a
// single cash payment marked paid. The amount is split against the fixed
// pledge.
func (s *CollectionService) ConfirmCollection(ctx context.Context, conf core.Confirmation, month core.Month) (string, error) {
	if conf.SponsorID == "" {
		return "", core.ErrEmptySponsor
	}
	if err := conf.Amount.Validate(); err != nil {
		return "", err
	}
	if err := month.Validate(); err != nil {
		return "", err
	}
	fixed, err := s.SponsorObligation(ctx, conf.SponsorID)
	if err != nil {
		return "", err
	}
	fixedPortion, extraPortion := core.ConfirmSplit(conf.Amount, fixed)

	if err := s.store.DeleteSponsorCollections(ctx, conf.SponsorID, month); err != nil {
		return "", fmt.Errorf("clear month collections: %w", err)
	}
	c := core.Collection{
		SponsorID:     conf.SponsorID,
		Month:         month,
		Amount:        conf.Amount,
		Fixed:         fixedPortion,
		Extra:         extraPortion,
		ReceivedBy:    conf.OperatorID,
		Method:        core.MethodCash,
		Status:        core.StatusPaid,
		AdvanceType:   core.AdvanceMonthly,
		AdvanceMonths: 1,
		CreatedAt:     s.now().UTC(),
	}
	id, err := s.store.CreateCollection(ctx, c)
	if err != nil {
		return "", fmt.Errorf("confirm collection: %w", err)
	}
	s.publishRecorded(ctx, c, SaveResult{CollectionID: id})
	return id, nil
}

// ConfirmCollections confirms every entry and returns the per-operator
// summary of those that succeeded along with the collected errors.
func (s *CollectionService) ConfirmCollections(ctx context.Context, confs []core.Confirmation, month core.Month) (core.ConfirmationSummary, error) {
	var done []core.Confirmation
	var errs []error
	for _, c := range confs {
		if _, err := s.ConfirmCollection(ctx, c, month); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.SponsorName, err))
			continue
		}
		done = append(done, c)
	}
	ops, err := s.store.ListOperators(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("load operators: %w", err))
	}
	return core.SummarizeConfirmations(done, ops), errors.Join(errs...)
}

// MonthSheet lists the month's collections as spreadsheet rows, with
// sponsor and operator names resolved.
func (s *CollectionService) MonthSheet(ctx context.Context, month core.Month) ([]ports.SheetRow, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	cols, err := s.store.ListCollections(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	return sheetRows(ctx, s.store, cols)
}
