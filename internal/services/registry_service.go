package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"khidma/internal/cache"
	"khidma/internal/core"
)

const (
	keyAreas       = "areas"
	keyActiveAreas = "areas:active"
	keyOperators   = "operators"
	keySponsors    = "sponsors:active"
)

// RegistryStore is the part of the store the registry needs.
type RegistryStore interface {
	ListAreas(ctx context.Context, activeOnly bool) ([]core.Area, error)
	ListOperators(ctx context.Context) ([]core.Operator, error)
	ListSponsors(ctx context.Context, activeOnly bool) ([]core.Sponsor, error)
	NextLegacyID(ctx context.Context) (int, error)
	CreateSponsor(ctx context.Context, s core.Sponsor) (string, error)
	CreateCase(ctx context.Context, c core.Case) (string, error)
	CreateSponsorship(ctx context.Context, sp core.Sponsorship) (string, error)
}

// RegistryService registers sponsors and cases and serves the lookups used
// by every form.
type RegistryService struct {
	store     RegistryStore
	areas     cache.Cache[[]core.Area]
	operators cache.Cache[[]core.Operator]
	sponsors  cache.Cache[[]core.Sponsor]
}

// NewRegistryService caches lookups for ttl and registers the caches with
// the manager, when one is given.
func NewRegistryService(store RegistryStore, ttl time.Duration, mgr *cache.Manager) *RegistryService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	s := &RegistryService{
		store:     store,
		areas:     cache.NewLRUCache[[]core.Area](4, ttl),
		operators: cache.NewLRUCache[[]core.Operator](2, ttl),
		sponsors:  cache.NewLRUCache[[]core.Sponsor](2, ttl),
	}
	if mgr != nil {
		mgr.Register(s.areas.(cache.Cleaner))
		mgr.Register(s.operators.(cache.Cleaner))
		mgr.Register(s.sponsors.(cache.Cleaner))
	}
	return s
}

func (s *RegistryService) Areas(ctx context.Context, activeOnly bool) ([]core.Area, error) {
	key := keyAreas
	if activeOnly {
		key = keyActiveAreas
	}
	return cache.GetOrLoad(s.areas, key, func() ([]core.Area, error) {
		areas, err := s.store.ListAreas(ctx, activeOnly)
		if err != nil {
			return nil, fmt.Errorf("load areas: %w", err)
		}
		core.SortArabic(areas, func(a core.Area) string { return a.Name })
		return areas, nil
	})
}

// Operators never includes the excluded operator.
func (s *RegistryService) Operators(ctx context.Context) ([]core.Operator, error) {
	return cache.GetOrLoad(s.operators, keyOperators, func() ([]core.Operator, error) {
		ops, err := s.store.ListOperators(ctx)
		if err != nil {
			return nil, fmt.Errorf("load operators: %w", err)
		}
		out := ops[:0]
		for _, o := range ops {
			if core.OperatorAllowed(o) {
				out = append(out, o)
			}
		}
		return out, nil
	})
}

// Sponsors lists the active sponsors in Arabic order.
func (s *RegistryService) Sponsors(ctx context.Context) ([]core.Sponsor, error) {
	return cache.GetOrLoad(s.sponsors, keySponsors, func() ([]core.Sponsor, error) {
		sponsors, err := s.store.ListSponsors(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("load sponsors: %w", err)
		}
		core.SortArabic(sponsors, func(sp core.Sponsor) string { return sp.Name })
		return sponsors, nil
	})
}

// Invalidate drops the cached lookups.
func (s *RegistryService) Invalidate() {
	s.areas.Purge()
	s.operators.Purge()
	s.sponsors.Purge()
}

// CreateSponsor inserts an active sponsor with the next legacy id.
func (s *RegistryService) CreateSponsor(ctx context.Context, sp core.Sponsor) (core.Sponsor, error) {
	sp.Name = strings.TrimSpace(sp.Name)
	sp.Phone = strings.TrimSpace(sp.Phone)
	if err := sp.Validate(); err != nil {
		return core.Sponsor{}, err
	}
	next, err := s.store.NextLegacyID(ctx)
	if err != nil {
		return core.Sponsor{}, fmt.Errorf("next legacy id: %w", err)
	}
	sp.LegacyID = next
	sp.IsActive = true
	if sp.PaymentFrequency == "" {
		sp.PaymentFrequency = core.AdvanceMonthly
	}
	id, err := s.store.CreateSponsor(ctx, sp)
	if err != nil {
		return core.Sponsor{}, fmt.Errorf("create sponsor: %w", err)
	}
	sp.ID = id
	s.sponsors.Purge()
	return sp, nil
}

// NewCase is a case registration with an optional sponsorship.
type NewCase struct {
	Case        core.Case
	SponsorID   string
	FixedAmount core.Money
}

// CreateCase inserts the case and, when a sponsor is given, its
// sponsorship. A failing sponsorship leaves the case in place: the returned
// case id is set and the error reports the sponsorship failure.
func (s *RegistryService) CreateCase(ctx context.Context, nc NewCase) (string, error) {
	c := nc.Case
	c.ChildName = strings.TrimSpace(c.ChildName)
	c.GuardianName = strings.TrimSpace(c.GuardianName)
	if c.Type == "" {
		c.Type = core.CaseOrphan
	}
	if c.Status == "" {
		c.Status = core.StatusActive
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.CreateCase(ctx, c)
	if err != nil {
		return "", fmt.Errorf("create case: %w", err)
	}
	if nc.SponsorID == "" {
		return id, nil
	}
	if nc.FixedAmount.Cents <= 0 {
		return id, fmt.Errorf("%w: %w", ErrSponsorshipFailed, core.ErrInvalidAmount)
	}
	if _, err := s.store.CreateSponsorship(ctx, core.Sponsorship{
		SponsorID:   nc.SponsorID,
		CaseID:      id,
		FixedAmount: nc.FixedAmount,
		Status:      core.StatusActive,
	}); err != nil {
		return id, fmt.Errorf("%w: %w", ErrSponsorshipFailed, err)
	}
	return id, nil
}

// ErrSponsorshipFailed marks a case saved without its sponsorship.
var ErrSponsorshipFailed = errors.New("case saved without sponsorship")
