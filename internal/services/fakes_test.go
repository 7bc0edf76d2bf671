package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// memStore is an in-memory ports.Store for service tests.
type memStore struct {
	mu sync.Mutex

	areas         []core.Area
	operators     []core.Operator
	sponsors      []core.Sponsor
	cases         []core.Case
	sponsorships  []core.Sponsorship
	collections   []core.Collection
	synced        map[string]time.Time
	adjustments   []core.Adjustment
	sadaqat       []core.SadaqatEntry
	advances      []core.AdvancePayment
	disbursements []core.Disbursement

	seq   int
	calls []string
	// fail makes the named method return an error.
	fail map[string]error
}

var _ ports.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{synced: map[string]time.Time{}, fail: map[string]error{}}
}

func (m *memStore) call(name string) error {
	m.calls = append(m.calls, name)
	return m.fail[name]
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("new-%s%d", prefix, m.seq)
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) ListAreas(_ context.Context, activeOnly bool) ([]core.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListAreas"); err != nil {
		return nil, err
	}
	var out []core.Area
	for _, a := range m.areas {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) GetArea(_ context.Context, id string) (core.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.areas {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Area{}, core.ErrNotFound
}

func (m *memStore) CreateArea(_ context.Context, a core.Area) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID("area")
	m.areas = append(m.areas, a)
	return a.ID, nil
}

func (m *memStore) ListOperators(context.Context) ([]core.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListOperators"); err != nil {
		return nil, err
	}
	var out []core.Operator
	for _, o := range m.operators {
		if core.OperatorAllowed(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) CreateOperator(_ context.Context, o core.Operator) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.nextID("op")
	m.operators = append(m.operators, o)
	return o.ID, nil
}

func (m *memStore) ListSponsors(_ context.Context, activeOnly bool) ([]core.Sponsor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListSponsors"); err != nil {
		return nil, err
	}
	var out []core.Sponsor
	for _, s := range m.sponsors {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) GetSponsor(_ context.Context, id string) (core.Sponsor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sponsors {
		if s.ID == id {
			return s, nil
		}
	}
	return core.Sponsor{}, core.ErrNotFound
}

func (m *memStore) FindSponsorByName(_ context.Context, name string) (core.Sponsor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sponsors {
		if strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return core.Sponsor{}, core.ErrNotFound
}

func (m *memStore) NextLegacyID(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("NextLegacyID"); err != nil {
		return 0, err
	}
	highest := 0
	for _, s := range m.sponsors {
		if s.LegacyID > highest {
			highest = s.LegacyID
		}
	}
	return highest + 1, nil
}

func (m *memStore) CreateSponsor(_ context.Context, s core.Sponsor) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateSponsor"); err != nil {
		return "", err
	}
	s.ID = m.nextID("sponsor")
	m.sponsors = append(m.sponsors, s)
	return s.ID, nil
}

func (m *memStore) ListCases(_ context.Context, areaID string) ([]core.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Case
	for _, c := range m.cases {
		if c.Status != core.StatusActive || (areaID != "" && c.AreaID != areaID) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) GetCase(_ context.Context, id string) (core.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cases {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Case{}, core.ErrNotFound
}

func (m *memStore) CreateCase(_ context.Context, c core.Case) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateCase"); err != nil {
		return "", err
	}
	c.ID = m.nextID("case")
	m.cases = append(m.cases, c)
	return c.ID, nil
}

func (m *memStore) ListSponsorships(_ context.Context, f ports.SponsorshipFilter) ([]core.Sponsorship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListSponsorships"); err != nil {
		return nil, err
	}
	var out []core.Sponsorship
	for _, sp := range m.sponsorships {
		if sp.Status != core.StatusActive {
			continue
		}
		if f.SponsorID != "" && sp.SponsorID != f.SponsorID {
			continue
		}
		if f.CaseID != "" && sp.CaseID != f.CaseID {
			continue
		}
		if f.AreaID != "" && sp.AreaID != f.AreaID {
			continue
		}
		out = append(out, sp)
	}
	return out, nil
}

func (m *memStore) CreateSponsorship(_ context.Context, sp core.Sponsorship) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateSponsorship"); err != nil {
		return "", err
	}
	sp.ID = m.nextID("sp")
	m.sponsorships = append(m.sponsorships, sp)
	return sp.ID, nil
}

func (m *memStore) UpdateSponsorshipFixed(_ context.Context, id string, amount core.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateSponsorshipFixed"); err != nil {
		return err
	}
	for i := range m.sponsorships {
		if m.sponsorships[i].ID == id {
			m.sponsorships[i].FixedAmount = amount
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) CreateCollection(_ context.Context, c core.Collection) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateCollection"); err != nil {
		return "", err
	}
	c.ID = m.nextID("col")
	m.collections = append(m.collections, c)
	return c.ID, nil
}

func (m *memStore) GetCollection(_ context.Context, id string) (core.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collections {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Collection{}, core.ErrNotFound
}

func (m *memStore) ListCollections(_ context.Context, month core.Month) ([]core.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListCollections"); err != nil {
		return nil, err
	}
	var out []core.Collection
	for _, c := range m.collections {
		if !month.IsZero() && c.Month != month {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) DeleteSponsorCollections(_ context.Context, sponsorID string, month core.Month) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteSponsorCollections"); err != nil {
		return err
	}
	kept := m.collections[:0]
	for _, c := range m.collections {
		if c.SponsorID == sponsorID && c.Month == month {
			continue
		}
		kept = append(kept, c)
	}
	m.collections = kept
	return nil
}

func (m *memStore) ListUnsynced(_ context.Context, limit int) ([]core.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListUnsynced"); err != nil {
		return nil, err
	}
	var out []core.Collection
	for _, c := range m.collections {
		if _, ok := m.synced[c.ID]; ok {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) MarkSynced(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("MarkSynced"); err != nil {
		return err
	}
	m.synced[id] = at
	return nil
}

func (m *memStore) ListAdjustments(_ context.Context, month core.Month, typ core.AdjustmentType) ([]core.Adjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListAdjustments"); err != nil {
		return nil, err
	}
	var out []core.Adjustment
	for _, a := range m.adjustments {
		if (!month.IsZero() && a.Month != month) || (typ != "" && a.Type != typ) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) CreateAdjustment(_ context.Context, a core.Adjustment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateAdjustment"); err != nil {
		return "", err
	}
	a.ID = m.nextID("adj")
	m.adjustments = append(m.adjustments, a)
	return a.ID, nil
}

func (m *memStore) UpdateAdjustmentAmount(_ context.Context, id string, amount core.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateAdjustmentAmount"); err != nil {
		return err
	}
	for i := range m.adjustments {
		if m.adjustments[i].ID == id {
			m.adjustments[i].Amount = amount
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteAdjustment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("DeleteAdjustment"); err != nil {
		return err
	}
	for i := range m.adjustments {
		if m.adjustments[i].ID == id {
			m.adjustments = append(m.adjustments[:i], m.adjustments[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) ListSadaqat(_ context.Context, f ports.SadaqatFilter) ([]core.SadaqatEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListSadaqat"); err != nil {
		return nil, err
	}
	var out []core.SadaqatEntry
	for _, e := range m.sadaqat {
		if (!f.Month.IsZero() && e.Month != f.Month) || (f.Type != "" && e.Type != f.Type) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) CreateSadaqat(_ context.Context, e core.SadaqatEntry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateSadaqat"); err != nil {
		return "", err
	}
	e.ID = m.nextID("sq")
	m.sadaqat = append(m.sadaqat, e)
	return e.ID, nil
}

func (m *memStore) DeleteSadaqat(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sadaqat {
		if m.sadaqat[i].ID == id {
			m.sadaqat = append(m.sadaqat[:i], m.sadaqat[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) CreateAdvance(_ context.Context, a core.AdvancePayment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateAdvance"); err != nil {
		return "", err
	}
	a.ID = m.nextID("adv")
	m.advances = append(m.advances, a)
	return a.ID, nil
}

func (m *memStore) ListActiveAdvances(context.Context) ([]core.AdvancePayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.AdvancePayment(nil), m.advances...), nil
}

func (m *memStore) UpsertDisbursement(_ context.Context, d core.Disbursement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpsertDisbursement"); err != nil {
		return err
	}
	for i := range m.disbursements {
		if m.disbursements[i].AreaID == d.AreaID && m.disbursements[i].Month == d.Month {
			m.disbursements[i] = d
			return nil
		}
	}
	m.disbursements = append(m.disbursements, d)
	return nil
}

func (m *memStore) ListDisbursements(_ context.Context, month core.Month) ([]core.Disbursement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Disbursement
	for _, d := range m.disbursements {
		if d.Month == month {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakePublisher records events and can be made to fail.
type fakePublisher struct {
	mu          sync.Mutex
	collections []ports.CollectionRecorded
	settlements []ports.SettlementSaved
	err         error
}

func (p *fakePublisher) PublishCollectionRecorded(_ context.Context, ev ports.CollectionRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collections = append(p.collections, ev)
	return p.err
}

func (p *fakePublisher) PublishSettlementSaved(_ context.Context, ev ports.SettlementSaved) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settlements = append(p.settlements, ev)
	return p.err
}

// fakeSheet records appended rows.
type fakeSheet struct {
	mu    sync.Mutex
	rows  []ports.SheetRow
	err   error
	delay time.Duration
}

func (s *fakeSheet) AppendRows(_ context.Context, rows []ports.SheetRow) (string, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.rows = append(s.rows, rows...)
	return fmt.Sprintf("Sheet1!A%d", len(s.rows)), nil
}

var errBoom = errors.New("boom")
