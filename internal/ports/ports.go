// Package ports declares the storage and outbound interfaces used by the
// services. The sqlx repository implements the stores; the AMQP client and
// the Google Sheets client implement the outbound ports.
package ports

import (
	"context"
	"time"

	"khidma/internal/core"
)

// SponsorshipFilter narrows ListSponsorships. Empty fields match everything.
type SponsorshipFilter struct {
	SponsorID string
	AreaID    string
	CaseID    string
}

// SadaqatFilter narrows ListSadaqat. A zero Month and empty Type match all.
type SadaqatFilter struct {
	Month core.Month
	Type  core.TransactionType
}

// Stores for the relational backend.
type (
	LookupStore interface {
		ListAreas(ctx context.Context, activeOnly bool) ([]core.Area, error)
		GetArea(ctx context.Context, id string) (core.Area, error)
		// ListOperators never returns the excluded operator.
		ListOperators(ctx context.Context) ([]core.Operator, error)
		CreateArea(ctx context.Context, a core.Area) (string, error)
		CreateOperator(ctx context.Context, o core.Operator) (string, error)
	}

	SponsorStore interface {
		ListSponsors(ctx context.Context, activeOnly bool) ([]core.Sponsor, error)
		GetSponsor(ctx context.Context, id string) (core.Sponsor, error)
		// FindSponsorByName matches case-insensitively on the trimmed name.
		FindSponsorByName(ctx context.Context, name string) (core.Sponsor, error)
		NextLegacyID(ctx context.Context) (int, error)
		CreateSponsor(ctx context.Context, s core.Sponsor) (string, error)
	}

	CaseStore interface {
		// ListCases returns active cases with their area name; an empty
		// areaID lists every area.
		ListCases(ctx context.Context, areaID string) ([]core.Case, error)
		GetCase(ctx context.Context, id string) (core.Case, error)
		CreateCase(ctx context.Context, c core.Case) (string, error)
	}

	SponsorshipStore interface {
		// ListSponsorships returns active sponsorships joined with sponsor
		// and case names.
		ListSponsorships(ctx context.Context, f SponsorshipFilter) ([]core.Sponsorship, error)
		CreateSponsorship(ctx context.Context, sp core.Sponsorship) (string, error)
		UpdateSponsorshipFixed(ctx context.Context, id string, amount core.Money) error
	}

	CollectionStore interface {
		CreateCollection(ctx context.Context, c core.Collection) (string, error)
		GetCollection(ctx context.Context, id string) (core.Collection, error)
		ListCollections(ctx context.Context, month core.Month) ([]core.Collection, error)
		DeleteSponsorCollections(ctx context.Context, sponsorID string, month core.Month) error
		// ListUnsynced returns collections not yet mirrored to the spreadsheet,
		// oldest first.
		ListUnsynced(ctx context.Context, limit int) ([]core.Collection, error)
		MarkSynced(ctx context.Context, id string, at time.Time) error
	}

	AdjustmentStore interface {
		ListAdjustments(ctx context.Context, month core.Month, typ core.AdjustmentType) ([]core.Adjustment, error)
		CreateAdjustment(ctx context.Context, a core.Adjustment) (string, error)
		UpdateAdjustmentAmount(ctx context.Context, id string, amount core.Money) error
		DeleteAdjustment(ctx context.Context, id string) error
	}

	SadaqatStore interface {
		// ListSadaqat returns entries in creation order.
		ListSadaqat(ctx context.Context, f SadaqatFilter) ([]core.SadaqatEntry, error)
		CreateSadaqat(ctx context.Context, e core.SadaqatEntry) (string, error)
		DeleteSadaqat(ctx context.Context, id string) error
	}

	AdvanceStore interface {
		CreateAdvance(ctx context.Context, a core.AdvancePayment) (string, error)
		ListActiveAdvances(ctx context.Context) ([]core.AdvancePayment, error)
	}

	DisbursementStore interface {
		UpsertDisbursement(ctx context.Context, d core.Disbursement) error
		ListDisbursements(ctx context.Context, month core.Month) ([]core.Disbursement, error)
	}

	// Store is the whole relational backend.
	Store interface {
		LookupStore
		SponsorStore
		CaseStore
		SponsorshipStore
		CollectionStore
		AdjustmentStore
		SadaqatStore
		AdvanceStore
		DisbursementStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// Events published after writes.
type (
	CollectionRecorded struct {
		CollectionID string    `json:"collection_id"`
		SponsorID    string    `json:"sponsor_id"`
		Month        string    `json:"month"`
		AmountCents  int64     `json:"amount_cents"`
		SadaqatCents int64     `json:"sadaqat_cents"`
		Placeholders int       `json:"placeholders"`
		Timestamp    time.Time `json:"timestamp"`
	}

	SettlementSaved struct {
		AreaID      string    `json:"area_id"`
		Month       string    `json:"month"`
		FixedCents  int64     `json:"fixed_cents"`
		ExtrasCents int64     `json:"extras_cents"`
		Rows        int       `json:"rows"`
		Timestamp   time.Time `json:"timestamp"`
	}

	EventPublisher interface {
		PublishCollectionRecorded(ctx context.Context, ev CollectionRecorded) error
		PublishSettlementSaved(ctx context.Context, ev SettlementSaved) error
	}
)

// Spreadsheet ports.
type (
	// SheetRow is one collection mirrored to the spreadsheet.
	SheetRow struct {
		CollectionID string
		Month        string
		SponsorName  string
		Amount       core.Money
		Fixed        core.Money
		Extra        core.Money
		Sadaqat      core.Money
		Method       string
		ReceivedBy   string
		Notes        string
	}

	SheetWriter interface {
		AppendRows(ctx context.Context, rows []SheetRow) (rangeRef string, err error)
	}

	// SheetReader reads a range as a header row plus data rows.
	SheetReader interface {
		ReadRange(ctx context.Context, rng string) ([][]string, error)
	}
)
