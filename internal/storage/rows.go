package storage

import (
	"database/sql"
	"time"

	"khidma/internal/core"
)

// Row structs mirror the table columns; conversions to core types live here.

type areaRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	IsActive bool   `db:"is_active"`
}

func (r areaRow) toCore() core.Area {
	return core.Area{ID: r.ID, Name: r.Name, IsActive: r.IsActive}
}

type operatorRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	Role string `db:"role"`
}

func (r operatorRow) toCore() core.Operator {
	return core.Operator{ID: r.ID, Name: r.Name, Role: r.Role}
}

type sponsorRow struct {
	ID                    string         `db:"id"`
	LegacyID              sql.NullInt64  `db:"legacy_id"`
	Name                  string         `db:"name"`
	Phone                 sql.NullString `db:"phone"`
	PaymentFrequency      string         `db:"payment_frequency"`
	IsActive              bool           `db:"is_active"`
	Notes                 sql.NullString `db:"notes"`
	ResponsibleOperatorID sql.NullString `db:"responsible_operator_id"`
	PaidThroughSponsorID  sql.NullString `db:"paid_through_sponsor_id"`
	CreatedAt             time.Time      `db:"created_at"`
}

func (r sponsorRow) toCore() core.Sponsor {
	return core.Sponsor{
		ID:                    r.ID,
		LegacyID:              int(r.LegacyID.Int64),
		Name:                  r.Name,
		Phone:                 r.Phone.String,
		PaymentFrequency:      r.PaymentFrequency,
		IsActive:              r.IsActive,
		Notes:                 r.Notes.String,
		ResponsibleOperatorID: r.ResponsibleOperatorID.String,
		PaidThroughSponsorID:  r.PaidThroughSponsorID.String,
		CreatedAt:             r.CreatedAt,
	}
}

type caseRow struct {
	ID           string         `db:"id"`
	ChildName    string         `db:"child_name"`
	GuardianName sql.NullString `db:"guardian_name"`
	AreaID       sql.NullString `db:"area_id"`
	AreaName     string         `db:"area_name"`
	CaseType     string         `db:"case_type"`
	NeedsLevel   sql.NullString `db:"needs_level"`
	IsMedical    bool           `db:"is_medical_case"`
	HasStudents  bool           `db:"has_students"`
	SchoolYear   sql.NullString `db:"school_year"`
	Status       string         `db:"status"`
	Notes        sql.NullString `db:"notes"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r caseRow) toCore() core.Case {
	return core.Case{
		ID:           r.ID,
		ChildName:    r.ChildName,
		GuardianName: r.GuardianName.String,
		AreaID:       r.AreaID.String,
		AreaName:     r.AreaName,
		Type:         core.CaseType(r.CaseType),
		NeedsLevel:   r.NeedsLevel.String,
		IsMedical:    r.IsMedical,
		HasStudents:  r.HasStudents,
		SchoolYear:   r.SchoolYear.String,
		Status:       r.Status,
		Notes:        r.Notes.String,
		CreatedAt:    r.CreatedAt,
	}
}

type sponsorshipRow struct {
	ID           string `db:"id"`
	SponsorID    string `db:"sponsor_id"`
	CaseID       string `db:"case_id"`
	FixedAmount  int64  `db:"fixed_amount"`
	Status       string `db:"status"`
	SponsorName  string `db:"sponsor_name"`
	ChildName    string `db:"child_name"`
	GuardianName string `db:"guardian_name"`
	AreaID       string `db:"area_id"`
}

func (r sponsorshipRow) toCore() core.Sponsorship {
	return core.Sponsorship{
		ID:           r.ID,
		SponsorID:    r.SponsorID,
		CaseID:       r.CaseID,
		FixedAmount:  core.Money{Cents: r.FixedAmount},
		Status:       r.Status,
		SponsorName:  r.SponsorName,
		ChildName:    r.ChildName,
		GuardianName: r.GuardianName,
		AreaID:       r.AreaID,
	}
}

type collectionRow struct {
	ID            string         `db:"id"`
	SponsorID     string         `db:"sponsor_id"`
	Amount        int64          `db:"amount"`
	Fixed         int64          `db:"fixed_portion"`
	Extra         int64          `db:"extra_portion"`
	Sadaqat       int64          `db:"sadaqat_portion"`
	MonthYear     string         `db:"month_year"`
	ReceivedBy    sql.NullString `db:"received_by_operator_id"`
	Method        sql.NullString `db:"payment_method"`
	OCRRaw        sql.NullString `db:"ocr_raw"`
	Status        string         `db:"status"`
	Notes         sql.NullString `db:"notes"`
	AdvanceType   sql.NullString `db:"advance_type"`
	AdvanceMonths int            `db:"advance_months"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r collectionRow) toCore() core.Collection {
	return core.Collection{
		ID:            r.ID,
		SponsorID:     r.SponsorID,
		Month:         monthOf(r.MonthYear),
		Amount:        core.Money{Cents: r.Amount},
		Fixed:         core.Money{Cents: r.Fixed},
		Extra:         core.Money{Cents: r.Extra},
		Sadaqat:       core.Money{Cents: r.Sadaqat},
		ReceivedBy:    r.ReceivedBy.String,
		Method:        r.Method.String,
		OCRRaw:        r.OCRRaw.String,
		Status:        r.Status,
		Notes:         r.Notes.String,
		AdvanceType:   r.AdvanceType.String,
		AdvanceMonths: r.AdvanceMonths,
		CreatedAt:     r.CreatedAt,
	}
}

type adjustmentRow struct {
	ID             string         `db:"id"`
	SponsorshipID  sql.NullString `db:"sponsorship_id"`
	CaseID         sql.NullString `db:"case_id"`
	SponsorID      sql.NullString `db:"sponsor_id"`
	MonthYear      string         `db:"month_year"`
	AdjustmentType string         `db:"adjustment_type"`
	Amount         int64          `db:"amount"`
	OldFixedAmount int64          `db:"old_fixed_amount"`
	Applied        bool           `db:"applied"`
}

func (r adjustmentRow) toCore() core.Adjustment {
	return core.Adjustment{
		ID:            r.ID,
		SponsorshipID: r.SponsorshipID.String,
		CaseID:        r.CaseID.String,
		SponsorID:     r.SponsorID.String,
		Month:         monthOf(r.MonthYear),
		Type:          core.AdjustmentType(r.AdjustmentType),
		Amount:        core.Money{Cents: r.Amount},
		OldFixed:      core.Money{Cents: r.OldFixedAmount},
		Applied:       r.Applied,
	}
}

type sadaqatRow struct {
	ID                     string         `db:"id"`
	TransactionType        string         `db:"transaction_type"`
	Amount                 int64          `db:"amount"`
	SourceType             sql.NullString `db:"source_type"`
	SourceCollectionID     sql.NullString `db:"source_collection_id"`
	DonorName              sql.NullString `db:"donor_name"`
	DestinationType        sql.NullString `db:"destination_type"`
	DestinationCaseID      sql.NullString `db:"destination_case_id"`
	DestinationDescription sql.NullString `db:"destination_description"`
	Reason                 sql.NullString `db:"reason"`
	ApprovedBy             sql.NullString `db:"approved_by"`
	MonthYear              string         `db:"month_year"`
	CreatedAt              time.Time      `db:"created_at"`
}

func (r sadaqatRow) toCore() core.SadaqatEntry {
	return core.SadaqatEntry{
		ID:                     r.ID,
		Type:                   core.TransactionType(r.TransactionType),
		Amount:                 core.Money{Cents: r.Amount},
		SourceType:             r.SourceType.String,
		SourceCollectionID:     r.SourceCollectionID.String,
		DonorName:              r.DonorName.String,
		Cause:                  r.DestinationType.String,
		DestinationCaseID:      r.DestinationCaseID.String,
		DestinationDescription: r.DestinationDescription.String,
		Reason:                 r.Reason.String,
		ApprovedBy:             r.ApprovedBy.String,
		Month:                  monthOf(r.MonthYear),
		CreatedAt:              r.CreatedAt,
	}
}

type advanceRow struct {
	ID            string         `db:"id"`
	SponsorID     string         `db:"sponsor_id"`
	CaseID        sql.NullString `db:"case_id"`
	CollectionID  sql.NullString `db:"collection_id"`
	PaymentType   string         `db:"payment_type"`
	Amount        int64          `db:"amount"`
	MonthsCovered int            `db:"months_covered"`
	StartMonth    string         `db:"start_month"`
	PaidUntil     string         `db:"paid_until"`
	Status        string         `db:"status"`
	SponsorName   string         `db:"sponsor_name"`
	ChildName     string         `db:"child_name"`
}

func (r advanceRow) toCore() core.AdvancePayment {
	paidUntil, _ := time.Parse(dateLayout, r.PaidUntil)
	return core.AdvancePayment{
		ID:            r.ID,
		SponsorID:     r.SponsorID,
		CaseID:        r.CaseID.String,
		CollectionID:  r.CollectionID.String,
		PaymentType:   r.PaymentType,
		Amount:        core.Money{Cents: r.Amount},
		MonthsCovered: r.MonthsCovered,
		StartMonth:    monthOf(r.StartMonth),
		PaidUntil:     paidUntil,
		Status:        r.Status,
		SponsorName:   r.SponsorName,
		ChildName:     r.ChildName,
	}
}

type disbursementRow struct {
	AreaID      string `db:"area_id"`
	MonthYear   string `db:"month_year"`
	FixedTotal  int64  `db:"fixed_total"`
	ExtrasTotal int64  `db:"extras_total"`
}

func (r disbursementRow) toCore() core.Disbursement {
	return core.Disbursement{
		AreaID:      r.AreaID,
		Month:       monthOf(r.MonthYear),
		FixedTotal:  core.Money{Cents: r.FixedTotal},
		ExtrasTotal: core.Money{Cents: r.ExtrasTotal},
	}
}

const dateLayout = "2006-01-02"

// monthOf parses a month_year column. Malformed values map to the zero month.
func monthOf(s string) core.Month {
	m, err := core.ParseMonth(s)
	if err != nil {
		return core.Month{}
	}
	return m
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
