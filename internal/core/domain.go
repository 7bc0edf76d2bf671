package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// VirtualSadaqatLegacyID is the legacy id of the account that collects
	// general donations. It is not a real sponsor and carries no obligation.
	VirtualSadaqatLegacyID = 126

	// ExcludedOperatorName is hidden from every operator lookup.
	ExcludedOperatorName = "شريف"
)

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusConfirmed = "confirmed"
	StatusPaid      = "paid"
)

const (
	MethodInstapay = "instapay"
	MethodCash     = "cash"
	MethodBank     = "bank"
)

const (
	AdvanceMonthly    = "monthly"
	AdvanceAnnual     = "annual"
	AdvanceSemiAnnual = "semi_annual"
	AdvanceAdvance    = "advance"
	// AdvanceMonthsAhead is the form and collection value for a custom
	// number of months; its advance_payments row is typed AdvanceAdvance.
	AdvanceMonthsAhead = "months_in_advance"
)

type (
	CaseType string

	AdjustmentType string

	TransactionType string

	Area struct {
		ID       string
		Name     string
		IsActive bool
	}

	Operator struct {
		ID   string
		Name string
		Role string
	}

	Sponsor struct {
		ID                    string
		LegacyID              int
		Name                  string
		Phone                 string
		PaymentFrequency      string
		IsActive              bool
		Notes                 string
		ResponsibleOperatorID string
		PaidThroughSponsorID  string
		CreatedAt             time.Time
	}

	Case struct {
		ID           string
		ChildName    string
		GuardianName string
		AreaID       string
		AreaName     string
		Type         CaseType
		NeedsLevel   string
		IsMedical    bool
		HasStudents  bool
		SchoolYear   string
		Status       string
		Notes        string
		CreatedAt    time.Time
	}

	// Sponsorship links a sponsor to a case with a fixed monthly pledge.
	// Names are denormalized from the joined rows when loaded for display.
	Sponsorship struct {
		ID           string
		SponsorID    string
		CaseID       string
		FixedAmount  Money
		Status       string
		SponsorName  string
		ChildName    string
		GuardianName string
		AreaID       string
	}

	Collection struct {
		ID            string
		SponsorID     string
		Month         Month
		Amount        Money
		Fixed         Money
		Extra         Money
		Sadaqat       Money
		ReceivedBy    string
		Method        string
		OCRRaw        string
		Status        string
		Notes         string
		AdvanceType   string
		AdvanceMonths int
		CreatedAt     time.Time
	}

	Adjustment struct {
		ID            string
		SponsorshipID string
		CaseID        string
		SponsorID     string
		Month         Month
		Type          AdjustmentType
		Amount        Money
		OldFixed      Money
		Applied       bool
	}

	SadaqatEntry struct {
		ID                     string
		Type                   TransactionType
		Amount                 Money
		SourceType             string
		SourceCollectionID     string
		DonorName              string
		Cause                  string // stored as destination_type
		DestinationCaseID      string
		DestinationDescription string
		Reason                 string
		ApprovedBy             string
		Month                  Month
		CreatedAt              time.Time
	}

	AdvancePayment struct {
		ID            string
		SponsorID     string
		CaseID        string
		CollectionID  string
		PaymentType   string
		Amount        Money
		MonthsCovered int
		StartMonth    Month
		PaidUntil     time.Time
		Status        string
		SponsorName   string
		ChildName     string
	}

	// Disbursement is the settled total for one area in one month.
	Disbursement struct {
		AreaID      string
		Month       Month
		FixedTotal  Money
		ExtrasTotal Money
	}
)

const (
	CaseOrphan     CaseType = "orphan"
	CaseVulnerable CaseType = "vulnerable"
	CaseStudent    CaseType = "student"
	CaseMedical    CaseType = "medical"
	CaseSpecial    CaseType = "special"
)

const (
	PermanentIncrease AdjustmentType = "permanent_increase"
	OneTimeExtra      AdjustmentType = "one_time_extra"
)

const (
	Inflow  TransactionType = "inflow"
	Outflow TransactionType = "outflow"
)

const (
	SourceCollectionExtra = "collection_extra"
	DestinationKafalaCase = "kafala_case"
	DestinationOneTime    = "one_time_case"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptySponsor    = errors.New("empty sponsor")
	ErrEmptyArea       = errors.New("empty area")
	ErrEmptyCause      = errors.New("empty cause")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidCaseType = errors.New("invalid case type")
	ErrNotFound        = errors.New("not found")

	ErrPortionsExceedAmount = errors.New("portions exceed amount")
)

var caseLabels = map[CaseType]string{
	CaseOrphan:     "كفالة يتيم",
	CaseVulnerable: "كفالة يتيم",
	CaseStudent:    "طالب علم",
	CaseMedical:    "حالات مرضية",
	CaseSpecial:    "حالات خاصة",
}

// Label returns the Arabic category printed on reports.
func (t CaseType) Label() string {
	if l, ok := caseLabels[t]; ok {
		return l
	}
	return caseLabels[CaseOrphan]
}

func (t CaseType) Valid() bool {
	_, ok := caseLabels[t]
	return ok
}

// CaseTypes lists the selectable case types in form order.
func CaseTypes() []CaseType {
	return []CaseType{CaseOrphan, CaseVulnerable, CaseStudent, CaseMedical, CaseSpecial}
}

// DisplayName is the name printed for a case: guardian first, then child.
func (c Case) DisplayName() string {
	if n := strings.TrimSpace(c.GuardianName); n != "" {
		return n
	}
	if n := strings.TrimSpace(c.ChildName); n != "" {
		return n
	}
	return "—"
}

func (s Sponsor) IsVirtual() bool {
	return s.LegacyID == VirtualSadaqatLegacyID
}

func (s Sponsor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if len(s.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (c Case) Validate() error {
	if strings.TrimSpace(c.ChildName) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.AreaID) == "" {
		return ErrEmptyArea
	}
	if c.Type != "" && !c.Type.Valid() {
		return ErrInvalidCaseType
	}
	return nil
}

func (c Collection) Validate() error {
	if strings.TrimSpace(c.SponsorID) == "" {
		return ErrEmptySponsor
	}
	if err := c.Month.Validate(); err != nil {
		return err
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	if c.Fixed.Cents+c.Extra.Cents+c.Sadaqat.Cents > c.Amount.Cents {
		return ErrPortionsExceedAmount
	}
	return nil
}

func (e SadaqatEntry) Validate() error {
	if e.Type != Inflow && e.Type != Outflow {
		return ErrInvalidType
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Month.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Cause) == "" {
		return ErrEmptyCause
	}
	return nil
}

// OperatorAllowed reports whether the operator is shown in lookups.
func OperatorAllowed(o Operator) bool {
	return o.Name != ExcludedOperatorName
}
