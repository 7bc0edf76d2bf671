package core

import "time"

// AdvancePlan describes the rows written when a sponsor pays several
// months at once.
type AdvancePlan struct {
	PaymentType   string
	MonthsCovered int
	StartMonth    Month
	PaidUntil     time.Time
	Placeholders  []Collection
}

// PaymentTypeFor maps the advance type chosen on the form to the
// advance_payments.payment_type value.
func PaymentTypeFor(advanceType string) string {
	switch advanceType {
	case AdvanceAnnual:
		return AdvanceAnnual
	case AdvanceSemiAnnual:
		return AdvanceSemiAnnual
	default:
		return AdvanceAdvance
	}
}

// DefaultAdvanceMonths is the month count pre-selected for an advance type.
func DefaultAdvanceMonths(advanceType string) int {
	switch advanceType {
	case AdvanceAnnual:
		return 12
	case AdvanceSemiAnnual:
		return 6
	default:
		return 1
	}
}

// AdvanceRequest is a collection paying one or more months ahead.
type AdvanceRequest struct {
	SponsorID   string
	Start       Month
	Months      int
	AdvanceType string
	Fixed       Money
	ReceivedBy  string
	Method      string
}

// ProjectAdvance rolls forward from the start month over the covered
// months. The first month is the collection itself; every later month gets
// a placeholder row carrying an even share of the fixed portion. It returns
// false when the payment covers a single month.
func ProjectAdvance(req AdvanceRequest) (AdvancePlan, bool) {
	if req.Months <= 1 {
		return AdvancePlan{}, false
	}
	advType := req.AdvanceType
	if advType == "" {
		advType = AdvanceMonthly
	}
	share := req.Fixed.DivMonths(req.Months)
	plan := AdvancePlan{
		PaymentType:   PaymentTypeFor(advType),
		MonthsCovered: req.Months,
		StartMonth:    req.Start,
		PaidUntil:     req.Start.Add(req.Months - 1).LastDay(),
	}
	note := "دفعة مقدمة من شهر " + req.Start.String()
	m := req.Start
	for i := 1; i < req.Months; i++ {
		m = m.Next()
		plan.Placeholders = append(plan.Placeholders, Collection{
			SponsorID:     req.SponsorID,
			Month:         m,
			Amount:        share,
			Fixed:         share,
			ReceivedBy:    req.ReceivedBy,
			Method:        req.Method,
			Status:        StatusConfirmed,
			Notes:         note,
			AdvanceType:   advType,
			AdvanceMonths: 0,
		})
	}
	return plan, true
}
