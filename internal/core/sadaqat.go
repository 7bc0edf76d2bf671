package core

import "sort"

// Causes are the fixed sadaqat causes offered on the entry form.
var Causes = []string{
	"حالات كفالة",
	"حالات طبية",
	"مساعدة زواج",
	"سداد ديون",
	"إفطار رمضان",
	"كسوة عيد",
	"بطاطين شتاء",
	"طلاب الأزهر",
	"كراتين رمضان",
	"توصيل مياه",
	"بناء مسجد",
	"سداد ديون المنطقة",
	"توزيع وجبات",
}

const (
	causeKafala      = "حالات كفالة"
	causeUnspecified = "غير محدد"
)

// CauseLabel normalizes the stored destination type into a display cause.
// Settlement outflows are stored with technical destination types.
func CauseLabel(cause string) string {
	switch cause {
	case DestinationKafalaCase, DestinationOneTime:
		return causeKafala
	case "":
		return causeUnspecified
	}
	return cause
}

// SadaqatSummary holds the totals shown above the ledger.
type SadaqatSummary struct {
	In      Money
	Out     Money
	Balance Money // cumulative over every entry, whatever the filter
}

// SummarizeSadaqat totals inflows and outflows matching the filter. The
// balance always covers the whole ledger.
func SummarizeSadaqat(entries []SadaqatEntry, filter MonthFilter) SadaqatSummary {
	var s SadaqatSummary
	var allIn, allOut Money
	for _, e := range entries {
		switch e.Type {
		case Inflow:
			allIn = allIn.Add(e.Amount)
			if filter.Matches(e.Month) {
				s.In = s.In.Add(e.Amount)
			}
		case Outflow:
			allOut = allOut.Add(e.Amount)
			if filter.Matches(e.Month) {
				s.Out = s.Out.Add(e.Amount)
			}
		}
	}
	s.Balance = allIn.Sub(allOut)
	return s
}

// FilterSadaqat returns the entries in the filter, keeping their order.
func FilterSadaqat(entries []SadaqatEntry, filter MonthFilter) []SadaqatEntry {
	out := make([]SadaqatEntry, 0, len(entries))
	for _, e := range entries {
		if filter.Matches(e.Month) {
			out = append(out, e)
		}
	}
	return out
}

// CauseTotal is one line of the per-cause breakdown.
type CauseTotal struct {
	Cause string
	In    Money
	Out   Money
}

// CauseBreakdown groups entries by normalized cause, largest movement first.
func CauseBreakdown(entries []SadaqatEntry) []CauseTotal {
	idx := make(map[string]int)
	var out []CauseTotal
	for _, e := range entries {
		c := CauseLabel(e.Cause)
		i, ok := idx[c]
		if !ok {
			out = append(out, CauseTotal{Cause: c})
			i = len(out) - 1
			idx[c] = i
		}
		switch e.Type {
		case Inflow:
			out[i].In = out[i].In.Add(e.Amount)
		case Outflow:
			out[i].Out = out[i].Out.Add(e.Amount)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].In.Cents+out[a].Out.Cents > out[b].In.Cents+out[b].Out.Cents
	})
	return out
}

// MonthGroup is a set of entries sharing a month, for the ledger view.
type MonthGroup struct {
	Month   Month
	Entries []SadaqatEntry
	Total   Money
}

// GroupByMonth groups entries of one transaction type by month, newest first.
func GroupByMonth(entries []SadaqatEntry, typ TransactionType) []MonthGroup {
	idx := make(map[Month]int)
	var groups []MonthGroup
	for _, e := range entries {
		if e.Type != typ {
			continue
		}
		i, ok := idx[e.Month]
		if !ok {
			groups = append(groups, MonthGroup{Month: e.Month})
			i = len(groups) - 1
			idx[e.Month] = i
		}
		groups[i].Entries = append(groups[i].Entries, e)
		groups[i].Total = groups[i].Total.Add(e.Amount)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[b].Month.Before(groups[a].Month)
	})
	return groups
}

// Allocation is the state of a month's sadaqat distribution during
// settlement.
type Allocation struct {
	Inflow         Money
	Allocated      Money
	Remaining      Money
	FullyAllocated bool
	Outflows       []SadaqatEntry
}

// Allocate compares a month's inflow with the outflows recorded so far.
func Allocate(inflow Money, outflows []SadaqatEntry) Allocation {
	a := Allocation{Inflow: inflow, Outflows: outflows}
	for _, e := range outflows {
		a.Allocated = a.Allocated.Add(e.Amount)
	}
	a.Remaining = inflow.Sub(a.Allocated)
	a.FullyAllocated = inflow.Cents > 0 && a.Allocated.Cents >= inflow.Cents
	return a
}
