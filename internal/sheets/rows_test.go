package sheets

import (
	"reflect"
	"testing"

	"khidma/internal/core"
	"khidma/internal/ports"
)

func TestValues(t *testing.T) {
	got := Values(ports.SheetRow{
		CollectionID: "c1",
		Month:        "2026-04",
		SponsorName:  "محمد علي",
		Amount:       core.Money{Cents: 60050},
		Fixed:        core.Pounds(500),
		Sadaqat:      core.Money{Cents: 10050},
		Method:       core.MethodInstapay,
		ReceivedBy:   "أحمد",
	})
	want := []string{"c1", "2026-04", "محمد علي", "600.50", "500.00", "0.00", "100.50", core.MethodInstapay, "أحمد", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
	if len(got) != len(Header) {
		t.Errorf("row has %d cells, header has %d", len(got), len(Header))
	}
}

func TestRecords(t *testing.T) {
	got := Records([][]any{
		{"name", "amount", "month"},
		{" أحمد ", 500},
		{"سارة", "250.5", "2026-04", "extra"},
	})
	want := [][]string{
		{"name", "amount", "month"},
		{"أحمد", "500", ""},
		{"سارة", "250.5", "2026-04", "extra"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Records() = %v, want %v", got, want)
	}
	if Records(nil) != nil {
		t.Error("Records(nil) should be nil")
	}
}
