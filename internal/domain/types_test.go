package domain

import (
	"errors"
	"testing"
)

func TestPeriodParseAndString(t *testing.T) {
	p, err := ParsePeriod("2024-03")
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if p.Year != 2024 || p.Month != 3 {
		t.Errorf("ParsePeriod = %+v, want {2024 3}", p)
	}
	if p.String() != "2024-03" {
		t.Errorf("String() = %q, want %q", p.String(), "2024-03")
	}

	for _, bad := range []string{"2024", "2024-13", "2024-00", "abcd-01", "2024-xy"} {
		if _, err := ParsePeriod(bad); err == nil {
			t.Errorf("ParsePeriod(%q) should fail", bad)
		}
	}
}

func TestPeriodNextWrapsYear(t *testing.T) {
	p := Period{Year: 2023, Month: 12}
	next := p.Next()
	if next.Year != 2024 || next.Month != 1 {
		t.Errorf("Next() = %+v, want {2024 1}", next)
	}

	p = Period{Year: 2024, Month: 6}
	next = p.Next()
	if next.Year != 2024 || next.Month != 7 {
		t.Errorf("Next() = %+v, want {2024 7}", next)
	}
}

func TestPeriodBefore(t *testing.T) {
	a := Period{Year: 2023, Month: 12}
	b := Period{Year: 2024, Month: 1}
	if !a.Before(b) {
		t.Error("2023-12 should be before 2024-01")
	}
	if b.Before(a) {
		t.Error("2024-01 should not be before 2023-12")
	}
	if a.Before(a) {
		t.Error("a period should not be before itself")
	}
}

func TestDirectionLabels(t *testing.T) {
	if DirectionDown.Label() != "down" {
		t.Errorf("DirectionDown.Label() = %q, want %q", DirectionDown.Label(), "down")
	}
	if DirectionFlat.Label() != "flat" {
		t.Errorf("DirectionFlat.Label() = %q, want %q", DirectionFlat.Label(), "flat")
	}
	if DirectionUp.Label() != "up" {
		t.Errorf("DirectionUp.Label() = %q, want %q", DirectionUp.Label(), "up")
	}
}

func TestActionDirectionMapping(t *testing.T) {
	if ActionDown.Direction() != DirectionDown {
		t.Error("ActionDown should predict DirectionDown")
	}
	if ActionFlat.Direction() != DirectionFlat {
		t.Error("ActionFlat should predict DirectionFlat")
	}
	if ActionUp.Direction() != DirectionUp {
		t.Error("ActionUp should predict DirectionUp")
	}
	// Out-of-range actions fall back to flat.
	if Action(9).Direction() != DirectionFlat {
		t.Error("out-of-range action should predict DirectionFlat")
	}
}

func TestNewFeatureTableRejectsShortTables(t *testing.T) {
	_, err := NewFeatureTable(nil)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("NewFeatureTable(nil) error = %v, want ErrInsufficientData", err)
	}

	_, err = NewFeatureTable([]MonthlyRow{{Period: Period{Year: 2024, Month: 1}}})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("NewFeatureTable(1 row) error = %v, want ErrInsufficientData", err)
	}
}

func TestNewFeatureTableRejectsUnorderedPeriods(t *testing.T) {
	rows := []MonthlyRow{
		{Period: Period{Year: 2024, Month: 2}},
		{Period: Period{Year: 2024, Month: 1}},
	}
	if _, err := NewFeatureTable(rows); err == nil {
		t.Error("NewFeatureTable should reject out-of-order periods")
	}

	// Duplicate periods are also out of order.
	rows = []MonthlyRow{
		{Period: Period{Year: 2024, Month: 1}},
		{Period: Period{Year: 2024, Month: 1}},
	}
	if _, err := NewFeatureTable(rows); err == nil {
		t.Error("NewFeatureTable should reject duplicate periods")
	}
}

func TestFeatureTableCopiesInput(t *testing.T) {
	rows := []MonthlyRow{
		{Period: Period{Year: 2024, Month: 1}, MeanPrice: 100},
		{Period: Period{Year: 2024, Month: 2}, MeanPrice: 110},
	}
	ft, err := NewFeatureTable(rows)
	if err != nil {
		t.Fatalf("NewFeatureTable: %v", err)
	}

	// Mutating the caller's slice must not affect the table.
	rows[0].MeanPrice = 999
	if ft.Row(0).MeanPrice != 100 {
		t.Errorf("table row changed after caller mutation: MeanPrice = %v", ft.Row(0).MeanPrice)
	}

	if ft.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ft.Len())
	}
	if ft.Last().MeanPrice != 110 {
		t.Errorf("Last().MeanPrice = %v, want 110", ft.Last().MeanPrice)
	}
}

func TestFeatureTableRowsCopies(t *testing.T) {
	ft, err := NewFeatureTable([]MonthlyRow{
		{Period: Period{Year: 2024, Month: 1}, MeanPrice: 100},
		{Period: Period{Year: 2024, Month: 2}, MeanPrice: 110},
	})
	if err != nil {
		t.Fatalf("NewFeatureTable: %v", err)
	}

	got := ft.Rows()
	if len(got) != 2 {
		t.Fatalf("Rows() length = %d, want 2", len(got))
	}

	// Mutating the returned slice must not affect the table.
	got[1].MeanPrice = 999
	if ft.Row(1).MeanPrice != 110 {
		t.Errorf("table row changed after caller mutation: MeanPrice = %v", ft.Row(1).MeanPrice)
	}
}

func TestTransactionPeriod(t *testing.T) {
	tx := Transaction{Region: "jongno", Complex: "hanul", Area: 84.9, Year: 2024, Month: 5, Day: 12, Price: 98000}
	if got := tx.Period(); got != (Period{Year: 2024, Month: 5}) {
		t.Errorf("Period() = %v, want 2024-05", got)
	}
}
