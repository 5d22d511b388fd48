package normalize

import (
	"testing"
	"time"
)

func TestNormalizeDate(t *testing.T) {
	t.Run("EquivalentRepresentations", func(t *testing.T) {
		// Every supported representation of the same calendar date must
		// round-trip to the same (year, month, day).
		inputs := []string{
			"2023-01-15",
			"2023.01.15",
			"01/15/2023",
			"1/15/2023",
			"01/15/23",
			"15-Jan-23",
			"Jan 15th, 2023",
			"January 15, 2023",
			"15 January 2023",
		}

		for _, in := range inputs {
			ts, err := NormalizeDate(in)
			if err != nil {
				t.Errorf("NormalizeDate(%q) failed: %v", in, err)
				continue
			}
			if ts.Year() != 2023 || ts.Month() != time.January || ts.Day() != 15 {
				t.Errorf("NormalizeDate(%q) = %v, want 2023-01-15", in, ts)
			}
		}
	})

	t.Run("MonthFirstWinsWhenAmbiguous", func(t *testing.T) {
		// 03/04 could be March 4 or April 3; US convention wins.
		ts, err := NormalizeDate("03/04/2023")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ts.Month() != time.March || ts.Day() != 4 {
			t.Errorf("got %v, want month=3 day=4", ts)
		}
	})

	t.Run("DayFirstWhenMonthImplausible", func(t *testing.T) {
		// 25 cannot be a month, so it must be the day.
		ts, err := NormalizeDate("25/12/2023")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ts.Month() != time.December || ts.Day() != 25 {
			t.Errorf("got %v, want month=12 day=25", ts)
		}
	})

	t.Run("TextualMonthFirst", func(t *testing.T) {
		ts, err := NormalizeDate("February 9, 2023")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ts.Year() != 2023 || ts.Month() != time.February || ts.Day() != 9 {
			t.Errorf("got %v, want 2023-02-09", ts)
		}
	})

	t.Run("MonthBoundaries", func(t *testing.T) {
		ts, err := NormalizeDate("2023-01-31")
		if err != nil || ts.Day() != 31 {
			t.Errorf("got %v (err %v), want day=31", ts, err)
		}
		ts, err = NormalizeDate("2023-02-01")
		if err != nil || ts.Month() != time.February || ts.Day() != 1 {
			t.Errorf("got %v (err %v), want 2023-02-01", ts, err)
		}
	})

	t.Run("Unparseable", func(t *testing.T) {
		for _, in := range []string{"", "   ", "not a date", "2023-13-45", "//"} {
			if _, err := NormalizeDate(in); err == nil {
				t.Errorf("NormalizeDate(%q) should fail", in)
			}
		}
	})
}
