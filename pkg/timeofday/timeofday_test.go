package timeofday

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9:30", 0, true},
		{"09:60", 0, true},
		{"garbage", 0, true},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) = %d, want error", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestAdd(t *testing.T) {
	got, err := Add("10:00", 135)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got != "12:15" {
		t.Errorf("Add(10:00, 135) = %s, want 12:15", got)
	}
}

func TestAdd_RejectsMidnightCross(t *testing.T) {
	if _, err := Add("23:30", 45); err == nil {
		t.Error("Add(23:30, 45) should reject crossing midnight")
	}
	if _, err := Add("00:10", -20); err == nil {
		t.Error("Add(00:10, -20) should reject crossing midnight")
	}
}

func TestDiff(t *testing.T) {
	got, err := Diff("09:00", "10:30")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if got != 90 {
		t.Errorf("Diff(09:00, 10:30) = %d, want 90", got)
	}
	// Negative diffs are the caller's problem, not an error.
	got, _ = Diff("10:30", "09:00")
	if got != -90 {
		t.Errorf("Diff(10:30, 09:00) = %d, want -90", got)
	}
}

func TestBeforeAndMax(t *testing.T) {
	if !Before("09:00", "10:00") {
		t.Error("Before(09:00, 10:00) = false, want true")
	}
	if Before("10:00", "10:00") {
		t.Error("Before(10:00, 10:00) = true, want false")
	}
	if Max("09:00", "17:30") != "17:30" {
		t.Error("Max(09:00, 17:30) != 17:30")
	}
}

func TestWeekday(t *testing.T) {
	got, err := Weekday("2025-03-01")
	if err != nil {
		t.Fatalf("Weekday: %v", err)
	}
	if got != "saturday" {
		t.Errorf("Weekday(2025-03-01) = %s, want saturday", got)
	}
}

func TestDaysBetween_Inclusive(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"2025-03-01", "2025-03-01", 1},
		{"2025-03-01", "2025-03-02", 2},
		{"2025-03-01", "2025-03-07", 7},
	}
	for _, c := range cases {
		got, err := DaysBetween(c.start, c.end)
		if err != nil {
			t.Errorf("DaysBetween(%s, %s): %v", c.start, c.end, err)
			continue
		}
		if got != c.want {
			t.Errorf("DaysBetween(%s, %s) = %d, want %d", c.start, c.end, got, c.want)
		}
	}
}

func TestDaysBetween_EmptyRange(t *testing.T) {
	if _, err := DaysBetween("2025-03-02", "2025-03-01"); err == nil {
		t.Error("DaysBetween(reversed range) should error")
	}
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2025-02-27", 3)
	if err != nil {
		t.Fatalf("AddDays: %v", err)
	}
	if got != "2025-03-02" {
		t.Errorf("AddDays(2025-02-27, 3) = %s, want 2025-03-02", got)
	}
}
