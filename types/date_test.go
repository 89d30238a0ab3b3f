package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-07-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year != 2024 || d.Month != time.July || d.Day != 1 {
		t.Errorf("got %+v", d)
	}
	if d.String() != "2024-07-01" {
		t.Errorf("String: got %q", d.String())
	}

	for _, bad := range []string{"", "2024-13-01", "01.07.2024", "2024-07-01T10:00"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestDateOfDropsTime(t *testing.T) {
	morning := time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 7, 1, 23, 59, 0, 0, time.UTC)
	if DateOf(morning) != DateOf(evening) {
		t.Error("instants on the same day must map to the same Date")
	}
}

func TestDateOrdering(t *testing.T) {
	a := NewDate(2024, time.June, 30)
	b := a.AddDays(1)

	if b != NewDate(2024, time.July, 1) {
		t.Errorf("AddDays across month: got %v", b)
	}
	if !a.Before(b) || b.Before(a) {
		t.Error("Before is wrong")
	}
	if !b.After(a) || a.After(a) {
		t.Error("After is wrong")
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}

	data, err := json.Marshal(wrapper{D: NewDate(2024, time.July, 1)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"d":"2024-07-01"}` {
		t.Errorf("got %s", data)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"d":"2024-07-01T15:04:05Z"}`), &w); err != nil {
		t.Fatalf("unmarshal timestamp: %v", err)
	}
	if w.D != NewDate(2024, time.July, 1) {
		t.Errorf("timestamp truncation: got %v", w.D)
	}

	// Dates are usable as JSON object keys.
	m := map[Date]int{NewDate(2024, time.July, 1): 3}
	data, err = json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal map: %v", err)
	}
	if string(data) != `{"2024-07-01":3}` {
		t.Errorf("map encoding: got %s", data)
	}
}

func TestDateScanValue(t *testing.T) {
	d := NewDate(2024, time.July, 1)
	v, err := d.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var back Date
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if back != d {
		t.Errorf("round trip: got %v", back)
	}

	if err := back.Scan("2024-08-02"); err != nil || back != NewDate(2024, time.August, 2) {
		t.Errorf("scan string: %v %v", back, err)
	}
	if err := back.Scan(nil); err != nil || !back.IsZero() {
		t.Errorf("scan nil: %v %v", back, err)
	}
	if err := back.Scan(12); err == nil {
		t.Error("expected error scanning int")
	}

	var zero Date
	if v, _ := zero.Value(); v != nil {
		t.Errorf("zero date should be NULL, got %v", v)
	}
}
