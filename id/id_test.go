package id_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/tourdesk/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"TourID", id.NewTourID, "tour_"},
		{"BookingID", id.NewBookingID, "bkg_"},
		{"NotificationID", id.NewNotificationID, "ntf_"},
		{"MessageID", id.NewMessageID, "msg_"},
		{"UserID", id.NewUserID, "user_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"TourID", id.NewTourID, id.ParseTourID},
		{"BookingID", id.NewBookingID, id.ParseBookingID},
		{"NotificationID", id.NewNotificationID, id.ParseNotificationID},
		{"MessageID", id.NewMessageID, id.ParseMessageID},
		{"UserID", id.NewUserID, id.ParseUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseTourID rejects bkg_", id.NewBookingID().String(), id.ParseTourID},
		{"ParseBookingID rejects tour_", id.NewTourID().String(), id.ParseBookingID},
		{"ParseNotificationID rejects msg_", id.NewMessageID().String(), id.ParseNotificationID},
		{"ParseMessageID rejects user_", id.NewUserID().String(), id.ParseMessageID},
		{"ParseUserID rejects ntf_", id.NewNotificationID().String(), id.ParseUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "tour", "tour_", "not an id", "TOUR_01h2xcejqtf2nbrexx3vqjhp41"} {
		t.Run(in, func(t *testing.T) {
			if _, err := id.Parse(in); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}
}

func TestParseRejectsForeignPrefix(t *testing.T) {
	_, err := id.Parse("plan_01h2xcejqtf2nbrexx3vqjhp41")
	if !errors.Is(err, id.ErrPrefix) {
		t.Errorf("got %v, want ErrPrefix", err)
	}
	if _, err := id.ParseTourID(id.NewUserID().String()); !errors.Is(err, id.ErrPrefix) {
		t.Errorf("cross-type: got %v, want ErrPrefix", err)
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestJSON(t *testing.T) {
	type payload struct {
		Booking id.BookingID `json:"booking_id"`
		Tour    id.TourID    `json:"tour_id"`
	}

	in := payload{Booking: id.NewBookingID()}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"tour_id":""`) {
		t.Errorf("nil id should encode as empty string, got %s", data)
	}

	var out payload
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Booking != in.Booking {
		t.Errorf("booking id mismatch: %q != %q", out.Booking, in.Booking)
	}
	if !out.Tour.IsNil() {
		t.Error("expected nil tour id")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewBookingID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned != original {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}
	if fromBytes != original {
		t.Errorf("mismatch: %q != %q", fromBytes.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}

	if err := scanned2.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewBookingID()
	b := id.NewBookingID()
	if a == b {
		t.Errorf("two consecutive NewBookingID() calls returned the same ID: %q", a.String())
	}
}
