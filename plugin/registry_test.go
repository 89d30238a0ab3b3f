package plugin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tourdesk/booking"
	"github.com/xraph/tourdesk/notification"
)

type recorder struct {
	name string

	mu          sync.Mutex
	created     []*booking.Booking
	transitions []booking.Action
	dispatched  int
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnBookingCreated(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, b)
	return nil
}

func (r *recorder) OnBookingTransitioned(_ context.Context, _ *booking.Booking, _ booking.Status, a booking.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, a)
	return nil
}

type failing struct{}

func (failing) Name() string { return "failing" }

func (failing) OnNotificationDispatched(context.Context, *notification.Notification) error {
	return errors.New("boom")
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) OnBookingCreated(ctx context.Context, _ *booking.Booking) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }

func (panicky) OnShutdown(context.Context) error { panic("shutdown") }

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("count: got %d, want 1", r.Count())
	}
	if r.Get("a") == nil || r.Get("missing") != nil {
		t.Error("Get returned the wrong plugin")
	}
}

func TestDispatchOnlyToImplementers(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{name: "rec"}
	_ = r.Register(rec)
	_ = r.Register(failing{})

	ctx := context.Background()
	b := &booking.Booking{GuestsCount: 2}
	r.EmitBookingCreated(ctx, b)
	r.EmitBookingTransitioned(ctx, b, booking.StatusPending, booking.ActionConfirm)

	// A failing hook is logged, not propagated.
	r.EmitNotificationDispatched(ctx, &notification.Notification{})

	if len(rec.created) != 1 || rec.created[0] != b {
		t.Errorf("created: got %v", rec.created)
	}
	if len(rec.transitions) != 1 || rec.transitions[0] != booking.ActionConfirm {
		t.Errorf("transitions: got %v", rec.transitions)
	}
}

func TestHookTimeout(t *testing.T) {
	r := NewRegistry().WithTimeout(20 * time.Millisecond)
	_ = r.Register(slow{})

	start := time.Now()
	r.EmitBookingCreated(context.Background(), &booking.Booking{})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("slow plugin blocked emission for %v", elapsed)
	}
}

func TestHookPanicIsContained(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(panicky{})
	r.EmitShutdown(context.Background())
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&recorder{name: "x"})
	want := map[string]bool{"OnBookingCreated": true, "OnBookingTransitioned": true}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for _, n := range got {
		if !want[n] {
			t.Errorf("unexpected interface %s", n)
		}
	}
}
