package tour

import (
	"context"

	"github.com/xraph/tourdesk/id"
)

// Store persists tours outside of booking transactions. Changes to an
// existing tour go through store.Tx so they serialize with bookings.
type Store interface {
	CreateTour(ctx context.Context, t *Tour) error
	GetTour(ctx context.Context, tourID id.TourID) (*Tour, error)
	ListTours(ctx context.Context, opts ListOpts) ([]*Tour, error)
}

type ListOpts struct {
	GuideID id.UserID
	Status  Status
	Limit   int
	Offset  int
}
