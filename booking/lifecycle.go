package booking

import "fmt"

// Action is a guide-initiated lifecycle command.
type Action int

const (
	ActionConfirm Action = iota + 1
	ActionCancel
)

// ParseAction maps the wire form ("confirm", "cancel") to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "confirm":
		return ActionConfirm, nil
	case "cancel":
		return ActionCancel, nil
	default:
		return 0, fmt.Errorf("booking: unknown action %q", s)
	}
}

func (a Action) String() string {
	switch a {
	case ActionConfirm:
		return "confirm"
	case ActionCancel:
		return "cancel"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// InitialStatus is the status a new booking starts in.
func InitialStatus(instantBooking bool) Status {
	if instantBooking {
		return StatusConfirmed
	}
	return StatusPending
}

// Next returns the status reached by applying a to from, and false when the
// transition is not allowed:
//
//	pending   --confirm--> confirmed
//	pending   --cancel-->  cancelled
//	confirmed --cancel-->  cancelled
func Next(from Status, a Action) (Status, bool) {
	switch from {
	case StatusPending:
		switch a {
		case ActionConfirm:
			return StatusConfirmed, true
		case ActionCancel:
			return StatusCancelled, true
		}
	case StatusConfirmed:
		switch a {
		case ActionConfirm:
			return from, false
		case ActionCancel:
			return StatusCancelled, true
		}
	case StatusCancelled:
		return from, false
	}
	return from, false
}
