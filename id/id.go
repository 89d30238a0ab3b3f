// Package id defines the identifiers of tourdesk entities.
//
// An ID is a TypeID: a short entity prefix and a UUIDv7 suffix, written
// "bkg_01h2xcejqtf2nbrexx3vqjhp41". IDs sort by creation time and are safe
// in URLs, JSON and SQL text columns. The zero ID is Nil and encodes as an
// empty string or NULL.
package id

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the entity an ID belongs to.
type Prefix string

const (
	PrefixTour         Prefix = "tour"
	PrefixBooking      Prefix = "bkg"
	PrefixNotification Prefix = "ntf"
	PrefixMessage      Prefix = "msg"
	PrefixUser         Prefix = "user"
)

var known = map[Prefix]bool{
	PrefixTour:         true,
	PrefixBooking:      true,
	PrefixNotification: true,
	PrefixMessage:      true,
	PrefixUser:         true,
}

// ErrPrefix is returned when an ID carries a prefix other than the one
// expected, or one tourdesk does not issue.
var ErrPrefix = errors.New("id: wrong prefix")

// ID identifies any tourdesk entity. Compare IDs with ==.
//
//nolint:recvcheck // pointer receivers only where decoding mutates the ID
type ID struct {
	tid typeid.TypeID
	set bool
}

// Nil is the zero ID.
var Nil ID

// Entity aliases. They document intent at call sites; the compiler treats
// them all as ID, so Parse<Entity>ID is what enforces the prefix.
type (
	TourID         = ID
	BookingID      = ID
	NotificationID = ID
	MessageID      = ID
	UserID         = ID
)

// New issues a fresh ID. It panics on a prefix TypeID rejects.
func New(p Prefix) ID {
	tid, err := typeid.Generate(string(p))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", p, err))
	}
	return ID{tid: tid, set: true}
}

func NewTourID() ID         { return New(PrefixTour) }
func NewBookingID() ID      { return New(PrefixBooking) }
func NewNotificationID() ID { return New(PrefixNotification) }
func NewMessageID() ID      { return New(PrefixMessage) }
func NewUserID() ID         { return New(PrefixUser) }

// Parse decodes an ID of any prefix tourdesk issues.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, errors.New("id: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	if !known[Prefix(tid.Prefix())] {
		return Nil, fmt.Errorf("%w: %q is not a tourdesk entity", ErrPrefix, tid.Prefix())
	}
	return ID{tid: tid, set: true}, nil
}

// MustParse is Parse for literals; it panics on error.
func MustParse(s string) ID {
	i, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return i
}

func parseAs(p Prefix) func(string) (ID, error) {
	return func(s string) (ID, error) {
		i, err := Parse(s)
		if err != nil {
			return Nil, err
		}
		if i.Prefix() != p {
			return Nil, fmt.Errorf("%w: want %q, got %q", ErrPrefix, p, i.Prefix())
		}
		return i, nil
	}
}

var (
	ParseTourID         = parseAs(PrefixTour)
	ParseBookingID      = parseAs(PrefixBooking)
	ParseNotificationID = parseAs(PrefixNotification)
	ParseMessageID      = parseAs(PrefixMessage)
	ParseUserID         = parseAs(PrefixUser)
)

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

func (i ID) Prefix() Prefix {
	if !i.set {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

func (i ID) IsNil() bool { return !i.set }

func (i ID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// UnmarshalText accepts "" as Nil.
func (i *ID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*i = Nil
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Value stores Nil as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.set {
		return nil, nil //nolint:nilnil // NULL column
	}
	return i.tid.String(), nil
}

// Scan reads text columns; NULL and "" become Nil.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T", src)
	}
}
