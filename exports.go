package tourdesk

import "github.com/xraph/tourdesk/types"

// Re-export common types so callers don't have to import the types package.

// Money is re-exported from types package.
type Money = types.Money

// Date is re-exported from types package.
type Date = types.Date

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export constructors
var (
	RUB       = types.RUB
	USD       = types.USD
	EUR       = types.EUR
	Zero      = types.Zero
	ParseDate = types.ParseDate
	NewDate   = types.NewDate
)
