package tourdesk

import "github.com/xraph/tourdesk/id"

// ID is the primary identifier type for all tourdesk entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
