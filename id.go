package deflow

import "github.com/Legatia/DeFlow-sub000/id"

// ID is the primary identifier type for all DeFlow entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
