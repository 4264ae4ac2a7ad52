package stockledger

import "github.com/xraph/stockledger/id"

// ID is the identifier type for engine-generated records.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
