// Package ids generates the 128-bit identifiers §3 requires for markets
// and chains, backed by google/uuid so ids are globally unique without a
// central counter.
package ids

import "github.com/google/uuid"

// NewMarketID mints a fresh 128-bit market identifier.
func NewMarketID() [16]byte {
	return [16]byte(uuid.New())
}

// NewChainID mints a fresh 128-bit chain identifier.
func NewChainID() [16]byte {
	return [16]byte(uuid.New())
}
