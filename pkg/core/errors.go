package core

import "errors"

// Order submission failures. Every one of these aborts the submission as a
// unit: no fills are committed and the book is left untouched.
var (
	// ErrInvalidOrderSize is returned when an order amount is below the
	// market minimum or not a multiple of the market's round tick.
	ErrInvalidOrderSize = errors.New("invalid order size")

	// ErrInvalidPriceGranularity is returned when a price is non-positive
	// or not a multiple of the market's round tick.
	ErrInvalidPriceGranularity = errors.New("invalid price granularity")

	// ErrArithmeticOverflow is returned when conversion or fee math would
	// exceed 256 bits. Amounts mirror EVM token balances, so the engine
	// rejects rather than wraps.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrSettlementFailed is returned when an asset transfer implied by a
	// fill cannot complete, typically because a party lacks balance.
	ErrSettlementFailed = errors.New("settlement failed")
)
