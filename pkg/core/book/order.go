package book

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/odexlabs/odex/pkg/core"
)

// Order is a resting limit order. Bid amounts are denominated in base-asset
// units, ask amounts in traded-asset units. Price is always base-asset units
// per whole traded-asset unit, at the base asset's decimal scale.
//
// Sequence is assigned once at insertion and never changes; it is the
// tie-break for orders at the same price, so a partial fill keeps the order's
// place in the queue.
type Order struct {
	Trader    common.Address
	Side      core.Side
	Price     *big.Int
	Original  *big.Int
	Remaining *big.Int
	Sequence  uint64
}

// clone returns a deep copy, used for side snapshots.
func (o *Order) clone() Order {
	return Order{
		Trader:    o.Trader,
		Side:      o.Side,
		Price:     new(big.Int).Set(o.Price),
		Original:  new(big.Int).Set(o.Original),
		Remaining: new(big.Int).Set(o.Remaining),
		Sequence:  o.Sequence,
	}
}
