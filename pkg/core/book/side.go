package book

import (
	"math/big"
	"sort"

	"github.com/odexlabs/odex/pkg/core"
)

// Level aggregates resting amount at one price, best price first.
type Level struct {
	Price  *big.Int
	Amount *big.Int
}

// OrderBookSide holds the resting orders for one side of one market, sorted
// by (price, sequence) with the matchable end at index 0: bids descend by
// price, asks ascend, ties go to the lower sequence. Depth is bounded by the
// economic cost of resting capital, so O(n) insertion is acceptable.
//
// The side does no locking of its own; the owning market serializes access.
type OrderBookSide struct {
	side   core.Side
	orders []*Order
}

// NewSide creates an empty side of the book.
func NewSide(side core.Side) *OrderBookSide {
	return &OrderBookSide{side: side}
}

func (s *OrderBookSide) Len() int { return len(s.orders) }

// sortsAfter reports whether a sorts strictly behind b on this side.
func (s *OrderBookSide) sortsAfter(a, b *Order) bool {
	c := a.Price.Cmp(b.Price)
	if c == 0 {
		return a.Sequence > b.Sequence
	}
	if s.side == core.Bid {
		return c < 0 // lower bid price matches later
	}
	return c > 0 // higher ask price matches later
}

// Insert places o at its (price, sequence) position. An order that beats the
// current best becomes the new front.
func (s *OrderBookSide) Insert(o *Order) {
	i := sort.Search(len(s.orders), func(i int) bool {
		return s.sortsAfter(s.orders[i], o)
	})
	s.orders = append(s.orders, nil)
	copy(s.orders[i+1:], s.orders[i:])
	s.orders[i] = o
}

// PeekBest returns the order at the matching end, nil if the side is empty.
func (s *OrderBookSide) PeekBest() *Order {
	if len(s.orders) == 0 {
		return nil
	}
	return s.orders[0]
}

// PeekWorst returns the order at the far end, nil if the side is empty.
func (s *OrderBookSide) PeekWorst() *Order {
	if len(s.orders) == 0 {
		return nil
	}
	return s.orders[len(s.orders)-1]
}

// ReduceFront decrements the best order's remaining amount in place,
// removing the order once it reaches zero. The order's sequence, and with it
// its queue priority, is untouched.
func (s *OrderBookSide) ReduceFront(amount *big.Int) {
	if len(s.orders) == 0 {
		return
	}
	front := s.orders[0]
	front.Remaining.Sub(front.Remaining, amount)
	if front.Remaining.Sign() <= 0 {
		s.RemoveFront()
	}
}

// RemoveFront removes and returns the best order, nil if the side is empty.
func (s *OrderBookSide) RemoveFront() *Order {
	if len(s.orders) == 0 {
		return nil
	}
	front := s.orders[0]
	copy(s.orders, s.orders[1:])
	s.orders[len(s.orders)-1] = nil
	s.orders = s.orders[:len(s.orders)-1]
	return front
}

// Find returns the order with the given sequence, nil if absent. Linear;
// cancellation is rare next to matching.
func (s *OrderBookSide) Find(sequence uint64) *Order {
	for _, o := range s.orders {
		if o.Sequence == sequence {
			return o
		}
	}
	return nil
}

// Remove deletes the order with the given sequence, returning it if present.
// Used for cancellation; relative order of the remaining entries is kept.
func (s *OrderBookSide) Remove(sequence uint64) *Order {
	for i, o := range s.orders {
		if o.Sequence == sequence {
			copy(s.orders[i:], s.orders[i+1:])
			s.orders[len(s.orders)-1] = nil
			s.orders = s.orders[:len(s.orders)-1]
			return o
		}
	}
	return nil
}

// Levels aggregates remaining amount per price, best price first.
func (s *OrderBookSide) Levels() []Level {
	var levels []Level
	for _, o := range s.orders {
		if n := len(levels); n > 0 && levels[n-1].Price.Cmp(o.Price) == 0 {
			levels[n-1].Amount.Add(levels[n-1].Amount, o.Remaining)
			continue
		}
		levels = append(levels, Level{
			Price:  new(big.Int).Set(o.Price),
			Amount: new(big.Int).Set(o.Remaining),
		})
	}
	return levels
}

// Snapshot deep-copies the side's orders so a failed submission can be
// rolled back with Restore.
func (s *OrderBookSide) Snapshot() []Order {
	snap := make([]Order, len(s.orders))
	for i, o := range s.orders {
		snap[i] = o.clone()
	}
	return snap
}

// Restore replaces the side's contents with a snapshot taken earlier.
func (s *OrderBookSide) Restore(snap []Order) {
	s.orders = make([]*Order, len(snap))
	for i := range snap {
		o := snap[i].clone()
		s.orders[i] = &o
	}
}
