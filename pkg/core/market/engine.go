package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/odexlabs/odex/pkg/core"
	"github.com/odexlabs/odex/pkg/core/book"
	"github.com/odexlabs/odex/pkg/core/ledger"
)

// LimitOrderBuy submits a bid: spend up to baseAmount of the base asset at
// no more than price per whole traded-asset unit. Returns the base amount
// filled and, if a remainder rests, the new order's sequence.
func (m *Market) LimitOrderBuy(trader common.Address, baseAmount, price *big.Int) (*Result, error) {
	return m.submit(trader, core.Bid, baseAmount, price)
}

// LimitOrderSell submits an ask: sell up to tokenAmount of the traded asset
// at no less than price per whole unit. Returns the token amount filled and,
// if a remainder rests, the new order's sequence.
func (m *Market) LimitOrderSell(trader common.Address, tokenAmount, price *big.Int) (*Result, error) {
	return m.submit(trader, core.Ask, tokenAmount, price)
}

// validateOrder enforces size and granularity rules. Runs before any state
// mutation, so a rejected order leaves no trace.
func (m *Market) validateOrder(amount, price *big.Int) error {
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("%w: price must be positive", core.ErrInvalidPriceGranularity)
	}
	if new(big.Int).Rem(price, m.cfg.RoundTick).Sign() != 0 {
		return fmt.Errorf("%w: price %s is not a multiple of %s",
			core.ErrInvalidPriceGranularity, price, m.cfg.RoundTick)
	}
	if amount == nil || amount.Cmp(m.cfg.MinOrder) < 0 {
		return fmt.Errorf("%w: amount below minimum %s", core.ErrInvalidOrderSize, m.cfg.MinOrder)
	}
	if new(big.Int).Rem(amount, m.cfg.RoundTick).Sign() != 0 {
		return fmt.Errorf("%w: amount %s is not a multiple of %s",
			core.ErrInvalidOrderSize, amount, m.cfg.RoundTick)
	}
	return nil
}

// crosses reports whether a maker's resting price satisfies the taker's
// limit. Equality crosses.
func crosses(takerSide core.Side, makerPrice, limit *big.Int) bool {
	if takerSide == core.Bid {
		return makerPrice.Cmp(limit) <= 0
	}
	return makerPrice.Cmp(limit) >= 0
}

// submit runs one order through the engine: validate, escrow the taker's
// funds, match against the opposing side while prices cross, rest any
// remainder. The whole submission commits as one ledger batch or not at all.
func (m *Market) submit(trader common.Address, side core.Side, amount, price *big.Int) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateOrder(amount, price); err != nil {
		return nil, err
	}

	escrowAsset := m.cfg.BaseAsset
	opposing := m.asks
	if side == core.Ask {
		escrowAsset = m.cfg.Token
		opposing = m.bids
	}

	snap := m.snapshot()
	tx := m.ledger.Begin()

	// Pull the full order amount into the market account up front. Fills pay
	// out of escrow, and a resting remainder stays escrowed until matched or
	// cancelled.
	if err := tx.Transfer(escrowAsset, trader, m.cfg.Address, amount); err != nil {
		return nil, err
	}

	res := &Result{Filled: new(big.Int)}
	remaining := new(big.Int).Set(amount)
	resting := true

	for remaining.Sign() > 0 {
		maker := opposing.PeekBest()
		if maker == nil || !crosses(side, maker.Price, price) {
			break
		}

		fill, last, err := m.matchFront(side, trader, maker, remaining)
		if err != nil {
			m.restore(snap)
			return nil, err
		}
		if fill == nil {
			// Remainder too small to convert to a single maker unit at this
			// price. Refund it rather than resting a crossed dust order.
			resting = false
			break
		}

		// Book and fee totals are updated inside matchFront before the
		// ledger is touched, so reentrant settlement observers see a
		// consistent, already-reduced book.
		if side == core.Bid {
			remaining.Sub(remaining, fill.BaseAmount)
			res.Filled.Add(res.Filled, fill.BaseAmount)
		} else {
			remaining.Sub(remaining, fill.TokenAmount)
			res.Filled.Add(res.Filled, fill.TokenAmount)
		}

		if err := m.settleFill(tx, fill); err != nil {
			m.restore(snap)
			return nil, err
		}
		res.Fills = append(res.Fills, *fill)
		if last {
			break
		}
	}

	if remaining.Sign() > 0 {
		if resting {
			m.seq++
			order := &book.Order{
				Trader:    trader,
				Side:      side,
				Price:     new(big.Int).Set(price),
				Original:  new(big.Int).Set(remaining),
				Remaining: new(big.Int).Set(remaining),
				Sequence:  m.seq,
			}
			if side == core.Bid {
				m.bids.Insert(order)
			} else {
				m.asks.Insert(order)
			}
			res.RestingSequence = m.seq
		} else if err := tx.Transfer(escrowAsset, m.cfg.Address, trader, remaining); err != nil {
			m.restore(snap)
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		m.restore(snap)
		return nil, err
	}

	for _, f := range res.Fills {
		m.log.Infow("fill",
			"taker", f.Taker.Hex(),
			"maker", f.Maker.Hex(),
			"side", f.TakerSide.String(),
			"price", f.Price.String(),
			"tokens", f.TokenAmount.String(),
			"base", f.BaseAmount.String(),
		)
		if m.onFill != nil {
			m.onFill(f)
		}
	}
	if res.RestingSequence != 0 {
		m.log.Infow("order_resting",
			"trader", trader.Hex(),
			"side", side.String(),
			"price", price.String(),
			"amount", remaining.String(),
			"sequence", res.RestingSequence,
		)
	}
	return res, nil
}

// matchFront matches the taker's remaining amount against the maker at the
// front of the opposing side, always at the maker's price. Returns the fill,
// and last=true when the taker was exhausted by a partial maker fill. A nil
// fill means the remainder no longer converts to a whole maker unit.
//
// The maker order is removed or reduced here, before settlement runs.
func (m *Market) matchFront(side core.Side, taker common.Address, maker *book.Order, remaining *big.Int) (*Fill, bool, error) {
	fill := &Fill{
		Maker:         maker.Trader,
		Taker:         taker,
		MakerSequence: maker.Sequence,
		TakerSide:     side,
		Price:         new(big.Int).Set(maker.Price),
	}

	opposing := m.asks
	if side == core.Ask {
		opposing = m.bids
	}

	// Maker's resting amount expressed in the taker's native unit decides
	// full versus partial.
	var makerInTaker *big.Int
	var err error
	if side == core.Bid {
		makerInTaker, err = m.TokensToBaseAsset(maker.Remaining, maker.Price)
	} else {
		makerInTaker, err = m.BaseAssetToTokens(maker.Remaining, maker.Price)
	}
	if err != nil {
		return nil, false, err
	}

	if makerInTaker.Cmp(remaining) <= 0 {
		// Full maker fill: the maker's entire remaining amount trades.
		if side == core.Bid {
			fill.TokenAmount = new(big.Int).Set(maker.Remaining)
			fill.BaseAmount = makerInTaker
		} else {
			fill.BaseAmount = new(big.Int).Set(maker.Remaining)
			fill.TokenAmount = makerInTaker
		}
		opposing.RemoveFront()
		return fill, false, nil
	}

	// Partial maker fill: exactly the taker's remainder, converted into the
	// maker's unit, comes off the front order. Its sequence, and priority,
	// survive.
	var converted *big.Int
	if side == core.Bid {
		converted, err = m.BaseAssetToTokens(remaining, maker.Price)
	} else {
		converted, err = m.TokensToBaseAsset(remaining, maker.Price)
	}
	if err != nil {
		return nil, false, err
	}
	if converted.Sign() == 0 {
		return nil, false, nil
	}

	if side == core.Bid {
		fill.TokenAmount = converted
		fill.BaseAmount = new(big.Int).Set(remaining)
	} else {
		fill.BaseAmount = converted
		fill.TokenAmount = new(big.Int).Set(remaining)
	}
	opposing.ReduceFront(converted)
	return fill, true, nil
}

// feeOf returns amount * FeeBps / 10000, truncating.
func (m *Market) feeOf(amount *big.Int) *big.Int {
	fee := new(big.Int).Mul(amount, big.NewInt(m.cfg.FeeBps))
	return fee.Quo(fee, big.NewInt(10_000))
}

// settleFill pays out both legs of a fill from escrow, net of the protocol
// fee withheld from each leg, and stages reward mints for the fee payers.
// The fee on the token leg is attributed to the asset seller, the fee on the
// base leg to the buyer.
func (m *Market) settleFill(tx *ledger.Tx, f *Fill) error {
	buyer, seller := f.Taker, f.Maker
	if f.TakerSide == core.Ask {
		buyer, seller = f.Maker, f.Taker
	}

	f.TokenFee = m.feeOf(f.TokenAmount)
	f.BaseFee = m.feeOf(f.BaseAmount)

	// Accounting first, transfers second.
	m.tokenFees.Add(m.tokenFees, f.TokenFee)
	m.baseFees.Add(m.baseFees, f.BaseFee)
	m.volume.Add(m.volume, f.BaseAmount)

	tokenOut := new(big.Int).Sub(f.TokenAmount, f.TokenFee)
	if err := tx.Transfer(m.cfg.Token, m.cfg.Address, buyer, tokenOut); err != nil {
		return err
	}
	baseOut := new(big.Int).Sub(f.BaseAmount, f.BaseFee)
	if err := tx.Transfer(m.cfg.BaseAsset, m.cfg.Address, seller, baseOut); err != nil {
		return err
	}

	if err := m.bridge.Reward(tx, m.cfg.Token, seller, f.TokenFee); err != nil {
		return err
	}
	return m.bridge.Reward(tx, m.cfg.BaseAsset, buyer, f.BaseFee)
}

// Cancel removes the trader's resting order with the given sequence and
// refunds its escrowed remainder.
func (m *Market) Cancel(trader common.Address, sequence uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	side := m.bids
	order := m.bids.Find(sequence)
	if order == nil {
		side = m.asks
		order = m.asks.Find(sequence)
	}
	if order == nil {
		return fmt.Errorf("order %d not found", sequence)
	}
	if order.Trader != trader {
		return fmt.Errorf("order %d does not belong to %s", sequence, trader.Hex())
	}

	escrowAsset := m.cfg.BaseAsset
	if order.Side == core.Ask {
		escrowAsset = m.cfg.Token
	}

	tx := m.ledger.Begin()
	if err := tx.Transfer(escrowAsset, m.cfg.Address, trader, order.Remaining); err != nil {
		return err
	}

	side.Remove(sequence)
	if err := tx.Commit(); err != nil {
		// Put the order back; the refund never reached the ledger.
		side.Insert(order)
		return err
	}

	m.log.Infow("order_cancelled",
		"trader", trader.Hex(),
		"sequence", sequence,
		"refund", order.Remaining.String(),
	)
	return nil
}
