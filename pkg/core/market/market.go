// Package market implements the per-market order book and matching engine:
// limit order entry, price-time matching at the maker's price, decimal-aware
// conversion between the traded asset and the base asset, and fee/reward
// accrual on every fill.
package market

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/odexlabs/odex/pkg/core"
	"github.com/odexlabs/odex/pkg/core/book"
	"github.com/odexlabs/odex/pkg/core/ledger"
	"github.com/odexlabs/odex/pkg/core/rewards"
)

// Config is the per-market configuration supplied once by the registry.
type Config struct {
	// Address is the market's own ledger account. Escrowed order funds and
	// withheld fees accumulate here.
	Address common.Address

	Token     common.Address // traded asset
	BaseAsset common.Address // quote asset prices are denominated in

	// TokenDecimals sets the conversion multiplier: one whole traded-asset
	// unit is 10^TokenDecimals.
	TokenDecimals uint8

	// MinOrder is the minimum order amount in the side's native unit.
	MinOrder *big.Int

	// RoundTick is the required multiple for both amounts and prices.
	RoundTick *big.Int

	// FeeBps is the protocol fee in basis points, withheld from each leg of
	// every fill.
	FeeBps int64
}

func (c Config) validate() error {
	if c.Token == c.BaseAsset {
		return fmt.Errorf("market cannot pair an asset with itself")
	}
	if c.MinOrder == nil || c.MinOrder.Sign() <= 0 {
		return fmt.Errorf("min order must be positive")
	}
	if c.RoundTick == nil || c.RoundTick.Sign() <= 0 {
		return fmt.Errorf("round tick must be positive")
	}
	if c.FeeBps < 0 || c.FeeBps >= 10_000 {
		return fmt.Errorf("fee bps %d out of range", c.FeeBps)
	}
	return nil
}

// Fill records one match. Token amounts are traded-asset units, base amounts
// base-asset units; Price is always the maker's resting price. Fills are
// handed to observers after the submission commits.
type Fill struct {
	Maker         common.Address
	Taker         common.Address
	MakerSequence uint64
	TakerSide     core.Side
	Price         *big.Int
	TokenAmount   *big.Int
	BaseAmount    *big.Int
	TokenFee      *big.Int
	BaseFee       *big.Int
}

// Result reports one order submission: the total filled in the taker's
// native unit, the sequence of the residual resting order (0 when the order
// filled completely or was refunded), and the individual fills.
type Result struct {
	Filled          *big.Int
	RestingSequence uint64
	Fills           []Fill
}

// Quote is a book endpoint: the amount and price of the order resting there.
// Both are zero when the side is empty.
type Quote struct {
	Amount *big.Int
	Price  *big.Int
}

// Market owns one bid side, one ask side, and the running fee totals for one
// trading pair. The hosting environment serializes state-mutating calls; the
// internal mutex only guards informational readers against them.
type Market struct {
	mu  sync.RWMutex
	cfg Config

	multiplier *big.Int // 10^TokenDecimals

	bids *book.OrderBookSide
	asks *book.OrderBookSide
	seq  uint64

	ledger *ledger.Ledger
	bridge *rewards.Bridge

	// running totals, reported to the registry and fed to the reward bridge
	tokenFees *big.Int
	baseFees  *big.Int
	volume    *big.Int // cumulative base-asset volume

	onFill func(Fill)

	log *zap.SugaredLogger
}

// New constructs a market wired to the shared ledger and reward bridge.
func New(cfg Config, l *ledger.Ledger, b *rewards.Bridge, log *zap.SugaredLogger) (*Market, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("market config: %w", err)
	}
	cfg.MinOrder = new(big.Int).Set(cfg.MinOrder)
	cfg.RoundTick = new(big.Int).Set(cfg.RoundTick)

	return &Market{
		cfg:        cfg,
		multiplier: new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(cfg.TokenDecimals)), nil),
		bids:       book.NewSide(core.Bid),
		asks:       book.NewSide(core.Ask),
		ledger:     l,
		bridge:     b,
		tokenFees:  new(big.Int),
		baseFees:   new(big.Int),
		volume:     new(big.Int),
		log:        log,
	}, nil
}

// Address returns the market's ledger account.
func (m *Market) Address() common.Address { return m.cfg.Address }

// Token returns the traded asset's address.
func (m *Market) Token() common.Address { return m.cfg.Token }

// BaseAsset returns the base asset's address.
func (m *Market) BaseAsset() common.Address { return m.cfg.BaseAsset }

// MinOrder returns the minimum order amount.
func (m *Market) MinOrder() *big.Int { return new(big.Int).Set(m.cfg.MinOrder) }

// RoundTick returns the price and amount granularity.
func (m *Market) RoundTick() *big.Int { return new(big.Int).Set(m.cfg.RoundTick) }

// FeeBps returns the protocol fee in basis points.
func (m *Market) FeeBps() int64 { return m.cfg.FeeBps }

// SetFillObserver registers a callback invoked for each fill after its
// submission commits. Used by the API layer to stream fills.
func (m *Market) SetFillObserver(fn func(Fill)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFill = fn
}

func quoteOf(o *book.Order) Quote {
	if o == nil {
		return Quote{Amount: new(big.Int), Price: new(big.Int)}
	}
	return Quote{
		Amount: new(big.Int).Set(o.Remaining),
		Price:  new(big.Int).Set(o.Price),
	}
}

// HighestBid returns the best resting bid; matching reads this endpoint.
func (m *Market) HighestBid() Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return quoteOf(m.bids.PeekBest())
}

// LowestBid returns the least competitive resting bid. Informational.
func (m *Market) LowestBid() Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return quoteOf(m.bids.PeekWorst())
}

// LowestAsk returns the best resting ask; matching reads this endpoint.
func (m *Market) LowestAsk() Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return quoteOf(m.asks.PeekBest())
}

// HighestAsk returns the least competitive resting ask. Informational.
func (m *Market) HighestAsk() Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return quoteOf(m.asks.PeekWorst())
}

// BidLevels aggregates the bid side per price, best first.
func (m *Market) BidLevels() []book.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bids.Levels()
}

// AskLevels aggregates the ask side per price, best first.
func (m *Market) AskLevels() []book.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.asks.Levels()
}

// Depth returns the number of resting orders on each side.
func (m *Market) Depth() (bids, asks int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bids.Len(), m.asks.Len()
}

// TokenFees returns the cumulative fee volume withheld in the traded asset.
func (m *Market) TokenFees() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(big.Int).Set(m.tokenFees)
}

// BaseFees returns the cumulative fee volume withheld in the base asset.
func (m *Market) BaseFees() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(big.Int).Set(m.baseFees)
}

// Volume returns the cumulative traded volume in base-asset units.
func (m *Market) Volume() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(big.Int).Set(m.volume)
}

// snapshot captures everything a failed submission must roll back.
type snapshot struct {
	bids, asks []book.Order
	seq        uint64
	tokenFees  *big.Int
	baseFees   *big.Int
	volume     *big.Int
}

func (m *Market) snapshot() *snapshot {
	return &snapshot{
		bids:      m.bids.Snapshot(),
		asks:      m.asks.Snapshot(),
		seq:       m.seq,
		tokenFees: new(big.Int).Set(m.tokenFees),
		baseFees:  new(big.Int).Set(m.baseFees),
		volume:    new(big.Int).Set(m.volume),
	}
}

func (m *Market) restore(s *snapshot) {
	m.bids.Restore(s.bids)
	m.asks.Restore(s.asks)
	m.seq = s.seq
	m.tokenFees = s.tokenFees
	m.baseFees = s.baseFees
	m.volume = s.volume
}
