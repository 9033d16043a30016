// Package registry catalogs deployed markets and holds exchange-wide
// administration: reward-rate configuration and trader metadata. Markets are
// created here and wired to the shared ledger and reward bridge.
package registry

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/odexlabs/odex/pkg/core/ledger"
	"github.com/odexlabs/odex/pkg/core/market"
	"github.com/odexlabs/odex/pkg/core/rewards"
)

// Entry is one cataloged market.
type Entry struct {
	Market    *market.Market
	Address   common.Address // the market's ledger account
	Creator   common.Address
	Token     common.Address
	BaseAsset common.Address
}

// Registry is the exchange-wide catalog. Only the owner may configure
// reward rates.
type Registry struct {
	mu       sync.RWMutex
	owner    common.Address
	ledger   *ledger.Ledger
	bridge   *rewards.Bridge
	entries  []*Entry
	byPair   map[[2]common.Address]*Entry
	metadata map[common.Address]string
	log      *zap.SugaredLogger
}

// New creates a registry administered by owner.
func New(owner common.Address, l *ledger.Ledger, b *rewards.Bridge, log *zap.SugaredLogger) *Registry {
	return &Registry{
		owner:    owner,
		ledger:   l,
		bridge:   b,
		byPair:   make(map[[2]common.Address]*Entry),
		metadata: make(map[common.Address]string),
		log:      log,
	}
}

// Owner returns the registry administrator.
func (r *Registry) Owner() common.Address { return r.owner }

// marketAddress derives a deterministic ledger account for a new market from
// its pair and catalog position.
func marketAddress(token, base common.Address, index int) common.Address {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(index))
	h := crypto.Keccak256(token.Bytes(), base.Bytes(), idx[:])
	return common.BytesToAddress(h[12:])
}

// Deploy constructs a market for the pair, wires it to the shared ledger and
// reward bridge, and catalogs it. One market per pair.
func (r *Registry) Deploy(creator, token, base common.Address, tokenDecimals uint8, minOrder, roundTick *big.Int, feeBps int64) (*market.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair := [2]common.Address{token, base}
	if _, exists := r.byPair[pair]; exists {
		return nil, fmt.Errorf("market %s/%s already deployed", token.Hex(), base.Hex())
	}

	addr := marketAddress(token, base, len(r.entries))
	m, err := market.New(market.Config{
		Address:       addr,
		Token:         token,
		BaseAsset:     base,
		TokenDecimals: tokenDecimals,
		MinOrder:      minOrder,
		RoundTick:     roundTick,
		FeeBps:        feeBps,
	}, r.ledger, r.bridge, r.log)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		Market:    m,
		Address:   addr,
		Creator:   creator,
		Token:     token,
		BaseAsset: base,
	}
	r.entries = append(r.entries, entry)
	r.byPair[pair] = entry

	r.log.Infow("market_deployed",
		"address", addr.Hex(),
		"creator", creator.Hex(),
		"token", token.Hex(),
		"base_asset", base.Hex(),
	)
	return m, nil
}

// Markets returns every cataloged market, in deployment order.
func (r *Registry) Markets() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Market returns the i-th cataloged market.
func (r *Registry) Market(i int) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 || i >= len(r.entries) {
		return nil, fmt.Errorf("market %d not found", i)
	}
	return r.entries[i], nil
}

// MarketForPair returns the market trading token against base.
func (r *Registry) MarketForPair(token, base common.Address) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byPair[[2]common.Address{token, base}]
	if !ok {
		return nil, fmt.Errorf("no market for %s/%s", token.Hex(), base.Hex())
	}
	return e, nil
}

// Count returns the number of cataloged markets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// RewardsAsset configures the reward rate for fees paid in asset. Owner
// only.
func (r *Registry) RewardsAsset(caller, asset common.Address, rate *big.Int) error {
	if caller != r.owner {
		return fmt.Errorf("only the registry owner may set reward rates")
	}
	r.bridge.SetRate(asset, rate)
	r.log.Infow("reward_rate_set", "asset", asset.Hex(), "rate", rate.String())
	return nil
}

// UpdateMetadata records a trader's public handle.
func (r *Registry) UpdateMetadata(trader common.Address, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[trader] = handle
}

// Metadata returns a trader's handle, empty if never set.
func (r *Registry) Metadata(trader common.Address) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metadata[trader]
}
