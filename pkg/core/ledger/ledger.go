// Package ledger tracks asset balances and executes the transfers implied by
// fills. Balances live in an in-memory cache backed by Pebble; every order
// submission runs inside a Tx whose staged writes commit as one atomic batch
// or not at all.
package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/odexlabs/odex/pkg/core"
)

// Ledger is the balance book for every asset the exchange touches. One
// instance is shared by all markets.
type Ledger struct {
	mu    sync.RWMutex
	store *Store
	cache map[string]*big.Int // pebble key -> balance/supply
}

// Open opens the ledger database at dbPath.
func Open(dbPath string) (*Ledger, error) {
	store, err := OpenStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Ledger{
		store: store,
		cache: make(map[string]*big.Int),
	}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// load returns the cached value for key, falling through to Pebble. Missing
// entries are zero. Caller must hold the write lock: a miss fills the cache.
func (l *Ledger) load(key []byte) *big.Int {
	k := string(key)
	if v, ok := l.cache[k]; ok {
		return v
	}
	v, err := l.store.Load(key)
	if err != nil || v == nil {
		v = new(big.Int)
	}
	l.cache[k] = v
	return v
}

// BalanceOf returns holder's balance of asset. Always non-nil; the returned
// value is a copy.
func (l *Ledger) BalanceOf(asset, holder common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.load(balanceKey(asset, holder)))
}

// TotalSupply returns the cumulative minted amount of asset.
func (l *Ledger) TotalSupply(asset common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.load(supplyKey(asset)))
}

// Begin opens a transaction. Staged writes are invisible to readers until
// Commit; dropping the Tx without committing discards them.
func (l *Ledger) Begin() *Tx {
	return &Tx{
		ledger: l,
		staged: make(map[string]*big.Int),
	}
}

// Tx stages balance movements for one order submission. Not safe for
// concurrent use; the hosting market serializes submissions.
type Tx struct {
	ledger *Ledger
	staged map[string]*big.Int
	done   bool
}

// balance returns the staged-aware balance under key as a mutable staged
// entry.
func (tx *Tx) balance(key []byte) *big.Int {
	k := string(key)
	if v, ok := tx.staged[k]; ok {
		return v
	}
	tx.ledger.mu.Lock()
	base := new(big.Int).Set(tx.ledger.load(key))
	tx.ledger.mu.Unlock()
	tx.staged[k] = base
	return base
}

// BalanceOf returns holder's balance of asset as seen by this transaction.
func (tx *Tx) BalanceOf(asset, holder common.Address) *big.Int {
	return new(big.Int).Set(tx.balance(balanceKey(asset, holder)))
}

// Transfer moves amount of asset from one holder to another. A transfer the
// payer cannot cover fails with ErrSettlementFailed and stages nothing.
func (tx *Tx) Transfer(asset, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative transfer amount %s", core.ErrSettlementFailed, amount)
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	src := tx.balance(balanceKey(asset, from))
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s",
			core.ErrSettlementFailed, from.Hex(), src, asset.Hex(), amount)
	}
	src.Sub(src, amount)
	dst := tx.balance(balanceKey(asset, to))
	dst.Add(dst, amount)
	return nil
}

// Mint credits amount of asset to holder and bumps the asset's supply.
func (tx *Tx) Mint(asset, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative mint amount %s", core.ErrSettlementFailed, amount)
	}
	if amount.Sign() == 0 {
		return nil
	}
	dst := tx.balance(balanceKey(asset, to))
	dst.Add(dst, amount)
	sup := tx.balance(supplyKey(asset))
	sup.Add(sup, amount)
	return nil
}

// Commit writes every staged balance to Pebble in one batch and publishes it
// to the cache. A committed Tx cannot be reused.
func (tx *Tx) Commit() error {
	if tx.done {
		return fmt.Errorf("ledger tx already committed")
	}
	tx.done = true
	if len(tx.staged) == 0 {
		return nil
	}

	tx.ledger.mu.Lock()
	defer tx.ledger.mu.Unlock()

	if err := tx.ledger.store.WriteBatch(tx.staged); err != nil {
		return fmt.Errorf("%w: %v", core.ErrSettlementFailed, err)
	}
	for k, v := range tx.staged {
		tx.ledger.cache[k] = v
	}
	return nil
}
