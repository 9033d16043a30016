// Package rewards converts protocol fee volume into reward-token mints.
// Rates are opaque configuration set through the registry; an asset with no
// rate simply earns nothing.
package rewards

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/odexlabs/odex/pkg/core"
	"github.com/odexlabs/odex/pkg/core/ledger"
)

// rewardScale is the fixed-point unit of the reward rate: a rate of 1e18
// mints one reward wei per fee wei.
var rewardScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Token is the reward token the bridge mints. It is an ordinary ledger asset
// with a distinguished address.
type Token struct {
	addr common.Address
}

// NewToken declares the reward token at addr.
func NewToken(addr common.Address) *Token {
	return &Token{addr: addr}
}

// Address returns the reward token's asset address.
func (t *Token) Address() common.Address { return t.addr }

// Mint credits amount of the reward token to a trader inside tx.
func (t *Token) Mint(tx *ledger.Tx, to common.Address, amount *big.Int) error {
	return tx.Mint(t.addr, to, amount)
}

// Bridge issues reward mints for fees paid. One instance is shared by all
// markets; the registry owns rate administration.
type Bridge struct {
	mu    sync.RWMutex
	rates map[common.Address]*big.Int // asset -> reward per fee unit, 1e18 scale
	token *Token
	log   *zap.SugaredLogger
}

// NewBridge creates a bridge minting the given token.
func NewBridge(token *Token, log *zap.SugaredLogger) *Bridge {
	return &Bridge{
		rates: make(map[common.Address]*big.Int),
		token: token,
		log:   log,
	}
}

// Token returns the reward token the bridge mints.
func (b *Bridge) Token() *Token { return b.token }

// SetRate configures the reward rate for an asset. A nil or zero rate
// disables rewards for that asset.
func (b *Bridge) SetRate(asset common.Address, rate *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rate == nil || rate.Sign() == 0 {
		delete(b.rates, asset)
		return
	}
	b.rates[asset] = new(big.Int).Set(rate)
}

// Rate returns the configured rate for asset, nil if none.
func (b *Bridge) Rate(asset common.Address) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.rates[asset]
	if !ok {
		return nil
	}
	return new(big.Int).Set(r)
}

// Reward computes fee * rate / 1e18 for the asset the fee was paid in and
// stages a mint to the fee payer inside tx. No configured rate, or a reward
// that truncates to zero, mints nothing.
func (b *Bridge) Reward(tx *ledger.Tx, asset, payer common.Address, fee *big.Int) error {
	if fee == nil || fee.Sign() == 0 {
		return nil
	}
	rate := b.Rate(asset)
	if rate == nil {
		return nil
	}

	amount := new(big.Int).Mul(fee, rate)
	if amount.Cmp(maxUint256) > 0 {
		return fmt.Errorf("%w: reward for fee %s at rate %s", core.ErrArithmeticOverflow, fee, rate)
	}
	amount.Quo(amount, rewardScale)
	if amount.Sign() == 0 {
		return nil
	}

	if err := b.token.Mint(tx, payer, amount); err != nil {
		return err
	}
	b.log.Debugw("reward_minted",
		"asset", asset.Hex(),
		"payer", payer.Hex(),
		"fee", fee.String(),
		"reward", amount.String(),
	)
	return nil
}
