package market

import (
	"fmt"
	"math/big"

	"github.com/odexlabs/odex/pkg/core"
)

// maxUint256 bounds every amount the engine handles; intermediates past it
// are rejected, mirroring EVM arithmetic.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Multiplier returns the fixed-point unit of the traded asset,
// 10^TokenDecimals.
func (m *Market) Multiplier() *big.Int {
	return new(big.Int).Set(m.multiplier)
}

// TokensToBaseAsset converts a traded-asset amount to base-asset units at
// the given price: amount * price / multiplier. Truncates toward zero.
// Callers reject price == 0 before converting.
func (m *Market) TokensToBaseAsset(tokenAmount, price *big.Int) (*big.Int, error) {
	out := new(big.Int).Mul(tokenAmount, price)
	if out.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("%w: %s tokens at price %s", core.ErrArithmeticOverflow, tokenAmount, price)
	}
	return out.Quo(out, m.multiplier), nil
}

// BaseAssetToTokens converts a base-asset amount to traded-asset units at
// the given price: amount * multiplier / price. Exact inverse of
// TokensToBaseAsset up to one truncating division.
func (m *Market) BaseAssetToTokens(baseAmount, price *big.Int) (*big.Int, error) {
	out := new(big.Int).Mul(baseAmount, m.multiplier)
	if out.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("%w: %s base units at price %s", core.ErrArithmeticOverflow, baseAmount, price)
	}
	return out.Quo(out, price), nil
}
