package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema. Prefix-based so all balances of one asset sit in a
// contiguous range.
const (
	prefixBalance = "bal:" // balance per (asset, holder)
	prefixSupply  = "sup:" // total minted per asset
)

// balanceKey formats "bal:{asset}:{holder}".
func balanceKey(asset, holder common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBalance, asset.Hex(), holder.Hex()))
}

// supplyKey formats "sup:{asset}".
func supplyKey(asset common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixSupply, asset.Hex()))
}
