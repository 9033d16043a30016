package tests

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/odexlabs/odex/pkg/core/ledger"
	"github.com/odexlabs/odex/pkg/core/registry"
	"github.com/odexlabs/odex/pkg/core/rewards"
)

var (
	owner = common.HexToAddress("0x0000000000000000000000000000000000000001")
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
	carol = common.HexToAddress("0xCC00000000000000000000000000000000000000")

	weth = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	usdc = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	odex = common.HexToAddress("0x00000000000000000000000000000000000000Dc")
)

func big10(exp int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
}

func mulExp(n, exp int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big10(exp))
}

func usd(n int64) *big.Int { return big.NewInt(n * 1_000_000) }

func newExchange(t *testing.T) (*registry.Registry, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	b := rewards.NewBridge(rewards.NewToken(odex), zap.NewNop().Sugar())
	return registry.New(owner, l, b, zap.NewNop().Sugar()), l
}

func mint(t *testing.T, l *ledger.Ledger, asset, to common.Address, amount *big.Int) {
	t.Helper()
	tx := l.Begin()
	if err := tx.Mint(asset, to, amount); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("mint commit: %v", err)
	}
}

func requireBalance(t *testing.T, l *ledger.Ledger, asset, holder common.Address, want *big.Int, label string) {
	t.Helper()
	if got := l.BalanceOf(asset, holder); got.Cmp(want) != 0 {
		t.Fatalf("%s = %s, want %s", label, got, want)
	}
}

// TestTradingSimulation walks a full exchange session: deploy a WETH/USDC
// market, configure reward rates, stand up liquidity on both sides, take it
// in both directions, cancel a resting order, and verify every balance,
// fee, and reward against hand-computed values.
func TestTradingSimulation(t *testing.T) {
	r, l := newExchange(t)

	m, err := r.Deploy(owner, weth, usdc, 18, usd(1), usd(1), 10)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if err := r.RewardsAsset(owner, weth, mulExp(2, 22)); err != nil {
		t.Fatalf("set weth rate: %v", err)
	}
	if err := r.RewardsAsset(owner, usdc, mulExp(11, 30)); err != nil {
		t.Fatalf("set usdc rate: %v", err)
	}

	mint(t, l, usdc, alice, usd(10_000))
	mint(t, l, weth, bob, mulExp(10, 18))
	mint(t, l, weth, carol, big10(18))
	mint(t, l, usdc, carol, usd(1_000))

	// Alice stands up the bid side, bob the ask side.
	lowBid, err := m.LimitOrderBuy(alice, usd(1800), usd(1798))
	if err != nil {
		t.Fatalf("alice low bid: %v", err)
	}
	if _, err := m.LimitOrderBuy(alice, usd(1800), usd(1800)); err != nil {
		t.Fatalf("alice high bid: %v", err)
	}
	if _, err := m.LimitOrderSell(bob, big10(18), usd(1804)); err != nil {
		t.Fatalf("bob high ask: %v", err)
	}
	if _, err := m.LimitOrderSell(bob, big10(18), usd(1802)); err != nil {
		t.Fatalf("bob low ask: %v", err)
	}

	if q := m.HighestBid(); q.Price.Cmp(usd(1800)) != 0 || q.Amount.Cmp(usd(1800)) != 0 {
		t.Fatalf("highest bid = %s@%s", q.Amount, q.Price)
	}
	if q := m.LowestBid(); q.Price.Cmp(usd(1798)) != 0 {
		t.Fatalf("lowest bid price = %s", q.Price)
	}
	if q := m.LowestAsk(); q.Price.Cmp(usd(1802)) != 0 || q.Amount.Cmp(big10(18)) != 0 {
		t.Fatalf("lowest ask = %s@%s", q.Amount, q.Price)
	}
	if q := m.HighestAsk(); q.Price.Cmp(usd(1804)) != 0 {
		t.Fatalf("highest ask price = %s", q.Price)
	}

	// Carol sells 1 WETH into the 1800 bid. The bid wants exactly 1 WETH,
	// so both sides fill completely.
	sellRes, err := m.LimitOrderSell(carol, big10(18), usd(1800))
	if err != nil {
		t.Fatalf("carol sell: %v", err)
	}
	if len(sellRes.Fills) != 1 || sellRes.RestingSequence != 0 {
		t.Fatalf("sell result = %+v", sellRes)
	}

	// 10 bps of 1 WETH is 0.001 WETH; of 1800 USDC, 1.8 USDC.
	requireBalance(t, l, weth, alice, mulExp(999, 15), "alice weth")
	requireBalance(t, l, usdc, carol, big.NewInt(2_798_200_000), "carol usdc")

	// Fee-payer rewards: 0.001 WETH at 2e22 mints 20 ODEX to the seller,
	// 1.8 USDC at 11e30 mints 19.8 ODEX to the buyer.
	requireBalance(t, l, odex, carol, mulExp(20, 18), "carol odex")
	requireBalance(t, l, odex, alice, mulExp(198, 17), "alice odex")

	if q := m.HighestBid(); q.Price.Cmp(usd(1798)) != 0 {
		t.Fatalf("highest bid after take = %s", q.Price)
	}

	// Carol buys 901 USDC worth at 1802: exactly half of bob's low ask.
	buyRes, err := m.LimitOrderBuy(carol, usd(901), usd(1802))
	if err != nil {
		t.Fatalf("carol buy: %v", err)
	}
	if len(buyRes.Fills) != 1 || buyRes.RestingSequence != 0 {
		t.Fatalf("buy result = %+v", buyRes)
	}

	half := mulExp(5, 17)
	if q := m.LowestAsk(); q.Amount.Cmp(half) != 0 || q.Price.Cmp(usd(1802)) != 0 {
		t.Fatalf("low ask after take = %s@%s", q.Amount, q.Price)
	}

	// 0.5 WETH net of a 0.0005 WETH fee; bob nets 901 less 0.901 USDC.
	requireBalance(t, l, weth, carol, big.NewInt(499_500_000_000_000_000), "carol weth")
	requireBalance(t, l, usdc, bob, big.NewInt(900_099_000), "bob usdc")
	requireBalance(t, l, odex, bob, big10(19), "bob odex")
	wantCarolOdex := new(big.Int).Add(mulExp(20, 18), new(big.Int).SetUint64(9_911_000_000_000_000_000))
	requireBalance(t, l, odex, carol, wantCarolOdex, "carol odex")

	// Alice pulls her remaining bid and gets the escrow back.
	if err := m.Cancel(alice, lowBid.RestingSequence); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireBalance(t, l, usdc, alice, usd(10_000-1_800), "alice usdc")

	// The market account holds exactly the still-escrowed asks plus the
	// withheld fees; nothing leaked.
	wethEscrow := new(big.Int).Add(mulExp(15, 17), big.NewInt(1_500_000_000_000_000))
	requireBalance(t, l, weth, m.Address(), wethEscrow, "market weth")
	requireBalance(t, l, usdc, m.Address(), big.NewInt(2_701_000), "market usdc")

	if got := l.TotalSupply(weth); got.Cmp(mulExp(11, 18)) != 0 {
		t.Fatalf("weth supply = %s, want 11e18", got)
	}

	if got := m.Volume(); got.Cmp(usd(1800 + 901)) != 0 {
		t.Fatalf("volume = %s", got)
	}

	r.UpdateMetadata(carol, "carol.eth")
	if got := r.Metadata(carol); got != "carol.eth" {
		t.Fatalf("metadata = %q", got)
	}
}
