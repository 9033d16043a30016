package rewards

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/odexlabs/odex/pkg/core/ledger"
)

var (
	odexToken = common.HexToAddress("0x00000000000000000000000000000000000000Dc")
	weth      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	usd       = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	trader    = common.HexToAddress("0x0000000000000000000000000000000000000011")
)

func newFixture(t *testing.T) (*Bridge, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return NewBridge(NewToken(odexToken), zap.NewNop().Sugar()), l
}

func bigExp(base, exp int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(base), big.NewInt(exp), nil)
}

func TestRewardMintsFeeTimesRate(t *testing.T) {
	b, l := newFixture(t)

	// 2e22: one token-wei of fees mints 20,000 reward wei.
	rate := new(big.Int).Mul(big.NewInt(2), bigExp(10, 22))
	b.SetRate(weth, rate)

	// Matches the launch rate sheet: a 0.001 WETH fee earns 20 ODEX.
	fee := bigExp(10, 15)
	tx := l.Begin()
	if err := b.Reward(tx, weth, trader, fee); err != nil {
		t.Fatalf("reward: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	want := new(big.Int).Mul(big.NewInt(20), bigExp(10, 18))
	if got := l.BalanceOf(odexToken, trader); got.Cmp(want) != 0 {
		t.Fatalf("reward balance = %s, want %s", got, want)
	}
}

func TestRewardWithoutRateIsNoop(t *testing.T) {
	b, l := newFixture(t)

	tx := l.Begin()
	if err := b.Reward(tx, usd, trader, big.NewInt(1_800_000)); err != nil {
		t.Fatalf("reward without rate should not error: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := l.BalanceOf(odexToken, trader); got.Sign() != 0 {
		t.Fatalf("balance = %s, want 0", got)
	}
}

func TestZeroFeeMintsNothing(t *testing.T) {
	b, l := newFixture(t)
	b.SetRate(weth, bigExp(10, 18))

	tx := l.Begin()
	if err := b.Reward(tx, weth, trader, big.NewInt(0)); err != nil {
		t.Fatalf("reward: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := l.BalanceOf(odexToken, trader); got.Sign() != 0 {
		t.Fatalf("balance = %s, want 0", got)
	}
}

func TestTinyFeeTruncatesToZero(t *testing.T) {
	b, l := newFixture(t)
	b.SetRate(weth, big.NewInt(1)) // 1 wei reward per 1e18 fee wei

	tx := l.Begin()
	if err := b.Reward(tx, weth, trader, big.NewInt(999)); err != nil {
		t.Fatalf("reward: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := l.BalanceOf(odexToken, trader); got.Sign() != 0 {
		t.Fatalf("balance = %s, want 0 (reward truncates toward zero)", got)
	}
}

func TestSetRateZeroDisables(t *testing.T) {
	b, _ := newFixture(t)
	b.SetRate(weth, bigExp(10, 18))
	b.SetRate(weth, big.NewInt(0))
	if r := b.Rate(weth); r != nil {
		t.Fatalf("rate = %s, want nil after zeroing", r)
	}
}
