package main

import (
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/odexlabs/odex/params"
	"github.com/odexlabs/odex/pkg/api"
	"github.com/odexlabs/odex/pkg/core/ledger"
	"github.com/odexlabs/odex/pkg/core/registry"
	"github.com/odexlabs/odex/pkg/core/rewards"
	"github.com/odexlabs/odex/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	l, err := ledger.Open(cfg.Exchange.DBPath)
	if err != nil {
		sugar.Fatalw("ledger_open_failed", "path", cfg.Exchange.DBPath, "err", err)
	}
	defer l.Close()

	owner := common.HexToAddress(cfg.Exchange.Owner)
	rewardToken := rewards.NewToken(common.HexToAddress(cfg.Exchange.RewardToken))
	bridge := rewards.NewBridge(rewardToken, sugar)
	reg := registry.New(owner, l, bridge, sugar)

	minOrder, ok := new(big.Int).SetString(cfg.Exchange.MinOrder, 10)
	if !ok {
		sugar.Fatalw("bad_min_order", "value", cfg.Exchange.MinOrder)
	}
	roundTick, ok := new(big.Int).SetString(cfg.Exchange.RoundTick, 10)
	if !ok {
		sugar.Fatalw("bad_round_tick", "value", cfg.Exchange.RoundTick)
	}

	if _, err := reg.Deploy(
		owner,
		common.HexToAddress(cfg.Exchange.Token),
		common.HexToAddress(cfg.Exchange.BaseAsset),
		uint8(cfg.Exchange.TokenDecimals),
		minOrder,
		roundTick,
		cfg.Exchange.FeeBps,
	); err != nil {
		sugar.Fatalw("market_deploy_failed", "err", err)
	}

	server := api.NewServer(reg, l, sugar)
	go func() {
		if err := server.Start(cfg.API.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	sugar.Infow("shutting_down", "signal", sig.String())
}
