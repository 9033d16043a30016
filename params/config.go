package params

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Exchange struct {
	// DBPath is where the balance ledger's Pebble database lives.
	DBPath string

	// Owner administers the registry: reward rates, default market.
	Owner string

	// FeeBps is the protocol fee charged on each fill leg, in basis points.
	FeeBps int64

	// RewardToken is the asset the fee/reward bridge mints.
	RewardToken string

	// Default market deployed at startup.
	Token         string
	BaseAsset     string
	TokenDecimals int64
	MinOrder      string // decimal, base/traded asset native units
	RoundTick     string // decimal
}

type API struct {
	Addr string // listen address for REST + WebSocket
}

type Node struct {
	LogFile string
}

type Config struct {
	Exchange Exchange
	API      API
	Node     Node
}

func Default() Config {
	return Config{
		Exchange: Exchange{
			DBPath:        "data/ledger.db",
			Owner:         "0x0000000000000000000000000000000000000001",
			FeeBps:        10,
			RewardToken:   "0x00000000000000000000000000000000000000Dc",
			Token:         "0x0000000000000000000000000000000000000002",
			BaseAsset:     "0x0000000000000000000000000000000000000003",
			TokenDecimals: 18,
			MinOrder:      "1000000",
			RoundTick:     "1000000",
		},
		API: API{
			Addr: ":8080",
		},
		Node: Node{
			LogFile: "data/odexd.log",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Exchange.DBPath = envStr("ODEX_DB_PATH", cfg.Exchange.DBPath)
	cfg.Exchange.Owner = envStr("ODEX_OWNER", cfg.Exchange.Owner)
	cfg.Exchange.FeeBps = envInt64("ODEX_FEE_BPS", cfg.Exchange.FeeBps)
	cfg.Exchange.RewardToken = envStr("ODEX_REWARD_TOKEN", cfg.Exchange.RewardToken)
	cfg.Exchange.Token = envStr("ODEX_TOKEN", cfg.Exchange.Token)
	cfg.Exchange.BaseAsset = envStr("ODEX_BASE_ASSET", cfg.Exchange.BaseAsset)
	cfg.Exchange.TokenDecimals = envInt64("ODEX_TOKEN_DECIMALS", cfg.Exchange.TokenDecimals)
	cfg.Exchange.MinOrder = envStr("ODEX_MIN_ORDER", cfg.Exchange.MinOrder)
	cfg.Exchange.RoundTick = envStr("ODEX_ROUND_TICK", cfg.Exchange.RoundTick)
	cfg.API.Addr = envStr("ODEX_API_ADDR", cfg.API.Addr)
	cfg.Node.LogFile = envStr("LOG_FILE", cfg.Node.LogFile)

	return cfg
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
