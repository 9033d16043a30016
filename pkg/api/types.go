package api

// REST and WebSocket wire types. Amounts and prices are decimal strings:
// they mirror 256-bit token quantities that do not fit in JSON numbers.

// MarketInfo is a cataloged market's configuration and running totals.
type MarketInfo struct {
	Index     int    `json:"index"`
	Address   string `json:"address"`
	Creator   string `json:"creator"`
	Token     string `json:"token"`
	BaseAsset string `json:"baseAsset"`
	MinOrder  string `json:"minOrder"`
	RoundTick string `json:"roundTick"`
	FeeBps    int64  `json:"feeBps"`
	Volume    string `json:"volume"`
	TokenFees string `json:"tokenFees"`
	BaseFees  string `json:"baseFees"`
}

// QuoteInfo is one book endpoint: amount and price, both "0" when empty.
type QuoteInfo struct {
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

// MarketQuotes bundles the four book endpoints.
type MarketQuotes struct {
	HighestBid QuoteInfo `json:"highestBid"`
	LowestBid  QuoteInfo `json:"lowestBid"`
	LowestAsk  QuoteInfo `json:"lowestAsk"`
	HighestAsk QuoteInfo `json:"highestAsk"`
}

// PriceLevel is aggregated resting amount at one price.
type PriceLevel struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

// BookSnapshot is the current book state: bids high to low, asks low to high.
type BookSnapshot struct {
	Market    int          `json:"market"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp int64        `json:"timestamp"` // unix milliseconds
}

// OrderRequest submits a limit order.
type OrderRequest struct {
	Market int    `json:"market"`
	Side   string `json:"side"` // "buy" or "sell"
	Trader string `json:"trader"`
	Amount string `json:"amount"` // base units for buys, token units for sells
	Price  string `json:"price"`
}

// CancelRequest cancels a resting order.
type CancelRequest struct {
	Market   int    `json:"market"`
	Trader   string `json:"trader"`
	Sequence uint64 `json:"sequence"`
}

// FillInfo is one executed match.
type FillInfo struct {
	Market      int    `json:"market"`
	Maker       string `json:"maker"`
	Taker       string `json:"taker"`
	TakerSide   string `json:"takerSide"`
	Price       string `json:"price"`
	TokenAmount string `json:"tokenAmount"`
	BaseAmount  string `json:"baseAmount"`
	TokenFee    string `json:"tokenFee"`
	BaseFee     string `json:"baseFee"`
}

// OrderResponse reports the outcome of a submission.
type OrderResponse struct {
	Filled          string     `json:"filled"`
	RestingSequence uint64     `json:"restingSequence,omitempty"`
	Fills           []FillInfo `json:"fills,omitempty"`
}

// BalanceInfo is one holder's balance of one asset.
type BalanceInfo struct {
	Asset   string `json:"asset"`
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

// MetadataUpdate sets a trader's public handle.
type MetadataUpdate struct {
	Handle string `json:"handle"`
}

// ErrorResponse carries a request failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
