// Package api exposes the exchange over REST and WebSocket: market catalog,
// book inspection, order submission, balances, and a live fill feed.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/odexlabs/odex/pkg/core"
	"github.com/odexlabs/odex/pkg/core/book"
	"github.com/odexlabs/odex/pkg/core/ledger"
	"github.com/odexlabs/odex/pkg/core/market"
	"github.com/odexlabs/odex/pkg/core/registry"
)

// Server serves the REST API and WebSocket fill feed.
type Server struct {
	reg    *registry.Registry
	ledger *ledger.Ledger
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer wires a server to the registry and ledger. Fill observers are
// attached to every market already cataloged.
func NewServer(reg *registry.Registry, l *ledger.Ledger, log *zap.SugaredLogger) *Server {
	s := &Server{
		reg:    reg,
		ledger: l,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.setupRoutes()

	for i, e := range reg.Markets() {
		s.watchMarket(i, e.Market)
	}
	return s
}

// watchMarket streams a market's fills to the "fills:{index}" channel.
func (s *Server) watchMarket(index int, m *market.Market) {
	channel := fmt.Sprintf("fills:%d", index)
	m.SetFillObserver(func(f market.Fill) {
		s.hub.Broadcast(channel, fillInfo(index, f))
	})
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/markets", s.handleListMarkets).Methods("GET")
	api.HandleFunc("/markets/{index}", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/markets/{index}/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/markets/{index}/quotes", s.handleGetQuotes).Methods("GET")

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	api.HandleFunc("/accounts/{address}/balances/{asset}", s.handleGetBalance).Methods("GET")

	api.HandleFunc("/traders/{address}/metadata", s.handleGetMetadata).Methods("GET")
	api.HandleFunc("/traders/{address}/metadata", s.handleUpdateMetadata).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.log.Infow("api_listening", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnw("response_encode_failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func marketInfo(index int, e *registry.Entry) MarketInfo {
	m := e.Market
	return MarketInfo{
		Index:     index,
		Address:   e.Address.Hex(),
		Creator:   e.Creator.Hex(),
		Token:     e.Token.Hex(),
		BaseAsset: e.BaseAsset.Hex(),
		MinOrder:  m.MinOrder().String(),
		RoundTick: m.RoundTick().String(),
		FeeBps:    m.FeeBps(),
		Volume:    m.Volume().String(),
		TokenFees: m.TokenFees().String(),
		BaseFees:  m.BaseFees().String(),
	}
}

func quoteInfo(q market.Quote) QuoteInfo {
	return QuoteInfo{Amount: q.Amount.String(), Price: q.Price.String()}
}

func priceLevels(levels []book.Level) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, lv := range levels {
		out[i] = PriceLevel{Price: lv.Price.String(), Amount: lv.Amount.String()}
	}
	return out
}

func fillInfo(index int, f market.Fill) FillInfo {
	return FillInfo{
		Market:      index,
		Maker:       f.Maker.Hex(),
		Taker:       f.Taker.Hex(),
		TakerSide:   f.TakerSide.String(),
		Price:       f.Price.String(),
		TokenAmount: f.TokenAmount.String(),
		BaseAmount:  f.BaseAmount.String(),
		TokenFee:    f.TokenFee.String(),
		BaseFee:     f.BaseFee.String(),
	}
}

func (s *Server) marketFromVars(r *http.Request) (int, *registry.Entry, error) {
	var index int
	if _, err := fmt.Sscanf(mux.Vars(r)["index"], "%d", &index); err != nil {
		return 0, nil, fmt.Errorf("bad market index")
	}
	e, err := s.reg.Market(index)
	if err != nil {
		return 0, nil, err
	}
	return index, e, nil
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	entries := s.reg.Markets()
	out := make([]MarketInfo, len(entries))
	for i, e := range entries {
		out[i] = marketInfo(i, e)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	index, e, err := s.marketFromVars(r)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, marketInfo(index, e))
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	index, e, err := s.marketFromVars(r)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BookSnapshot{
		Market:    index,
		Bids:      priceLevels(e.Market.BidLevels()),
		Asks:      priceLevels(e.Market.AskLevels()),
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	_, e, err := s.marketFromVars(r)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	m := e.Market
	s.writeJSON(w, http.StatusOK, MarketQuotes{
		HighestBid: quoteInfo(m.HighestBid()),
		LowestBid:  quoteInfo(m.LowestBid()),
		LowestAsk:  quoteInfo(m.LowestAsk()),
		HighestAsk: quoteInfo(m.HighestAsk()),
	})
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("bad decimal amount %q", s)
	}
	return v, nil
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	e, err := s.reg.Market(req.Market)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if !common.IsHexAddress(req.Trader) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad trader address %q", req.Trader))
		return
	}
	trader := common.HexToAddress(req.Trader)

	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var result *market.Result
	switch req.Side {
	case "buy":
		result, err = e.Market.LimitOrderBuy(trader, amount, price)
	case "sell":
		result, err = e.Market.LimitOrderSell(trader, amount, price)
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("side must be buy or sell"))
		return
	}
	if err != nil {
		s.writeError(w, orderErrorStatus(err), err)
		return
	}

	resp := OrderResponse{
		Filled:          result.Filled.String(),
		RestingSequence: result.RestingSequence,
	}
	for _, f := range result.Fills {
		resp.Fills = append(resp.Fills, fillInfo(req.Market, f))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// orderErrorStatus maps the engine's error taxonomy onto HTTP statuses.
func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidOrderSize), errors.Is(err, core.ErrInvalidPriceGranularity):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSettlementFailed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	e, err := s.reg.Market(req.Market)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if !common.IsHexAddress(req.Trader) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad trader address %q", req.Trader))
		return
	}
	if err := e.Market.Cancel(common.HexToAddress(req.Trader), req.Sequence); err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !common.IsHexAddress(vars["address"]) || !common.IsHexAddress(vars["asset"]) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad address"))
		return
	}
	holder := common.HexToAddress(vars["address"])
	asset := common.HexToAddress(vars["asset"])
	s.writeJSON(w, http.StatusOK, BalanceInfo{
		Asset:   asset.Hex(),
		Holder:  holder.Hex(),
		Balance: s.ledger.BalanceOf(asset, holder).String(),
	})
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addr) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad address"))
		return
	}
	s.writeJSON(w, http.StatusOK, MetadataUpdate{
		Handle: s.reg.Metadata(common.HexToAddress(addr)),
	})
}

func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addr) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad address"))
		return
	}
	var req MetadataUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	s.reg.UpdateMetadata(common.HexToAddress(addr), req.Handle)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
