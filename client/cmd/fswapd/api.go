// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"frostswap.org/frostswap/client/core"
	"frostswap.org/frostswap/fswap"

	"github.com/go-chi/chi/v5"
)

// apiServer serves the daemon's JSON API: quotes, swap initiation, and swap
// status.
type apiServer struct {
	log  fswap.Logger
	core *core.Core
	addr string

	// lifeCtx is the serving context, set by run before the listener
	// accepts. Detached swap goroutines derive from it so shutdown cancels
	// in-flight confirmation polling.
	lifeCtx context.Context

	mtx sync.Mutex
	// finished keeps each wallet's last terminal plan so status remains
	// queryable after completion.
	finished map[string]*core.SwapPlan
}

func newAPIServer(c *core.Core, addr string, log fswap.Logger) *apiServer {
	return &apiServer{
		log:      log,
		core:     c,
		addr:     addr,
		finished: make(map[string]*core.SwapPlan),
	}
}

// run serves until the context is canceled.
func (s *apiServer) run(ctx context.Context) error {
	s.lifeCtx = ctx
	mux := chi.NewRouter()
	mux.Get("/api/quote", s.apiQuote)
	mux.Post("/api/swap", s.apiStartSwap)
	mux.Get("/api/swap/{wallet}", s.apiSwapStatus)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	s.log.Infof("JSON API listening on %s", s.addr)
	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

func (s *apiServer) writeJSON(w http.ResponseWriter, thing any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(thing); err != nil {
		s.log.Errorf("JSON encode error: %v", err)
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(&errorResponse{Msg: err.Error()})
}

type legResult struct {
	Kind string `json:"kind"`
	From string `json:"from"`
	To   string `json:"to"`
	In   uint64 `json:"in"`
	Out  uint64 `json:"out"`
	Pool string `json:"pool,omitempty"`
}

type quoteResponse struct {
	OK          bool        `json:"ok"`
	Sell        string      `json:"sell"`
	Buy         string      `json:"buy"`
	RawSell     uint64      `json:"rawSell"`
	RawBuy      uint64      `json:"rawBuy"`
	DisplaySell string      `json:"displaySell"`
	DisplayBuy  string      `json:"displayBuy"`
	Rate        string      `json:"rate"`
	MinReceived uint64      `json:"minReceived,omitempty"`
	MaxSent     uint64      `json:"maxSent,omitempty"`
	Route       []string    `json:"route"`
	Legs        []legResult `json:"legs"`
	Venue       string      `json:"venue,omitempty"`
}

func quoteToResponse(q *core.Quote) *quoteResponse {
	route := make([]string, len(q.Route))
	for i, id := range q.Route {
		route[i] = id.String()
	}
	legs := make([]legResult, len(q.Legs))
	for i, leg := range q.Legs {
		legs[i] = legResult{
			Kind: leg.Kind.String(),
			From: leg.From.String(),
			To:   leg.To.String(),
			In:   leg.In,
			Out:  leg.Out,
			Pool: leg.PoolID,
		}
	}
	return &quoteResponse{
		OK:          true,
		Sell:        q.Sell.String(),
		Buy:         q.Buy.String(),
		RawSell:     q.RawSell,
		RawBuy:      q.RawBuy,
		DisplaySell: q.DisplaySell,
		DisplayBuy:  q.DisplayBuy,
		Rate:        q.Rate,
		MinReceived: q.MinReceived,
		MaxSent:     q.MaxSent,
		Route:       route,
		Legs:        legs,
		Venue:       q.VenueID,
	}
}

// parseQuoteQuery reads the quote parameters common to the quote and swap
// endpoints.
func parseQuoteParams(sell, buy, amountStr, side, slippageStr string,
	reg func(fswap.AssetID) fswap.UnitInfo) (sellID, buyID fswap.AssetID,
	amount uint64, dir core.Direction, slippageBPS uint64, err error) {

	sellID, err = fswap.ParseAssetID(sell)
	if err != nil {
		return
	}
	buyID, err = fswap.ParseAssetID(buy)
	if err != nil {
		return
	}
	dir = core.SellDirection
	amtAsset := sellID
	if side == "buy" {
		dir = core.BuyDirection
		amtAsset = buyID
	}
	amount, err = reg(amtAsset).ParseConventional(amountStr)
	if err != nil {
		return
	}
	slippageBPS = 100
	if slippageStr != "" {
		slippageBPS, err = strconv.ParseUint(slippageStr, 10, 16)
	}
	return
}

func (s *apiServer) apiQuote(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	sellID, buyID, amount, dir, slippageBPS, err := parseQuoteParams(
		qv.Get("sell"), qv.Get("buy"), qv.Get("amount"), qv.Get("side"),
		qv.Get("slippage"), s.core.UnitInfo)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	q, err := s.core.Quote(r.Context(), sellID, buyID, amount, dir, slippageBPS)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, core.ErrNoRoute) || errors.Is(err, core.ErrInsufficientLiquidity) {
			code = http.StatusUnprocessableEntity
		}
		s.writeError(w, code, err)
		return
	}
	s.writeJSON(w, quoteToResponse(q))
}

type swapRequest struct {
	Sell     string `json:"sell"`
	Buy      string `json:"buy"`
	Amount   string `json:"amount"`
	Side     string `json:"side"`
	Slippage string `json:"slippage"`

	Wallet struct {
		ID             string `json:"id"`
		FundingAddress string `json:"fundingAddress"`
		TokenAddress   string `json:"tokenAddress"`
		ChangeAddress  string `json:"changeAddress"`
	} `json:"wallet"`

	FeeRatePerVB   uint64 `json:"feeRate"`
	MaxFragments   int    `json:"maxFragments"`
	FeeOverride    bool   `json:"feeOverride"`
	AllowFusedWrap bool   `json:"allowFusedWrap"`
	LowLatency     bool   `json:"lowLatency"`
}

func (s *apiServer) apiStartSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sellID, buyID, amount, dir, slippageBPS, err := parseQuoteParams(
		req.Sell, req.Buy, req.Amount, req.Side, req.Slippage, s.core.UnitInfo)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	q, err := s.core.Quote(r.Context(), sellID, buyID, amount, dir, slippageBPS)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	cfg := core.DefaultTradeConfiguration()
	cfg.SlippageBPS = slippageBPS
	if req.FeeRatePerVB > 0 {
		cfg.FeeRatePerVB = req.FeeRatePerVB
	}
	if req.MaxFragments > 0 {
		cfg.MaxFragments = req.MaxFragments
	}
	cfg.FeeOverride = req.FeeOverride
	cfg.AllowFusedWrap = req.AllowFusedWrap
	if req.LowLatency {
		cfg.Latency = core.LowLatency
	}

	wallet := &core.WalletContext{
		ID:             req.Wallet.ID,
		FundingAddress: req.Wallet.FundingAddress,
		TokenAddress:   req.Wallet.TokenAddress,
		ChangeAddress:  req.Wallet.ChangeAddress,
	}
	if wallet.ID == "" || wallet.FundingAddress == "" || wallet.ChangeAddress == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("incomplete wallet context"))
		return
	}
	if _, active := s.core.ActivePlan(wallet.ID); active {
		s.writeError(w, http.StatusConflict, errors.New("swap already in progress"))
		return
	}

	// The swap outlives the request but not the server. Terminal plans are
	// retained for the status endpoint.
	go func() {
		plan, err := s.core.StartSwap(s.lifeCtx, wallet, q, cfg)
		if err != nil {
			s.log.Errorf("swap for wallet %s: %v", wallet.ID, err)
		}
		if plan != nil {
			s.mtx.Lock()
			s.finished[wallet.ID] = plan
			s.mtx.Unlock()
		}
	}()

	s.writeJSON(w, &struct {
		OK    bool           `json:"ok"`
		Quote *quoteResponse `json:"quote"`
	}{OK: true, Quote: quoteToResponse(q)})
}

type stepResultJSON struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	TxID   string `json:"txid,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type swapStatusResponse struct {
	OK      bool             `json:"ok"`
	State   string           `json:"state"`
	Step    int              `json:"step"`
	Steps   int              `json:"steps"`
	Results []stepResultJSON `json:"results"`
	Error   string           `json:"error,omitempty"`
}

func (s *apiServer) apiSwapStatus(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "wallet")
	plan, active := s.core.ActivePlan(walletID)
	if !active {
		s.mtx.Lock()
		plan = s.finished[walletID]
		s.mtx.Unlock()
	}
	if plan == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no plan for wallet"))
		return
	}

	state, step := plan.State()
	resp := &swapStatusResponse{
		OK:    true,
		State: state.String(),
		Step:  step,
		Steps: len(plan.Steps),
	}
	if err := plan.Err(); err != nil {
		resp.Error = err.Error()
	}
	for _, res := range plan.Results() {
		jr := stepResultJSON{
			Index:  res.Index,
			Kind:   res.Kind.String(),
			Status: res.Status.String(),
		}
		if res.TxID != nil {
			jr.TxID = res.TxID.String()
		}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, jr)
	}
	s.writeJSON(w, resp)
}
