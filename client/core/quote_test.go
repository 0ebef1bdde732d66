// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"context"
	"errors"
	"testing"

	"frostswap.org/frostswap/fswap"
)

var (
	tNative = fswap.AssetID{Native: true}
	tPeg    = fswap.AssetID{Block: 2, Tx: 1}
	tStable = fswap.AssetID{Block: 2, Tx: 56}
	tTokenX = fswap.AssetID{Block: 2, Tx: 100}
	tTokenY = fswap.AssetID{Block: 2, Tx: 200}
)

func tUnitInfo(unit string, factor uint64) fswap.UnitInfo {
	return fswap.UnitInfo{
		AtomicUnit:   "atoms",
		Conventional: fswap.Denomination{Unit: unit, ConversionFactor: factor},
	}
}

func tRegistry(t *testing.T) *fswap.AssetRegistry {
	t.Helper()
	reg, err := fswap.NewAssetRegistry([]*fswap.AssetMetadata{
		{ID: tNative, Symbol: "BTC", Role: fswap.RoleNative, UnitInfo: tUnitInfo("BTC", 1e8)},
		{ID: tPeg, Symbol: "frBTC", Role: fswap.RolePeggedSynthetic, UnitInfo: tUnitInfo("frBTC", 1e8)},
		{ID: tStable, Symbol: "BUSD", Role: fswap.RoleStableReference, UnitInfo: tUnitInfo("BUSD", 1e6)},
		{ID: tTokenX, Symbol: "XTK", UnitInfo: tUnitInfo("XTK", 1e8)},
		{ID: tTokenY, Symbol: "YTK", UnitInfo: tUnitInfo("YTK", 1e8)},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

type tPoolSource struct {
	pools []*PoolDescriptor
}

func (s *tPoolSource) Pools(_ context.Context, id fswap.AssetID) ([]*PoolDescriptor, error) {
	var out []*PoolDescriptor
	for _, p := range s.pools {
		if _, in := p.other(id); in {
			out = append(out, p)
		}
	}
	return out, nil
}

type tFeeSource struct {
	wrap, unwrap uint64
}

func (s *tFeeSource) WrapFees(context.Context) (uint64, uint64, error) {
	return s.wrap, s.unwrap, nil
}

func tEngine(t *testing.T, pools []*PoolDescriptor, fees *tFeeSource) *QuoteEngine {
	t.Helper()
	return NewQuoteEngine(tRegistry(t), &tPoolSource{pools: pools}, fees, fswap.Disabled)
}

// Wrapping 0.5 BTC at a 3/1000 wrap fee buys 0.4985 peg through a single
// synthetic hop with no pool involved.
func TestQuoteDirectWrap(t *testing.T) {
	eng := tEngine(t, nil, &tFeeSource{wrap: 3, unwrap: 3})
	q, err := eng.Quote(context.Background(), tNative, tPeg, 50_000_000, SellDirection, 100)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.RawBuy != 49_850_000 {
		t.Fatalf("RawBuy = %d, want 49850000", q.RawBuy)
	}
	if len(q.Legs) != 1 || q.Legs[0].Kind != StepWrap {
		t.Fatalf("expected a single wrap leg, got %+v", q.Legs)
	}
	if len(q.Route) != 2 || q.Route[0] != tNative || q.Route[1] != tPeg {
		t.Fatalf("bad route %v", q.Route)
	}
	if q.VenueID != "" {
		t.Fatalf("pure wrap should have no venue, got %q", q.VenueID)
	}
	if q.DisplayBuy != "0.49850000" {
		t.Fatalf("DisplayBuy = %q", q.DisplayBuy)
	}
	if q.Rate != "0.997" {
		t.Fatalf("Rate = %q, want 0.997", q.Rate)
	}
	wantMin := uint64(49_850_000) * 9900 / 10000
	if q.MinReceived != wantMin {
		t.Fatalf("MinReceived = %d, want %d", q.MinReceived, wantMin)
	}
}

// Selling a token for the native coin with only a token/peg pool routes
// token -> peg -> native: one pool leg plus the implicit unwrap on the
// final hop.
func TestQuoteUnwrapRoute(t *testing.T) {
	pool := &PoolDescriptor{
		ID:          "pool-x-peg",
		AssetA:      tTokenX,
		AssetB:      tPeg,
		ReserveA:    1_000_000_000,
		ReserveB:    100_000_000,
		FeePerMille: 5,
	}
	eng := tEngine(t, []*PoolDescriptor{pool}, &tFeeSource{wrap: 3, unwrap: 3})

	q, err := eng.Quote(context.Background(), tTokenX, tNative, 10_000_000, SellDirection, 100)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	wantRoute := []fswap.AssetID{tTokenX, tPeg, tNative}
	if len(q.Route) != 3 {
		t.Fatalf("route length %d, want 3", len(q.Route))
	}
	for i, id := range wantRoute {
		if q.Route[i] != id {
			t.Fatalf("route[%d] = %s, want %s", i, q.Route[i], id)
		}
	}
	if len(q.Legs) != 2 || q.Legs[0].Kind != StepTradeLeg || q.Legs[1].Kind != StepUnwrap {
		t.Fatalf("bad legs %+v", q.Legs)
	}
	// Constant-product output at 5 per mille pool fee, then the 3 per
	// mille unwrap applied to the pool output.
	if q.Legs[0].Out != 985_197 {
		t.Fatalf("pool leg out = %d, want 985197", q.Legs[0].Out)
	}
	if q.RawBuy != 982_241 {
		t.Fatalf("RawBuy = %d, want 982241", q.RawBuy)
	}
	if q.MinReceived != 972_418 {
		t.Fatalf("MinReceived = %d, want 972418", q.MinReceived)
	}
	if q.VenueID != "pool-x-peg" {
		t.Fatalf("VenueID = %q", q.VenueID)
	}
}

// With token/peg and peg/token pools on both sides as well as stable-side
// pools, the bridge must be the peg.
func TestQuoteBridgePrefersPeg(t *testing.T) {
	pools := []*PoolDescriptor{
		{ID: "x-peg", AssetA: tTokenX, AssetB: tPeg, ReserveA: 1e9, ReserveB: 1e8, FeePerMille: 5},
		{ID: "peg-y", AssetA: tPeg, AssetB: tTokenY, ReserveA: 1e8, ReserveB: 2e9, FeePerMille: 5},
		{ID: "x-stable", AssetA: tTokenX, AssetB: tStable, ReserveA: 1e9, ReserveB: 5e8, FeePerMille: 5},
		{ID: "stable-y", AssetA: tStable, AssetB: tTokenY, ReserveA: 5e8, ReserveB: 2e9, FeePerMille: 5},
	}
	eng := tEngine(t, pools, &tFeeSource{wrap: 3, unwrap: 3})

	q, err := eng.Quote(context.Background(), tTokenX, tTokenY, 1_000_000, SellDirection, 50)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(q.Route) != 3 || q.Route[1] != tPeg {
		t.Fatalf("bridge = %v, want peg", q.Route)
	}
	if len(q.Legs) != 2 || q.Legs[0].PoolID != "x-peg" || q.Legs[1].PoolID != "peg-y" {
		t.Fatalf("bad legs %+v", q.Legs)
	}

	// Remove the peg-side pools and the stable bridge takes over.
	eng = tEngine(t, pools[2:], &tFeeSource{wrap: 3, unwrap: 3})
	q, err = eng.Quote(context.Background(), tTokenX, tTokenY, 1_000_000, SellDirection, 50)
	if err != nil {
		t.Fatalf("Quote via stable: %v", err)
	}
	if len(q.Route) != 3 || q.Route[1] != tStable {
		t.Fatalf("bridge = %v, want stable", q.Route)
	}
}

// A direct pool always beats a bridged route.
func TestQuoteDirectPoolPreferred(t *testing.T) {
	pools := []*PoolDescriptor{
		{ID: "x-y", AssetA: tTokenX, AssetB: tTokenY, ReserveA: 1e9, ReserveB: 2e9, FeePerMille: 5},
		{ID: "x-peg", AssetA: tTokenX, AssetB: tPeg, ReserveA: 1e9, ReserveB: 1e8, FeePerMille: 5},
		{ID: "peg-y", AssetA: tPeg, AssetB: tTokenY, ReserveA: 1e8, ReserveB: 2e9, FeePerMille: 5},
	}
	eng := tEngine(t, pools, &tFeeSource{wrap: 3, unwrap: 3})
	q, err := eng.Quote(context.Background(), tTokenX, tTokenY, 1_000_000, SellDirection, 50)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(q.Legs) != 1 || q.Legs[0].PoolID != "x-y" {
		t.Fatalf("expected direct pool, got %+v", q.Legs)
	}
}

func TestQuoteBuyDirection(t *testing.T) {
	pool := &PoolDescriptor{
		ID:          "peg-x",
		AssetA:      tPeg,
		AssetB:      tTokenX,
		ReserveA:    100_000_000,
		ReserveB:    1_000_000_000,
		FeePerMille: 5,
	}
	eng := tEngine(t, []*PoolDescriptor{pool}, &tFeeSource{wrap: 3, unwrap: 3})

	q, err := eng.Quote(context.Background(), tPeg, tTokenX, 1_000_000, BuyDirection, 100)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// Smallest input yielding at least the requested output, ceiling
	// division throughout.
	if q.RawSell != 100_604 {
		t.Fatalf("RawSell = %d, want 100604", q.RawSell)
	}
	if q.MaxSent != 101_611 {
		t.Fatalf("MaxSent = %d, want 101611", q.MaxSent)
	}
	if q.MinReceived != 0 {
		t.Fatalf("buy-direction quote should not carry a min-received bound")
	}

	// The quoted input must actually satisfy the requested output when
	// pushed back through the pool.
	out, err := ammOut(q.RawSell, pool.ReserveA, pool.ReserveB, pool.FeePerMille)
	if err != nil {
		t.Fatalf("ammOut: %v", err)
	}
	if out < q.RawBuy {
		t.Fatalf("quoted input yields %d, below requested %d", out, q.RawBuy)
	}
}

// Increasing tolerance loosens the bounds: min-received never increases in
// sell direction, max-sent never decreases in buy direction.
func TestQuoteSlippageMonotonic(t *testing.T) {
	pool := &PoolDescriptor{
		ID: "peg-x", AssetA: tPeg, AssetB: tTokenX,
		ReserveA: 1e8, ReserveB: 1e9, FeePerMille: 5,
	}
	eng := tEngine(t, []*PoolDescriptor{pool}, &tFeeSource{wrap: 3, unwrap: 3})

	var lastMin, lastMax uint64
	for i, bps := range []uint64{0, 10, 50, 100, 500, 2500} {
		sellQ, err := eng.Quote(context.Background(), tPeg, tTokenX, 1_000_000, SellDirection, bps)
		if err != nil {
			t.Fatalf("sell quote at %d bps: %v", bps, err)
		}
		buyQ, err := eng.Quote(context.Background(), tPeg, tTokenX, 1_000_000, BuyDirection, bps)
		if err != nil {
			t.Fatalf("buy quote at %d bps: %v", bps, err)
		}
		if sellQ.MinReceived > sellQ.RawBuy {
			t.Fatalf("min-received %d above quoted buy %d", sellQ.MinReceived, sellQ.RawBuy)
		}
		if buyQ.MaxSent < buyQ.RawSell {
			t.Fatalf("max-sent %d below quoted sell %d", buyQ.MaxSent, buyQ.RawSell)
		}
		if i > 0 {
			if sellQ.MinReceived > lastMin {
				t.Fatalf("min-received rose from %d to %d at %d bps", lastMin, sellQ.MinReceived, bps)
			}
			if buyQ.MaxSent < lastMax {
				t.Fatalf("max-sent fell from %d to %d at %d bps", lastMax, buyQ.MaxSent, bps)
			}
		}
		lastMin, lastMax = sellQ.MinReceived, buyQ.MaxSent
	}
}

func TestQuoteNoRoute(t *testing.T) {
	pool := &PoolDescriptor{
		ID: "x-peg", AssetA: tTokenX, AssetB: tPeg,
		ReserveA: 1e9, ReserveB: 1e8, FeePerMille: 5,
	}
	eng := tEngine(t, []*PoolDescriptor{pool}, &tFeeSource{wrap: 3, unwrap: 3})
	_, err := eng.Quote(context.Background(), tTokenX, tTokenY, 1_000_000, SellDirection, 100)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestQuoteInsufficientLiquidity(t *testing.T) {
	pool := &PoolDescriptor{
		ID: "peg-x", AssetA: tPeg, AssetB: tTokenX,
		ReserveA: 1e8, ReserveB: 1e6, FeePerMille: 5,
	}
	eng := tEngine(t, []*PoolDescriptor{pool}, &tFeeSource{wrap: 3, unwrap: 3})
	_, err := eng.Quote(context.Background(), tPeg, tTokenX, 2_000_000, BuyDirection, 100)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

// The fee schedule is read fresh for every quote, never cached.
func TestQuoteFreshWrapFee(t *testing.T) {
	fees := &tFeeSource{wrap: 3, unwrap: 3}
	eng := tEngine(t, nil, fees)

	q1, err := eng.Quote(context.Background(), tNative, tPeg, 1_000_000, SellDirection, 0)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	fees.wrap = 10
	q2, err := eng.Quote(context.Background(), tNative, tPeg, 1_000_000, SellDirection, 0)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q1.RawBuy != 997_000 || q2.RawBuy != 990_000 {
		t.Fatalf("wrap fee not read fresh: %d then %d", q1.RawBuy, q2.RawBuy)
	}
}

// Pool descriptors come from an external provider, so a fee at or above
// the whole per-mille denominator must not reach the fill math. A bad pool
// is skipped in favor of a sane one, and with no sane pool the pair has no
// route.
func TestQuoteIgnoresNonsensePoolFee(t *testing.T) {
	bad := &PoolDescriptor{
		ID: "peg-x-bad", AssetA: tPeg, AssetB: tTokenX,
		ReserveA: 1e12, ReserveB: 1e13, FeePerMille: 1000,
	}
	good := &PoolDescriptor{
		ID: "peg-x", AssetA: tPeg, AssetB: tTokenX,
		ReserveA: 1e8, ReserveB: 1e9, FeePerMille: 5,
	}
	eng := tEngine(t, []*PoolDescriptor{bad, good}, &tFeeSource{wrap: 3, unwrap: 3})

	for _, dir := range []Direction{SellDirection, BuyDirection} {
		q, err := eng.Quote(context.Background(), tPeg, tTokenX, 1_000_000, dir, 100)
		if err != nil {
			t.Fatalf("Quote dir %d: %v", dir, err)
		}
		if q.VenueID != "peg-x" {
			t.Fatalf("dir %d picked pool %q, want peg-x", dir, q.VenueID)
		}
	}

	eng = tEngine(t, []*PoolDescriptor{bad}, &tFeeSource{wrap: 3, unwrap: 3})
	_, err := eng.Quote(context.Background(), tPeg, tTokenX, 1_000_000, BuyDirection, 100)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute with only a nonsense-fee pool, got %v", err)
	}
}

func TestQuoteBadInputs(t *testing.T) {
	eng := tEngine(t, nil, &tFeeSource{wrap: 3, unwrap: 3})
	ctx := context.Background()
	if _, err := eng.Quote(ctx, tNative, tPeg, 0, SellDirection, 100); err == nil {
		t.Fatal("no error for zero amount")
	}
	if _, err := eng.Quote(ctx, tPeg, tPeg, 1000, SellDirection, 100); err == nil {
		t.Fatal("no error for identical assets")
	}
	if _, err := eng.Quote(ctx, tNative, tPeg, 1000, SellDirection, 10_000); err == nil {
		t.Fatal("no error for out-of-range slippage")
	}
}
