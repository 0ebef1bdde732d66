// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"frostswap.org/frostswap/client/core"
	"frostswap.org/frostswap/fswap"
	"frostswap.org/frostswap/fswap/netq"

	"github.com/btcsuite/btcd/wire"
)

// poolClient fetches pool descriptors from the liquidity data API.
type poolClient struct {
	baseURL string
}

func newPoolClient(baseURL string) *poolClient {
	return &poolClient{baseURL: strings.TrimRight(baseURL, "/")}
}

type poolResult struct {
	ID          string `json:"id"`
	AssetA      string `json:"asset_a"`
	AssetB      string `json:"asset_b"`
	ReserveA    uint64 `json:"reserve_a"`
	ReserveB    uint64 `json:"reserve_b"`
	FeePerMille uint64 `json:"fee_per_mille"`
}

// Pools implements core.PoolSource.
func (c *poolClient) Pools(ctx context.Context, id fswap.AssetID) ([]*core.PoolDescriptor, error) {
	var raw []*poolResult
	uri := fmt.Sprintf("%s/pools?asset=%s", c.baseURL, url.QueryEscape(id.String()))
	if err := netq.Get(ctx, uri, &raw); err != nil {
		return nil, fmt.Errorf("error fetching pools for %s: %w", id, err)
	}
	pools := make([]*core.PoolDescriptor, 0, len(raw))
	for _, r := range raw {
		assetA, err := fswap.ParseAssetID(r.AssetA)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", r.ID, err)
		}
		assetB, err := fswap.ParseAssetID(r.AssetB)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", r.ID, err)
		}
		pools = append(pools, &core.PoolDescriptor{
			ID:          r.ID,
			AssetA:      assetA,
			AssetB:      assetB,
			ReserveA:    r.ReserveA,
			ReserveB:    r.ReserveB,
			FeePerMille: r.FeePerMille,
		})
	}
	return pools, nil
}

// feeClient fetches the protocol's wrap/unwrap fee schedule.
type feeClient struct {
	baseURL string
}

func newFeeClient(baseURL string) *feeClient {
	return &feeClient{baseURL: strings.TrimRight(baseURL, "/")}
}

// WrapFees implements core.FeeScheduleSource.
func (c *feeClient) WrapFees(ctx context.Context) (wrap, unwrap uint64, err error) {
	var res struct {
		Wrap   uint64 `json:"wrap"`
		Unwrap uint64 `json:"unwrap"`
	}
	if err := netq.Get(ctx, c.baseURL+"/fees", &res); err != nil {
		return 0, 0, fmt.Errorf("error fetching fee schedule: %w", err)
	}
	return res.Wrap, res.Unwrap, nil
}

// httpSigner hands unsigned drafts to an external signing service. Key
// custody never enters this process.
type httpSigner struct {
	url string
}

// Sign implements asset.Signer.
func (s *httpSigner) Sign(ctx context.Context, draft *wire.MsgTx) (*wire.MsgTx, error) {
	b := new(bytes.Buffer)
	if err := draft.Serialize(b); err != nil {
		return nil, fmt.Errorf("error serializing draft: %w", err)
	}
	var res struct {
		Hex string `json:"hex"`
	}
	body := []byte(fmt.Sprintf(`{"hex":%q}`, hex.EncodeToString(b.Bytes())))
	err := netq.Post(ctx, s.url, &res, body, netq.WithRequestHeader("Content-Type", "application/json"))
	if err != nil {
		return nil, fmt.Errorf("signing service error: %w", err)
	}
	rawTx, err := hex.DecodeString(res.Hex)
	if err != nil {
		return nil, fmt.Errorf("error decoding signed tx hex: %w", err)
	}
	signed := wire.NewMsgTx(wire.TxVersion)
	if err := signed.Deserialize(bytes.NewReader(rawTx)); err != nil {
		return nil, fmt.Errorf("error deserializing signed tx: %w", err)
	}
	return signed, nil
}
