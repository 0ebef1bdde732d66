// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package btc

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"frostswap.org/frostswap/client/asset"
	"frostswap.org/frostswap/fswap"
	"frostswap.org/frostswap/fswap/netq"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// defaultCarrierCutoff is the value at or below which a taproot fragment is
// assumed to be a token carrier. Token-layer state rides on dust-scale
// outputs at the token address.
const defaultCarrierCutoff = 1000

// EsploraClient accesses an esplora-compatible block explorer API. It
// implements asset.SnapshotSource, asset.TxStatusSource and
// asset.Broadcaster.
type EsploraClient struct {
	baseURL string
	log     fswap.Logger
	// carrierCutoff tags small taproot fragments as protocol-payload
	// carriers, excluding them from plain-value selection.
	carrierCutoff uint64
}

var _ asset.SnapshotSource = (*EsploraClient)(nil)
var _ asset.TxStatusSource = (*EsploraClient)(nil)
var _ asset.Broadcaster = (*EsploraClient)(nil)

// NewEsploraClient creates an EsploraClient for the API rooted at baseURL.
func NewEsploraClient(baseURL string, log fswap.Logger) *EsploraClient {
	return &EsploraClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		log:           log,
		carrierCutoff: defaultCarrierCutoff,
	}
}

type esploraTxStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
}

type esploraUTXO struct {
	TxID   string          `json:"txid"`
	Vout   uint32          `json:"vout"`
	Value  uint64          `json:"value"`
	Status esploraTxStatus `json:"status"`
}

// TipHeight returns the current best block height.
func (ec *EsploraClient) TipHeight(ctx context.Context) (int64, error) {
	var tip int64
	if err := netq.Get(ctx, ec.baseURL+"/blocks/tip/height", &tip); err != nil {
		return 0, fmt.Errorf("error fetching tip height: %w", err)
	}
	return tip, nil
}

// ListSpendable fetches the current fragment snapshot for the address. Only
// confirmed fragments are returned unless includeUnconfirmed is set. Small
// taproot fragments are tagged as protocol-payload carriers.
func (ec *EsploraClient) ListSpendable(ctx context.Context, addr string, includeUnconfirmed bool) ([]*asset.Fragment, error) {
	tip, err := ec.TipHeight(ctx)
	if err != nil {
		return nil, err
	}
	var utxos []*esploraUTXO
	if err := netq.Get(ctx, ec.baseURL+"/address/"+addr+"/utxo", &utxos); err != nil {
		return nil, fmt.Errorf("error fetching utxos for %s: %w", addr, err)
	}

	class := asset.ScriptP2WPKH
	if isTaprootAddr(addr) {
		class = asset.ScriptP2TR
	}

	frags := make([]*asset.Fragment, 0, len(utxos))
	for _, u := range utxos {
		if !u.Status.Confirmed && !includeUnconfirmed {
			continue
		}
		txHash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("error decoding txid %s: %w", u.TxID, err)
		}
		var confs uint32
		if u.Status.Confirmed && tip >= u.Status.BlockHeight {
			confs = uint32(tip - u.Status.BlockHeight + 1)
		}
		var tags asset.FragmentTags
		if class == asset.ScriptP2TR && u.Value <= ec.carrierCutoff {
			tags |= asset.TagProtocolPayload
		}
		frags = append(frags, &asset.Fragment{
			TxHash: *txHash,
			Vout:   u.Vout,
			Value:  u.Value,
			Confs:  confs,
			Class:  class,
			Tags:   tags,
		})
	}
	ec.log.Tracef("%d spendable fragments at %s, tip %d", len(frags), addr, tip)
	return frags, nil
}

// TxStatus returns the confirmation state of the transaction.
func (ec *EsploraClient) TxStatus(ctx context.Context, txHash *chainhash.Hash) (*asset.TxStatus, error) {
	var status esploraTxStatus
	var code int
	err := netq.Get(ctx, ec.baseURL+"/tx/"+txHash.String()+"/status", &status,
		netq.WithStatusFunc(func(c int) { code = c }))
	if err != nil {
		if code == http.StatusNotFound {
			return nil, fswap.NewError(asset.ErrTxNotFound, txHash.String())
		}
		return nil, fmt.Errorf("error fetching status for %s: %w", txHash, err)
	}
	return &asset.TxStatus{Confirmed: status.Confirmed, Height: status.BlockHeight}, nil
}

// Broadcast submits the signed transaction. The returned hash is computed
// locally; esplora echoes the same txid on acceptance.
func (ec *EsploraClient) Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error) {
	b := new(bytes.Buffer)
	if err := tx.Serialize(b); err != nil {
		return nil, fmt.Errorf("error serializing tx: %w", err)
	}
	var code int
	err := netq.Post(ctx, ec.baseURL+"/tx", nil, []byte(hex.EncodeToString(b.Bytes())),
		netq.WithStatusFunc(func(c int) { code = c }))
	if err != nil {
		if code >= http.StatusBadRequest && code < http.StatusInternalServerError {
			return nil, fswap.NewError(asset.ErrBroadcastRejected, err.Error())
		}
		return nil, fmt.Errorf("broadcast error: %w", err)
	}
	txHash := tx.TxHash()
	ec.log.Debugf("broadcast tx %s", txHash)
	return &txHash, nil
}

func isTaprootAddr(addr string) bool {
	lower := strings.ToLower(addr)
	return strings.HasPrefix(lower, "bc1p") ||
		strings.HasPrefix(lower, "tb1p") ||
		strings.HasPrefix(lower, "bcrt1p")
}
