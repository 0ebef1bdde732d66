// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package btc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"frostswap.org/frostswap/client/asset"
	"frostswap.org/frostswap/fswap"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const tTxID = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func tEsploraServer(t *testing.T, rejectBroadcast bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/blocks/tip/height":
			fmt.Fprint(w, "100")
		case strings.HasSuffix(r.URL.Path, "/utxo"):
			fmt.Fprintf(w, `[
				{"txid":"%s","vout":0,"value":100000,"status":{"confirmed":true,"block_height":91}},
				{"txid":"%s","vout":1,"value":700,"status":{"confirmed":true,"block_height":91}},
				{"txid":"%s","vout":2,"value":50000,"status":{"confirmed":false}}
			]`, tTxID, tTxID, tTxID)
		case strings.HasSuffix(r.URL.Path, "/status"):
			fmt.Fprint(w, `{"confirmed":true,"block_height":95}`)
		case r.URL.Path == "/tx" && r.Method == http.MethodPost:
			if rejectBroadcast {
				http.Error(w, "sendrawtransaction RPC error: missing inputs", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, tTxID)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestEsploraListSpendable(t *testing.T) {
	srv := tEsploraServer(t, false)
	defer srv.Close()
	ec := NewEsploraClient(srv.URL, fswap.Disabled)

	frags, err := ec.ListSpendable(context.Background(), "bcrt1pexampletaproot", false)
	if err != nil {
		t.Fatalf("ListSpendable: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 confirmed fragments, got %d", len(frags))
	}
	for _, f := range frags {
		if f.Confs != 10 {
			t.Fatalf("confs = %d, want 10", f.Confs)
		}
		if f.Class != asset.ScriptP2TR {
			t.Fatal("taproot address should yield taproot fragments")
		}
	}
	// The 700-sat taproot fragment is a token carrier.
	var carriers int
	for _, f := range frags {
		if f.Tags.Tagged() {
			carriers++
			if f.Value != 700 {
				t.Fatalf("wrong fragment tagged: %d", f.Value)
			}
		}
	}
	if carriers != 1 {
		t.Fatalf("expected 1 tagged carrier, got %d", carriers)
	}

	// Unconfirmed included on request.
	frags, err = ec.ListSpendable(context.Background(), "bcrt1qsegwit", true)
	if err != nil {
		t.Fatalf("ListSpendable: %v", err)
	}
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments with unconfirmed, got %d", len(frags))
	}
	if frags[0].Class != asset.ScriptP2WPKH || frags[0].Tags.Tagged() {
		t.Fatal("segwit address fragments should be untagged P2WPKH")
	}
}

func TestEsploraTxStatus(t *testing.T) {
	srv := tEsploraServer(t, false)
	defer srv.Close()
	ec := NewEsploraClient(srv.URL, fswap.Disabled)

	txHash, _ := chainhash.NewHashFromStr(tTxID)
	status, err := ec.TxStatus(context.Background(), txHash)
	if err != nil {
		t.Fatalf("TxStatus: %v", err)
	}
	if !status.Confirmed || status.Height != 95 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestEsploraBroadcast(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	prevHash, _ := chainhash.NewHashFromStr(tTxID)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(prevHash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(5000, []byte{0x51}))

	srv := tEsploraServer(t, false)
	defer srv.Close()
	ec := NewEsploraClient(srv.URL, fswap.Disabled)
	txHash, err := ec.Broadcast(context.Background(), tx)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	want := tx.TxHash()
	if *txHash != want {
		t.Fatalf("hash mismatch: %s != %s", txHash, want)
	}

	rejSrv := tEsploraServer(t, true)
	defer rejSrv.Close()
	ec = NewEsploraClient(rejSrv.URL, fswap.Disabled)
	_, err = ec.Broadcast(context.Background(), tx)
	if !errors.Is(err, asset.ErrBroadcastRejected) {
		t.Fatalf("expected ErrBroadcastRejected, got %v", err)
	}
}
