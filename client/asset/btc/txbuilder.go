// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package btc

import (
	"fmt"

	"frostswap.org/frostswap/client/asset"
	fswapbtc "frostswap.org/frostswap/fswap/networks/btc"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Payment is one intended non-change output of a draft.
type Payment struct {
	Address string
	Value   uint64
}

// TxDraft is an unsigned transaction together with the funding decisions
// behind it, ready for an external signer.
type TxDraft struct {
	Tx        *wire.MsgTx
	Selection *SelectionResult
	Plan      *FeePlan
}

// NewDraft builds an unsigned transaction paying each of the provided
// payments in order, optionally followed by a null-data output carrying
// nullData (token-layer calldata) and a change output when economical.
// Funding fragments are selected from the provided pre-filtered set. The
// change output pays to changeAddr.
func NewDraft(fragments []*asset.Fragment, payments []*Payment, nullData []byte,
	changeAddr string, feeRatePerVB uint64, maxFragments int,
	chainParams *chaincfg.Params) (*TxDraft, error) {

	if len(payments) == 0 && len(nullData) == 0 {
		return nil, fmt.Errorf("draft with no outputs")
	}

	var target, outputsSize uint64
	payScripts := make([][]byte, 0, len(payments))
	for _, pay := range payments {
		script, err := payToAddrScript(pay.Address, chainParams)
		if err != nil {
			return nil, err
		}
		payScripts = append(payScripts, script)
		target += pay.Value
		outputsSize += fswapbtc.TxOutOverhead + uint64(len(script))
	}

	var nullDataScript []byte
	numOuts := len(payments)
	if len(nullData) > 0 {
		var err error
		nullDataScript, err = txscript.NullDataScript(nullData)
		if err != nil {
			return nil, fmt.Errorf("error building null-data script: %w", err)
		}
		outputsSize += fswapbtc.OpReturnOutputSize(uint64(len(nullData)))
		numOuts++
	}

	changeScript, err := payToAddrScript(changeAddr, chainParams)
	if err != nil {
		return nil, fmt.Errorf("bad change address: %w", err)
	}

	sel, err := selectForShape(fragments, target, feeRatePerVB, maxFragments, outputsSize)
	if err != nil {
		return nil, err
	}
	plan, err := computeFee(sel.InputsSize, outputsSize, numOuts, target, sel.Sum, feeRatePerVB)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, f := range sel.Fragments {
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&f.TxHash, f.Vout), nil, nil))
	}
	for i, pay := range payments {
		tx.AddTxOut(wire.NewTxOut(int64(pay.Value), payScripts[i]))
	}
	if nullDataScript != nil {
		tx.AddTxOut(wire.NewTxOut(0, nullDataScript))
	}
	if plan.Change > 0 {
		tx.AddTxOut(wire.NewTxOut(int64(plan.Change), changeScript))
	}

	return &TxDraft{Tx: tx, Selection: sel, Plan: plan}, nil
}

func payToAddrScript(addr string, chainParams *chaincfg.Params) ([]byte, error) {
	a, err := btcutil.DecodeAddress(addr, chainParams)
	if err != nil {
		return nil, fmt.Errorf("error decoding address %s: %w", addr, err)
	}
	if !a.IsForNet(chainParams) {
		return nil, fmt.Errorf("address %s is not for network %s", addr, chainParams.Name)
	}
	script, err := txscript.PayToAddrScript(a)
	if err != nil {
		return nil, fmt.Errorf("error creating pkScript for %s: %w", addr, err)
	}
	return script, nil
}
