// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package asset defines the shared coin data model and the contracts of the
// external chain services the swap core consumes: coin snapshots,
// transaction status, signing, and broadcast. The implementations are
// black boxes to the core.
package asset

import (
	"context"
	"strconv"

	"frostswap.org/frostswap/fswap"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	// ErrInsufficientBalance is returned when the spendable fragments
	// cannot cover a payment plus its fee, regardless of how many are
	// selected.
	ErrInsufficientBalance = fswap.ErrorKind("insufficient balance")
	// ErrFragmentCeiling is returned when the balance would have covered
	// the payment, but not within the allowed number of fragments. The
	// user can act on this by consolidating.
	ErrFragmentCeiling = fswap.ErrorKind("fragment ceiling exceeded")
	// ErrBroadcastRejected is returned when the network rejects a signed
	// transaction. It is distinct from build-time errors.
	ErrBroadcastRejected = fswap.ErrorKind("broadcast rejected by network")
	// ErrTxNotFound is returned by a TxStatusSource for an unknown
	// transaction.
	ErrTxNotFound = fswap.ErrorKind("transaction not found")
)

// FragmentTags flags value fragments that carry a non-fungible or
// protocol-attached payload. Tagged fragments are excluded from plain-value
// selection so the payload cannot be destroyed by an ordinary spend.
type FragmentTags uint8

const (
	// TagNonFungible marks a fragment carrying an inscription-like
	// artifact.
	TagNonFungible FragmentTags = 1 << iota
	// TagProtocolPayload marks a fragment carrying token-layer state.
	TagProtocolPayload
)

// Tagged reports whether any tag is set.
func (t FragmentTags) Tagged() bool {
	return t != 0
}

// ScriptClass is the spend class of a fragment, which determines its input
// weight.
type ScriptClass uint8

const (
	// ScriptP2WPKH is a native segwit single-signature spend.
	ScriptP2WPKH ScriptClass = iota
	// ScriptP2TR is a taproot key-path spend.
	ScriptP2TR
)

// Fragment is a discrete unspent value unit. Fragments are immutable once
// observed; a snapshot is a point-in-time slice of them supplied by an
// external indexer. A fragment is either wholly selected or wholly
// excluded, never partially spent.
type Fragment struct {
	TxHash chainhash.Hash
	Vout   uint32
	// Value is in the chain's smallest unit.
	Value uint64
	Confs uint32
	Class ScriptClass
	Tags  FragmentTags
}

// Outpoint returns the fragment's txid:vout identifier.
func (f *Fragment) Outpoint() string {
	return f.TxHash.String() + ":" + strconv.FormatUint(uint64(f.Vout), 10)
}

// TxStatus is the confirmation state of a broadcast transaction.
type TxStatus struct {
	Confirmed bool
	// Height is the block height of the confirming block, zero while
	// unconfirmed.
	Height int64
}

// SnapshotSource lists the spendable fragments for an address. Unless
// includeUnconfirmed is set, the snapshot must reflect only confirmed
// fragments.
type SnapshotSource interface {
	ListSpendable(ctx context.Context, addr string, includeUnconfirmed bool) ([]*Fragment, error)
}

// TxStatusSource reports the confirmation state of a transaction.
type TxStatusSource interface {
	TxStatus(ctx context.Context, txHash *chainhash.Hash) (*TxStatus, error)
}

// Signer signs a transaction draft. It is opaque to the core beyond this
// shape.
type Signer interface {
	Sign(ctx context.Context, draft *wire.MsgTx) (*wire.MsgTx, error)
}

// Broadcaster submits a signed transaction to the network. Rejections
// should be returned as ErrBroadcastRejected kinds so the caller can
// distinguish them from transport failures.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error)
}
