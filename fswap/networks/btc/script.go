// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package btc holds the transaction size model and dust policy used for fee
// estimation. All sizes are virtual bytes for segwit-discounted
// single-signature spends.
package btc

const (
	// TxOverhead is the overhead for a segwit transaction: 4 bytes version
	// + 4 bytes locktime + segwit marker and flag (0.5 vB) + varints for
	// the input and output counts, rounded up.
	TxOverhead = 11

	// P2WPKHInputSize is the worst case size of a P2WPKH input: 36 bytes
	// outpoint + 4 bytes sequence + 1 byte empty sigScript varint + the
	// witness (signature + compressed pubkey) at a quarter weight.
	P2WPKHInputSize = 68

	// P2TRInputSize is the size of a P2TR key-path input: prefix as above
	// plus a 64-byte Schnorr signature witness at a quarter weight,
	// rounded up.
	P2TRInputSize = 58

	// TxOutOverhead is the overhead for a transaction output: 8 bytes
	// value + at least 1 byte script length varint.
	TxOutOverhead = 8 + 1

	// P2WPKHOutputSize is TxOutOverhead + the 22-byte P2WPKH pkScript.
	P2WPKHOutputSize = TxOutOverhead + 22

	// P2TROutputSize is TxOutOverhead + the 34-byte P2TR pkScript.
	P2TROutputSize = TxOutOverhead + 34

	// P2PKHOutputSize is TxOutOverhead + the 25-byte P2PKH pkScript.
	P2PKHOutputSize = TxOutOverhead + 25

	// DustThreshold is the minimum economically-spendable output value.
	// Outputs below this value are not created; a would-be change output
	// under the threshold is folded into the fee instead.
	DustThreshold = 546
)

// OpReturnOutputSize is the size of a null-data output carrying a script of
// the given length: TxOutOverhead + OP_RETURN + the payload push.
func OpReturnOutputSize(scriptLen uint64) uint64 {
	return TxOutOverhead + 1 + scriptLen
}

// IsDust returns whether an output of the provided value would be under the
// dust threshold.
func IsDust(value uint64) bool {
	return value < DustThreshold
}
