// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"encoding/binary"
	"fmt"

	"frostswap.org/frostswap/fswap"
)

// Protocol payload opcodes. A payload rides in the draft's null-data output
// as one or more uvarint-encoded segments; the token indexer executes
// segments in order within the confirming transaction, each consuming the
// prior segment's output. Chaining is what makes the fused wrap+trade step
// atomic.
const (
	opWrap   = 1
	opSwap   = 2
	opUnwrap = 3
)

// appendAssetID appends an asset id as its block/tx uvarint pair. The
// native coin never appears in a payload; it is represented by its peg.
func appendAssetID(b []byte, id fswap.AssetID) []byte {
	b = binary.AppendUvarint(b, id.Block)
	b = binary.AppendUvarint(b, id.Tx)
	return b
}

// stepPayload encodes the protocol payload for one plan step.
func stepPayload(step *Step, peg fswap.AssetID) ([]byte, error) {
	var b []byte
	switch step.Kind {
	case StepWrap:
		b = binary.AppendUvarint(b, opWrap)
		b = binary.AppendUvarint(b, step.In)
	case StepUnwrap:
		b = binary.AppendUvarint(b, opUnwrap)
		b = binary.AppendUvarint(b, step.In)
	case StepTradeLeg:
		b = appendSwapSegment(b, step, step.From)
	case StepWrapTradeLeg:
		b = binary.AppendUvarint(b, opWrap)
		b = binary.AppendUvarint(b, step.In)
		// The swap segment spends the wrap segment's output, so its
		// in-asset is the peg.
		b = appendSwapSegment(b, step, peg)
	default:
		return nil, fmt.Errorf("no payload encoding for step kind %s", step.Kind)
	}
	return b, nil
}

func appendSwapSegment(b []byte, step *Step, from fswap.AssetID) []byte {
	b = binary.AppendUvarint(b, opSwap)
	b = appendAssetID(b, from)
	b = appendAssetID(b, step.To)
	b = binary.AppendUvarint(b, step.MinOut)
	b = binary.AppendUvarint(b, step.Deadline)
	return b
}
