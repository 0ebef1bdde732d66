// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package btc

import "testing"

func TestSizeModel(t *testing.T) {
	// A 2-input, 2-output P2WPKH spend.
	vsize := TxOverhead + 2*P2WPKHInputSize + 2*P2WPKHOutputSize
	if vsize != 209 {
		t.Fatalf("2-in 2-out vsize = %d, want 209", vsize)
	}
	if got := OpReturnOutputSize(32); got != 42 {
		t.Fatalf("OpReturnOutputSize(32) = %d, want 42", got)
	}
}

func TestIsDust(t *testing.T) {
	for _, tt := range []struct {
		value uint64
		dust  bool
	}{
		{0, true},
		{545, true},
		{546, false},
		{100_000, false},
	} {
		if IsDust(tt.value) != tt.dust {
			t.Fatalf("IsDust(%d) != %v", tt.value, tt.dust)
		}
	}
}
