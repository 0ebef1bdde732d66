// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package fswap

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Denomination is a unit and its conversion factor to the atomic unit. The
// conversion factor must be a power of ten.
type Denomination struct {
	Unit             string
	ConversionFactor uint64
}

// UnitInfo conveys information about the units and available denominations
// for an asset. Amounts are stored and transmitted as full-precision atomic
// integers; UnitInfo governs display only.
type UnitInfo struct {
	// AtomicUnit is the name associated with the asset's integral unit,
	// e.g. sats.
	AtomicUnit string
	// Conventional is the conventionally-used denomination.
	Conventional Denomination
}

// decimalPlaces counts the decimal digits of the power-of-ten conversion
// factor without a float intermediate.
func decimalPlaces(factor uint64) int {
	var n int
	for factor > 1 {
		factor /= 10
		n++
	}
	return n
}

// ConventionalString converts an atomic value to its conventional string
// representation using the conventional conversion factor, with full
// precision. Trailing zeroes are retained to mark the asset's precision.
// The conversion is pure integer arithmetic; no float ever touches the
// value.
func (ui UnitInfo) ConventionalString(v uint64) string {
	c := ui.Conventional.ConversionFactor
	if c <= 1 {
		return strconv.FormatUint(v, 10)
	}
	whole, frac := v/c, v%c
	prec := decimalPlaces(c)
	return fmt.Sprintf("%d.%0*d", whole, prec, frac)
}

// ParseConventional converts a conventional decimal string back to an
// atomic value. The inverse of ConventionalString: for all v,
// ParseConventional(ConventionalString(v)) == v. Parsing is performed on
// arbitrary-precision integers so no precision is lost at any magnitude.
// Inputs with more fractional digits than the conversion factor supports
// are rejected rather than silently rounded.
func (ui UnitInfo) ParseConventional(s string) (uint64, error) {
	c := ui.Conventional.ConversionFactor
	if c == 0 {
		c = 1
	}
	prec := decimalPlaces(c)

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && len(frac) > prec {
		return 0, fmt.Errorf("amount %q exceeds asset precision of %d decimal places", s, prec)
	}

	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok || wholeInt.Sign() < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	atoms := wholeInt.Mul(wholeInt, new(big.Int).SetUint64(c))

	if hasFrac && frac != "" {
		// Right-pad the fractional part to the full precision so e.g.
		// ".5" scales to half of the conversion factor.
		fracInt, ok := new(big.Int).SetString(frac+strings.Repeat("0", prec-len(frac)), 10)
		if !ok || fracInt.Sign() < 0 {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		atoms.Add(atoms, fracInt)
	}

	if !atoms.IsUint64() {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return atoms.Uint64(), nil
}

// FormatAtoms is a convenience wrapper for formatting a value with a simple
// power-of-ten decimals count instead of a full UnitInfo.
func FormatAtoms(v uint64, decimals int) string {
	return UnitInfo{Conventional: Denomination{ConversionFactor: convFactor(decimals)}}.ConventionalString(v)
}

// ParseAtoms is the inverse of FormatAtoms.
func ParseAtoms(s string, decimals int) (uint64, error) {
	return UnitInfo{Conventional: Denomination{ConversionFactor: convFactor(decimals)}}.ParseConventional(s)
}

func convFactor(decimals int) uint64 {
	f := uint64(1)
	for i := 0; i < decimals; i++ {
		f *= 10
	}
	return f
}
