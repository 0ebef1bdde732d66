// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package fswap

import (
	"fmt"
	"strconv"
	"strings"
)

// Network flags the target chain network.
type Network uint8

const (
	Mainnet Network = iota
	Testnet
	Regtest
)

// String returns the string representation of the Network.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Regtest:
		return "regtest"
	}
	return "unknown"
}

// NetFromString returns the Network for the provided network name.
func NetFromString(net string) (Network, error) {
	switch strings.ToLower(net) {
	case "mainnet":
		return Mainnet, nil
	case "testnet", "testnet3":
		return Testnet, nil
	case "regtest", "simnet":
		return Regtest, nil
	}
	return 255, fmt.Errorf("unknown network %s", net)
}

// AssetID identifies an asset on the token layer. The native coin is
// identified by the Native flag; protocol tokens by their block:tx pair.
type AssetID struct {
	Native bool
	Block  uint64
	Tx     uint64
}

// String encodes the AssetID as either "btc" or "block:tx".
func (id AssetID) String() string {
	if id.Native {
		return "btc"
	}
	return strconv.FormatUint(id.Block, 10) + ":" + strconv.FormatUint(id.Tx, 10)
}

// ParseAssetID decodes an AssetID from its string encoding.
func ParseAssetID(s string) (AssetID, error) {
	if strings.EqualFold(s, "btc") {
		return AssetID{Native: true}, nil
	}
	block, tx, found := strings.Cut(s, ":")
	if !found {
		return AssetID{}, fmt.Errorf("invalid asset ID %q", s)
	}
	b, err := strconv.ParseUint(block, 10, 64)
	if err != nil {
		return AssetID{}, fmt.Errorf("invalid asset ID block in %q: %w", s, err)
	}
	t, err := strconv.ParseUint(tx, 10, 64)
	if err != nil {
		return AssetID{}, fmt.Errorf("invalid asset ID tx in %q: %w", s, err)
	}
	return AssetID{Block: b, Tx: t}, nil
}

// AssetRole classifies an asset for route selection. Roles are resolved once
// at configuration load so that routing logic never compares raw IDs against
// known constants.
type AssetRole uint8

const (
	// RoleGeneric is any ordinary pooled token.
	RoleGeneric AssetRole = iota
	// RoleNative is the chain's native coin. It cannot sit in a pool
	// directly and trades through its pegged synthetic.
	RoleNative
	// RolePeggedSynthetic is the protocol's 1:1 representation of the
	// native coin, and the preferred bridge asset.
	RolePeggedSynthetic
	// RoleStableReference is a stable-value asset usable as a fallback
	// bridge.
	RoleStableReference
)

// String returns a human-readable role name.
func (r AssetRole) String() string {
	switch r {
	case RoleNative:
		return "native"
	case RolePeggedSynthetic:
		return "pegged-synthetic"
	case RoleStableReference:
		return "stable-reference"
	}
	return "generic"
}

// AssetMetadata is the canonical read-only record for one asset. It is
// assembled once by the embedding application and consumed by the core as a
// lookup. Stored and transmitted amounts are always full-precision atoms;
// UnitInfo only affects display.
type AssetMetadata struct {
	ID       AssetID
	Symbol   string
	Name     string
	Role     AssetRole
	UnitInfo UnitInfo
}

// AssetRegistry is an immutable AssetID -> AssetMetadata lookup with the
// special-role assets resolved up front.
type AssetRegistry struct {
	assets map[AssetID]*AssetMetadata
	native AssetID
	peg    AssetID
	stable AssetID
	hasPeg bool
	hasStb bool
}

// NewAssetRegistry builds a registry from the provided metadata. Exactly one
// native asset and exactly one pegged synthetic are required. A stable
// reference is optional. Duplicate IDs or duplicate special roles are
// rejected.
func NewAssetRegistry(assets []*AssetMetadata) (*AssetRegistry, error) {
	reg := &AssetRegistry{assets: make(map[AssetID]*AssetMetadata, len(assets))}
	var haveNative bool
	for _, a := range assets {
		if _, exists := reg.assets[a.ID]; exists {
			return nil, fmt.Errorf("duplicate asset ID %s", a.ID)
		}
		switch a.Role {
		case RoleNative:
			if haveNative {
				return nil, fmt.Errorf("multiple native assets (%s and %s)", reg.native, a.ID)
			}
			haveNative = true
			reg.native = a.ID
		case RolePeggedSynthetic:
			if reg.hasPeg {
				return nil, fmt.Errorf("multiple pegged synthetics (%s and %s)", reg.peg, a.ID)
			}
			reg.hasPeg = true
			reg.peg = a.ID
		case RoleStableReference:
			if reg.hasStb {
				return nil, fmt.Errorf("multiple stable references (%s and %s)", reg.stable, a.ID)
			}
			reg.hasStb = true
			reg.stable = a.ID
		}
		reg.assets[a.ID] = a
	}
	if !haveNative {
		return nil, fmt.Errorf("no native asset registered")
	}
	if !reg.hasPeg {
		return nil, fmt.Errorf("no pegged synthetic registered")
	}
	return reg, nil
}

// Asset returns the metadata for the provided ID, or an error if the asset
// is unknown.
func (reg *AssetRegistry) Asset(id AssetID) (*AssetMetadata, error) {
	a, found := reg.assets[id]
	if !found {
		return nil, fmt.Errorf("unknown asset %s", id)
	}
	return a, nil
}

// Role returns the role of the provided asset, RoleGeneric if the asset is
// not registered.
func (reg *AssetRegistry) Role(id AssetID) AssetRole {
	if a, found := reg.assets[id]; found {
		return a.Role
	}
	return RoleGeneric
}

// Peg returns the ID of the pegged synthetic.
func (reg *AssetRegistry) Peg() AssetID {
	return reg.peg
}

// Stable returns the ID of the stable reference asset, if one is registered.
func (reg *AssetRegistry) Stable() (AssetID, bool) {
	return reg.stable, reg.hasStb
}

// UnitInfo returns the display configuration for the provided asset,
// defaulting to eight conventional decimal places for unregistered assets.
func (reg *AssetRegistry) UnitInfo(id AssetID) UnitInfo {
	if a, found := reg.assets[id]; found {
		return a.UnitInfo
	}
	return UnitInfo{
		AtomicUnit:   "atoms",
		Conventional: Denomination{Unit: id.String(), ConversionFactor: 1e8},
	}
}
