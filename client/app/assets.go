// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package app

import (
	"fmt"
	"strings"

	"frostswap.org/frostswap/fswap"

	"gopkg.in/ini.v1"
)

// assetSection is one [asset-id] section of the registry file.
type assetSection struct {
	Symbol   string `ini:"symbol"`
	Name     string `ini:"name"`
	Role     string `ini:"role"`
	Decimals int    `ini:"decimals"`
}

// LoadAssetRegistry reads the asset registry from an INI file. Each section
// header is an asset ID ("btc" or "block:tx"), with symbol, name, role
// {native, peg, stable, generic} and decimals keys. Roles are resolved here,
// once, so the engine's routing never compares raw IDs.
func LoadAssetRegistry(pathOrData interface{}) (*fswap.AssetRegistry, error) {
	cfgFile, err := ini.Load(pathOrData)
	if err != nil {
		return nil, fmt.Errorf("error loading asset registry: %w", err)
	}

	var assets []*fswap.AssetMetadata
	for _, section := range cfgFile.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		id, err := fswap.ParseAssetID(section.Name())
		if err != nil {
			return nil, err
		}
		var sec assetSection
		if err := section.MapTo(&sec); err != nil {
			return nil, fmt.Errorf("bad asset section %q: %w", section.Name(), err)
		}
		role, err := parseRole(sec.Role)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", id, err)
		}
		if sec.Decimals < 0 || sec.Decimals > 18 {
			return nil, fmt.Errorf("asset %s: decimals %d out of range", id, sec.Decimals)
		}
		factor := uint64(1)
		for i := 0; i < sec.Decimals; i++ {
			factor *= 10
		}
		assets = append(assets, &fswap.AssetMetadata{
			ID:     id,
			Symbol: sec.Symbol,
			Name:   sec.Name,
			Role:   role,
			UnitInfo: fswap.UnitInfo{
				AtomicUnit:   "atoms",
				Conventional: fswap.Denomination{Unit: sec.Symbol, ConversionFactor: factor},
			},
		})
	}
	return fswap.NewAssetRegistry(assets)
}

func parseRole(role string) (fswap.AssetRole, error) {
	switch strings.ToLower(role) {
	case "native":
		return fswap.RoleNative, nil
	case "peg", "pegged-synthetic":
		return fswap.RolePeggedSynthetic, nil
	case "stable", "stable-reference":
		return fswap.RoleStableReference, nil
	case "", "generic":
		return fswap.RoleGeneric, nil
	}
	return 0, fmt.Errorf("unknown asset role %q", role)
}
