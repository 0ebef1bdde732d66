// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package config

import "testing"

type tConfig struct {
	Key1 string  `ini:"key1"`
	Key2 bool    `ini:"key2"`
	Key3 int     `ini:"key3"`
	KEY4 float64 // defaults to field name i.e. `ini:"KEY4"`
}

func TestParse(t *testing.T) {
	cfgData := []byte(`key1=value1
key2=true
key3=9000
KEY4=0.5
`)
	cfg := new(tConfig)
	if err := Parse(cfgData, cfg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Key1 != "value1" || !cfg.Key2 || cfg.Key3 != 9000 || cfg.KEY4 != 0.5 {
		t.Fatalf("unexpected parsed config: %+v", cfg)
	}
}

func TestParseSectioned(t *testing.T) {
	cfgData := []byte(`[app]
key1=value1
[provider]
key3=42
`)
	cfg := new(tConfig)
	if err := Parse(cfgData, cfg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Key1 != "value1" || cfg.Key3 != 42 {
		t.Fatalf("unexpected parsed config: %+v", cfg)
	}
}

func TestOptions(t *testing.T) {
	opts, err := Options([]byte("key1=a\nkey2=b\n"))
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts["key1"] != "a" || opts["key2"] != "b" {
		t.Fatalf("unexpected options: %v", opts)
	}
}
