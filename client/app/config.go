// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package app holds the daemon's configuration and logging plumbing,
// shared between the executable and its tests.
package app

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"frostswap.org/frostswap/fswap"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
)

const (
	defaultHost     = "127.0.0.1"
	defaultAPIPort  = "5760"
	defaultLogLevel = "debug"
	configFilename  = "fswapd.conf"
	assetsFilename  = "assets.conf"
)

var (
	defaultApplicationDirectory = btcutil.AppDataDir("fswapd", false)
	defaultConfigPath           = filepath.Join(defaultApplicationDirectory, configFilename)
)

// ProviderConfig encapsulates the external service endpoints and protocol
// parameters the swap engine is wired to.
type ProviderConfig struct {
	EsploraURL     string `long:"esplora" description:"Base URL of an esplora-compatible block explorer API"`
	PoolAPIURL     string `long:"poolapi" description:"Base URL of the liquidity pool data API"`
	FeeAPIURL      string `long:"feeapi" description:"Base URL of the protocol fee schedule API. Defaults to the pool API."`
	SignerURL      string `long:"signer" description:"URL of the external transaction signing service"`
	CustodyAddress string `long:"custody" description:"Federation custody address receiving wrap payments"`
}

// LogConfig encapsulates the logging-related settings.
type LogConfig struct {
	LogPath    string `long:"logpath" description:"A file to save app logs"`
	DebugLevel string `long:"log" description:"Logging level {trace, debug, info, warn, error, critical}"`
}

// Config is the application configuration definition, parsed from the CLI
// and an INI configuration file.
type Config struct {
	ProviderConfig
	LogConfig
	// AppData and ConfigPath should be parsed from the command line, as it
	// makes no sense to set these in the config file itself. If no values
	// are assigned, defaults will be used.
	AppData    string `long:"appdata" description:"Path to application directory."`
	ConfigPath string `long:"config" description:"Path to an INI configuration file."`
	AssetsPath string `long:"assets" description:"Path to the asset registry INI file."`
	// Testnet and Regtest set the derivative Net field.
	Testnet bool   `long:"testnet" description:"use testnet"`
	Regtest bool   `long:"regtest" description:"use regtest"`
	APIAddr string `long:"apiaddr" description:"JSON API listen address"`
	ShowVer bool   `short:"V" long:"version" description:"Display version information and exit"`
	// Net is a derivative field set by ResolveConfig.
	Net fswap.Network
}

// DefaultConfig is the app-default configuration, from which file and CLI
// settings deviate.
var DefaultConfig = Config{
	AppData:    defaultApplicationDirectory,
	ConfigPath: defaultConfigPath,
	LogConfig:  LogConfig{DebugLevel: defaultLogLevel},
}

// ChainParams returns the btcd network parameters for the configured
// network.
func (cfg *Config) ChainParams() *chaincfg.Params {
	switch cfg.Net {
	case fswap.Testnet:
		return &chaincfg.TestNet3Params
	case fswap.Regtest:
		return &chaincfg.RegressionNetParams
	}
	return &chaincfg.MainNetParams
}

// ParseCLIConfig parses the command-line arguments into the provided struct
// with go-flags tags. If the --help flag has been passed, the struct is
// described back to the terminal and the program exits using os.Exit.
func ParseCLIConfig(cfg any) error {
	preParser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	_, flagerr := preParser.Parse()

	if flagerr != nil {
		e, ok := flagerr.(*flags.Error)
		if !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		if ok && e.Type == flags.ErrHelp {
			preParser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		return flagerr
	}
	return nil
}

// ResolveCLIConfigPaths resolves the app data directory path and the
// configuration file path from the CLI config, presumably parsed with
// ParseCLIConfig.
func ResolveCLIConfigPaths(cfg *Config) (appData, configPath string) {
	// If the app directory has been changed, replace shortcut chars such
	// as "~" with the full path.
	if cfg.AppData != defaultApplicationDirectory {
		cfg.AppData = fswap.CleanAndExpandPath(cfg.AppData)
		// If the app directory has been changed, but the config file path
		// hasn't, reform the config file path with the new directory.
		if cfg.ConfigPath == defaultConfigPath {
			cfg.ConfigPath = filepath.Join(cfg.AppData, configFilename)
		}
	}
	cfg.ConfigPath = fswap.CleanAndExpandPath(cfg.ConfigPath)
	return cfg.AppData, cfg.ConfigPath
}

// ParseFileConfig parses the INI file into the provided struct with
// go-flags tags. The CLI args are then parsed again, and take precedence
// over the file values.
func ParseFileConfig(path string, cfg any) error {
	parser := flags.NewParser(cfg, flags.Default)
	err := flags.NewIniParser(parser).ParseFile(path)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return err
		}
		// Missing file is not an error.
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return err
	}
	return nil
}

// ResolveConfig sets derivative fields of the Config struct using the
// specified app data directory, presumably returned from
// ResolveCLIConfigPaths. Some unset values are given defaults.
func ResolveConfig(appData string, cfg *Config) error {
	if cfg.Testnet && cfg.Regtest {
		return fmt.Errorf("testnet and regtest cannot both be specified")
	}

	cfg.AppData = appData

	switch {
	case cfg.Testnet:
		cfg.Net = fswap.Testnet
	case cfg.Regtest:
		cfg.Net = fswap.Regtest
	default:
		cfg.Net = fswap.Mainnet
	}
	defaultLogPath, defaultAssetsPath := setNet(appData, cfg.Net.String())

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultHost, defaultAPIPort)
	}
	if cfg.LogPath == "" {
		cfg.LogPath = defaultLogPath
	}
	if cfg.AssetsPath == "" {
		cfg.AssetsPath = defaultAssetsPath
	}
	if cfg.EsploraURL == "" {
		return fmt.Errorf("no esplora API configured")
	}
	if cfg.PoolAPIURL == "" {
		return fmt.Errorf("no pool API configured")
	}
	if cfg.SignerURL == "" {
		return fmt.Errorf("no signing service configured")
	}
	if cfg.FeeAPIURL == "" {
		cfg.FeeAPIURL = cfg.PoolAPIURL
	}
	return nil
}

// setNet creates the network directory and returns suggested paths for the
// log file and the asset registry file. If using a file rotator, the
// directory of the log filepath as parsed by filepath.Dir is suitable for
// use.
func setNet(applicationDirectory, net string) (logPath, assetsPath string) {
	netDirectory := filepath.Join(applicationDirectory, net)
	logDirectory := filepath.Join(netDirectory, "logs")
	err := os.MkdirAll(logDirectory, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	return filepath.Join(logDirectory, "fswapd.log"), filepath.Join(netDirectory, assetsFilename)
}
