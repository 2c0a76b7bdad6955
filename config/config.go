// Package config resolves the daemon's runtime configuration from
// environment variables.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"
)

// ChainSettings is the per-chain slice of configuration: endpoint, signer
// material, and payout bounds in that chain's minor unit.
type ChainSettings struct {
	Enabled          bool
	RPCURL           string
	ChainID          *big.Int
	SignerSecret     string
	UnitsPerPoint    *big.Int
	MaxUnitsPerClaim *big.Int
	MinUnitsPerClaim *big.Int
}

// Config captures runtime configuration for the rewards daemon.
type Config struct {
	ListenAddress string
	LogLevel      string
	ClaimTimeout  time.Duration

	XRPL ChainSettings
	EVM  ChainSettings

	PinningBaseURL    string
	PinningGatewayURL string
	PinningJWT        string
}

const (
	envListen       = "DISBURSE_LISTEN"
	envLogLevel     = "DISBURSE_LOG_LEVEL"
	envClaimTimeout = "DISBURSE_CLAIM_TIMEOUT"

	envXRPLWSURL         = "DISBURSE_XRPL_WS_URL"
	envXRPLSeed          = "DISBURSE_XRPL_SEED"
	envXRPLUnitsPerPoint = "DISBURSE_XRPL_DROPS_PER_POINT"
	envXRPLMaxUnits      = "DISBURSE_XRPL_MAX_DROPS"
	envXRPLMinUnits      = "DISBURSE_XRPL_MIN_DROPS"

	envEVMRPCURL        = "DISBURSE_EVM_RPC_URL"
	envEVMChainID       = "DISBURSE_EVM_CHAIN_ID"
	envEVMKey           = "DISBURSE_EVM_PRIVATE_KEY"
	envEVMUnitsPerPoint = "DISBURSE_EVM_WEI_PER_POINT"
	envEVMMaxUnits      = "DISBURSE_EVM_MAX_WEI"
	envEVMMinUnits      = "DISBURSE_EVM_MIN_WEI"

	envPinBaseURL    = "DISBURSE_PINNING_BASE_URL"
	envPinGatewayURL = "DISBURSE_PINNING_GATEWAY_URL"
	envPinJWT        = "DISBURSE_PINNING_JWT"
)

// LoadConfigFromEnv resolves configuration from environment variables with
// sane defaults. A chain is enabled when its endpoint is set; at least one
// chain must be.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddress: getenvDefault(envListen, ":8080"),
		LogLevel:      getenvDefault(envLogLevel, "info"),
		ClaimTimeout:  parseDurationDefault(envClaimTimeout, 30*time.Second),

		XRPL: ChainSettings{
			RPCURL:           os.Getenv(envXRPLWSURL),
			SignerSecret:     os.Getenv(envXRPLSeed),
			UnitsPerPoint:    parseBigDefault(envXRPLUnitsPerPoint, big.NewInt(10_000)),
			MaxUnitsPerClaim: parseBigDefault(envXRPLMaxUnits, big.NewInt(1_000_000)),
			MinUnitsPerClaim: parseBigDefault(envXRPLMinUnits, big.NewInt(1)),
		},
		EVM: ChainSettings{
			RPCURL:           os.Getenv(envEVMRPCURL),
			ChainID:          parseBigDefault(envEVMChainID, nil),
			SignerSecret:     os.Getenv(envEVMKey),
			UnitsPerPoint:    parseBigDefault(envEVMUnitsPerPoint, big.NewInt(10_000_000_000_000)),
			MaxUnitsPerClaim: parseBigDefault(envEVMMaxUnits, big.NewInt(1_000_000_000_000_000)),
			MinUnitsPerClaim: parseBigDefault(envEVMMinUnits, big.NewInt(1)),
		},

		PinningBaseURL:    getenvDefault(envPinBaseURL, "https://api.pinata.cloud"),
		PinningGatewayURL: getenvDefault(envPinGatewayURL, "https://gateway.pinata.cloud/ipfs"),
		PinningJWT:        os.Getenv(envPinJWT),
	}

	cfg.XRPL.Enabled = cfg.XRPL.RPCURL != ""
	cfg.EVM.Enabled = cfg.EVM.RPCURL != ""

	if !cfg.XRPL.Enabled && !cfg.EVM.Enabled {
		return nil, fmt.Errorf("at least one of %s or %s is required", envXRPLWSURL, envEVMRPCURL)
	}
	if cfg.XRPL.Enabled && cfg.XRPL.SignerSecret == "" {
		return nil, fmt.Errorf("%s is required", envXRPLSeed)
	}
	if cfg.EVM.Enabled {
		if cfg.EVM.SignerSecret == "" {
			return nil, fmt.Errorf("%s is required", envEVMKey)
		}
		if cfg.EVM.ChainID == nil {
			return nil, fmt.Errorf("%s is required", envEVMChainID)
		}
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func parseDurationDefault(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func parseBigDefault(key string, def *big.Int) *big.Int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, ok := new(big.Int).SetString(raw, 10)
	if !ok || val.Sign() < 0 {
		return def
	}
	return val
}
