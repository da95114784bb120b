// Package config loads wallet credentials and endpoints from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment keys.
const (
	EnvWalletAddress = "WALLET_ADDRESS"
	EnvPrivateKey    = "PRIVATE_KEY"
	EnvRPCURL        = "RPC_URL"
	EnvWSURL         = "WS_URL"
	EnvSwapWSURL     = "SWAP_WS_URL"
)

// Credentials holds everything read from the environment. Endpoints
// given here can be overridden by command-line flags.
type Credentials struct {
	WalletAddress string
	PrivateKey    string
	RPCURL        string
	WSURL         string
	SwapWSURL     string
}

// Load reads credentials from the environment. When envFile is
// non-empty it is loaded first without overriding variables already
// set in the process environment. WALLET_ADDRESS and PRIVATE_KEY are
// required; endpoint keys are optional because flags can supply them.
func Load(envFile string) (*Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	creds := &Credentials{
		WalletAddress: os.Getenv(EnvWalletAddress),
		PrivateKey:    os.Getenv(EnvPrivateKey),
		RPCURL:        os.Getenv(EnvRPCURL),
		WSURL:         os.Getenv(EnvWSURL),
		SwapWSURL:     os.Getenv(EnvSwapWSURL),
	}

	if creds.WalletAddress == "" {
		return nil, fmt.Errorf("%s is not set", EnvWalletAddress)
	}
	if creds.PrivateKey == "" {
		return nil, fmt.Errorf("%s is not set", EnvPrivateKey)
	}
	return creds, nil
}
