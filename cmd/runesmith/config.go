// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/kelseyhightower/envconfig"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/broadcaster"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/bitcoin/runeflow"
)

// envPrefix defines environment variables prefix.
const envPrefix = "RUNESMITH"

// Config defines environment configuration.
type Config struct {
	Network    string `default:"testnet"`
	PrivateKey string `envconfig:"PRIVATE_KEY" required:"true"` // WIF encoded.
	// FundingKind is P2WPKH or P2TR.
	FundingKind string `envconfig:"FUNDING_KIND" default:"P2TR"`
	// FeeRate is in satoshi per kilo virtual byte.
	FeeRate uint64 `envconfig:"FEE_RATE" default:"2000"`

	EsploraURL        string `envconfig:"ESPLORA_URL" default:"https://mempool.space/testnet/api"`
	FallbackURL       string `envconfig:"FALLBACK_URL"`
	FallbackJSONField string `envconfig:"FALLBACK_JSON_FIELD" default:"hex"`

	PollInterval        time.Duration `envconfig:"POLL_INTERVAL" default:"10s"`
	AwaitTimeout        time.Duration `envconfig:"AWAIT_TIMEOUT" default:"2h"`
	MaxPollFailures     int           `envconfig:"MAX_POLL_FAILURES" default:"10"`
	CommitConfirmations uint64        `envconfig:"COMMIT_CONFIRMATIONS" default:"6"`
	WaitConfirmations   uint64        `envconfig:"WAIT_CONFIRMATIONS" default:"0"`

	// LedgerPath is the reservation database, reservations are kept in memory if empty.
	LedgerPath  string `envconfig:"LEDGER_PATH" default:"runesmith.db"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

func newConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process(envPrefix, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env var: %w", err)
	}
	return cfg, nil
}

// params returns chain parameters of the configured network.
func (c Config) params() (*chaincfg.Params, error) {
	return bitcoin.NetworkParams(c.Network)
}

// wif decodes private key and checks that it belongs to the network.
func (c Config) wif(params *chaincfg.Params) (*btcutil.WIF, error) {
	wif, err := btcutil.DecodeWIF(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	if !wif.IsForNet(params) {
		return nil, fmt.Errorf("private key is not for %s", params.Name)
	}

	return wif, nil
}

// flowConfig returns flow configuration.
func (c Config) flowConfig(params *chaincfg.Params) runeflow.Config {
	endpoints := []broadcaster.Endpoint{{
		Name:   "esplora",
		URL:    strings.TrimRight(c.EsploraURL, "/") + "/tx",
		Format: broadcaster.FormatRaw,
	}}
	if c.FallbackURL != "" {
		endpoints = append(endpoints, broadcaster.Endpoint{
			Name:      "fallback",
			URL:       c.FallbackURL,
			Format:    broadcaster.FormatJSON,
			JSONField: c.FallbackJSONField,
		})
	}

	return runeflow.Config{
		Network:             params,
		RuneStartHeight:     runes.ProtocolStartHeight(c.Network),
		FundingKind:         descriptor.Kind(strings.ToUpper(c.FundingKind)),
		SatoshiPerKVByte:    c.FeeRate,
		Endpoints:           endpoints,
		PollInterval:        c.PollInterval,
		AwaitTimeout:        c.AwaitTimeout,
		MaxPollFailures:     c.MaxPollFailures,
		CommitConfirmations: c.CommitConfirmations,
		WaitConfirmations:   c.WaitConfirmations,
	}
}
