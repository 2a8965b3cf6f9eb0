// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runeflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/runesmith/bitcoin/broadcaster"
	"github.com/BoostyLabs/runesmith/bitcoin/coinsource"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
)

// ErrConfig defines invalid flow configuration.
var ErrConfig = errors.New("invalid flow config")

// Config defines immutable parameters shared by every flow.
type Config struct {
	Network *chaincfg.Params
	// RuneStartHeight is the rune protocol activation height of the network, see
	// runes.ProtocolStartHeight. Network parameters are shared by testnet3 and
	// testnet4, so it can not be derived from Network.
	RuneStartHeight uint64
	// FundingKind is the key path kind of the funding address: P2WPKH or P2TR.
	FundingKind descriptor.Kind
	// SatoshiPerKVByte is a static fee rate, clamped to the relay minimum.
	SatoshiPerKVByte uint64
	// Endpoints are broadcast endpoints tried in order.
	Endpoints []broadcaster.Endpoint

	PollInterval    time.Duration
	AwaitTimeout    time.Duration
	MaxPollFailures int

	// CommitConfirmations is a number of confirmations of the etching commit transaction
	// awaited before the reveal is broadcast.
	CommitConfirmations uint64
	// WaitConfirmations is a number of confirmations awaited after broadcast, none if zero.
	WaitConfirmations uint64
}

// Validate checks that config is usable.
func (c Config) Validate() error {
	switch {
	case c.Network == nil:
		return fmt.Errorf("%w: network is not set", ErrConfig)
	case c.FundingKind != descriptor.P2WPKH && c.FundingKind != descriptor.P2TR:
		return fmt.Errorf("%w: funding kind %q is not a key path", ErrConfig, c.FundingKind)
	case len(c.Endpoints) == 0:
		return fmt.Errorf("%w: no broadcast endpoints", ErrConfig)
	case c.MaxPollFailures < 0:
		return fmt.Errorf("%w: negative max poll failures", ErrConfig)
	}

	for idx, endpoint := range c.Endpoints {
		if endpoint.URL == "" {
			return fmt.Errorf("%w: endpoint #%d has no url", ErrConfig, idx)
		}
	}

	return nil
}

// awaitParams returns polling parameters without a timeout, the caller bounds the wait.
func (c Config) awaitParams(logger logrus.FieldLogger) coinsource.AwaitParams {
	return coinsource.AwaitParams{
		PollInterval: c.PollInterval,
		MaxFailures:  c.MaxPollFailures,
		Logger:       logger,
	}
}
