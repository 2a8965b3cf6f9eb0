// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package runeflow orchestrates rune operations: select and reserve coins, assemble,
// sign, verify, finalize and broadcast a transaction carrying the runestone.
package runeflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/broadcaster"
	"github.com/BoostyLabs/runesmith/bitcoin/coinsource"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/bitcoin/finalizer"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/bitcoin/signer"
	"github.com/BoostyLabs/runesmith/bitcoin/txbuilder"
	"github.com/BoostyLabs/runesmith/internal/metrics"
	"github.com/BoostyLabs/runesmith/internal/reservation"
)

// Operation names used in logs and metrics.
const (
	OperationEtch     = "etch"
	OperationMint     = "mint"
	OperationTransfer = "transfer"
)

// PayloadProvider encodes rune operations into runestone payloads.
type PayloadProvider interface {
	EncodeOperation(op runes.Operation) ([]byte, error)
}

// CoinSource provides spendable coins and chain state.
type CoinSource interface {
	coinsource.Lister
	coinsource.StatusSource
	RawTransaction(ctx context.Context, txID string) (*wire.MsgTx, error)
}

// Broadcaster submits finalized transactions.
type Broadcaster interface {
	Broadcast(ctx context.Context, txHex string, endpoints []broadcaster.Endpoint) (string, []*broadcaster.EndpointError, error)
}

// Result describes finalized transaction of the flow. Hex is set once the
// transaction is finalized, even when broadcast fails.
type Result struct {
	TxID string
	Hex  string
	Fee  uint64
	// CommitAddress is the etching commitment address, empty for other operations.
	CommitAddress string
	// Broadcast reports that an endpoint accepted the transaction.
	Broadcast bool
	// Failures are rejected broadcast attempts.
	Failures []*broadcaster.EndpointError
	// Status is confirmation state of the transaction when confirmations were awaited.
	Status bitcoin.CoinStatus
}

// Service executes rune operations funded by coins of a single key.
type Service struct {
	config      Config
	capability  signer.SigningCapability
	signer      *signer.Signer
	assembler   *txbuilder.Assembler
	payloads    PayloadProvider
	coins       CoinSource
	broadcaster Broadcaster
	ledger      reservation.Ledger
	funding     *descriptor.KeyPath

	logger logrus.FieldLogger
}

// NewService is a constructor for Service.
func NewService(config Config, capability signer.SigningCapability, payloads PayloadProvider, coins CoinSource,
	broadcaster Broadcaster, ledger reservation.Ledger, logger logrus.FieldLogger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	funding, err := descriptor.NewKeyPath(capability.PublicKey(), config.FundingKind, config.Network)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:      config,
		capability:  capability,
		signer:      signer.NewSigner(capability),
		assembler:   txbuilder.NewAssembler(config.Network),
		payloads:    payloads,
		coins:       coins,
		broadcaster: broadcaster,
		ledger:      ledger,
		funding:     funding,
		logger:      logger.WithField("pkg", "runeflow"),
	}, nil
}

// FundingAddress returns address of the coins which pay for mint and transfer.
func (s *Service) FundingAddress() string {
	return s.funding.Address()
}

// dataOutput encodes operation into the runestone output.
func (s *Service) dataOutput(op runes.Operation) (txbuilder.DataOutput, error) {
	payload, err := s.payloads.EncodeOperation(op)
	if err != nil {
		return txbuilder.DataOutput{}, err
	}

	return txbuilder.DataOutput{Tag: runes.ProtocolTag, Payload: payload}, nil
}

// execute reserves input coins and takes the transaction through assembly, signing,
// finalization and broadcast. Coins are released if broadcast is never attempted
// and stay consumed by the transaction otherwise, see reclaim.
func (s *Service) execute(ctx context.Context, logger logrus.FieldLogger, inputs []txbuilder.Input, outputs []txbuilder.OutputIntent, changeAddress string) (*Result, error) {
	coins := make([]bitcoin.Coin, 0, len(inputs))
	for _, input := range inputs {
		coins = append(coins, input.Coin)
	}

	owner := uuid.NewString()
	if err := s.ledger.Reserve(owner, coins); err != nil {
		return nil, err
	}

	attempted := false
	defer func() {
		if attempted {
			return
		}

		if err := s.ledger.Release(owner, coins); err != nil {
			logger.WithError(err).Error("could not release coins")
		}
	}()

	skeleton, err := s.assembler.Assemble(inputs, outputs, txbuilder.FeePolicy{
		SatoshiPerKVByte: s.config.SatoshiPerKVByte,
		ChangeAddress:    changeAddress,
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionFeeSatoshi.Observe(float64(skeleton.Fee))
	logger.WithFields(logrus.Fields{
		"inputs":  len(inputs),
		"outputs": len(skeleton.Tx().TxOut),
		"fee":     skeleton.Fee,
		"change":  skeleton.Change,
		"folded":  skeleton.ChangeFolded,
	}).Debug("transaction assembled")

	if err = verifyRunestone(skeleton.Tx()); err != nil {
		return nil, err
	}

	records, err := s.signer.SignAll(ctx, skeleton)
	if err != nil {
		return nil, err
	}

	tx, err := finalizer.Finalize(skeleton, records)
	if err != nil {
		return nil, err
	}

	result := &Result{TxID: tx.TxID, Hex: tx.Hex, Fee: skeleton.Fee}
	logger = logger.WithField("txid", tx.TxID)

	if err = s.ledger.Consume(owner, tx.TxID, coins); err != nil {
		return result, err
	}
	attempted = true

	txID, failures, err := s.broadcaster.Broadcast(ctx, tx.Hex, s.config.Endpoints)
	result.Failures = failures
	if err != nil {
		logger.WithError(err).Error("transaction is not broadcast")
		return result, err
	}

	if txID != tx.TxID {
		logger.WithField("reported", txID).Warn("endpoint reported unexpected transaction id")
	}

	result.Broadcast = true
	logger.Info("transaction broadcast")

	if s.config.WaitConfirmations == 0 {
		return result, nil
	}

	ctx, cancel := s.withAwaitTimeout(ctx)
	defer cancel()

	result.Status, err = coinsource.AwaitConfirmations(ctx, s.coins, tx.TxID, s.config.WaitConfirmations, s.config.awaitParams(logger))

	return result, err
}

// verifyRunestone checks that the runestone pointer and edicts fit the assembled outputs.
func verifyRunestone(tx *wire.MsgTx) error {
	for _, txOut := range tx.TxOut {
		if !runes.IsPossibleRunestone(txOut.PkScript) {
			continue
		}

		runestone, err := runes.ParseRunestone(txOut.PkScript)
		if err != nil {
			return err
		}

		return runestone.Verify(len(tx.TxOut))
	}

	return fmt.Errorf("%w: runestone output is missing", runes.ErrInvalidOperation)
}

// withAwaitTimeout bounds ctx by the configured await timeout.
func (s *Service) withAwaitTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.AwaitTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.config.AwaitTimeout)
}

// reclaim reinstates consumed coins whose spending transaction is unknown to the coin
// source: every broadcast attempt of it was rejected. Coins of a known transaction
// stay consumed.
func (s *Service) reclaim(ctx context.Context, coins []bitcoin.Coin) error {
	spent, err := s.ledger.Spent(coins)
	if err != nil {
		return err
	}

	for txID, consumed := range spent {
		_, err := s.coins.TxStatus(ctx, txID)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, coinsource.ErrNotFound):
			return err
		}

		if err = s.ledger.Reinstate(txID, consumed); err != nil {
			return err
		}

		s.logger.WithFields(logrus.Fields{"txid": txID, "coins": len(consumed)}).Info("spending transaction is unknown, coins reinstated")
	}

	return nil
}

// paymentCoins returns funding coins which are not reserved and are not rune carriers.
func (s *Service) paymentCoins(ctx context.Context, exclude map[string]bool) ([]bitcoin.Coin, error) {
	coins, err := s.coins.ListSpendable(ctx, s.funding.Address())
	if err != nil {
		return nil, err
	}

	candidates := make([]bitcoin.Coin, 0, len(coins))
	for _, coin := range coins {
		// outputs of dust threshold value are how runes are received.
		if coin.Amount <= bitcoin.DustThreshold || exclude[coin.Key()] {
			continue
		}

		candidates = append(candidates, coin)
	}

	if err = s.reclaim(ctx, candidates); err != nil {
		return nil, err
	}

	return s.ledger.Available(candidates)
}

// fund selects payment coins for outputs and returns them appended to preselected inputs.
func (s *Service) fund(ctx context.Context, preselected []txbuilder.Input, outputs []txbuilder.OutputIntent) ([]txbuilder.Input, error) {
	exclude := make(map[string]bool, len(preselected))
	preselectedCoins := make([]bitcoin.Coin, 0, len(preselected))
	for _, input := range preselected {
		exclude[input.Coin.Key()] = true
		preselectedCoins = append(preselectedCoins, input.Coin)
	}

	if err := s.reclaim(ctx, preselectedCoins); err != nil {
		return nil, err
	}

	coins, err := s.paymentCoins(ctx, exclude)
	if err != nil {
		return nil, err
	}

	selected, err := txbuilder.SelectCoins(preselected, coins, s.funding, outputs, s.feePolicy(), s.config.Network)
	if err != nil {
		return nil, err
	}

	inputs := append(make([]txbuilder.Input, 0, len(preselected)+len(selected)), preselected...)
	for _, coin := range selected {
		inputs = append(inputs, txbuilder.Input{Coin: coin, Descriptor: s.funding})
	}

	return inputs, nil
}

func (s *Service) feePolicy() txbuilder.FeePolicy {
	return txbuilder.FeePolicy{SatoshiPerKVByte: s.config.SatoshiPerKVByte, ChangeAddress: s.funding.Address()}
}

// observe records flow metrics.
func observe(operation string, start time.Time, err error) {
	metrics.FlowsTotal.WithLabelValues(operation, metrics.Status(err)).Inc()
	metrics.FlowDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
