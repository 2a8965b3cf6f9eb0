// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runeflow

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/coinsource"
	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/inscriptions"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/bitcoin/txbuilder"
)

// EtchRequest describes etching of a new rune.
type EtchRequest struct {
	Operation runes.EtchOperation
	// Destination receives premine, funding address if empty.
	Destination string
	// OnCommitAddress is called with the commitment address and the amount it must be funded with.
	OnCommitAddress func(address string, amount uint64)
}

// Etch etches a new rune in two phases. The rune name is committed to a tapscript
// and the caller funds the commitment address. Once funds arrive (and the funding
// transaction is confirmed the configured number of times) the reveal transaction
// spends them by the script path carrying the etching runestone.
//
//	Reveal tx
//	inputs:  commitment coins.
//	outputs: runestone, destination (546 sat), change to destination.
func (s *Service) Etch(ctx context.Context, req EtchRequest) (_ *Result, err error) {
	defer func(start time.Time) { observe(OperationEtch, start, err) }(time.Now())

	op := req.Operation
	pointer := uint32(1)
	op.Pointer = &pointer

	runestone, err := op.Runestone()
	if err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{"operation": OperationEtch, "rune": runestone.Etching.Rune.String()})

	tip, err := s.coins.TipHeight(ctx)
	if err != nil {
		return nil, err
	}

	if !runestone.Etching.Rune.IsUnlocked(s.config.RuneStartHeight, tip) {
		return nil, fmt.Errorf("%w: %s at height %d", runes.ErrRuneNameLocked, runestone.Etching.Rune, tip)
	}

	data, err := s.dataOutput(op)
	if err != nil {
		return nil, err
	}

	destination := req.Destination
	if destination == "" {
		destination = s.funding.Address()
	}

	outputs := []txbuilder.OutputIntent{data, txbuilder.ValueOutput{Address: destination, Amount: bitcoin.DustThreshold}}

	publicKey := s.capability.PublicKey()
	script, err := inscriptions.NewEtchingInscription(runestone.Etching.Rune, "", nil).IntoScriptForWitness(schnorr.SerializePubKey(publicKey))
	if err != nil {
		return nil, err
	}

	commitment, err := descriptor.NewCommitment(publicKey, script, s.config.Network)
	if err != nil {
		return nil, err
	}

	required, err := s.revealAmount(commitment, outputs)
	if err != nil {
		return nil, err
	}

	logger = logger.WithField("commitment", commitment.Address())
	logger.WithField("amount", required).Info("waiting for commitment funding")
	if req.OnCommitAddress != nil {
		req.OnCommitAddress(commitment.Address(), required)
	}

	inputs, err := s.awaitCommitment(ctx, logger, commitment, required)
	if err != nil {
		return &Result{CommitAddress: commitment.Address()}, err
	}

	result, err := s.execute(ctx, logger, inputs, outputs, destination)
	if result == nil {
		result = new(Result)
	}
	result.CommitAddress = commitment.Address()

	return result, err
}

// revealAmount returns value the commitment must be funded with to pay for the
// reveal outputs and the fee of a single input reveal.
func (s *Service) revealAmount(commitment *descriptor.Commitment, outputs []txbuilder.OutputIntent) (uint64, error) {
	scriptPath, err := commitment.Resolve(commitment.PkScript())
	if err != nil {
		return 0, err
	}

	shape := txbuilder.Shape{Inputs: []descriptor.WitnessDescriptor{scriptPath}}
	var total uint64
	for _, output := range outputs {
		pkScript, err := output.PkScript(s.config.Network)
		if err != nil {
			return 0, err
		}

		shape.Outputs = append(shape.Outputs, pkScript)
		total += output.Value()
	}

	return total + txbuilder.EstimateFee(shape, txbuilder.ClampFeeRate(s.config.SatoshiPerKVByte)), nil
}

// awaitCommitment waits until unreserved coins at the commitment address cover
// required amount (coins of a rejected earlier reveal are reclaimed), awaits confirmations of their funding transactions and resolves
// every coin into the script path input.
func (s *Service) awaitCommitment(ctx context.Context, logger logrus.FieldLogger, commitment *descriptor.Commitment, required uint64) ([]txbuilder.Input, error) {
	ctx, cancel := s.withAwaitTimeout(ctx)
	defer cancel()

	params := s.config.awaitParams(logger)
	params.Filter = func(coin bitcoin.Coin) bool {
		if coin.Amount == 0 {
			return false
		}

		if err := s.reclaim(ctx, []bitcoin.Coin{coin}); err != nil {
			logger.WithError(err).WithField("coin", coin.Key()).Warn("could not check consumed coin")
			return false
		}

		available, err := s.ledger.Available([]bitcoin.Coin{coin})
		return err == nil && len(available) == 1
	}

	var coins []bitcoin.Coin
	for {
		var err error
		coins, err = coinsource.AwaitSpendable(ctx, s.coins, commitment.Address(), params)
		if err != nil {
			return nil, err
		}

		total := bitcoin.TotalAmount(coins)
		if total >= required {
			break
		}

		logger.WithFields(logrus.Fields{"have": total, "need": required}).Warn("commitment is underfunded, waiting")
	}

	awaited := make(map[string]bool, len(coins))
	for _, coin := range coins {
		if awaited[coin.TxHash] {
			continue
		}
		awaited[coin.TxHash] = true

		_, err := coinsource.AwaitConfirmations(ctx, s.coins, coin.TxHash, s.config.CommitConfirmations, params)
		if err != nil {
			return nil, err
		}
	}

	inputs := make([]txbuilder.Input, 0, len(coins))
	for _, coin := range coins {
		fundingTx, err := s.coins.RawTransaction(ctx, coin.TxHash)
		if err != nil {
			return nil, err
		}

		scriptPath, err := commitment.ResolveTx(fundingTx, coin.Index)
		if err != nil {
			return nil, err
		}

		if value := fundingTx.TxOut[coin.Index].Value; uint64(value) != coin.Amount {
			return nil, fmt.Errorf("%w: coin %s value %d, funding output value %d",
				descriptor.ErrCommitmentMismatch, coin.Key(), coin.Amount, value)
		}

		inputs = append(inputs, txbuilder.Input{Coin: coin, Descriptor: scriptPath})
	}

	return inputs, nil
}
