// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runeflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/bitcoin/txbuilder"
)

// ErrForeignCoin defines rune coin which is not locked to the funding address.
var ErrForeignCoin = errors.New("coin is not controlled by the funding key")

// TransferRequest describes transfer of rune units.
type TransferRequest struct {
	RuneID runes.RuneID
	Amount *big.Int
	To     string
	// RuneCoins are txid:vout references of the funding address outputs holding the runes.
	RuneCoins []string
}

// Transfer sends Amount of the rune to To. Remaining rune balance of the spent
// rune coins returns to the funding address by the runestone pointer.
//
//	Transfer tx
//	inputs:  rune coins, payment coins.
//	outputs: runestone, recipient (546 sat), runes remainder (546 sat), change to funding address.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (_ *Result, err error) {
	defer func(start time.Time) { observe(OperationTransfer, start, err) }(time.Now())

	if len(req.RuneCoins) == 0 {
		return nil, fmt.Errorf("%w: no rune coins to transfer from", runes.ErrInvalidOperation)
	}

	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", runes.ErrInvalidOperation)
	}

	pointer := uint32(2)
	data, err := s.dataOutput(runes.TransferOperation{
		Edicts:  []runes.Edict{{RuneID: req.RuneID, Amount: req.Amount, Output: 1}},
		Pointer: &pointer,
	})
	if err != nil {
		return nil, err
	}

	outputs := []txbuilder.OutputIntent{
		data,
		txbuilder.ValueOutput{Address: req.To, Amount: bitcoin.DustThreshold},
		txbuilder.ValueOutput{Address: s.funding.Address(), Amount: bitcoin.DustThreshold},
	}

	preselected := make([]txbuilder.Input, 0, len(req.RuneCoins))
	for _, ref := range req.RuneCoins {
		coin, err := s.runeCoin(ctx, ref)
		if err != nil {
			return nil, err
		}

		preselected = append(preselected, txbuilder.Input{Coin: coin, Descriptor: s.funding})
	}

	inputs, err := s.fund(ctx, preselected, outputs)
	if err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{"operation": OperationTransfer, "rune_id": req.RuneID.String(), "to": req.To})

	return s.execute(ctx, logger, inputs, outputs, s.funding.Address())
}

// runeCoin resolves txid:vout reference into the funding address coin.
func (s *Service) runeCoin(ctx context.Context, ref string) (bitcoin.Coin, error) {
	outPoint, err := wire.NewOutPointFromString(ref)
	if err != nil {
		return bitcoin.Coin{}, fmt.Errorf("invalid coin reference %q: %w", ref, err)
	}

	txID := outPoint.Hash.String()
	tx, err := s.coins.RawTransaction(ctx, txID)
	if err != nil {
		return bitcoin.Coin{}, err
	}

	if int(outPoint.Index) >= len(tx.TxOut) {
		return bitcoin.Coin{}, fmt.Errorf("%w: output %d is missing in %s", ErrForeignCoin, outPoint.Index, txID)
	}

	txOut := tx.TxOut[outPoint.Index]
	if !bytes.Equal(txOut.PkScript, s.funding.PkScript()) {
		return bitcoin.Coin{}, fmt.Errorf("%w: %s", ErrForeignCoin, ref)
	}

	status, err := s.coins.TxStatus(ctx, txID)
	if err != nil {
		return bitcoin.Coin{}, err
	}

	return bitcoin.Coin{TxHash: txID, Index: outPoint.Index, Amount: uint64(txOut.Value), Status: status}, nil
}
