// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runeflow

import (
	"context"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/bitcoin/txbuilder"
)

// MintRequest describes mint of an existing rune.
type MintRequest struct {
	RuneID runes.RuneID
	// Amount, if set, is assigned to the destination by an edict.
	Amount *big.Int
	// Destination receives minted runes, funding address if empty.
	Destination string
}

// Mint mints rune units into the destination output, funded by the funding address coins.
//
//	Mint tx
//	inputs:  funding coins.
//	outputs: runestone, destination (546 sat), change to funding address.
func (s *Service) Mint(ctx context.Context, req MintRequest) (_ *Result, err error) {
	defer func(start time.Time) { observe(OperationMint, start, err) }(time.Now())

	destination := req.Destination
	if destination == "" {
		destination = s.funding.Address()
	}

	data, err := s.dataOutput(runes.MintOperation{RuneID: req.RuneID, Output: 1, Amount: req.Amount})
	if err != nil {
		return nil, err
	}

	outputs := []txbuilder.OutputIntent{data, txbuilder.ValueOutput{Address: destination, Amount: bitcoin.DustThreshold}}

	inputs, err := s.fund(ctx, nil, outputs)
	if err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{"operation": OperationMint, "rune_id": req.RuneID.String()})

	return s.execute(ctx, logger, inputs, outputs, s.funding.Address())
}
