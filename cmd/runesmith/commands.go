// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"unicode/utf8"

	"github.com/BoostyLabs/runesmith/bitcoin/descriptor"
	"github.com/BoostyLabs/runesmith/bitcoin/ord/runes"
	"github.com/BoostyLabs/runesmith/bitcoin/runeflow"
)

// options defines command line commands.
type options struct {
	Address  addressCommand  `command:"address" description:"Print addresses of the key"`
	Etch     etchCommand     `command:"etch" description:"Etch a new rune by commit and reveal"`
	Mint     mintCommand     `command:"mint" description:"Mint an existing rune"`
	Transfer transferCommand `command:"transfer" description:"Transfer rune units"`
}

func newOptions(app *application) *options {
	return &options{
		Address:  addressCommand{app: app},
		Etch:     etchCommand{app: app},
		Mint:     mintCommand{app: app},
		Transfer: transferCommand{app: app},
	}
}

type addressCommand struct {
	app *application
}

// Execute prints key path addresses of the key.
func (c *addressCommand) Execute([]string) error {
	for _, kind := range []descriptor.Kind{descriptor.P2WPKH, descriptor.P2TR} {
		keyPath, err := descriptor.NewKeyPath(c.app.key.PublicKey(), kind, c.app.params)
		if err != nil {
			return err
		}

		fmt.Printf("%-7s %s\n", kind, keyPath.Address())
	}

	return nil
}

type etchCommand struct {
	Name         string  `long:"name" required:"true" description:"Rune name, • or . separate spaced letters"`
	Symbol       string  `long:"symbol" description:"Currency symbol, single character"`
	Divisibility uint8   `long:"divisibility" description:"Number of decimal places"`
	Premine      string  `long:"premine" description:"Units allocated to the destination on etching"`
	Amount       string  `long:"amount" description:"Units minted per mint transaction"`
	Cap          string  `long:"cap" description:"Maximum number of mints"`
	HeightStart  *uint64 `long:"height-start" description:"Absolute height mints open at"`
	HeightEnd    *uint64 `long:"height-end" description:"Absolute height mints close at"`
	OffsetStart  *uint64 `long:"offset-start" description:"Mints open at etching height plus offset"`
	OffsetEnd    *uint64 `long:"offset-end" description:"Mints close at etching height plus offset"`
	Turbo        bool    `long:"turbo" description:"Opt into future protocol changes"`
	Destination  string  `long:"destination" description:"Premine receiver, funding address by default"`

	app *application
}

// Execute etches the rune.
func (c *etchCommand) Execute([]string) error {
	op := runes.EtchOperation{
		Name:         c.Name,
		Divisibility: c.Divisibility,
		HeightStart:  c.HeightStart,
		HeightEnd:    c.HeightEnd,
		OffsetStart:  c.OffsetStart,
		OffsetEnd:    c.OffsetEnd,
		Turbo:        c.Turbo,
	}

	if c.Symbol != "" {
		symbol, size := utf8.DecodeRuneInString(c.Symbol)
		if size != len(c.Symbol) {
			return errors.New("symbol must be a single character")
		}

		op.Symbol = &symbol
	}

	var err error
	for _, value := range []struct {
		flag   string
		source string
		target **big.Int
	}{
		{"premine", c.Premine, &op.Premine},
		{"amount", c.Amount, &op.MintAmount},
		{"cap", c.Cap, &op.MintCap},
	} {
		if *value.target, err = parseAmount(value.flag, value.source); err != nil {
			return err
		}
	}

	service, err := c.app.service()
	if err != nil {
		return err
	}

	result, err := service.Etch(c.app.ctx, runeflow.EtchRequest{
		Operation:   op,
		Destination: c.Destination,
		OnCommitAddress: func(address string, amount uint64) {
			fmt.Printf("send %d sat to %s\n", amount, address)
		},
	})

	return report(result, err)
}

type mintCommand struct {
	RuneID      string `long:"rune-id" required:"true" description:"Rune id as block:tx"`
	Amount      string `long:"amount" description:"Units assigned to the destination by an edict"`
	Destination string `long:"destination" description:"Minted runes receiver, funding address by default"`

	app *application
}

// Execute mints the rune.
func (c *mintCommand) Execute([]string) error {
	runeID, err := runes.NewRuneIDFromString(c.RuneID)
	if err != nil {
		return err
	}

	amount, err := parseAmount("amount", c.Amount)
	if err != nil {
		return err
	}

	service, err := c.app.service()
	if err != nil {
		return err
	}

	result, err := service.Mint(c.app.ctx, runeflow.MintRequest{RuneID: runeID, Amount: amount, Destination: c.Destination})

	return report(result, err)
}

type transferCommand struct {
	RuneID string   `long:"rune-id" required:"true" description:"Rune id as block:tx"`
	Amount string   `long:"amount" required:"true" description:"Units to transfer"`
	To     string   `long:"to" required:"true" description:"Recipient address"`
	Coins  []string `long:"coin" required:"true" description:"Rune holding output as txid:vout, repeatable"`

	app *application
}

// Execute transfers rune units.
func (c *transferCommand) Execute([]string) error {
	runeID, err := runes.NewRuneIDFromString(c.RuneID)
	if err != nil {
		return err
	}

	amount, err := parseAmount("amount", c.Amount)
	if err != nil {
		return err
	}

	service, err := c.app.service()
	if err != nil {
		return err
	}

	result, err := service.Transfer(c.app.ctx, runeflow.TransferRequest{
		RuneID:    runeID,
		Amount:    amount,
		To:        c.To,
		RuneCoins: c.Coins,
	})

	return report(result, err)
}

// parseAmount parses decimal amount, nil if empty.
func parseAmount(flag, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}

	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid --%s value %q", flag, value)
	}

	return amount, nil
}

// report prints transaction id and hex. Finalized transaction hex is printed
// on failure as well so it can be submitted manually.
func report(result *runeflow.Result, err error) error {
	switch {
	case result == nil || result.Hex == "":
		return err
	case !result.Broadcast:
		fmt.Fprintf(os.Stderr, "transaction was not broadcast, raw hex:\n%s\n", result.Hex)
		return err
	}

	fmt.Printf("txid: %s\nhex: %s\n", result.TxID, result.Hex)
	if result.Status.Confirmed {
		fmt.Printf("confirmed in block %d\n", result.Status.BlockHeight)
	}

	return err
}
