// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package coinsource queries spendable coins and transactions from an esplora compatible API.
package coinsource

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/runesmith/bitcoin"
)

// maxErrorBodyLen limits response body kept in error messages.
const maxErrorBodyLen = 256

// ErrNotFound defines resource unknown to the API, e.g. a transaction which never reached the mempool.
var ErrNotFound = errors.New("not found")

// Lister lists spendable coins of an address.
type Lister interface {
	ListSpendable(ctx context.Context, address string) ([]bitcoin.Coin, error)
}

// Client is an esplora HTTP API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// NewClient is a constructor for Client. Nil httpClient is replaced with a client with 30 seconds timeout.
func NewClient(baseURL string, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.WithField("pkg", "coinsource.Client"),
	}
}

type utxo struct {
	TxID   string   `json:"txid"`
	Vout   uint32   `json:"vout"`
	Value  uint64   `json:"value"`
	Status txStatus `json:"status"`
}

type txStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint64 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

func (s txStatus) toCoinStatus() bitcoin.CoinStatus {
	return bitcoin.CoinStatus{
		Confirmed:   s.Confirmed,
		BlockHeight: s.BlockHeight,
		BlockHash:   s.BlockHash,
		BlockTime:   s.BlockTime,
	}
}

// ListSpendable returns unspent outputs of the address, empty slice if there are none.
func (c *Client) ListSpendable(ctx context.Context, address string) ([]bitcoin.Coin, error) {
	body, err := c.get(ctx, "/address/"+url.PathEscape(address)+"/utxo")
	if err != nil {
		return nil, fmt.Errorf("could not list coins of %s: %w", address, err)
	}

	var utxos []utxo
	if err = json.Unmarshal(body, &utxos); err != nil {
		return nil, fmt.Errorf("could not decode coins of %s: %w", address, err)
	}

	coins := make([]bitcoin.Coin, 0, len(utxos))
	for _, u := range utxos {
		coins = append(coins, bitcoin.Coin{
			TxHash: u.TxID,
			Index:  u.Vout,
			Amount: u.Value,
			Status: u.Status.toCoinStatus(),
		})
	}

	c.logger.WithFields(logrus.Fields{"address": address, "coins": len(coins)}).Debug("listed spendable coins")

	return coins, nil
}

// RawTransaction returns transaction by id.
func (c *Client) RawTransaction(ctx context.Context, txID string) (*wire.MsgTx, error) {
	body, err := c.get(ctx, "/tx/"+url.PathEscape(txID)+"/hex")
	if err != nil {
		return nil, fmt.Errorf("could not get transaction %s: %w", txID, err)
	}

	raw, err := hex.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("could not decode transaction %s hex: %w", txID, err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err = tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("could not deserialize transaction %s: %w", txID, err)
	}

	return tx, nil
}

// TxStatus returns confirmation status of the transaction.
func (c *Client) TxStatus(ctx context.Context, txID string) (bitcoin.CoinStatus, error) {
	body, err := c.get(ctx, "/tx/"+url.PathEscape(txID)+"/status")
	if err != nil {
		return bitcoin.CoinStatus{}, fmt.Errorf("could not get transaction %s status: %w", txID, err)
	}

	var status txStatus
	if err = json.Unmarshal(body, &status); err != nil {
		return bitcoin.CoinStatus{}, fmt.Errorf("could not decode transaction %s status: %w", txID, err)
	}

	return status.toCoinStatus(), nil
}

// TipHeight returns height of the best chain tip.
func (c *Client) TipHeight(ctx context.Context) (uint64, error) {
	body, err := c.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, fmt.Errorf("could not get tip height: %w", err)
	}

	height, err := strconv.ParseUint(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse tip height: %w", err)
	}

	return height, nil
}

// get performs GET request, transport failures and non 200 responses are wrapped with bitcoin.ErrNetwork,
// 404 responses additionally with ErrNotFound.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", bitcoin.ErrNetwork, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: read body: %w", bitcoin.ErrNetwork, path, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w: GET %s: %s", bitcoin.ErrNetwork, ErrNotFound, path, truncate(body))
	default:
		return nil, fmt.Errorf("%w: GET %s: status %d: %s", bitcoin.ErrNetwork, path, resp.StatusCode, truncate(body))
	}

	return body, nil
}

func truncate(body []byte) string {
	message := strings.TrimSpace(string(body))
	if len(message) > maxErrorBodyLen {
		return message[:maxErrorBodyLen] + "..."
	}

	return message
}
