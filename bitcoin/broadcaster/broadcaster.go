// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package broadcaster submits signed transactions to an ordered list of endpoints.
package broadcaster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/internal/metrics"
)

// maxMessageLen limits response body kept in endpoint errors.
const maxMessageLen = 256

// Format defines request body format of the endpoint.
type Format string

const (
	// FormatRaw defines raw transaction hex body sent as text/plain.
	FormatRaw Format = "raw"
	// FormatJSON defines {"<JSONField>": "<hex>"} body.
	FormatJSON Format = "json"
)

// DefaultJSONField defines JSON body field holding transaction hex.
const DefaultJSONField = "hex"

// idFields are JSON response fields which may hold accepted transaction id, by priority.
var idFields = []string{"txid", "tx_hash", "hash", "result", "data"}

// Endpoint describes transaction submission endpoint.
type Endpoint struct {
	Name      string
	URL       string
	Format    Format
	JSONField string
}

// label returns endpoint name for logs and errors.
func (e Endpoint) label() string {
	if e.Name != "" {
		return e.Name
	}

	return e.URL
}

// Broadcaster submits transactions sequentially, one attempt per endpoint.
type Broadcaster struct {
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// New is a constructor for Broadcaster. Nil httpClient is replaced with a client with 30 seconds timeout.
func New(httpClient *http.Client, logger logrus.FieldLogger) *Broadcaster {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Broadcaster{
		httpClient: httpClient,
		logger:     logger.WithField("pkg", "broadcaster"),
	}
}

// Broadcast submits transaction hex to endpoints in order until one accepts it.
// Returns accepted transaction id with failed attempts preceding the success,
// or BroadcastExhaustedError carrying every failure.
func (b *Broadcaster) Broadcast(ctx context.Context, txHex string, endpoints []Endpoint) (string, []*EndpointError, error) {
	failures := make([]*EndpointError, 0, len(endpoints))
	for _, endpoint := range endpoints {
		logger := b.logger.WithField("endpoint", endpoint.label())

		txID, failure := b.submit(ctx, txHex, endpoint)
		if failure != nil {
			metrics.BroadcastAttemptsTotal.WithLabelValues(endpoint.label(), metrics.StatusError).Inc()
			logger.WithError(failure).Warn("broadcast attempt failed")
			failures = append(failures, failure)
			continue
		}

		metrics.BroadcastAttemptsTotal.WithLabelValues(endpoint.label(), metrics.StatusSuccess).Inc()
		logger.WithField("txid", txID).Info("transaction accepted")

		return txID, failures, nil
	}

	return "", failures, &BroadcastExhaustedError{Attempts: failures}
}

// submit performs single attempt to the endpoint.
func (b *Broadcaster) submit(ctx context.Context, txHex string, endpoint Endpoint) (string, *EndpointError) {
	fail := func(status int, message string, err error) (string, *EndpointError) {
		return "", &EndpointError{Endpoint: endpoint.label(), Status: status, Message: message, Err: err}
	}

	body, contentType, err := requestBody(txHex, endpoint)
	if err != nil {
		return fail(0, err.Error(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return fail(0, err.Error(), err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fail(0, err.Error(), fmt.Errorf("%w: %w", bitcoin.ErrNetwork, err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, err.Error(), fmt.Errorf("%w: %w", bitcoin.ErrNetwork, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(resp.StatusCode, truncate(respBody), nil)
	}

	txID, err := parseTxID(respBody)
	if err != nil {
		return fail(resp.StatusCode, err.Error(), err)
	}

	return txID, nil
}

// requestBody returns request body with its content type.
func requestBody(txHex string, endpoint Endpoint) ([]byte, string, error) {
	switch endpoint.Format {
	case FormatRaw, "":
		return []byte(txHex), "text/plain", nil
	case FormatJSON:
		field := endpoint.JSONField
		if field == "" {
			field = DefaultJSONField
		}

		body, err := json.Marshal(map[string]string{field: txHex})
		return body, "application/json", err
	default:
		return nil, "", fmt.Errorf("unknown endpoint format %q", endpoint.Format)
	}
}

// parseTxID reads accepted transaction id from text or JSON response body.
func parseTxID(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", errors.New("empty response")
	}

	if trimmed[0] != '{' && trimmed[0] != '"' {
		return string(trimmed), nil
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return "", fmt.Errorf("invalid json response: %w", err)
	}

	if txID, ok := findTxID(value); ok {
		return txID, nil
	}

	return "", fmt.Errorf("no transaction id in response: %s", truncate(trimmed))
}

// findTxID looks for transaction id in JSON value, nested objects are searched by the same fields.
func findTxID(value any) (string, bool) {
	switch value := value.(type) {
	case string:
		value = strings.TrimSpace(value)
		return value, value != ""
	case map[string]any:
		if errValue, ok := value["error"]; ok && errValue != nil {
			return "", false
		}

		for _, field := range idFields {
			if nested, ok := value[field]; ok {
				if txID, ok := findTxID(nested); ok {
					return txID, true
				}
			}
		}
	}

	return "", false
}

func truncate(body []byte) string {
	message := strings.TrimSpace(string(body))
	if len(message) > maxMessageLen {
		return message[:maxMessageLen] + "..."
	}

	return message
}
