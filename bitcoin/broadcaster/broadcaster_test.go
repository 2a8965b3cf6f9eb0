// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package broadcaster_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/runesmith/bitcoin"
	"github.com/BoostyLabs/runesmith/bitcoin/broadcaster"
)

const txHex = "0200000001deadbeef"

// endpointServer returns server answering with status and body, received bodies are stored.
func endpointServer(t *testing.T, status int, body string, received *[]string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if received != nil {
			*received = append(*received, r.Header.Get("Content-Type")+" "+string(data))
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestBroadcast(t *testing.T) {
	logger, _ := test.NewNullLogger()
	b := broadcaster.New(nil, logger)
	ctx := context.Background()

	t.Run("fallback to third endpoint", func(t *testing.T) {
		var received []string
		endpoints := []broadcaster.Endpoint{
			{Name: "primary", URL: endpointServer(t, http.StatusInternalServerError, "internal error", &received).URL},
			{Name: "secondary", URL: endpointServer(t, http.StatusBadRequest, "bad-txns-inputs-missingorspent", &received).URL},
			{Name: "tertiary", URL: endpointServer(t, http.StatusOK, "abc123", &received).URL},
		}

		txID, failures, err := b.Broadcast(ctx, txHex, endpoints)
		require.NoError(t, err)
		require.Equal(t, "abc123", txID)
		require.Len(t, failures, 2)
		require.Equal(t, "primary", failures[0].Endpoint)
		require.Equal(t, http.StatusInternalServerError, failures[0].Status)
		require.Equal(t, "secondary", failures[1].Endpoint)
		require.Equal(t, http.StatusBadRequest, failures[1].Status)
		require.Equal(t, "bad-txns-inputs-missingorspent", failures[1].Message)
		require.Equal(t, []string{"text/plain " + txHex, "text/plain " + txHex, "text/plain " + txHex}, received)
	})

	t.Run("all endpoints fail", func(t *testing.T) {
		endpoints := []broadcaster.Endpoint{
			{Name: "one", URL: endpointServer(t, http.StatusInternalServerError, "", nil).URL},
			{Name: "two", URL: endpointServer(t, http.StatusBadRequest, "", nil).URL},
			{Name: "three", URL: "http://127.0.0.1:1"},
		}

		txID, failures, err := b.Broadcast(ctx, txHex, endpoints)
		require.Empty(t, txID)
		require.ErrorIs(t, err, bitcoin.ErrBroadcastExhausted)

		var exhausted *broadcaster.BroadcastExhaustedError
		require.ErrorAs(t, err, &exhausted)
		require.Len(t, exhausted.Attempts, 3)
		require.Equal(t, failures, exhausted.Attempts)
		require.Zero(t, exhausted.Attempts[2].Status)
		require.ErrorIs(t, exhausted.Attempts[2], bitcoin.ErrNetwork)
	})

	t.Run("stops on first success", func(t *testing.T) {
		var second []string
		endpoints := []broadcaster.Endpoint{
			{URL: endpointServer(t, http.StatusOK, "first\n", nil).URL},
			{URL: endpointServer(t, http.StatusOK, "second", &second).URL},
		}

		txID, failures, err := b.Broadcast(ctx, txHex, endpoints)
		require.NoError(t, err)
		require.Equal(t, "first", txID)
		require.Empty(t, failures)
		require.Empty(t, second)
	})

	t.Run("json endpoint", func(t *testing.T) {
		var received []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			received = append(received, body["hex"])
			_, _ = w.Write([]byte(`{"success":true,"txid":"abc123"}`))
		}))
		defer server.Close()

		txID, _, err := b.Broadcast(ctx, txHex, []broadcaster.Endpoint{{Name: "alt", URL: server.URL, Format: broadcaster.FormatJSON}})
		require.NoError(t, err)
		require.Equal(t, "abc123", txID)
		require.Equal(t, []string{txHex}, received)
	})

	t.Run("response id formats", func(t *testing.T) {
		tests := []struct {
			body  string
			txID  string
			isErr bool
		}{
			{"abc123", "abc123", false},
			{`"abc123"`, "abc123", false},
			{`{"tx_hash":"abc123"}`, "abc123", false},
			{`{"result":"abc123","error":null}`, "abc123", false},
			{`{"data":{"txid":"abc123"}}`, "abc123", false},
			{`{"result":null,"error":{"code":-26}}`, "", true},
			{`{"status":"ok"}`, "", true},
			{"", "", true},
		}
		for _, test := range tests {
			endpoint := broadcaster.Endpoint{URL: endpointServer(t, http.StatusOK, test.body, nil).URL}
			txID, failures, err := b.Broadcast(ctx, txHex, []broadcaster.Endpoint{endpoint})
			if test.isErr {
				require.ErrorIs(t, err, bitcoin.ErrBroadcastExhausted, test.body)
				require.Len(t, failures, 1)
				continue
			}

			require.NoError(t, err, test.body)
			require.Equal(t, test.txID, txID)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, failures, err := b.Broadcast(ctx, txHex, []broadcaster.Endpoint{{URL: "http://127.0.0.1:1", Format: "xml"}})
		require.ErrorIs(t, err, bitcoin.ErrBroadcastExhausted)
		require.Len(t, failures, 1)
		require.Contains(t, failures[0].Message, "xml")
	})

	t.Run("no endpoints", func(t *testing.T) {
		_, _, err := b.Broadcast(ctx, txHex, nil)
		require.ErrorIs(t, err, bitcoin.ErrBroadcastExhausted)
	})
}
