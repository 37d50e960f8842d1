package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Logger:       logger,
	})
}

func decodeRequest(t *testing.T, r *http.Request) rpcRequest {
	var req rpcRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestClient_GetTransactionRequestShape(t *testing.T) {
	var seen rpcRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = decodeRequest(t, r)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"slot":7,"meta":{"err":null},"transaction":{"signatures":["sig"],"message":{"accountKeys":[],"instructions":[]}}}}`))
	})

	tx, err := client.GetTransaction(context.Background(), "sig")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tx.Slot)
	assert.False(t, tx.Failed())

	assert.Equal(t, "getTransaction", seen.Method)
	require.Len(t, seen.Params, 2)

	var opts map[string]interface{}
	require.NoError(t, json.Unmarshal(seen.Params[1], &opts))
	assert.Equal(t, "jsonParsed", opts["encoding"])
	assert.Equal(t, "confirmed", opts["commitment"])
	assert.Equal(t, float64(0), opts["maxSupportedTransactionVersion"])
}

func TestClient_GetTransactionNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	})

	_, err := client.GetTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestClient_RPCErrorIsReturned(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid param"}}`))
	})

	_, err := client.GetTransaction(context.Background(), "bad")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
}

func TestClient_RetriesOnRateLimit(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[{"signature":"a","slot":1,"err":null}]}`))
	})

	sigs, err := client.GetSignaturesForAddress(context.Background(), "prog", SignaturesOpts{})
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "a", sigs[0].Signature)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetAccountInfo(context.Background(), "acct")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GetAccountInfo(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, "getAccountInfo", req.Method)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": map[string]interface{}{
					"data":     []string{base64.StdEncoding.EncodeToString(payload), "base64"},
					"owner":    "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
					"lamports": 10,
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	data, err := client.GetAccountInfo(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestClient_GetAccountInfoMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":null}}`))
	})

	_, err := client.GetAccountInfo(context.Background(), "acct")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetTransaction(ctx, "sig")
	assert.ErrorIs(t, err, context.Canceled)
}
