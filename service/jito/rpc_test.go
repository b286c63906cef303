package jito

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/liushooter/jito-example/service/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest is one JSON-RPC request as seen by the test server.
type recordedRequest struct {
	Header http.Header
	Body   struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      uint64            `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params"`
	}
}

type requestLog struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedRequest(nil), l.requests...)
}

// newRPCServer starts a server that answers every request with the body
// returned by respond and records what it received.
func newRPCServer(t *testing.T, respond func(method string) string) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var rec recordedRequest
		rec.Header = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rec.Body))

		log.mu.Lock()
		log.requests = append(log.requests, rec)
		log.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(respond(rec.Body.Method)))
	}))
	t.Cleanup(server.Close)

	return server, log
}

func newTestClient(url string, m *metrics.Metrics) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(url, "secret-token", nil, m, logger)
}

func TestCall_ReturnsResultUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		result string
	}{
		{name: "string", result: `"5VfY9"`},
		{name: "number", result: `42`},
		{name: "object", result: `{"value":{"blockhash":"abc"},"context":{"slot":7}}`},
		{name: "array", result: `[1,"two",null]`},
		{name: "null", result: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newRPCServer(t, func(string) string {
				return `{"jsonrpc":"2.0","id":1,"result":` + tt.result + `}`
			})

			client := newTestClient(server.URL, nil)
			result, err := client.Call(context.Background(), "getSlot", nil)
			require.NoError(t, err)
			assert.JSONEq(t, tt.result, string(result))
		})
	}
}

func TestCall_SendsAuthenticatedEnvelope(t *testing.T) {
	server, requests := newRPCServer(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"result":1}`
	})

	client := newTestClient(server.URL, nil)
	_, err := client.Call(context.Background(), "getSlot", nil)
	require.NoError(t, err)
	_, err = client.Call(context.Background(), "getBalance", []any{"11111111111111111111111111111111"})
	require.NoError(t, err)

	recorded := requests.all()
	require.Len(t, recorded, 2)
	first, second := recorded[0], recorded[1]

	assert.Equal(t, "secret-token", first.Header.Get(AuthHeader))
	assert.Equal(t, "application/json", first.Header.Get("Content-Type"))
	assert.Equal(t, "2.0", first.Body.JSONRPC)
	assert.Equal(t, "getSlot", first.Body.Method)
	assert.NotNil(t, first.Body.Params)
	assert.Empty(t, first.Body.Params)

	assert.Equal(t, "getBalance", second.Body.Method)
	assert.Greater(t, second.Body.ID, first.Body.ID)
	require.Len(t, second.Body.Params, 1)
	assert.JSONEq(t, `"11111111111111111111111111111111"`, string(second.Body.Params[0]))
}

func TestCall_RPCError(t *testing.T) {
	errPayload := `{"code":-32002,"message":"Transaction simulation failed","data":{"logs":["insufficient funds"]}}`
	server, _ := newRPCServer(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"error":` + errPayload + `}`
	})

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	client := newTestClient(server.URL, m)

	result, err := client.Call(context.Background(), MethodSendRawTransaction, []any{"AQ=="})
	require.Error(t, err)
	assert.Nil(t, result)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.JSONEq(t, errPayload, string(rpcErr.Payload))
	assert.Equal(t, -32002, rpcErr.Code)
	assert.Equal(t, "Transaction simulation failed", rpcErr.Message)
	assert.Equal(t, MethodSendRawTransaction, rpcErr.Method)
	assert.Contains(t, err.Error(), "insufficient funds")

	count, err := testutil.GatherAndCount(registry, "jito_rpc_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCall_NonObjectErrorPayload(t *testing.T) {
	server, _ := newRPCServer(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"error":"rate limited"}`
	})

	client := newTestClient(server.URL, nil)
	_, err := client.Call(context.Background(), "getSlot", nil)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, `"rate limited"`, string(rpcErr.Payload))
	assert.Zero(t, rpcErr.Code)
}

func TestCall_NullErrorIsIgnored(t *testing.T) {
	server, _ := newRPCServer(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"result":"ok","error":null}`
	})

	client := newTestClient(server.URL, nil)
	result, err := client.Call(context.Background(), "getHealth", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(result))
}

func TestCall_ErrorBodyWithNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"invalid auth"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	_, err := client.Call(context.Background(), "getSlot", nil)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "invalid auth", rpcErr.Message)
}

func TestCall_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	_, err := client.Call(context.Background(), "getSlot", nil)
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Contains(t, err.Error(), "status 502")

	var rpcErr *RPCError
	assert.False(t, errors.As(err, &rpcErr))
}

func TestCall_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(url, nil)
	_, err := client.Call(context.Background(), "getSlot", nil)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "getSlot", transportErr.Method)
}

func TestCall_CanceledContext(t *testing.T) {
	server, requests := newRPCServer(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"result":1}`
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL, nil)
	_, err := client.Call(ctx, "getSlot", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, requests.all())
}

func TestGetLatestBlockhash(t *testing.T) {
	server, requests := newRPCServer(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":300},"value":{"blockhash":"11111111111111111111111111111111","lastValidBlockHeight":250}}}`
	})

	client := newTestClient(server.URL, nil)
	latest, err := client.GetLatestBlockhash(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "11111111111111111111111111111111", latest.Blockhash)
	assert.Equal(t, uint64(250), latest.LastValidBlockHeight)
	recorded := requests.all()
	require.Len(t, recorded, 1)
	assert.Equal(t, MethodGetLatestBlockhash, recorded[0].Body.Method)
	assert.Empty(t, recorded[0].Body.Params)
}

func TestSendRawTransaction(t *testing.T) {
	server, requests := newRPCServer(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"result":"5VfY9"}`
	})

	client := newTestClient(server.URL, nil)
	sig, err := client.SendRawTransaction(context.Background(), "AQID", false)
	require.NoError(t, err)
	assert.Equal(t, "5VfY9", sig)

	recorded := requests.all()
	require.Len(t, recorded, 1)
	params := recorded[0].Body.Params
	require.Len(t, params, 2)
	assert.JSONEq(t, `"AQID"`, string(params[0]))
	assert.JSONEq(t, `{"skipPreflight":false}`, string(params[1]))
}

func TestSendRawTransaction_NonStringResult(t *testing.T) {
	server, _ := newRPCServer(t, func(string) string {
		return `{"jsonrpc":"2.0","id":1,"result":{"bundleId":"b-1"}}`
	})

	client := newTestClient(server.URL, nil)
	res, err := client.SendRawTransaction(context.Background(), "AQID", true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bundleId":"b-1"}`, res)
}
