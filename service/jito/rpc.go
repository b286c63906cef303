package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/liushooter/jito-example/service/metrics"
)

// AuthHeader carries the Jito auth token on every request.
const AuthHeader = "x-jito-auth"

// JSON-RPC methods used against the Jito endpoint.
const (
	MethodGetLatestBlockhash = "getLatestBlockhash"
	MethodSendRawTransaction = "sendRawTransaction"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Client is an authenticated JSON-RPC 2.0 client for a Jito RPC endpoint.
// Every request is a POST carrying the x-jito-auth header.
type Client struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	nextID     atomic.Uint64
}

// NewClient creates a new Jito RPC client.
// If httpClient is nil, a client without a timeout is used; cancellation is
// then governed entirely by the caller's context.
// If metrics is nil, no metrics will be recorded.
func NewClient(endpoint, authToken string, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		endpoint:   endpoint,
		authToken:  authToken,
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
	}
}

// Call sends a single JSON-RPC request and returns the raw result field.
// A response with an error field yields *RPCError; anything that goes wrong
// before a JSON body is in hand yields *TransportError.
func (c *Client) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	start := time.Now()
	result, err := c.call(ctx, method, params)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall(method, status, duration)
		if rpcErr, ok := err.(*RPCError); ok {
			c.metrics.RecordRPCError(method, rpcErr.Code)
		}
	}

	if err != nil {
		c.logger.DebugContext(ctx, "rpc call failed",
			"method", method,
			"duration_seconds", duration,
			"error", err,
		)
		return nil, err
	}

	c.logger.DebugContext(ctx, "rpc call succeeded",
		"method", method,
		"duration_seconds", duration,
	)
	return result, nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AuthHeader, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	// Jito answers some failures with a non-2xx status and a JSON-RPC error
	// body, so the status code alone is not treated as fatal.
	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, &TransportError{
			Method: method,
			Err:    fmt.Errorf("invalid JSON response (status %d): %w", resp.StatusCode, err),
		}
	}

	if !isNull(rpcResp.Error) {
		return nil, newRPCError(method, rpcResp.Error)
	}

	return rpcResp.Result, nil
}

// GetLatestBlockhash fetches a recent blockhash from the endpoint.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error) {
	result, err := c.Call(ctx, MethodGetLatestBlockhash, nil)
	if err != nil {
		return nil, err
	}
	return ParseLatestBlockhash(result)
}

// SendRawTransaction submits a base64 wire transaction and returns the
// node's result, normally the transaction signature.
func (c *Client) SendRawTransaction(ctx context.Context, encoded string, skipPreflight bool) (string, error) {
	opts := map[string]any{"skipPreflight": skipPreflight}
	result, err := c.Call(ctx, MethodSendRawTransaction, []any{encoded, opts})
	if err != nil {
		return "", err
	}

	var sig string
	if err := json.Unmarshal(result, &sig); err == nil {
		return sig, nil
	}
	return string(result), nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
