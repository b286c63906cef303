package jito

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingBlockhash is returned when a getLatestBlockhash result carries no
// usable blockhash in either the context-wrapped or the legacy shape.
var ErrMissingBlockhash = errors.New("could not get latest blockhash from RPC")

// RPCError is a JSON-RPC error response. Payload is the serialized error
// object exactly as the node returned it; Code and Message are filled in
// when the payload has the standard {code, message} shape.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Payload json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s returned error: %s", e.Method, string(e.Payload))
}

func newRPCError(method string, payload json.RawMessage) *RPCError {
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err == nil {
		payload = compact.Bytes()
	}

	rpcErr := &RPCError{Method: method, Payload: payload}

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		rpcErr.Code = body.Code
		rpcErr.Message = body.Message
	}
	return rpcErr
}

// TransportError wraps failures below the JSON-RPC layer: the HTTP request
// itself, reading the body, or a body that is not JSON.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc %s transport failure: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
