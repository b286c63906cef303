package jito

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// BlockhashShape identifies which getLatestBlockhash result layout a
// blockhash was read from.
type BlockhashShape string

const (
	// ShapeContext is {"context": {...}, "value": {"blockhash": ..., "lastValidBlockHeight": ...}}.
	ShapeContext BlockhashShape = "context"
	// ShapeLegacy is {"blockhash": ..., "lastValidBlockHeight": ...}.
	ShapeLegacy BlockhashShape = "legacy"
)

// LatestBlockhash is a normalized getLatestBlockhash result.
type LatestBlockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
	Shape                BlockhashShape
}

// Hash decodes the base58 blockhash.
func (b *LatestBlockhash) Hash() (solana.Hash, error) {
	hash, err := solana.HashFromBase58(b.Blockhash)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("invalid blockhash %q: %w", b.Blockhash, err)
	}
	return hash, nil
}

type blockhashFields struct {
	Blockhash            *string `json:"blockhash"`
	LastValidBlockHeight uint64  `json:"lastValidBlockHeight"`
}

type latestBlockhashResult struct {
	Value *blockhashFields `json:"value"`
	blockhashFields
}

// ParseLatestBlockhash normalizes both result shapes into a LatestBlockhash.
// value.blockhash wins when present; the top-level blockhash is the fallback.
func ParseLatestBlockhash(raw json.RawMessage) (*LatestBlockhash, error) {
	if isNull(raw) {
		return nil, ErrMissingBlockhash
	}

	var result latestBlockhashResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingBlockhash, err)
	}

	var fields blockhashFields
	var shape BlockhashShape
	switch {
	case result.Value != nil && result.Value.Blockhash != nil:
		fields, shape = *result.Value, ShapeContext
	case result.Blockhash != nil:
		fields, shape = result.blockhashFields, ShapeLegacy
	default:
		return nil, ErrMissingBlockhash
	}

	if *fields.Blockhash == "" {
		return nil, ErrMissingBlockhash
	}

	return &LatestBlockhash{
		Blockhash:            *fields.Blockhash,
		LastValidBlockHeight: fields.LastValidBlockHeight,
		Shape:                shape,
	}, nil
}
