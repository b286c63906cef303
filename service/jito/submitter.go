package jito

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/liushooter/jito-example/service/metrics"
)

// RPC is the subset of Jito RPC operations the submitter needs.
// *Client satisfies it; tests substitute their own implementation.
type RPC interface {
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)
	SendRawTransaction(ctx context.Context, encoded string, skipPreflight bool) (string, error)
}

// KeyGenerator produces a fresh keypair.
type KeyGenerator func() (solana.PrivateKey, error)

// SubmitterConfig controls a submission run.
type SubmitterConfig struct {
	Lamports      uint64
	SkipPreflight bool
	// DryRun stops after encoding; nothing is sent.
	DryRun bool
	// NewKey generates the payer and recipient keys. Defaults to
	// solana.NewRandomPrivateKey.
	NewKey KeyGenerator
}

// Result describes one submission run.
type Result struct {
	Payer                solana.PublicKey
	Recipient            solana.PublicKey
	Lamports             uint64
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Signature            solana.Signature
	Transaction          string // base64 wire format
	Response             string // sendRawTransaction result, empty on dry runs
	Submitted            bool
}

// Submitter runs the fetch-blockhash, build, sign, encode, submit sequence.
type Submitter struct {
	rpc     RPC
	cfg     SubmitterConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewSubmitter creates a new Submitter.
// If metrics is nil, no metrics will be recorded.
func NewSubmitter(rpc RPC, cfg SubmitterConfig, m *metrics.Metrics, logger *slog.Logger) *Submitter {
	if cfg.Lamports == 0 {
		cfg.Lamports = DefaultTransferLamports
	}
	if cfg.NewKey == nil {
		cfg.NewKey = solana.NewRandomPrivateKey
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Submitter{
		rpc:     rpc,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Run performs one submission with an ephemeral payer and recipient.
// Every failure is returned to the caller unrecovered.
func (s *Submitter) Run(ctx context.Context) (*Result, error) {
	result, err := s.run(ctx)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case !result.Submitted:
		status = "dry_run"
	}
	if s.metrics != nil {
		s.metrics.RecordSubmission(status, s.cfg.Lamports)
	}

	return result, err
}

func (s *Submitter) run(ctx context.Context) (*Result, error) {
	payer, err := s.cfg.NewKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payer keypair: %w", err)
	}
	recipientKey, err := s.cfg.NewKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate recipient keypair: %w", err)
	}
	recipient := recipientKey.PublicKey()

	s.logger.InfoContext(ctx, "generated ephemeral keys",
		"payer", payer.PublicKey().String(),
		"recipient", recipient.String(),
	)

	// 1) Blockhash from the same endpoint the transaction goes to.
	stepStart := time.Now()
	latest, err := s.rpc.GetLatestBlockhash(ctx)
	s.recordStep("get_blockhash", stepStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	s.logger.InfoContext(ctx, "resolved latest blockhash",
		"blockhash", latest.Blockhash,
		"last_valid_block_height", latest.LastValidBlockHeight,
		"shape", string(latest.Shape),
	)

	blockhash, err := latest.Hash()
	if err != nil {
		return nil, err
	}

	// 2) Build and sign.
	stepStart = time.Now()
	tx, err := BuildTransfer(payer, recipient, s.cfg.Lamports, blockhash)
	s.recordStep("build_and_sign", stepStart)
	if err != nil {
		return nil, err
	}

	// 3) Encode.
	stepStart = time.Now()
	encoded, err := EncodeTransaction(tx)
	s.recordStep("encode", stepStart)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Payer:                payer.PublicKey(),
		Recipient:            recipient,
		Lamports:             s.cfg.Lamports,
		Blockhash:            blockhash,
		LastValidBlockHeight: latest.LastValidBlockHeight,
		Signature:            tx.Signatures[0],
		Transaction:          encoded,
	}

	if s.cfg.DryRun {
		s.logger.InfoContext(ctx, "dry run, skipping submission",
			"signature", result.Signature.String(),
		)
		return result, nil
	}

	// 4) Submit.
	stepStart = time.Now()
	response, err := s.rpc.SendRawTransaction(ctx, encoded, s.cfg.SkipPreflight)
	s.recordStep("submit", stepStart)
	if err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}

	result.Response = response
	result.Submitted = true

	s.logger.InfoContext(ctx, "submitted transaction",
		"signature", result.Signature.String(),
		"response", response,
		"lamports", s.cfg.Lamports,
	)

	return result, nil
}

func (s *Submitter) recordStep(step string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordStep(step, time.Since(start).Seconds())
	}
}
