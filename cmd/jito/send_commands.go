package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/liushooter/jito-example/service/config"
	"github.com/liushooter/jito-example/service/jito"
	"github.com/liushooter/jito-example/service/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Fetch a blockhash, sign a transfer and submit it with sendRawTransaction",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Build and sign the transaction but do not submit it",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output the result as JSON",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics for this run to a textfile collector file",
			},
		},
		Action: sendAction,
	}
}

// sendOutput is the JSON shape printed by send --json.
type sendOutput struct {
	Payer                string `json:"payer"`
	Recipient            string `json:"recipient"`
	Lamports             uint64 `json:"lamports"`
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height"`
	Signature            string `json:"signature"`
	Transaction          string `json:"transaction"`
	Submitted            bool   `json:"submitted"`
	Result               string `json:"result,omitempty"`
}

func sendAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.LogLevel, c.App.ErrWriter)
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	client := newRPCClient(cfg, m, c)
	submitter := jito.NewSubmitter(client, jito.SubmitterConfig{
		Lamports:      cfg.TransferLamports,
		SkipPreflight: cfg.SkipPreflight,
		DryRun:        c.Bool("dry-run"),
	}, m, logger)

	result, runErr := submitter.Run(c.Context)

	if path := c.String("metrics-file"); path != "" {
		if err := metrics.WriteTextfile(path, registry); err != nil {
			logger.ErrorContext(c.Context, "failed to write metrics", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	w := c.App.Writer
	if c.Bool("json") {
		data, err := json.MarshalIndent(sendOutput{
			Payer:                result.Payer.String(),
			Recipient:            result.Recipient.String(),
			Lamports:             result.Lamports,
			Blockhash:            result.Blockhash.String(),
			LastValidBlockHeight: result.LastValidBlockHeight,
			Signature:            result.Signature.String(),
			Transaction:          result.Transaction,
			Submitted:            result.Submitted,
			Result:               result.Response,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if !result.Submitted {
		// Print what the wire bytes say, not what we meant to build.
		transfer, err := jito.DecodeTransfer(result.Transaction)
		if err != nil {
			return fmt.Errorf("encoded transaction does not decode: %w", err)
		}
		fmt.Fprintf(w, "Dry run, transaction not submitted\n")
		fmt.Fprintf(w, "  Fee payer:  %s\n", transfer.FeePayer)
		fmt.Fprintf(w, "  From:       %s\n", transfer.From)
		fmt.Fprintf(w, "  To:         %s\n", transfer.To)
		fmt.Fprintf(w, "  Lamports:   %d\n", transfer.Lamports)
		fmt.Fprintf(w, "  Blockhash:  %s\n", transfer.Blockhash)
		fmt.Fprintf(w, "  Signature:  %s\n", transfer.Signature)
		fmt.Fprintf(w, "  Raw:        %s\n", result.Transaction)
		return nil
	}

	fmt.Fprintf(w, "sendRawTransaction result: %s\n", result.Response)
	return nil
}

func blockhashCommand() *cli.Command {
	return &cli.Command{
		Name:  "blockhash",
		Usage: "Fetch the latest blockhash from the Jito endpoint",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			client := newRPCClient(cfg, nil, c)
			latest, err := client.GetLatestBlockhash(c.Context)
			if err != nil {
				return fmt.Errorf("failed to get latest blockhash: %w", err)
			}

			w := c.App.Writer
			fmt.Fprintf(w, "Blockhash:              %s\n", latest.Blockhash)
			fmt.Fprintf(w, "Last valid block height: %d\n", latest.LastValidBlockHeight)
			fmt.Fprintf(w, "Response shape:         %s\n", latest.Shape)
			return nil
		},
	}
}

func newRPCClient(cfg *config.Config, m *metrics.Metrics, c *cli.Context) *jito.Client {
	logger := setupLogger(cfg.LogLevel, c.App.ErrWriter)
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	return jito.NewClient(cfg.RPCURL, cfg.AuthToken, httpClient, m, logger)
}
