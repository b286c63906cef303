package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func rpcCommands() *cli.Command {
	return &cli.Command{
		Name:  "rpc",
		Usage: "Raw authenticated JSON-RPC commands",
		Subcommands: []*cli.Command{
			callCommand(),
		},
	}
}

func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Call any JSON-RPC method on the Jito endpoint and print the result",
		ArgsUsage: "METHOD [PARAMS_JSON_ARRAY]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter applied to the result (e.g. '.value.blockhash // .blockhash')",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("method is required")
			}
			method := c.Args().Get(0)

			params, err := parseParams(c.Args().Get(1))
			if err != nil {
				return err
			}

			var code *gojq.Code
			if filter := c.String("jq"); filter != "" {
				code, err = compileFilter(filter)
				if err != nil {
					return err
				}
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			client := newRPCClient(cfg, nil, c)
			result, err := client.Call(c.Context, method, params)
			if err != nil {
				return err
			}

			if code == nil {
				return printJSON(c.App.Writer, result)
			}
			return runFilter(c.App.Writer, code, result)
		},
	}
}

// parseParams decodes the optional params argument, which must be a JSON array.
func parseParams(arg string) ([]any, error) {
	if arg == "" {
		return nil, nil
	}
	var params []any
	if err := json.Unmarshal([]byte(arg), &params); err != nil {
		return nil, fmt.Errorf("params must be a JSON array: %w", err)
	}
	return params, nil
}

func compileFilter(filter string) (*gojq.Code, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// runFilter prints every value the filter emits, one JSON document per line.
func runFilter(w io.Writer, code *gojq.Code, result json.RawMessage) error {
	var input any
	if len(result) > 0 {
		if err := json.Unmarshal(result, &input); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}

	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq filter error: %w", err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode jq output: %w", err)
		}
		fmt.Fprintln(w, string(out))
	}
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		fmt.Fprintln(w, "null")
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}
