package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flemzord/tgflow/internal/command"
	"github.com/flemzord/tgflow/internal/security"
	"github.com/flemzord/tgflow/pkg/app"
	"github.com/flemzord/tgflow/pkg/record"
)

// batch is the file format of tgflow exec --file, the same body the
// gateway's /v1/execute accepts.
type batch struct {
	Items          []command.Item `json:"items"`
	ContinueOnFail bool           `json:"continueOnFail"`
}

// readBatch parses a batch file; "-" reads r.
func readBatch(path string, r io.Reader) (batch, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(r, security.DefaultMaxBodySize+1))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return batch{}, fmt.Errorf("reading batch: %w", err)
	}
	if err := security.ValidateBodySize(data, security.DefaultMaxBodySize); err != nil {
		return batch{}, err
	}
	if err := security.ValidateJSONDepth(data, security.DefaultMaxJSONDepth); err != nil {
		return batch{}, err
	}
	var b batch
	if err := json.Unmarshal(data, &b); err != nil {
		return batch{}, fmt.Errorf("%w: %w", security.ErrInvalidJSON, err)
	}
	if len(b.Items) == 0 {
		return batch{}, errors.New("batch has no items")
	}
	return b, nil
}

func execCmd(g *globals) *cobra.Command {
	var (
		params         string
		file           string
		continueOnFail bool
	)
	cmd := &cobra.Command{
		Use:   "exec [resource operation]",
		Short: "Run one operation, or a batch with --file",
		Example: `  tgflow exec message send --params '{"chatId":"@durov","message":"hi"}'
  tgflow exec chat getAll --params '{"limit":20}'
  tgflow exec --file batch.json --continue-on-fail`,
		Args: func(_ *cobra.Command, args []string) error {
			if file == "" && len(args) != 2 {
				return errors.New("expected <resource> <operation>, or --file")
			}
			if file != "" && len(args) != 0 {
				return errors.New("--file cannot be combined with an operation")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var b batch
			if file != "" {
				var err error
				if b, err = readBatch(file, cmd.InOrStdin()); err != nil {
					return err
				}
			} else {
				if params != "" && !json.Valid([]byte(params)) {
					return fmt.Errorf("%w: --params", security.ErrInvalidJSON)
				}
				b.Items = []command.Item{{Resource: args[0], Operation: args[1], Params: json.RawMessage(params)}}
			}
			if continueOnFail {
				b.ContinueOnFail = true
			}

			return g.withRuntime(cmd, func(rt *app.Runtime) error {
				out, err := rt.Runner.Run(cmd.Context(), rt.Credentials, b.Items, command.RunOptions{ContinueOnFail: b.ContinueOnFail})
				if out == nil {
					out = []record.Item{}
				}
				if perr := printJSON(cmd.OutOrStdout(), out); perr != nil {
					return perr
				}
				return err
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&params, "params", "p", "", "Operation params as a JSON object")
	f.StringVarP(&file, "file", "f", "", "Batch file ({\"items\": [...]}); - reads stdin")
	f.BoolVar(&continueOnFail, "continue-on-fail", false, "Report failing items instead of aborting")
	return cmd
}

func commandsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List the available operations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs := command.Specs()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), specs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, s := range specs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Resource, s.Operation, s.Summary)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the specs as JSON")
	return cmd
}
