// Package main is the entry point for the tgflow CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/tgflow/internal/core"
	"github.com/flemzord/tgflow/pkg/app"

	// Modules available to tgflow serve.
	_ "github.com/flemzord/tgflow/internal/gateway"
	_ "github.com/flemzord/tgflow/internal/trigger"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every command.
type globals struct {
	config   string
	dataDir  string
	session  string
	logLevel string
}

// runtime loads the configuration and wires the components.
func (g *globals) runtime(ctx context.Context) (*app.Runtime, error) {
	return app.Load(ctx, app.Params{
		ConfigPath: g.config,
		Version:    version,
		DataDir:    g.dataDir,
		Session:    g.session,
		LogLevel:   g.logLevel,
	})
}

// withRuntime runs fn with a loaded runtime and closes it afterwards.
func (g *globals) withRuntime(cmd *cobra.Command, fn func(*app.Runtime) error) (err error) {
	rt, err := g.runtime(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(context.WithoutCancel(cmd.Context())); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(rt)
}

func rootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "tgflow",
		Short:         "Telegram MTProto operations for workflow engines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "", "Path to configuration file")
	pf.StringVar(&g.dataDir, "data-dir", "", "Data directory (default $XDG_DATA_HOME/tgflow)")
	pf.StringVarP(&g.session, "session", "s", "", "Stored session to run as")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		versionCmd(),
		configCmd(g),
		authCmd(g),
		loginCmd(g),
		execCmd(g),
		commandsCmd(),
		serveCmd(g),
		mcpCmd(g),
		serviceCmd(g),
		sessionCmd(g),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tgflow %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
