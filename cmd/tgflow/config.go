package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flemzord/tgflow/internal/config"
	"github.com/flemzord/tgflow/internal/core"
	"github.com/flemzord/tgflow/pkg/app"
)

func configCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision the configured modules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				g.config = args[0]
			}
			return g.withRuntime(cmd, func(rt *app.Runtime) error {
				out := cmd.OutOrStdout()
				if len(rt.Config.Modules) == 0 {
					fmt.Fprintln(out, "Configuration OK (no modules, one-shot commands only)")
					return nil
				}
				if err := config.ValidateModules(rt.Config); err != nil {
					return err
				}

				application := core.NewApp(rt.AppContext())
				ids := config.Resolve(rt.Config)
				if err := application.LoadModules(ids); err != nil {
					return err
				}
				defer application.Stop()

				fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
				for _, id := range ids {
					fmt.Fprintf(out, "  %s\n", id)
				}
				return nil
			})
		},
	})
	return cmd
}
