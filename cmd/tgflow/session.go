package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/security"
	"github.com/flemzord/tgflow/pkg/app"
)

func sessionCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage stored sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withRuntime(cmd, func(rt *app.Runtime) error {
				entries, err := rt.Sessions.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No stored sessions.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tUSER ID\tUSERNAME\tUPDATED")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.UserID, e.Username, e.UpdatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withRuntime(cmd, func(rt *app.Runtime) error {
				if err := rt.Sessions.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				rt.Audit.Log(security.AuditEvent{Type: security.EventSessionDelete, Session: args[0]})
				fmt.Fprintf(cmd.OutOrStdout(), "Session %q deleted.\n", args[0])
				return nil
			})
		},
	})

	var str string
	importCmd := &cobra.Command{
		Use:   "import NAME",
		Short: "Store an existing session string, checking it first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := mtproto.ParseBlob(str)
			if err != nil {
				return err
			}
			return g.withRuntime(cmd, func(rt *app.Runtime) error {
				rt.Remember(security.CredSessionString, str)
				check := rt.Auth.CheckSession(cmd.Context(), rt.Credentials.AuthParams(), blob)
				if !check.Valid {
					return fmt.Errorf("session rejected: %s", check.Error)
				}
				if err := rt.SaveSession(cmd.Context(), args[0], blob, check.User); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %q imported.\n", args[0])
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&str, "string", "", "Session string to import")
	_ = importCmd.MarkFlagRequired("string")
	cmd.AddCommand(importCmd)
	return cmd
}
