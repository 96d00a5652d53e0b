package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/tgflow/internal/mcpserver"
	"github.com/flemzord/tgflow/pkg/app"
)

func serveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the configured modules (gateway, trigger) until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withRuntime(cmd, func(rt *app.Runtime) error {
				return rt.Serve(cmd.Context())
			})
		},
	}
}

func mcpCmd(g *globals) *cobra.Command {
	var noAuth bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve every operation as an MCP tool over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withRuntime(cmd, func(rt *app.Runtime) error {
				srv := mcpserver.New(mcpserver.Config{
					Executor:    rt.Runner,
					Credentials: rt.Credentials,
					Version:     version,
					Logger:      rt.Logger,
					Limiter:     rt.Limiter,
					Audit:       rt.Audit,
					SkipAuth:    noAuth,
				})
				return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().BoolVar(&noAuth, "no-auth-tools", false, "Leave the sign-in tools out")
	return cmd
}

const serviceStopTimeout = 35 * time.Second

// program runs tgflow serve under the service manager.
type program struct {
	g      *globals
	cancel context.CancelFunc
	done   chan error
}

// Start implements service.Interface. It must not block.
func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		rt, err := p.g.runtime(ctx)
		if err != nil {
			p.done <- err
			return
		}
		err = rt.Serve(ctx)
		p.done <- errors.Join(err, rt.Close(context.WithoutCancel(ctx)))
	}()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case err := <-p.done:
		return err
	case <-time.After(serviceStopTimeout):
		return errors.New("service: timed out waiting for shutdown")
	}
}

// serviceConfig describes the installed service. The config path is made
// absolute since service managers start in another directory.
func serviceConfig(g *globals) (*service.Config, error) {
	args := []string{"service", "run"}
	if g.config != "" {
		abs, err := filepath.Abs(g.config)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if g.dataDir != "" {
		abs, err := filepath.Abs(g.dataDir)
		if err != nil {
			return nil, err
		}
		args = append(args, "--data-dir", abs)
	}
	if g.session != "" {
		args = append(args, "--session", g.session)
	}
	return &service.Config{
		Name:        "tgflow",
		DisplayName: "tgflow",
		Description: "Telegram MTProto gateway and trigger for workflow engines",
		Arguments:   args,
	}, nil
}

func newService(g *globals) (service.Service, error) {
	cfg, err := serviceConfig(g)
	if err != nil {
		return nil, err
	}
	return service.New(&program{g: g}, cfg)
}

func serviceCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage tgflow serve as a system service",
	}

	for _, action := range service.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(g)
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the system service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(g)
			if err != nil {
				return err
			}
			st, err := svc.Status()
			if err != nil && !errors.Is(err, service.ErrNotInstalled) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusText(st, err))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService(g)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})
	return cmd
}

func statusText(st service.Status, err error) string {
	if errors.Is(err, service.ErrNotInstalled) {
		return "not installed"
	}
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
