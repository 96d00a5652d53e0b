package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/command"
	"github.com/flemzord/tgflow/internal/security"
	"github.com/flemzord/tgflow/pkg/app"
)

// authCmd exposes the sign-in steps one at a time, for scripts that carry
// the temp session between invocations.
func authCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run a single sign-in step",
	}

	step := func(operation, short string, params func() (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   operation,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				p, err := params()
				if err != nil {
					return err
				}
				raw, err := json.Marshal(p)
				if err != nil {
					return err
				}
				return g.withRuntime(cmd, func(rt *app.Runtime) error {
					item := command.Item{Resource: "auth", Operation: operation, Params: raw}
					out, err := rt.Runner.Run(cmd.Context(), rt.Credentials, []command.Item{item}, command.RunOptions{})
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), out)
				})
			},
		}
	}

	none := func() (any, error) { return struct{}{}, nil }

	var hash, code, temp string
	submitCode := step("submitCode", "Sign in with the received code", func() (any, error) {
		if hash == "" || code == "" || temp == "" {
			return nil, errors.New("--hash, --code and --temp are required")
		}
		return map[string]string{"phoneCodeHash": hash, "phoneCode": code, "tempSession": temp}, nil
	})
	submitCode.Flags().StringVar(&hash, "hash", "", "phoneCodeHash from requestCode")
	submitCode.Flags().StringVar(&code, "code", "", "Code received")
	submitCode.Flags().StringVar(&temp, "temp", "", "tempSession from requestCode")

	var temp2FA string
	submit2FA := step("submit2FA", "Complete sign-in with credentials.two_factor_password", func() (any, error) {
		if temp2FA == "" {
			return nil, errors.New("--temp is required")
		}
		return map[string]string{"tempSession2FA": temp2FA}, nil
	})
	submit2FA.Flags().StringVar(&temp2FA, "temp", "", "tempSession2FA from submitCode")

	cmd.AddCommand(
		step("requestCode", "Send a login code to credentials.phone_number", none),
		submitCode,
		submit2FA,
		step("checkSession", "Check that the session works", none),
	)
	return cmd
}

// loginCmd walks through the whole sign-in interactively and prints the
// session string.
func loginCmd(g *globals) *cobra.Command {
	var (
		save  string
		phone string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in interactively and print the session string",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withRuntime(cmd, func(rt *app.Runtime) error {
				res, err := login(cmd.Context(), rt, huhPrompter{}, phone)
				if err != nil {
					return err
				}
				rt.Remember(security.CredSessionString, res.Session.String())

				out := cmd.OutOrStdout()
				if res.User != nil {
					fmt.Fprintf(out, "Signed in as user %s\n", res.User.ID)
				}
				if save != "" {
					if err := rt.SaveSession(cmd.Context(), save, res.Session, res.User); err != nil {
						return err
					}
					fmt.Fprintf(out, "Session saved as %q. Use --session %s or credentials.session.\n", save, save)
					return nil
				}
				fmt.Fprintln(out, "Session string (keep it secret):")
				fmt.Fprintln(out, res.Session.String())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "Store the session under this name instead of printing it")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number (default credentials.phone_number)")
	return cmd
}

// prompter asks the user for sign-in input.
type prompter interface {
	Ask(ctx context.Context, title string, secret bool) (string, error)
}

type huhPrompter struct{}

func (huhPrompter) Ask(ctx context.Context, title string, secret bool) (string, error) {
	var v string
	input := huh.NewInput().
		Title(title).
		Value(&v).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("required")
			}
			return nil
		})
	if secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if err := huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx); err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// login runs RequestCode, SubmitCode and, when needed, SubmitSecondFactor.
// The configured two-factor password is used before prompting for one.
func login(ctx context.Context, rt *app.Runtime, ask prompter, phone string) (auth.Outcome, error) {
	creds := rt.Credentials
	if phone == "" {
		phone = creds.PhoneNumber
	}
	if phone == "" {
		var err error
		if phone, err = ask.Ask(ctx, "Phone number (international format, e.g. +15550001111)", false); err != nil {
			return auth.Outcome{}, err
		}
	}
	rt.Remember(security.CredPhoneNumber, phone)
	p := creds.AuthParams()

	req, err := rt.Auth.RequestCode(ctx, p, phone)
	if err != nil {
		return auth.Outcome{}, err
	}
	code, err := ask.Ask(ctx, "Login code", false)
	if err != nil {
		return auth.Outcome{}, err
	}
	out, err := rt.Auth.SubmitCode(ctx, p, phone, req.PhoneCodeHash, code, req.TempSession)
	if err != nil {
		return auth.Outcome{}, err
	}

	if out.State == auth.StateTwoFactorRequired {
		password := creds.TwoFactorPassword
		if password == "" {
			if password, err = ask.Ask(ctx, "Two-factor password", true); err != nil {
				return auth.Outcome{}, err
			}
		}
		rt.Remember(security.CredTwoFactorPassword, password)
		if out, err = rt.Auth.SubmitSecondFactor(ctx, p, out.Session, password); err != nil {
			return auth.Outcome{}, err
		}
	}

	switch out.State {
	case auth.StateAuthenticated:
		return out, nil
	case auth.StateFailed:
		if out.Reason == auth.ReasonSignUpRequired {
			return auth.Outcome{}, errors.New("this phone number has no account; sign up with an official app first")
		}
		return auth.Outcome{}, fmt.Errorf("sign-in failed: %s", out.Reason)
	default:
		return auth.Outcome{}, fmt.Errorf("sign-in stopped in state %s", out.State)
	}
}
