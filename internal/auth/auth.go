// Package auth implements the phone sign-in flow that produces a session
// string: request a code, submit it, and submit the second factor when the
// account has one.
//
// The Machine is stateless. Each step opens its own connection, closes it on
// every exit path, and returns everything the next step needs; the caller
// carries that state between calls.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/flemzord/tgflow/internal/errs"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/internal/normalize"
	"github.com/flemzord/tgflow/pkg/record"
)

// State is a position in the sign-in flow.
type State string

// Sign-in states.
const (
	StateUnauthenticated   State = "unauthenticated"
	StateCodeRequested     State = "code_requested"
	StateTwoFactorRequired State = "two_factor_required"
	StateAuthenticated     State = "authenticated"
	StateFailed            State = "failed"
)

// ReasonSignUpRequired is the failure reason for an unregistered number.
const ReasonSignUpRequired = "signup_required"

// Params are the application credentials for a sign-in connection.
type Params struct {
	APIID   int
	APIHash string
	Device  mtproto.Device
}

func (p Params) validate() error {
	var problems []error
	if p.APIID == 0 {
		problems = append(problems, errs.Configf("api id is required"))
	}
	if p.APIHash == "" {
		problems = append(problems, errs.Configf("api hash is required"))
	}
	return errors.Join(problems...)
}

func (p Params) dial() mtproto.Params {
	return mtproto.Params{APIID: p.APIID, APIHash: p.APIHash, Device: p.Device}
}

// CodeRequest is the carry-over from RequestCode to SubmitCode.
type CodeRequest struct {
	PhoneCodeHash string
	TempSession   mtproto.Blob
	// Timeout is the delay in seconds before another code may be requested,
	// zero when the server gave none.
	Timeout int
}

// Outcome is the result of SubmitCode or SubmitSecondFactor.
type Outcome struct {
	State State
	// Session is the final session when Authenticated and the temp session
	// to carry forward when TwoFactorRequired.
	Session mtproto.Blob
	User    *record.UserSummary
	Reason  string
}

// SessionCheck reports whether a stored session still works.
type SessionCheck struct {
	Valid   bool                `json:"valid"`
	User    *record.UserSummary `json:"user,omitempty"`
	Error   string              `json:"error,omitempty"`
	Message string              `json:"message"`
}

// Machine runs the sign-in steps.
type Machine struct {
	dialer mtproto.Dialer
	logger *slog.Logger
}

// New creates a Machine that opens its connections with dialer.
func New(dialer mtproto.Dialer, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{dialer: dialer, logger: logger.With("component", "auth")}
}

// withConn dials, runs fn, and always closes the connection. Close errors
// are logged, never returned.
func (m *Machine) withConn(ctx context.Context, p Params, session mtproto.Blob, fn func(mtproto.Conn) error) error {
	conn, err := m.dialer.Dial(ctx, p.dial(), session)
	if err != nil {
		return fmt.Errorf("auth: connect: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			m.logger.Warn("disconnect failed", "error", cerr)
		}
	}()
	return fn(conn)
}

// RequestCode asks the server to send a login code to phone.
func (m *Machine) RequestCode(ctx context.Context, p Params, phone string) (CodeRequest, error) {
	if err := p.validate(); err != nil {
		return CodeRequest{}, err
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return CodeRequest{}, errs.Configf("phone number is required")
	}

	var req CodeRequest
	err := m.withConn(ctx, p, nil, func(conn mtproto.Conn) error {
		sent, err := conn.Auth().SendCode(ctx, phone)
		if err != nil {
			return fmt.Errorf("auth: send code: %w", err)
		}
		temp, err := conn.Session(ctx)
		if err != nil {
			return fmt.Errorf("auth: export temp session: %w", err)
		}
		timeout, _ := sent.GetTimeout()
		req = CodeRequest{PhoneCodeHash: sent.PhoneCodeHash, TempSession: temp, Timeout: timeout}
		return nil
	})
	if err != nil {
		m.logger.Warn("code request failed", "phone", phone, "error", err)
		return CodeRequest{}, err
	}
	m.logger.Info("code requested", "phone", phone, "state", StateCodeRequested)
	return req, nil
}

// SubmitCode signs in with the received code. A password-protected account
// yields TwoFactorRequired with the temp session to carry forward; an
// unregistered number yields Failed with ReasonSignUpRequired.
func (m *Machine) SubmitCode(ctx context.Context, p Params, phone, codeHash, code string, temp mtproto.Blob) (Outcome, error) {
	if err := p.validate(); err != nil {
		return Outcome{State: StateFailed}, err
	}
	if phone == "" || codeHash == "" || code == "" {
		return Outcome{State: StateFailed}, errs.Configf("phone number, phone code hash and code are required")
	}
	if temp.Empty() {
		return Outcome{State: StateFailed}, errs.Configf("temp session from the code request is required")
	}

	var out Outcome
	err := m.withConn(ctx, p, temp, func(conn mtproto.Conn) error {
		user, err := conn.Auth().SignIn(ctx, phone, strings.TrimSpace(code), codeHash)
		switch {
		case errors.Is(err, errs.ErrPasswordNeeded):
			carry, serr := conn.Session(ctx)
			if serr != nil || carry.Empty() {
				carry = temp
			}
			out = Outcome{State: StateTwoFactorRequired, Session: carry}
			return nil
		case errors.Is(err, errs.ErrSignUpRequired):
			out = Outcome{State: StateFailed, Reason: ReasonSignUpRequired}
			return nil
		case err != nil:
			return fmt.Errorf("auth: sign in: %w", err)
		}
		return m.authorized(ctx, conn, user, &out)
	})
	if err != nil {
		m.logger.Warn("code sign-in failed", "phone", phone, "error", err)
		return Outcome{State: StateFailed}, err
	}
	m.logger.Info("code submitted", "phone", phone, "state", out.State)
	return out, nil
}

// SubmitSecondFactor completes sign-in for an account with a password. The
// password is only used to compute the SRP proof and is never sent.
func (m *Machine) SubmitSecondFactor(ctx context.Context, p Params, temp mtproto.Blob, password string) (Outcome, error) {
	if err := p.validate(); err != nil {
		return Outcome{State: StateFailed}, err
	}
	if password == "" {
		return Outcome{State: StateFailed}, errs.Configf("two-factor password is required")
	}
	if temp.Empty() {
		return Outcome{State: StateFailed}, errs.Configf("temp session from the code step is required")
	}

	var out Outcome
	err := m.withConn(ctx, p, temp, func(conn mtproto.Conn) error {
		user, err := conn.Auth().Password(ctx, password)
		if err != nil {
			return fmt.Errorf("auth: check password: %w", err)
		}
		return m.authorized(ctx, conn, user, &out)
	})
	if err != nil {
		m.logger.Warn("second factor failed", "error", err)
		return Outcome{State: StateFailed}, err
	}
	m.logger.Info("second factor accepted", "state", out.State)
	return out, nil
}

func (m *Machine) authorized(ctx context.Context, conn mtproto.Conn, user *tg.User, out *Outcome) error {
	session, err := conn.Session(ctx)
	if err != nil {
		return fmt.Errorf("auth: export session: %w", err)
	}
	*out = Outcome{State: StateAuthenticated, Session: session, User: normalize.Summary(user)}
	return nil
}

// CheckSession connects with session and confirms who it belongs to. It
// never fails: problems are reported in the result.
func (m *Machine) CheckSession(ctx context.Context, p Params, session mtproto.Blob) SessionCheck {
	if session.Empty() {
		return SessionCheck{Error: "no session", Message: "No session string in credentials. Run the authorization flow first."}
	}
	if err := p.validate(); err != nil {
		return invalid(err)
	}

	var check SessionCheck
	err := m.withConn(ctx, p, session, func(conn mtproto.Conn) error {
		user, err := conn.Self(ctx)
		if err != nil {
			return fmt.Errorf("auth: get self: %w", err)
		}
		check = SessionCheck{Valid: true, User: normalize.Summary(user), Message: "Session is valid. You are logged in."}
		return nil
	})
	if err != nil {
		m.logger.Info("session check failed", "error", err)
		return invalid(err)
	}
	return check
}

func invalid(err error) SessionCheck {
	return SessionCheck{
		Error:   err.Error(),
		Message: "Session is invalid or expired. Run the authorization flow again.",
	}
}
