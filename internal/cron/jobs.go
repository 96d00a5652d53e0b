package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/mtproto"
)

// SessionChecker is the subset of auth.Machine needed by SessionCheckJob.
type SessionChecker interface {
	CheckSession(ctx context.Context, p auth.Params, session mtproto.Blob) auth.SessionCheck
}

// SessionCheckJob periodically confirms that the configured session still
// signs in, so an expired or revoked session shows up on /health before a
// workflow fails on it.
type SessionCheckJob struct {
	Checker      SessionChecker
	Params       auth.Params
	Session      mtproto.Blob
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/15 * * * *"
	// OnResult, if set, sees every check.
	OnResult func(auth.SessionCheck)

	mu      sync.Mutex
	last    *auth.SessionCheck
	checked time.Time
}

// Compile-time interface check.
var _ Job = (*SessionCheckJob)(nil)

// Name implements Job.
func (j *SessionCheckJob) Name() string { return "session_check" }

// Schedule implements Job.
func (j *SessionCheckJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run checks the session. An invalid session is logged and recorded, not
// returned as an error: the job itself did its work.
func (j *SessionCheckJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res := j.Checker.CheckSession(ctx, j.Params, j.Session)

	j.mu.Lock()
	j.last = &res
	j.checked = time.Now()
	j.mu.Unlock()

	if res.Valid {
		j.Logger.Debug("cron: session valid", "user", res.User)
	} else {
		j.Logger.Warn("cron: session invalid", "error", res.Error)
	}
	if j.OnResult != nil {
		j.OnResult(res)
	}
	return nil
}

// Last returns the most recent result and when it was taken. ok is false
// before the first run.
func (j *SessionCheckJob) Last() (res auth.SessionCheck, at time.Time, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return auth.SessionCheck{}, time.Time{}, false
	}
	return *j.last, j.checked, true
}
