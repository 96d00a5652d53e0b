package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/flemzord/tgflow/internal/auth"
	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/mtproto"
	"github.com/flemzord/tgflow/pkg/record"
)

// Item is one raw request in a batch.
type Item struct {
	Resource  string          `json:"resource"`
	Operation string          `json:"operation"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// RunOptions tune a batch.
type RunOptions struct {
	// ContinueOnFail turns a failing item into an {"error": ...} output
	// instead of aborting the batch.
	ContinueOnFail bool `json:"continueOnFail"`
}

// Runner executes batches of items on one connection.
type Runner struct {
	dialer  mtproto.Dialer
	auth    Authenticator
	logger  *slog.Logger
	options []client.Option
}

// NewRunner returns a Runner that dials with dialer. Client options such as
// an observer are applied to every client it creates.
func NewRunner(dialer mtproto.Dialer, logger *slog.Logger, opts ...client.Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		dialer:  dialer,
		auth:    auth.New(dialer, logger),
		logger:  logger.With("component", "runner"),
		options: append([]client.Option{client.WithLogger(logger)}, opts...),
	}
}

// Run executes items in order and returns their outputs. The client
// connects on the first item that needs it and disconnects when Run
// returns. Sign-in items never connect.
//
// A list result becomes one output per element, and an empty result
// becomes {"success": true}. Without ContinueOnFail the first failure
// aborts the batch; the outputs gathered so far are returned with the
// error.
func (r *Runner) Run(ctx context.Context, creds client.Credentials, items []Item, opts RunOptions) ([]record.Item, error) {
	var c *client.Client
	defer func() {
		if c != nil {
			c.Disconnect()
		}
	}()

	out := make([]record.Item, 0, len(items))
	for i, it := range items {
		result, err := r.runOne(ctx, creds, &c, it)
		if err != nil {
			r.logger.Warn("item failed", "index", i, "resource", it.Resource, "operation", it.Operation, "error", err)
			if !opts.ContinueOnFail {
				return out, fmt.Errorf("item %d (%s.%s): %w", i, it.Resource, it.Operation, err)
			}
			out = append(out, failure(it, err))
			continue
		}
		out = append(out, expand(result)...)
	}
	return out, nil
}

func (r *Runner) runOne(ctx context.Context, creds client.Credentials, c **client.Client, it Item) (any, error) {
	cmd, err := Decode(it.Resource, it.Operation, it.Params)
	if err != nil {
		return nil, err
	}
	if isAuth(cmd) {
		return ExecuteAuth(ctx, r.auth, creds, cmd)
	}
	if *c == nil {
		cl := client.New(creds, r.dialer, r.options...)
		if err := cl.Connect(ctx); err != nil {
			return nil, err
		}
		*c = cl
	}
	return Execute(ctx, *c, cmd)
}

// failure renders a failed item. Sign-in failures keep the sign-in
// response shape.
func failure(it Item, err error) record.Item {
	if it.Resource == "auth" {
		return record.Item{JSON: auth.Response{Error: err.Error()}}
	}
	return record.Item{JSON: record.Failure{Error: err.Error()}}
}

// expand turns a result into output items.
func expand(v any) []record.Item {
	if isNil(v) {
		return []record.Item{{JSON: record.Success{Success: true}}}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []record.Item{{JSON: v}}
	}
	out := make([]record.Item, 0, rv.Len())
	for i := range rv.Len() {
		out = append(out, record.Item{JSON: rv.Index(i).Interface()})
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
