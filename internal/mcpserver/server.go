// Package mcpserver exposes every command as an MCP tool over stdio, so an
// assistant can drive the same operations the gateway serves.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/tgflow/internal/client"
	"github.com/flemzord/tgflow/internal/command"
	"github.com/flemzord/tgflow/internal/security"
	"github.com/flemzord/tgflow/pkg/record"
)

// Executor runs command batches. *command.Runner implements it.
type Executor interface {
	Run(ctx context.Context, creds client.Credentials, items []command.Item, opts command.RunOptions) ([]record.Item, error)
}

// Config wires a Server.
type Config struct {
	Executor    Executor
	Credentials client.Credentials
	Version     string
	Logger      *slog.Logger
	// Limiter and Audit are optional.
	Limiter *security.RateLimiter
	Audit   *security.AuditLogger
	// SkipAuth leaves the sign-in tools out.
	SkipAuth bool
}

// Server is an MCP server with one tool per command.
type Server struct {
	cfg    Config
	logger *slog.Logger
	mcp    *server.MCPServer
	tools  []mcp.Tool
	// byTool maps a tool name back to its command.
	byTool map[string]command.Spec
}

// New builds the server and registers the tools.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.With("component", "mcp"),
		mcp:    server.NewMCPServer("tgflow", version, server.WithToolCapabilities(false), server.WithRecovery()),
		byTool: make(map[string]command.Spec),
	}
	for _, spec := range command.Specs() {
		if cfg.SkipAuth && spec.Resource == "auth" {
			continue
		}
		tool := NewTool(spec)
		s.tools = append(s.tools, tool)
		s.byTool[tool.Name] = spec
		s.mcp.AddTool(tool, s.handler(spec))
	}
	return s
}

// Tools returns the registered tools in command order.
func (s *Server) Tools() []mcp.Tool { return s.tools }

// Serve speaks MCP over in and out until ctx is done or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving tools", "count", len(s.tools))
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// ToolName is the MCP name of a command: "message_send" for message.send.
func ToolName(spec command.Spec) string {
	return spec.Resource + "_" + spec.Operation
}

// NewTool describes spec as an MCP tool.
func NewTool(spec command.Spec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Summary)}
	for _, p := range spec.Params {
		popts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		switch p.Type {
		case "number":
			opts = append(opts, mcp.WithNumber(p.Name, popts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(p.Name, popts...))
		case "object":
			opts = append(opts, mcp.WithObject(p.Name, popts...))
		case "array":
			opts = append(opts, mcp.WithArray(p.Name, popts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, popts...))
		}
	}
	return mcp.NewTool(ToolName(spec), opts...)
}

func (s *Server) handler(spec command.Spec) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.call(ctx, spec, req.GetArguments()), nil
	}
}

// call runs one command. Failures become error results rather than
// protocol errors so the assistant sees the message.
func (s *Server) call(ctx context.Context, spec command.Spec, args map[string]any) *mcp.CallToolResult {
	signIn := spec.Resource == "auth"
	bucket, event := security.KindExecute, security.EventExecute
	if signIn {
		bucket, event = security.KindSignIn, security.EventSignIn
	}
	if s.cfg.Limiter != nil {
		if err := s.cfg.Limiter.Allow(bucket); err != nil {
			s.audit(security.AuditEvent{Type: security.EventRateLimit, Resource: spec.Resource, Operation: spec.Operation, Detail: err.Error()})
			return mcp.NewToolResultError(err.Error())
		}
	}

	params, err := json.Marshal(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err))
	}
	s.audit(security.AuditEvent{Type: event, Resource: spec.Resource, Operation: spec.Operation})

	item := command.Item{Resource: spec.Resource, Operation: spec.Operation, Params: params}
	out, err := s.cfg.Executor.Run(ctx, s.cfg.Credentials, []command.Item{item}, command.RunOptions{})
	if err != nil {
		s.logger.Warn("tool failed", "tool", ToolName(spec), "error", err)
		return mcp.NewToolResultError(err.Error())
	}
	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(body))
}

func (s *Server) audit(e security.AuditEvent) {
	if s.cfg.Audit == nil {
		return
	}
	if e.Metadata == nil {
		e.Metadata = map[string]string{"surface": "mcp"}
	}
	s.cfg.Audit.Log(e)
}

// Lookup returns the command behind a tool name.
func (s *Server) Lookup(tool string) (command.Spec, bool) {
	spec, ok := s.byTool[strings.TrimSpace(tool)]
	return spec, ok
}
