// Package mcpserver exposes the contextbridge tools to MCP clients over stdio.
package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/contextbridge/internal/contextservice"
	"github.com/starford/contextbridge/internal/models"
)

// Version is reported to clients during initialization.
const Version = "1.0.0"

const handoffFormatURI = "contextbridge://handoff-format"

// Calls to unregistered tool names are rerouted to this hidden tool, with the
// requested name as its only argument, so they get an error text result from
// the Dispatcher instead of a JSON-RPC error.
const (
	unknownToolRoute = "contextbridge.unknown_tool"
	unknownToolArg   = "name"
)

// Server wraps the MCP server with the contextbridge tools.
type Server struct {
	mcp        *server.MCPServer
	dispatcher *Dispatcher
	logger     *slog.Logger
	known      map[string]struct{}
}

// New creates a new MCP server with all tools registered.
func New(svc *contextservice.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{dispatcher: NewDispatcher(svc), logger: logger, known: make(map[string]struct{})}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(s.routeUnknownTool)

	s.mcp = server.NewMCPServer(
		"contextbridge",
		Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions(Instructions),
		server.WithHooks(hooks),
		server.WithToolFilter(hideUnknownToolRoute),
		server.WithToolHandlerMiddleware(s.logToolCall),
		server.WithRecovery(),
	)

	for _, tool := range Tools() {
		s.known[tool.Name] = struct{}{}
		s.mcp.AddTool(tool, s.handle)
	}
	s.mcp.AddTool(mcp.NewTool(unknownToolRoute, mcp.WithString(unknownToolArg)), s.handleUnknown)

	s.mcp.AddResource(
		mcp.NewResource(handoffFormatURI, "Handoff Format",
			mcp.WithResourceDescription("How saved context is laid out and how to resume from it."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readHandoffFormat,
	)

	return s
}

// Tools returns the tool definitions in registration order.
func Tools() []mcp.Tool {
	statuses := make([]string, 0, len(models.ProjectStatuses))
	for _, st := range models.ProjectStatuses {
		statuses = append(statuses, string(st))
	}
	stringItems := mcp.Items(map[string]any{"type": "string"})

	return []mcp.Tool{
		mcp.NewTool(ToolSaveContext,
			mcp.WithDescription("Save the current conversation context as a new numbered chat entry "+
				"and mark it as the most recent entry of its project."),
			mcp.WithString("summary", mcp.Required(), mcp.Description("Summary of the conversation")),
			mcp.WithString("projectName", mcp.Description("Project to file the entry under (default: General Inquiries)")),
			mcp.WithArray("keyDecisions", mcp.Description("Key decisions made"), stringItems),
			mcp.WithArray("nextActions", mcp.Description("Next actions to complete"), stringItems),
			mcp.WithArray("tags", mcp.Description("Tags for the entry"), stringItems),
		),
		mcp.NewTool(ToolGetContext,
			mcp.WithDescription("Load a previously saved context by session id."),
			mcp.WithString("sessionId", mcp.Required(), mcp.Description("Session id returned by save_context")),
		),
		mcp.NewTool(ToolListProjects,
			mcp.WithDescription("List projects, newest first."),
			mcp.WithBoolean("includeArchived", mcp.Description("Include projects with status Done"), mcp.DefaultBool(false)),
		),
		mcp.NewTool(ToolCreateProject,
			mcp.WithDescription("Create a new project."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
			mcp.WithString("description", mcp.Description("Project goal")),
			mcp.WithString("status",
				mcp.Description("Initial status"),
				mcp.Enum(statuses...),
				mcp.DefaultString(string(models.StatusNotStarted)),
			),
		),
	}
}

// ServeStdio serves MCP on the given streams until ctx is cancelled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatcher.Dispatch(ctx, req.Params.Name, req.GetArguments()), nil
}

func (s *Server) handleUnknown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatcher.Dispatch(ctx, req.GetString(unknownToolArg, req.Params.Name), nil), nil
}

// routeUnknownTool runs before mcp-go looks the tool up.
func (s *Server) routeUnknownTool(ctx context.Context, id any, req *mcp.CallToolRequest) {
	if _, ok := s.known[req.Params.Name]; ok {
		return
	}
	req.Params.Arguments = map[string]any{unknownToolArg: req.Params.Name}
	req.Params.Name = unknownToolRoute
}

func hideUnknownToolRoute(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	visible := tools[:0:0]
	for _, tool := range tools {
		if tool.Name != unknownToolRoute {
			visible = append(visible, tool)
		}
	}
	return visible
}

func (s *Server) logToolCall(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := next(ctx, req)
		isError := err != nil || (res != nil && res.IsError)
		level := slog.LevelInfo
		if isError {
			level = slog.LevelWarn
		}
		tool := req.Params.Name
		if tool == unknownToolRoute {
			tool = req.GetString(unknownToolArg, tool)
		}
		s.logger.Log(ctx, level, "tool call",
			"tool", tool,
			"duration", time.Since(start),
			"error", isError,
		)
		return res, err
	}
}

func (s *Server) readHandoffFormat(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      handoffFormatURI,
			MIMEType: "text/markdown",
			Text:     HandoffFormat,
		},
	}, nil
}
