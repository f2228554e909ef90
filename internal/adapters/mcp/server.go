package mcpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
	"github.com/kirillkom/webpage-chat/internal/core/ports"
)

const (
	ToolLoadWebpage  = "load_webpage"
	ToolAsk          = "ask"
	ToolClearSession = "clear_session"
)

// Server exposes one chat session as MCP tools.
type Server struct {
	sessions  ports.SessionService
	sessionID string
	mcp       *server.MCPServer
}

func NewServer(sessions ports.SessionService, sessionID, version string) *Server {
	s := &Server{
		sessions:  sessions,
		sessionID: sessionID,
		mcp:       server.NewMCPServer("webpage-chat", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(ToolLoadWebpage,
		mcp.WithDescription("Fetch a webpage and index its text for questions. Only one page can be loaded until the session is cleared."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http or https URL of the page")),
	), s.handleLoadWebpage)

	s.mcp.AddTool(mcp.NewTool(ToolAsk,
		mcp.WithDescription("Ask a question about the loaded webpage. Earlier questions and answers are used as context."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question in natural language")),
	), s.handleAsk)

	s.mcp.AddTool(mcp.NewTool(ToolClearSession,
		mcp.WithDescription("Forget the loaded webpage and the conversation history."),
	), s.handleClear)

	return s
}

// ServeStdio blocks serving the protocol on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleLoadWebpage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.sessions.SubmitURL(ctx, s.sessionID, url)
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", ToolLoadWebpage, "error", err)
		return mcp.NewToolResultError(toolErrorText(err)), nil
	}
	if result.Ignored {
		return mcp.NewToolResultText(fmt.Sprintf(
			"A webpage is already loaded (%s). Call %s before loading another one.", result.URL, ToolClearSession,
		)), nil
	}

	text := fmt.Sprintf("Webpage loaded successfully! Ask me anything about it.\nURL: %s\nPassages: %d", result.URL, result.Passages)
	if result.Title != "" {
		text += "\nTitle: " + result.Title
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := s.sessions.Ask(ctx, s.sessionID, question)
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", ToolAsk, "error", err)
		return mcp.NewToolResultError(toolErrorText(err)), nil
	}
	return mcp.NewToolResultText(answer.Text), nil
}

func (s *Server) handleClear(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.sessions.Clear(ctx, s.sessionID); err != nil {
		return mcp.NewToolResultError(toolErrorText(err)), nil
	}
	return mcp.NewToolResultText("Session cleared. Load a new webpage to continue."), nil
}

func toolErrorText(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrFetch):
		return "could not load the webpage: " + err.Error()
	case domain.IsKind(err, domain.ErrEmbedding), domain.IsKind(err, domain.ErrIndex):
		return "could not index the webpage: " + err.Error()
	case domain.IsKind(err, domain.ErrGeneration):
		return "could not generate an answer: " + err.Error()
	case domain.IsKind(err, domain.ErrTemporary):
		return "backend temporarily unavailable, try again later: " + err.Error()
	default:
		return strings.TrimSpace(err.Error())
	}
}
