package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/formwire/internal/logging"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/ports"
)

// SessionResponse is the structured result of open_session.
type SessionResponse struct {
	SessionID string          `json:"session_id" jsonschema_description:"ID to pass to submit_event and close_session"`
	Commands  json.RawMessage `json:"commands" jsonschema_description:"Commands rendering the whole form"`
}

// Server exposes a Kernel as an MCP server.
type Server struct {
	kernel    ports.Kernel
	locale    string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDefaultLocale sets the locale used by open_session when none is given.
func WithDefaultLocale(locale string) Option {
	return func(s *Server) { s.locale = locale }
}

// NewServer creates a new MCP Server instance.
func NewServer(kernel ports.Kernel, version string, opts ...Option) *Server {
	s := &Server{
		kernel: kernel,
		locale: "en",
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("formwire-mcp", strings.TrimSpace(version),
			server.WithToolCapabilities(true),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_forms",
		mcp.WithDescription("List the IDs of the forms that can be opened."),
	), s.handleListForms)

	s.mcpServer.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open a session on a form. Returns the session ID and the commands of the initial render."),
		mcp.WithString("form_id", mcp.Required(), mcp.Description("Form to open")),
		mcp.WithString("locale", mcp.Description("BCP 47 locale for messages (optional)")),
	), s.handleOpenSession)

	s.mcpServer.AddTool(mcp.NewTool("submit_event",
		mcp.WithDescription("Send one interaction with a field: a new value for an input, or a click on submit or cancel. Returns the commands to apply."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by open_session")),
		mcp.WithString("field_id", mcp.Required(), mcp.Description("Field the user interacted with")),
		mcp.WithString("value", mcp.Description("New value; omit for a null value or a button")),
	), s.handleSubmitEvent)

	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Close a session and discard its state."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to close")),
	), s.handleCloseSession)
}

func (s *Server) handleListForms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	forms, err := s.kernel.Forms()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list forms failed: %v", err)), nil
	}
	if forms == nil {
		forms = []string{}
	}
	b, _ := json.Marshal(forms)
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) handleOpenSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formID, err := request.RequireString("form_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	locale := request.GetString("locale", s.locale)

	id, payload, err := s.kernel.Open(ctx, formID, locale)
	if err != nil {
		return s.toolError(locale, err), nil
	}
	b, _ := json.Marshal(SessionResponse{SessionID: id, Commands: payload})
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) handleSubmitEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var value *string
	if v, ok := request.GetArguments()["value"].(string); ok {
		value = &v
	}

	payload, err := s.kernel.SubmitEvent(ctx, sessionID, fieldID, value)
	if err != nil {
		s.logger.Warn("MCP submit_event failed", "session_id", sessionID, "field_id", fieldID, "err", err)
		return s.toolError(s.locale, err), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.kernel.Close(ctx, sessionID); err != nil {
		return s.toolError(s.locale, err), nil
	}
	return mcp.NewToolResultText("closed"), nil
}

// toolError hides internal causes the same way the HTTP adapter does.
func (s *Server) toolError(locale string, err error) *mcp.CallToolResult {
	switch {
	case domain.IsTransient(err):
		return mcp.NewToolResultError(s.kernel.Translate(locale, domain.KeyRetry))
	case domain.IsConfiguration(err):
		return mcp.NewToolResultError(s.kernel.Translate(locale, domain.KeyInternal))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("formwire://forms", "Available forms",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		forms, err := s.kernel.Forms()
		if err != nil {
			return nil, fmt.Errorf("failed to list forms: %w", err)
		}
		b, _ := json.Marshal(forms)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "formwire://forms",
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	})
}
