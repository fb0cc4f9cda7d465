// Package mcp exposes a pulse engine as Model Context Protocol tools and resources.
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

	"github.com/aretw0/pulse"
	"github.com/aretw0/pulse/internal/logging"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/expr"
	"github.com/aretw0/pulse/pkg/ports"
)

// TemplatesURI lists the template IDs; TemplateURIPrefix + id is the inspection of one template.
const (
	TemplatesURI      = "pulse://templates"
	TemplateURIPrefix = "pulse://templates/"
)

// Engine defines the interface required by the MCP server to interact with Pulse.
type Engine = ports.Renderer

// TemplateArgs selects a template.
type TemplateArgs struct {
	ID string `json:"id"`
}

// SampleArgs are the arguments of sample_template. Numbers may be JSON
// numbers or strings ("0.2", "1/3").
type SampleArgs struct {
	ID         string        `json:"id"`
	Rate       expr.Number   `json:"rate"`
	Parameters expr.Bindings `json:"parameters,omitempty"`
}

// TemplateList is the result of list_templates.
type TemplateList struct {
	Templates []string `json:"templates" jsonschema_description:"Sorted template IDs"`
}

// SampleResult is the result of sample_template.
type SampleResult struct {
	Template string               `json:"template"`
	Channels []string             `json:"channels" jsonschema_description:"Sorted channel names"`
	Rate     string               `json:"rate" jsonschema_description:"Sample rate, exact"`
	Duration string               `json:"duration" jsonschema_description:"Bound duration, exact"`
	Samples  int                  `json:"samples"`
	Times    []float64            `json:"times"`
	Values   map[string][]float64 `json:"values" jsonschema_description:"Channel name to one value per time"`
}

// Server wraps the Pulse Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("pulse-mcp", strings.TrimSpace(pulse.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

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
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
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

		s.logger.Info("shutting down MCP server")
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the IDs of every loaded pulse template."),
		mcp.WithOutputSchema[TemplateList](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("inspect_template",
		mcp.WithDescription("Describe a template symbolically: kind, channels, duration, integrals and free parameters."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template ID")),
		mcp.WithOutputSchema[domain.Inspection](),
	), mcp.NewStructuredToolHandler(s.handleInspect))

	s.mcpServer.AddTool(mcp.NewTool("sample_template",
		mcp.WithDescription("Bind a template's parameters and sample every channel at the given rate."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template ID")),
		mcp.WithString("rate", mcp.Required(), mcp.Description("Samples per time unit, e.g. \"100\" or \"1/3\"")),
		mcp.WithObject("parameters", mcp.Description("Parameter values by name; numbers or numeric strings")),
		mcp.WithOutputSchema[SampleResult](),
	), mcp.NewStructuredToolHandler(s.handleSample))
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, _ struct{}) (TemplateList, error) {
	ids, err := s.engine.List()
	if err != nil {
		return TemplateList{}, fmt.Errorf("list failed: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return TemplateList{Templates: ids}, nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest, args TemplateArgs) (domain.Inspection, error) {
	if args.ID == "" {
		return domain.Inspection{}, errors.New("id is required")
	}
	return s.engine.Inspect(args.ID)
}

func (s *Server) handleSample(ctx context.Context, request mcp.CallToolRequest, args SampleArgs) (SampleResult, error) {
	if args.ID == "" {
		return SampleResult{}, errors.New("id is required")
	}
	w, err := s.engine.Render(ctx, args.ID, args.Rate, args.Parameters)
	if err != nil {
		s.logger.Debug("MCP sample_template failed", "template", args.ID, "err", err)
		return SampleResult{}, err
	}
	return SampleResult{
		Template: w.Template,
		Channels: w.Channels,
		Rate:     w.Rate.String(),
		Duration: w.Duration.String(),
		Samples:  w.Len(),
		Times:    w.Times,
		Values:   w.Values,
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TemplatesURI, "Pulse templates",
		mcp.WithResourceDescription("IDs of every loaded template"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.engine.List()
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		return jsonResource(TemplatesURI, ids)
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(TemplateURIPrefix+"{id}", "Pulse template inspection",
		mcp.WithTemplateDescription("Symbolic summary of one template"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := request.Params.URI
		in, err := s.engine.Inspect(strings.TrimPrefix(uri, TemplateURIPrefix))
		if err != nil {
			return nil, err
		}
		return jsonResource(uri, in)
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
