// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Naudiz dependency-validation tools for LLM integration
// via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/naudiz/internal/valsvc"
)

// Server wraps the MCP server with Naudiz tools.
type Server struct {
	mcp *server.MCPServer
	svc *valsvc.Service
}

// New creates a new MCP server with all Naudiz tools registered.
func New(svc *valsvc.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Naudiz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_manifests",
		mcp.WithDescription("List all indexed package.json manifests with their validation status."),
	), s.listManifests)

	s.mcp.AddTool(mcp.NewTool("get_diagnostics",
		mcp.WithDescription("Get the stored validation diagnostics for a manifest. "+
			"Diagnostics follow the format described by the naudiz://diagnostic-format "+
			"resource (also available via the get_diagnostic_format tool)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative manifest path (e.g. packages/web/package.json)")),
	), s.getDiagnostics)

	s.mcp.AddTool(mcp.NewTool("validate_manifest",
		mcp.WithDescription("Re-read a manifest from disk, validate its dependencies against "+
			"node_modules, store the result, and return the fresh diagnostics."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative manifest path")),
	), s.validateManifest)

	s.mcp.AddTool(mcp.NewTool("install_command",
		mcp.WithDescription("Build the package manager install command that would remediate "+
			"a manifest's diagnostics. Detects npm/pnpm/yarn from lockfiles. Returns the "+
			"command string without executing it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative manifest path")),
		mcp.WithString("name", mcp.Description("Optional dependency name to install (empty installs everything)")),
		mcp.WithString("range", mcp.Description("Optional declared range to pin (used with name)")),
	), s.installCommand)

	s.mcp.AddTool(mcp.NewTool("get_diagnostic_format",
		mcp.WithDescription("Returns the canonical Naudiz diagnostic format. "+
			"Call this before interpreting diagnostics programmatically."),
	), s.getDiagnosticFormat)

	// Resource: diagnostic format contract.
	s.mcp.AddResource(
		mcp.NewResource("naudiz://diagnostic-format", "Diagnostic Format",
			mcp.WithResourceDescription("Canonical structure of Naudiz validation diagnostics."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDiagnosticFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listManifests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDiagnostics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) validateManifest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Validate(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validate %s: %v", path, err)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) installCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := req.GetString("name", "")
	rng := req.GetString("range", "")

	cmd, root, err := s.svc.InstallCommand(ctx, path, name, rng)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("install command for %s: %v", path, err)), nil
	}
	out, _ := json.MarshalIndent(map[string]string{
		"command": cmd,
		"root":    root,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDiagnosticFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DiagnosticFormatContract), nil
}

func (s *Server) readDiagnosticFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "naudiz://diagnostic-format",
			MIMEType: "text/markdown",
			Text:     DiagnosticFormatContract,
		},
	}, nil
}
