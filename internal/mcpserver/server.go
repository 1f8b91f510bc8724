// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes schemasync tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/schemasync/internal/templateservice"
)

const registryURI = "schemasync://registry"

// Server wraps the MCP server with schemasync tools.
type Server struct {
	mcp *server.MCPServer
	svc *templateservice.Service
}

// New creates a new MCP server with all schemasync tools registered.
func New(svc *templateservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"schemasync",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List every registered template pattern with the migration files it matches."),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("preview_sync",
		mcp.WithDescription("Report which migration files would change, without writing anything."),
		mcp.WithString("pattern", mcp.Description("Optional template pattern to restrict the preview to")),
	), s.previewSync)

	s.mcp.AddTool(mcp.NewTool("sync_templates",
		mcp.WithDescription("Rewrite the table definition of every matching migration file "+
			"with its canonical template. Files already up to date are not written."),
		mcp.WithString("pattern", mcp.Description("Optional template pattern to restrict the run to")),
		mcp.WithBoolean("dry_run", mcp.Description("Compute outcomes without writing files")),
	), s.syncTemplates)

	s.mcp.AddTool(mcp.NewTool("get_template_contract",
		mcp.WithDescription("Returns the registry template format contract. "+
			"Call this before proposing registry edits."),
	), s.getTemplateContract)

	s.mcp.AddResource(
		mcp.NewResource(registryURI, "Template Registry",
			mcp.WithResourceDescription("The template registry as currently stored on disk."),
			mcp.WithMIMEType("application/yaml"),
		),
		s.readRegistryResource,
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

func (s *Server) listTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matches, err := s.svc.Matches(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(matches, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) previewSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, true, req.GetString("pattern", ""))
}

func (s *Server) syncTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, req.GetBool("dry_run", false), req.GetString("pattern", ""))
}

func (s *Server) run(ctx context.Context, dryRun bool, pattern string) (*mcp.CallToolResult, error) {
	rep, err := s.svc.Synchronize(ctx, dryRun, pattern, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(s.svc.Result(rep), "", "  ")
	if rep.Err() != nil {
		return mcp.NewToolResultError(string(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTemplateContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TemplateFormatContract), nil
}

func (s *Server) readRegistryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	reg, err := s.svc.Registry(ctx)
	if err != nil {
		return nil, err
	}
	data, err := reg.Marshal()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      registryURI,
			MIMEType: "application/yaml",
			Text:     string(data),
		},
	}, nil
}
