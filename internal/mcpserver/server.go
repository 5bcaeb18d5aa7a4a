// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Perthro particle tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/perthro/internal/particleservice"
	"github.com/starford/perthro/internal/search"
)

// Server wraps the MCP server with Perthro tools. The stdio transport is
// single-user: every tool call is scoped to the owner fixed at startup.
type Server struct {
	mcp    *server.MCPServer
	svc    *particleservice.Service
	engine *search.Engine
	owner  string
}

// New creates a new MCP server with all Perthro tools registered.
func New(svc *particleservice.Service, engine *search.Engine, owner string) *Server {
	s := &Server{svc: svc, engine: engine, owner: owner}

	s.mcp = server.NewMCPServer(
		"Perthro",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_particles",
		mcp.WithDescription("Search particles by title, tags, and body. "+
			"Set fuzzy to true for typo-tolerant edit-distance matching."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithBoolean("fuzzy", mcp.Description("Use fuzzy (typo-tolerant) matching")),
	), s.searchParticles)

	s.mcp.AddTool(mcp.NewTool("read_particle",
		mcp.WithDescription("Read the full content of a particle by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Particle id (UUID)")),
	), s.readParticle)

	s.mcp.AddTool(mcp.NewTool("create_particle",
		mcp.WithDescription("Create a new particle. Tags and references are derived "+
			"from the body text; read the format contract first via the "+
			"get_particle_contract tool or the perthro://particle-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Particle title")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Particle body text with inline #tags and references")),
	), s.createParticle)

	s.mcp.AddTool(mcp.NewTool("get_particle_contract",
		mcp.WithDescription("Returns the particle format contract describing the "+
			"tag and reference grammar. Call this before creating particles."),
	), s.getParticleContract)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every distinct tag in the particle collection."),
	), s.listTags)

	// Resource: particle format contract.
	s.mcp.AddResource(
		mcp.NewResource("perthro://particle-format", "Particle Format Contract",
			mcp.WithResourceDescription("Tag and reference grammar derived from particle bodies."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readParticleFormatResource,
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

func (s *Server) searchParticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fuzzy := req.GetBool("fuzzy", false)

	env, err := s.engine.Search(s.owner, query, 1, 20, "", fuzzy)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(env, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readParticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Get(ctx, id, s.owner)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(p, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createParticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Create(ctx, s.owner, title, body)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", p.ID)), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.AllTags(ctx, s.owner)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tags) == 0 {
		return mcp.NewToolResultText("no tags found"), nil
	}
	return mcp.NewToolResultText(strings.Join(tags, "\n")), nil
}

func (s *Server) getParticleContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ParticleFormatContract), nil
}

func (s *Server) readParticleFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "perthro://particle-format",
			MIMEType: "text/markdown",
			Text:     ParticleFormatContract,
		},
	}, nil
}
