package mcpserver

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/perthro/internal/particleservice"
	"github.com/starford/perthro/internal/search"
	"github.com/starford/perthro/internal/store"
)

func testServer(t *testing.T) (*Server, *particleservice.Service) {
	t.Helper()

	dbFile, err := os.CreateTemp("", "perthro-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc := particleservice.NewService(db)
	engine := search.NewEngine(db, 0)
	srv := New(svc, engine, "local")
	return srv, svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handler
	// functions are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_particles":
		result, err = srv.searchParticles(ctx, req)
	case "read_particle":
		result, err = srv.readParticle(ctx, req)
	case "create_particle":
		result, err = srv.createParticle(ctx, req)
	case "get_particle_contract":
		result, err = srv.getParticleContract(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadParticle(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_particle", map[string]interface{}{
		"title": "Meeting",
		"body":  "agenda #work",
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "created: ") {
		t.Fatalf("create result = %q", text)
	}
	id := strings.TrimPrefix(text, "created: ")

	r = callTool(t, srv, "read_particle", map[string]interface{}{"id": id})
	text = resultText(r)
	if !strings.Contains(text, `"title": "Meeting"`) {
		t.Errorf("read result = %q", text)
	}
	if !strings.Contains(text, `"work"`) {
		t.Errorf("read result missing derived tag: %q", text)
	}
}

func TestReadParticleMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_particle", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing particle")
	}
}

func TestSearchParticles(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_particle", map[string]interface{}{
		"title": "zebra report",
		"body":  "stripes",
	})

	r := callTool(t, srv, "search_particles", map[string]interface{}{"query": "zebra"})
	text := resultText(r)
	if !strings.Contains(text, `"total": 1`) {
		t.Errorf("search result = %q", text)
	}
}

func TestSearchParticles_Fuzzy(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_particle", map[string]interface{}{
		"title": "meeting NOTEES",
		"body":  "agenda",
	})

	r := callTool(t, srv, "search_particles", map[string]interface{}{
		"query": "notes",
		"fuzzy": true,
	})
	text := resultText(r)
	if !strings.Contains(text, `"total": 1`) {
		t.Errorf("fuzzy search result = %q", text)
	}
}

func TestSearchParticles_MissingQuery(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "search_particles", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing query argument")
	}
}

func TestListTags(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_tags", map[string]interface{}{})
	if resultText(r) != "no tags found" {
		t.Errorf("empty collection tags = %q", resultText(r))
	}

	_ = callTool(t, srv, "create_particle", map[string]interface{}{
		"title": "A",
		"body":  "#work #todo",
	})
	r = callTool(t, srv, "list_tags", map[string]interface{}{})
	if resultText(r) != "todo\nwork" {
		t.Errorf("tags = %q, want sorted lines", resultText(r))
	}
}

func TestGetParticleContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_particle_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "#") || !strings.Contains(strings.ToLower(text), "reference") {
		t.Errorf("contract does not describe the grammar: %q", text)
	}
}
