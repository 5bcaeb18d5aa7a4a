package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/particleservice"
	"github.com/starford/perthro/internal/search"
	"github.com/starford/perthro/internal/store"
)

// testEnv sets up a temp SQLite store, service, engine, and router.
// authToken == "" means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) http.Handler {
	t.Helper()

	dbFile, err := os.CreateTemp("", "perthro-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := particleservice.NewService(db)
	engine := search.NewEngine(db, 0)
	return NewRouter(svc, engine, nil, authEnabled, authToken, sseHandler)
}

// doJSON issues a request as the given owner and returns the recorder.
func doJSON(t *testing.T, router http.Handler, method, path, owner string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if owner != "" {
		req.Header.Set("X-Owner", owner)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createParticle(t *testing.T, router http.Handler, owner, title, body string) models.Particle {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/particles", owner, map[string]string{"title": title, "body": body})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var p models.Particle
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCreateAndGetParticle(t *testing.T) {
	router := testEnv(t, "")

	p := createParticle(t, router, "alice", "Groceries", "buy milk #shopping")
	if len(p.Tags) != 1 || p.Tags[0] != "shopping" {
		t.Errorf("tags = %v, want [shopping]", p.Tags)
	}

	w := doJSON(t, router, http.MethodGet, "/particles/"+p.ID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.Particle
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.ID != p.ID || got.Title != "Groceries" {
		t.Errorf("got = %+v", got)
	}
}

func TestCreateParticle_Validation(t *testing.T) {
	router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/particles", "alice", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty create = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/particles", bytes.NewReader([]byte("{not json")))
	req.Header.Set("X-Owner", "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON = %d, want 400", rec.Code)
	}
}

func TestListParticles(t *testing.T) {
	router := testEnv(t, "")
	createParticle(t, router, "alice", "A", "a")
	createParticle(t, router, "alice", "B", "b")

	w := doJSON(t, router, http.MethodGet, "/particles?page=1&page_size=10", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var env search.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if env.Total != 2 || len(env.Particles) != 2 {
		t.Errorf("envelope = %+v, want 2 particles", env)
	}
	if env.TotalPages != 1 || env.Page != 1 {
		t.Errorf("pagination = %d/%d", env.Page, env.TotalPages)
	}
}

func TestListParticles_QueryParam(t *testing.T) {
	router := testEnv(t, "")
	createParticle(t, router, "alice", "zebra report", "stripes everywhere")
	createParticle(t, router, "alice", "plain", "nothing")

	w := doJSON(t, router, http.MethodGet, "/particles?query=zebra", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var env search.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if env.Total != 1 || env.Query != "zebra" {
		t.Errorf("envelope = %+v, want 1 zebra hit", env)
	}
}

func TestListParticles_Fuzzy(t *testing.T) {
	router := testEnv(t, "")
	createParticle(t, router, "alice", "meeting NOTEES", "agenda")

	w := doJSON(t, router, http.MethodGet, "/particles?query=notes&fuzzy=1", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("fuzzy search = %d", w.Code)
	}
	var env search.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if !env.Fuzzy {
		t.Error("envelope not marked fuzzy")
	}
	if env.Total != 1 {
		t.Errorf("total = %d, want the typo title found", env.Total)
	}
}

func TestUpdateParticle(t *testing.T) {
	router := testEnv(t, "")
	p := createParticle(t, router, "alice", "Old", "text #old")

	w := doJSON(t, router, http.MethodPut, "/particles/"+p.ID, "alice", map[string]string{"body": "text #fresh"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	var got models.Particle
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Tags) != 1 || got.Tags[0] != "fresh" {
		t.Errorf("tags = %v, want recomputed [fresh]", got.Tags)
	}
	if got.Title != "Old" {
		t.Errorf("title = %q, omitted field must keep its value", got.Title)
	}
}

func TestUpdateParticle_NotFound(t *testing.T) {
	router := testEnv(t, "")
	w := doJSON(t, router, http.MethodPut, "/particles/ghost", "alice", map[string]string{"title": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteParticle(t *testing.T) {
	router := testEnv(t, "")
	p := createParticle(t, router, "alice", "Bye", "gone")

	w := doJSON(t, router, http.MethodDelete, "/particles/"+p.ID, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	var resp StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "deleted" {
		t.Errorf("status = %q", resp.Status)
	}

	w = doJSON(t, router, http.MethodGet, "/particles/"+p.ID, "alice", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestOwnerIsolation(t *testing.T) {
	router := testEnv(t, "")
	p := createParticle(t, router, "alice", "Private", "secret")

	if w := doJSON(t, router, http.MethodGet, "/particles/"+p.ID, "bob", nil); w.Code != http.StatusNotFound {
		t.Errorf("cross-owner get = %d, want 404", w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/particles", "bob", nil)
	var env search.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if env.Total != 0 {
		t.Errorf("bob sees %d of alice's particles", env.Total)
	}
}

func TestOwnerHeaderRequired(t *testing.T) {
	router := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/particles", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing owner = %d, want 401", w.Code)
	}
}

func TestByTagEndpoint(t *testing.T) {
	router := testEnv(t, "")
	createParticle(t, router, "alice", "A", "#work stuff")
	createParticle(t, router, "alice", "B", "#home stuff")

	w := doJSON(t, router, http.MethodGet, "/particles/by-tag/work", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("by-tag = %d", w.Code)
	}
	var env search.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if env.Total != 1 || env.Tag != "work" {
		t.Errorf("envelope = %+v, want 1 work hit", env)
	}
}

func TestAllTagsEndpoint(t *testing.T) {
	router := testEnv(t, "")
	createParticle(t, router, "alice", "A", "#work #todo")
	createParticle(t, router, "alice", "B", "#todo")

	w := doJSON(t, router, http.MethodGet, "/particles/tags/all", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tags = %d", w.Code)
	}
	var resp TagsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Tags) != 2 || resp.Tags[0] != "todo" || resp.Tags[1] != "work" {
		t.Errorf("tags = %v, want [todo work]", resp.Tags)
	}
}

func TestCountEndpoint(t *testing.T) {
	router := testEnv(t, "")
	createParticle(t, router, "alice", "zebra", "a")
	createParticle(t, router, "alice", "plain", "b")

	w := doJSON(t, router, http.MethodGet, "/particles/count", "alice", nil)
	var resp CountResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}

	w = doJSON(t, router, http.MethodGet, "/particles/count?query=zebra", "alice", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Errorf("filtered count = %d, want 1", resp.Count)
	}
}

func TestReferencesEndpoint(t *testing.T) {
	router := testEnv(t, "")
	target := createParticle(t, router, "alice", "Target", "plain")
	createParticle(t, router, "alice", "Source", "see "+target.ID)

	w := doJSON(t, router, http.MethodGet, "/particles/"+target.ID+"/references", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("references = %d", w.Code)
	}
	var resp map[string][]models.Particle
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp["references"]) != 1 || resp["references"][0].Title != "Source" {
		t.Errorf("references = %+v, want just the source", resp["references"])
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]string{"title": "T", "body": "b"})
	req := httptest.NewRequest(http.MethodPost, "/particles", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	req.Header.Set("X-Owner", "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")
	w := doJSON(t, router, http.MethodGet, "/particles", "alice", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/particles", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	req.Header.Set("X-Owner", "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, "/particles", "alice", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvFull(t, true, "secret", sseStub())

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_NoOwnerNeeded(t *testing.T) {
	router := testEnvFull(t, false, "", sseStub())

	// The events stream sits outside the owner-scoped group; it must not
	// demand X-Owner. The stub blocks, so bound the request lifetime.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require an owner header")
	}
}
