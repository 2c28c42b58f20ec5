package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beskar/editor/internal/auth"
	"beskar/editor/internal/history"
	"beskar/editor/internal/search"
	"beskar/editor/internal/store"
)

const threeParagraphs = `{"type":"doc","content":[` +
	`{"type":"paragraph","attrs":{"blockId":"a"},"content":[{"type":"text","text":"Alpha"}]},` +
	`{"type":"paragraph","attrs":{"blockId":"b"},"content":[{"type":"text","text":"Bravo"}]},` +
	`{"type":"paragraph","attrs":{"blockId":"c"},"content":[{"type":"text","text":"Charlie"}]}]}`

const twoByTwoTable = `{"type":"doc","content":[` +
	`{"type":"paragraph","attrs":{"blockId":"p"},"content":[{"type":"text","text":"Intro"}]},` +
	`{"type":"table","attrs":{"blockId":"t"},"content":[` +
	`{"type":"tableRow","content":[` +
	`{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"a"}]}]},` +
	`{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"b"}]}]}]},` +
	`{"type":"tableRow","content":[` +
	`{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"c"}]}]},` +
	`{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"d"}]}]}]}]}]}`

func issue(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte("test-secret"), auth.NewClaims("user-1", "Ava", role, time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	return token
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

// create stores content through the API and returns the new document id.
func create(t *testing.T, h http.Handler, content string) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/documents", issue(t, "editor"), `{"title":"Plan","content":`+content+`}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rr.Code, rr.Body.String())
	}
	document := decode(t, rr)["document"].(map[string]any)
	return document["id"].(string)
}

func topLevelIDs(t *testing.T, rr *httptest.ResponseRecorder) []string {
	t.Helper()
	document, _ := decode(t, rr)["document"].(map[string]any)
	content, _ := document["content"].(map[string]any)
	blocks, _ := content["content"].([]any)
	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		attrs, _ := b.(map[string]any)["attrs"].(map[string]any)
		id, _ := attrs["blockId"].(string)
		ids = append(ids, id)
	}
	return ids
}

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")

	rr := do(t, server.Handler(), http.MethodGet, "/api/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ok := decode(t, rr)["ok"]; ok != true {
		t.Fatalf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestReadyEndpointReportsDatabase(t *testing.T) {
	fs := newFakeStore()
	server := NewHTTPServer(newTestService(fs), "*")

	rr := do(t, server.Handler(), http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	fs.pingFn = func(context.Context) error { return errors.New("connection refused") }
	rr = do(t, server.Handler(), http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	payload := decode(t, rr)
	if payload["status"] != "not_ready" || payload["ok"] != false {
		t.Fatalf("unexpected payload %v", payload)
	}
	database := payload["checks"].(map[string]any)["database"].(map[string]any)
	if database["error"] != "connection refused" {
		t.Fatalf("database check = %v", database)
	}
}

func TestWritesRequireAuthorizedSession(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	expired, err := auth.IssueToken([]byte("test-secret"), auth.NewClaims("user-1", "Ava", "editor", -time.Minute))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tests := []struct {
		name   string
		token  string
		status int
		code   string
	}{
		{name: "missing", token: "", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "invalid", token: "not-a-token", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "expired", token: expired, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "viewer", token: issue(t, "viewer"), status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "editor", token: issue(t, "editor"), status: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, server.Handler(), http.MethodPost, "/api/documents", tt.token, `{"title":"Plan"}`)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if tt.code != "" && decode(t, rr)["code"] != tt.code {
				t.Fatalf("code = %v, want %s", decode(t, rr)["code"], tt.code)
			}
		})
	}
}

func TestCreateAndGetDocument(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	h := server.Handler()

	rr := do(t, h, http.MethodPost, "/api/documents", issue(t, "editor"),
		`{"title":"Plan","content":{"type":"doc","content":[{"type":"paragraph"},{"type":"horizontalRule"}]}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rr.Code, rr.Body.String())
	}
	if ids := topLevelIDs(t, rr); strings.Join(ids, ",") != "block-1,block-2" {
		t.Fatalf("created ids = %v", ids)
	}

	rr = do(t, h, http.MethodGet, "/api/documents/doc-1", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d body=%s", rr.Code, rr.Body.String())
	}
	document := decode(t, rr)["document"].(map[string]any)
	if document["title"] != "Plan" || document["version"] != float64(1) || document["updatedBy"] != "Ava" {
		t.Fatalf("document = %v", document)
	}

	rr = do(t, h, http.MethodGet, "/api/documents/missing", "", "")
	if rr.Code != http.StatusNotFound || decode(t, rr)["code"] != "NOT_FOUND" {
		t.Fatalf("missing document status = %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/api/documents", "", "")
	if docs := decode(t, rr)["documents"].([]any); len(docs) != 1 {
		t.Fatalf("documents = %v", docs)
	}
}

func TestMoveBlock(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	h := server.Handler()
	id := create(t, h, threeParagraphs)
	token := issue(t, "editor")
	path := "/api/documents/" + id + "/move"

	rr := do(t, h, http.MethodPost, path, token, `{"blockId":"a","targetBlockId":"c","placement":"after","baseVersion":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("move status = %d body=%s", rr.Code, rr.Body.String())
	}
	if ids := topLevelIDs(t, rr); strings.Join(ids, ",") != "b,c,a" {
		t.Fatalf("order after move = %v", ids)
	}

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "stale base version", body: `{"blockId":"b","targetBlockId":"a","placement":"after","baseVersion":1}`, status: http.StatusConflict, code: "VERSION_CONFLICT"},
		{name: "already in place", body: `{"blockId":"a","targetBlockId":"c","placement":"after","baseVersion":2}`, status: http.StatusUnprocessableEntity, code: "NOOP"},
		{name: "unknown source", body: `{"blockId":"zz","targetBlockId":"c","baseVersion":2}`, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown target", body: `{"blockId":"a","targetBlockId":"zz","baseVersion":2}`, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "bad placement", body: `{"blockId":"a","targetBlockId":"b","placement":"inside","baseVersion":2}`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "bad body", body: `{"blockId":`, status: http.StatusBadRequest, code: "INVALID_BODY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, path, token, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if code := decode(t, rr)["code"]; code != tt.code {
				t.Fatalf("code = %v, want %s", code, tt.code)
			}
		})
	}
}

func TestPasteStripsIdentifiers(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	h := server.Handler()
	id := create(t, h, threeParagraphs)

	body := `{"afterBlockId":"a","html":"<p data-block-id=\"a\">Copied</p><p data-block-id=\"c\">Twice</p>","baseVersion":1}`
	rr := do(t, h, http.MethodPost, "/api/documents/"+id+"/paste", issue(t, "editor"), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("paste status = %d body=%s", rr.Code, rr.Body.String())
	}
	ids := topLevelIDs(t, rr)
	if len(ids) != 5 || ids[0] != "a" || ids[3] != "b" || ids[4] != "c" {
		t.Fatalf("ids after paste = %v", ids)
	}
	if ids[1] == "" || ids[2] == "" || ids[1] == "a" || ids[2] == "c" || ids[1] == ids[2] {
		t.Fatalf("pasted blocks kept or shared identifiers: %v", ids)
	}

	rr = do(t, h, http.MethodPost, "/api/documents/"+id+"/paste", issue(t, "editor"), `{"html":"   ","baseVersion":2}`)
	if rr.Code != http.StatusUnprocessableEntity || decode(t, rr)["code"] != "NOOP" {
		t.Fatalf("empty paste status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestTableCommand(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	h := server.Handler()
	id := create(t, h, twoByTwoTable)
	token := issue(t, "editor")

	rr := do(t, h, http.MethodPost, "/api/documents/"+id+"/tables/t", token, `{"command":"addColumnAfter","row":0,"col":0,"baseVersion":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("table command status = %d body=%s", rr.Code, rr.Body.String())
	}
	document := decode(t, rr)["document"].(map[string]any)
	blocks := document["content"].(map[string]any)["content"].([]any)
	rows := blocks[1].(map[string]any)["content"].([]any)
	for i, row := range rows {
		if cells := row.(map[string]any)["content"].([]any); len(cells) != 3 {
			t.Fatalf("row %d has %d cells, want 3", i, len(cells))
		}
	}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "unknown command", path: "/tables/t", body: `{"command":"explode","baseVersion":2}`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "not a table", path: "/tables/p", body: `{"command":"addRowAfter","baseVersion":2}`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "cell out of range", path: "/tables/t", body: `{"command":"addRowAfter","row":9,"col":0,"baseVersion":2}`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "missing table", path: "/tables/zz", body: `{"command":"addRowAfter","baseVersion":2}`, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "selection only", path: "/tables/t", body: `{"command":"selectTable","baseVersion":2}`, status: http.StatusUnprocessableEntity, code: "NOOP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/documents/"+id+tt.path, token, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if code := decode(t, rr)["code"]; code != tt.code {
				t.Fatalf("code = %v, want %s", code, tt.code)
			}
		})
	}
}

func TestHistoryRecordsEachVersion(t *testing.T) {
	svc := newTestService(newFakeStore())
	svc.history = history.New(t.TempDir())
	h := NewHTTPServer(svc, "*").Handler()
	id := create(t, h, threeParagraphs)

	rr := do(t, h, http.MethodPost, "/api/documents/"+id+"/move", issue(t, "editor"), `{"blockId":"c","targetBlockId":"a","baseVersion":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("move status = %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/api/documents/"+id+"/history", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("history status = %d body=%s", rr.Code, rr.Body.String())
	}
	commits := decode(t, rr)["commits"].([]any)
	if len(commits) != 2 {
		t.Fatalf("commits = %v", commits)
	}
	if msg := commits[0].(map[string]any)["message"]; msg != "Move block c" {
		t.Fatalf("latest commit message = %v", msg)
	}

	rr = do(t, h, http.MethodGet, "/api/documents/missing/history", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing history status = %d", rr.Code)
	}
}

func TestExportHTML(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*")
	h := server.Handler()
	id := create(t, h, threeParagraphs)

	rr := do(t, h, http.MethodGet, "/api/documents/"+id+"/export?format=html", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, ".html") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if body := rr.Body.String(); !strings.Contains(body, `<p data-block-id="b">Bravo</p>`) {
		t.Fatalf("export body missing block: %s", body)
	}

	rr = do(t, h, http.MethodGet, "/api/documents/"+id+"/export?format=docx", "", "")
	if rr.Code != http.StatusUnprocessableEntity || decode(t, rr)["code"] != "VALIDATION_ERROR" {
		t.Fatalf("docx export status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc := newTestService(newFakeStore())
	var got search.Query
	svc.search = &fakeSearch{searchFn: func(q search.Query) search.Response {
		got = q
		return search.Response{
			Results: []search.Result{{DocumentID: "doc-1", BlockID: "a", BlockType: "paragraph", Snippet: "<mark>Alpha</mark>"}},
			Total:   1,
			Query:   q.Text,
		}
	}}
	h := NewHTTPServer(svc, "*").Handler()

	rr := do(t, h, http.MethodGet, "/api/search?q=+alpha+&limit=5&offset=10", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("search status = %d", rr.Code)
	}
	if got.Text != "alpha" || got.Limit != 5 || got.Offset != 10 {
		t.Fatalf("query = %+v", got)
	}
	payload := decode(t, rr)
	if payload["total"] != float64(1) || len(payload["results"].([]any)) != 1 {
		t.Fatalf("payload = %v", payload)
	}

	got = search.Query{}
	rr = do(t, h, http.MethodGet, "/api/search?q=", "", "")
	if results := decode(t, rr)["results"].([]any); len(results) != 0 || got.Text != "" {
		t.Fatalf("empty query results = %v", results)
	}
}

func TestDeleteDocumentRequiresDeleteRole(t *testing.T) {
	fs := newFakeStore()
	fs.put(store.Document{ID: "d", Version: 1, Content: []byte(`{"type":"doc"}`)})
	h := NewHTTPServer(newTestService(fs), "*").Handler()

	rr := do(t, h, http.MethodDelete, "/api/documents/d", issue(t, "editor"), "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("editor delete status = %d", rr.Code)
	}
	rr = do(t, h, http.MethodDelete, "/api/documents/d", issue(t, "admin"), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("admin delete status = %d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/api/documents/d", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rr.Code)
	}
}
