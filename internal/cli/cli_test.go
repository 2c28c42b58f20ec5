package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"beskar/editor/internal/auth"
	"beskar/editor/internal/blockid"
	"beskar/editor/internal/doc"
)

const sample = `{"type":"doc","content":[` +
	`{"type":"paragraph","attrs":{"blockId":"a"},"content":[{"type":"text","text":"Alpha"}]},` +
	`{"type":"paragraph","attrs":{"blockId":"b"},"content":[{"type":"text","text":"Bravo"}]},` +
	`{"type":"table","attrs":{"blockId":"t"},"content":[` +
	`{"type":"tableRow","content":[` +
	`{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"pear"}]}]}]},` +
	`{"type":"tableRow","content":[` +
	`{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"apple"}]}]}]}]}]}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func parse(t *testing.T, out string) *doc.Node {
	t.Helper()
	root, err := doc.Parse([]byte(out))
	if err != nil {
		t.Fatalf("doc.Parse() error = %v output=%s", err, out)
	}
	return root
}

func order(root *doc.Node) string {
	ids := make([]string, 0, root.ChildCount())
	for _, child := range root.Content {
		ids = append(ids, child.Attrs.String(blockid.Attr))
	}
	return strings.Join(ids, ",")
}

func TestRepairInPlace(t *testing.T) {
	path := writeFile(t, `{"type":"doc","content":[{"type":"paragraph","attrs":{"blockId":"x"}},{"type":"paragraph","attrs":{"blockId":"x"}},{"type":"paragraph"}]}`)

	if _, _, err := run(t, "verify", path); err == nil {
		t.Fatalf("verify before repair expected error")
	}
	_, stderr, err := run(t, "repair", "-w", path)
	if err != nil {
		t.Fatalf("repair error = %v", err)
	}
	if !strings.Contains(stderr, "repaired 2 blocks") {
		t.Fatalf("stderr = %q", stderr)
	}
	out, _, err := run(t, "verify", path)
	if err != nil {
		t.Fatalf("verify after repair error = %v", err)
	}
	if !strings.Contains(out, `"ok":true`) {
		t.Fatalf("verify output = %q", out)
	}
}

func TestMove(t *testing.T) {
	path := writeFile(t, sample)

	out, _, err := run(t, "move", path, "--block", "t", "--target", "a")
	if err != nil {
		t.Fatalf("move error = %v", err)
	}
	if got := order(parse(t, out)); got != "t,a,b" {
		t.Fatalf("order = %s, want t,a,b", got)
	}

	if _, _, err := run(t, "move", path, "--block", "a", "--target", "b"); err == nil {
		t.Fatalf("move onto own slot expected error")
	}
	if _, _, err := run(t, "move", path, "--block", "a", "--target", "zz", "--placement", "after"); err == nil {
		t.Fatalf("move to missing target expected error")
	}
}

func TestPasteGivesFreshIDs(t *testing.T) {
	path := writeFile(t, sample)
	htmlPath := filepath.Join(t.TempDir(), "clip.html")
	if err := os.WriteFile(htmlPath, []byte(`<p data-block-id="b">Copy of bravo</p>`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out, _, err := run(t, "paste", path, "--html", htmlPath, "--after", "a")
	if err != nil {
		t.Fatalf("paste error = %v", err)
	}
	root := parse(t, out)
	if root.ChildCount() != 4 {
		t.Fatalf("ChildCount() = %d, want 4", root.ChildCount())
	}
	pasted := root.Child(1)
	if pasted.TextContent() != "Copy of bravo" {
		t.Fatalf("pasted text = %q", pasted.TextContent())
	}
	if id := pasted.Attrs.String(blockid.Attr); id == "" || id == "b" {
		t.Fatalf("pasted id = %q, want a fresh id", id)
	}
	if err := blockid.New().Verify(root); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

func TestTableSort(t *testing.T) {
	path := writeFile(t, sample)

	if _, _, err := run(t, "table", path, "sortByColumn", "--block", "t", "--ascending", "-w"); err != nil {
		t.Fatalf("table sortByColumn error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	tbl := parse(t, string(data)).Child(2)
	if first := tbl.Child(0).TextContent(); first != "apple" {
		t.Fatalf("first row = %q, want apple", first)
	}

	if _, _, err := run(t, "table", path, "sortByColumn", "--block", "t", "--ascending"); err == nil {
		t.Fatalf("sorting a sorted table expected an unchanged error")
	}
	if _, stderr, err := run(t, "table", path, "explode", "--block", "t"); err == nil || !strings.Contains(stderr, "unknown table command") {
		t.Fatalf("unknown command err = %v stderr = %q", err, stderr)
	}
	if _, _, err := run(t, "table", path, "addRowAfter", "--block", "a"); err == nil {
		t.Fatalf("table command on a paragraph expected error")
	}
}

func TestExportHTML(t *testing.T) {
	path := writeFile(t, sample)

	out, _, err := run(t, "export", path, "--title", "Fruit")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	for _, want := range []string{"<title>Fruit</title>", `<p data-block-id="a">Alpha</p>`, `data-block-id="t"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("export output missing %q:\n%s", want, out)
		}
	}
	if _, _, err := run(t, "export", path, "--format", "docx"); err == nil {
		t.Fatalf("docx export expected error")
	}
}

func TestTokenUsesConfiguredSecret(t *testing.T) {
	t.Setenv("BESKAR_JWT_SECRET", "cli-secret")

	out, _, err := run(t, "token", "--sub", "u1", "--name", "Ava", "--role", "admin")
	if err != nil {
		t.Fatalf("token error = %v", err)
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	claims, err := auth.ParseToken([]byte("cli-secret"), payload.Token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Sub != "u1" || claims.Role != "admin" || claims.Author() != "Ava" {
		t.Fatalf("claims = %+v", claims)
	}
}
