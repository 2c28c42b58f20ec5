package clipboard

import (
	"testing"

	"beskar/editor/internal/blockid"
	"beskar/editor/internal/doc"
)

func TestParseHTMLBlocks(t *testing.T) {
	blocks, err := ParseHTML(`<h2 data-block-id="block-1-aaaaaaaaa">Title</h2>
<p>Hello <strong>bold</strong>   world</p>
<ul><li>one</li><li><p>two</p></li></ul>
<hr>`)
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	if len(blocks) != 4 {
		t.Fatalf("len(blocks) = %d, want 4", len(blocks))
	}

	heading := blocks[0]
	if heading.Type != doc.KindHeading || heading.Attrs.Int("level", 0) != 2 {
		t.Fatalf("heading = %s %v", heading.TypeName(), heading.Attrs)
	}
	if got := heading.Attrs.String(blockid.Attr); got != "block-1-aaaaaaaaa" {
		t.Fatalf("blockId = %q", got)
	}

	para := blocks[1]
	if got := para.TextContent(); got != "Hello bold world" {
		t.Fatalf("paragraph text = %q", got)
	}
	if len(para.Content) != 3 || len(para.Content[1].Marks) != 1 || para.Content[1].Marks[0].Type != "bold" {
		t.Fatalf("paragraph marks = %+v", para.Content)
	}

	list := blocks[2]
	if list.Type != doc.KindBulletList || list.ChildCount() != 2 {
		t.Fatalf("list = %s with %d items", list.TypeName(), list.ChildCount())
	}
	for i, item := range list.Content {
		if item.Type != doc.KindListItem || item.Child(0).Type != doc.KindParagraph {
			t.Fatalf("item %d = %s > %s", i, item.TypeName(), item.Child(0).TypeName())
		}
	}
	if blocks[3].Type != doc.KindHorizontalRule {
		t.Fatalf("last block = %s", blocks[3].TypeName())
	}
}

func TestParseHTMLTable(t *testing.T) {
	blocks, err := ParseHTML(`<table data-block-id="block-2-bbbbbbbbb"><thead><tr><th>Name</th><th>Qty</th></tr></thead>
<tbody><tr><td style="background-color: red">apple</td><td colspan="1">3</td></tr></tbody></table>`)
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	if len(blocks) != 1 || blocks[0].Type != doc.KindTable {
		t.Fatalf("blocks = %d, first %s", len(blocks), blocks[0].TypeName())
	}
	tbl := blocks[0]
	if tbl.ChildCount() != 2 {
		t.Fatalf("rows = %d", tbl.ChildCount())
	}
	if tbl.Child(0).Child(0).Type != doc.KindTableHeader || tbl.Child(1).Child(0).Type != doc.KindTableCell {
		t.Fatal("cell types lost")
	}
	apple := tbl.Child(1).Child(0)
	if apple.Attrs.String("style") != "background-color: red" || apple.TextContent() != "apple" {
		t.Fatalf("cell = %v %q", apple.Attrs, apple.TextContent())
	}
	if _, ok := tbl.Child(1).Child(1).Attrs["colspan"]; ok {
		t.Fatal("colspan 1 kept")
	}
}

func TestParseHTMLLooseContent(t *testing.T) {
	blocks, err := ParseHTML(`plain <em>text</em><img src="/a.png" alt="a"><br>`)
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}
	if blocks[0].Type != doc.KindParagraph || blocks[0].TextContent() != "plain text" {
		t.Fatalf("first = %s %q", blocks[0].TypeName(), blocks[0].TextContent())
	}
	if blocks[1].Type != doc.KindImage || blocks[1].Attrs.String("src") != "/a.png" {
		t.Fatalf("second = %s %v", blocks[1].TypeName(), blocks[1].Attrs)
	}
}

func TestParseHTMLCodeAndNote(t *testing.T) {
	blocks, err := ParseHTML(`<pre><code class="language-go">x := 1
</code></pre><div data-type="note"><p>careful</p></div>`)
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}
	code := blocks[0]
	if code.Type != doc.KindCodeBlock || code.Attrs.String("language") != "go" || code.TextContent() != "x := 1" {
		t.Fatalf("code = %v %q", code.Attrs, code.TextContent())
	}
	if blocks[1].Type != doc.KindNote || blocks[1].TextContent() != "careful" {
		t.Fatalf("note = %s %q", blocks[1].TypeName(), blocks[1].TextContent())
	}
}

func TestPastedIDsAreStripped(t *testing.T) {
	blocks, err := ParseHTML(`<p data-block-id="block-3-ccccccccc">copy</p>`)
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	stripped := blockid.New().TransformPasted(blocks)
	if _, ok := stripped[0].Attrs[blockid.Attr]; ok {
		t.Fatal("paste hook kept the identifier")
	}
}
