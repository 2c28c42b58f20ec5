package export

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"beskar/editor/internal/blockid"
	"beskar/editor/internal/doc"
	"beskar/editor/internal/table"
)

// RenderHTML renders the content of root as HTML. Block identifiers are
// written to data-block-id so the output pastes back with its structure.
func RenderHTML(root *doc.Node) (string, error) {
	if root == nil {
		return "", nil
	}
	var b strings.Builder
	for _, child := range root.Content {
		for _, n := range renderNode(child) {
			if err := html.Render(&b, n); err != nil {
				return "", err
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attribute(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func appendAll(parent *html.Node, children []*html.Node) *html.Node {
	for _, c := range children {
		parent.AppendChild(c)
	}
	return parent
}

func renderChildren(n *doc.Node) []*html.Node {
	var out []*html.Node
	for _, child := range n.Content {
		out = append(out, renderNode(child)...)
	}
	return out
}

func renderNode(n *doc.Node) []*html.Node {
	var el *html.Node
	switch n.Type {
	case doc.KindText:
		return []*html.Node{renderText(n)}
	case doc.KindHardBreak:
		return []*html.Node{element(atom.Br)}
	case doc.KindParagraph:
		el = element(atom.P)
	case doc.KindHeading:
		level := min(max(n.Attrs.Int("level", 1), 1), 6)
		a := atom.Lookup([]byte("h" + strconv.Itoa(level)))
		el = element(a)
	case doc.KindBulletList:
		el = element(atom.Ul)
	case doc.KindOrderedList:
		el = element(atom.Ol)
		if start := n.Attrs.Int("start", 1); start != 1 {
			el.Attr = append(el.Attr, attribute("start", strconv.Itoa(start)))
		}
	case doc.KindTaskList:
		el = element(atom.Ul, attribute("data-type", "taskList"))
	case doc.KindListItem:
		el = element(atom.Li)
	case doc.KindTaskItem:
		el = element(atom.Li, attribute("data-type", "taskItem"), attribute("data-checked", strconv.FormatBool(n.Attrs.Bool("checked"))))
	case doc.KindBlockquote:
		el = element(atom.Blockquote)
	case doc.KindCodeBlock:
		code := element(atom.Code)
		if lang := n.Attrs.String("language"); lang != "" {
			code.Attr = append(code.Attr, attribute("class", "language-"+lang))
		}
		code.AppendChild(&html.Node{Type: html.TextNode, Data: n.TextContent()})
		el = element(atom.Pre)
		el.AppendChild(code)
		return []*html.Node{withID(el, n)}
	case doc.KindHorizontalRule:
		return []*html.Node{withID(element(atom.Hr), n)}
	case doc.KindImage:
		el = element(atom.Img, attribute("src", n.Attrs.String("src")))
		if alt := n.Attrs.String("alt"); alt != "" {
			el.Attr = append(el.Attr, attribute("alt", alt))
		}
		return []*html.Node{withID(el, n)}
	case doc.KindMathBlock:
		el = element(atom.Div, attribute("data-type", "mathBlock"))
		el.AppendChild(&html.Node{Type: html.TextNode, Data: n.Attrs.String("latex")})
		return []*html.Node{withID(el, n)}
	case doc.KindTableOfContents:
		return []*html.Node{withID(element(atom.Nav, attribute("data-type", "tableOfContents")), n)}
	case doc.KindTable:
		return []*html.Node{withID(renderTable(n), n)}
	case doc.KindDetails:
		el = element(atom.Details)
	case doc.KindDetailsSummary:
		el = element(atom.Summary)
	case doc.KindDetailsContent:
		el = element(atom.Div, attribute("data-type", "detailsContent"))
	case doc.KindNote:
		el = element(atom.Div, attribute("data-type", "note"))
	default:
		return renderChildren(n)
	}
	return []*html.Node{withID(appendAll(el, renderChildren(n)), n)}
}

func withID(el *html.Node, n *doc.Node) *html.Node {
	if id := n.Attrs.String(blockid.Attr); id != "" {
		el.Attr = append(el.Attr, attribute("data-block-id", id))
	}
	return el
}

func renderTable(n *doc.Node) *html.Node {
	el := element(atom.Table)
	if n.Attrs.Bool(table.AttrShowRowNumbers) {
		el.Attr = append(el.Attr, attribute("data-show-row-numbers", "true"))
	}
	body := element(atom.Tbody)
	for _, row := range n.Content {
		tr := element(atom.Tr)
		for _, cell := range row.Content {
			tag := atom.Td
			if cell.Type == doc.KindTableHeader {
				tag = atom.Th
			}
			td := element(tag)
			for _, key := range []string{"colspan", "rowspan"} {
				if v := cell.Attrs.Int(key, 1); v > 1 {
					td.Attr = append(td.Attr, attribute(key, strconv.Itoa(v)))
				}
			}
			if widths := cell.Attrs.Ints("colwidth"); len(widths) > 0 {
				parts := make([]string, len(widths))
				for i, w := range widths {
					parts[i] = strconv.Itoa(w)
				}
				td.Attr = append(td.Attr, attribute("data-colwidth", strings.Join(parts, ",")))
			}
			if style := cell.Attrs.String("style"); style != "" {
				td.Attr = append(td.Attr, attribute("style", style))
			}
			if cell.Attrs.Bool(table.AttrRowNumber) {
				td.Attr = append(td.Attr, attribute("data-row-number", "true"))
			}
			tr.AppendChild(appendAll(td, renderChildren(cell)))
		}
		body.AppendChild(tr)
	}
	el.AppendChild(body)
	return el
}

var markAtoms = map[string]atom.Atom{
	"bold":        atom.Strong,
	"italic":      atom.Em,
	"underline":   atom.U,
	"strike":      atom.S,
	"code":        atom.Code,
	"subscript":   atom.Sub,
	"superscript": atom.Sup,
}

// renderText wraps the text in its marks, the first mark outermost.
func renderText(n *doc.Node) *html.Node {
	out := &html.Node{Type: html.TextNode, Data: n.Text}
	for i := len(n.Marks) - 1; i >= 0; i-- {
		m := n.Marks[i]
		var wrap *html.Node
		if m.Type == "link" {
			wrap = element(atom.A, attribute("href", m.Attrs.String("href")))
		} else if a, ok := markAtoms[m.Type]; ok {
			wrap = element(a)
		} else {
			continue
		}
		wrap.AppendChild(out)
		out = wrap
	}
	return out
}
