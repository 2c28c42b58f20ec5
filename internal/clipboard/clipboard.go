// Package clipboard turns clipboard HTML into document fragments that can
// be handed to the editor's paste hook.
package clipboard

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"beskar/editor/internal/blockid"
	"beskar/editor/internal/doc"
)

// BlockIDAttr is the HTML attribute holding a block identifier.
const BlockIDAttr = "data-block-id"

// ParseHTML parses an HTML fragment into top-level blocks. Identifiers
// found in data-block-id attributes are kept; the paste hook decides what
// to do with them.
func ParseHTML(src string) ([]*doc.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, fmt.Errorf("parse clipboard html: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	blocks := (&converter{}).blocks(body)
	out := doc.New(doc.KindDoc, nil, blocks...)
	if err := out.Check(); err != nil {
		return nil, fmt.Errorf("parse clipboard html: %w", err)
	}
	return blocks, nil
}

type converter struct {
	// leaf blocks met inside inline content, emitted after the textblock
	hoisted []*doc.Node
}

// blocks converts the children of n to block nodes. Loose inline content
// is wrapped in paragraphs.
func (c *converter) blocks(n *html.Node) []*doc.Node {
	var out, run []*doc.Node
	flush := func() {
		if p := c.textblock(doc.KindParagraph, nil, run); p != nil {
			out = append(out, p)
		}
		out = append(out, c.takeHoisted()...)
		run = nil
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		block, isBlock := c.block(child)
		if !isBlock {
			run = append(run, c.inline(child, nil)...)
			continue
		}
		flush()
		out = append(out, block...)
	}
	flush()
	return out
}

func (c *converter) takeHoisted() []*doc.Node {
	out := c.hoisted
	c.hoisted = nil
	return out
}

// block converts a block-level element. It reports false for inline
// content.
func (c *converter) block(n *html.Node) ([]*doc.Node, bool) {
	if n.Type != html.ElementNode {
		return nil, false
	}
	var node *doc.Node
	switch n.DataAtom {
	case atom.P:
		node = c.textblock(doc.KindParagraph, nil, c.inlineChildren(n, nil))
		if node == nil {
			node = doc.New(doc.KindParagraph, nil)
		}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		node = c.textblock(doc.KindHeading, doc.Attrs{"level": level}, c.inlineChildren(n, nil))
		if node == nil {
			node = doc.New(doc.KindHeading, doc.Attrs{"level": level})
		}
	case atom.Ul:
		if attr(n, "data-type") == "taskList" {
			node = c.list(n, doc.KindTaskList, doc.KindTaskItem, nil)
		} else {
			node = c.list(n, doc.KindBulletList, doc.KindListItem, nil)
		}
	case atom.Ol:
		var attrs doc.Attrs
		if start, err := strconv.Atoi(attr(n, "start")); err == nil {
			attrs = doc.Attrs{"start": start}
		}
		node = c.list(n, doc.KindOrderedList, doc.KindListItem, attrs)
	case atom.Blockquote:
		node = doc.New(doc.KindBlockquote, nil, c.nonEmpty(c.blocks(n))...)
	case atom.Pre:
		node = codeBlock(n)
	case atom.Hr:
		node = doc.New(doc.KindHorizontalRule, nil)
	case atom.Img:
		node = image(n)
	case atom.Table:
		node = c.table(n)
	case atom.Details:
		node = c.details(n)
	case atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Footer, atom.Aside, atom.Figure:
		inner := c.blocks(n)
		if attr(n, "data-type") == "note" {
			node = doc.New(doc.KindNote, nil, c.nonEmpty(inner)...)
			break
		}
		return inner, true
	default:
		return nil, false
	}
	if node == nil {
		return nil, true
	}
	if id := attr(n, BlockIDAttr); id != "" {
		node = node.WithAttrs(node.Attrs.With(blockid.Attr, id))
	}
	return []*doc.Node{node}, true
}

func (c *converter) nonEmpty(blocks []*doc.Node) []*doc.Node {
	if len(blocks) == 0 {
		return []*doc.Node{doc.New(doc.KindParagraph, nil)}
	}
	return blocks
}

func (c *converter) list(n *html.Node, kind, itemKind doc.Kind, attrs doc.Attrs) *doc.Node {
	var items []*doc.Node
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		var itemAttrs doc.Attrs
		if itemKind == doc.KindTaskItem {
			itemAttrs = doc.Attrs{"checked": attr(li, "data-checked") == "true"}
		}
		items = append(items, doc.New(itemKind, itemAttrs, c.nonEmpty(c.blocks(li))...))
	}
	if len(items) == 0 {
		return nil
	}
	return doc.New(kind, attrs, items...)
}

func (c *converter) table(n *html.Node) *doc.Node {
	var rows []*doc.Node
	var walk func(*html.Node)
	walk = func(parent *html.Node) {
		for child := parent.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			switch child.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(child)
			case atom.Tr:
				if r := c.row(child); r != nil {
					rows = append(rows, r)
				}
			}
		}
	}
	walk(n)
	if len(rows) == 0 {
		return nil
	}
	var attrs doc.Attrs
	if attr(n, "data-show-row-numbers") == "true" {
		attrs = doc.Attrs{"showRowNumbers": true}
	}
	return doc.New(doc.KindTable, attrs, rows...)
}

func (c *converter) row(tr *html.Node) *doc.Node {
	var cells []*doc.Node
	for td := tr.FirstChild; td != nil; td = td.NextSibling {
		if td.Type != html.ElementNode {
			continue
		}
		kind := doc.KindTableCell
		switch td.DataAtom {
		case atom.Th:
			kind = doc.KindTableHeader
		case atom.Td:
		default:
			continue
		}
		attrs := doc.Attrs{}
		for _, key := range []string{"colspan", "rowspan"} {
			if v, err := strconv.Atoi(attr(td, key)); err == nil && v > 1 {
				attrs[key] = v
			}
		}
		if widths := colwidth(attr(td, "data-colwidth")); widths != nil {
			attrs["colwidth"] = widths
		}
		if style := attr(td, "style"); style != "" {
			attrs["style"] = style
		}
		if attr(td, "data-row-number") == "true" {
			attrs["rowNumber"] = true
		}
		if len(attrs) == 0 {
			attrs = nil
		}
		cells = append(cells, doc.New(kind, attrs, c.nonEmpty(c.blocks(td))...))
	}
	if len(cells) == 0 {
		return nil
	}
	return doc.New(doc.KindTableRow, nil, cells...)
}

func colwidth(v string) []int {
	if v == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		w, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil
		}
		out = append(out, w)
	}
	return out
}

func (c *converter) details(n *html.Node) *doc.Node {
	summary := doc.New(doc.KindDetailsSummary, nil)
	content := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.ElementNode && child.DataAtom == atom.Summary {
			if s := c.textblock(doc.KindDetailsSummary, nil, c.inlineChildren(child, nil)); s != nil {
				summary = s
			}
		} else {
			n.RemoveChild(child)
			content.AppendChild(child)
		}
		child = next
	}
	body := doc.New(doc.KindDetailsContent, nil, c.nonEmpty(c.blocks(content))...)
	return doc.New(doc.KindDetails, nil, summary, body)
}

func codeBlock(n *html.Node) *doc.Node {
	var attrs doc.Attrs
	text := textOf(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.DataAtom == atom.Code {
			for _, class := range strings.Fields(attr(child, "class")) {
				if lang, ok := strings.CutPrefix(class, "language-"); ok {
					attrs = doc.Attrs{"language": lang}
				}
			}
		}
	}
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return doc.New(doc.KindCodeBlock, attrs)
	}
	return doc.New(doc.KindCodeBlock, attrs, doc.NewText(text))
}

func image(n *html.Node) *doc.Node {
	src := attr(n, "src")
	if src == "" {
		return nil
	}
	attrs := doc.Attrs{"src": src}
	if alt := attr(n, "alt"); alt != "" {
		attrs["alt"] = alt
	}
	return doc.New(doc.KindImage, attrs)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
			return
		}
		if cur.Type == html.ElementNode && cur.DataAtom == atom.Br {
			b.WriteByte('\n')
			return
		}
		for child := cur.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
