package clipboard

import (
	"reflect"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"beskar/editor/internal/doc"
)

var markTags = map[atom.Atom]string{
	atom.Strong: "bold",
	atom.B:      "bold",
	atom.Em:     "italic",
	atom.I:      "italic",
	atom.U:      "underline",
	atom.S:      "strike",
	atom.Strike: "strike",
	atom.Del:    "strike",
	atom.Code:   "code",
	atom.Sub:    "subscript",
	atom.Sup:    "superscript",
}

func (c *converter) inlineChildren(n *html.Node, marks []doc.Mark) []*doc.Node {
	var out []*doc.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, c.inline(child, marks)...)
	}
	return out
}

// inline converts n to inline nodes carrying marks. Leaf blocks such as
// images are set aside in c.hoisted.
func (c *converter) inline(n *html.Node, marks []doc.Mark) []*doc.Node {
	switch n.Type {
	case html.TextNode:
		text := collapseSpace(n.Data)
		if text == "" {
			return nil
		}
		return []*doc.Node{doc.NewText(text, marks...)}
	case html.ElementNode:
	default:
		return nil
	}

	switch n.DataAtom {
	case atom.Br:
		return []*doc.Node{doc.New(doc.KindHardBreak, nil)}
	case atom.Img:
		if img := image(n); img != nil {
			c.hoisted = append(c.hoisted, img)
		}
		return nil
	case atom.Script, atom.Style, atom.Template:
		return nil
	case atom.A:
		if href := attr(n, "href"); href != "" {
			return c.inlineChildren(n, withMark(marks, doc.Mark{Type: "link", Attrs: doc.Attrs{"href": href}}))
		}
	}
	if mark, ok := markTags[n.DataAtom]; ok {
		return c.inlineChildren(n, withMark(marks, doc.Mark{Type: mark}))
	}
	return c.inlineChildren(n, marks)
}

func withMark(marks []doc.Mark, m doc.Mark) []doc.Mark {
	for _, existing := range marks {
		if existing.Type == m.Type {
			return marks
		}
	}
	out := make([]doc.Mark, 0, len(marks)+1)
	out = append(out, marks...)
	return append(out, m)
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				b.WriteByte(' ')
			}
			space = true
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}

// textblock builds a textblock from inline nodes, trimming the spaces
// HTML rendering would not show and merging text runs with equal marks.
// It returns nil when nothing visible is left.
func (c *converter) textblock(kind doc.Kind, attrs doc.Attrs, inline []*doc.Node) *doc.Node {
	var out []*doc.Node
	atLineStart := true
	for _, n := range inline {
		if n.Type == doc.KindHardBreak {
			out = trimTrailing(out)
			out = append(out, n)
			atLineStart = true
			continue
		}
		text := n.Text
		if atLineStart || endsWithSpace(out) {
			text = strings.TrimLeft(text, " ")
		}
		if text == "" {
			continue
		}
		atLineStart = false
		if last := len(out) - 1; last >= 0 && out[last].Type == doc.KindText && reflect.DeepEqual(out[last].Marks, n.Marks) {
			out[last] = doc.NewText(out[last].Text+text, n.Marks...)
			continue
		}
		out = append(out, doc.NewText(text, n.Marks...))
	}
	out = trimTrailing(out)
	for len(out) > 0 && out[len(out)-1].Type == doc.KindHardBreak {
		out = trimTrailing(out[:len(out)-1])
	}
	if len(out) == 0 {
		return nil
	}
	return doc.New(kind, attrs, out...)
}

func endsWithSpace(nodes []*doc.Node) bool {
	if len(nodes) == 0 {
		return false
	}
	last := nodes[len(nodes)-1]
	return last.Type == doc.KindText && strings.HasSuffix(last.Text, " ")
}

func trimTrailing(nodes []*doc.Node) []*doc.Node {
	for len(nodes) > 0 {
		last := nodes[len(nodes)-1]
		if last.Type != doc.KindText {
			return nodes
		}
		text := strings.TrimRight(last.Text, " ")
		if text != "" {
			nodes[len(nodes)-1] = doc.NewText(text, last.Marks...)
			return nodes
		}
		nodes = nodes[:len(nodes)-1]
	}
	return nodes
}
