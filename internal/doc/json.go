package doc

import (
	"encoding/json"
	"fmt"
)

// wireNode is the ProseMirror JSON shape of a node.
type wireNode struct {
	Type    string  `json:"type"`
	Attrs   Attrs   `json:"attrs,omitempty"`
	Content []*Node `json:"content,omitempty"`
	Text    string  `json:"text,omitempty"`
	Marks   []Mark  `json:"marks,omitempty"`
}

// MarshalJSON encodes the node in ProseMirror JSON form.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireNode{
		Type:    n.TypeName(),
		Attrs:   n.Attrs,
		Content: n.Content,
		Text:    n.Text,
		Marks:   n.Marks,
	})
}

// UnmarshalJSON decodes ProseMirror JSON. Unknown node types are kept as
// KindOther with their original name.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind := ParseKind(w.Type)
	if kind == KindInvalid {
		return fmt.Errorf("decode node: missing type")
	}
	*n = Node{Type: kind, Attrs: w.Attrs, Content: w.Content, Text: w.Text, Marks: w.Marks}
	if kind == KindOther {
		n.typeName = w.Type
	}
	return nil
}

// Parse decodes a ProseMirror JSON document and validates its structure.
func Parse(data []byte) (*Node, error) {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if root.Type != KindDoc {
		return nil, fmt.Errorf("parse document: root is %q, want doc", root.TypeName())
	}
	if err := root.Check(); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &root, nil
}
