// Package doc implements the document tree the editing core operates on:
// immutable nodes addressed by integer positions, steps that rewrite them,
// and transactions that batch steps atomically.
package doc

// Kind identifies the type of a node. The set is closed; node types that
// are not known to this package decode as KindOther and keep their name.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindDoc
	KindParagraph
	KindHeading
	KindBulletList
	KindOrderedList
	KindTaskList
	KindListItem
	KindTaskItem
	KindBlockquote
	KindCodeBlock
	KindHorizontalRule
	KindTable
	KindTableRow
	KindTableCell
	KindTableHeader
	KindDetails
	KindDetailsSummary
	KindDetailsContent
	KindNote
	KindImage
	KindMathBlock
	KindTableOfContents
	KindText
	KindHardBreak
	KindOther
)

var kindNames = [...]string{
	KindInvalid:         "",
	KindDoc:             "doc",
	KindParagraph:       "paragraph",
	KindHeading:         "heading",
	KindBulletList:      "bulletList",
	KindOrderedList:     "orderedList",
	KindTaskList:        "taskList",
	KindListItem:        "listItem",
	KindTaskItem:        "taskItem",
	KindBlockquote:      "blockquote",
	KindCodeBlock:       "codeBlock",
	KindHorizontalRule:  "horizontalRule",
	KindTable:           "table",
	KindTableRow:        "tableRow",
	KindTableCell:       "tableCell",
	KindTableHeader:     "tableHeader",
	KindDetails:         "details",
	KindDetailsSummary:  "detailsSummary",
	KindDetailsContent:  "detailsContent",
	KindNote:            "noteBlock",
	KindImage:           "imageBlock",
	KindMathBlock:       "mathBlock",
	KindTableOfContents: "tableOfContents",
	KindText:            "text",
	KindHardBreak:       "hardBreak",
	KindOther:           "",
}

var kindsByName = func() map[string]Kind {
	out := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if name != "" {
			out[name] = Kind(k)
		}
	}
	// aliases used by older documents
	out["image"] = KindImage
	out["note"] = KindNote
	return out
}()

// String returns the wire name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

// ParseKind maps a wire name to a kind. Unknown names yield KindOther.
func ParseKind(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	if name == "" {
		return KindInvalid
	}
	return KindOther
}

// IsLeaf reports whether nodes of this kind have no content and occupy a
// single position.
func (k Kind) IsLeaf() bool {
	switch k {
	case KindHorizontalRule, KindImage, KindMathBlock, KindTableOfContents, KindHardBreak:
		return true
	default:
		return false
	}
}

// IsTextblock reports whether the kind holds inline content directly.
func (k Kind) IsTextblock() bool {
	switch k {
	case KindParagraph, KindHeading, KindCodeBlock, KindDetailsSummary:
		return true
	default:
		return false
	}
}

// IsInline reports whether the kind lives inside a textblock.
func (k Kind) IsInline() bool {
	return k == KindText || k == KindHardBreak
}

// IsList reports whether the kind is a list container.
func (k Kind) IsList() bool {
	switch k {
	case KindBulletList, KindOrderedList, KindTaskList:
		return true
	default:
		return false
	}
}

// IsCell reports whether the kind is a table cell of either flavour.
func (k Kind) IsCell() bool {
	return k == KindTableCell || k == KindTableHeader
}

// TableRole classifies kinds that take part in table structure.
type TableRole uint8

const (
	RoleNone TableRole = iota
	RoleTable
	RoleRow
	RoleCell
	RoleHeaderCell
)

// TableRole returns the table role of the kind.
func (k Kind) TableRole() TableRole {
	switch k {
	case KindTable:
		return RoleTable
	case KindTableRow:
		return RoleRow
	case KindTableCell:
		return RoleCell
	case KindTableHeader:
		return RoleHeaderCell
	default:
		return RoleNone
	}
}
