package table

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"

	"beskar/editor/internal/doc"
)

const backgroundColor = "background-color"

// SetCellBackgroundColor sets the background of the selected cells. Other
// declarations in the cell style are kept; an empty color removes the
// background.
func (c *Commands) SetCellBackgroundColor(tr *doc.Transaction, color string) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || !c.shaped(ctx, "set cell background") {
		return tr
	}
	cp, sel := tr.Checkpoint(), tr.Selection
	for _, pos := range ctx.selectedCells(*tr.Selection) {
		cell := tr.Doc.NodeAt(pos)
		if cell == nil || !cell.Type.IsCell() {
			continue
		}
		style := withBackground(cell.Attrs.String("style"), color)
		if style == cell.Attrs.String("style") {
			continue
		}
		var value any
		if style != "" {
			value = style
		}
		if err := tr.SetNodeAttribute(pos, "style", value); err != nil {
			c.rollback(tr, cp, sel)
			c.logger.Printf("table: set cell background: %v", err)
			return tr
		}
	}
	return tr
}

// withBackground rewrites the background-color declaration of style.
// Styles that fail to parse are replaced outright.
func withBackground(style, color string) string {
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		decls = nil
	}
	kept := make([]string, 0, len(decls)+1)
	for _, decl := range decls {
		if strings.EqualFold(decl.Property, backgroundColor) {
			continue
		}
		kept = append(kept, decl.String())
	}
	if color = strings.TrimSpace(color); color != "" {
		kept = append(kept, (&css.Declaration{Property: backgroundColor, Value: color}).String())
	}
	return strings.Join(kept, " ")
}
