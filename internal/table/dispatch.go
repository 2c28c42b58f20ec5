package table

import (
	"errors"
	"fmt"
	"sort"

	"beskar/editor/internal/doc"
	"beskar/editor/internal/editor"
)

// ErrUnknownCommand is returned by Lookup for names it does not know.
var ErrUnknownCommand = errors.New("unknown table command")

// Args carries the parameters of a named command. Commands ignore the
// fields they do not use.
type Args struct {
	Row       int
	Col       int
	Ascending bool
	Color     string
}

type namedCommand func(c *Commands, tr *doc.Transaction, args Args) *doc.Transaction

var registry = map[string]namedCommand{
	"addColumnBefore":    func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.AddColumnBefore(tr) },
	"addColumnAfter":     func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.AddColumnAfter(tr) },
	"deleteColumn":       func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.DeleteColumn(tr) },
	"addRowBefore":       func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.AddRowBefore(tr) },
	"addRowAfter":        func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.AddRowAfter(tr) },
	"deleteRow":          func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.DeleteRow(tr) },
	"deleteTable":        func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.DeleteTable(tr) },
	"clearCells":         func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.ClearCells(tr) },
	"distributeColumns":  func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.DistributeColumns(tr) },
	"moveColumnLeft":     func(c *Commands, tr *doc.Transaction, a Args) *doc.Transaction { return c.MoveColumnLeft(tr, a.Col) },
	"moveColumnRight":    func(c *Commands, tr *doc.Transaction, a Args) *doc.Transaction { return c.MoveColumnRight(tr, a.Col) },
	"moveRowUp":          func(c *Commands, tr *doc.Transaction, a Args) *doc.Transaction { return c.MoveRowUp(tr, a.Row) },
	"moveRowDown":        func(c *Commands, tr *doc.Transaction, a Args) *doc.Transaction { return c.MoveRowDown(tr, a.Row) },
	"toggleHeaderRow":    func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.ToggleHeaderRow(tr) },
	"toggleHeaderColumn": func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.ToggleHeaderColumn(tr) },
	"toggleRowNumbers":   func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.ToggleRowNumbers(tr) },
	"sortByColumn":       func(c *Commands, tr *doc.Transaction, a Args) *doc.Transaction { return c.SortByColumn(tr, a.Col, a.Ascending) },
	"setCellBackground":  func(c *Commands, tr *doc.Transaction, a Args) *doc.Transaction { return c.SetCellBackgroundColor(tr, a.Color) },
	"selectRow":          func(c *Commands, tr *doc.Transaction, a Args) *doc.Transaction { return c.SelectRow(tr, a.Row) },
	"selectColumn":       func(c *Commands, tr *doc.Transaction, a Args) *doc.Transaction { return c.SelectColumn(tr, a.Col) },
	"selectTable":        func(c *Commands, tr *doc.Transaction, _ Args) *doc.Transaction { return c.SelectTable(tr) },
}

// Names lists the commands Lookup accepts, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup binds the named command to args.
func (c *Commands) Lookup(name string, args Args) (editor.Command, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", name, ErrUnknownCommand)
	}
	return func(tr *doc.Transaction) *doc.Transaction {
		return fn(c, tr, args)
	}, nil
}
