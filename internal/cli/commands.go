package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"beskar/editor/internal/auth"
	"beskar/editor/internal/clipboard"
	"beskar/editor/internal/doc"
	"beskar/editor/internal/dragdrop"
	"beskar/editor/internal/export"
	"beskar/editor/internal/table"
)

var errUnchanged = errors.New("document unchanged")

func newRepairCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <file>",
		Short: "Assign missing block ids and clear misplaced ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, ids, err := app.open(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			tr := ed.Transaction()
			n := ids.Repair(tr)
			if n > 0 {
				if err := ed.Dispatch(tr); err != nil {
					return writeErr(cmd, err)
				}
			}
			app.logger.Printf("repaired %d blocks", n)
			return app.save(cmd, args[0], ed.Doc())
		},
	}
}

func newVerifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check that every addressable block has a unique id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := readDoc(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.ids().Verify(root); err != nil {
				return writeErr(cmd, err)
			}
			return app.writeOut(cmd, map[string]any{"ok": true, "blocks": root.ChildCount()})
		},
	}
}

func newMoveCmd(app *App) *cobra.Command {
	var blockID, targetID, placement string
	cmd := &cobra.Command{
		Use:   "move <file>",
		Short: "Move a top-level block before or after another one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			where, err := dragdrop.ParsePlacement(placement)
			if err != nil {
				return writeErr(cmd, err)
			}
			ed, _, err := app.open(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			move, err := dragdrop.PlanMove(ed.Doc(), blockID, nil, targetID, where)
			if err != nil {
				return writeErr(cmd, err)
			}
			tr, err := dragdrop.MoveTransaction(ed.Doc(), move)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := ed.Dispatch(tr); err != nil {
				return writeErr(cmd, err)
			}
			return app.save(cmd, args[0], ed.Doc())
		},
	}
	cmd.Flags().StringVar(&blockID, "block", "", "id of the block to move")
	cmd.Flags().StringVar(&targetID, "target", "", "id of the block to move next to")
	cmd.Flags().StringVar(&placement, "placement", "before", "before or after")
	_ = cmd.MarkFlagRequired("block")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newPasteCmd(app *App) *cobra.Command {
	var htmlFile, afterID string
	cmd := &cobra.Command{
		Use:   "paste <file>",
		Short: "Paste clipboard HTML into a document; pasted blocks get fresh ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(htmlFile)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("read %s: %w", htmlFile, err))
			}
			nodes, err := clipboard.ParseHTML(string(src))
			if err != nil {
				return writeErr(cmd, err)
			}
			ed, _, err := app.open(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			pos := ed.Doc().ContentSize()
			if afterID != "" {
				b, ok := dragdrop.FindBlock(ed.Doc(), afterID)
				if !ok {
					return writeErr(cmd, fmt.Errorf("paste after %q: %w", afterID, dragdrop.ErrNoTarget))
				}
				pos = b.Pos + b.Node.Size()
			}
			if err := ed.PasteAt(pos, nodes); err != nil {
				return writeErr(cmd, err)
			}
			return app.save(cmd, args[0], ed.Doc())
		},
	}
	cmd.Flags().StringVar(&htmlFile, "html", "", "file holding the clipboard HTML")
	cmd.Flags().StringVar(&afterID, "after", "", "id of the block to paste after (default: end of document)")
	_ = cmd.MarkFlagRequired("html")
	return cmd
}

func newTableCmd(app *App) *cobra.Command {
	var (
		blockID string
		args    table.Args
	)
	cmd := &cobra.Command{
		Use:       "table <file> <command>",
		Short:     "Run a table command with the cursor in one cell",
		Args:      cobra.ExactArgs(2),
		ValidArgs: table.Names(),
		RunE: func(cmd *cobra.Command, argv []string) error {
			command, err := app.tables().Lookup(argv[1], args)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("%w (known: %v)", err, table.Names()))
			}
			ed, _, err := app.open(argv[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			b, ok := dragdrop.FindBlock(ed.Doc(), blockID)
			if !ok || b.Node.Type != doc.KindTable {
				return writeErr(cmd, fmt.Errorf("no table with id %q", blockID))
			}
			sel, ok := table.CursorIn(ed.Doc(), b.Pos, args.Row, args.Col)
			if !ok {
				return writeErr(cmd, fmt.Errorf("cell (%d, %d) is outside table %q", args.Row, args.Col, blockID))
			}
			ed.SetSelection(sel)
			before := ed.Doc()
			if _, err := ed.Exec(command); err != nil {
				return writeErr(cmd, err)
			}
			if ed.Doc() == before {
				return writeErr(cmd, fmt.Errorf("%s: %w", argv[1], errUnchanged))
			}
			return app.save(cmd, argv[0], ed.Doc())
		},
	}
	cmd.Flags().StringVar(&blockID, "block", "", "id of the table block")
	cmd.Flags().IntVar(&args.Row, "row", 0, "row of the cursor cell")
	cmd.Flags().IntVar(&args.Col, "col", 0, "column of the cursor cell")
	cmd.Flags().BoolVar(&args.Ascending, "ascending", false, "sort ascending")
	cmd.Flags().StringVar(&args.Color, "color", "", "background color; empty clears it")
	_ = cmd.MarkFlagRequired("block")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var title, format, output string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Render a document as an HTML page or a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return writeErr(cmd, err)
			}
			root, err := readDoc(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			result, err := export.NewService().Export(ctx, export.Document{Title: title, Version: 1, Root: root}, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(result.Data)
				return err
			}
			if err := os.WriteFile(output, result.Data, 0o644); err != nil {
				return writeErr(cmd, fmt.Errorf("write %s: %w", output, err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "Untitled", "document title")
	cmd.Flags().StringVar(&format, "format", "html", "html or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newTokenCmd(app *App) *cobra.Command {
	var sub, name, role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.IssueToken([]byte(app.cfg.JWTSecret), auth.NewClaims(sub, name, role, ttl))
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.writeOut(cmd, map[string]any{"token": token, "role": role})
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "local", "token subject")
	cmd.Flags().StringVar(&name, "name", "", "display name recorded as author")
	cmd.Flags().StringVar(&role, "role", "editor", "viewer, editor or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
