// Package cli implements blockctl, the offline tool over ProseMirror JSON
// document files.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"beskar/editor/internal/blockid"
	"beskar/editor/internal/config"
	"beskar/editor/internal/doc"
	"beskar/editor/internal/editor"
	"beskar/editor/internal/table"
)

type App struct {
	Write      bool
	PrettyJSON bool
	Locale     string

	cfg    config.Config
	logger *log.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{cfg: config.Load()}

	cmd := &cobra.Command{
		Use:          "blockctl",
		Short:        "Inspect and edit block documents offline",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Assign missing block ids in place
  blockctl repair -w doc.json

  # Move a block after another one
  blockctl move doc.json --block block-a --target block-c --placement after

  # Sort a table by its second column
  blockctl table doc.json sortByColumn --block block-t --col 1 --ascending

  # Render a document to HTML
  blockctl export doc.json --title Plan > plan.html
`),
	}
	cmd.PersistentFlags().BoolVarP(&app.Write, "write", "w", false, "write the result back to the input file")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "indent JSON output")
	cmd.PersistentFlags().StringVar(&app.Locale, "locale", app.cfg.SortLocale, "BCP 47 locale for table sorting")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.logger = log.New(cmd.ErrOrStderr(), "", 0)
		return nil
	}

	cmd.AddCommand(newRepairCmd(app))
	cmd.AddCommand(newVerifyCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newPasteCmd(app))
	cmd.AddCommand(newTableCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newTokenCmd(app))
	return cmd
}

func (a *App) ids() *blockid.Manager {
	return blockid.New(blockid.WithLogger(a.logger))
}

func (a *App) tables() *table.Commands {
	return table.NewCommands(table.WithLocale(a.Locale), table.WithLogger(a.logger))
}

// open loads path into an editor carrying the identity and shape-repair
// observers.
func (a *App) open(path string) (*editor.Editor, *blockid.Manager, error) {
	root, err := readDoc(path)
	if err != nil {
		return nil, nil, err
	}
	ids := a.ids()
	ed := editor.New(root,
		editor.WithPlugins(ids, table.NewShapeRepair(nil, a.logger)),
		editor.WithLogger(a.logger),
	)
	return ed, ids, nil
}

func readDoc(path string) (*doc.Node, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	root, err := doc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return root, nil
}

// save writes root back to path with --write, otherwise to stdout.
func (a *App) save(cmd *cobra.Command, path string, root *doc.Node) error {
	if a.Write && path != "-" {
		data, err := a.marshal(root)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}
	return a.writeOut(cmd, root)
}

func (a *App) marshal(v any) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if a.PrettyJSON {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	return append(data, '\n'), nil
}

func (a *App) writeOut(cmd *cobra.Command, v any) error {
	data, err := a.marshal(v)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
