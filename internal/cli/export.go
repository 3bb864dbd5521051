package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every table to a JSON dump",
		Long: `Write every table to a JSON dump.

The dump is read in one transaction and can be loaded with import.

Examples:
  catalog export > backup.json
  catalog export --output backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runExport(ctx, s, opts, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func runExport(ctx context.Context, s *session, opts *ExportOptions, stdout io.Writer) error {
	dump, err := s.store.Export(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to export", err)
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode dump", err)
	}
	data = append(data, '\n')

	if opts.Output == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write dump", err)
	}
	return s.out.Success(dumpCounts(dump), func(w io.Writer) {
		fmt.Fprintf(w, "Exported to %s\n", opts.Output)
	})
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace every table with a JSON dump",
		Long: `Replace every table with the contents of a dump written by export.

Existing records are removed first. Every record is validated as it would
be when added, and each image's newest child is recomputed. The whole
import is one transaction: on any error nothing changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runImport(ctx, s, args[0])
			})
		},
	}
}

func runImport(ctx context.Context, s *session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dump", err)
	}
	var dump store.Dump
	if err := json.Unmarshal(data, &dump); err != nil {
		return WrapExitError(ExitCommandError, "failed to decode dump", err)
	}
	if err := s.reg.Import(ctx, &dump); err != nil {
		return WrapExitError(ExitFailure, "failed to import", err)
	}
	return s.out.Success(dumpCounts(&dump), func(w io.Writer) {
		fmt.Fprintf(w, "Imported %s\n", path)
	})
}

func dumpCounts(d *store.Dump) map[model.Table]int {
	counts := make(map[model.Table]int, len(model.Tables))
	for _, t := range model.Tables {
		counts[t] = len(d.Tables[t])
	}
	return counts
}
