package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/ingest"
	"github.com/roach88/catalog/internal/model"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Analysis string
	Name     string
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <image>",
		Short: "Store an image with the items found by an analysis",
		Long: `Store an image together with the items and prompt of an analysis.

The analysis is a saved chat completion response. Its message content must
contain a JSON object with "items" and "visible_text". Prompt settings
(model, system prompt, user prompt, max tokens) are read from Settings and
recorded on the prompt.

Examples:
  catalog ingest ./shelf.jpg --analysis ./shelf.response.json
  catalog ingest ./shelf.jpg --analysis ./shelf.response.json --name "Garage" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runIngest(ctx, s, opts, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&opts.Analysis, "analysis", "", "path to the saved analysis response (required)")
	_ = cmd.MarkFlagRequired("analysis")
	cmd.Flags().StringVar(&opts.Name, "name", "", "image name (defaults to the file name)")

	return cmd
}

func runIngest(ctx context.Context, s *session, opts *IngestOptions, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read image", err)
	}
	name := opts.Name
	if name == "" {
		name = defaultImageName(path)
	}

	p := ingest.NewPipeline(s.reg, ingest.FileAnalyzer{Path: opts.Analysis})
	out, err := p.Ingest(ctx, name, data)
	if err != nil {
		if ingest.IsMissingSetting(err) {
			return WrapExitError(ExitFailure, "ingest failed", err)
		}
		return serviceExit("ingest failed", err)
	}

	detail := imageDetail{Image: summarize(out.Image), Items: out.Items, Prompts: []model.Prompt{out.Prompt}}
	return s.out.Success(detail, func(w io.Writer) {
		fmt.Fprintf(w, "Ingested image %s with %d items\n", out.Image.ID, len(out.Items))
		for _, it := range out.Items {
			writeItemLine(w, it)
		}
	})
}
