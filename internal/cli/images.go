package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/model"
)

// imageSummary is an Image without its file bytes.
type imageSummary struct {
	ID          string          `json:"id"`
	CreatedAt   int64           `json:"createdAt"`
	Name        string          `json:"name,omitempty"`
	Size        int             `json:"size"`
	VisibleText []string        `json:"visibleText"`
	LastChild   *model.ChildRef `json:"lastChild,omitempty"`
}

func summarize(img model.Image) imageSummary {
	return imageSummary{
		ID:          img.ID,
		CreatedAt:   img.CreatedAt,
		Name:        img.Name,
		Size:        len(img.File),
		VisibleText: img.VisibleText,
		LastChild:   img.LastChild,
	}
}

// imageDetail is an image together with its children.
type imageDetail struct {
	Image   imageSummary   `json:"image"`
	Items   []model.Item   `json:"items"`
	Prompts []model.Prompt `json:"prompts"`
}

// ImagesOptions holds flags for the images commands.
type ImagesOptions struct {
	*RootOptions
	Name string
}

// NewImagesCommand creates the images command group.
func NewImagesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImagesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage images and, through them, their items and prompts",
		Long: `Manage images.

Removing an image removes its items and prompts. clear empties the images
table together with every item and prompt.

Examples:
  catalog images add ./shelf.jpg --name "Garage shelf"
  catalog images list
  catalog images show img-0192...
  catalog images remove img-0192...`,
	}

	add := &cobra.Command{
		Use:   "add <file>",
		Short: "Store an image file without analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runImagesAdd(ctx, s, opts, args[0])
			})
		},
	}
	add.Flags().StringVar(&opts.Name, "name", "", "image name (defaults to the file name)")

	cmd.AddCommand(add,
		&cobra.Command{
			Use:   "list",
			Short: "List images by name",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, rootOpts, runImagesList)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show an image with its items and prompts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
					return runImagesShow(ctx, s, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove an image and its children",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
					return runImagesRemove(ctx, s, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every image, item and prompt",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, rootOpts, runImagesClear)
			},
		},
	)
	return cmd
}

func runImagesAdd(ctx context.Context, s *session, opts *ImagesOptions, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read image", err)
	}
	name := opts.Name
	if name == "" {
		name = defaultImageName(path)
	}

	img, err := s.reg.Images().AddRecord(ctx, model.NewImage(model.ImageParams{
		Name: name,
		File: data,
	}))
	if err != nil {
		return serviceExit("failed to add image", err)
	}
	return s.out.Success(summarize(img), func(w io.Writer) {
		fmt.Fprintf(w, "Added image %s (%d bytes)\n", img.ID, len(img.File))
	})
}

func runImagesList(ctx context.Context, s *session) error {
	images, err := s.reg.Images().List(ctx)
	if err != nil {
		return serviceExit("failed to list images", err)
	}

	rows := make([]imageSummary, len(images))
	for i, img := range images {
		rows[i] = summarize(img)
	}
	return s.out.Success(rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No images")
			return
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%s  %-24s %8d bytes  %s\n", r.ID, r.Name, r.Size, lastChildText(r.LastChild))
		}
	})
}

func runImagesShow(ctx context.Context, s *session, id string) error {
	img, err := s.reg.Images().GetRecord(ctx, id)
	if err != nil {
		return serviceExit("failed to read image", err)
	}
	items, err := s.reg.Items().ListByParent(ctx, id)
	if err != nil {
		return serviceExit("failed to list items", err)
	}
	prompts, err := s.reg.Prompts().ListByParent(ctx, id)
	if err != nil {
		return serviceExit("failed to list prompts", err)
	}

	detail := imageDetail{Image: summarize(img), Items: items, Prompts: prompts}
	return s.out.Success(detail, func(w io.Writer) {
		fmt.Fprintf(w, "Image:   %s\n", img.ID)
		fmt.Fprintf(w, "Name:    %s\n", img.Name)
		fmt.Fprintf(w, "Created: %s\n", formatMillis(img.CreatedAt))
		fmt.Fprintf(w, "Size:    %d bytes\n", len(img.File))
		if len(img.VisibleText) > 0 {
			fmt.Fprintf(w, "Text:    %s\n", strings.Join(img.VisibleText, " | "))
		}
		fmt.Fprintf(w, "\nItems (%d):\n", len(items))
		for _, it := range items {
			writeItemLine(w, it)
		}
		fmt.Fprintf(w, "\nPrompts (%d):\n", len(prompts))
		for _, p := range prompts {
			writePromptLine(w, p)
		}
	})
}

func runImagesRemove(ctx context.Context, s *session, id string) error {
	_, removed, err := s.reg.Images().RemoveRecord(ctx, id)
	if err != nil {
		return serviceExit("failed to remove image", err)
	}
	return s.out.Success(map[string]any{"id": id, "removed": removed}, func(w io.Writer) {
		if removed {
			fmt.Fprintf(w, "Removed image %s\n", id)
		} else {
			fmt.Fprintf(w, "Image %s does not exist\n", id)
		}
	})
}

func runImagesClear(ctx context.Context, s *session) error {
	if err := s.reg.Images().ClearTable(ctx); err != nil {
		return serviceExit("failed to clear images", err)
	}
	return s.out.Success(map[string]bool{"cleared": true}, func(w io.Writer) {
		fmt.Fprintln(w, "Cleared images, items and prompts")
	})
}

// ChildOptions holds flags for the items and prompts commands.
type ChildOptions struct {
	*RootOptions
	ImageID string
}

// NewItemsCommand creates the items command group.
func NewItemsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect detected items",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				var items []model.Item
				var err error
				if opts.ImageID != "" {
					items, err = s.reg.Items().ListByParent(ctx, opts.ImageID)
				} else {
					items, err = s.reg.Items().List(ctx)
				}
				if err != nil {
					return serviceExit("failed to list items", err)
				}
				return s.out.Success(items, func(w io.Writer) {
					if len(items) == 0 {
						fmt.Fprintln(w, "No items")
					}
					for _, it := range items {
						writeItemLine(w, it)
					}
				})
			})
		},
	}
	list.Flags().StringVar(&opts.ImageID, "image", "", "only items of this image")
	cmd.AddCommand(list)
	return cmd
}

// NewPromptsCommand creates the prompts command group.
func NewPromptsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect analysis prompts",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List prompts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				var prompts []model.Prompt
				var err error
				if opts.ImageID != "" {
					prompts, err = s.reg.Prompts().ListByParent(ctx, opts.ImageID)
				} else {
					prompts, err = s.reg.Prompts().List(ctx)
				}
				if err != nil {
					return serviceExit("failed to list prompts", err)
				}
				return s.out.Success(prompts, func(w io.Writer) {
					if len(prompts) == 0 {
						fmt.Fprintln(w, "No prompts")
					}
					for _, p := range prompts {
						writePromptLine(w, p)
					}
				})
			})
		},
	}
	list.Flags().StringVar(&opts.ImageID, "image", "", "only prompts of this image")
	cmd.AddCommand(list)
	return cmd
}

func writeItemLine(w io.Writer, it model.Item) {
	fmt.Fprintf(w, "  %s  %-16s %s", it.ID, it.Type, it.Label)
	if it.Brand != "" {
		fmt.Fprintf(w, " (%s)", it.Brand)
	}
	if len(it.Categories) > 0 {
		fmt.Fprintf(w, " [%s]", strings.Join(it.Categories, ", "))
	}
	fmt.Fprintln(w)
}

func writePromptLine(w io.Writer, p model.Prompt) {
	fmt.Fprintf(w, "  %s  %s max_tokens=%d", p.ID, p.Model, p.MaxTokens)
	if p.ResponseTimeMs != nil {
		fmt.Fprintf(w, " response=%dms", *p.ResponseTimeMs)
	}
	fmt.Fprintln(w)
}

func lastChildText(ref *model.ChildRef) string {
	if ref == nil {
		return "-"
	}
	return fmt.Sprintf("last %s %s", strings.TrimSuffix(string(ref.Table), "s"), ref.ID)
}

// defaultImageName is the base file name clipped to the name field limit.
func defaultImageName(path string) string {
	name := filepath.Base(path)
	if r := []rune(name); len(r) > 50 {
		name = string(r[:50])
	}
	return name
}
