package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/model"
)

type durationRow struct {
	Name         model.Duration `json:"name"`
	Milliseconds int64          `json:"milliseconds"`
}

// NewDurationsCommand creates the durations command.
func NewDurationsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "durations",
		Short: "List the retention durations",
		Long: `List the named durations accepted by the "Log Rentention Duration"
setting, shortest first, with their length in milliseconds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]durationRow, len(model.Durations))
			for i, d := range model.Durations {
				ms, _ := d.Milliseconds()
				rows[i] = durationRow{Name: d, Milliseconds: ms}
			}
			return rootOpts.formatter(cmd).Success(rows, func(w io.Writer) {
				for _, r := range rows {
					fmt.Fprintf(w, "%-14s %d\n", r.Name, r.Milliseconds)
				}
			})
		},
	}
}
