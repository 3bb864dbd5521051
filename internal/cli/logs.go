package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/model"
)

// LogsOptions holds flags for the logs commands.
type LogsOptions struct {
	*RootOptions
	Level   string
	Limit   int
	Details []string // key=value pairs for logs add
	Count   int      // logs watch exits after this many snapshots when > 0
}

// NewLogsCommand creates the logs command group.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Read, write and purge application logs",
		Long: `Read, write and purge application logs.

Logs are listed newest first. purge removes every log older than the
"Log Rentention Duration" setting; "Forever" keeps everything.

Examples:
  catalog logs list --level ERROR
  catalog logs add "Manual note" --level WARN --detail source=cli
  catalog logs purge
  catalog logs watch`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List logs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runLogsList(ctx, s, opts)
			})
		},
	}
	list.Flags().StringVar(&opts.Level, "level", "", "only show logs at this level")
	list.Flags().IntVar(&opts.Limit, "limit", 0, "show at most this many logs")

	add := &cobra.Command{
		Use:   "add <label>",
		Short: "Write a log entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runLogsAdd(ctx, s, opts, args[0])
			})
		},
	}
	add.Flags().StringVar(&opts.Level, "level", string(model.LevelInfo), "log level (DEBUG|INFO|WARN|ERROR)")
	add.Flags().StringArrayVar(&opts.Details, "detail", nil, "detail as key=value (repeatable)")

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Remove logs older than the retention setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, runLogsPurge)
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print the newest log every time the table changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runLogsWatch(ctx, s, opts)
			})
		},
	}
	watch.Flags().IntVar(&opts.Count, "count", 0, "exit after this many updates")

	cmd.AddCommand(list, add, purge, watch)
	return cmd
}

func runLogsList(ctx context.Context, s *session, opts *LogsOptions) error {
	logs, err := s.reg.Logs().List(ctx)
	if err != nil {
		return serviceExit("failed to list logs", err)
	}

	if opts.Level != "" {
		level, err := model.ParseLogLevel(strings.ToUpper(opts.Level))
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --level", err)
		}
		kept := logs[:0]
		for _, l := range logs {
			if l.Level == level {
				kept = append(kept, l)
			}
		}
		logs = kept
	}
	if opts.Limit > 0 && len(logs) > opts.Limit {
		logs = logs[:opts.Limit]
	}

	return s.out.Success(logs, func(w io.Writer) {
		if len(logs) == 0 {
			fmt.Fprintln(w, "No logs")
			return
		}
		for _, l := range logs {
			writeLogLine(w, l)
		}
	})
}

func runLogsAdd(ctx context.Context, s *session, opts *LogsOptions, label string) error {
	level, err := model.ParseLogLevel(strings.ToUpper(opts.Level))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --level", err)
	}

	var details model.Details
	for _, kv := range opts.Details {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --detail %q: want key=value", kv))
		}
		if details == nil {
			details = model.Details{}
		}
		details[k] = v
	}

	entry, err := s.reg.Logs().AddRecord(ctx, model.NewLog(model.LogParams{
		Level:   level,
		Label:   label,
		Details: details,
	}))
	if err != nil {
		return serviceExit("failed to add log", err)
	}
	return s.out.Success(entry, func(w io.Writer) {
		fmt.Fprintf(w, "Added log %s\n", entry.ID)
	})
}

func runLogsPurge(ctx context.Context, s *session) error {
	n, err := s.reg.Logs().Purge(ctx)
	if err != nil {
		return serviceExit("failed to purge logs", err)
	}
	return s.out.Success(map[string]int{"purged": n}, func(w io.Writer) {
		fmt.Fprintf(w, "Purged %d logs\n", n)
	})
}

func runLogsWatch(ctx context.Context, s *session, opts *LogsOptions) error {
	sub := s.reg.Logs().LiveQuery()
	defer sub.Close()

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if snap.Err != nil {
				return serviceExit("live query failed", snap.Err)
			}
			logs := snap.Value
			if err := s.out.Success(logs, func(w io.Writer) {
				if len(logs) == 0 {
					fmt.Fprintln(w, "0 logs")
					return
				}
				fmt.Fprintf(w, "%d logs, newest: ", len(logs))
				writeLogLine(w, logs[0])
			}); err != nil {
				return err
			}
			seen++
			if opts.Count > 0 && seen >= opts.Count {
				return nil
			}
		}
	}
}

func writeLogLine(w io.Writer, l model.Log) {
	fmt.Fprintf(w, "%s %-5s %s", formatMillis(l.CreatedAt), l.Level, l.Label)
	if len(l.Details) > 0 {
		fmt.Fprintf(w, " %v", map[string]any(l.Details))
	}
	fmt.Fprintln(w)
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
