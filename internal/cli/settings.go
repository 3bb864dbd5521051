package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/model"
)

// settingRow is one setting in command output.
type settingRow struct {
	ID    model.SettingID    `json:"id"`
	Value model.SettingValue `json:"value"`
}

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change application settings",
		Long: `Inspect and change application settings.

Setting names contain spaces and must be quoted. Matching ignores case.

Examples:
  catalog settings list
  catalog settings get "Model Name"
  catalog settings set "Log Rentention Duration" "One Week"
  catalog settings reset "Console Logs"`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, runSettingsList)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runSettingsGet(ctx, s, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <name> <value>",
		Short: "Change one setting",
		Long: `Change one setting.

"true" and "false" are stored as booleans and numeric values as numbers.
Everything else is stored as a string.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runSettingsSet(ctx, s, args[0], args[1])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset <name>",
		Short: "Restore one setting to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				return runSettingsReset(ctx, s, args[0])
			})
		},
	})

	return cmd
}

func runSettingsList(ctx context.Context, s *session) error {
	settings, err := s.reg.Settings().List(ctx)
	if err != nil {
		return serviceExit("failed to list settings", err)
	}

	rows := make([]settingRow, len(settings))
	for i, st := range settings {
		rows[i] = settingRow{ID: st.ID, Value: st.Value}
	}
	return s.out.Success(rows, func(w io.Writer) {
		for _, r := range rows {
			fmt.Fprintf(w, "%-24s %s\n", r.ID, abbreviate(r.Value.String(), 60))
		}
	})
}

func runSettingsGet(ctx context.Context, s *session, name string) error {
	id, err := settingID(name)
	if err != nil {
		return err
	}
	v, err := s.reg.Setting(ctx, id)
	if err != nil {
		return serviceExit("failed to read setting", err)
	}
	return s.out.Success(settingRow{ID: id, Value: v}, func(w io.Writer) {
		fmt.Fprintln(w, v.String())
	})
}

func runSettingsSet(ctx context.Context, s *session, name, raw string) error {
	id, err := settingID(name)
	if err != nil {
		return err
	}
	v := model.ParseSettingValue(raw)
	if id == model.SettingLogRetentionDuration {
		if _, err := model.ParseDuration(raw); err != nil {
			return WrapExitError(ExitFailure, "invalid retention", err)
		}
		v = model.String(raw)
	}
	if err := s.reg.SetSetting(ctx, id, v); err != nil {
		return serviceExit("failed to change setting", err)
	}
	return s.out.Success(settingRow{ID: id, Value: v}, func(w io.Writer) {
		fmt.Fprintf(w, "%s = %s\n", id, v)
	})
}

func runSettingsReset(ctx context.Context, s *session, name string) error {
	id, err := settingID(name)
	if err != nil {
		return err
	}
	if err := s.reg.ResetSetting(ctx, id); err != nil {
		return serviceExit("failed to reset setting", err)
	}
	v, err := s.reg.Setting(ctx, id)
	if err != nil {
		return serviceExit("failed to read setting", err)
	}
	return s.out.Success(settingRow{ID: id, Value: v}, func(w io.Writer) {
		fmt.Fprintf(w, "%s = %s\n", id, v)
	})
}

func settingID(name string) (model.SettingID, error) {
	id, ok := model.LookupSettingID(name)
	if !ok {
		return "", NewExitError(ExitFailure, fmt.Sprintf("unknown setting %q", name))
	}
	return id, nil
}

// abbreviate shortens s to at most n runes for tabular output.
func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
