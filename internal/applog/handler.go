// Package applog bridges log/slog to the persisted Log table.
//
// INFO and above are written as Log records through the log service. DEBUG
// is never persisted. Every level reaches the console handler only while the
// "Console Logs" setting is true.
package applog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/service"
)

// Handler is a slog.Handler that persists records as Log entities.
//
// Handler must not be used from inside a store transaction body: persisting
// and reading the console setting both open their own transactions.
type Handler struct {
	reg     *service.Registry
	console slog.Handler
	attrs   []slog.Attr
	groups  []string
}

// New returns a Handler bound to reg. console may be nil, in which case
// nothing is printed regardless of the Console Logs setting.
func New(reg *service.Registry, console slog.Handler) *Handler {
	return &Handler{reg: reg, console: console}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelInfo {
		return true
	}
	return h.console != nil && h.console.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var persistErr error
	if r.Level >= slog.LevelInfo {
		persistErr = h.persist(ctx, r)
	}

	if h.console != nil && h.consoleOn(ctx) && h.console.Enabled(ctx, r.Level) {
		if err := h.console.Handle(ctx, r); err != nil {
			return err
		}
	}
	return persistErr
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	c.attrs = append(c.attrs, qualify(h.groups, attrs)...)
	if h.console != nil {
		c.console = h.console.WithAttrs(attrs)
	}
	return c
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	if h.console != nil {
		c.console = h.console.WithGroup(name)
	}
	return c
}

func (h *Handler) clone() *Handler {
	return &Handler{
		reg:     h.reg,
		console: h.console,
		attrs:   append([]slog.Attr(nil), h.attrs...),
		groups:  append([]string(nil), h.groups...),
	}
}

func (h *Handler) persist(ctx context.Context, r slog.Record) error {
	attrs := append([]slog.Attr(nil), h.attrs...)
	var recAttrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		recAttrs = append(recAttrs, a)
		return true
	})
	attrs = append(attrs, qualify(h.groups, recAttrs)...)

	var createdAt int64
	if !r.Time.IsZero() {
		createdAt = r.Time.UnixMilli()
	}

	entry := model.NewLog(model.LogParams{
		CreatedAt: createdAt,
		Level:     Level(r.Level),
		Label:     r.Message,
		Details:   Details(attrs),
	})
	if _, err := h.reg.Logs().AddRecord(ctx, entry); err != nil {
		return fmt.Errorf("persist log: %w", err)
	}
	return nil
}

// consoleOn reports the Console Logs setting. Any read failure counts as off.
func (h *Handler) consoleOn(ctx context.Context) bool {
	v, err := h.reg.Setting(ctx, model.SettingConsoleLogs)
	if err != nil {
		return false
	}
	on, _ := v.AsBool()
	return on
}

// qualify nests attrs under the open groups, innermost last.
func qualify(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(groups) == 0 || len(attrs) == 0 {
		return attrs
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	nested := slog.Group(groups[len(groups)-1], args...)
	for i := len(groups) - 2; i >= 0; i-- {
		nested = slog.Group(groups[i], nested)
	}
	return []slog.Attr{nested}
}

// Level maps a slog level onto the persisted log levels.
func Level(l slog.Level) model.LogLevel {
	switch {
	case l >= slog.LevelError:
		return model.LevelError
	case l >= slog.LevelWarn:
		return model.LevelWarn
	case l >= slog.LevelInfo:
		return model.LevelInfo
	default:
		return model.LevelDebug
	}
}

// Details converts attrs into a JSON-safe details map. Empty input yields
// nil so the field is omitted.
func Details(attrs []slog.Attr) model.Details {
	d := model.Details{}
	for _, a := range attrs {
		addAttr(d, a)
	}
	if len(d) == 0 {
		return nil
	}
	return d
}

func addAttr(d map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		group := v.Group()
		if len(group) == 0 {
			return
		}
		// Inline groups with an empty key, as slog's own handlers do.
		target := d
		if a.Key != "" {
			sub, ok := d[a.Key].(map[string]any)
			if !ok {
				sub = map[string]any{}
				d[a.Key] = sub
			}
			target = sub
		}
		for _, ga := range group {
			addAttr(target, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	d[a.Key] = value(v)
}

func value(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	}
	switch x := v.Any().(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return x
	}
}
