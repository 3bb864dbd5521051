package service

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
)

// RecordService is the kind-independent capability set every Record
// Service implements.
type RecordService interface {
	Kind() model.Kind
	Label() string
	LabelPlural() string
	Table() model.Table
	IsParent() bool
	IsChild() bool
	IsStandalone() bool

	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) (bool, error)
	ClearTable(ctx context.Context) error
	Initialize(ctx context.Context) error
	Purge(ctx context.Context) (int, error)
}

var (
	_ RecordService = (*Service[model.Setting])(nil)
	_ RecordService = (*Service[model.Log])(nil)
	_ RecordService = (*Service[model.Image])(nil)
	_ RecordService = (*Service[model.Item])(nil)
	_ RecordService = (*Service[model.Prompt])(nil)
)

// Registry holds exactly one Record Service per entity kind, all bound to
// the same store.
//
// Thread-safety: Registry is safe for concurrent use. Services are
// constructed on first request and cached.
type Registry struct {
	store    *store.Store
	clock    Clock
	defaults map[model.SettingID]model.SettingValue

	mu       sync.Mutex
	services map[model.Kind]RecordService
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used by retention purging.
func WithClock(c Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithSettingDefaults overrides default setting values written by
// Initialize. Unknown ids are ignored.
func WithSettingDefaults(overrides map[model.SettingID]model.SettingValue) Option {
	return func(r *Registry) {
		for id, v := range overrides {
			if id.Valid() {
				r.defaults[id] = v
			}
		}
	}
}

// NewRegistry binds a registry to st.
func NewRegistry(st *store.Store, opts ...Option) *Registry {
	r := &Registry{
		store:    st,
		clock:    SystemClock{},
		defaults: model.DefaultSettings(),
		services: make(map[model.Kind]RecordService),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store every service of the registry is bound to.
func (r *Registry) Store() *store.Store {
	return r.store
}

// Defaults returns a copy of the default setting values.
func (r *Registry) Defaults() map[model.SettingID]model.SettingValue {
	return maps.Clone(r.defaults)
}

// Instance returns the service for kind, constructing it on first request.
func (r *Registry) Instance(kind model.Kind) (RecordService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if svc, ok := r.services[kind]; ok {
		return svc, nil
	}

	var (
		svc RecordService
		err error
	)
	switch kind {
	case model.KindSetting:
		svc, err = newService(r.store, SettingDescriptor(r.Defaults()), r, r.clock)
	case model.KindLog:
		svc, err = newService(r.store, LogDescriptor(), r, r.clock)
	case model.KindImage:
		svc, err = newService(r.store, ImageDescriptor(), r, r.clock)
	case model.KindItem:
		svc, err = newService(r.store, ItemDescriptor(), r, r.clock)
	case model.KindPrompt:
		svc, err = newService(r.store, PromptDescriptor(), r, r.clock)
	default:
		return nil, &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf("unknown entity kind %q", kind)}
	}
	if err != nil {
		return nil, err
	}
	r.services[kind] = svc
	return svc, nil
}

// typed returns the cached service for kind as its concrete type. The
// built-in descriptors are static, so a failure is a programming error.
func typed[T model.Record](r *Registry, kind model.Kind) *Service[T] {
	svc, err := r.Instance(kind)
	if err != nil {
		panic(fmt.Sprintf("service registry: %v", err))
	}
	return svc.(*Service[T])
}

// Settings returns the Setting service.
func (r *Registry) Settings() *Service[model.Setting] { return typed[model.Setting](r, model.KindSetting) }

// Logs returns the Log service.
func (r *Registry) Logs() *Service[model.Log] { return typed[model.Log](r, model.KindLog) }

// Images returns the Image service.
func (r *Registry) Images() *Service[model.Image] { return typed[model.Image](r, model.KindImage) }

// Items returns the Item service.
func (r *Registry) Items() *Service[model.Item] { return typed[model.Item](r, model.KindItem) }

// Prompts returns the Prompt service.
func (r *Registry) Prompts() *Service[model.Prompt] { return typed[model.Prompt](r, model.KindPrompt) }

// Initialize runs Initialize on every kind's service.
func (r *Registry) Initialize(ctx context.Context) error {
	for _, kind := range model.Kinds {
		svc, err := r.Instance(kind)
		if err != nil {
			return err
		}
		if err := svc.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize %s: %w", kind, err)
		}
	}
	return nil
}

// Setting returns the stored value of one setting.
func (r *Registry) Setting(ctx context.Context, id model.SettingID) (model.SettingValue, error) {
	s, err := r.Settings().GetRecord(ctx, string(id))
	if err != nil {
		return model.SettingValue{}, err
	}
	return s.Value, nil
}

// SetSetting validates and stores one setting value.
func (r *Registry) SetSetting(ctx context.Context, id model.SettingID, v model.SettingValue) error {
	_, err := r.Settings().PutRecord(ctx, model.Setting{ID: id, Value: v})
	return err
}

// ResetSetting restores one setting to its default value.
func (r *Registry) ResetSetting(ctx context.Context, id model.SettingID) error {
	v, ok := r.defaults[id]
	if !ok {
		return &Error{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("Setting ID not found: %s", id),
			Table:   model.TableSettings,
			ID:      string(id),
		}
	}
	return r.SetSetting(ctx, id, v)
}
