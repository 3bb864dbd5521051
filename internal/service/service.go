package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
)

// lastChildField is the parent-held cache of the newest child.
const lastChildField = "lastChild"

// Service is the Record Service for one entity kind.
//
// Every mutation validates its input (add and put), then runs inside a
// single store transaction over the kind's table and its structurally
// related tables. Parent/child integrity is maintained here: the store has
// no foreign keys.
type Service[T model.Record] struct {
	desc  Descriptor[T]
	store *store.Store
	reg   *Registry
	clock Clock
}

// New creates a service outside a registry. Parent and child navigation is
// unavailable on such a service.
func New[T model.Record](st *store.Store, desc Descriptor[T], clock Clock) (*Service[T], error) {
	return newService(st, desc, nil, clock)
}

func newService[T model.Record](st *store.Store, desc Descriptor[T], reg *Registry, clock Clock) (*Service[T], error) {
	if err := desc.check(); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf("%s service: store is required", desc.Kind), Table: desc.Table}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service[T]{desc: desc, store: st, reg: reg, clock: clock}, nil
}

// Descriptor returns the service configuration.
func (s *Service[T]) Descriptor() Descriptor[T] { return s.desc }

// Kind returns the entity kind.
func (s *Service[T]) Kind() model.Kind { return s.desc.Kind }

// Label returns the singular display label.
func (s *Service[T]) Label() string { return s.desc.Label }

// LabelPlural returns the plural display label.
func (s *Service[T]) LabelPlural() string { return s.desc.LabelPlural }

// Table returns the table holding the kind's records.
func (s *Service[T]) Table() model.Table { return s.desc.Table }

// IsParent reports whether the kind owns child records.
func (s *Service[T]) IsParent() bool { return s.desc.IsParent() }

// IsChild reports whether the kind is owned by a parent record.
func (s *Service[T]) IsChild() bool { return s.desc.IsChild() }

// IsStandalone reports whether the kind has neither parent nor children.
func (s *Service[T]) IsStandalone() bool { return s.desc.IsStandalone() }

// GetRecord returns the record with the given id.
// Fails with NOT_FOUND if it does not exist.
func (s *Service[T]) GetRecord(ctx context.Context, id string) (T, error) {
	var rec T
	err := s.store.Transaction(ctx, store.ReadOnly, []model.Table{s.desc.Table}, func(tx *store.Tx) error {
		var err error
		rec, err = s.get(ctx, tx, id)
		return err
	})
	return rec, classify(err, s.desc.Table, id)
}

// AddRecord validates rec and inserts it.
// Fails with VALIDATION_FAILED or DUPLICATE_KEY.
func (s *Service[T]) AddRecord(ctx context.Context, rec T) (T, error) {
	return s.write(ctx, rec, false)
}

// PutRecord validates rec and inserts or replaces it.
func (s *Service[T]) PutRecord(ctx context.Context, rec T) (T, error) {
	return s.write(ctx, rec, true)
}

func (s *Service[T]) write(ctx context.Context, rec T, replace bool) (T, error) {
	var zero T
	valid, err := s.desc.Validate(rec)
	if err != nil {
		return zero, classify(err, s.desc.Table, rec.RecordID())
	}
	id := valid.RecordID()

	out := valid
	err = s.store.Transaction(ctx, store.ReadWrite, s.desc.scope(), func(tx *store.Tx) error {
		var err error
		var prevParent string
		if s.desc.IsChild() && replace {
			if prevParent, err = s.parentOf(ctx, tx, id); err != nil {
				return err
			}
		}

		var record any = valid
		if s.desc.IsParent() {
			// The cache is derived from the child tables, never taken
			// from the caller. Children may already exist.
			if record, out, err = s.withLastChild(ctx, tx, valid); err != nil {
				return err
			}
		}

		if replace {
			err = tx.Put(ctx, s.desc.Table, id, record)
		} else {
			err = tx.Add(ctx, s.desc.Table, id, record)
		}
		if err != nil {
			return err
		}

		if s.desc.IsChild() {
			parent := parentRef(valid)
			if err := s.refreshParent(ctx, tx, parent); err != nil {
				return err
			}
			if prevParent != "" && prevParent != parent {
				return s.refreshParent(ctx, tx, prevParent)
			}
		}
		return nil
	})
	if err != nil {
		return zero, classify(err, s.desc.Table, id)
	}
	return out, nil
}

// UpdateRecord shallow-merges patch over the stored record.
//
// The merged record is not re-validated. The id is immutable: an id key in
// patch is ignored, as is lastChild on parent kinds. A nil value removes
// the field. Fails with NOT_FOUND if the record does not exist.
func (s *Service[T]) UpdateRecord(ctx context.Context, id string, patch map[string]any) (T, error) {
	var out T
	patch = maps.Clone(patch)
	if s.desc.IsParent() {
		delete(patch, lastChildField)
	}

	err := s.store.Transaction(ctx, store.ReadWrite, s.desc.scope(), func(tx *store.Tx) error {
		var prevParent string
		if s.desc.IsChild() {
			var err error
			if prevParent, err = s.parentOf(ctx, tx, id); err != nil {
				return err
			}
		}

		body, err := tx.Update(ctx, s.desc.Table, id, patch)
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFoundError(s.desc.Label, s.desc.Table, id)
		}
		if err != nil {
			return err
		}
		if out, err = decode[T](body); err != nil {
			return err
		}

		if s.desc.IsChild() {
			parent, err := stringField(body, s.desc.ForeignKey)
			if err != nil {
				return err
			}
			if err := s.refreshParent(ctx, tx, parent); err != nil {
				return err
			}
			if prevParent != parent {
				return s.refreshParent(ctx, tx, prevParent)
			}
		}
		return nil
	})
	return out, classify(err, s.desc.Table, id)
}

// RemoveRecord deletes the record and returns its last state.
//
// Removing a parent also deletes every child referencing it. Removing an
// absent id is not an error: the bool result is false.
func (s *Service[T]) RemoveRecord(ctx context.Context, id string) (T, bool, error) {
	var rec T
	var existed bool
	err := s.store.Transaction(ctx, store.ReadWrite, s.desc.scope(), func(tx *store.Tx) error {
		body, err := tx.Get(ctx, s.desc.Table, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if rec, err = decode[T](body); err != nil {
			return err
		}

		if s.desc.IsParent() {
			for _, child := range s.desc.ChildTables {
				bodies, err := tx.Query(ctx, child, s.desc.ForeignKey, id, store.ScanOptions{})
				if err != nil {
					return err
				}
				ids, err := idsOf(bodies)
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					continue
				}
				if _, err := tx.BulkDelete(ctx, child, ids); err != nil {
					return err
				}
			}
		}

		if _, err := tx.Delete(ctx, s.desc.Table, id); err != nil {
			return err
		}
		existed = true

		if s.desc.IsChild() {
			return s.refreshParent(ctx, tx, parentRef(rec))
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, false, classify(err, s.desc.Table, id)
	}
	return rec, existed, nil
}

// Delete removes a record by id. It is RemoveRecord without the snapshot.
func (s *Service[T]) Delete(ctx context.Context, id string) (bool, error) {
	_, existed, err := s.RemoveRecord(ctx, id)
	return existed, err
}

// ClearTable deletes every record of the kind, then runs Initialize.
//
// Clearing a parent clears its child tables. Clearing a child table drops
// every parent's lastChild cache that pointed into it, recomputing it from
// the remaining sibling tables.
func (s *Service[T]) ClearTable(ctx context.Context) error {
	err := s.store.Transaction(ctx, store.ReadWrite, s.desc.scope(), func(tx *store.Tx) error {
		if _, err := tx.Clear(ctx, s.desc.Table); err != nil {
			return err
		}
		switch {
		case s.desc.IsParent():
			for _, child := range s.desc.ChildTables {
				if _, err := tx.Clear(ctx, child); err != nil {
					return err
				}
			}
		case s.desc.IsChild():
			return s.stripParents(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return classify(err, s.desc.Table, "")
	}
	slog.Debug("cleared table", "table", s.desc.Table)
	return s.Initialize(ctx)
}

// stripParents recomputes the cache of every parent whose lastChild
// points into this (now empty) table.
func (s *Service[T]) stripParents(ctx context.Context, tx *store.Tx) error {
	parents, err := tx.Scan(ctx, s.desc.ParentTable, store.ScanOptions{})
	if err != nil {
		return err
	}
	for _, body := range parents {
		var head struct {
			ID        string          `json:"id"`
			LastChild *model.ChildRef `json:"lastChild"`
		}
		if err := json.Unmarshal(body, &head); err != nil {
			return fmt.Errorf("decode %s: %w", s.desc.ParentTable, err)
		}
		if head.LastChild == nil || head.LastChild.Table != s.desc.Table {
			continue
		}
		if err := s.refreshParent(ctx, tx, head.ID); err != nil {
			return err
		}
	}
	return nil
}

// Initialize guarantees every seed record exists without overwriting any
// stored value. It is a no-op for kinds without seeds.
func (s *Service[T]) Initialize(ctx context.Context) error {
	if s.desc.Seed == nil {
		return nil
	}
	seed := s.desc.Seed()
	seeded := 0
	err := s.store.Transaction(ctx, store.ReadWrite, []model.Table{s.desc.Table}, func(tx *store.Tx) error {
		for _, rec := range seed {
			id := rec.RecordID()
			_, err := tx.Get(ctx, s.desc.Table, id)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			valid, err := s.desc.Validate(rec)
			if err != nil {
				return err
			}
			if err := tx.Put(ctx, s.desc.Table, id, valid); err != nil {
				return err
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return classify(err, s.desc.Table, "")
	}
	if seeded > 0 {
		slog.Debug("seeded defaults", "table", s.desc.Table, "count", seeded)
	}
	return nil
}

// Purge deletes records older than the Log Retention Duration setting and
// returns how many were removed. An unset, unknown or Forever retention
// purges nothing. Fails with UNSUPPORTED_OPERATION for kinds without
// retention.
func (s *Service[T]) Purge(ctx context.Context) (int, error) {
	if !s.desc.Retention {
		return 0, NewUnsupportedError("purge", s.desc.Table)
	}
	now := s.clock.Now()

	var purged int
	tables := []model.Table{s.desc.Table, model.TableSettings}
	err := s.store.Transaction(ctx, store.ReadWrite, tables, func(tx *store.Tx) error {
		maxAge, ok, err := retention(ctx, tx)
		if err != nil || !ok {
			return err
		}

		bodies, err := tx.Scan(ctx, s.desc.Table, store.ScanOptions{})
		if err != nil {
			return err
		}
		var expired []string
		for _, body := range bodies {
			var head struct {
				ID        string `json:"id"`
				CreatedAt int64  `json:"createdAt"`
			}
			if err := json.Unmarshal(body, &head); err != nil {
				return fmt.Errorf("decode %s: %w", s.desc.Table, err)
			}
			if now-head.CreatedAt > maxAge {
				expired = append(expired, head.ID)
			}
		}
		if len(expired) == 0 {
			return nil
		}
		purged, err = tx.BulkDelete(ctx, s.desc.Table, expired)
		return err
	})
	if err != nil {
		return 0, classify(err, s.desc.Table, "")
	}
	slog.Debug("purged expired records", "table", s.desc.Table, "count", purged)
	return purged, nil
}

// retention reads the configured maximum record age in milliseconds.
func retention(ctx context.Context, tx *store.Tx) (int64, bool, error) {
	body, err := tx.Get(ctx, model.TableSettings, string(model.SettingLogRetentionDuration))
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	setting, err := decode[model.Setting](body)
	if err != nil {
		return 0, false, err
	}
	name, ok := setting.Value.AsString()
	if !ok {
		return 0, false, nil
	}
	d := model.Duration(name)
	if d == model.DurationForever {
		return 0, false, nil
	}
	ms, ok := d.Milliseconds()
	return ms, ok, nil
}

// List returns every record in the kind's display order.
func (s *Service[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := s.store.Transaction(ctx, store.ReadOnly, []model.Table{s.desc.Table}, func(tx *store.Tx) error {
		var err error
		out, err = s.list(ctx, tx)
		return err
	})
	return out, classify(err, s.desc.Table, "")
}

// ListByParent returns the children of one parent in display order.
// Fails with UNSUPPORTED_OPERATION for non-child kinds.
func (s *Service[T]) ListByParent(ctx context.Context, parentID string) ([]T, error) {
	if !s.desc.IsChild() {
		return nil, NewUnsupportedError("list by parent", s.desc.Table)
	}
	var out []T
	err := s.store.Transaction(ctx, store.ReadOnly, []model.Table{s.desc.Table}, func(tx *store.Tx) error {
		bodies, err := tx.Query(ctx, s.desc.Table, s.desc.ForeignKey, parentID, s.desc.Order)
		if err != nil {
			return err
		}
		out, err = decodeAll[T](bodies)
		return err
	})
	return out, classify(err, s.desc.Table, parentID)
}

// Count returns the number of records of the kind.
func (s *Service[T]) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx, s.desc.Table)
	return n, classify(err, s.desc.Table, "")
}

// LiveQuery subscribes to the kind's records in display order. The current
// result is emitted first, then again after every commit to the table.
// Close the subscription to stop it; a closed subscription cannot restart.
func (s *Service[T]) LiveQuery() *store.Subscription[[]T] {
	return store.Live(s.store, func(ctx context.Context, tx *store.Tx) ([]T, error) {
		return s.list(ctx, tx)
	})
}

// ParentService returns the service owning this kind's parent table.
func (s *Service[T]) ParentService() (RecordService, error) {
	if !s.desc.IsChild() {
		return nil, NewUnsupportedError("parent service", s.desc.Table)
	}
	return s.related(s.desc.ParentTable)
}

// ChildServices returns the services of this kind's child tables.
func (s *Service[T]) ChildServices() ([]RecordService, error) {
	if !s.desc.IsParent() {
		return nil, NewUnsupportedError("child services", s.desc.Table)
	}
	out := make([]RecordService, 0, len(s.desc.ChildTables))
	for _, t := range s.desc.ChildTables {
		svc, err := s.related(t)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, nil
}

func (s *Service[T]) related(t model.Table) (RecordService, error) {
	if s.reg == nil {
		return nil, &Error{
			Code:    ErrCodeConfiguration,
			Message: fmt.Sprintf("%s service is not bound to a registry", s.desc.Kind),
			Table:   s.desc.Table,
		}
	}
	kind, ok := kindOf(t)
	if !ok {
		return nil, &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf("no entity kind stores %s", t), Table: t}
	}
	return s.reg.Instance(kind)
}

func (s *Service[T]) get(ctx context.Context, tx *store.Tx, id string) (T, error) {
	var zero T
	body, err := tx.Get(ctx, s.desc.Table, id)
	if errors.Is(err, store.ErrNotFound) {
		return zero, NewNotFoundError(s.desc.Label, s.desc.Table, id)
	}
	if err != nil {
		return zero, err
	}
	return decode[T](body)
}

func (s *Service[T]) list(ctx context.Context, tx *store.Tx) ([]T, error) {
	bodies, err := tx.Scan(ctx, s.desc.Table, s.desc.Order)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](bodies)
}

// parentOf returns the stored parent reference of a child, or "" if the
// child does not exist yet.
func (s *Service[T]) parentOf(ctx context.Context, tx *store.Tx, id string) (string, error) {
	body, err := tx.Get(ctx, s.desc.Table, id)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return stringField(body, s.desc.ForeignKey)
}

// withLastChild returns the encoded parent with its lastChild cache
// computed from the child tables, and the record decoded back from it.
func (s *Service[T]) withLastChild(ctx context.Context, tx *store.Tx, rec T) (map[string]json.RawMessage, T, error) {
	var zero T
	doc, err := toDoc(rec)
	if err != nil {
		return nil, zero, err
	}
	ref, err := newestChild(ctx, tx, s.desc.ChildTables, s.desc.ForeignKey, rec.RecordID())
	if err != nil {
		return nil, zero, err
	}
	if err := setRef(doc, ref); err != nil {
		return nil, zero, err
	}
	out, err := fromDoc[T](doc)
	if err != nil {
		return nil, zero, err
	}
	return doc, out, nil
}

// refreshParent recomputes a parent's lastChild cache across all sibling
// child tables. Missing parents are skipped: a parent added later computes
// its own cache.
func (s *Service[T]) refreshParent(ctx context.Context, tx *store.Tx, parentID string) error {
	if parentID == "" {
		return nil
	}
	body, err := tx.Get(ctx, s.desc.ParentTable, parentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var head struct {
		LastChild *model.ChildRef `json:"lastChild"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return fmt.Errorf("decode %s %s: %w", s.desc.ParentTable, parentID, err)
	}

	ref, err := newestChild(ctx, tx, s.desc.Siblings, s.desc.ForeignKey, parentID)
	if err != nil {
		return err
	}
	if sameRef(head.LastChild, ref) {
		return nil
	}

	patch := map[string]any{lastChildField: nil}
	if ref != nil {
		patch[lastChildField] = ref
	}
	_, err = tx.Update(ctx, s.desc.ParentTable, parentID, patch)
	return err
}

// newestChild finds the most recently created child of parentID across the
// given tables. Ties on createdAt go to the larger id.
func newestChild(ctx context.Context, tx *store.Tx, tables []model.Table, foreignKey, parentID string) (*model.ChildRef, error) {
	var best *model.ChildRef
	for _, t := range tables {
		bodies, err := tx.Query(ctx, t, foreignKey, parentID, store.ScanOptions{OrderBy: "createdAt", Descending: true, Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(bodies) == 0 {
			continue
		}
		var head struct {
			ID        string `json:"id"`
			CreatedAt int64  `json:"createdAt"`
		}
		if err := json.Unmarshal(bodies[0], &head); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t, err)
		}
		best = newerRef(best, model.ChildRef{Table: t, ID: head.ID, CreatedAt: head.CreatedAt})
	}
	return best, nil
}

// newerRef returns whichever of best and ref was created last.
func newerRef(best *model.ChildRef, ref model.ChildRef) *model.ChildRef {
	if best == nil || ref.CreatedAt > best.CreatedAt || (ref.CreatedAt == best.CreatedAt && ref.ID > best.ID) {
		return &ref
	}
	return best
}

func sameRef(a, b *model.ChildRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func parentRef(rec any) string {
	if c, ok := rec.(model.Child); ok {
		return c.ParentRef()
	}
	return ""
}

func kindOf(t model.Table) (model.Kind, bool) {
	for _, k := range model.Kinds {
		if k.Table() == t {
			return k, true
		}
	}
	return "", false
}
