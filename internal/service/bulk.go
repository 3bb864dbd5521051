package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/schema"
	"github.com/roach88/catalog/internal/store"
)

// ImageTree is an Image together with the children written alongside it.
type ImageTree struct {
	Image   model.Image
	Items   []model.Item
	Prompts []model.Prompt
}

// AddImageTree validates an image and its children and inserts all of them
// in one transaction over images, items and prompts. Every child must
// reference the image. Live queries observe either none of the tree or all
// of it.
func (r *Registry) AddImageTree(ctx context.Context, tree ImageTree) (ImageTree, error) {
	images := r.Images()

	img, err := images.desc.Validate(tree.Image)
	if err != nil {
		return ImageTree{}, classify(err, model.TableImages, tree.Image.ID)
	}
	var out ImageTree
	if out.Items, err = validateChildren(r.Items(), img.ID, tree.Items); err != nil {
		return ImageTree{}, err
	}
	if out.Prompts, err = validateChildren(r.Prompts(), img.ID, tree.Prompts); err != nil {
		return ImageTree{}, err
	}

	err = r.store.Transaction(ctx, store.ReadWrite, images.desc.scope(), func(tx *store.Tx) error {
		for _, it := range out.Items {
			if err := tx.Add(ctx, model.TableItems, it.ID, it); err != nil {
				return classify(err, model.TableItems, it.ID)
			}
		}
		for _, p := range out.Prompts {
			if err := tx.Add(ctx, model.TablePrompts, p.ID, p); err != nil {
				return classify(err, model.TablePrompts, p.ID)
			}
		}
		// Children are already visible to this transaction.
		record, rec, err := images.withLastChild(ctx, tx, img)
		if err != nil {
			return err
		}
		out.Image = rec
		return tx.Add(ctx, model.TableImages, img.ID, record)
	})
	if err != nil {
		return ImageTree{}, classify(err, model.TableImages, img.ID)
	}
	return out, nil
}

func validateChildren[T model.Child](svc *Service[T], parentID string, recs []T) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		valid, err := svc.desc.Validate(rec)
		if err != nil {
			return nil, classify(err, svc.desc.Table, rec.RecordID())
		}
		if valid.ParentRef() != parentID {
			return nil, &Error{
				Code:       ErrCodeValidation,
				Message:    fmt.Sprintf("%s %s does not belong to %s", svc.desc.Label, valid.RecordID(), parentID),
				Table:      svc.desc.Table,
				ID:         valid.RecordID(),
				Violations: []schema.Violation{{Path: svc.desc.ForeignKey, Message: "must reference " + parentID}},
			}
		}
		out = append(out, valid)
	}
	return out, nil
}

// Import replaces every table with the contents of dump in one transaction,
// then seeds settings the dump lacks.
//
// Each body is decoded as its kind and run through the kind's validator, so
// a dump can only ever contain records AddRecord would accept. Parent
// lastChild caches are recomputed from the imported children; the cached
// values in the dump are ignored. If validation or the write fails the
// store is left unchanged.
func (r *Registry) Import(ctx context.Context, dump *store.Dump) error {
	if dump == nil {
		return nil
	}
	if err := store.CheckDump(dump); err != nil {
		return err
	}

	clean := &store.Dump{Version: dump.Version, Tables: make(map[model.Table][]json.RawMessage, len(model.Tables))}
	var err error

	if clean.Tables[model.TableSettings], err = importBodies(r.Settings(), dump.Tables[model.TableSettings], nil); err != nil {
		return err
	}
	if clean.Tables[model.TableLogs], err = importBodies(r.Logs(), dump.Tables[model.TableLogs], nil); err != nil {
		return err
	}

	refs := make(map[string]*model.ChildRef)
	track := func(t model.Table) func(c model.Child) {
		return func(c model.Child) {
			refs[c.ParentRef()] = newerRef(refs[c.ParentRef()], model.ChildRef{Table: t, ID: c.RecordID(), CreatedAt: c.Created()})
		}
	}
	if clean.Tables[model.TableItems], err = importBodies(r.Items(), dump.Tables[model.TableItems], func(it *model.Item) {
		track(model.TableItems)(*it)
	}); err != nil {
		return err
	}
	if clean.Tables[model.TablePrompts], err = importBodies(r.Prompts(), dump.Tables[model.TablePrompts], func(p *model.Prompt) {
		track(model.TablePrompts)(*p)
	}); err != nil {
		return err
	}
	if clean.Tables[model.TableImages], err = importBodies(r.Images(), dump.Tables[model.TableImages], func(img *model.Image) {
		img.LastChild = refs[img.ID]
	}); err != nil {
		return err
	}

	if err := r.store.Import(ctx, clean); err != nil {
		return err
	}
	return r.Initialize(ctx)
}

// importBodies decodes and validates bodies as records of svc's kind and
// returns them re-encoded. prep runs on each decoded record before it is
// validated.
func importBodies[T model.Record](svc *Service[T], bodies []json.RawMessage, prep func(*T)) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(bodies))
	for i, body := range bodies {
		rec, err := decode[T](body)
		if err != nil {
			return nil, &Error{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("%s record %d: %v", svc.desc.Table, i, err),
				Table:   svc.desc.Table,
				Err:     err,
			}
		}
		if prep != nil {
			prep(&rec)
		}
		valid, err := svc.desc.Validate(rec)
		if err != nil {
			return nil, classify(err, svc.desc.Table, rec.RecordID())
		}
		data, err := json.Marshal(valid)
		if err != nil {
			return nil, classify(fmt.Errorf("encode %s %s: %w", svc.desc.Table, valid.RecordID(), err), svc.desc.Table, valid.RecordID())
		}
		out = append(out, data)
	}
	return out, nil
}
