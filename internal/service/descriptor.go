package service

import (
	"fmt"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/schema"
	"github.com/roach88/catalog/internal/store"
)

// Descriptor is the fixed configuration of one Record Service.
type Descriptor[T model.Record] struct {
	Kind        model.Kind
	Label       string
	LabelPlural string
	Table       model.Table

	// ParentTable is set for child kinds only.
	ParentTable model.Table
	// ChildTables is non-empty for parent kinds only.
	ChildTables []model.Table
	// Siblings lists every child table of ParentTable, including Table.
	// The parent's lastChild cache is computed across all of them.
	Siblings []model.Table
	// ForeignKey is the JSON field of a child that names its parent.
	ForeignKey string

	// Order is the ordering of List and LiveQuery.
	Order store.ScanOptions

	// Validate normalizes and checks records on add and put.
	Validate schema.Validator[T]

	// Seed returns the records Initialize guarantees exist.
	Seed func() []T

	// Retention marks kinds purged under the Log Retention Duration setting.
	Retention bool
}

// IsParent reports whether the kind owns child records.
func (d Descriptor[T]) IsParent() bool {
	return d.ParentTable == "" && len(d.ChildTables) > 0
}

// IsChild reports whether the kind is owned by a parent record.
func (d Descriptor[T]) IsChild() bool {
	return d.ParentTable != "" && len(d.ChildTables) == 0
}

// IsStandalone reports whether the kind has neither parent nor children.
func (d Descriptor[T]) IsStandalone() bool {
	return d.ParentTable == "" && len(d.ChildTables) == 0
}

// check rejects descriptors that do not describe exactly one topology.
func (d Descriptor[T]) check() error {
	fail := func(format string, args ...any) error {
		return &Error{
			Code:    ErrCodeConfiguration,
			Message: fmt.Sprintf("%s service: ", d.Kind) + fmt.Sprintf(format, args...),
			Table:   d.Table,
		}
	}

	if !d.Table.Valid() {
		return fail("unknown table %q", d.Table)
	}
	if d.Validate == nil {
		return fail("validator is required")
	}
	if d.ParentTable != "" && len(d.ChildTables) > 0 {
		return fail("table cannot have both a parent and child tables")
	}
	if d.ParentTable != "" {
		if !d.ParentTable.Valid() {
			return fail("unknown parent table %q", d.ParentTable)
		}
		if d.ForeignKey == "" {
			return fail("child table requires a foreign key")
		}
		found := false
		for _, t := range d.Siblings {
			if !t.Valid() {
				return fail("unknown sibling table %q", t)
			}
			found = found || t == d.Table
		}
		if !found {
			return fail("siblings must include %s", d.Table)
		}
	}
	for _, t := range d.ChildTables {
		if !t.Valid() || t == d.Table {
			return fail("invalid child table %q", t)
		}
	}
	if len(d.ChildTables) > 0 && d.ForeignKey == "" {
		return fail("parent table requires the children's foreign key")
	}
	return nil
}

// scope lists the tables a mutation of this kind may touch.
func (d Descriptor[T]) scope() []model.Table {
	tables := []model.Table{d.Table}
	switch {
	case d.IsParent():
		tables = append(tables, d.ChildTables...)
	case d.IsChild():
		tables = append(tables, d.ParentTable)
		for _, t := range d.Siblings {
			if t != d.Table {
				tables = append(tables, t)
			}
		}
	}
	return tables
}

// imageChildren are the child tables of images.
var imageChildren = []model.Table{model.TableItems, model.TablePrompts}

const foreignKeyImageID = "imageId"

var newestFirst = store.ScanOptions{OrderBy: "createdAt", Descending: true}

// SettingDescriptor configures the Setting service. defaults supplies the
// value Initialize writes for each missing SettingID.
func SettingDescriptor(defaults map[model.SettingID]model.SettingValue) Descriptor[model.Setting] {
	return Descriptor[model.Setting]{
		Kind:        model.KindSetting,
		Label:       "Setting",
		LabelPlural: "Settings",
		Table:       model.TableSettings,
		Validate:    schema.Setting,
		Seed: func() []model.Setting {
			out := make([]model.Setting, 0, len(model.SettingIDs))
			for _, id := range model.SettingIDs {
				out = append(out, model.Setting{ID: id, Value: defaults[id]})
			}
			return out
		},
	}
}

// LogDescriptor configures the Log service.
func LogDescriptor() Descriptor[model.Log] {
	return Descriptor[model.Log]{
		Kind:        model.KindLog,
		Label:       "Log",
		LabelPlural: "Logs",
		Table:       model.TableLogs,
		Order:       newestFirst,
		Validate:    schema.Log,
		Retention:   true,
	}
}

// ImageDescriptor configures the Image service.
func ImageDescriptor() Descriptor[model.Image] {
	return Descriptor[model.Image]{
		Kind:        model.KindImage,
		Label:       "Image",
		LabelPlural: "Images",
		Table:       model.TableImages,
		ChildTables: imageChildren,
		ForeignKey:  foreignKeyImageID,
		Order:       store.ScanOptions{OrderBy: "name"},
		Validate:    schema.Image,
	}
}

// ItemDescriptor configures the Item service.
func ItemDescriptor() Descriptor[model.Item] {
	return Descriptor[model.Item]{
		Kind:        model.KindItem,
		Label:       "Item",
		LabelPlural: "Items",
		Table:       model.TableItems,
		ParentTable: model.TableImages,
		Siblings:    imageChildren,
		ForeignKey:  foreignKeyImageID,
		Order:       newestFirst,
		Validate:    schema.Item,
	}
}

// PromptDescriptor configures the Prompt service.
func PromptDescriptor() Descriptor[model.Prompt] {
	return Descriptor[model.Prompt]{
		Kind:        model.KindPrompt,
		Label:       "Prompt",
		LabelPlural: "Prompts",
		Table:       model.TablePrompts,
		ParentTable: model.TableImages,
		Siblings:    imageChildren,
		ForeignKey:  foreignKeyImageID,
		Order:       newestFirst,
		Validate:    schema.Prompt,
	}
}
