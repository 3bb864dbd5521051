package model

import "fmt"

// Table names a store table. Values are URL slug safe.
type Table string

const (
	TableSettings Table = "settings" // standalone
	TableLogs     Table = "logs"     // standalone
	TableImages   Table = "images"   // parent
	TableItems    Table = "items"    // child
	TablePrompts  Table = "prompts"  // child
)

// Tables lists every table in schema order.
var Tables = []Table{TableSettings, TableLogs, TableImages, TableItems, TablePrompts}

// Prefix returns the identifier prefix for records of the table.
// Settings have no prefix since their IDs are enumerated names.
func (t Table) Prefix() string {
	switch t {
	case TableLogs:
		return "log"
	case TableImages:
		return "img"
	case TableItems:
		return "itm"
	case TablePrompts:
		return "prm"
	default:
		return ""
	}
}

// Valid reports whether t is a known table.
func (t Table) Valid() bool {
	for _, known := range Tables {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTable converts a string into a Table.
func ParseTable(s string) (Table, error) {
	t := Table(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown table %q", s)
	}
	return t, nil
}

// Kind identifies an entity kind. Each kind owns exactly one table.
type Kind string

const (
	KindSetting Kind = "setting"
	KindLog     Kind = "log"
	KindImage   Kind = "image"
	KindItem    Kind = "item"
	KindPrompt  Kind = "prompt"
)

// Kinds lists every entity kind.
var Kinds = []Kind{KindSetting, KindLog, KindImage, KindItem, KindPrompt}

// Table returns the table that stores records of the kind.
func (k Kind) Table() Table {
	switch k {
	case KindSetting:
		return TableSettings
	case KindLog:
		return TableLogs
	case KindImage:
		return TableImages
	case KindItem:
		return TableItems
	case KindPrompt:
		return TablePrompts
	default:
		return ""
	}
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}
