package model

import (
	"time"

	"github.com/google/uuid"
)

// uuidLen is the length of a canonical hyphenated UUID string.
const uuidLen = 36

// Record is implemented by every persisted entity.
type Record interface {
	RecordID() string
}

// Child is implemented by records that reference a parent record.
type Child interface {
	Record
	ParentRef() string
	Created() int64
}

// NewID generates a prefixed, time-sortable identifier for a table.
//
// Format: "img-0190c5e2-7b5e-7c4d-8a9e-1f2d3c4b5a69"
//
// Panics if UUID generation fails (should never happen in practice).
func NewID(t Table) string {
	id := uuid.Must(uuid.NewV7()).String()
	if p := t.Prefix(); p != "" {
		return p + "-" + id
	}
	return id
}

// ValidID reports whether id is a prefixed UUID, a bare UUID, or a known
// SettingID. The prefix itself is not checked against the owning table.
func ValidID(id string) bool {
	if len(id) == uuidLen+4 && id[3] == '-' && isUUID(id[4:]) {
		return true
	}
	if isUUID(id) {
		return true
	}
	return SettingID(id).Valid()
}

func isUUID(s string) bool {
	if len(s) != uuidLen {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Now returns the current time in Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}
