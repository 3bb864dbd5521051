package testutil

import (
	"fmt"

	"github.com/roach88/catalog/internal/model"
)

// FixedID returns a deterministic, valid identifier for a table.
//
// The same (table, n) pair always yields the same id, so golden output and
// ordering assertions do not depend on generated UUIDs:
//
//	FixedID(model.TableImages, 1) == "img-00000000-0000-7000-8000-000000000001"
func FixedID(t model.Table, n int) string {
	id := fmt.Sprintf("00000000-0000-7000-8000-%012d", n)
	if p := t.Prefix(); p != "" {
		return p + "-" + id
	}
	return id
}
