// Package schema validates entity records before they are persisted.
//
// Structural rules live in entities.cue and are evaluated with the CUE Go
// API: a candidate record is encoded to JSON, compiled as a CUE value,
// unified with its entity definition and validated as concrete. Rules that
// CUE cannot express without duplicating Go logic (identifier formats,
// setting enumeration membership) are checked in Go.
//
// Every validator is a pure function. It returns the normalized record
// (text trimmed and NFC-normalized, nil slices replaced by empty ones) or a
// *ValidationError carrying every violated constraint.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed entities.cue
var entitiesCUE string

// Validator checks a candidate record and returns its normalized form.
type Validator[T any] func(T) (T, error)

// Violation is a single failed constraint.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// ValidationError lists the constraints a record violated.
type ValidationError struct {
	Entity     string
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// definitions holds the compiled entity schema. cue.Context is not safe for
// concurrent use, so every evaluation holds mu.
type definitions struct {
	mu   sync.Mutex
	ctx  *cue.Context
	root cue.Value
}

var loadDefinitions = sync.OnceValues(func() (*definitions, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(entitiesCUE, cue.Filename("entities.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile entity schema: %w", err)
	}
	return &definitions{ctx: ctx, root: root}, nil
})

// check validates rec against the named CUE definition and returns the
// violations found. A non-nil error means the schema itself is broken.
func check(def string, rec any) ([]Violation, error) {
	defs, err := loadDefinitions()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", def, err)
	}

	defs.mu.Lock()
	defer defs.mu.Unlock()

	schema := defs.root.LookupPath(cue.ParsePath(def))
	if !schema.Exists() {
		return nil, fmt.Errorf("schema definition %s not found", def)
	}

	candidate := defs.ctx.CompileBytes(data)
	if err := candidate.Err(); err != nil {
		return nil, fmt.Errorf("compile %s candidate: %w", def, err)
	}

	err = schema.Unify(candidate).Validate(cue.Concrete(true))
	if err == nil {
		return nil, nil
	}
	return violationsFrom(err), nil
}

// violationsFrom flattens a CUE error list. The leading definition label is
// dropped from paths so they match the record's JSON field names.
func violationsFrom(err error) []Violation {
	var out []Violation
	seen := make(map[string]bool)
	for _, e := range errors.Errors(err) {
		path := e.Path()
		if len(path) > 0 && strings.HasPrefix(path[0], "#") {
			path = path[1:]
		}
		format, args := e.Msg()
		v := Violation{
			Path:    strings.Join(path, "."),
			Message: fmt.Sprintf(format, args...),
		}
		if key := v.String(); !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

// result combines CUE and Go-level violations into the validator return.
func result[T any](entity string, rec T, cueViolations []Violation, goViolations []Violation) (T, error) {
	all := append(goViolations, cueViolations...)
	if len(all) > 0 {
		var zero T
		return zero, &ValidationError{Entity: entity, Violations: all}
	}
	return rec, nil
}
