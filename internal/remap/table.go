// Package remap implements the keyboard remap engine: a synchronous
// interceptor that rewrites keys for one target application, the focus
// monitor that decides when remapping applies, and the synthesizer that
// delivers replacement events.
package remap

import (
	"errors"
	"fmt"

	"keyremapd/internal/keys"
)

// ErrDuplicateSource is returned when a source key is mapped twice.
var ErrDuplicateSource = errors.New("source key mapped more than once")

// Pair is an unresolved mapping as written in configuration.
type Pair struct {
	From string
	To   string
}

// Mapping is a resolved source to destination pair.
type Mapping struct {
	From keys.Code
	To   keys.Code
}

func (m Mapping) String() string {
	return keys.Name(m.From) + " -> " + keys.Name(m.To)
}

// Table is an immutable source-key to destination-key lookup. It is built
// once and replaced wholesale on reload.
type Table struct {
	dest  map[keys.Code]keys.Code
	order []Mapping
}

// NewTable builds a table from resolved mappings, preserving their order.
func NewTable(mappings []Mapping) (*Table, error) {
	t := &Table{
		dest:  make(map[keys.Code]keys.Code, len(mappings)),
		order: make([]Mapping, 0, len(mappings)),
	}
	for _, m := range mappings {
		if _, dup := t.dest[m.From]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, keys.Name(m.From))
		}
		t.dest[m.From] = m.To
		t.order = append(t.order, m)
	}
	return t, nil
}

// ResolveError records one pair that could not be resolved.
type ResolveError struct {
	Index int
	Pair  Pair
	Err   error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("mapping %d (%s -> %s): %v", e.Index, e.Pair.From, e.Pair.To, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// ParseTable resolves key names and builds a table. Pairs that fail to
// resolve are skipped and reported; the table holds the rest. A
// duplicate source keeps its first destination.
func ParseTable(pairs []Pair) (*Table, []error) {
	var (
		mappings []Mapping
		problems []error
		seen     = make(map[keys.Code]bool, len(pairs))
	)
	for i, p := range pairs {
		from, err := keys.Parse(p.From)
		if err != nil {
			problems = append(problems, &ResolveError{Index: i, Pair: p, Err: err})
			continue
		}
		to, err := keys.Parse(p.To)
		if err != nil {
			problems = append(problems, &ResolveError{Index: i, Pair: p, Err: err})
			continue
		}
		if seen[from] {
			problems = append(problems, &ResolveError{Index: i, Pair: p, Err: ErrDuplicateSource})
			continue
		}
		seen[from] = true
		mappings = append(mappings, Mapping{From: from, To: to})
	}

	t, err := NewTable(mappings)
	if err != nil {
		// unreachable: duplicates were filtered above
		return emptyTable(), append(problems, err)
	}
	return t, problems
}

func emptyTable() *Table {
	return &Table{dest: map[keys.Code]keys.Code{}}
}

// Lookup returns the destination for a source key.
func (t *Table) Lookup(from keys.Code) (keys.Code, bool) {
	if t == nil {
		return 0, false
	}
	to, ok := t.dest[from]
	return to, ok
}

// Len returns the number of mappings.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Mappings returns a copy of the mappings in configuration order.
func (t *Table) Mappings() []Mapping {
	if t == nil {
		return nil
	}
	out := make([]Mapping, len(t.order))
	copy(out, t.order)
	return out
}
