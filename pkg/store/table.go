package store

import (
	"reflect"
	"slices"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
)

type row[T any] struct {
	value   T
	added   Cursor
	changed Cursor
}

// Table holds one component type for any number of entities.
//
// Create tables with [NewTable] so that despawning an entity also removes
// its row.
type Table[T any] struct {
	s       *Store
	name    string
	rows    map[Entity]*row[T]
	removed map[Entity]Cursor
	equal   func(a, b T) bool
}

// NewTable registers a component table with s. The name is used in error
// messages only.
func NewTable[T any](s *Store, name string) *Table[T] {
	t := &Table[T]{
		s:       s,
		name:    name,
		rows:    make(map[Entity]*row[T]),
		removed: make(map[Entity]Cursor),
		equal:   func(a, b T) bool { return reflect.DeepEqual(a, b) },
	}
	s.tables = append(s.tables, t)
	return t
}

// WithEqual overrides the comparison used by [Table.Set] to suppress
// no-op writes.
func (t *Table[T]) WithEqual(eq func(a, b T) bool) *Table[T] {
	t.equal = eq
	return t
}

// Name returns the table's name.
func (t *Table[T]) Name() string { return t.name }

// Insert adds or replaces e's component. The row is stamped as added if it
// did not exist, and as changed in either case.
func (t *Table[T]) Insert(e Entity, v T) error {
	if err := t.s.Check(e); err != nil {
		return err
	}
	now := t.s.bump()
	if r, ok := t.rows[e]; ok {
		r.value = v
		r.changed = now
		return nil
	}
	t.rows[e] = &row[T]{value: v, added: now, changed: now}
	delete(t.removed, e)
	return nil
}

// Set replaces e's component if the new value differs from the current one.
// It reports whether a write happened. Setting a missing row inserts it.
func (t *Table[T]) Set(e Entity, v T) (bool, error) {
	if r, ok := t.rows[e]; ok && t.equal(r.value, v) {
		return false, nil
	}
	if err := t.Insert(e, v); err != nil {
		return false, err
	}
	return true, nil
}

// Update applies fn to e's component in place and marks it changed.
func (t *Table[T]) Update(e Entity, fn func(*T)) error {
	r, ok := t.rows[e]
	if !ok {
		return errors.Wrap(errors.ErrCodeUnknownEntity, ErrDeadEntity, "%s has no %s", e, t.name)
	}
	fn(&r.value)
	r.changed = t.s.bump()
	return nil
}

// Get returns e's component.
func (t *Table[T]) Get(e Entity) (T, bool) {
	if r, ok := t.rows[e]; ok {
		return r.value, true
	}
	var zero T
	return zero, false
}

// MustGet returns e's component or an UNKNOWN_ENTITY error.
func (t *Table[T]) MustGet(e Entity) (T, error) {
	if r, ok := t.rows[e]; ok {
		return r.value, nil
	}
	var zero T
	return zero, errors.Wrap(errors.ErrCodeUnknownEntity, ErrDeadEntity, "%s has no %s", e, t.name)
}

// Has reports whether e has this component.
func (t *Table[T]) Has(e Entity) bool {
	_, ok := t.rows[e]
	return ok
}

// Remove deletes e's component. Removing a missing row is a no-op.
func (t *Table[T]) Remove(e Entity) {
	if _, ok := t.rows[e]; ok {
		delete(t.rows, e)
		t.removed[e] = t.s.bump()
	}
}

func (t *Table[T]) drop(e Entity) { t.Remove(e) }

// Len returns the number of rows.
func (t *Table[T]) Len() int { return len(t.rows) }

// Entities returns every entity with this component in ascending id order.
func (t *Table[T]) Entities() []Entity {
	out := make([]Entity, 0, len(t.rows))
	for e := range t.rows {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

// Each calls fn for every row in ascending id order. fn must not add or
// remove rows of this table.
func (t *Table[T]) Each(fn func(Entity, T)) {
	for _, e := range t.Entities() {
		fn(e, t.rows[e].value)
	}
}

// Added returns entities whose row was created after c.
func (t *Table[T]) Added(c Cursor) []Entity {
	return t.filter(func(r *row[T]) bool { return r.added > c })
}

// Changed returns entities whose row was created or modified after c.
func (t *Table[T]) Changed(c Cursor) []Entity {
	return t.filter(func(r *row[T]) bool { return r.changed > c })
}

// Removed returns entities whose row was removed after c and not re-added.
func (t *Table[T]) Removed(c Cursor) []Entity {
	var out []Entity
	for e, at := range t.removed {
		if at > c {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return out
}

func (t *Table[T]) filter(keep func(*row[T]) bool) []Entity {
	var out []Entity
	for e, r := range t.rows {
		if keep(r) {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return out
}
