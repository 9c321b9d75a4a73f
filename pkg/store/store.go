package store

import (
	"fmt"
	"slices"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
)

// Entity is an opaque handle to a scene element. The zero value is never
// allocated and means "no entity".
type Entity uint32

// None is the zero entity.
const None Entity = 0

// Valid reports whether e is not [None].
func (e Entity) Valid() bool { return e != None }

func (e Entity) String() string { return fmt.Sprintf("#%d", uint32(e)) }

// Cursor is a position in the store's change history.
type Cursor uint64

// Tag is a zero-sized marker attached to entities.
type Tag string

// ErrDeadEntity is returned when an operation names an entity that was never
// spawned or has already been despawned. It carries [errors.ErrCodeUnknownEntity].
var ErrDeadEntity = errors.New(errors.ErrCodeUnknownEntity, "entity is not alive")

// remover is implemented by every table so that despawning can drop the
// entity's components.
type remover interface {
	drop(e Entity)
}

// Store owns the entity id space, the parent/child hierarchy, tags and the
// registered component tables.
//
// The zero value is not usable - use [New].
type Store struct {
	next     Entity
	tick     Cursor
	alive    map[Entity]struct{}
	parent   map[Entity]Entity
	children map[Entity][]Entity
	tags     map[Tag]map[Entity]struct{}
	tables   []remover
	despawn  map[Entity]Cursor
}

// New creates an empty store.
func New() *Store {
	return &Store{
		alive:    make(map[Entity]struct{}),
		parent:   make(map[Entity]Entity),
		children: make(map[Entity][]Entity),
		tags:     make(map[Tag]map[Entity]struct{}),
		despawn:  make(map[Entity]Cursor),
	}
}

func (s *Store) bump() Cursor {
	s.tick++
	return s.tick
}

// Now returns the cursor for the current point in history. Passing it to
// the Added/Changed/Removed queries later yields only subsequent changes.
func (s *Store) Now() Cursor { return s.tick }

// Spawn allocates a fresh entity.
func (s *Store) Spawn() Entity {
	s.next++
	s.alive[s.next] = struct{}{}
	s.bump()
	return s.next
}

// Alive reports whether e was spawned and not despawned.
func (s *Store) Alive(e Entity) bool {
	_, ok := s.alive[e]
	return ok
}

// Check returns a wrapped [ErrDeadEntity] if e is not alive.
func (s *Store) Check(e Entity) error {
	if !s.Alive(e) {
		return errors.Wrap(errors.ErrCodeUnknownEntity, ErrDeadEntity, "entity %s", e)
	}
	return nil
}

// Len returns the number of live entities.
func (s *Store) Len() int { return len(s.alive) }

// Entities returns all live entities in ascending id order.
func (s *Store) Entities() []Entity {
	out := make([]Entity, 0, len(s.alive))
	for e := range s.alive {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

// =============================================================================
// Hierarchy
// =============================================================================

// SetParent makes parent the parent of child, detaching child from any
// previous parent. Passing [None] detaches child.
func (s *Store) SetParent(child, parent Entity) error {
	if err := s.Check(child); err != nil {
		return err
	}
	if parent.Valid() {
		if err := s.Check(parent); err != nil {
			return err
		}
		for p := parent; p.Valid(); p = s.parent[p] {
			if p == child {
				return errors.New(errors.ErrCodeInvariantViolation, "parenting %s under %s would create a cycle", child, parent)
			}
		}
	}
	s.detach(child)
	if parent.Valid() {
		s.parent[child] = parent
		s.children[parent] = append(s.children[parent], child)
	}
	s.bump()
	return nil
}

func (s *Store) detach(child Entity) {
	old, ok := s.parent[child]
	if !ok {
		return
	}
	delete(s.parent, child)
	siblings := s.children[old]
	if i := slices.Index(siblings, child); i >= 0 {
		s.children[old] = slices.Delete(siblings, i, i+1)
	}
	if len(s.children[old]) == 0 {
		delete(s.children, old)
	}
}

// Parent returns the parent of e, or [None].
func (s *Store) Parent(e Entity) Entity { return s.parent[e] }

// Children returns the children of e in insertion order. The returned slice
// is a copy.
func (s *Store) Children(e Entity) []Entity { return slices.Clone(s.children[e]) }

// Ancestors returns the chain from e's parent up to the root.
func (s *Store) Ancestors(e Entity) []Entity {
	var out []Entity
	for p := s.parent[e]; p.Valid(); p = s.parent[p] {
		out = append(out, p)
	}
	return out
}

// IsDescendant reports whether e lies strictly below ancestor.
func (s *Store) IsDescendant(e, ancestor Entity) bool {
	for p := s.parent[e]; p.Valid(); p = s.parent[p] {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Descendants returns every entity below e in depth-first pre-order.
func (s *Store) Descendants(e Entity) []Entity {
	var out []Entity
	var walk func(Entity)
	walk = func(n Entity) {
		for _, c := range s.children[n] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(e)
	return out
}

// =============================================================================
// Tags
// =============================================================================

// AddTag attaches tag to e. Adding a tag twice is a no-op.
func (s *Store) AddTag(e Entity, tag Tag) error {
	if err := s.Check(e); err != nil {
		return err
	}
	set := s.tags[tag]
	if set == nil {
		set = make(map[Entity]struct{})
		s.tags[tag] = set
	}
	if _, ok := set[e]; !ok {
		set[e] = struct{}{}
		s.bump()
	}
	return nil
}

// RemoveTag detaches tag from e.
func (s *Store) RemoveTag(e Entity, tag Tag) {
	if set := s.tags[tag]; set != nil {
		if _, ok := set[e]; ok {
			delete(set, e)
			s.bump()
		}
	}
}

// HasTag reports whether e carries tag.
func (s *Store) HasTag(e Entity, tag Tag) bool {
	_, ok := s.tags[tag][e]
	return ok
}

// Tagged returns all entities carrying tag in ascending id order.
func (s *Store) Tagged(tag Tag) []Entity {
	out := make([]Entity, 0, len(s.tags[tag]))
	for e := range s.tags[tag] {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

// =============================================================================
// Despawn
// =============================================================================

// Despawn removes e and all of its components. Children of e are detached
// and become roots; use [Store.DespawnRecursive] to remove them as well.
func (s *Store) Despawn(e Entity) error {
	if err := s.Check(e); err != nil {
		return err
	}
	for _, c := range s.children[e] {
		delete(s.parent, c)
	}
	delete(s.children, e)
	s.detach(e)
	s.release(e)
	return nil
}

// DespawnRecursive removes e and every descendant. It returns the removed
// entities, descendants first.
func (s *Store) DespawnRecursive(e Entity) ([]Entity, error) {
	if err := s.Check(e); err != nil {
		return nil, err
	}
	below := s.Descendants(e)
	slices.Reverse(below)
	for _, d := range below {
		delete(s.children, d)
		delete(s.parent, d)
		s.release(d)
	}
	delete(s.children, e)
	s.detach(e)
	s.release(e)
	return append(below, e), nil
}

func (s *Store) release(e Entity) {
	for _, t := range s.tables {
		t.drop(e)
	}
	for _, set := range s.tags {
		delete(set, e)
	}
	delete(s.alive, e)
	s.despawn[e] = s.bump()
}

// DespawnedSince returns entities despawned after cursor, ascending.
func (s *Store) DespawnedSince(c Cursor) []Entity {
	var out []Entity
	for e, at := range s.despawn {
		if at > c {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return out
}
