package layout

import (
	"errors"
	"math"
	"sync"

	"github.com/Jtensminger/deep-systems-analysis/pkg/geom"
)

// ErrCacheSealed is returned by [Cache.Ensure] outside a layout pass.
var ErrCacheSealed = errors.New("geometry cache is sealed outside the layout pass")

// Key identifies one cache entry.
type Key struct {
	Level      int
	ZoomBucket int
}

// KeyFor buckets zoom to hundredths.
func KeyFor(level int, zoom float64) Key {
	return Key{Level: level, ZoomBucket: int(math.Round(zoom * 100))}
}

// Geometry is the precomputed outline set shared by every element drawn at
// one nesting level and zoom.
type Geometry struct {
	Scale              float64
	InterfacePath      []geom.Vec2
	ExternalEntityPath []geom.Vec2
	FlowHeadPath       []geom.Vec2
	TerminalPath       []geom.Vec2
	SystemStroke       float64
	InterfaceStroke    float64
	FlowStroke         float64
}

// Cache stores [Geometry] per [Key].
//
// The zero value is not usable - use [NewCache].
type Cache struct {
	mu      sync.RWMutex
	params  Params
	open    bool
	entries map[Key]*Geometry
}

// NewCache creates an empty, sealed cache.
func NewCache(p Params) *Cache {
	return &Cache{params: p, entries: make(map[Key]*Geometry)}
}

// Open allows [Cache.Ensure] to create entries until [Cache.Seal].
func (c *Cache) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
}

// Seal ends the write window.
func (c *Cache) Seal() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

// Get returns the entry for (level, zoom) if it was created.
func (c *Cache) Get(level int, zoom float64) (*Geometry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.entries[KeyFor(level, zoom)]
	return g, ok
}

// Ensure returns the entry for (level, zoom), building it if needed. Building
// is only permitted while the cache is open.
func (c *Cache) Ensure(level int, zoom float64) (*Geometry, error) {
	key := KeyFor(level, zoom)
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.entries[key]; ok {
		return g, nil
	}
	if !c.open {
		return nil, ErrCacheSealed
	}
	g := c.build(level, float64(key.ZoomBucket)/100)
	c.entries[key] = g
	return g, nil
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) build(level int, zoom float64) *Geometry {
	s := c.params.Scale(level, zoom)
	return &Geometry{
		Scale:              s,
		InterfacePath:      geom.ScalePath(geom.RectPath(InterfaceWidthHalf, InterfaceHeightHalf), s),
		ExternalEntityPath: geom.ScalePath(geom.RectPath(ExternalEntityWidthHalf, ExternalEntityHeight/2), s),
		FlowHeadPath: geom.ScalePath([]geom.Vec2{
			{X: 0, Y: 0},
			{X: -FlowHeadLength, Y: FlowHeadWidthHalf},
			{X: -FlowHeadLength, Y: -FlowHeadWidthHalf},
		}, s),
		TerminalPath:    geom.CirclePath(geom.Zero, 6*s, 16),
		SystemStroke:    SystemStrokeWidth * s,
		InterfaceStroke: InterfaceStrokeWidth * s,
		FlowStroke:      FlowStrokeWidth * s,
	}
}
