package ecs

import (
	"iter"
	"unsafe"
)

// Begin returns the first live component position of kind id. With no live
// component it equals End(id).
func (s *Scene) Begin(id CompID) Iterator {
	it := Iterator{scene: s, id: id}
	if a := s.allocator(id); a != nil {
		it.seek(a)
	}
	return it
}

// End returns the position past the last pool of kind id.
func (s *Scene) End(id CompID) Iterator {
	it := Iterator{scene: s, id: id}
	if a := s.allocator(id); a != nil {
		it.pool = len(a.pools)
	}
	return it
}

// Last returns the last live component position of kind id, or End(id).
func (s *Scene) Last(id CompID) Iterator {
	it := s.End(id)
	if !it.Prev() {
		return s.End(id)
	}
	return it
}

func (it *Iterator) allocator() *allocator {
	if it.scene == nil {
		return nil
	}
	return it.scene.allocator(it.id)
}

// seek moves forward from the current position to the first live slot,
// skipping empty pools and tombstones.
func (it *Iterator) seek(a *allocator) {
	for ; it.pool < len(a.pools); it.pool, it.off = it.pool+1, 0 {
		p := &a.pools[it.pool]
		if a.live(p) == 0 {
			continue
		}
		for ; it.off < p.used; it.off += a.rec.stride {
			if ownerOf(a.slot(p, it.off)) != NoEntity {
				return
			}
		}
	}
	it.off = 0
}

func (it *Iterator) Valid() bool {
	a := it.allocator()
	return a != nil && it.pool < len(a.pools)
}

// Next advances to the next live component and reports whether there is one.
func (it *Iterator) Next() bool {
	a := it.allocator()
	if a == nil || it.pool >= len(a.pools) {
		return false
	}
	it.off += a.rec.stride
	it.seek(a)
	return it.Valid()
}

// Prev moves to the previous live component. When there is none it returns
// false and leaves the position unchanged.
func (it *Iterator) Prev() bool {
	a := it.allocator()
	if a == nil || len(a.pools) == 0 {
		return false
	}
	pool, off := it.pool, it.off
	if pool >= len(a.pools) {
		pool = len(a.pools) - 1
		off = a.pools[pool].used
	}
	for pool >= 0 {
		p := &a.pools[pool]
		for off >= a.rec.stride {
			off -= a.rec.stride
			if ownerOf(a.slot(p, off)) != NoEntity {
				it.pool, it.off = pool, off
				return true
			}
		}
		pool--
		if pool >= 0 {
			off = a.pools[pool].used
		}
	}
	return false
}

func (it Iterator) Equal(other Iterator) bool {
	return it.scene == other.scene && it.id == other.id && it.pool == other.pool && it.off == other.off
}

// Get returns the owner and the component at the position, or NoEntity and
// nil past the end.
func (it Iterator) Get() (Entity, unsafe.Pointer) {
	if !it.Valid() {
		return NoEntity, nil
	}
	a := it.allocator()
	c := a.slot(&a.pools[it.pool], it.off)
	return ownerOf(c), c
}

var _ iCursor = &Cursor{}

type iCursor interface {
	Next() bool
	Prev() bool
	Entity() Entity
	Component() unsafe.Pointer
	Reset()
	Count() int
}

func newCursor(s *Scene, id CompID) *Cursor {
	return &Cursor{
		scene: s,
		id:    id,
	}
}

// NewCursor returns a cursor over the live components of kind id.
func (s *Scene) NewCursor(id CompID) *Cursor {
	return newCursor(s, id)
}

// Next moves to the next component. The first call locks the scene; the call
// that runs out of components resets the cursor and unlocks it.
func (c *Cursor) Next() bool {
	if !c.started {
		c.started = true
		c.err = nil
		c.scene.Lock()
		c.locked = true
		c.it = c.scene.Begin(c.id)
		c.end = c.scene.End(c.id)
	} else {
		c.it.Next()
	}
	if !c.it.Equal(c.end) && c.it.Valid() {
		return true
	}
	c.Reset()
	return false
}

// Prev steps back to the previous component of a running cursor.
func (c *Cursor) Prev() bool {
	if !c.started {
		return false
	}
	return c.it.Prev()
}

func (c *Cursor) Entity() Entity {
	e, _ := c.it.Get()
	return e
}

func (c *Cursor) Component() unsafe.Pointer {
	_, ptr := c.it.Get()
	return ptr
}

// Reset rewinds the cursor and releases its lock on the scene. Errors from
// operations queued meanwhile are kept in Err.
func (c *Cursor) Reset() {
	c.started = false
	c.it = Iterator{}
	c.end = Iterator{}
	if c.locked {
		c.locked = false
		c.err = c.scene.Unlock()
	}
}

func (c *Cursor) Err() error {
	return c.err
}

// Count is the number of live components of the cursor's kind.
func (c *Cursor) Count() int {
	if a := c.scene.allocator(c.id); a != nil {
		return a.count()
	}
	return 0
}

// Components yields every live component of kind id with its owner. The
// scene is locked while the loop runs.
func (s *Scene) Components(id CompID) iter.Seq2[Entity, unsafe.Pointer] {
	return func(yield func(Entity, unsafe.Pointer) bool) {
		s.Lock()
		defer s.unlockLogged()
		for it := s.Begin(id); it.Valid(); it.Next() {
			if !yield(it.Get()) {
				return
			}
		}
	}
}

// ComponentsReverse is Components from the newest slot to the oldest.
func (s *Scene) ComponentsReverse(id CompID) iter.Seq2[Entity, unsafe.Pointer] {
	return func(yield func(Entity, unsafe.Pointer) bool) {
		s.Lock()
		defer s.unlockLogged()
		for it := s.Last(id); it.Valid(); {
			if !yield(it.Get()) || !it.Prev() {
				return
			}
		}
	}
}

func (s *Scene) unlockLogged() {
	if err := s.Unlock(); err != nil {
		s.logger.Warn().Err(err).Msg("deferred scene operations failed")
	}
}
