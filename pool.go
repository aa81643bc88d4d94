package ecs

import (
	"reflect"
	"unsafe"
)

// pool is a fixed block of PoolSize component slots. Its data lives in its
// own heap allocation, so slot pointers survive growth of the pool list.
type pool struct {
	data unsafe.Pointer
	used uintptr // bump pointer, always a multiple of the stride
	free int     // tombstones inside [0, used)
}

// allocator owns the pools of one kind within one scene.
type allocator struct {
	rec   *componentRecord
	pools []pool
	top   int // pool currently filled; pools past it are rewound and empty
}

func newAllocator(rec *componentRecord) allocator {
	return allocator{rec: rec}
}

func (a *allocator) capacity() uintptr {
	return PoolSize * a.rec.stride
}

func (a *allocator) newPool() {
	block := reflect.New(reflect.ArrayOf(PoolSize, a.rec.typ))
	a.pools = append(a.pools, pool{data: block.UnsafePointer()})
}

func (a *allocator) slot(p *pool, off uintptr) unsafe.Pointer {
	return unsafe.Add(p.data, off)
}

func (a *allocator) live(p *pool) int {
	return int(p.used/a.rec.stride) - p.free
}

func (a *allocator) full(p *pool) bool {
	return p.used == a.capacity() && p.free == 0
}

// alloc returns an untagged slot. Only the top pool is considered: it is
// reused through its tombstones or its bump pointer. Once it is full the next
// rewound pool becomes the top, and a new pool is appended only past the end.
func (a *allocator) alloc() (c unsafe.Pointer, grew bool) {
	switch {
	case len(a.pools) == 0:
		a.newPool()
		a.top = 0
		grew = true
	case a.full(&a.pools[a.top]):
		a.top++
		if a.top == len(a.pools) {
			a.newPool()
			grew = true
		}
	}
	p := &a.pools[a.top]
	stride := a.rec.stride

	if p.free > 0 {
		for off := uintptr(0); off < p.used; off += stride {
			c := a.slot(p, off)
			if ownerOf(c) == NoEntity {
				p.free--
				return c, grew
			}
		}
	}
	c = a.slot(p, p.used)
	p.used += stride
	return c, grew
}

// poolOf returns the index of the pool whose data range holds c, or -1.
func (a *allocator) poolOf(c unsafe.Pointer) int {
	addr := uintptr(c)
	for i := range a.pools {
		base := uintptr(a.pools[i].data)
		if addr >= base && addr < base+a.capacity() {
			return i
		}
	}
	return -1
}

// free runs the destroy callback and releases the slot: the last slot pops
// the bump pointer, any other becomes a tombstone.
func (a *allocator) free(c unsafe.Pointer) bool {
	idx := a.poolOf(c)
	if idx < 0 {
		return false
	}
	a.rec.teardown(c)
	a.release(idx, c)
	return true
}

// release gives a cleared slot of pool idx back.
func (a *allocator) release(idx int, c unsafe.Pointer) {
	p := &a.pools[idx]
	if uintptr(c)+a.rec.stride == uintptr(p.data)+p.used {
		p.used -= a.rec.stride
	} else {
		p.free++
	}
}

// reset destroys every live component and rewinds the pools without
// releasing their memory.
func (a *allocator) reset() {
	for i := range a.pools {
		p := &a.pools[i]
		for off := uintptr(0); off < p.used; off += a.rec.stride {
			if c := a.slot(p, off); ownerOf(c) != NoEntity {
				a.rec.teardown(c)
			}
		}
		p.used = 0
		p.free = 0
	}
	a.top = 0
}

// destroyAll tears down live components from the newest slot to the oldest.
func (a *allocator) destroyAll() {
	for i := len(a.pools) - 1; i >= 0; i-- {
		p := &a.pools[i]
		for off := p.used; off >= a.rec.stride; off -= a.rec.stride {
			if c := a.slot(p, off-a.rec.stride); ownerOf(c) != NoEntity {
				a.rec.teardown(c)
			}
		}
		p.used = 0
		p.free = 0
	}
	a.top = 0
}

func (a *allocator) count() int {
	n := 0
	for i := range a.pools {
		n += a.live(&a.pools[i])
	}
	return n
}

func (a *allocator) stats() []PoolStats {
	out := make([]PoolStats, len(a.pools))
	for i := range a.pools {
		p := &a.pools[i]
		out[i] = PoolStats{
			UsedBytes:     p.used,
			CapacityBytes: a.capacity(),
			FreeCount:     p.free,
			Live:          a.live(p),
		}
	}
	return out
}

// PoolStats reports the pools of kind id in allocation order.
func (s *Scene) PoolStats(id CompID) []PoolStats {
	a := s.allocator(id)
	if a == nil {
		return nil
	}
	return a.stats()
}

// CompactComponents moves components from the tail of the kind's pools into
// earlier tombstones using the kind's Move callback, and returns how many were
// relocated. Raw pointers to components of this kind are invalidated.
func (s *Scene) CompactComponents(id CompID) (int, error) {
	if s.Locked() {
		return 0, LockedSceneError{}
	}
	a := s.allocator(id)
	if a == nil {
		return 0, invalidKind(id)
	}
	moved := 0
	for {
		hp, hoff, ok := a.firstTombstone()
		if !ok {
			return moved, nil
		}
		tp, toff, ok := a.lastLive()
		if !ok || tp < hp || (tp == hp && toff < hoff) {
			return moved, nil
		}
		hole := a.slot(&a.pools[hp], hoff)
		tail := a.slot(&a.pools[tp], toff)
		owner := ownerOf(tail)

		a.pools[hp].free--
		setOwner(hole, owner)
		a.rec.moveInto(hole, tail)
		s.internal[owner-1].retarget(id, hole)
		// The moved-from slot is not destroyed, only cleared
		a.rec.clear(tail)
		a.release(tp, tail)
		moved++
	}
}

func (a *allocator) firstTombstone() (int, uintptr, bool) {
	for i := range a.pools {
		p := &a.pools[i]
		if p.free == 0 {
			continue
		}
		for off := uintptr(0); off < p.used; off += a.rec.stride {
			if ownerOf(a.slot(p, off)) == NoEntity {
				return i, off, true
			}
		}
	}
	return 0, 0, false
}

func (a *allocator) lastLive() (int, uintptr, bool) {
	for i := len(a.pools) - 1; i >= 0; i-- {
		p := &a.pools[i]
		for off := p.used; off >= a.rec.stride; off -= a.rec.stride {
			if ownerOf(a.slot(p, off-a.rec.stride)) != NoEntity {
				return i, off - a.rec.stride, true
			}
		}
	}
	return 0, 0, false
}
