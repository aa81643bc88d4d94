package ecs

import (
	"iter"
	"slices"
	"unsafe"

	"github.com/TheBitDrifter/mask"
	"github.com/rotisserie/eris"
)

// CreateEntity allocates an entity named name. With a parent it is placed
// right after the parent's current subtree, otherwise at the end of the list.
func (s *Scene) CreateEntity(parent Entity, name string) (Entity, error) {
	if s.Locked() {
		return NoEntity, LockedSceneError{}
	}
	if parent != NoEntity && !s.EntityExists(parent) {
		return NoEntity, DeadEntityError{Entity: parent}
	}
	pos := len(s.entities)
	if parent != NoEntity {
		pos = s.subtreeEnd(parent)
	}
	return s.createAt(parent, name, pos), nil
}

func (s *Scene) createAt(parent Entity, name string, pos int) Entity {
	e := s.allocEntity()
	in := &s.internal[e-1]
	in.name = name
	in.parent = parent
	s.insertBlock(pos, e)
	s.adjustAncestors(parent, 1)
	return e
}

// subtreeEnd is the position right after e's subtree.
func (s *Scene) subtreeEnd(e Entity) int {
	in := &s.internal[e-1]
	return in.handleIndex + in.childCount + 1
}

func (s *Scene) insertBlock(pos int, block ...Entity) {
	s.entities = slices.Insert(s.entities, pos, block...)
	s.reindex(pos)
}

func (s *Scene) removeBlock(pos, n int) {
	s.entities = slices.Delete(s.entities, pos, pos+n)
	s.reindex(pos)
}

func (s *Scene) reindex(from int) {
	for i := from; i < len(s.entities); i++ {
		s.internal[s.entities[i]-1].handleIndex = i
	}
}

func (s *Scene) adjustAncestors(e Entity, delta int) {
	for e != NoEntity {
		in := &s.internal[e-1]
		in.childCount += delta
		e = in.parent
	}
}

// DestroyEntity destroys e together with its whole subtree.
func (s *Scene) DestroyEntity(e Entity) error {
	if s.Locked() {
		return LockedSceneError{}
	}
	in, err := s.live(e)
	if err != nil {
		return err
	}
	pos, n, parent := in.handleIndex, in.childCount+1, in.parent
	block := slices.Clone(s.entities[pos : pos+n])

	for _, d := range slices.Backward(block) {
		s.releaseComponents(d)
	}
	s.adjustAncestors(parent, -n)
	s.removeBlock(pos, n)
	for _, d := range block {
		if d == s.mainCamera {
			s.mainCamera = NoEntity
		}
		s.freeEntity(d)
	}
	return nil
}

// DuplicateEntity deep copies e's subtree. The copy of e becomes a sibling
// placed right after e's subtree; names, transforms, flags and components are
// copied through the kinds' Copy callbacks.
func (s *Scene) DuplicateEntity(e Entity) (Entity, error) {
	if s.Locked() {
		return NoEntity, LockedSceneError{}
	}
	in, err := s.live(e)
	if err != nil {
		return NoEntity, err
	}
	source := slices.Clone(s.entities[in.handleIndex : in.handleIndex+1+in.childCount])
	twins := make(map[Entity]Entity, len(source))

	for i, src := range source {
		var twin Entity
		if i == 0 {
			twin = s.createAt(s.internal[src-1].parent, s.internal[src-1].name, s.subtreeEnd(src))
		} else {
			parent := twins[s.internal[src-1].parent]
			twin = s.createAt(parent, s.internal[src-1].name, s.subtreeEnd(parent))
		}
		twins[src] = twin

		st, tt := &s.transforms[src-1], &s.transforms[twin-1]
		tt.position, tt.rotation, tt.scale = st.position, st.rotation, st.scale
		s.flags[twin-1] = s.flags[src-1]

		for _, ref := range slices.Clone(s.internal[src-1].components) {
			a := &s.allocators[ref.id]
			c := s.attach(twin, a)
			a.rec.copyInto(c, ref.ptr)
		}
	}
	return twins[e], nil
}

// SetParent moves e's subtree under parent, or to the top level when parent
// is NoEntity. The block lands right after the new parent's subtree.
func (s *Scene) SetParent(e, parent Entity) error {
	if s.Locked() {
		return LockedSceneError{}
	}
	in, err := s.live(e)
	if err != nil {
		return err
	}
	if parent != NoEntity {
		if !s.EntityExists(parent) {
			return DeadEntityError{Entity: parent}
		}
		hi := s.internal[parent-1].handleIndex
		if hi >= in.handleIndex && hi <= in.handleIndex+in.childCount {
			return EntityRelationError{Child: e, Parent: parent}
		}
	}
	if in.parent == parent {
		return nil
	}

	pos, n := in.handleIndex, in.childCount+1
	block := slices.Clone(s.entities[pos : pos+n])
	s.adjustAncestors(in.parent, -n)
	s.removeBlock(pos, n)

	dst := len(s.entities)
	if parent != NoEntity {
		dst = s.subtreeEnd(parent)
	}
	s.insertBlock(dst, block...)
	s.adjustAncestors(parent, n)
	s.internal[e-1].parent = parent
	s.markDirty(e)
	return nil
}

// ClearEntity removes every component of e and keeps the handle.
func (s *Scene) ClearEntity(e Entity) error {
	if s.Locked() {
		return LockedSceneError{}
	}
	if _, err := s.live(e); err != nil {
		return err
	}
	s.releaseComponents(e)
	return nil
}

func (s *Scene) releaseComponents(e Entity) {
	in := &s.internal[e-1]
	for _, ref := range slices.Backward(in.components) {
		s.allocators[ref.id].free(ref.ptr)
	}
	in.components = in.components[:0]
	in.mask = mask.Mask{}
}

func (s *Scene) allocator(id CompID) *allocator {
	if int64(id) >= int64(len(s.allocators)) {
		return nil
	}
	return &s.allocators[id]
}

func invalidKind(id CompID) error {
	return eris.Wrapf(ErrInvalidUsage, "component kind %d is not registered", id)
}

// attach allocates and constructs a component of a's kind for e.
func (s *Scene) attach(e Entity, a *allocator) unsafe.Pointer {
	c, grew := a.alloc()
	if grew {
		s.logger.Debug().Str("component", a.rec.name).Int("pools", len(a.pools)).Msg("component pool added")
	}
	a.rec.construct(c, e)
	in := &s.internal[e-1]
	in.components = append(in.components, componentRef{id: a.rec.id, ptr: c})
	in.mask.Mark(uint32(a.rec.id))
	return c
}

// AddComponent attaches a new component of kind id to e and returns it after
// its Create callback ran.
func (s *Scene) AddComponent(e Entity, id CompID) (unsafe.Pointer, error) {
	if s.Locked() {
		return nil, LockedSceneError{}
	}
	a := s.allocator(id)
	if a == nil {
		return nil, invalidKind(id)
	}
	in, err := s.live(e)
	if err != nil {
		return nil, err
	}
	if in.find(id) >= 0 {
		return nil, ComponentExistsError{Entity: e, Component: id}
	}
	return s.attach(e, a), nil
}

func (s *Scene) RemoveComponent(e Entity, id CompID) error {
	if s.Locked() {
		return LockedSceneError{}
	}
	a := s.allocator(id)
	if a == nil {
		return invalidKind(id)
	}
	in, err := s.live(e)
	if err != nil {
		return err
	}
	i := in.find(id)
	if i < 0 {
		return ComponentNotFoundError{Entity: e, Component: id}
	}
	a.free(in.components[i].ptr)
	in.components = slices.Delete(in.components, i, i+1)
	in.mask.Unmark(uint32(id))
	return nil
}

// GetComponent returns e's component of kind id, or nil.
func (s *Scene) GetComponent(e Entity, id CompID) unsafe.Pointer {
	if !s.EntityExists(e) {
		return nil
	}
	in := &s.internal[e-1]
	if i := in.find(id); i >= 0 {
		return in.components[i].ptr
	}
	return nil
}

func (s *Scene) HasComponent(e Entity, id CompID) bool {
	return s.HasComponents(e, id)
}

// HasComponents reports whether e owns every listed kind.
func (s *Scene) HasComponents(e Entity, ids ...CompID) bool {
	m, ok := s.kindMask(ids)
	if !ok || !s.EntityExists(e) {
		return false
	}
	return s.internal[e-1].mask.ContainsAll(m)
}

// HasAnyComponent reports whether e owns at least one of the listed kinds.
func (s *Scene) HasAnyComponent(e Entity, ids ...CompID) bool {
	if !s.EntityExists(e) {
		return false
	}
	var m mask.Mask
	for _, id := range ids {
		if s.allocator(id) != nil {
			m.Mark(uint32(id))
		}
	}
	return s.internal[e-1].mask.ContainsAny(m)
}

func (s *Scene) kindMask(ids []CompID) (mask.Mask, bool) {
	var m mask.Mask
	for _, id := range ids {
		if s.allocator(id) == nil {
			return m, false
		}
		m.Mark(uint32(id))
	}
	return m, true
}

func (s *Scene) ComponentCount(e Entity) int {
	if !s.EntityExists(e) {
		return 0
	}
	return len(s.internal[e-1].components)
}

// ComponentByIndex returns the i-th component of e in attachment order, or
// InvalidCompID and nil when out of range.
func (s *Scene) ComponentByIndex(e Entity, i int) (CompID, unsafe.Pointer) {
	if !s.EntityExists(e) {
		return InvalidCompID, nil
	}
	comps := s.internal[e-1].components
	if i < 0 || i >= len(comps) {
		return InvalidCompID, nil
	}
	return comps[i].id, comps[i].ptr
}

// EntityComponents yields e's components in attachment order.
func (s *Scene) EntityComponents(e Entity) iter.Seq2[CompID, unsafe.Pointer] {
	return func(yield func(CompID, unsafe.Pointer) bool) {
		if !s.EntityExists(e) {
			return
		}
		for _, ref := range s.internal[e-1].components {
			if !yield(ref.id, ref.ptr) {
				return
			}
		}
	}
}
