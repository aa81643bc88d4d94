package ecs

import (
	"iter"
	"unsafe"

	"github.com/TheBitDrifter/mask"
	iter_util "github.com/TheBitDrifter/util/iter"
	"github.com/go-gl/mathgl/mgl32"
)

// freedHandle marks an entity data slot that is on the freelist.
const freedHandle = -1

type componentRef struct {
	id  CompID
	ptr unsafe.Pointer
}

type entityInternal struct {
	name        string
	parent      Entity
	childCount  int // transitive descendants
	handleIndex int // position in Scene.entities, or freedHandle
	components  []componentRef
	mask        mask.Mask
}

func (in *entityInternal) find(id CompID) int {
	for i := range in.components {
		if in.components[i].id == id {
			return i
		}
	}
	return -1
}

func (in *entityInternal) retarget(id CompID, ptr unsafe.Pointer) {
	if i := in.find(id); i >= 0 {
		in.components[i].ptr = ptr
	}
}

type entityTransform struct {
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	world    mgl32.Mat4
	dirty    bool
}

func newEntityTransform() entityTransform {
	return entityTransform{
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
		world:    mgl32.Ident4(),
		dirty:    true,
	}
}

type entityFlags struct {
	system uint32
	user   uint32
}

// allocEntity pops a handle off the freelist, growing the entity arrays by
// entityGrowStride when it is empty. The returned slot is reset but not yet
// placed in the ordered list.
func (s *Scene) allocEntity() Entity {
	if len(s.freeList) == 0 {
		s.growEntities(len(s.internal) + entityGrowStride)
	}
	e := s.freeList[len(s.freeList)-1]
	s.freeList = s.freeList[:len(s.freeList)-1]

	s.internal[e-1] = entityInternal{handleIndex: freedHandle}
	s.transforms[e-1] = newEntityTransform()
	s.flags[e-1] = entityFlags{}
	return e
}

// growEntities extends the entity arrays to n slots. New handles are pushed
// in descending order so the lowest one is handed out first.
func (s *Scene) growEntities(n int) {
	old := len(s.internal)
	if n <= old {
		return
	}
	internal := make([]entityInternal, n)
	transforms := make([]entityTransform, n)
	flags := make([]entityFlags, n)
	copy(internal, s.internal)
	copy(transforms, s.transforms)
	copy(flags, s.flags)
	s.internal, s.transforms, s.flags = internal, transforms, flags

	for h := n; h > old; h-- {
		s.internal[h-1].handleIndex = freedHandle
		s.freeList = append(s.freeList, Entity(h))
	}
	s.logger.Debug().Int("from", old).Int("to", n).Msg("entity data grown")
}

// freeEntity returns e to the freelist. Its components must already be gone.
func (s *Scene) freeEntity(e Entity) {
	s.internal[e-1] = entityInternal{handleIndex: freedHandle}
	s.transforms[e-1] = entityTransform{}
	s.flags[e-1] = entityFlags{}
	s.freeList = append(s.freeList, e)
}

// EntityExists reports whether e is a live entity of the scene.
func (s *Scene) EntityExists(e Entity) bool {
	return e != NoEntity && int(e) <= len(s.internal) && s.internal[e-1].handleIndex != freedHandle
}

func (s *Scene) live(e Entity) (*entityInternal, error) {
	if !s.EntityExists(e) {
		return nil, DeadEntityError{Entity: e}
	}
	return &s.internal[e-1], nil
}

// EntityCount is the number of live entities.
func (s *Scene) EntityCount() int {
	return len(s.entities)
}

// EntityByIndex returns the entity at position i of the depth-first ordered
// list, or NoEntity when i is out of range.
func (s *Scene) EntityByIndex(i int) Entity {
	if i < 0 || i >= len(s.entities) {
		return NoEntity
	}
	return s.entities[i]
}

// Entities yields live entities in depth-first pre-order.
func (s *Scene) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, e := range s.entities {
			if !yield(e) {
				return
			}
		}
	}
}

// EntityDataCount is the capacity of the entity arrays, live or not.
func (s *Scene) EntityDataCount() int {
	return len(s.internal)
}

func (s *Scene) EntityName(e Entity) string {
	if !s.EntityExists(e) {
		return ""
	}
	return s.internal[e-1].name
}

// EntityDisplayName is the entity name, or "Unnamed" when it is empty.
func (s *Scene) EntityDisplayName(e Entity) string {
	if name := s.EntityName(e); name != "" {
		return name
	}
	return "Unnamed"
}

func (s *Scene) SetEntityName(e Entity, name string) error {
	in, err := s.live(e)
	if err != nil {
		return err
	}
	in.name = name
	return nil
}

func (s *Scene) EntityParent(e Entity) Entity {
	if !s.EntityExists(e) {
		return NoEntity
	}
	return s.internal[e-1].parent
}

// EntityChildsCount is the number of transitive descendants of e.
func (s *Scene) EntityChildsCount(e Entity) int {
	if !s.EntityExists(e) {
		return 0
	}
	return s.internal[e-1].childCount
}

// EntityHandleIndex is e's position in the ordered list, or -1.
func (s *Scene) EntityHandleIndex(e Entity) int {
	if !s.EntityExists(e) {
		return freedHandle
	}
	return s.internal[e-1].handleIndex
}

// EntityChildren yields the direct children of e in order.
func (s *Scene) EntityChildren(e Entity) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		if !s.EntityExists(e) {
			return
		}
		in := &s.internal[e-1]
		end := in.handleIndex + in.childCount
		for i := in.handleIndex + 1; i <= end; {
			child := s.entities[i]
			if !yield(child) {
				return
			}
			i += 1 + s.internal[child-1].childCount
		}
	}
}

func (s *Scene) EntityChildrenSlice(e Entity) []Entity {
	return iter_util.Collect(s.EntityChildren(e))
}

// Subtree yields e followed by all its descendants in pre-order.
func (s *Scene) Subtree(e Entity) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		if !s.EntityExists(e) {
			return
		}
		in := s.internal[e-1]
		for _, d := range s.entities[in.handleIndex : in.handleIndex+1+in.childCount] {
			if !yield(d) {
				return
			}
		}
	}
}

func (s *Scene) SystemFlags(e Entity) uint32 {
	if !s.EntityExists(e) {
		return 0
	}
	return s.flags[e-1].system
}

func (s *Scene) SetSystemFlags(e Entity, flags uint32) error {
	if _, err := s.live(e); err != nil {
		return err
	}
	s.flags[e-1].system = flags
	return nil
}

func (s *Scene) UserFlags(e Entity) uint32 {
	if !s.EntityExists(e) {
		return 0
	}
	return s.flags[e-1].user
}

func (s *Scene) SetUserFlags(e Entity, flags uint32) error {
	if _, err := s.live(e); err != nil {
		return err
	}
	s.flags[e-1].user = flags
	return nil
}
