package ecs

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shape describes a subtree as (depth, name, kind ids) in pre-order.
type shapeEntry struct {
	depth int
	name  string
	kinds []CompID
}

func shapeOf(s *Scene, root Entity) []shapeEntry {
	base := s.EntityHandleIndex(root)
	var out []shapeEntry
	for e := range s.Subtree(root) {
		depth := 0
		for p := s.EntityParent(e); p != NoEntity && s.EntityHandleIndex(p) >= base; p = s.EntityParent(p) {
			depth++
		}
		var kinds []CompID
		for id := range s.EntityComponents(e) {
			kinds = append(kinds, id)
		}
		out = append(out, shapeEntry{depth: depth, name: s.EntityName(e), kinds: kinds})
	}
	return out
}

func TestDuplicateEntity(t *testing.T) {
	f := newFixture(t)
	s := f.scene
	root := f.create(t, NoEntity, "root")
	src := f.create(t, root, "ship")
	hull := f.create(t, src, "hull")
	f.create(t, hull, "turret")
	f.create(t, src, "engine")
	later := f.create(t, root, "later")
	tail := f.create(t, NoEntity, "tail")

	h, err := f.health.Add(s, hull)
	require.NoError(t, err)
	h.Current = 42
	tg, err := f.tag.Add(s, src)
	require.NoError(t, err)
	tg.Label = "flagship"
	_, err = f.body.Add(s, src)
	require.NoError(t, err)
	s.Transform(src).SetPosition(mgl32.Vec3{1, 2, 3})
	require.NoError(t, s.SetUserFlags(hull, 9))

	dup, err := s.DuplicateEntity(src)
	require.NoError(t, err)
	checkInvariants(t, s)

	// Same shape and kinds at every position, placed right after the source
	assert.Equal(t, shapeOf(s, src), shapeOf(s, dup))
	assert.Equal(t, s.EntityHandleIndex(src)+s.EntityChildsCount(src)+1, s.EntityHandleIndex(dup))
	assert.Equal(t, root, s.EntityParent(dup))
	assert.Equal(t, s.EntityHandleIndex(dup)+s.EntityChildsCount(dup)+1, s.EntityHandleIndex(later))
	assert.Equal(t, 9, s.EntityChildsCount(root))
	assert.Equal(t, s.EntityCount()-1, s.EntityHandleIndex(tail))

	// Distinct component pointers with copied payloads
	srcBlock := s.entities[s.EntityHandleIndex(src) : s.EntityHandleIndex(src)+4]
	dupBlock := s.entities[s.EntityHandleIndex(dup) : s.EntityHandleIndex(dup)+4]
	for i := range srcBlock {
		for id, c := range s.EntityComponents(srcBlock[i]) {
			d := s.GetComponent(dupBlock[i], id)
			require.NotNil(t, d)
			assert.NotEqual(t, c, d)
			assert.Equal(t, dupBlock[i], ownerOf(d))
		}
	}
	dupHull := dupBlock[1]
	assert.Equal(t, int32(42), f.health.Get(s, dupHull).Current)
	assert.Equal(t, "flagship", f.tag.Get(s, dup).Label)
	assert.Equal(t, uint32(9), s.UserFlags(dupHull))
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, s.Transform(dup).LocalPosition())

	// The copy is independent
	f.tag.Get(s, dup).Label = "copy"
	assert.Equal(t, "flagship", f.tag.Get(s, src).Label)
}

func TestDuplicateRootEntity(t *testing.T) {
	f := newFixture(t)
	s := f.scene
	a := f.create(t, NoEntity, "a")
	f.create(t, a, "a1")
	b := f.create(t, NoEntity, "b")

	dup, err := s.DuplicateEntity(a)
	require.NoError(t, err)
	assert.Equal(t, 2, s.EntityHandleIndex(dup))
	assert.Equal(t, NoEntity, s.EntityParent(dup))
	assert.Equal(t, 4, s.EntityHandleIndex(b))
	checkInvariants(t, s)

	_, err = s.DuplicateEntity(Entity(500))
	assert.Equal(t, InvalidUsage, ResultOf(err))
}

func TestSetParent(t *testing.T) {
	f := newFixture(t)
	s := f.scene
	a, b, c := buildChain(t, f)
	d := f.create(t, NoEntity, "D")
	e := f.create(t, d, "E")

	t.Run("Rejects cycles", func(t *testing.T) {
		for _, parent := range []Entity{a, b, c} {
			err := s.SetParent(a, parent)
			var rel EntityRelationError
			require.ErrorAs(t, err, &rel)
			assert.Equal(t, InvalidUsage, ResultOf(err))
		}
		assert.Equal(t, []Entity{a, b, c, d, e}, order(s))
	})

	t.Run("Moves the subtree block", func(t *testing.T) {
		require.NoError(t, s.SetParent(b, e))
		assert.Equal(t, []Entity{a, d, e, b, c}, order(s))
		assert.Equal(t, 0, s.EntityChildsCount(a))
		assert.Equal(t, 3, s.EntityChildsCount(d))
		assert.Equal(t, 2, s.EntityChildsCount(e))
		assert.Equal(t, e, s.EntityParent(b))
		checkInvariants(t, s)
	})

	t.Run("Detaches to the top level", func(t *testing.T) {
		require.NoError(t, s.SetParent(e, NoEntity))
		assert.Equal(t, []Entity{a, d, e, b, c}, order(s))
		assert.Equal(t, 0, s.EntityChildsCount(d))
		assert.Equal(t, NoEntity, s.EntityParent(e))
		checkInvariants(t, s)
	})

	t.Run("Dirties the moved subtree", func(t *testing.T) {
		s.Transform(a).SetPosition(mgl32.Vec3{5, 0, 0})
		s.Transform(c).WorldMatrix()
		require.False(t, s.Transform(c).Dirty())

		require.NoError(t, s.SetParent(b, a))
		assert.True(t, s.Transform(b).Dirty())
		assert.True(t, s.Transform(c).Dirty())
		assert.Equal(t, mgl32.Vec3{5, 0, 0}, s.Transform(c).WorldPosition())
		checkInvariants(t, s)
	})

	t.Run("Dead entities", func(t *testing.T) {
		assert.Equal(t, InvalidUsage, ResultOf(s.SetParent(Entity(999), a)))
		assert.Equal(t, InvalidUsage, ResultOf(s.SetParent(a, Entity(999))))
	})
}

func TestClearEntity(t *testing.T) {
	f := newFixture(t)
	s := f.scene
	e := f.create(t, NoEntity, "e")
	_, err := f.health.Add(s, e)
	require.NoError(t, err)
	_, err = f.tag.Add(s, e)
	require.NoError(t, err)

	require.NoError(t, s.ClearEntity(e))
	assert.True(t, s.EntityExists(e))
	assert.Zero(t, s.ComponentCount(e))
	assert.False(t, s.HasAnyComponent(e, f.health.ID, f.tag.ID))
	assert.Zero(t, s.allocators[f.health.ID].count())
	checkInvariants(t, s)

	_, err = f.health.Add(s, e)
	assert.NoError(t, err)
}

func TestComponentQueries(t *testing.T) {
	f := newFixture(t)
	s := f.scene
	e := f.create(t, NoEntity, "e")
	h, err := f.health.Add(s, e)
	require.NoError(t, err)
	assert.Equal(t, int32(100), h.Max, "create hook runs on add")
	b, err := f.body.Add(s, e)
	require.NoError(t, err)

	assert.True(t, s.HasComponent(e, f.health.ID))
	assert.True(t, f.body.Has(s, e))
	assert.False(t, f.tag.Has(s, e))
	assert.True(t, s.HasComponents(e, f.health.ID, f.body.ID))
	assert.False(t, s.HasComponents(e, f.health.ID, f.tag.ID))
	assert.False(t, s.HasComponents(e, f.health.ID, InvalidCompID))
	assert.True(t, s.HasAnyComponent(e, f.tag.ID, f.body.ID))
	assert.False(t, s.HasAnyComponent(e, f.tag.ID))

	assert.Equal(t, 2, s.ComponentCount(e))
	id, c := s.ComponentByIndex(e, 0)
	assert.Equal(t, f.health.ID, id)
	assert.Equal(t, unsafe.Pointer(h), c)
	id, c = s.ComponentByIndex(e, 1)
	assert.Equal(t, f.body.ID, id)
	assert.Equal(t, unsafe.Pointer(b), c)
	id, c = s.ComponentByIndex(e, 2)
	assert.Equal(t, InvalidCompID, id)
	assert.Nil(t, c)

	require.NoError(t, f.health.Remove(s, e))
	assert.Nil(t, f.health.Get(s, e))
	assert.False(t, s.HasComponent(e, f.health.ID))
	id, _ = s.ComponentByIndex(e, 0)
	assert.Equal(t, f.body.ID, id)
	assert.Equal(t, e, f.body.Get(s, e).Owner())
	checkInvariants(t, s)
}

func TestMainCameraClearedOnDestroy(t *testing.T) {
	f := newFixture(t)
	s := f.scene
	rig := f.create(t, NoEntity, "rig")
	camera := f.create(t, rig, "camera")

	require.NoError(t, s.SetMainCamera(camera))
	assert.Equal(t, camera, s.MainCamera())
	assert.Equal(t, InvalidUsage, ResultOf(s.SetMainCamera(Entity(77))))

	require.NoError(t, s.DestroyEntity(rig))
	assert.Equal(t, NoEntity, s.MainCamera())
}
