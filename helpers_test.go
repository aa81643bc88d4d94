package ecs

import (
	"slices"
	"testing"

	"github.com/TheBitDrifter/mask"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/JoseLRM/OldSilverEngine/ecs/archive"
)

// Test component types
type Health struct {
	ComponentHeader
	Current, Max int32
}

type Tag struct {
	ComponentHeader
	Label string
}

type Body struct {
	ComponentHeader
	Velocity mgl32.Vec3
	Mass     float32
}

type fixture struct {
	registry *Registry
	health   Kind[Health]
	tag      Kind[Tag]
	body     Kind[Body]
	scene    *Scene
}

// newFixture registers Health and Tag with serialization and Body without,
// then opens an empty scene.
func newFixture(t *testing.T, opts ...SceneOption) *fixture {
	t.Helper()
	f := &fixture{registry: NewRegistry()}

	var err error
	f.health, err = RegisterKind(f.registry, "Health", 2, KindHooks[Health]{
		Create: func(h *Health) { h.Max = 100; h.Current = 100 },
		Serialize: func(h *Health, w *archive.Writer) error {
			w.WriteI32(h.Current)
			w.WriteI32(h.Max)
			return nil
		},
		Deserialize: func(h *Health, r *archive.Reader, _ uint32) error {
			h.Current = r.ReadI32()
			h.Max = r.ReadI32()
			return r.Err()
		},
	})
	require.NoError(t, err)

	f.tag, err = RegisterKind(f.registry, "Tag", 1, KindHooks[Tag]{
		Serialize: func(c *Tag, w *archive.Writer) error {
			w.WriteString(c.Label)
			return nil
		},
		Deserialize: func(c *Tag, r *archive.Reader, _ uint32) error {
			c.Label = r.ReadString()
			return r.Err()
		},
	})
	require.NoError(t, err)

	f.body, err = RegisterKind(f.registry, "Body", 1, KindHooks[Body]{
		Create: func(b *Body) { b.Mass = 1 },
	})
	require.NoError(t, err)

	f.scene = NewScene("test", f.registry, opts...)
	t.Cleanup(f.scene.Close)
	return f
}

func (f *fixture) create(t *testing.T, parent Entity, name string) Entity {
	t.Helper()
	e, err := f.scene.CreateEntity(parent, name)
	require.NoError(t, err)
	return e
}

func order(s *Scene) []Entity {
	return slices.Collect(s.Entities())
}

// checkInvariants verifies the ordering, tag and tombstone invariants of s.
func checkInvariants(t *testing.T, s *Scene) {
	t.Helper()

	require.Equal(t, len(s.internal), len(s.entities)+len(s.freeList), "live plus free handles must cover the entity data")

	// Ordering: the block after each entity is exactly its descendants
	isAncestor := func(a, e Entity) bool {
		for p := s.internal[e-1].parent; p != NoEntity; p = s.internal[p-1].parent {
			if p == a {
				return true
			}
		}
		return false
	}
	for p, e := range s.entities {
		in := s.internal[e-1]
		require.Equal(t, p, in.handleIndex, "entity %d handle index", e)
		for q, d := range s.entities {
			inside := q > p && q <= p+in.childCount
			require.Equal(t, inside, isAncestor(e, d), "entity %d at %d vs %d at %d", e, p, d, q)
		}
	}

	// Tags: live slots and component lists point at each other
	for id := range s.allocators {
		a := &s.allocators[id]
		for i := range a.pools {
			p := &a.pools[i]
			require.Zero(t, p.used%a.rec.stride)
			if i > a.top {
				require.Zero(t, p.used, "pool %d of %s lies past the fill index", i, a.rec.name)
			}
			tagged := 0
			for off := uintptr(0); off < p.used; off += a.rec.stride {
				c := a.slot(p, off)
				owner := ownerOf(c)
				if owner == NoEntity {
					continue
				}
				tagged++
				require.True(t, s.EntityExists(owner), "slot tagged with dead entity %d", owner)
				require.Equal(t, c, s.GetComponent(owner, CompID(id)))
			}
			require.Equal(t, int(p.used/a.rec.stride)-p.free, tagged, "pool %d of %s", i, a.rec.name)
		}
	}
	for _, e := range s.entities {
		for _, ref := range s.internal[e-1].components {
			require.Equal(t, e, ownerOf(ref.ptr))
			require.True(t, s.internal[e-1].mask.ContainsAll(maskOf(ref.id)))
		}
	}
}

func maskOf(ids ...CompID) (m mask.Mask) {
	for _, id := range ids {
		m.Mark(uint32(id))
	}
	return m
}
