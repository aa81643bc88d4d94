package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildChain creates A (root), B child of A and C child of B.
func buildChain(t *testing.T, f *fixture) (a, b, c Entity) {
	t.Helper()
	a = f.create(t, NoEntity, "A")
	b = f.create(t, a, "B")
	c = f.create(t, b, "C")
	return a, b, c
}

func TestEntityChain(t *testing.T) {
	f := newFixture(t)
	a, b, c := buildChain(t, f)
	s := f.scene

	assert.Equal(t, 2, s.EntityChildsCount(a))
	assert.Equal(t, 1, s.EntityChildsCount(b))
	assert.Equal(t, 0, s.EntityChildsCount(c))
	assert.Equal(t, []Entity{a, b, c}, order(s))
	assert.Equal(t, a, s.EntityParent(b))
	assert.Equal(t, b, s.EntityParent(c))
	assert.Equal(t, NoEntity, s.EntityParent(a))
	checkInvariants(t, s)

	require.NoError(t, s.DestroyEntity(b))
	assert.Equal(t, []Entity{a}, order(s))
	assert.Equal(t, 0, s.EntityChildsCount(a))
	assert.False(t, s.EntityExists(b))
	assert.False(t, s.EntityExists(c))
	assert.True(t, s.EntityExists(a))
	checkInvariants(t, s)
}

func TestDestroyEntity(t *testing.T) {
	tests := []struct {
		name    string
		destroy string
		want    []string
		counts  map[string]int
	}{
		{
			name:    "Root shrinks the list by its whole block",
			destroy: "root",
			want:    []string{"other", "other-child"},
			counts:  map[string]int{"other": 1},
		},
		{
			name:    "Leaf decrements each ancestor by one",
			destroy: "leaf",
			want:    []string{"root", "mid", "sibling", "other", "other-child"},
			counts:  map[string]int{"root": 2, "mid": 0, "other": 1},
		},
		{
			name:    "Inner entity takes its subtree",
			destroy: "mid",
			want:    []string{"root", "sibling", "other", "other-child"},
			counts:  map[string]int{"root": 1, "other": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.scene
			byName := map[string]Entity{}
			byName["root"] = f.create(t, NoEntity, "root")
			byName["mid"] = f.create(t, byName["root"], "mid")
			byName["leaf"] = f.create(t, byName["mid"], "leaf")
			byName["sibling"] = f.create(t, byName["root"], "sibling")
			byName["other"] = f.create(t, NoEntity, "other")
			byName["other-child"] = f.create(t, byName["other"], "other-child")
			for _, e := range byName {
				_, err := f.health.Add(s, e)
				require.NoError(t, err)
			}
			before := s.EntityCount()
			removed := 1 + s.EntityChildsCount(byName[tt.destroy])

			require.NoError(t, s.DestroyEntity(byName[tt.destroy]))

			assert.Equal(t, before-removed, s.EntityCount())
			var names []string
			for e := range s.Entities() {
				names = append(names, s.EntityName(e))
			}
			assert.Equal(t, tt.want, names)
			for name, n := range tt.counts {
				assert.Equal(t, n, s.EntityChildsCount(byName[name]), name)
			}
			assert.Equal(t, len(tt.want), s.allocators[f.health.ID].count())
			checkInvariants(t, s)
		})
	}
}

func TestEntityDataGrowthAndReuse(t *testing.T) {
	f := newFixture(t)
	s := f.scene
	assert.Zero(t, s.EntityDataCount())

	first := f.create(t, NoEntity, "first")
	assert.Equal(t, Entity(1), first)
	assert.Equal(t, entityGrowStride, s.EntityDataCount())

	for range entityGrowStride {
		f.create(t, NoEntity, "")
	}
	assert.Equal(t, 2*entityGrowStride, s.EntityDataCount())
	assert.Equal(t, entityGrowStride+1, s.EntityCount())

	// Handles go back to the freelist and are reused
	require.NoError(t, s.DestroyEntity(first))
	again := f.create(t, NoEntity, "again")
	assert.Equal(t, first, again)
	assert.Equal(t, "again", s.EntityName(again))
	assert.Equal(t, 2*entityGrowStride, s.EntityDataCount())
	checkInvariants(t, s)
}

func TestEntityAccessors(t *testing.T) {
	f := newFixture(t)
	s := f.scene
	a, b, c := buildChain(t, f)
	d := f.create(t, a, "")

	assert.Equal(t, "Unnamed", s.EntityDisplayName(d))
	assert.Empty(t, s.EntityName(d))
	require.NoError(t, s.SetEntityName(d, "D"))
	assert.Equal(t, "D", s.EntityDisplayName(d))

	assert.Equal(t, []Entity{b, d}, s.EntityChildrenSlice(a))
	assert.Equal(t, []Entity{c}, s.EntityChildrenSlice(b))
	assert.Empty(t, s.EntityChildrenSlice(c))
	assert.Equal(t, 3, s.EntityHandleIndex(d))
	assert.Equal(t, d, s.EntityByIndex(3))
	assert.Equal(t, NoEntity, s.EntityByIndex(4))
	assert.Equal(t, NoEntity, s.EntityByIndex(-1))

	require.NoError(t, s.SetSystemFlags(c, 0b101))
	require.NoError(t, s.SetUserFlags(c, 7))
	assert.Equal(t, uint32(0b101), s.SystemFlags(c))
	assert.Equal(t, uint32(7), s.UserFlags(c))

	require.NoError(t, s.DestroyEntity(c))
	assert.Equal(t, freedHandle, s.EntityHandleIndex(c))
	assert.Zero(t, s.UserFlags(c))
	assert.Equal(t, InvalidUsage, ResultOf(s.SetEntityName(c, "dead")))
	assert.Equal(t, InvalidUsage, ResultOf(s.SetUserFlags(c, 1)))
	assert.Equal(t, InvalidUsage, ResultOf(s.DestroyEntity(c)))
	assert.False(t, s.EntityExists(NoEntity))
	assert.False(t, s.EntityExists(Entity(s.EntityDataCount()+1)))
}

func TestCreateEntityWithDeadParent(t *testing.T) {
	f := newFixture(t)
	parent := f.create(t, NoEntity, "parent")
	require.NoError(t, f.scene.DestroyEntity(parent))

	e, err := f.scene.CreateEntity(parent, "orphan")
	assert.Equal(t, NoEntity, e)
	var dead DeadEntityError
	require.ErrorAs(t, err, &dead)
	assert.Equal(t, parent, dead.Entity)
	assert.Zero(t, f.scene.EntityCount())
}
