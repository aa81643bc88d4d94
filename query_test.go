package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFiltering(t *testing.T) {
	type entitySetup struct {
		kinds []string
		count int
	}

	tests := []struct {
		name            string
		entitySetups    []entitySetup
		build           func(q *Query, f *fixture)
		expectedMatches int
	}{
		{
			name: "And query matches exact",
			entitySetups: []entitySetup{
				{[]string{"health", "tag"}, 5},
				{[]string{"health"}, 10},
				{[]string{"tag"}, 15},
			},
			build:           func(q *Query, f *fixture) { q.And(f.health, f.tag) },
			expectedMatches: 5,
		},
		{
			name: "Or query matches either",
			entitySetups: []entitySetup{
				{[]string{"health", "tag"}, 5},
				{[]string{"health"}, 10},
				{[]string{"tag"}, 15},
				{nil, 3},
			},
			build:           func(q *Query, f *fixture) { q.Or(f.health.ID, f.tag.ID) },
			expectedMatches: 30,
		},
		{
			name: "Not query excludes",
			entitySetups: []entitySetup{
				{[]string{"health", "tag"}, 5},
				{[]string{"health"}, 10},
				{[]string{"tag"}, 15},
				{[]string{"body"}, 20},
			},
			build:           func(q *Query, f *fixture) { q.Not(f.tag) },
			expectedMatches: 30,
		},
		{
			name: "Nested nodes",
			entitySetups: []entitySetup{
				{[]string{"health", "tag"}, 5},
				{[]string{"health", "body"}, 7},
				{[]string{"health"}, 10},
				{[]string{"tag", "body"}, 4},
			},
			build: func(q *Query, f *fixture) {
				q.And(f.health, q.Or(f.tag, f.body), q.Not(f.tag))
			},
			expectedMatches: 7,
		},
		{
			name: "Unknown kind never matches an And",
			entitySetups: []entitySetup{
				{[]string{"health"}, 4},
			},
			build:           func(q *Query, f *fixture) { q.And(f.health.ID, InvalidCompID) },
			expectedMatches: 0,
		},
		{
			name: "Empty query",
			entitySetups: []entitySetup{
				{[]string{"health"}, 4},
			},
			build:           func(*Query, *fixture) {},
			expectedMatches: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.scene
			ids := map[string]CompID{"health": f.health.ID, "tag": f.tag.ID, "body": f.body.ID}
			for _, setup := range tt.entitySetups {
				for range setup.count {
					e := f.create(t, NoEntity, "")
					for _, kind := range setup.kinds {
						_, err := s.AddComponent(e, ids[kind])
						require.NoError(t, err)
					}
				}
			}

			q := NewQuery()
			tt.build(q, f)
			matches := 0
			for e := range s.Query(q) {
				assert.True(t, s.Matches(e, q))
				matches++
			}
			assert.Equal(t, tt.expectedMatches, matches)
			assert.False(t, s.Locked())
		})
	}
}

func TestQueryFollowsHierarchyOrder(t *testing.T) {
	f := newFixture(t)
	s := f.scene
	a := f.create(t, NoEntity, "a")
	b := f.create(t, NoEntity, "b")
	a1 := f.create(t, a, "a1")
	for _, e := range []Entity{b, a1, a} {
		_, err := f.tag.Add(s, e)
		require.NoError(t, err)
	}

	q := NewQuery()
	q.And(f.tag)
	var got []Entity
	for e := range s.Query(q) {
		got = append(got, e)
	}
	assert.Equal(t, []Entity{a, a1, b}, got)
	assert.False(t, s.Matches(Entity(99), q))
}
