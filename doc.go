/*
Package ecs provides the entity-component-system core of a small game engine.

Entities are plain handles arranged in a forest. A scene keeps them in a single
list ordered depth first, so every subtree is a contiguous block: destroying,
duplicating or reparenting an entity moves one block. Each entity carries a
name, flags, a local transform whose world matrix is recomputed lazily, and at
most one component of every registered kind.

Core Concepts:

  - Registry: the table of component kinds, sealed once the first scene uses it.
  - Component: a fixed-size record whose first four bytes hold its owner.
  - Pool: a block of 100 component slots. Freed slots become tombstones and
    are reused; pools never move, so component pointers stay valid.
  - Cursor: a walk over every live component of one kind.
  - Archive: the little-endian binary format scenes are saved in.

Basic Usage:

	type Velocity struct {
		ecs.ComponentHeader
		X, Y, Z float32
	}

	registry := ecs.Factory.NewRegistry()
	velocity, _ := ecs.RegisterKind[Velocity](registry, "Velocity", 1, ecs.KindHooks[Velocity]{})

	scene := ecs.Factory.NewScene("main", registry)
	ship, _ := scene.CreateEntity(ecs.NoEntity, "ship")
	v, _ := velocity.Add(scene, ship)
	v.X = 2

	for e, v := range velocity.Each(scene) {
		scene.Transform(e).Translate(mgl32.Vec3{v.X, v.Y, v.Z})
	}

While a cursor or a range loop is running the scene is locked: structural
changes fail with LockedSceneError, and the Enqueue variants defer them until
the scene is unlocked.
*/
package ecs
