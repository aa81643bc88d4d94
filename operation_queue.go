package ecs

import (
	"fmt"
)

type operation struct {
	typ    operationType
	entity Entity
	parent Entity
	name   string
	comp   CompID
}

type operationType int

const (
	opCreate operationType = iota
	opDestroy
	opAddComponent
	opRemoveComponent
	opNone operationType = -1
)

type opKey struct {
	entity Entity
	comp   CompID
}

type opQueue struct {
	createOps      []operation
	componentOps   []operation
	destroyOps     []operation
	pendingDestroy map[Entity]struct{}
	pendingMods    map[opKey]int
}

func newOpQueue() opQueue {
	return opQueue{
		pendingDestroy: make(map[Entity]struct{}),
		pendingMods:    make(map[opKey]int),
	}
}

func (q *opQueue) empty() bool {
	return len(q.createOps) == 0 && len(q.componentOps) == 0 && len(q.destroyOps) == 0
}

func (q *opQueue) reset() {
	q.createOps = q.createOps[:0]
	q.componentOps = q.componentOps[:0]
	q.destroyOps = q.destroyOps[:0]
	clear(q.pendingDestroy)
	clear(q.pendingMods)
}

// EnqueueCreateEntity creates an entity now, or once the scene is unlocked.
func (s *Scene) EnqueueCreateEntity(parent Entity, name string) error {
	if !s.Locked() {
		_, err := s.CreateEntity(parent, name)
		return err
	}
	s.opQueue.createOps = append(s.opQueue.createOps, operation{
		typ:    opCreate,
		parent: parent,
		name:   name,
	})
	return nil
}

func (s *Scene) EnqueueDestroyEntity(e Entity) error {
	if !s.Locked() {
		return s.DestroyEntity(e)
	}
	if _, err := s.live(e); err != nil {
		return err
	}
	s.opQueue.enqueueDestroy(e)
	return nil
}

func (s *Scene) EnqueueAddComponent(e Entity, id CompID) error {
	if !s.Locked() {
		_, err := s.AddComponent(e, id)
		return err
	}
	if err := s.checkQueued(e, id); err != nil {
		return err
	}
	s.opQueue.enqueueComponentOp(opAddComponent, e, id)
	return nil
}

func (s *Scene) EnqueueRemoveComponent(e Entity, id CompID) error {
	if !s.Locked() {
		return s.RemoveComponent(e, id)
	}
	if err := s.checkQueued(e, id); err != nil {
		return err
	}
	s.opQueue.enqueueComponentOp(opRemoveComponent, e, id)
	return nil
}

func (s *Scene) checkQueued(e Entity, id CompID) error {
	if s.allocator(id) == nil {
		return invalidKind(id)
	}
	_, err := s.live(e)
	return err
}

func (q *opQueue) enqueueDestroy(e Entity) {
	if _, exists := q.pendingDestroy[e]; exists {
		return
	}
	q.pendingDestroy[e] = struct{}{}

	// Component operations on an entity about to be destroyed are dropped
	for key, idx := range q.pendingMods {
		if key.entity == e {
			q.componentOps[idx].typ = opNone
			delete(q.pendingMods, key)
		}
	}
	q.destroyOps = append(q.destroyOps, operation{typ: opDestroy, entity: e})
}

func (q *opQueue) enqueueComponentOp(typ operationType, e Entity, id CompID) {
	if _, isDestroyed := q.pendingDestroy[e]; isDestroyed {
		return
	}
	key := opKey{entity: e, comp: id}

	// An add and a remove of the same kind cancel out
	if idx, exists := q.pendingMods[key]; exists {
		if q.componentOps[idx].typ != typ {
			q.componentOps[idx].typ = opNone
			delete(q.pendingMods, key)
		}
		return
	}
	q.pendingMods[key] = len(q.componentOps)
	q.componentOps = append(q.componentOps, operation{
		typ:    typ,
		entity: e,
		comp:   id,
	})
}

// processOperationQueue applies creates, then component changes, then
// destroys. The queue is emptied even when an operation fails; the first
// failure is returned.
func (s *Scene) processOperationQueue() error {
	q := &s.opQueue
	if q.empty() {
		return nil
	}
	defer q.reset()

	for _, op := range q.createOps {
		if _, err := s.CreateEntity(op.parent, op.name); err != nil {
			return fmt.Errorf("failed to process queued entity creation: %w", err)
		}
	}

	for _, op := range q.componentOps {
		// The entity may have gone away since the operation was queued
		if !s.EntityExists(op.entity) {
			continue
		}
		switch op.typ {
		case opAddComponent:
			if _, err := s.AddComponent(op.entity, op.comp); err != nil {
				return fmt.Errorf("failed to add queued component: %w", err)
			}
		case opRemoveComponent:
			if err := s.RemoveComponent(op.entity, op.comp); err != nil {
				return fmt.Errorf("failed to remove queued component: %w", err)
			}
		}
	}

	for _, op := range q.destroyOps {
		// Already gone with a destroyed ancestor
		if !s.EntityExists(op.entity) {
			continue
		}
		if err := s.DestroyEntity(op.entity); err != nil {
			return fmt.Errorf("failed to destroy queued entity: %w", err)
		}
	}
	return nil
}
