package ecs

import (
	"iter"

	"github.com/TheBitDrifter/mask"
)

type QueryOperation int

const (
	OpAnd QueryOperation = iota
	OpOr
	OpNot
)

// QueryNode matches the component set of a single entity.
type QueryNode interface {
	Evaluate(kinds mask.Mask) bool
}

type compositeNode struct {
	op       QueryOperation
	children []QueryNode
	kinds    mask.Mask
	// unknown is set when a listed kind can never be registered
	unknown bool
}

// Query is a tree of And, Or and Not nodes over component kinds. Nested
// nodes are built before the node holding them, so the last node built is
// the root.
type Query struct {
	root QueryNode
}

func NewQuery() *Query {
	return &Query{}
}

func newCompositeNode(op QueryOperation, ids []CompID, children []QueryNode) *compositeNode {
	n := &compositeNode{op: op, children: children}
	for _, id := range ids {
		if id >= MaxComponentKinds {
			n.unknown = true
			continue
		}
		n.kinds.Mark(uint32(id))
	}
	return n
}

func (n *compositeNode) Evaluate(kinds mask.Mask) bool {
	switch n.op {
	case OpAnd:
		if n.unknown || !kinds.ContainsAll(n.kinds) {
			return false
		}
		for _, child := range n.children {
			if !child.Evaluate(kinds) {
				return false
			}
		}
		return true

	case OpOr:
		if kinds.ContainsAny(n.kinds) {
			return true
		}
		for _, child := range n.children {
			if child.Evaluate(kinds) {
				return true
			}
		}
		return false

	case OpNot:
		for _, child := range n.children {
			if child.Evaluate(kinds) {
				return false
			}
		}
		return kinds.ContainsNone(n.kinds)
	}
	return false
}

func (q *Query) And(items ...any) QueryNode {
	return q.node(OpAnd, items)
}

func (q *Query) Or(items ...any) QueryNode {
	return q.node(OpOr, items)
}

func (q *Query) Not(items ...any) QueryNode {
	return q.node(OpNot, items)
}

func (q *Query) node(op QueryOperation, items []any) QueryNode {
	ids, children := processItems(items)
	n := newCompositeNode(op, ids, children)
	q.root = n
	return n
}

// processItems splits node arguments into kinds and nested nodes. Anything
// else is ignored.
func processItems(items []any) ([]CompID, []QueryNode) {
	var ids []CompID
	var children []QueryNode
	for _, item := range items {
		switch v := item.(type) {
		case CompID:
			ids = append(ids, v)
		case []CompID:
			ids = append(ids, v...)
		case interface{ kindID() CompID }:
			ids = append(ids, v.kindID())
		case QueryNode:
			children = append(children, v)
		}
	}
	return ids, children
}

func (k Kind[T]) kindID() CompID {
	return k.ID
}

// Evaluate reports whether a component set satisfies the query. An empty
// query matches nothing.
func (q *Query) Evaluate(kinds mask.Mask) bool {
	if q.root == nil {
		return false
	}
	return q.root.Evaluate(kinds)
}

// Matches reports whether the live entity e satisfies q.
func (s *Scene) Matches(e Entity, q *Query) bool {
	if !s.EntityExists(e) {
		return false
	}
	return q.Evaluate(s.internal[e-1].mask)
}

// Query yields the entities satisfying q in hierarchy order. The scene is
// locked while the loop runs.
func (s *Scene) Query(q *Query) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		s.Lock()
		defer s.unlockLogged()
		for _, e := range s.entities {
			if q.Evaluate(s.internal[e-1].mask) && !yield(e) {
				return
			}
		}
	}
}
