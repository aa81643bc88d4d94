package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/JoseLRM/OldSilverEngine/ecs/archive"
)

// RegisterKind declares T as a component kind on r. T must be a struct whose
// first field is a ComponentHeader.
func RegisterKind[T any](r *Registry, name string, version uint32, hooks KindHooks[T]) (Kind[T], error) {
	desc := ComponentDescriptor{
		Name:    name,
		Version: version,
		Type:    reflect.TypeFor[T](),
	}
	if hooks.Create != nil {
		desc.Create = func(c unsafe.Pointer) { hooks.Create((*T)(c)) }
	}
	if hooks.Destroy != nil {
		desc.Destroy = func(c unsafe.Pointer) { hooks.Destroy((*T)(c)) }
	}
	if hooks.Move != nil {
		desc.Move = func(dst, src unsafe.Pointer) { hooks.Move((*T)(dst), (*T)(src)) }
	}
	if hooks.Copy != nil {
		desc.Copy = func(dst, src unsafe.Pointer) { hooks.Copy((*T)(dst), (*T)(src)) }
	}
	if hooks.Serialize != nil {
		desc.Serialize = func(c unsafe.Pointer, w *archive.Writer) error {
			return hooks.Serialize((*T)(c), w)
		}
	}
	if hooks.Deserialize != nil {
		desc.Deserialize = func(c unsafe.Pointer, r *archive.Reader, version uint32) error {
			return hooks.Deserialize((*T)(c), r, version)
		}
	}
	id, err := r.RegisterComponent(desc)
	if err != nil {
		return Kind[T]{ID: InvalidCompID}, err
	}
	return Kind[T]{ID: id}, nil
}

// Of converts a raw component pointer of this kind.
func (k Kind[T]) Of(c unsafe.Pointer) *T {
	return (*T)(c)
}

// Add attaches a new, created component to e.
func (k Kind[T]) Add(s *Scene, e Entity) (*T, error) {
	c, err := s.AddComponent(e, k.ID)
	if err != nil {
		return nil, err
	}
	return (*T)(c), nil
}

// Get returns e's component or nil.
func (k Kind[T]) Get(s *Scene, e Entity) *T {
	return (*T)(s.GetComponent(e, k.ID))
}

func (k Kind[T]) Has(s *Scene, e Entity) bool {
	return s.HasComponent(e, k.ID)
}

func (k Kind[T]) Remove(s *Scene, e Entity) error {
	return s.RemoveComponent(e, k.ID)
}

// GetFromCursor retrieves the component at the cursor position.
func (k Kind[T]) GetFromCursor(c *Cursor) *T {
	return (*T)(c.Component())
}

// Each yields every live component of the kind with its owner.
func (k Kind[T]) Each(s *Scene) iter.Seq2[Entity, *T] {
	return func(yield func(Entity, *T) bool) {
		for e, c := range s.Components(k.ID) {
			if !yield(e, (*T)(c)) {
				return
			}
		}
	}
}
