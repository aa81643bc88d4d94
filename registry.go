package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"

	"github.com/JoseLRM/OldSilverEngine/ecs/archive"
)

// componentRecord is the registry entry of one kind.
type componentRecord struct {
	id      CompID
	name    string
	size    uint32 // declared size
	version uint32
	typ     reflect.Type
	stride  uintptr // typ.Size(), may exceed size by alignment padding

	create      ComponentFunc
	destroy     ComponentFunc
	move        ComponentPairFunc
	copy        ComponentPairFunc
	serialize   SerializeFunc
	deserialize DeserializeFunc
}

// Registry is the table of declared component kinds. It is filled during
// startup; the first scene built on it seals it and it is read-only from then
// on, so scenes can share it without locking.
type Registry struct {
	kinds  *SimpleCache[*componentRecord]
	sealed bool
}

// DefaultRegistry is the process-wide registry used by the package-level
// functions and by scenes created without an explicit registry.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{kinds: newSimpleCache[*componentRecord](MaxComponentKinds)}
}

// Seal ends the registration phase.
func (r *Registry) Seal() {
	r.sealed = true
}

func (r *Registry) Sealed() bool {
	return r.sealed
}

// RegisterComponent declares a kind and returns its CompID, or InvalidCompID
// with an ErrInvalidUsage error when the name is taken, the size is below four
// bytes, the type layout is wrong or the registry is sealed.
func (r *Registry) RegisterComponent(desc ComponentDescriptor) (CompID, error) {
	if r.sealed {
		return InvalidCompID, eris.Wrapf(ErrInvalidUsage, "registry is sealed, cannot register %q", desc.Name)
	}
	if desc.Name == "" {
		return InvalidCompID, eris.Wrap(ErrInvalidUsage, "component name is empty")
	}
	if _, exists := r.kinds.GetIndex(desc.Name); exists {
		return InvalidCompID, eris.Wrapf(ErrInvalidUsage, "component %q is already registered", desc.Name)
	}

	typ, err := componentLayout(desc)
	if err != nil {
		return InvalidCompID, err
	}
	size := desc.Size
	if size == 0 {
		size = uint32(typ.Size())
	}

	rec := &componentRecord{
		id:          CompID(r.kinds.Len()),
		name:        desc.Name,
		size:        size,
		version:     desc.Version,
		typ:         typ,
		stride:      typ.Size(),
		create:      desc.Create,
		destroy:     desc.Destroy,
		move:        desc.Move,
		copy:        desc.Copy,
		serialize:   desc.Serialize,
		deserialize: desc.Deserialize,
	}
	if _, err := r.kinds.Register(desc.Name, rec); err != nil {
		return InvalidCompID, eris.Wrapf(ErrInvalidUsage, "register %q: %v", desc.Name, err)
	}
	return rec.id, nil
}

func componentLayout(desc ComponentDescriptor) (reflect.Type, error) {
	if desc.Type == nil {
		if desc.Size < 4 {
			return nil, eris.Wrapf(ErrInvalidUsage, "component %q size %d is below 4 bytes", desc.Name, desc.Size)
		}
		fields := []reflect.StructField{{Name: "Owner", Type: entityType}}
		if desc.Size > 4 {
			fields = append(fields, reflect.StructField{
				Name: "Payload",
				Type: reflect.ArrayOf(int(desc.Size-4), reflect.TypeFor[byte]()),
			})
		}
		return reflect.StructOf(fields), nil
	}

	typ := desc.Type
	if typ.Kind() != reflect.Struct || typ.NumField() == 0 {
		return nil, eris.Wrapf(ErrInvalidUsage, "component %q type %v must be a non-empty struct", desc.Name, typ)
	}
	first := typ.Field(0)
	if first.Type != headerType && first.Type != entityType {
		return nil, eris.Wrapf(ErrInvalidUsage, "component %q type %v must start with a ComponentHeader", desc.Name, typ)
	}
	if desc.Size != 0 && uintptr(desc.Size) != typ.Size() {
		return nil, eris.Wrapf(ErrInvalidUsage, "component %q size %d does not match type size %d", desc.Name, desc.Size, typ.Size())
	}
	return typ, nil
}

func (r *Registry) record(id CompID) *componentRecord {
	if int64(id) >= int64(r.kinds.Len()) {
		return nil
	}
	return *r.kinds.GetItem32(uint32(id))
}

func (r *Registry) ComponentExists(id CompID) bool {
	return r.record(id) != nil
}

func (r *Registry) ComponentRegisterCount() int {
	return r.kinds.Len()
}

func (r *Registry) ComponentSize(id CompID) uint32 {
	if rec := r.record(id); rec != nil {
		return rec.size
	}
	return 0
}

func (r *Registry) ComponentName(id CompID) string {
	if rec := r.record(id); rec != nil {
		return rec.name
	}
	return ""
}

func (r *Registry) ComponentVersion(id CompID) uint32 {
	if rec := r.record(id); rec != nil {
		return rec.version
	}
	return 0
}

// ComponentID resolves a name case-sensitively, returning InvalidCompID when
// nothing is registered under it.
func (r *Registry) ComponentID(name string) CompID {
	id, _ := r.LookupComponent(name)
	return id
}

func (r *Registry) LookupComponent(name string) (CompID, bool) {
	idx, ok := r.kinds.GetIndex(name)
	if !ok {
		return InvalidCompID, false
	}
	return CompID(idx), true
}

// RegisterComponent declares a kind on DefaultRegistry.
func RegisterComponent(desc ComponentDescriptor) (CompID, error) {
	return DefaultRegistry.RegisterComponent(desc)
}

func ComponentExists(id CompID) bool { return DefaultRegistry.ComponentExists(id) }
func ComponentRegisterCount() int { return DefaultRegistry.ComponentRegisterCount() }
func ComponentSize(id CompID) uint32 { return DefaultRegistry.ComponentSize(id) }
func ComponentName(id CompID) string { return DefaultRegistry.ComponentName(id) }
func ComponentVersion(id CompID) uint32 { return DefaultRegistry.ComponentVersion(id) }
func ComponentID(name string) CompID { return DefaultRegistry.ComponentID(name) }

// Slot level operations. They all work on typed memory through reflect so the
// garbage collector observes writes into pointerful components.

func (rec *componentRecord) value(c unsafe.Pointer) reflect.Value {
	return reflect.NewAt(rec.typ, c).Elem()
}

func (rec *componentRecord) clear(c unsafe.Pointer) {
	rec.value(c).SetZero()
}

func (rec *componentRecord) construct(c unsafe.Pointer, owner Entity) {
	rec.clear(c)
	if rec.create != nil {
		rec.create(c)
	}
	setOwner(c, owner)
}

func (rec *componentRecord) teardown(c unsafe.Pointer) {
	if rec.destroy != nil {
		rec.destroy(c)
	}
	rec.clear(c)
}

func (rec *componentRecord) copyInto(dst, src unsafe.Pointer) {
	owner := ownerOf(dst)
	if rec.copy != nil {
		rec.copy(dst, src)
	} else {
		rec.value(dst).Set(rec.value(src))
	}
	setOwner(dst, owner)
}

// moveInto transfers src into dst; src keeps its tag and is left zeroed
// unless a Move callback says otherwise.
func (rec *componentRecord) moveInto(dst, src unsafe.Pointer) {
	dstOwner, srcOwner := ownerOf(dst), ownerOf(src)
	if rec.move != nil {
		rec.move(dst, src)
	} else {
		rec.value(dst).Set(rec.value(src))
		rec.clear(src)
	}
	setOwner(dst, dstOwner)
	setOwner(src, srcOwner)
}

func (rec *componentRecord) write(c unsafe.Pointer, w *archive.Writer) error {
	if rec.serialize == nil {
		return nil
	}
	return rec.serialize(c, w)
}

func (rec *componentRecord) read(c unsafe.Pointer, r *archive.Reader, version uint32) error {
	if rec.deserialize == nil {
		return nil
	}
	owner := ownerOf(c)
	err := rec.deserialize(c, r, version)
	setOwner(c, owner)
	return err
}
