package ecs

import (
	"math"
	"reflect"
	"unsafe"

	"github.com/JoseLRM/OldSilverEngine/ecs/archive"
)

// Entity is a scene-local handle. Zero means "no entity". Handles are
// recycled after destruction; there is no generation counter.
type Entity uint32

const NoEntity Entity = 0

// CompID identifies a registered component kind. IDs are dense and start at 0.
type CompID uint32

const InvalidCompID CompID = math.MaxUint32

const (
	// PoolSize is the number of component instances held by one pool.
	PoolSize = 100
	// MaxComponentKinds bounds the registry; every entity carries a bitmask of its kinds.
	MaxComponentKinds = 64

	entityGrowStride = 100
)

// ComponentHeader reserves the owner tag every component must start with.
// Embed it as the first field of a component struct.
type ComponentHeader struct {
	owner Entity
}

func (h ComponentHeader) Owner() Entity {
	return h.owner
}

var (
	entityType = reflect.TypeFor[Entity]()
	headerType = reflect.TypeFor[ComponentHeader]()
)

// ComponentFunc runs on a single component slot.
type ComponentFunc func(c unsafe.Pointer)

// ComponentPairFunc transfers payload between two slots that are both tagged.
type ComponentPairFunc func(dst, src unsafe.Pointer)

type SerializeFunc func(c unsafe.Pointer, w *archive.Writer) error

// DeserializeFunc receives the kind version the archive was written with.
type DeserializeFunc func(c unsafe.Pointer, r *archive.Reader, version uint32) error

// ComponentDescriptor declares a component kind.
//
// Memory handed to the callbacks is raw. Callbacks must leave the first four
// bytes alone; the scene owns the owner tag and rewrites it after each call.
//
// When Type is nil the kind is untyped and its slots are Size bytes of plain
// data. When Type is set it must be a struct whose first field is a
// ComponentHeader or an Entity, and Size may be zero or must match it.
type ComponentDescriptor struct {
	Name    string
	Size    uint32
	Version uint32
	Type    reflect.Type

	Create      ComponentFunc
	Destroy     ComponentFunc
	Move        ComponentPairFunc
	Copy        ComponentPairFunc
	Serialize   SerializeFunc
	Deserialize DeserializeFunc
}

// KindHooks are the typed counterpart of the descriptor callbacks.
type KindHooks[T any] struct {
	Create      func(c *T)
	Destroy     func(c *T)
	Move        func(dst, src *T)
	Copy        func(dst, src *T)
	Serialize   func(c *T, w *archive.Writer) error
	Deserialize func(c *T, r *archive.Reader, version uint32) error
}

// Kind is a typed handle on a registered component kind.
type Kind[T any] struct {
	ID CompID
}

// SceneHooks are invoked by a scene at its boundaries.
type SceneHooks struct {
	// Initialize populates a scene. r is nil for a fresh scene, otherwise it
	// is positioned right after the core scene data.
	Initialize func(s *Scene, r *archive.Reader) error
	// Serialize appends scene specific data after the core scene data.
	Serialize func(s *Scene, w *archive.Writer) error
	// Close runs before the scene releases its components and entities.
	Close func(s *Scene)
}

type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	GetItem32(uint32) *T
	Register(string, T) (int, error)
	Len() int
}

type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

// Iterator is a position inside the pools of one component kind.
type Iterator struct {
	scene *Scene
	id    CompID
	pool  int
	off   uintptr
}

// Cursor walks every live component of one kind and keeps the scene locked
// while it does.
type Cursor struct {
	scene *Scene
	id    CompID

	it, end Iterator

	started bool
	locked  bool
	err     error
}

// Transform reads and writes the spatial state of one entity.
type Transform struct {
	scene  *Scene
	entity Entity
}

// PoolStats describes one pool of a component allocator.
type PoolStats struct {
	UsedBytes     uintptr
	CapacityBytes uintptr
	FreeCount     int
	Live          int
}

func ownerOf(c unsafe.Pointer) Entity {
	return *(*Entity)(c)
}

func setOwner(c unsafe.Pointer, e Entity) {
	*(*Entity)(c) = e
}
