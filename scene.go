package ecs

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/JoseLRM/OldSilverEngine/ecs/archive"
)

// Default scene properties, used when no option overrides them.
var (
	DefaultGravity     = mgl32.Vec3{0, -9.8, 0}
	DefaultAirFriction = float32(0.1)
)

// Scene owns a set of entities and the component memory attached to them.
// A scene is not safe for concurrent use.
type Scene struct {
	name     string
	registry *Registry
	logger   zerolog.Logger
	hooks    SceneHooks

	mainCamera  Entity
	gravity     mgl32.Vec3
	airFriction float32

	entities   []Entity // depth-first pre-order of the forest
	internal   []entityInternal
	transforms []entityTransform
	flags      []entityFlags
	freeList   []Entity

	allocators []allocator

	lockDepth int
	opQueue   opQueue
	closed    bool
}

type SceneOption func(*Scene)

func WithLogger(logger zerolog.Logger) SceneOption {
	return func(s *Scene) { s.logger = logger }
}

func WithHooks(hooks SceneHooks) SceneOption {
	return func(s *Scene) { s.hooks = hooks }
}

func WithGravity(g mgl32.Vec3) SceneOption {
	return func(s *Scene) { s.gravity = g }
}

func WithAirFriction(f float32) SceneOption {
	return func(s *Scene) { s.airFriction = f }
}

// NewScene creates an empty scene over registry, or DefaultRegistry when it
// is nil. The registry is sealed: kinds cannot be added from now on.
func NewScene(name string, registry *Registry, opts ...SceneOption) *Scene {
	if registry == nil {
		registry = DefaultRegistry
	}
	s := &Scene{
		name:        name,
		registry:    registry,
		logger:      Config.logger,
		gravity:     DefaultGravity,
		airFriction: DefaultAirFriction,
		opQueue:     newOpQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !registry.Sealed() {
		registry.Seal()
		LogRegistry(&s.logger, registry, zerolog.DebugLevel)
	}
	s.allocators = make([]allocator, registry.ComponentRegisterCount())
	for i := range s.allocators {
		s.allocators[i] = newAllocator(registry.record(CompID(i)))
	}
	s.logger.Debug().Str("scene", name).Msg("scene created")
	return s
}

func (s *Scene) Name() string {
	return s.name
}

func (s *Scene) Registry() *Registry {
	return s.registry
}

// InjectLogger replaces the scene logger.
func (s *Scene) InjectLogger(logger zerolog.Logger) {
	s.logger = logger
}

func (s *Scene) Logger() *zerolog.Logger {
	return &s.logger
}

func (s *Scene) MainCamera() Entity {
	return s.mainCamera
}

// SetMainCamera selects the camera entity. NoEntity clears it.
func (s *Scene) SetMainCamera(e Entity) error {
	if e != NoEntity && !s.EntityExists(e) {
		return DeadEntityError{Entity: e}
	}
	s.mainCamera = e
	return nil
}

func (s *Scene) Gravity() mgl32.Vec3 {
	return s.gravity
}

func (s *Scene) SetGravity(g mgl32.Vec3) {
	s.gravity = g
}

func (s *Scene) AirFriction() float32 {
	return s.airFriction
}

func (s *Scene) SetAirFriction(f float32) {
	s.airFriction = f
}

// Lock defers structural changes. Locks nest; the matching final Unlock
// applies the queued operations.
func (s *Scene) Lock() {
	s.lockDepth++
}

func (s *Scene) Unlock() error {
	if s.lockDepth == 0 {
		return nil
	}
	s.lockDepth--
	if s.lockDepth > 0 {
		return nil
	}
	return s.processOperationQueue()
}

func (s *Scene) Locked() bool {
	return s.lockDepth > 0
}

// Close runs the Close hook, destroys every component in reverse
// registration order and frees all entities. Closing twice is a no-op.
func (s *Scene) Close() {
	if s.closed {
		return
	}
	if s.hooks.Close != nil {
		s.hooks.Close(s)
	}
	s.release()
	s.closed = true
	s.logger.Debug().Str("scene", s.name).Msg("scene closed")
}

func (s *Scene) release() {
	for i := len(s.allocators) - 1; i >= 0; i-- {
		s.allocators[i].destroyAll()
	}
	s.entities = nil
	s.internal = nil
	s.transforms = nil
	s.flags = nil
	s.freeList = nil
	s.mainCamera = NoEntity
	s.lockDepth = 0
	s.opQueue.reset()
}

// initialize hands a freshly built or freshly loaded scene to the host.
func (s *Scene) initialize(r *archive.Reader) error {
	if s.hooks.Initialize == nil {
		return nil
	}
	return s.hooks.Initialize(s, r)
}
