package ecs

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"

	"github.com/JoseLRM/OldSilverEngine/ecs/archive"
)

const (
	// SceneVersion is the format version written by this build.
	SceneVersion uint32 = 1
	// MinSceneVersion is the oldest format version still readable.
	MinSceneVersion uint32 = 1

	// manifestReversed selects reverse registration order for the manifest
	// and the component sections.
	manifestReversed = true

	// entityRecordMinSize is the encoded size of an entity record with an
	// empty name.
	entityRecordMinSize = 4 + 8 + 4 + 8 + 12 + 16 + 12 + 4 + 4

	maxEntityData = 1 << 20
)

type sceneHeader struct {
	version     uint32
	mainCamera  Entity
	gravity     mgl32.Vec3
	airFriction float32
}

type manifestEntry struct {
	name    string
	size    uint32
	version uint32
}

type entityRecord struct {
	index       uint32
	name        string
	childCount  uint32
	handleIndex uint64
	position    mgl32.Vec3
	rotation    mgl32.Vec4
	scale       mgl32.Vec3
	system      uint32
	user        uint32
}

// manifestOrder lists the registered kinds in file order.
func (s *Scene) manifestOrder() []CompID {
	ids := make([]CompID, len(s.allocators))
	for i := range ids {
		if manifestReversed {
			ids[i] = CompID(len(ids) - 1 - i)
		} else {
			ids[i] = CompID(i)
		}
	}
	return ids
}

// Serialize writes the scene to w, then runs the Serialize hook so the host
// can append its own trailer.
func (s *Scene) Serialize(w *archive.Writer) error {
	w.WriteU32(SceneVersion)
	w.WriteU32(uint32(s.mainCamera))
	w.WriteVec3(s.gravity)
	w.WriteF32(s.airFriction)

	order := s.manifestOrder()
	w.WriteU32(uint32(len(order)))
	for _, id := range order {
		rec := s.allocators[id].rec
		w.WriteString(rec.name)
		w.WriteU32(rec.size)
		w.WriteU32(rec.version)
	}

	w.WriteU32(uint32(len(s.entities)))
	w.WriteU32(uint32(len(s.internal)))
	for _, e := range s.entities {
		in, t, f := &s.internal[e-1], &s.transforms[e-1], &s.flags[e-1]
		w.WriteU32(uint32(e - 1))
		w.WriteString(in.name)
		w.WriteU32(uint32(in.childCount))
		w.WriteU64(uint64(in.handleIndex))
		w.WriteVec3(t.position)
		w.WriteVec4(mgl32.Vec4{t.rotation.V[0], t.rotation.V[1], t.rotation.V[2], t.rotation.W})
		w.WriteVec3(t.scale)
		w.WriteU32(f.system)
		w.WriteU32(f.user)
	}

	for _, id := range order {
		a := &s.allocators[id]
		w.WriteU32(uint32(a.count()))
		for it := s.Begin(id); it.Valid(); it.Next() {
			owner, c := it.Get()
			w.WriteU32(uint32(owner))
			if err := a.rec.write(c, w); err != nil {
				return fmt.Errorf("serialize %s of entity %d: %w", a.rec.name, owner, err)
			}
		}
	}

	if s.hooks.Serialize != nil {
		if err := s.hooks.Serialize(s, w); err != nil {
			return fmt.Errorf("scene %s serialize hook: %w", s.name, err)
		}
	}
	return nil
}

// Deserialize replaces the scene content with what r holds and then runs the
// Initialize hook with r positioned after the core data. Header, manifest and
// entity records are validated before anything is touched; a failure past
// that point leaves the scene partially populated and it should be discarded.
func (s *Scene) Deserialize(r *archive.Reader) error {
	if s.Locked() {
		return LockedSceneError{}
	}
	header, err := readHeader(r)
	if err != nil {
		return err
	}
	manifest, err := readManifest(r)
	if err != nil {
		return err
	}
	kinds := make([]*allocator, len(manifest))
	for i, m := range manifest {
		id, ok := s.registry.LookupComponent(m.name)
		if !ok {
			return eris.Wrapf(ErrInvalidFormat, "component %q is not registered", m.name)
		}
		a := &s.allocators[id]
		if a.rec.size != m.size {
			return eris.Wrapf(ErrInvalidFormat, "component %q has size %d, registered size is %d", m.name, m.size, a.rec.size)
		}
		kinds[i] = a
	}
	records, dataCount, err := readEntityRecords(r)
	if err != nil {
		return err
	}

	for i := range s.allocators {
		s.allocators[i].reset()
	}
	s.loadEntities(records, dataCount)
	err = walkPreorder(s.childCounts(), func(pos, parentPos, _ int) {
		if parentPos >= 0 {
			s.internal[s.entities[pos]-1].parent = s.entities[parentPos]
		}
	})
	if err != nil {
		return err
	}

	s.mainCamera = header.mainCamera
	if !s.EntityExists(s.mainCamera) {
		s.mainCamera = NoEntity
	}
	s.gravity = header.gravity
	s.airFriction = header.airFriction

	for i, a := range kinds {
		if err := s.readComponents(r, a, manifest[i].version); err != nil {
			return err
		}
	}
	if err := r.Err(); err != nil {
		return eris.Wrapf(ErrInvalidFormat, "truncated scene: %v", err)
	}
	return s.initialize(r)
}

func (s *Scene) loadEntities(records []entityRecord, dataCount int) {
	s.internal = make([]entityInternal, dataCount)
	s.transforms = make([]entityTransform, dataCount)
	s.flags = make([]entityFlags, dataCount)
	s.entities = make([]Entity, len(records))
	s.freeList = s.freeList[:0]
	for i := range s.internal {
		s.internal[i].handleIndex = freedHandle
	}

	for _, rec := range records {
		e := Entity(rec.index + 1)
		s.internal[e-1] = entityInternal{
			name:        rec.name,
			childCount:  int(rec.childCount),
			handleIndex: int(rec.handleIndex),
		}
		s.transforms[e-1] = entityTransform{
			position: rec.position,
			rotation: mgl32.Quat{W: rec.rotation[3], V: rec.rotation.Vec3()},
			scale:    rec.scale,
			world:    mgl32.Ident4(),
			dirty:    true,
		}
		s.flags[e-1] = entityFlags{system: rec.system, user: rec.user}
		s.entities[rec.handleIndex] = e
	}
	for h := dataCount; h >= 1; h-- {
		if s.internal[h-1].handleIndex == freedHandle {
			s.freeList = append(s.freeList, Entity(h))
		}
	}
}

func (s *Scene) childCounts() []int {
	counts := make([]int, len(s.entities))
	for i, e := range s.entities {
		counts[i] = s.internal[e-1].childCount
	}
	return counts
}

func (s *Scene) readComponents(r *archive.Reader, a *allocator, version uint32) error {
	count := r.ReadU32()
	if err := r.Err(); err != nil {
		return eris.Wrapf(ErrInvalidFormat, "truncated %s section: %v", a.rec.name, err)
	}
	if int(count) > len(s.entities) {
		return eris.Wrapf(ErrInvalidFormat, "%d %s components for %d entities", count, a.rec.name, len(s.entities))
	}
	for range count {
		owner := Entity(r.ReadU32())
		if err := r.Err(); err != nil {
			return eris.Wrapf(ErrInvalidFormat, "truncated %s section: %v", a.rec.name, err)
		}
		if !s.EntityExists(owner) {
			return eris.Wrapf(ErrInvalidFormat, "%s component owned by missing entity %d", a.rec.name, owner)
		}
		if s.internal[owner-1].find(a.rec.id) >= 0 {
			return eris.Wrapf(ErrInvalidFormat, "entity %d holds two %s components", owner, a.rec.name)
		}
		c := s.attach(owner, a)
		if err := a.rec.read(c, r, version); err != nil {
			if r.Err() != nil {
				return eris.Wrapf(ErrInvalidFormat, "truncated %s of entity %d: %v", a.rec.name, owner, r.Err())
			}
			return fmt.Errorf("deserialize %s of entity %d: %w", a.rec.name, owner, err)
		}
	}
	return nil
}

func readHeader(r *archive.Reader) (sceneHeader, error) {
	h := sceneHeader{
		version:     r.ReadU32(),
		mainCamera:  Entity(r.ReadU32()),
		gravity:     r.ReadVec3(),
		airFriction: r.ReadF32(),
	}
	if err := r.Err(); err != nil {
		return h, eris.Wrapf(ErrInvalidFormat, "scene header: %v", err)
	}
	if h.version < MinSceneVersion || h.version > SceneVersion {
		return h, eris.Wrapf(ErrUnsupportedVersion, "scene version %d, supported %d to %d", h.version, MinSceneVersion, SceneVersion)
	}
	return h, nil
}

func readManifest(r *archive.Reader) ([]manifestEntry, error) {
	n := r.ReadU32()
	if err := r.Err(); err != nil {
		return nil, eris.Wrapf(ErrInvalidFormat, "registry manifest: %v", err)
	}
	if n > MaxComponentKinds {
		return nil, eris.Wrapf(ErrInvalidFormat, "registry manifest lists %d kinds", n)
	}
	manifest := make([]manifestEntry, 0, n)
	seen := make(map[string]struct{}, n)
	for range n {
		m := manifestEntry{name: r.ReadString(), size: r.ReadU32(), version: r.ReadU32()}
		if err := r.Err(); err != nil {
			return nil, eris.Wrapf(ErrInvalidFormat, "registry manifest: %v", err)
		}
		if _, dup := seen[m.name]; dup {
			return nil, eris.Wrapf(ErrInvalidFormat, "registry manifest lists %q twice", m.name)
		}
		seen[m.name] = struct{}{}
		manifest = append(manifest, m)
	}
	return manifest, nil
}

// readEntityRecords reads and validates the entity block: every record has a
// distinct slot below the data count and a distinct position in the list.
func readEntityRecords(r *archive.Reader) ([]entityRecord, int, error) {
	count, dataCount := r.ReadU32(), r.ReadU32()
	if err := r.Err(); err != nil {
		return nil, 0, eris.Wrapf(ErrInvalidFormat, "entity block: %v", err)
	}
	if dataCount < count || dataCount > maxEntityData {
		return nil, 0, eris.Wrapf(ErrInvalidFormat, "%d live entities in %d slots", count, dataCount)
	}
	if uint64(count)*entityRecordMinSize > uint64(r.Remaining()) {
		return nil, 0, eris.Wrapf(ErrInvalidFormat, "%d entity records do not fit in %d bytes", count, r.Remaining())
	}

	records := make([]entityRecord, count)
	slots := make([]bool, dataCount)
	positions := make([]bool, count)
	for i := range records {
		rec := entityRecord{
			index:       r.ReadU32(),
			name:        r.ReadString(),
			childCount:  r.ReadU32(),
			handleIndex: r.ReadU64(),
			position:    r.ReadVec3(),
			rotation:    r.ReadVec4(),
			scale:       r.ReadVec3(),
			system:      r.ReadU32(),
			user:        r.ReadU32(),
		}
		if err := r.Err(); err != nil {
			return nil, 0, eris.Wrapf(ErrInvalidFormat, "entity record %d: %v", i, err)
		}
		if rec.index >= dataCount || slots[rec.index] {
			return nil, 0, eris.Wrapf(ErrInvalidFormat, "entity record %d: bad slot %d", i, rec.index)
		}
		if rec.handleIndex >= uint64(count) || positions[rec.handleIndex] {
			return nil, 0, eris.Wrapf(ErrInvalidFormat, "entity record %d: bad list position %d", i, rec.handleIndex)
		}
		slots[rec.index] = true
		positions[rec.handleIndex] = true
		records[i] = rec
	}
	return records, int(dataCount), nil
}

// walkPreorder rebuilds the forest encoded by the child counts of a
// depth-first list, calling visit with each position, its parent position
// (-1 at the top level) and its depth.
func walkPreorder(childCounts []int, visit func(pos, parentPos, depth int)) error {
	var walk func(begin, end, parentPos, depth int) error
	walk = func(begin, end, parentPos, depth int) error {
		for pos := begin; pos < end; {
			n := childCounts[pos]
			if n < 0 || pos+n >= end {
				return eris.Wrapf(ErrInvalidFormat, "entity at %d claims %d descendants past its parent's block", pos, n)
			}
			visit(pos, parentPos, depth)
			if err := walk(pos+1, pos+1+n, pos, depth+1); err != nil {
				return err
			}
			pos += n + 1
		}
		return nil
	}
	return walk(0, len(childCounts), -1, 0)
}

// Save serializes the scene into the file at path.
func (s *Scene) Save(path string) error {
	w := archive.NewWriter()
	if err := s.Serialize(w); err != nil {
		return err
	}
	if err := w.Save(path); err != nil {
		return eris.Wrapf(ErrUnknown, "save scene %s: %v", s.name, err)
	}
	s.logger.Debug().Str("scene", s.name).Str("path", path).Int("bytes", w.Len()).Msg("scene saved")
	return nil
}

// LoadScene builds a scene from the file at path. The scene is named after
// the file. A missing file is ErrNotFound, other I/O failures ErrUnknown.
func LoadScene(path string, registry *Registry, opts ...SceneOption) (*Scene, error) {
	r, err := archive.Open(path)
	switch {
	case errors.Is(err, archive.ErrNoFile):
		return nil, eris.Wrapf(ErrNotFound, "scene file %s is missing", path)
	case err != nil:
		return nil, eris.Wrapf(ErrUnknown, "load scene: %v", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s := NewScene(name, registry, opts...)
	if err := s.Deserialize(r); err != nil {
		s.release()
		return nil, err
	}
	s.logger.Debug().Str("scene", name).Str("path", path).Int("entities", s.EntityCount()).Msg("scene loaded")
	return s, nil
}
