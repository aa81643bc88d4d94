package ecs

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// gimbalEpsilon is the cos(pitch) under which roll and yaw are no longer
// separable and roll is pinned to zero.
const gimbalEpsilon = 1e-5

// Transform returns the transform accessor of e. Accessors of dead entities
// read as identity and ignore writes.
func (s *Scene) Transform(e Entity) Transform {
	return Transform{scene: s, entity: e}
}

func (t Transform) Entity() Entity {
	return t.entity
}

func (t Transform) Valid() bool {
	return t.scene != nil && t.scene.EntityExists(t.entity)
}

func (t Transform) data() *entityTransform {
	if !t.Valid() {
		return nil
	}
	return &t.scene.transforms[t.entity-1]
}

func (t Transform) LocalPosition() mgl32.Vec3 {
	if d := t.data(); d != nil {
		return d.position
	}
	return mgl32.Vec3{}
}

func (t Transform) LocalRotation() mgl32.Quat {
	if d := t.data(); d != nil {
		return d.rotation
	}
	return mgl32.QuatIdent()
}

func (t Transform) LocalScale() mgl32.Vec3 {
	if d := t.data(); d != nil {
		return d.scale
	}
	return mgl32.Vec3{1, 1, 1}
}

// LocalEuler returns the local rotation as XYZ euler angles in [0, 2π).
func (t Transform) LocalEuler() mgl32.Vec3 {
	return matrixEuler(t.LocalRotation().Mat4())
}

func (t Transform) LocalMatrix() mgl32.Mat4 {
	if d := t.data(); d != nil {
		return d.local()
	}
	return mgl32.Ident4()
}

func (t Transform) SetPosition(p mgl32.Vec3) {
	if d := t.data(); d != nil {
		t.scene.notify(t.entity)
		d.position = p
	}
}

// Translate offsets the local position by delta.
func (t Transform) Translate(delta mgl32.Vec3) {
	if d := t.data(); d != nil {
		t.scene.notify(t.entity)
		d.position = d.position.Add(delta)
	}
}

func (t Transform) SetRotation(q mgl32.Quat) {
	if d := t.data(); d != nil {
		t.scene.notify(t.entity)
		d.rotation = q.Normalize()
	}
}

// SetEulerRotation sets the local rotation from XYZ euler angles in radians.
func (t Transform) SetEulerRotation(r mgl32.Vec3) {
	t.SetRotation(eulerQuat(r))
}

func (t Transform) SetScale(s mgl32.Vec3) {
	if d := t.data(); d != nil {
		t.scene.notify(t.entity)
		d.scale = s
	}
}

// SetMatrix decomposes m into the local position, rotation and scale.
func (t Transform) SetMatrix(m mgl32.Mat4) {
	d := t.data()
	if d == nil {
		return
	}
	t.scene.notify(t.entity)
	d.position = m.Col(3).Vec3()
	d.scale = basisScale(m)
	d.rotation = mgl32.Mat4ToQuat(basisRotation(m, d.scale)).Normalize()
}

// Dirty reports whether the cached world matrix is stale.
func (t Transform) Dirty() bool {
	if d := t.data(); d != nil {
		return d.dirty
	}
	return false
}

func (t Transform) WorldMatrix() mgl32.Mat4 {
	if !t.Valid() {
		return mgl32.Ident4()
	}
	return t.scene.worldMatrix(t.entity)
}

func (t Transform) WorldPosition() mgl32.Vec3 {
	return t.WorldMatrix().Col(3).Vec3()
}

func (t Transform) WorldScale() mgl32.Vec3 {
	return basisScale(t.WorldMatrix())
}

func (t Transform) WorldRotation() mgl32.Quat {
	m := t.WorldMatrix()
	return mgl32.Mat4ToQuat(basisRotation(m, basisScale(m))).Normalize()
}

// WorldEuler returns the world rotation as XYZ euler angles in [0, 2π).
func (t Transform) WorldEuler() mgl32.Vec3 {
	m := t.WorldMatrix()
	return matrixEuler(basisRotation(m, basisScale(m)))
}

func (d *entityTransform) local() mgl32.Mat4 {
	return mgl32.Translate3D(d.position[0], d.position[1], d.position[2]).
		Mul4(d.rotation.Mat4()).
		Mul4(mgl32.Scale3D(d.scale[0], d.scale[1], d.scale[2]))
}

// worldMatrix recomposes e's world matrix when it is dirty, walking up the
// ancestors that are dirty as well.
func (s *Scene) worldMatrix(e Entity) mgl32.Mat4 {
	d := &s.transforms[e-1]
	if !d.dirty {
		return d.world
	}
	m := d.local()
	if parent := s.internal[e-1].parent; parent != NoEntity {
		m = s.worldMatrix(parent).Mul4(m)
	}
	d.world = m
	d.dirty = false
	return m
}

// notify marks e and its subtree dirty. A dirty entity always has a dirty
// subtree, so an already dirty e needs nothing.
func (s *Scene) notify(e Entity) {
	if s.transforms[e-1].dirty {
		return
	}
	s.markDirty(e)
}

func (s *Scene) markDirty(e Entity) {
	in := &s.internal[e-1]
	for _, d := range s.entities[in.handleIndex : in.handleIndex+1+in.childCount] {
		s.transforms[d-1].dirty = true
	}
}

func eulerQuat(r mgl32.Vec3) mgl32.Quat {
	sx, cx := math.Sincos(float64(r[0]) / 2)
	sy, cy := math.Sincos(float64(r[1]) / 2)
	sz, cz := math.Sincos(float64(r[2]) / 2)
	return mgl32.Quat{
		W: float32(cx*cy*cz + sx*sy*sz),
		V: mgl32.Vec3{
			float32(sx*cy*cz - cx*sy*sz),
			float32(cx*sy*cz + sx*cy*sz),
			float32(cx*cy*sz - sx*sy*cz),
		},
	}
}

func basisScale(m mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
}

// basisRotation strips translation and scale from m.
func basisRotation(m mgl32.Mat4, scale mgl32.Vec3) mgl32.Mat4 {
	r := mgl32.Ident4()
	for i := 0; i < 3; i++ {
		col := m.Col(i).Vec3()
		if scale[i] != 0 {
			col = col.Mul(1 / scale[i])
		}
		r.SetCol(i, col.Vec4(0))
	}
	return r
}

// matrixEuler decomposes a pure rotation matrix R = Rz·Ry·Rx.
func matrixEuler(r mgl32.Mat4) mgl32.Vec3 {
	at := func(row, col int) float64 { return float64(r.At(row, col)) }

	cp := math.Hypot(at(2, 1), at(2, 2))
	pitch := math.Atan2(-at(2, 0), cp)
	var roll, yaw float64
	if cp > gimbalEpsilon {
		roll = math.Atan2(at(2, 1), at(2, 2))
		yaw = math.Atan2(at(1, 0), at(0, 0))
	} else {
		yaw = math.Atan2(-at(0, 1), at(1, 1))
	}
	return mgl32.Vec3{wrapAngle(roll), wrapAngle(pitch), wrapAngle(yaw)}
}

func wrapAngle(a float64) float32 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	// Values just below 2π round up to it in float32
	if f := float32(a); f < 2*math.Pi {
		return f
	}
	return 0
}
