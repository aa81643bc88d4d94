package archive

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLayout(t *testing.T) {
	w := NewWriter()
	w.WriteU32(7)
	w.WriteString("ab")
	w.WriteF32(1)

	want := []byte{
		7, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0, 'a', 'b',
		0x00, 0x00, 0x80, 0x3f,
	}
	assert.Equal(t, want, w.Bytes())
}

func TestReaderSequence(t *testing.T) {
	w := NewWriter()
	w.WriteU8(3)
	w.WriteBool(true)
	w.WriteI32(-5)
	w.WriteU64(1 << 40)
	w.WriteF64(2.5)
	w.WriteVec3(mgl32.Vec3{1, 2, 3})
	w.WriteVec4(mgl32.Vec4{4, 5, 6, 7})
	w.WriteString("")
	w.WriteString("héllo")
	w.WriteBytes([]byte{9, 8})
	w.WriteRaw([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	assert.Equal(t, uint8(3), r.ReadU8())
	assert.True(t, r.ReadBool())
	assert.Equal(t, int32(-5), r.ReadI32())
	assert.Equal(t, uint64(1<<40), r.ReadU64())
	assert.Equal(t, 2.5, r.ReadF64())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, r.ReadVec3())
	assert.Equal(t, mgl32.Vec4{4, 5, 6, 7}, r.ReadVec4())
	assert.Equal(t, "", r.ReadString())
	assert.Equal(t, "héllo", r.ReadString())
	assert.Equal(t, []byte{9, 8}, r.ReadBytes())
	assert.Equal(t, []byte{1, 2, 3}, r.ReadRaw(3))
	require.NoError(t, r.Err())
	assert.Equal(t, 0, r.Remaining())
}

func TestReaderShortReadIsSticky(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(r *Reader)
	}{
		{"u32 from two bytes", []byte{1, 2}, func(r *Reader) { r.ReadU32() }},
		{"string longer than data", []byte{50, 0, 0, 0, 0, 0, 0, 0, 'x'}, func(r *Reader) { r.ReadString() }},
		{"raw past end", []byte{1}, func(r *Reader) { r.ReadRaw(4) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			tt.read(r)
			require.ErrorIs(t, r.Err(), ErrShortRead)
			assert.Zero(t, r.ReadU32())
			require.ErrorIs(t, r.Err(), ErrShortRead)
		})
	}
}

func TestSaveAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	w := NewWriter()
	w.WriteString("scene")
	require.NoError(t, w.Save(path))

	r, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "scene", r.ReadString())

	_, err = Open(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
}
