package archive

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

// Writer appends little-endian primitives to an in-memory buffer.
// Nothing touches the filesystem until Save or WriteTo is called.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
		return
	}
	w.WriteU8(0)
}

func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

func (w *Writer) WriteVec2(v mgl32.Vec2) {
	w.WriteF32(v[0])
	w.WriteF32(v[1])
}

func (w *Writer) WriteVec3(v mgl32.Vec3) {
	w.WriteF32(v[0])
	w.WriteF32(v[1])
	w.WriteF32(v[2])
}

func (w *Writer) WriteVec4(v mgl32.Vec4) {
	for _, f := range v {
		w.WriteF32(f)
	}
}

// WriteString writes the byte length as a u64 followed by the raw UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	w.WriteU64(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes a u64 length prefix followed by b.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteU64(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteRaw appends b with no length prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the encoded content. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf)
	if err != nil {
		return int64(n), eris.Wrap(err, "archive: write")
	}
	return int64(n), nil
}

// Save flushes the buffer to path, replacing any existing file.
func (w *Writer) Save(path string) error {
	if err := os.WriteFile(path, w.buf, 0o644); err != nil {
		return eris.Wrapf(err, "archive: save %s", path)
	}
	return nil
}
