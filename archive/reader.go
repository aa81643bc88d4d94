package archive

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

var (
	// ErrShortRead is recorded when a read runs past the end of the data.
	ErrShortRead = eris.New("archive: unexpected end of data")
	ErrNoFile    = eris.New("archive: file does not exist")
)

// Reader decodes what a Writer produced. The first failure is sticky: every
// later read returns the zero value and Err reports the original cause.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Open reads the whole file at path into a Reader.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrNoFile, "open %s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "archive: open %s", path)
	}
	return NewReader(data), nil
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) Offset() int {
	return r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = eris.Wrapf(ErrShortRead, "need %d bytes at offset %d, have %d", n, r.off, r.Remaining())
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) ReadU8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadBool() bool {
	return r.ReadU8() != 0
}

func (r *Reader) ReadU32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadI32() int32 {
	return int32(r.ReadU32())
}

func (r *Reader) ReadU64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) ReadF32() float32 {
	return math.Float32frombits(r.ReadU32())
}

func (r *Reader) ReadF64() float64 {
	return math.Float64frombits(r.ReadU64())
}

func (r *Reader) ReadVec2() mgl32.Vec2 {
	return mgl32.Vec2{r.ReadF32(), r.ReadF32()}
}

func (r *Reader) ReadVec3() mgl32.Vec3 {
	return mgl32.Vec3{r.ReadF32(), r.ReadF32(), r.ReadF32()}
}

func (r *Reader) ReadVec4() mgl32.Vec4 {
	return mgl32.Vec4{r.ReadF32(), r.ReadF32(), r.ReadF32(), r.ReadF32()}
}

func (r *Reader) ReadString() string {
	return string(r.ReadBytes())
}

// ReadBytes reads a u64 length prefix and returns a copy of that many bytes.
func (r *Reader) ReadBytes() []byte {
	n := r.ReadU64()
	if r.err != nil {
		return nil
	}
	if n > uint64(r.Remaining()) {
		r.err = eris.Wrapf(ErrShortRead, "length prefix %d exceeds %d remaining bytes", n, r.Remaining())
		r.off = len(r.data)
		return nil
	}
	b := r.take(int(n))
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// ReadRaw reads exactly n bytes with no length prefix.
func (r *Reader) ReadRaw(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
