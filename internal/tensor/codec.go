// Package tensor implements conversion between in-memory n-dimensional
// arrays and the wire TensorRecord (shape, dtype tag, raw little-endian
// bytes). The in-memory side is backed by Apache Arrow's tensor.Tensor so
// the framework reuses a real columnar-memory library instead of hand
// rolling a strided-buffer type.
package tensor

import (
	"fmt"
	"unsafe"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/arrow/tensor"

	"github.com/Ifihan/blazerpc/internal/types"
)

// Record is the wire form of a tensor value: shape, dtype tag, and raw
// little-endian bytes.
type Record struct {
	Shape []int64
	DType types.DType
	Data  []byte
}

// SerializationError is produced when the wire form is internally
// inconsistent: an unknown dtype tag, or a byte length that doesn't match
// product(shape) * sizeof(dtype).
type SerializationError struct {
	DType  types.DType
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("tensor serialization error (dtype=%s): %s", e.DType, e.Reason)
}

var arrowDTypes = map[types.DType]arrow.DataType{
	types.Float16: arrow.FixedWidthTypes.Float16,
	types.Float32: arrow.PrimitiveTypes.Float32,
	types.Float64: arrow.PrimitiveTypes.Float64,
	types.Int8:    arrow.PrimitiveTypes.Int8,
	types.Int16:   arrow.PrimitiveTypes.Int16,
	types.Int32:   arrow.PrimitiveTypes.Int32,
	types.Int64:   arrow.PrimitiveTypes.Int64,
	types.Uint8:   arrow.PrimitiveTypes.Uint8,
	types.Uint16:  arrow.PrimitiveTypes.Uint16,
	types.Uint32:  arrow.PrimitiveTypes.Uint32,
	types.Uint64:  arrow.PrimitiveTypes.Uint64,
	types.Bool:    arrow.FixedWidthTypes.Boolean,
}

// product returns the element count implied by shape, treating an empty
// shape as a single scalar element.
func product(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// rowMajorStrides computes C-contiguous (row-major) strides for shape,
// given the element byte width.
func rowMajorStrides(shape []int64, byteWidth int) []int64 {
	strides := make([]int64, len(shape))
	acc := int64(byteWidth)
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// NewTensor wraps raw little-endian, row-major bytes in an Arrow
// tensor.Tensor for the given shape and dtype. Zero-copy: the returned
// tensor aliases buf.
func NewTensor(dtype types.DType, shape []int64, buf []byte) (*tensor.Tensor, error) {
	dt, ok := arrowDTypes[dtype]
	if !ok {
		return nil, &SerializationError{DType: dtype, Reason: "unknown dtype tag"}
	}
	want := product(shape) * int64(dtype.ByteWidth())
	if int64(len(buf)) != want {
		return nil, &SerializationError{DType: dtype, Reason: fmt.Sprintf("data length %d does not match product(shape)*sizeof(dtype)=%d", len(buf), want)}
	}
	mbuf := memory.NewBufferBytes(buf)
	strides := rowMajorStrides(shape, dtype.ByteWidth())
	names := make([]string, len(shape))
	for i := range names {
		names[i] = fmt.Sprintf("dim%d", i)
	}
	return tensor.New(dt, mbuf, shape, strides, names), nil
}

// Encode converts an Arrow tensor into the wire Record. The codec performs
// no implicit dtype coercion; on a big-endian host the output bytes are
// still little-endian.
func Encode(t *tensor.Tensor, dtype types.DType) (Record, error) {
	if !t.IsContiguous() {
		return Record{}, &SerializationError{DType: dtype, Reason: "tensor is not contiguous row-major"}
	}
	out := append([]byte(nil), t.Data().Bytes()...)
	if hostIsBigEndian {
		swapElementsInPlace(out, dtype.ByteWidth())
	}
	return Record{Shape: append([]int64(nil), t.Shape()...), DType: dtype, Data: out}, nil
}

// Decode validates and reinterprets a wire Record as an Arrow tensor.
func Decode(r Record) (*tensor.Tensor, error) {
	if r.DType.ByteWidth() == 0 {
		return nil, &SerializationError{DType: r.DType, Reason: "unknown dtype tag"}
	}
	data := r.Data
	if hostIsBigEndian {
		data = append([]byte(nil), r.Data...)
		swapElementsInPlace(data, r.DType.ByteWidth())
	}
	return NewTensor(r.DType, r.Shape, data)
}

// hostIsBigEndian is computed once at init via a pointer cast, the
// conventional way to detect host byte order without cgo.
var hostIsBigEndian = func() bool {
	var probe uint16 = 1
	return *(*byte)(unsafe.Pointer(&probe)) == 0
}()

// swapElementsInPlace reverses the byte order of each width-byte element of
// buf. Used only on the (rare, untested-in-CI) big-endian path so that wire
// bytes are always little-endian regardless of host order.
func swapElementsInPlace(buf []byte, width int) {
	if width <= 1 {
		return
	}
	for off := 0; off+width <= len(buf); off += width {
		for i, j := off, off+width-1; i < j; i, j = i+1, j-1 {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}
}
