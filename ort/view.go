// view.go - Zero-Copy-Sichten auf Tensor-Speicher der Engine
// Enthält: Element, SliceView, ArrayView, AsSlice, AsArray, Dense
//
// Eine Sicht haelt einen Borrow auf den OutputTensor. Solange sie offen ist,
// schlaegt Release des Tensors fehl; nach Close ist jeder Zugriff ein Fehler.

package ort

import (
	"fmt"
	"slices"
	"sync"
	"unsafe"

	"github.com/pdevine/tensor"
)

// Element lists the Go types a tensor's memory can be viewed as. The caller
// picks the type matching the tensor's element type; it is not checked.
type Element interface {
	~bool | ~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// SliceView is a flat, read-only view of a tensor's elements.
type SliceView[T Element] struct {
	t *OutputTensor

	mu     sync.RWMutex
	data   []T
	closed bool
}

// AsSlice borrows the tensor's memory as a flat view of ElementCount values.
// Nothing is copied. Close the view before releasing the tensor.
func AsSlice[T Element](t *OutputTensor) (*SliceView[T], error) {
	p, err := t.borrow()
	if err != nil {
		return nil, err
	}

	var data []T
	if t.count > 0 {
		data = unsafe.Slice((*T)(p), t.count)
	}
	return &SliceView[T]{t: t, data: data}, nil
}

// Len returns the number of elements.
func (v *SliceView[T]) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.data)
}

// At returns the i-th element.
func (v *SliceView[T]) At(i int) (T, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var zero T
	if v.closed {
		return zero, ErrReleased
	} else if i < 0 || i >= len(v.data) {
		return zero, fmt.Errorf("ort: index %d out of range [0:%d]", i, len(v.data))
	}
	return v.data[i], nil
}

// Do calls fn with the borrowed elements. The view cannot be closed while fn
// runs; fn must not retain the slice.
func (v *SliceView[T]) Do(fn func([]T)) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return ErrReleased
	}
	fn(v.data)
	return nil
}

// Values returns the borrowed elements. The slice aliases native memory and
// is only valid until the view is closed.
func (v *SliceView[T]) Values() ([]T, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrReleased
	}
	return v.data, nil
}

// Copy returns the elements in Go-owned memory.
func (v *SliceView[T]) Copy() ([]T, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrReleased
	}
	return slices.Clone(v.data), nil
}

// Close ends the borrow. Closing twice returns ErrReleased.
func (v *SliceView[T]) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrReleased
	}
	v.closed = true
	v.data = nil
	v.t.unborrow()
	return nil
}

// ArrayView is a multi-dimensional, row-major view keyed by the tensor's shape.
type ArrayView[T Element] struct {
	SliceView[T]

	shape   []int
	strides []int
}

// AsArray borrows the tensor's memory as a view shaped like the tensor.
func AsArray[T Element](t *OutputTensor) (*ArrayView[T], error) {
	p, err := t.borrow()
	if err != nil {
		return nil, err
	}

	v := &ArrayView[T]{
		shape:   slices.Clone(t.shape),
		strides: make([]int, len(t.shape)),
	}
	v.t = t
	if t.count > 0 {
		v.data = unsafe.Slice((*T)(p), t.count)
	}

	stride := 1
	for i := len(v.shape) - 1; i >= 0; i-- {
		v.strides[i] = stride
		stride *= v.shape[i]
	}
	return v, nil
}

// Shape returns a copy of the view's dimensions.
func (v *ArrayView[T]) Shape() []int {
	return slices.Clone(v.shape)
}

// Strides returns the row-major strides in elements.
func (v *ArrayView[T]) Strides() []int {
	return slices.Clone(v.strides)
}

// At returns the element at the given index, one coordinate per dimension.
// A scalar view takes no coordinates.
func (v *ArrayView[T]) At(index ...int) (T, error) {
	var zero T
	if len(index) != len(v.shape) {
		return zero, fmt.Errorf("ort: got %d indices for a %d-dimensional view", len(index), len(v.shape))
	}

	offset := 0
	for i, n := range index {
		if n < 0 || n >= v.shape[i] {
			return zero, fmt.Errorf("ort: index %d out of range [0:%d] on axis %d", n, v.shape[i], i)
		}
		offset += n * v.strides[i]
	}
	return v.SliceView.At(offset)
}

// Dense returns a *tensor.Dense backed by the borrowed memory. Like Values,
// it is only valid until the view is closed.
func (v *ArrayView[T]) Dense() (d *tensor.Dense, err error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	switch {
	case v.closed:
		return nil, ErrReleased
	case len(v.data) == 0:
		return nil, fmt.Errorf("ort: empty tensor %v has no dense form", v.shape)
	}

	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("ort: dense view of %T: %v", v.data, r)
		}
	}()

	if len(v.shape) == 0 {
		return tensor.New(tensor.FromScalar(v.data[0])), nil
	}
	return tensor.New(tensor.WithShape(v.shape...), tensor.WithBacking(v.data)), nil
}
