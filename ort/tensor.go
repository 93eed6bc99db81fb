// tensor.go - Ausgabe-Tensoren mit Speicher der nativen Engine
// Enthält: Extractor, OutputTensor, Shape, ElementCount, Release

package ort

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
	"unsafe"
)

// Extractor checks a native value before the host takes ownership of it.
type Extractor struct {
	abi   ABI
	ptr   ValuePtr
	shape []int

	mu    sync.Mutex
	taken bool
}

// NewExtractor wraps a value produced by an inference call. The caller keeps
// ownership of ptr until Extract succeeds.
func NewExtractor(abi ABI, ptr ValuePtr, shape []int) *Extractor {
	return &Extractor{abi: abi, ptr: ptr, shape: slices.Clone(shape)}
}

// Validate asks the engine whether the value is a tensor. It has no side
// effects and may be called any number of times until Extract succeeds;
// afterwards it returns ErrReleased.
func (x *Extractor) Validate() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	_, err := x.validate()
	return err
}

func (x *Extractor) validate() (int, error) {
	if x.taken {
		return 0, ErrReleased
	} else if x.ptr == 0 {
		return 0, fmt.Errorf("%w: null value handle", ErrTensorPredicate)
	}

	count, err := ElementCount(x.shape)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTensorPredicate, err)
	}

	ok, err := x.abi.IsTensor(x.ptr)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTensorPredicate, err)
	} else if !ok {
		return 0, ErrNotATensor
	}

	return count, nil
}

// Extract validates the value and transfers its ownership to an OutputTensor.
// Ownership moves only once: later calls return ErrReleased.
func (x *Extractor) Extract() (*OutputTensor, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	count, err := x.validate()
	if err != nil {
		return nil, err
	}

	t := &OutputTensor{
		shape: x.shape,
		count: count,
		h:     &valueHandle{abi: x.abi, ptr: x.ptr},
	}
	t.cleanup = runtime.AddCleanup(t, func(h *valueHandle) {
		switch err := h.release(); {
		case err == nil:
			slog.Warn("output tensor was not released", "ptr", fmt.Sprintf("%#x", uintptr(h.ptr)))
		case errors.Is(err, ErrBorrowed):
			slog.Warn("output tensor leaked with open views", "ptr", fmt.Sprintf("%#x", uintptr(h.ptr)), "error", err)
		}
	}, t.h)

	x.taken = true
	x.ptr = 0
	return t, nil
}

// ElementCount returns the product of the dimensions; a scalar has one
// element. Negative dimensions and products that do not fit an int are
// errors.
func ElementCount(shape []int) (int, error) {
	n := 1
	for i, dim := range shape {
		switch {
		case dim < 0:
			return 0, fmt.Errorf("negative dimension %d at axis %d", dim, i)
		case dim > 0 && n > math.MaxInt/dim:
			return 0, fmt.Errorf("shape %v overflows the element count", shape)
		}
		n *= dim
	}
	return n, nil
}

// valueHandle owns the native value and tracks open borrows
type valueHandle struct {
	abi ABI
	ptr ValuePtr

	mu       sync.Mutex
	borrows  int
	released bool
}

func (h *valueHandle) release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return ErrReleased
	} else if h.borrows > 0 {
		return fmt.Errorf("%w: %d open", ErrBorrowed, h.borrows)
	}

	h.abi.ReleaseValue(h.ptr)
	h.released = true
	return nil
}

// OutputTensor owns a native tensor value. Its memory is read through views
// from AsSlice and AsArray; Release fails while any view is open.
type OutputTensor struct {
	shape []int
	count int

	h       *valueHandle
	cleanup runtime.Cleanup
}

// Shape returns a copy of the tensor's dimensions.
func (t *OutputTensor) Shape() []int {
	return slices.Clone(t.shape)
}

// ElementCount returns the product of the dimensions (1 for a scalar).
func (t *OutputTensor) ElementCount() int {
	return t.count
}

// Released reports whether the native value has been released.
func (t *OutputTensor) Released() bool {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	return t.h.released
}

// Release frees the native value exactly once. It returns ErrBorrowed while
// views are open and ErrReleased on later calls.
func (t *OutputTensor) Release() error {
	if err := t.h.release(); err != nil {
		return err
	}
	t.cleanup.Stop()
	return nil
}

// borrow fetches the data pointer and registers an open view
func (t *OutputTensor) borrow() (unsafe.Pointer, error) {
	h := t.h
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil, fmt.Errorf("%w: %w", ErrDataAccess, ErrReleased)
	}

	p, err := h.abi.GetTensorMutableData(h.ptr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataAccess, err)
	} else if p == nil && t.count > 0 {
		return nil, fmt.Errorf("%w: null data pointer", ErrDataAccess)
	}

	h.borrows++
	return p, nil
}

func (t *OutputTensor) unborrow() {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()

	t.h.borrows--
	if t.h.borrows < 0 {
		panic("ort: tensor borrow count below zero")
	}
}

// LogValue implements slog.LogValuer.
func (t *OutputTensor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("shape", t.shape),
		slog.Int("elements", t.count),
		slog.Bool("released", t.Released()),
	)
}
