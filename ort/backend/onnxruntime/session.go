// session.go - Inferenz-Sessions
// Enthält: SessionOptions, Session, NewSession, Run, Close
//
// Eine Session haelt eine eigene Referenz auf das Environment, damit das
// Environment jede Session ueberlebt.

package onnxruntime

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"unsafe"

	"github.com/boydjohnson/onnxruntime/envconfig"
	"github.com/boydjohnson/onnxruntime/ort"
)

// OrtAllocatorType and OrtMemType for plain CPU memory
const (
	arenaAllocator = 1
	memTypeDefault = 0
	noRunOptions   = 0
)

// SessionOptions configures NewSession.
type SessionOptions struct {
	optimization GraphOptimizationLevel
	intraOp      int
	interOp      int
}

// NewSessionOptions returns options initialized from ORT_GRAPH_OPTIMIZATION,
// ORT_INTRA_OP_THREADS and ORT_INTER_OP_THREADS.
func NewSessionOptions() *SessionOptions {
	level, err := ParseGraphOptimizationLevel(envconfig.GraphOptimization())
	if err != nil {
		level = GraphOptimizationAll
	}

	return &SessionOptions{
		optimization: level,
		intraOp:      int(envconfig.IntraOpThreads()),
		interOp:      int(envconfig.InterOpThreads()),
	}
}

func (o *SessionOptions) WithGraphOptimizationLevel(level GraphOptimizationLevel) *SessionOptions {
	o.optimization = level
	return o
}

// WithIntraOpNumThreads sets the threads used inside one operator. 0 keeps
// the engine default.
func (o *SessionOptions) WithIntraOpNumThreads(n int) *SessionOptions {
	o.intraOp = n
	return o
}

// WithInterOpNumThreads sets the threads used across operators. 0 keeps the
// engine default.
func (o *SessionOptions) WithInterOpNumThreads(n int) *SessionOptions {
	o.interOp = n
	return o
}

func (o *SessionOptions) apply(r *Runtime, ptr uintptr) error {
	if err := r.check(r.f.setSessionGraphOptimizationLevel(ptr, int32(o.optimization))); err != nil {
		return err
	}
	if o.intraOp > 0 {
		if err := r.check(r.f.setIntraOpNumThreads(ptr, int32(o.intraOp))); err != nil {
			return err
		}
	}
	if o.interOp > 0 {
		if err := r.check(r.f.setInterOpNumThreads(ptr, int32(o.interOp))); err != nil {
			return err
		}
	}
	return nil
}

// IOInfo describes a model input or output. Dynamic dimensions are -1.
type IOInfo struct {
	Name  string
	Type  ElementType
	Shape []int
}

// Input is model input data passed to Run. It is implemented by InputTensor.
type Input interface {
	layout() (shape []int, typ ElementType, data unsafe.Pointer, n, size int)
}

// InputTensor is input data in row-major order. The element type sent to
// the engine follows T; float16.Float16 and ort.BFloat16 map to the half
// precision types.
type InputTensor[T ort.Element] struct {
	Shape []int
	Data  []T
}

func (in InputTensor[T]) layout() ([]int, ElementType, unsafe.Pointer, int, int) {
	var zero T
	return in.Shape, elementTypeOf[T](), unsafe.Pointer(unsafe.SliceData(in.Data)), len(in.Data), int(unsafe.Sizeof(zero))
}

// Output is one result of Run. The embedded tensor must be released by the
// caller.
type Output struct {
	Name string
	Type ElementType
	*ort.OutputTensor
}

// Session is a loaded model. Run may be called concurrently.
type Session struct {
	rt  *Runtime
	env *ort.Environment

	mu  sync.RWMutex
	ptr uintptr

	inputs  []IOInfo
	outputs []IOInfo
}

// NewSession loads the model at path. env must come from the onnxruntime
// backend; the session keeps its own reference to it until Close.
func NewSession(env *ort.Environment, path string, opts *SessionOptions) (_ *Session, err error) {
	rt, ok := env.ABI().(*Runtime)
	if !ok {
		return nil, errors.New("environment was not created by the onnxruntime backend")
	}
	if opts == nil {
		opts = NewSessionOptions()
	}

	env, err = env.Clone()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			env.Close()
		}
	}()

	handle, err := env.Handle()
	if err != nil {
		return nil, err
	}

	var options uintptr
	if err := rt.check(rt.f.createSessionOptions(&options)); err != nil {
		return nil, err
	}
	defer rt.f.releaseSessionOptions(options)

	if err := opts.apply(rt, options); err != nil {
		return nil, err
	}

	p, keep, err := modelPath(path)
	if err != nil {
		return nil, err
	}

	var ptr uintptr
	err = rt.check(rt.f.createSession(uintptr(handle), p, options, &ptr))
	runtime.KeepAlive(keep)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	s := &Session{rt: rt, env: env, ptr: ptr}
	if s.inputs, err = s.describe(rt.f.sessionGetInputCount, rt.f.sessionGetInputName, rt.f.sessionGetInputTypeInfo); err != nil {
		rt.f.releaseSession(ptr)
		return nil, err
	}
	if s.outputs, err = s.describe(rt.f.sessionGetOutputCount, rt.f.sessionGetOutputName, rt.f.sessionGetOutputTypeInfo); err != nil {
		rt.f.releaseSession(ptr)
		return nil, err
	}

	slog.Debug("session created", "model", path, "inputs", len(s.inputs), "outputs", len(s.outputs))
	return s, nil
}

func (s *Session) describe(
	count func(uintptr, *uintptr) uintptr,
	name func(uintptr, uintptr, uintptr, *uintptr) uintptr,
	typeInfo func(uintptr, uintptr, *uintptr) uintptr,
) ([]IOInfo, error) {
	r := s.rt

	var n uintptr
	if err := r.check(count(s.ptr, &n)); err != nil {
		return nil, err
	}

	var allocator uintptr
	if err := r.check(r.f.getAllocatorWithDefaultOptions(&allocator)); err != nil {
		return nil, err
	}

	infos := make([]IOInfo, n)
	for i := range n {
		var p uintptr
		if err := r.check(name(s.ptr, i, allocator, &p)); err != nil {
			return nil, err
		}
		infos[i].Name = goString(p)
		if err := r.check(r.f.allocatorFree(allocator, p)); err != nil {
			return nil, err
		}

		var ti uintptr
		if err := r.check(typeInfo(s.ptr, i, &ti)); err != nil {
			return nil, err
		}

		// the tensor info is owned by ti; it is null for non-tensor values
		var info uintptr
		err := r.check(r.f.castTypeInfoToTensorInfo(ti, &info))
		if err == nil && info != 0 {
			infos[i].Type, infos[i].Shape, err = r.shapeInfo(info)
		}
		r.f.releaseTypeInfo(ti)
		if err != nil {
			return nil, err
		}
	}

	return infos, nil
}

// Inputs describes the model inputs.
func (s *Session) Inputs() []IOInfo {
	return s.inputs
}

// Outputs describes the model outputs.
func (s *Session) Outputs() []IOInfo {
	return s.outputs
}

// Run executes the model. There must be one input per model input, in order.
// Every output is a tensor owned by the caller.
func (s *Session) Run(inputs []Input) ([]Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ptr == 0 {
		return nil, ort.ErrReleased
	}
	if len(inputs) != len(s.inputs) {
		return nil, fmt.Errorf("model has %d inputs, got %d", len(s.inputs), len(inputs))
	}

	r := s.rt

	var memInfo uintptr
	if err := r.check(r.f.createCpuMemoryInfo(arenaAllocator, memTypeDefault, &memInfo)); err != nil {
		return nil, err
	}
	defer r.f.releaseMemoryInfo(memInfo)

	// input data and name strings are read by the engine during the call
	var pinner runtime.Pinner
	defer pinner.Unpin()

	values := make([]uintptr, 0, len(inputs))
	defer func() {
		for _, v := range values {
			r.f.releaseValue(v)
		}
	}()

	for i, in := range inputs {
		v, err := s.inputValue(&pinner, memInfo, in)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", s.inputs[i].Name, err)
		}
		values = append(values, v)
	}

	inputNames := cStrings(&pinner, s.inputs)
	outputNames := cStrings(&pinner, s.outputs)
	outputs := make([]uintptr, len(s.outputs))

	if err := r.check(r.f.run(s.ptr, noRunOptions,
		first(&pinner, inputNames), first(&pinner, values), uintptr(len(values)),
		first(&pinner, outputNames), uintptr(len(outputNames)),
		first(&pinner, outputs),
	)); err != nil {
		return nil, err
	}

	return s.extract(outputs)
}

// tensorLayout checks an input and returns its native shape, element type,
// data pointer and size in bytes
func tensorLayout(in Input) ([]int64, ElementType, unsafe.Pointer, uintptr, error) {
	dims, typ, data, n, size := in.layout()
	if typ == ElementTypeUndefined {
		return nil, 0, nil, 0, fmt.Errorf("unsupported element type %T", in)
	}

	count, err := ort.ElementCount(dims)
	if err != nil {
		return nil, 0, nil, 0, err
	} else if count != n {
		return nil, 0, nil, 0, fmt.Errorf("shape %v needs %d values, got %d", dims, count, n)
	} else if count > math.MaxInt/size {
		return nil, 0, nil, 0, fmt.Errorf("shape %v overflows the buffer size", dims)
	}

	shape := make([]int64, len(dims))
	for i, dim := range dims {
		shape[i] = int64(dim)
	}
	if count == 0 {
		data = nil
	}
	return shape, typ, data, uintptr(count * size), nil
}

func (s *Session) inputValue(pinner *runtime.Pinner, memInfo uintptr, in Input) (uintptr, error) {
	shape, typ, data, size, err := tensorLayout(in)
	if err != nil {
		return 0, err
	}
	if data != nil {
		pinner.Pin(data)
	}

	var v uintptr
	if err := s.rt.check(s.rt.f.createTensorWithDataAsOrtValue(
		memInfo, data, size,
		first(pinner, shape), uintptr(len(shape)),
		int32(typ), &v,
	)); err != nil {
		return 0, err
	}
	return v, nil
}

// extract wraps every output value; on failure all of them are released
func (s *Session) extract(values []uintptr) ([]Output, error) {
	r := s.rt

	outputs := make([]Output, 0, len(values))
	fail := func(i int, err error) ([]Output, error) {
		for _, o := range outputs {
			o.Release()
		}
		for _, v := range values[i:] {
			if v != 0 {
				r.f.releaseValue(v)
			}
		}
		return nil, fmt.Errorf("output %s: %w", s.outputs[i].Name, err)
	}

	for i, v := range values {
		if err := ort.NewExtractor(r, ort.ValuePtr(v), nil).Validate(); err != nil {
			return fail(i, err)
		}

		typ, shape, err := r.TensorInfo(ort.ValuePtr(v))
		if err != nil {
			return fail(i, err)
		}

		t, err := ort.NewExtractor(r, ort.ValuePtr(v), shape).Extract()
		if err != nil {
			return fail(i, err)
		}
		outputs = append(outputs, Output{Name: s.outputs[i].Name, Type: typ, OutputTensor: t})
	}

	return outputs, nil
}

// Close releases the session and its environment reference.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ptr == 0 {
		return ort.ErrReleased
	}
	s.rt.f.releaseSession(s.ptr)
	s.ptr = 0
	return s.env.Close()
}

// cStrings builds pinned NUL-terminated copies of the names
func cStrings(pinner *runtime.Pinner, infos []IOInfo) []uintptr {
	ptrs := make([]uintptr, len(infos))
	for i, info := range infos {
		b := append([]byte(info.Name), 0)
		pinner.Pin(&b[0])
		ptrs[i] = uintptr(unsafe.Pointer(&b[0]))
	}
	return ptrs
}

// first pins and returns the address of the first element, or nil
func first[T any](pinner *runtime.Pinner, s []T) *T {
	if len(s) == 0 {
		return nil
	}
	pinner.Pin(&s[0])
	return &s[0]
}
