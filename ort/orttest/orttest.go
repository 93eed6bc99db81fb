// orttest.go - In-Memory-Ersatz fuer die native Funktionstabelle
// Enthält: ABI, New, AddTensor, AddValue, Fehlerinjektion, Zaehler

// Package orttest provides an in-memory ort.ABI for tests. Values live in Go
// memory owned by the fake, and every native call is counted.
package orttest

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/boydjohnson/onnxruntime/ort"
)

type value struct {
	data    any
	ptr     unsafe.Pointer
	tensor  bool
	nilData bool

	isTensorErr error
	dataErr     error

	releases int
}

// ABI implements ort.ABI without a native library.
type ABI struct {
	mu sync.Mutex

	next   uintptr
	envs   map[ort.EnvPtr]string
	values map[ort.ValuePtr]*value
	logger ort.LogFunc

	creates      int
	envReleases  int
	badReleases  int
	createErr    error
	beforeCreate func()
}

// New returns an empty fake.
func New() *ABI {
	return &ABI{
		next:   0x7f0000001000,
		envs:   make(map[ort.EnvPtr]string),
		values: make(map[ort.ValuePtr]*value),
	}
}

func (a *ABI) alloc() uintptr {
	a.next += 0x40
	return a.next
}

// FailCreate makes every following environment creation return err.
func (a *ABI) FailCreate(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.createErr = err
}

// BeforeCreate registers fn to run inside each creation call, before the
// fake takes its lock.
func (a *ABI) BeforeCreate(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.beforeCreate = fn
}

func (a *ABI) CreateEnvWithCustomLogger(logger ort.LogFunc, level ort.LoggingLevel, name string) (ort.EnvPtr, error) {
	a.mu.Lock()
	fn := a.beforeCreate
	a.mu.Unlock()
	if fn != nil {
		fn()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.creates++
	if a.createErr != nil {
		return 0, a.createErr
	}

	env := ort.EnvPtr(a.alloc())
	a.envs[env] = name
	a.logger = logger
	return env, nil
}

func (a *ABI) ReleaseEnv(env ort.EnvPtr) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.envs[env]; !ok {
		a.badReleases++
		return
	}
	delete(a.envs, env)
	a.envReleases++
}

// Creates returns the number of environment creation calls.
func (a *ABI) Creates() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.creates
}

// EnvReleases returns the number of successful environment releases.
func (a *ABI) EnvReleases() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.envReleases
}

// BadReleases counts releases of unknown, null or already released handles.
func (a *ABI) BadReleases() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.badReleases
}

// LiveEnvs returns the number of environments not yet released.
func (a *ABI) LiveEnvs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.envs)
}

// Log emits a message through the logger installed by the last creation, the
// way the engine would from one of its threads.
func (a *ABI) Log(severity ort.LoggingLevel, message string) {
	a.mu.Lock()
	logger := a.logger
	a.mu.Unlock()

	if logger != nil {
		logger(severity, "orttest", "fake", "orttest.go:1", message)
	}
}

// AddTensor stores a copy of data as a tensor value.
func AddTensor[T ort.Element](a *ABI, data []T) ort.ValuePtr {
	owned := make([]T, len(data), max(len(data), 1))
	copy(owned, data)

	a.mu.Lock()
	defer a.mu.Unlock()

	v := ort.ValuePtr(a.alloc())
	a.values[v] = &value{data: owned, ptr: unsafe.Pointer(unsafe.SliceData(owned)), tensor: true}
	return v
}

// AddValue stores a value that is not a tensor, like a sequence or a map.
func (a *ABI) AddValue() ort.ValuePtr {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := ort.ValuePtr(a.alloc())
	a.values[v] = &value{}
	return v
}

func (a *ABI) lookup(v ort.ValuePtr) (*value, error) {
	val, ok := a.values[v]
	if !ok || val.releases > 0 {
		return nil, &ort.Status{Code: ort.CodeInvalidArgument, Message: fmt.Sprintf("invalid value %#x", uintptr(v))}
	}
	return val, nil
}

// FailIsTensor makes IsTensor on v return err.
func (a *ABI) FailIsTensor(v ort.ValuePtr, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[v].isTensorErr = err
}

// FailData makes GetTensorMutableData on v return err.
func (a *ABI) FailData(v ort.ValuePtr, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[v].dataErr = err
}

// NullData makes GetTensorMutableData on v succeed with a null pointer.
func (a *ABI) NullData(v ort.ValuePtr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[v].nilData = true
}

func (a *ABI) IsTensor(v ort.ValuePtr) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	val, err := a.lookup(v)
	if err != nil {
		return false, err
	} else if val.isTensorErr != nil {
		return false, val.isTensorErr
	}
	return val.tensor, nil
}

func (a *ABI) GetTensorMutableData(v ort.ValuePtr) (unsafe.Pointer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	val, err := a.lookup(v)
	switch {
	case err != nil:
		return nil, err
	case val.dataErr != nil:
		return nil, val.dataErr
	case !val.tensor:
		return nil, &ort.Status{Code: ort.CodeInvalidArgument, Message: "value is not a tensor"}
	case val.nilData:
		return nil, nil
	}
	return val.ptr, nil
}

func (a *ABI) ReleaseValue(v ort.ValuePtr) {
	a.mu.Lock()
	defer a.mu.Unlock()

	val, ok := a.values[v]
	if !ok || val.releases > 0 {
		a.badReleases++
	}
	if ok {
		val.releases++
	}
}

// ValueReleases returns how often v was released.
func (a *ABI) ValueReleases(v ort.ValuePtr) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if val, ok := a.values[v]; ok {
		return val.releases
	}
	return 0
}
