// runtime.go - Geladene ONNX-Runtime-Library
// Enthält: Runtime (implementiert ort.ABI), Open, Statuskonvertierung

// Package onnxruntime binds the ONNX Runtime shared library through purego
// and registers it as the default ort backend.
package onnxruntime

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/boydjohnson/onnxruntime/envconfig"
	"github.com/boydjohnson/onnxruntime/ort"
)

// Runtime is a loaded libonnxruntime and its OrtApi table. The library is
// never unloaded.
type Runtime struct {
	path    string
	version string
	api     uint32
	f       *funcs
}

// Open loads the library at path and requests the OrtApi version from
// ORT_API_VERSION.
func Open(path string) (*Runtime, error) {
	lib, err := loadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	sym, err := getSymbol(lib, "OrtGetApiBase")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var getAPIBase func() uintptr
	purego.RegisterFunc(&getAPIBase, sym)
	base := getAPIBase()
	if base == 0 {
		return nil, errors.New("OrtGetApiBase returned null")
	}

	// OrtApiBase { GetApi, GetVersionString }
	var (
		getAPI           func(version uint32) uintptr
		getVersionString func() uintptr
	)
	purego.RegisterFunc(&getAPI, entry(unsafe.Pointer(base), 0))
	purego.RegisterFunc(&getVersionString, entry(unsafe.Pointer(base), 1))

	r := &Runtime{
		path:    path,
		version: goString(getVersionString()),
		api:     uint32(envconfig.APIVersion()),
	}

	api := getAPI(r.api)
	if api == 0 {
		return nil, fmt.Errorf("onnxruntime %s does not provide API version %d", r.version, r.api)
	}
	r.f = bind(unsafe.Pointer(api))

	slog.Info("loaded onnxruntime", "path", path, "version", r.version, "api", r.api)
	return r, nil
}

// Version returns the library's version string.
func (r *Runtime) Version() string {
	return r.version
}

// Path returns the path the library was loaded from.
func (r *Runtime) Path() string {
	return r.path
}

// check converts and releases an OrtStatus
func (r *Runtime) check(status uintptr) error {
	if status == 0 {
		return nil
	}
	defer r.f.releaseStatus(status)

	return &ort.Status{
		Code:    ort.ErrorCode(r.f.getErrorCode(status)),
		Message: goString(r.f.getErrorMessage(status)),
	}
}

// CreateEnvWithCustomLogger creates an OrtEnv whose log output goes to logger.
// The trampoline is process-wide so the most recent logger receives all
// messages.
func (r *Runtime) CreateEnvWithCustomLogger(logger ort.LogFunc, level ort.LoggingLevel, name string) (ort.EnvPtr, error) {
	logReceiver.Store(&logger)

	var env uintptr
	if err := r.check(r.f.createEnvWithCustomLogger(trampoline(), 0, int32(level), name, &env)); err != nil {
		return 0, err
	}
	return ort.EnvPtr(env), nil
}

func (r *Runtime) ReleaseEnv(env ort.EnvPtr) {
	r.f.releaseEnv(uintptr(env))
}

func (r *Runtime) IsTensor(value ort.ValuePtr) (bool, error) {
	var out int32
	if err := r.check(r.f.isTensor(uintptr(value), &out)); err != nil {
		return false, err
	}
	return out != 0, nil
}

func (r *Runtime) GetTensorMutableData(value ort.ValuePtr) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	if err := r.check(r.f.getTensorMutableData(uintptr(value), &out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Runtime) ReleaseValue(value ort.ValuePtr) {
	r.f.releaseValue(uintptr(value))
}

// TensorInfo returns the element type and dimensions of a tensor value.
func (r *Runtime) TensorInfo(value ort.ValuePtr) (ElementType, []int, error) {
	var info uintptr
	if err := r.check(r.f.getTensorTypeAndShape(uintptr(value), &info)); err != nil {
		return 0, nil, err
	}
	defer r.f.releaseTensorTypeAndShapeInfo(info)

	return r.shapeInfo(info)
}

// shapeInfo reads an OrtTensorTypeAndShapeInfo; dynamic dimensions are -1
func (r *Runtime) shapeInfo(info uintptr) (ElementType, []int, error) {
	var typ int32
	if err := r.check(r.f.getTensorElementType(info, &typ)); err != nil {
		return 0, nil, err
	}

	var n uintptr
	if err := r.check(r.f.getDimensionsCount(info, &n)); err != nil {
		return 0, nil, err
	}

	dims := make([]int64, n)
	if n > 0 {
		if err := r.check(r.f.getDimensions(info, &dims[0], n)); err != nil {
			return 0, nil, err
		}
	}

	shape := make([]int, n)
	for i, d := range dims {
		shape[i] = int(d)
	}
	return ElementType(typ), shape, nil
}

var _ ort.ABI = (*Runtime)(nil)
