// api.go - OrtApi-Funktionstabelle
// Enthält: Indizes der benutzten Einstiegspunkte, Bindung via purego
//
// OrtApi ist ein C-Struct aus Funktionszeigern. Neue Versionen haengen nur
// hinten an, daher sind die Indizes stabil.

package onnxruntime

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

const (
	apiGetErrorCode                     = 1
	apiGetErrorMessage                  = 2
	apiCreateEnvWithCustomLogger        = 4
	apiCreateSession                    = 7
	apiRun                              = 9
	apiCreateSessionOptions             = 10
	apiSetSessionGraphOptimizationLevel = 23
	apiSetIntraOpNumThreads             = 24
	apiSetInterOpNumThreads             = 25
	apiSessionGetInputCount             = 30
	apiSessionGetOutputCount            = 31
	apiSessionGetInputTypeInfo          = 33
	apiSessionGetOutputTypeInfo         = 34
	apiSessionGetInputName              = 36
	apiSessionGetOutputName             = 37
	apiCreateTensorWithDataAsOrtValue   = 49
	apiIsTensor                         = 50
	apiGetTensorMutableData             = 51
	apiCastTypeInfoToTensorInfo         = 55
	apiGetTensorElementType             = 60
	apiGetDimensionsCount               = 61
	apiGetDimensions                    = 62
	apiGetTensorTypeAndShape            = 65
	apiCreateCpuMemoryInfo              = 69
	apiAllocatorFree                    = 76
	apiGetAllocatorWithDefaultOptions   = 78
	apiReleaseEnv                       = 92
	apiReleaseStatus                    = 93
	apiReleaseMemoryInfo                = 94
	apiReleaseSession                   = 95
	apiReleaseValue                     = 96
	apiReleaseTypeInfo                  = 98
	apiReleaseTensorTypeAndShapeInfo    = 99
	apiReleaseSessionOptions            = 100
)

// Every function returning uintptr returns an OrtStatus*, nil on success.
type funcs struct {
	getErrorCode    func(status uintptr) int32
	getErrorMessage func(status uintptr) uintptr
	releaseStatus   func(status uintptr)

	createEnvWithCustomLogger func(logger, param uintptr, level int32, logID string, out *uintptr) uintptr
	releaseEnv                func(env uintptr)

	isTensor             func(value uintptr, out *int32) uintptr
	getTensorMutableData func(value uintptr, out *unsafe.Pointer) uintptr
	releaseValue         func(value uintptr)

	createSessionOptions             func(out *uintptr) uintptr
	setSessionGraphOptimizationLevel func(options uintptr, level int32) uintptr
	setIntraOpNumThreads             func(options uintptr, n int32) uintptr
	setInterOpNumThreads             func(options uintptr, n int32) uintptr
	releaseSessionOptions            func(options uintptr)

	createSession            func(env uintptr, path unsafe.Pointer, options uintptr, out *uintptr) uintptr
	releaseSession           func(session uintptr)
	sessionGetInputCount     func(session uintptr, out *uintptr) uintptr
	sessionGetOutputCount    func(session uintptr, out *uintptr) uintptr
	sessionGetInputName      func(session, index, allocator uintptr, out *uintptr) uintptr
	sessionGetOutputName     func(session, index, allocator uintptr, out *uintptr) uintptr
	sessionGetInputTypeInfo  func(session, index uintptr, out *uintptr) uintptr
	sessionGetOutputTypeInfo func(session, index uintptr, out *uintptr) uintptr
	run                      func(session, runOptions uintptr, inputNames, inputs *uintptr, inputLen uintptr, outputNames *uintptr, outputLen uintptr, outputs *uintptr) uintptr

	castTypeInfoToTensorInfo       func(typeInfo uintptr, out *uintptr) uintptr
	getTensorElementType           func(info uintptr, out *int32) uintptr
	getDimensionsCount             func(info uintptr, out *uintptr) uintptr
	getDimensions                  func(info uintptr, dims *int64, n uintptr) uintptr
	getTensorTypeAndShape          func(value uintptr, out *uintptr) uintptr
	releaseTypeInfo                func(typeInfo uintptr)
	releaseTensorTypeAndShapeInfo  func(info uintptr)
	createCpuMemoryInfo            func(allocatorType, memType int32, out *uintptr) uintptr
	releaseMemoryInfo              func(info uintptr)
	createTensorWithDataAsOrtValue func(info uintptr, data unsafe.Pointer, size uintptr, shape *int64, shapeLen uintptr, elementType int32, out *uintptr) uintptr

	getAllocatorWithDefaultOptions func(out *uintptr) uintptr
	allocatorFree                  func(allocator, p uintptr) uintptr
}

// entry reads the i-th function pointer of the OrtApi struct
func entry(api unsafe.Pointer, i int) uintptr {
	return *(*uintptr)(unsafe.Add(api, i*int(unsafe.Sizeof(uintptr(0)))))
}

func bind(api unsafe.Pointer) *funcs {
	var f funcs
	for i, fn := range map[int]any{
		apiGetErrorCode:                     &f.getErrorCode,
		apiGetErrorMessage:                  &f.getErrorMessage,
		apiReleaseStatus:                    &f.releaseStatus,
		apiCreateEnvWithCustomLogger:        &f.createEnvWithCustomLogger,
		apiReleaseEnv:                       &f.releaseEnv,
		apiIsTensor:                         &f.isTensor,
		apiGetTensorMutableData:             &f.getTensorMutableData,
		apiReleaseValue:                     &f.releaseValue,
		apiCreateSessionOptions:             &f.createSessionOptions,
		apiSetSessionGraphOptimizationLevel: &f.setSessionGraphOptimizationLevel,
		apiSetIntraOpNumThreads:             &f.setIntraOpNumThreads,
		apiSetInterOpNumThreads:             &f.setInterOpNumThreads,
		apiReleaseSessionOptions:            &f.releaseSessionOptions,
		apiCreateSession:                    &f.createSession,
		apiReleaseSession:                   &f.releaseSession,
		apiSessionGetInputCount:             &f.sessionGetInputCount,
		apiSessionGetOutputCount:            &f.sessionGetOutputCount,
		apiSessionGetInputName:              &f.sessionGetInputName,
		apiSessionGetOutputName:             &f.sessionGetOutputName,
		apiSessionGetInputTypeInfo:          &f.sessionGetInputTypeInfo,
		apiSessionGetOutputTypeInfo:         &f.sessionGetOutputTypeInfo,
		apiRun:                              &f.run,
		apiCastTypeInfoToTensorInfo:         &f.castTypeInfoToTensorInfo,
		apiGetTensorElementType:             &f.getTensorElementType,
		apiGetDimensionsCount:               &f.getDimensionsCount,
		apiGetDimensions:                    &f.getDimensions,
		apiGetTensorTypeAndShape:            &f.getTensorTypeAndShape,
		apiReleaseTypeInfo:                  &f.releaseTypeInfo,
		apiReleaseTensorTypeAndShapeInfo:    &f.releaseTensorTypeAndShapeInfo,
		apiCreateCpuMemoryInfo:              &f.createCpuMemoryInfo,
		apiReleaseMemoryInfo:                &f.releaseMemoryInfo,
		apiCreateTensorWithDataAsOrtValue:   &f.createTensorWithDataAsOrtValue,
		apiGetAllocatorWithDefaultOptions:   &f.getAllocatorWithDefaultOptions,
		apiAllocatorFree:                    &f.allocatorFree,
	} {
		purego.RegisterFunc(fn, entry(api, i))
	}
	return &f
}
