// abi.go - Native Funktionstabelle und Backend-Registrierung
// Enthält: EnvPtr, ValuePtr, LogFunc, ABI, RegisterBackend, NewABI

// Package ort manages the lifetime of handles returned by the ONNX Runtime
// C API: a process-wide, reference counted environment and output tensors
// whose native memory is exposed as borrowed, zero-copy views.
//
// Raw pointers never leave the ABI implementation. Everything in this
// package works on opaque EnvPtr and ValuePtr values.
package ort

import (
	"fmt"
	"unsafe"
)

// EnvPtr is an opaque OrtEnv pointer.
type EnvPtr uintptr

// ValuePtr is an opaque OrtValue pointer.
type ValuePtr uintptr

// LogFunc receives log messages emitted by the native engine.
type LogFunc func(severity LoggingLevel, category, logID, location, message string)

// ABI is the table of native entry points the handle wrappers depend on.
// Failed calls return a *Status.
type ABI interface {
	CreateEnvWithCustomLogger(logger LogFunc, level LoggingLevel, name string) (EnvPtr, error)
	ReleaseEnv(env EnvPtr)

	IsTensor(value ValuePtr) (bool, error)
	GetTensorMutableData(value ValuePtr) (unsafe.Pointer, error)
	ReleaseValue(value ValuePtr)
}

// DefaultBackend is the backend NewABI loads.
const DefaultBackend = "onnxruntime"

var backends = make(map[string]func() (ABI, error))

// RegisterBackend registers an ABI factory. It is meant to be called from init.
func RegisterBackend(name string, f func() (ABI, error)) {
	if _, ok := backends[name]; ok {
		panic("ort: backend already registered")
	}

	backends[name] = f
}

// NewABI returns the ABI of the default backend.
func NewABI() (ABI, error) {
	if backend, ok := backends[DefaultBackend]; ok {
		return backend()
	}

	return nil, fmt.Errorf("%w: %s", ErrNoBackend, DefaultBackend)
}
