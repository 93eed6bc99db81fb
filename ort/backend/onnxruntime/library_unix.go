//go:build !windows

package onnxruntime

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

func loadLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func getSymbol(handle uintptr, symbol string) (uintptr, error) {
	return purego.Dlsym(handle, symbol)
}

// modelPath converts a path to ORTCHAR_T, which is char on this platform.
// The returned slice must stay alive while the pointer is in use.
func modelPath(path string) (unsafe.Pointer, any, error) {
	b := append([]byte(path), 0)
	return unsafe.Pointer(&b[0]), b, nil
}
