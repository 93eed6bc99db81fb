//go:build windows

package onnxruntime

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func loadLibrary(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	return uintptr(h), err
}

func getSymbol(handle uintptr, symbol string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), symbol)
}

// modelPath converts a path to ORTCHAR_T, which is wchar_t on Windows.
func modelPath(path string) (unsafe.Pointer, any, error) {
	u, err := windows.UTF16FromString(path)
	if err != nil {
		return nil, nil, err
	}
	return unsafe.Pointer(&u[0]), u, nil
}
