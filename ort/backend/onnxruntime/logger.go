// logger.go - Native Log-Callback
// Enthält: Trampolin fuer OrtLoggingFunction, goString
//
// purego kann nur eine begrenzte Zahl Callbacks erzeugen, daher gibt es genau
// ein Trampolin; der aktuelle Empfaenger liegt in einem atomic.Pointer.

package onnxruntime

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/boydjohnson/onnxruntime/ort"
)

var (
	logReceiver atomic.Pointer[ort.LogFunc]

	trampoline = sync.OnceValue(func() uintptr {
		return purego.NewCallback(logTrampoline)
	})
)

// logTrampoline matches OrtLoggingFunction. Every argument is passed as a
// machine word and the uintptr result is ignored by the engine.
func logTrampoline(param, severity, category, logID, location, message uintptr) uintptr {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "onnxruntime: log callback: %v\n", r)
		}
	}()

	if fn := logReceiver.Load(); fn != nil {
		(*fn)(ort.LoggingLevel(int32(severity)), goString(category), goString(logID), goString(location), goString(message))
	}
	return 0
}

// goString copies a NUL-terminated C string
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}

	ptr := unsafe.Pointer(p)
	n := 0
	for *(*byte)(unsafe.Add(ptr, n)) != 0 {
		n++
	}
	return strings.Clone(unsafe.String((*byte)(ptr), n))
}
