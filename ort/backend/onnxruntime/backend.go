// backend.go - Registrierung als Standard-Backend
// Enthält: Default, init

package onnxruntime

import (
	"sync"

	"github.com/boydjohnson/onnxruntime/envconfig"
	"github.com/boydjohnson/onnxruntime/ort"
)

// Default loads the library from ORT_LIB_PATH once per process. A failed load
// is not retried.
var Default = sync.OnceValues(func() (*Runtime, error) {
	return Open(envconfig.LibraryPath())
})

func init() {
	ort.RegisterBackend(ort.DefaultBackend, func() (ort.ABI, error) {
		r, err := Default()
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}
