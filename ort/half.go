// half.go - Halbgenaue Gleitkommatypen
// Enthält: BFloat16, WidenFloat16, WidenBFloat16

package ort

import (
	"unsafe"

	bfloat16 "github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// BFloat16 is the raw bit pattern of a bfloat16 element.
type BFloat16 uint16

// borrowed is implemented by SliceView and ArrayView.
type borrowed[T Element] interface {
	Do(fn func([]T)) error
}

// WidenFloat16 copies a float16 view into float32 values.
func WidenFloat16(v borrowed[float16.Float16]) (f32s []float32, err error) {
	err = v.Do(func(data []float16.Float16) {
		f32s = make([]float32, len(data))
		for i := range data {
			f32s[i] = data[i].Float32()
		}
	})
	return f32s, err
}

// WidenBFloat16 copies a bfloat16 view into float32 values.
func WidenBFloat16(v borrowed[BFloat16]) (f32s []float32, err error) {
	err = v.Do(func(data []BFloat16) {
		if len(data) == 0 {
			f32s = []float32{}
			return
		}
		f32s = bfloat16.DecodeFloat32(unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), 2*len(data)))
	})
	return f32s, err
}
