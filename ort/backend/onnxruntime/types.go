// types.go - Elementtypen und Optimierungsstufen der Engine
// Enthält: ElementType, GraphOptimizationLevel, ParseGraphOptimizationLevel

package onnxruntime

import (
	"fmt"
	"strings"

	"github.com/x448/float16"

	"github.com/boydjohnson/onnxruntime/ort"
)

// ElementType mirrors ONNXTensorElementDataType.
type ElementType int32

const (
	ElementTypeUndefined ElementType = iota
	ElementTypeFloat
	ElementTypeUint8
	ElementTypeInt8
	ElementTypeUint16
	ElementTypeInt16
	ElementTypeInt32
	ElementTypeInt64
	ElementTypeString
	ElementTypeBool
	ElementTypeFloat16
	ElementTypeDouble
	ElementTypeUint32
	ElementTypeUint64
	ElementTypeComplex64
	ElementTypeComplex128
	ElementTypeBFloat16
)

var elementTypeNames = [...]string{
	"undefined", "float32", "uint8", "int8", "uint16", "int16", "int32", "int64",
	"string", "bool", "float16", "float64", "uint32", "uint64",
	"complex64", "complex128", "bfloat16",
}

func (t ElementType) String() string {
	if t >= 0 && int(t) < len(elementTypeNames) {
		return elementTypeNames[t]
	}
	return fmt.Sprintf("type(%d)", int32(t))
}

// elementTypeOf maps a Go element type to the engine's element type.
// Other named types are undefined.
func elementTypeOf[T ort.Element]() ElementType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return ElementTypeFloat
	case uint8:
		return ElementTypeUint8
	case int8:
		return ElementTypeInt8
	case uint16:
		return ElementTypeUint16
	case int16:
		return ElementTypeInt16
	case int32:
		return ElementTypeInt32
	case int64:
		return ElementTypeInt64
	case bool:
		return ElementTypeBool
	case float16.Float16:
		return ElementTypeFloat16
	case float64:
		return ElementTypeDouble
	case uint32:
		return ElementTypeUint32
	case uint64:
		return ElementTypeUint64
	case ort.BFloat16:
		return ElementTypeBFloat16
	default:
		return ElementTypeUndefined
	}
}

// GraphOptimizationLevel mirrors GraphOptimizationLevel.
type GraphOptimizationLevel int32

const (
	GraphOptimizationDisable  GraphOptimizationLevel = 0
	GraphOptimizationBasic    GraphOptimizationLevel = 1
	GraphOptimizationExtended GraphOptimizationLevel = 2
	GraphOptimizationAll      GraphOptimizationLevel = 99
)

func (l GraphOptimizationLevel) String() string {
	switch l {
	case GraphOptimizationDisable:
		return "disable"
	case GraphOptimizationBasic:
		return "basic"
	case GraphOptimizationExtended:
		return "extended"
	case GraphOptimizationAll:
		return "all"
	default:
		return fmt.Sprintf("level(%d)", int32(l))
	}
}

// ParseGraphOptimizationLevel parses a name as accepted by ORT_GRAPH_OPTIMIZATION.
func ParseGraphOptimizationLevel(s string) (GraphOptimizationLevel, error) {
	switch strings.ToLower(s) {
	case "disable":
		return GraphOptimizationDisable, nil
	case "basic":
		return GraphOptimizationBasic, nil
	case "extended":
		return GraphOptimizationExtended, nil
	case "all":
		return GraphOptimizationAll, nil
	default:
		return GraphOptimizationAll, fmt.Errorf("unknown graph optimization level %q", s)
	}
}
