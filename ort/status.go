// status.go - Native Statuscodes und Fehlerarten
// Enthält: ErrorCode, Status, Sentinel-Fehler

package ort

import (
	"errors"
	"fmt"
)

// ErrorCode mirrors OrtErrorCode.
type ErrorCode int

const (
	CodeOK ErrorCode = iota
	CodeFail
	CodeInvalidArgument
	CodeNoSuchFile
	CodeNoModel
	CodeEngineError
	CodeRuntimeException
	CodeInvalidProtobuf
	CodeModelLoaded
	CodeNotImplemented
	CodeInvalidGraph
	CodeEPFail
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeFail:
		return "fail"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeNoSuchFile:
		return "no such file"
	case CodeNoModel:
		return "no model"
	case CodeEngineError:
		return "engine error"
	case CodeRuntimeException:
		return "runtime exception"
	case CodeInvalidProtobuf:
		return "invalid protobuf"
	case CodeModelLoaded:
		return "model loaded"
	case CodeNotImplemented:
		return "not implemented"
	case CodeInvalidGraph:
		return "invalid graph"
	case CodeEPFail:
		return "execution provider failure"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// Status is a non-success OrtStatus converted at the ABI boundary.
type Status struct {
	Code    ErrorCode
	Message string
}

func (s *Status) Error() string {
	if s.Message == "" {
		return s.Code.String()
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

// Error kinds. Native failures are wrapped together with their *Status so
// both errors.Is and errors.As work on the result.
var (
	ErrEnvironmentCreation = errors.New("ort: environment creation failed")
	ErrTensorPredicate     = errors.New("ort: tensor check failed")
	ErrNotATensor          = errors.New("ort: value is not a tensor")
	ErrDataAccess          = errors.New("ort: tensor data access failed")

	ErrReleased  = errors.New("ort: handle already released")
	ErrBorrowed  = errors.New("ort: tensor has open views")
	ErrNoBackend = errors.New("ort: no backend registered")
)
