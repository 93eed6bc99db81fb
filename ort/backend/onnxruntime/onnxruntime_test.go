// onnxruntime_test.go - Tests der nativen Anbindung ohne Modell
package onnxruntime

import (
	"errors"
	"math"
	"runtime"
	"testing"
	"unsafe"

	"github.com/x448/float16"

	"github.com/boydjohnson/onnxruntime/ort"
	"github.com/boydjohnson/onnxruntime/ort/orttest"
)

func cString(s string) (uintptr, []byte) {
	b := append([]byte(s), 0)
	return uintptr(unsafe.Pointer(&b[0])), b
}

// TestGoString prueft das Kopieren von C-Strings
func TestGoString(t *testing.T) {
	if got := goString(0); got != "" {
		t.Errorf("goString(0) = %q", got)
	}

	for _, s := range []string{"", "x", "onnxruntime 1.20.0"} {
		p, b := cString(s)
		got := goString(p)
		b[0] = 'Z'
		if got != s {
			t.Errorf("goString = %q, erwartet %q", got, s)
		}
	}
}

// TestEntry prueft das Lesen der Funktionszeiger-Tabelle
func TestEntry(t *testing.T) {
	table := [4]uintptr{0x10, 0x20, 0x30, 0x40}
	for i, want := range table {
		if got := entry(unsafe.Pointer(&table), i); got != want {
			t.Errorf("entry(%d) = %#x, erwartet %#x", i, got, want)
		}
	}
}

// TestLogTrampoline prueft die Weiterleitung und das Abfangen von Panics
func TestLogTrampoline(t *testing.T) {
	defer logReceiver.Store(nil)

	category, b1 := cString("VerifyEachNodeIsAssignedToAnEp")
	logID, b2 := cString("t")
	location, b3 := cString("session_state.cc:1234")
	message, b4 := cString("node placed on CPU")

	var got struct {
		severity                           ort.LoggingLevel
		category, logID, location, message string
	}
	var fn ort.LogFunc = func(severity ort.LoggingLevel, category, logID, location, message string) {
		got.severity = severity
		got.category, got.logID, got.location, got.message = category, logID, location, message
	}
	logReceiver.Store(&fn)

	logTrampoline(0, uintptr(ort.LoggingLevelWarning), category, logID, location, message)
	if got.severity != ort.LoggingLevelWarning || got.category != "VerifyEachNodeIsAssignedToAnEp" ||
		got.logID != "t" || got.location != "session_state.cc:1234" || got.message != "node placed on CPU" {
		t.Errorf("weitergeleitet: %+v", got)
	}

	var panicking ort.LogFunc = func(ort.LoggingLevel, string, string, string, string) {
		panic("receiver failed")
	}
	logReceiver.Store(&panicking)
	if r := logTrampoline(0, 0, 0, 0, 0, message); r != 0 {
		t.Errorf("logTrampoline = %d", r)
	}

	logReceiver.Store(nil)
	logTrampoline(0, 0, 0, 0, 0, message)

	runtime.KeepAlive([][]byte{b1, b2, b3, b4})
}

// TestTypeNames prueft die Namen von Element- und Optimierungstypen
func TestTypeNames(t *testing.T) {
	if s := ElementTypeFloat.String(); s != "float32" {
		t.Errorf("ElementTypeFloat = %q", s)
	}
	if s := ElementTypeBFloat16.String(); s != "bfloat16" {
		t.Errorf("ElementTypeBFloat16 = %q", s)
	}
	if s := ElementType(99).String(); s != "type(99)" {
		t.Errorf("ElementType(99) = %q", s)
	}

	for _, name := range []string{"disable", "basic", "Extended", "ALL"} {
		level, err := ParseGraphOptimizationLevel(name)
		if err != nil {
			t.Fatalf("ParseGraphOptimizationLevel(%q): %v", name, err)
		}
		if level.String() != map[string]string{"disable": "disable", "basic": "basic", "Extended": "extended", "ALL": "all"}[name] {
			t.Errorf("%q -> %v", name, level)
		}
	}
	if _, err := ParseGraphOptimizationLevel("max"); err == nil {
		t.Error("ParseGraphOptimizationLevel(max): Fehler erwartet")
	}
}

// TestNewSessionOptions prueft die Defaults aus der Umgebung
func TestNewSessionOptions(t *testing.T) {
	t.Setenv("ORT_GRAPH_OPTIMIZATION", "basic")
	t.Setenv("ORT_INTRA_OP_THREADS", "4")
	t.Setenv("ORT_INTER_OP_THREADS", "")

	o := NewSessionOptions()
	if o.optimization != GraphOptimizationBasic || o.intraOp != 4 || o.interOp != 0 {
		t.Errorf("NewSessionOptions() = %+v", *o)
	}

	o.WithGraphOptimizationLevel(GraphOptimizationDisable).WithIntraOpNumThreads(1).WithInterOpNumThreads(2)
	if o.optimization != GraphOptimizationDisable || o.intraOp != 1 || o.interOp != 2 {
		t.Errorf("With... = %+v", *o)
	}
}

// TestNewSessionForeignBackend prueft, dass Sessions nur mit dieser Library entstehen
func TestNewSessionForeignBackend(t *testing.T) {
	fake := orttest.New()
	env, err := ort.NewEnvBuilder().WithABI(fake).WithName("foreign").Build()
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	if _, err := NewSession(env, "model.onnx", nil); err == nil {
		t.Fatal("NewSession: Fehler erwartet")
	}
	if fake.EnvReleases() != 0 {
		t.Errorf("Environment freigegeben: %d", fake.EnvReleases())
	}
}

// TestOpenMissingLibrary prueft den Fehler fuer eine fehlende Library
func TestOpenMissingLibrary(t *testing.T) {
	if _, err := Open(t.TempDir() + "/libonnxruntime-missing.so"); err == nil {
		t.Fatal("Open: Fehler erwartet")
	}
}

// TestRuntimeEnvironment laeuft nur mit installierter Library
func TestRuntimeEnvironment(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Skipf("onnxruntime nicht verfuegbar: %v", err)
	}

	env, err := ort.NewEnvBuilder().WithABI(r).WithName("t").Build()
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	if h, err := env.Handle(); err != nil || h == 0 {
		t.Errorf("Handle() = %#x, %v", uintptr(h), err)
	}

	_, err = NewSession(env, t.TempDir()+"/missing.onnx", nil)
	var status *ort.Status
	if !errors.As(err, &status) {
		t.Fatalf("NewSession: *ort.Status erwartet, erhalten %v", err)
	}
}

type celsius float32

// TestElementTypeOf prueft die Abbildung der Go-Typen auf Elementtypen
func TestElementTypeOf(t *testing.T) {
	cases := []struct {
		got  ElementType
		want ElementType
	}{
		{elementTypeOf[float32](), ElementTypeFloat},
		{elementTypeOf[float64](), ElementTypeDouble},
		{elementTypeOf[int64](), ElementTypeInt64},
		{elementTypeOf[uint8](), ElementTypeUint8},
		{elementTypeOf[bool](), ElementTypeBool},
		{elementTypeOf[float16.Float16](), ElementTypeFloat16},
		{elementTypeOf[ort.BFloat16](), ElementTypeBFloat16},
		{elementTypeOf[uint16](), ElementTypeUint16},
		{elementTypeOf[celsius](), ElementTypeUndefined},
	}

	for _, tt := range cases {
		if tt.got != tt.want {
			t.Errorf("elementTypeOf = %v, erwartet %v", tt.got, tt.want)
		}
	}
}

// TestTensorLayout prueft Form, Typ und Groesse der Eingaben
func TestTensorLayout(t *testing.T) {
	data := []int64{1, 2, 3, 4, 5, 6}
	shape, typ, p, size, err := tensorLayout(InputTensor[int64]{Shape: []int{2, 3}, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Errorf("shape = %v", shape)
	}
	if typ != ElementTypeInt64 || size != 48 || p != unsafe.Pointer(&data[0]) {
		t.Errorf("layout = %v, %d, %p", typ, size, p)
	}

	_, typ, p, size, err = tensorLayout(InputTensor[float16.Float16]{Shape: []int{3, 0}})
	if err != nil || typ != ElementTypeFloat16 || p != nil || size != 0 {
		t.Errorf("leere Eingabe = %v, %p, %d, %v", typ, p, size, err)
	}

	for name, in := range map[string]Input{
		"zu wenige Werte":    InputTensor[float32]{Shape: []int{1, 4}, Data: []float32{1, 2}},
		"negative Dimension": InputTensor[float32]{Shape: []int{-1}, Data: []float32{1}},
		"Ueberlauf":          InputTensor[float32]{Shape: []int{math.MaxInt>>16 + 1, 1 << 16}, Data: []float32{1}},
		"unbekannter Typ":    InputTensor[celsius]{Shape: []int{1}, Data: []celsius{21}},
	} {
		if _, _, _, _, err := tensorLayout(in); err == nil {
			t.Errorf("%s: Fehler erwartet", name)
		}
	}
}
