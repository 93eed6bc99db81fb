// MODUL: ortgo/main
// ZWECK: CLI fuer Environment-, Stress- und Inferenz-Tests der ONNX-Runtime-Bindings
// ABHAENGIGKEITEN: cmd, ort/backend/onnxruntime (Backend-Registrierung via init)

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/boydjohnson/onnxruntime/cmd"
	_ "github.com/boydjohnson/onnxruntime/ort/backend/onnxruntime"
)

func main() {
	if err := cmd.NewCLI().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
