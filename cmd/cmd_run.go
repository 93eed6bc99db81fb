// cmd_run.go - Run Command Handler
// Hauptfunktionen: RunHandler, parseShape, summarize
package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/boydjohnson/onnxruntime/ort"
	"github.com/boydjohnson/onnxruntime/ort/backend/onnxruntime"
)

// RunHandler - Fuehrt ein Modell einmal aus und fasst die Ausgaben zusammen
func RunHandler(cmd *cobra.Command, args []string) error {
	env, err := envBuilder().Build()
	if err != nil {
		return err
	}
	defer env.Close()

	session, err := onnxruntime.NewSession(env, args[0], nil)
	if err != nil {
		return err
	}
	defer session.Close()

	if n := len(session.Inputs()); n != 1 {
		return fmt.Errorf("model has %d inputs, run supports exactly one", n)
	}
	info := session.Inputs()[0]
	if info.Type != onnxruntime.ElementTypeFloat {
		return fmt.Errorf("input %s is %s, run supports float32", info.Name, info.Type)
	}

	shape := resolveShape(info.Shape)
	if s, _ := cmd.Flags().GetString("shape"); s != "" {
		if shape, err = parseShape(s); err != nil {
			return err
		}
	}

	input, err := inputData(cmd, shape)
	if err != nil {
		return err
	}

	outputs, err := session.Run([]onnxruntime.Input{onnxruntime.InputTensor[float32]{Shape: shape, Data: input}})
	if err != nil {
		return err
	}
	defer func() {
		for _, o := range outputs {
			o.Release()
		}
	}()

	top, _ := cmd.Flags().GetInt("top")

	var data [][]string
	for _, o := range outputs {
		row, err := summarize(o, top)
		if err != nil {
			return err
		}
		data = append(data, row)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"OUTPUT", "TYPE", "SHAPE", "VALUES", "ARGMAX"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

// parseShape liest eine Form wie "1,1,28,28"
func parseShape(s string) ([]int, error) {
	var shape []int
	for _, field := range strings.Split(s, ",") {
		dim, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || dim < 0 {
			return nil, fmt.Errorf("invalid value for --shape: %q", s)
		}
		shape = append(shape, dim)
	}
	return shape, nil
}

// resolveShape setzt dynamische Dimensionen auf 1
func resolveShape(shape []int) []int {
	resolved := make([]int, len(shape))
	for i, dim := range shape {
		resolved[i] = max(dim, 1)
	}
	return resolved
}

func inputData(cmd *cobra.Command, shape []int) ([]float32, error) {
	total, err := ort.ElementCount(shape)
	if err != nil {
		return nil, err
	}

	path, _ := cmd.Flags().GetString("image")
	if path == "" {
		return make([]float32, total), nil
	}

	if len(shape) < 2 {
		return nil, fmt.Errorf("image input needs at least two dimensions, shape is %v", shape)
	}

	plane, err := loadGray(path, shape[len(shape)-1], shape[len(shape)-2])
	if err != nil {
		return nil, err
	}
	return planes(plane, total), nil
}

// summarize liefert eine Tabellenzeile; nur numerische Tensoren werden gelesen
func summarize(o onnxruntime.Output, top int) ([]string, error) {
	row := []string{o.Name, o.Type.String(), fmt.Sprint(o.Shape()), "-", "-"}

	var values []float64
	var err error
	switch o.Type {
	case onnxruntime.ElementTypeFloat:
		values, err = widen[float32](o.OutputTensor)
	case onnxruntime.ElementTypeDouble:
		values, err = widen[float64](o.OutputTensor)
	case onnxruntime.ElementTypeInt32:
		values, err = widen[int32](o.OutputTensor)
	case onnxruntime.ElementTypeInt64:
		values, err = widen[int64](o.OutputTensor)
	default:
		return row, nil
	}
	if err != nil {
		return nil, err
	} else if len(values) == 0 {
		return row, nil
	}

	head := values[:min(top, len(values))]
	parts := make([]string, len(head))
	for i, v := range head {
		parts[i] = strconv.FormatFloat(v, 'g', 4, 64)
	}
	if len(head) < len(values) {
		parts = append(parts, "...")
	}

	row[3] = strings.Join(parts, " ")
	row[4] = strconv.Itoa(floats.MaxIdx(values))
	return row, nil
}

// widen kopiert die Werte ueber eine Sicht als float64 heraus
func widen[T float32 | float64 | int32 | int64](t *ort.OutputTensor) (values []float64, err error) {
	view, err := ort.AsSlice[T](t)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, view.Close())
	}()

	err = view.Do(func(data []T) {
		values = make([]float64, len(data))
		for i, v := range data {
			values[i] = float64(v)
		}
	})
	return values, err
}
