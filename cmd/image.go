// image.go - Bild-Eingaben fuer den run Command
// Hauptfunktionen: loadGray, planes
package cmd

import (
	"fmt"
	"image"
	"os"

	// Standard-Decoder registrieren
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// loadGray dekodiert ein Bild, skaliert es auf width x height und liefert
// Grauwerte in [0, 1] zeilenweise
func loadGray(path string, width, height int) ([]float32, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size: %dx%d", width, height)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	values := make([]float32, width*height)
	for i, p := range dst.Pix[:len(values)] {
		values[i] = float32(p) / 255
	}
	return values, nil
}

// planes wiederholt eine Bildebene, bis alle Werte einer NCHW-Form gefuellt sind
func planes(plane []float32, total int) []float32 {
	data := make([]float32, total)
	for i := 0; i < total; i += len(plane) {
		copy(data[i:], plane)
	}
	return data
}
