// Copyright (C) 2025 The specmix authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package image

import (
	"bufio"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// fixed preview colors for the common cover class names
var classColors = map[string]colorful.Color{
	"soil":       {R: 0.72, G: 0.53, B: 0.28},
	"bare":       {R: 0.72, G: 0.53, B: 0.28},
	"pv":         {R: 0.13, G: 0.65, B: 0.20},
	"vegetation": {R: 0.13, G: 0.65, B: 0.20},
	"npv":        {R: 0.85, G: 0.80, B: 0.35},
	"burned":     {R: 0.75, G: 0.15, B: 0.10},
	"burn":       {R: 0.75, G: 0.15, B: 0.10},
	"impervious": {R: 0.55, G: 0.55, B: 0.60},
	"urban":      {R: 0.55, G: 0.55, B: 0.60},
}

// PreviewColor returns the display color for a cover class. Classes without a
// fixed color get an evenly spaced hue by band position.
func PreviewColor(name string, band, numBands int) colorful.Color {
	if col, ok := classColors[name]; ok {
		return col
	}
	return colorful.Hsv(float64(band)*360.0/float64(numBands), 0.85, 0.9)
}

// Write a false color preview of the cube to JPG, blending a color per band
// weighted by its cover fraction. Masked pixels come out black.
func (c *Cube) WritePreviewToFile(fileName string, quality int) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	return c.WritePreview(writer, quality)
}

// Write a false color preview of the cube to JPG, blending a color per band
// weighted by its cover fraction. Masked pixels come out black.
func (c *Cube) WritePreview(writer io.Writer, quality int) error {
	colors := make([]colorful.Color, c.NumBands())
	for b, name := range c.Names {
		colors[b] = PreviewColor(name, b, c.NumBands())
	}

	width, height := c.Width, c.Height
	size := width * height
	img := image.NewRGBA(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	for y := 0; y < height; y++ {
		yoffset := y * width
		for x := 0; x < width; x++ {
			// blend class colors in linear RGB, weighted by fraction
			var r, g, b float64
			masked := false
			for band := 0; band < c.NumBands(); band++ {
				f := c.Data[yoffset+x+band*size]
				if math.IsNaN(f) {
					masked = true
					break
				}
				if f < 0 {
					f = 0
				}
				if f > 1 {
					f = 1
				}
				lr, lg, lb := colors[band].LinearRgb()
				r += f * lr
				g += f * lg
				b += f * lb
			}
			if masked {
				img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
				continue
			}
			col := colorful.LinearRgb(r, g, b).Clamped()
			cr, cg, cb := col.RGB255()
			img.SetRGBA(x, y, color.RGBA{cr, cg, cb, 255})
		}
	}

	return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
}
