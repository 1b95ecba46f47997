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
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"golang.org/x/image/tiff"
)

// Write the first three bands of the cube to 16-bit RGB TIFF, mapping values
// from the given min, max onto the output range.
func (c *Cube) WriteTIFF16ToFile(fileName string, min, max float64) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	return c.WriteTIFF16(writer, min, max)
}

// Write the first three bands of the cube to 16-bit RGB TIFF, mapping values
// from the given min, max onto the output range.
func (c *Cube) WriteTIFF16(writer io.Writer, min, max float64) error {
	if c.NumBands() < 3 {
		return errors.New(fmt.Sprintf("need 3 bands for RGB output, image has %d", c.NumBands()))
	}

	// convert pixels into Golang Image
	width, height := c.Width, c.Height
	size := width * height
	img := image.NewRGBA64(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	scale := 1.0 / (max - min)
	for y := 0; y < height; y++ {
		yoffset := y * width
		for x := 0; x < width; x++ {
			r := c.Data[yoffset+x]
			g := c.Data[yoffset+x+size]
			b := c.Data[yoffset+x+size*2]
			r = (r - min) * scale
			g = (g - min) * scale
			b = (b - min) * scale
			// replace NaNs with zeros for export, else TIFF output breaks
			if math.IsNaN(r) || r < 0 {
				r = 0
			}
			if math.IsNaN(g) || g < 0 {
				g = 0
			}
			if math.IsNaN(b) || b < 0 {
				b = 0
			}
			if r > 1 {
				r = 1
			}
			if g > 1 {
				g = 1
			}
			if b > 1 {
				b = 1
			}
			col := color.RGBA64{uint16(r * 65535), uint16(g * 65535), uint16(b * 65535), 65535}
			img.SetRGBA64(x, y, col)
		}
	}

	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Write a single named band of the cube to 16-bit grayscale TIFF, mapping
// values from the given min, max onto the output range.
func (c *Cube) WriteMonoTIFF16ToFile(fileName, band string, min, max float64) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	return c.WriteMonoTIFF16(writer, band, min, max)
}

// Write a single named band of the cube to 16-bit grayscale TIFF, mapping
// values from the given min, max onto the output range.
func (c *Cube) WriteMonoTIFF16(writer io.Writer, band string, min, max float64) error {
	b, err := c.BandIndex(band)
	if err != nil {
		return err
	}
	plane := c.Band(b)

	// convert pixels into Golang Image
	width, height := c.Width, c.Height
	img := image.NewGray16(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	scale := 1.0 / (max - min)
	for y := 0; y < height; y++ {
		yoffset := y * width
		for x := 0; x < width; x++ {
			gray := plane[yoffset+x]
			gray = (gray - min) * scale
			// replace NaNs with zeros for export, else TIFF output breaks
			if math.IsNaN(gray) || gray < 0 {
				gray = 0
			}
			if gray > 1 {
				gray = 1
			}
			col := color.Gray16{uint16(gray * 65535)}
			img.SetGray16(x, y, col)
		}
	}

	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}
