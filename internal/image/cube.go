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


// Package image provides the multi-band raster type and the pixel algebra the
// unmixing engine runs on. Masked pixels are carried as NaN
package image

import (
	"errors"
	"fmt"
	"math"
)

// Ref is a handle to an image inside an Algebra. The dense backend hands out
// *Cube values directly; other backends may defer computation
type Ref interface {
	Bands() []string
}

// Cube is a band-sequential raster: Data holds len(Names) planes of
// Width*Height float64 samples each
type Cube struct {
	Width  int
	Height int
	Names  []string
	Data   []float64
}

// NewCube allocates a zeroed cube of the given extent
func NewCube(width, height int, names []string) *Cube {
	return &Cube{
		Width:  width,
		Height: height,
		Names:  append([]string{}, names...),
		Data:   make([]float64, width*height*len(names)),
	}
}

func (c *Cube) Bands() []string { return c.Names }

func (c *Cube) NumBands() int { return len(c.Names) }

// Pixels returns the number of samples per band
func (c *Cube) Pixels() int { return c.Width*c.Height }

// Band returns the plane for band index b, sharing the cube's storage
func (c *Cube) Band(b int) []float64 {
	pix:=c.Pixels()
	return c.Data[b*pix : (b+1)*pix]
}

// BandIndex resolves a band name to its index
func (c *Cube) BandIndex(name string) (int, error) {
	for i, n:=range c.Names {
		if n==name { return i, nil }
	}
	return -1, errors.New(fmt.Sprintf("no band '%s' in image with bands %v", name, c.Names))
}

// At reads the sample for band b at position x,y
func (c *Cube) At(b, x, y int) float64 { return c.Data[b*c.Pixels()+y*c.Width+x] }

// Set writes the sample for band b at position x,y
func (c *Cube) Set(b, x, y int, v float64) { c.Data[b*c.Pixels()+y*c.Width+x]=v }

// PixelSpectrum gathers the values of all bands at position x,y
func (c *Cube) PixelSpectrum(x, y int) []float64 {
	s:=make([]float64, c.NumBands())
	pix, off:=c.Pixels(), y*c.Width+x
	for b:=range s { s[b]=c.Data[b*pix+off] }
	return s
}

// CountNaN returns the number of NaN samples across all bands
func (c *Cube) CountNaN() (n int) {
	for _, v:=range c.Data {
		if math.IsNaN(v) { n++ }
	}
	return n
}

func (c *Cube) clone() *Cube {
	d:=&Cube{Width: c.Width, Height: c.Height}
	d.Names=append([]string{}, c.Names...)
	d.Data=append([]float64{}, c.Data...)
	return d
}
