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
	"errors"
	"fmt"
	"io"
	"strings"
	"github.com/earth-chris/specmix/internal/envi"
)

// ReadCubeFile loads an ENVI band-sequential raster and its header sidecar
func ReadCubeFile(path string, logWriter io.Writer) (c *Cube, err error) {
	hdrPath, err:=envi.FindHeader(path)
	if err!=nil { return nil, err }
	h, err:=envi.ReadHeaderFile(hdrPath)
	if err!=nil { return nil, err }
	if h.Interleave!="" && !strings.EqualFold(h.Interleave, "bsq") {
		return nil, errors.New(fmt.Sprintf("%s: interleave '%s' not supported, expect bsq", hdrPath, h.Interleave))
	}

	names:=h.BandNames
	if len(names)==0 {
		names=make([]string, h.Bands)
		for i:=range names { names[i]=fmt.Sprintf("Band %d", i+1) }
	}
	if len(names)!=h.Bands {
		return nil, errors.New(fmt.Sprintf("%s: header names %d bands for a %d band image", hdrPath, len(names), h.Bands))
	}

	data, err:=envi.ReadData(path, h)
	if err!=nil { return nil, err }

	c=&Cube{Width: h.Samples, Height: h.Lines, Names: names, Data: data}
	fmt.Fprintf(logWriter, "Loaded image %s with %d bands of %dx%d pixels\n", path, c.NumBands(), c.Width, c.Height)
	return c, nil
}

// WriteCubeFile stores the cube as ENVI band-sequential float32 raster with
// a header sidecar
func (c *Cube) WriteCubeFile(path string) error {
	h:=&envi.Header{
		Samples:    c.Width,
		Lines:      c.Height,
		Bands:      c.NumBands(),
		FileType:   envi.FileTypeStandard,
		DataType:   4,
		Interleave: "bsq",
		ByteOrder:  0,
		BandNames:  c.Names,
	}
	if err:=h.WriteFile(envi.HeaderPath(path)); err!=nil { return err }
	return envi.WriteData(path, c.Data)
}
