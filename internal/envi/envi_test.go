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


package envi

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h:=&Header{
		Description:     "unit test library",
		Samples:         3,
		Lines:           2,
		Bands:           1,
		FileType:        FileTypeLibrary,
		DataType:        4,
		Interleave:      "bsq",
		ByteOrder:       0,
		WavelengthUnits: "Nanometers",
		SpectraNames:    []string{"alpha", "beta"},
		Wavelength:      []float64{500, 600, 700},
	}

	b:=strings.Builder{}
	if err:=h.Write(&b); err!=nil { t.Fatalf("write: %s", err.Error()) }

	got, err:=ReadHeader(strings.NewReader(b.String()))
	if err!=nil { t.Fatalf("read: %s", err.Error()) }

	if got.Samples!=h.Samples || got.Lines!=h.Lines || got.Bands!=h.Bands {
		t.Errorf("dimensions got %dx%dx%d expect %dx%dx%d", got.Samples, got.Lines, got.Bands, h.Samples, h.Lines, h.Bands)
	}
	if got.FileType!=FileTypeLibrary { t.Errorf("file type got %q", got.FileType) }
	if got.WavelengthUnits!="Nanometers" { t.Errorf("wavelength units got %q", got.WavelengthUnits) }
	if len(got.SpectraNames)!=2 || got.SpectraNames[0]!="alpha" || got.SpectraNames[1]!="beta" {
		t.Errorf("spectra names got %v", got.SpectraNames)
	}
	for i, w:=range h.Wavelength {
		if got.Wavelength[i]!=w { t.Errorf("wavelength[%d] got %f expect %f", i, got.Wavelength[i], w) }
	}
}

func TestHeaderMultiLineList(t *testing.T) {
	text:="ENVI\n"+
		"samples = 2\n"+
		"lines = 2\n"+
		"bands = 1\n"+
		"data type = 4\n"+
		"spectra names = {\n"+
		" one,\n"+
		" two}\n"+
		"wavelength = { 400.0,\n 410.0 }\n"
	h, err:=ReadHeader(strings.NewReader(text))
	if err!=nil { t.Fatalf("read: %s", err.Error()) }
	if len(h.SpectraNames)!=2 || h.SpectraNames[1]!="two" { t.Errorf("spectra names got %v", h.SpectraNames) }
	if len(h.Wavelength)!=2 || h.Wavelength[1]!=410 { t.Errorf("wavelength got %v", h.Wavelength) }
}

func TestHeaderRejectsGarbage(t *testing.T) {
	if _, err:=ReadHeader(strings.NewReader("not a header\n")); err==nil {
		t.Errorf("expected error for missing magic")
	}
	if _, err:=ReadHeader(strings.NewReader("ENVI\nsamples = 0\nlines = 1\nbands = 1\n")); err==nil {
		t.Errorf("expected error for zero samples")
	}
}

func TestDataRoundTrip(t *testing.T) {
	dir:=t.TempDir()
	path:=filepath.Join(dir, "lib.sli")
	data:=[]float64{0.25, 0.5, 0.75, 1.0, 0, 0.125}
	if err:=WriteData(path, data); err!=nil { t.Fatalf("write data: %s", err.Error()) }

	h:=&Header{Samples: 3, Lines: 2, Bands: 1, DataType: 4, ByteOrder: 0, Interleave: "bsq"}
	got, err:=ReadData(path, h)
	if err!=nil { t.Fatalf("read data: %s", err.Error()) }
	if len(got)!=len(data) { t.Fatalf("length got %d expect %d", len(got), len(data)) }
	for i, v:=range data {
		if math.Abs(got[i]-v)>1e-7 { t.Errorf("data[%d] got %f expect %f", i, got[i], v) }
	}
}

func TestHeaderPath(t *testing.T) {
	if p:=HeaderPath("dir/spectra.sli"); p!="dir/spectra.hdr" { t.Errorf("got %s", p) }
	if p:=HeaderPath("cube.bsq"); p!="cube.hdr" { t.Errorf("got %s", p) }
	if p:=HeaderPath("bare"); p!="bare.hdr" { t.Errorf("got %s", p) }
}
