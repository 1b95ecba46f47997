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
	"bytes"
	"image/jpeg"
	"math"
	"testing"
)

func TestPreviewColor(t *testing.T) {
	if PreviewColor("soil", 0, 3) != PreviewColor("bare", 2, 5) {
		t.Error("soil and bare preview colors differ")
	}
	col := PreviewColor("pv", 0, 3)
	if col.R != 0.13 || col.G != 0.65 || col.B != 0.20 {
		t.Errorf("pv color %v", col)
	}
	if PreviewColor("other", 0, 4) == PreviewColor("other", 2, 4) {
		t.Error("fallback hues do not vary by band")
	}
}

// near8 compares an RGBA() channel against an 8-bit value, allowing for
// JPEG compression noise
func near8(v uint32, want int) bool {
	d := int(v>>8) - want
	if d < 0 {
		d = -d
	}
	return d <= 6
}

func TestWritePreview(t *testing.T) {
	const w, h = 8, 8
	soil := NewCube(w, h, []string{"soil"})
	for i := range soil.Data {
		soil.Data[i] = 1
	}

	var buf bytes.Buffer
	if err := soil.WritePreview(&buf, 95); err != nil {
		t.Fatal(err)
	}
	if buf.Len() < 2 || buf.Bytes()[0] != 0xff || buf.Bytes()[1] != 0xd8 {
		t.Fatal("not a JPEG stream")
	}
	img, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("bounds %v", img.Bounds())
	}
	r, g, b, _ := img.At(4, 4).RGBA()
	if !near8(r, 184) || !near8(g, 135) || !near8(b, 71) {
		t.Errorf("soil pixel %d,%d,%d", r>>8, g>>8, b>>8)
	}

	masked := NewCube(w, h, []string{"soil"})
	for i := range masked.Data {
		masked.Data[i] = math.NaN()
	}
	buf.Reset()
	if err := masked.WritePreview(&buf, 95); err != nil {
		t.Fatal(err)
	}
	img, err = jpeg.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ = img.At(4, 4).RGBA()
	if r>>8 > 4 || g>>8 > 4 || b>>8 > 4 {
		t.Errorf("masked pixel %d,%d,%d", r>>8, g>>8, b>>8)
	}
}
