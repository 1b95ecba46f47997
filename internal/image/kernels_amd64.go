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

// +build amd64

package image

import (
    "github.com/klauspost/cpuid"
)


// Adds src into dst elementwise
func addTo(dst, src []float64) {
    if cpuid.CPU.AVX2() {
      addToUnrolled(dst, src)
    } else {
      addToPureGo(dst, src)
    }
}

// Multiplies dst by s elementwise
func scaleTo(dst []float64, s float64) {
    if cpuid.CPU.AVX2() {
      scaleUnrolled(dst, s)
    } else {
      scalePureGo(dst, s)
    }
}
