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


// Adds src into dst elementwise
func addToPureGo(dst, src []float64) {
	for i, v:=range src {
		dst[i]+=v
	}
}

// Adds src into dst elementwise, unrolled four-wide for vectorization
func addToUnrolled(dst, src []float64) {
	i:=0
	for ; i<len(src)-3; i+=4 {
		dst[i  ]+=src[i  ]
		dst[i+1]+=src[i+1]
		dst[i+2]+=src[i+2]
		dst[i+3]+=src[i+3]
	}
	for ; i<len(src); i++ {
		dst[i]+=src[i]
	}
}

// Multiplies dst by s elementwise
func scalePureGo(dst []float64, s float64) {
	for i:=range dst {
		dst[i]*=s
	}
}

// Multiplies dst by s elementwise, unrolled four-wide for vectorization
func scaleUnrolled(dst []float64, s float64) {
	i:=0
	for ; i<len(dst)-3; i+=4 {
		dst[i  ]*=s
		dst[i+1]*=s
		dst[i+2]*=s
		dst[i+3]*=s
	}
	for ; i<len(dst); i++ {
		dst[i]*=s
	}
}
