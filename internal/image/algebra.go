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

// Algebra is the per-pixel image arithmetic the unmixing engine is written
// against. All binary operations match bands pairwise; an operand with a
// single band is applied against every band of the other operand. NaN samples
// propagate through every operation, and division by zero yields zero for
// non-NaN operands
type Algebra interface {
	// Constant returns a single-band image holding the same value everywhere
	Constant(value float64, name string) Ref

	// Select picks bands by name, in the given order
	Select(img Ref, names []string) (Ref, error)
	// SelectIndices picks bands by position and renames them. A nil names
	// slice keeps the existing names
	SelectIndices(img Ref, indices []int, names []string) (Ref, error)
	// Rename relabels all bands
	Rename(img Ref, names []string) (Ref, error)
	// AddBands concatenates the bands of further images of the same extent
	AddBands(img Ref, more ...Ref) (Ref, error)

	Add(a, b Ref) (Ref, error)
	Subtract(a, b Ref) (Ref, error)
	Multiply(a, b Ref) (Ref, error)
	Divide(a, b Ref) (Ref, error)
	Pow(img Ref, exp float64) (Ref, error)
	Sqrt(img Ref) (Ref, error)
	Abs(img Ref) (Ref, error)

	// ReduceSum sums all bands per pixel into a single band with the given name
	ReduceSum(img Ref, name string) (Ref, error)
	// SumImages reduces a collection to its per-pixel, per-band sum
	SumImages(imgs []Ref) (Ref, error)
	// MeanImages reduces a collection to its per-pixel, per-band mean
	MeanImages(imgs []Ref) (Ref, error)

	// BitwiseAnd truncates samples to integers and masks them against bits
	BitwiseAnd(img Ref, bits int64) (Ref, error)
	// Eq tests samples for equality with a value, yielding 1 or 0
	Eq(img Ref, value float64) (Ref, error)
	// And is the logical conjunction of two boolean images
	And(a, b Ref) (Ref, error)
	// UpdateMask turns off every pixel whose mask sample is zero or NaN
	UpdateMask(img, mask Ref) (Ref, error)

	// Unmix solves the linear mixture of the endmember spectra for each pixel,
	// returning one fraction band per endmember named band_0..band_k-1.
	// With sumToOne the fractions are constrained to sum to one, with
	// nonNegative they are constrained to be non-negative
	Unmix(img Ref, endmembers [][]float64, sumToOne, nonNegative bool) (Ref, error)

	// Materialize evaluates the reference into a dense cube
	Materialize(img Ref) (*Cube, error)
}
