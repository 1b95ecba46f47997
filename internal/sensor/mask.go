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


package sensor

import (
	"github.com/earth-chris/specmix/internal/image"
)

// ScaleReflectance converts raw pixel values to reflectance in the 0-1 range
// using the profile's scale and offset factors
func (p *Profile) ScaleReflectance(alg image.Algebra, img image.Ref) (image.Ref, error) {
	scaled, err:=alg.Multiply(img, alg.Constant(p.Scale, "scale"))
	if err!=nil { return nil, err }
	if p.Offset==0 { return scaled, nil }
	return alg.Add(scaled, alg.Constant(p.Offset, "offset"))
}

// MaskClouds turns off all pixels whose QA band flags one of the profile's
// cloud bits. Apply before scaling, the bit tests need raw QA values.
// Sensors without a QA band pass the image through unchanged
func (p *Profile) MaskClouds(alg image.Algebra, img image.Ref) (image.Ref, error) {
	if p.QA==nil { return img, nil }
	qa, err:=alg.Select(img, []string{p.QA.Band})
	if err!=nil { return nil, err }

	var mask image.Ref
	for _, bit:=range p.QA.Bits {
		flagged, err:=alg.BitwiseAnd(qa, int64(1)<<bit)
		if err!=nil { return nil, err }
		pass, err:=alg.Eq(flagged, 0)
		if err!=nil { return nil, err }
		if mask==nil {
			mask=pass
		} else {
			if mask, err=alg.And(mask, pass); err!=nil { return nil, err }
		}
	}
	return alg.UpdateMask(img, mask)
}
