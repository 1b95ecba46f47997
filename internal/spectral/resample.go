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


package spectral

import (
	"errors"
	"fmt"
	"math"
)

// FWHM = 2*sqrt(2*ln 2) * sigma for a Gaussian response
const fwhmToSigma = 1.0/2.354820045030949

// Gaussian response support cutoff, in multiples of the band FWHM
const responseCutoff = 2.0

// A BandResampler converts spectra from a fine source wavelength grid to a
// sensor's band centers, modeling each target band as a Gaussian response
// with the given full width at half maximum. Source channels holding NaN are
// skipped and the remaining weights renormalized; target bands with no source
// coverage resample to NaN
type BandResampler struct {
	src     []float64
	dst     []float64
	weights []bandWeights
}

type bandWeights struct {
	start int       // first source channel with nonzero response
	w     []float64 // normalized response per covered source channel
}

// Creates a resampler from a strictly increasing source grid to target band
// centers with per-band FWHM, all in the same wavelength unit
func NewBandResampler(srcCenters, dstCenters, dstFWHM []float64) (r *BandResampler, err error) {
	if len(dstCenters)!=len(dstFWHM) {
		return nil, errors.New(fmt.Sprintf("resampler has %d target centers but %d FWHM values", len(dstCenters), len(dstFWHM)))
	}
	for i:=1; i<len(srcCenters); i++ {
		if !(srcCenters[i]>srcCenters[i-1]) {
			return nil, errors.New(fmt.Sprintf("source wavelengths not strictly increasing at channel %d", i))
		}
	}

	r=&BandResampler{
		src:     append([]float64(nil), srcCenters...),
		dst:     append([]float64(nil), dstCenters...),
		weights: make([]bandWeights, len(dstCenters)),
	}
	for j, center:=range dstCenters {
		fwhm:=dstFWHM[j]
		if !(fwhm>0) { return nil, errors.New(fmt.Sprintf("target band %d has non-positive FWHM %g", j, fwhm)) }
		r.weights[j]=buildWeights(r.src, center, fwhm)
	}
	return r, nil
}

// Samples the Gaussian response of one target band at the source channels
// within the support window, and normalizes the weights to sum to one
func buildWeights(src []float64, center, fwhm float64) bandWeights {
	sigma:=fwhm*fwhmToSigma
	lo, hi:=center-responseCutoff*fwhm, center+responseCutoff*fwhm

	start:=-1
	w:=[]float64(nil)
	sum:=0.0
	for i, x:=range src {
		if x<lo { continue }
		if x>hi { break }
		if start<0 { start=i }
		d:=x-center
		v:=math.Exp(-d*d/(2*sigma*sigma))
		w=append(w, v)
		sum+=v
	}
	if sum==0 { return bandWeights{} } // no coverage
	for i:=range w { w[i]/=sum }
	return bandWeights{start: start, w: w}
}

// Number of target bands
func (r *BandResampler) NumBands() int { return len(r.dst) }

// Resample converts one spectrum from the source grid to the target bands
func (r *BandResampler) Resample(values []float64) (out []float64, err error) {
	if len(values)!=len(r.src) {
		return nil, errors.New(fmt.Sprintf("spectrum has %d channels, resampler expects %d", len(values), len(r.src)))
	}
	out=make([]float64, len(r.dst))
	for j:=range out {
		out[j]=r.resampleBand(values, j)
	}
	return out, nil
}

func (r *BandResampler) resampleBand(values []float64, j int) float64 {
	bw:=r.weights[j]
	if bw.w==nil { return math.NaN() }

	sum, wsum:=0.0, 0.0
	for o, w:=range bw.w {
		v:=values[bw.start+o]
		if math.IsNaN(v) { continue }
		sum+=v*w
		wsum+=w
	}
	if wsum==0 { return math.NaN() }
	return sum/wsum
}

// Resample converts every spectrum in the library to the target grid
func (l *Library) Resample(centers, fwhm []float64) (*Library, error) {
	r, err:=NewBandResampler(l.Centers, centers, fwhm)
	if err!=nil { return nil, err }

	data:=make([]float64, l.NumSpectra()*len(centers))
	for row:=0; row<l.NumSpectra(); row++ {
		out, err:=r.Resample(l.Row(row))
		if err!=nil { return nil, err }
		copy(data[row*len(centers):(row+1)*len(centers)], out)
	}
	return &Library{
		Names:   append([]string(nil), l.Names...),
		Classes: append([]Classification(nil), l.Classes...),
		Centers: append([]float64(nil), centers...),
		Data:    data,
	}, nil
}
