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


package unmix

import (
	"errors"
	"fmt"
	"strings"
	"github.com/earth-chris/specmix/internal/image"
)

// Options for the fractional cover ensemble
type CoverOptions struct {
	ShadeNormalize bool // unmix with a photometric shade endmember and rescale the fractions without it
	KeepRMSE       bool // retain the fused RMSE band in the output
}

// A promise for one unmixed ensemble draw. Returns the materialized draw, or an error
type promise func() (image.Ref, error)

// Materializes all promises with given concurrency limit
func materializeAll(ins []promise, maxThreads int) (outs []image.Ref, err error) {
	if len(ins)==0 { return nil, nil }
	outs=make([]image.Ref, len(ins))
	limiter:=make(chan bool, maxThreads)
	errs   :=make(chan error, len(ins))
	for i, in:=range ins {
		limiter <- true
		go func(i int, theIn promise) {
			defer func() { <-limiter }()
			f, err:=theIn() // materialize the promise
			if err!=nil {
				errs <- err
				return
			}
			outs[i]=f
			errs <- nil
		}(i, in)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}
	for i:=0; i<len(ins); i++ {  // collect errors
		e:=<-errs
		if e!=nil {
			if err==nil {
				err=e
			} else {
				err=errors.New(fmt.Sprintf("%s; %s", err.Error(), e.Error()))
			}
		}
	}
	if err!=nil { return nil, err }
	return outs, nil
}

// FractionalCover unmixes an image against an ensemble of endmember draws and
// fuses the draws into per-class cover fractions. Each endmember set holds the
// same number of draws, one spectrum per draw; draw i unmixes the image
// against the i-th spectrum of every class. Draws are fused by an inverse
// share of the summed unmixing error, so draws that model a pixel well weigh
// in more. The output holds one fraction band per class, in class name order,
// plus the fused RMSE band if requested
func FractionalCover(c *Context, alg image.Algebra, img image.Ref, sets []*EndmemberSet, names []string, nBands int, opts CoverOptions) (out image.Ref, err error) {
	if len(sets)==0 { return nil, errors.New("fractional cover with no endmember sets") }
	if len(names)!=len(sets) {
		return nil, errors.New(fmt.Sprintf("%d class names for %d endmember sets", len(names), len(sets)))
	}
	nDraws:=sets[0].NumDraws()
	for _, set:=range sets {
		if set.NumDraws()!=nDraws {
			return nil, &EndmemberSetSizeMismatchError{Class: set.Class, Len: set.NumDraws(), Want: nDraws}
		}
		for _, spectrum:=range set.Spectra {
			if len(spectrum)!=nBands {
				return nil, errors.New(fmt.Sprintf("class '%s' endmembers have %d bands, expect %d", set.Class, len(spectrum), nBands))
			}
		}
	}
	if nDraws==0 { return nil, errors.New("endmember sets hold no draws") }
	if len(img.Bands())!=nBands {
		return nil, errors.New(fmt.Sprintf("image has %d bands, expect %d", len(img.Bands()), nBands))
	}

	fmt.Fprintf(c.Log, "Unmixing %d draws of classes %s on %d bands\n", nDraws, strings.Join(names, ", "), nBands)
	maxThreads:=c.MaxThreads
	if maxThreads<1 { maxThreads=1 }
	if cube, ok:=img.(*image.Cube); ok && c.MemoryMB>0 {
		// each in-flight draw holds fraction, modeled and residual planes
		drawMB:=cube.Pixels()*(3*nBands+2*len(sets)+4)*8/1024/1024
		if drawMB>0 && c.MemoryMB/(2*drawMB)<maxThreads {
			maxThreads=c.MemoryMB/(2*drawMB)
			if maxThreads<1 { maxThreads=1 }
			fmt.Fprintf(c.Log, "Limiting to %d concurrent draws to stay within %d MB\n", maxThreads, c.MemoryMB)
		}
	}

	promises:=make([]promise, nDraws)
	for i:=range promises {
		draw:=i
		promises[i]=func() (image.Ref, error) {
			return unmixDraw(c, alg, img, sets, names, draw, nBands, opts.ShadeNormalize)
		}
	}
	unmixed, err:=materializeAll(promises, maxThreads)
	if err!=nil { return nil, err }

	keep:=append([]string{}, names...)
	if opts.KeepRMSE { keep=append(keep, "RMSE") }
	if nDraws==1 {
		// a single draw has nothing to fuse against, pass it through unweighted
		return alg.Select(unmixed[0], keep)
	}

	rmseBands:=make([]image.Ref, nDraws)
	for i, u:=range unmixed {
		if rmseBands[i], err=alg.Select(u, []string{"RMSE"}); err!=nil { return nil, err }
	}
	rmseSum, err:=alg.SumImages(rmseBands)
	if err!=nil { return nil, err }
	if rmseSum, err=alg.Rename(rmseSum, []string{"SUM"}); err!=nil { return nil, err }

	unscaled   :=make([]image.Ref, nDraws)
	weightBands:=make([]image.Ref, nDraws)
	for i, u:=range unmixed {
		if unscaled[i], err=computeWeight(alg, u, rmseSum); err!=nil { return nil, err }
		if weightBands[i], err=alg.Select(unscaled[i], []string{"weight"}); err!=nil { return nil, err }
	}
	weightSum, err:=alg.SumImages(weightBands)
	if err!=nil { return nil, err }

	scaled:=make([]image.Ref, nDraws)
	for i, u:=range unscaled {
		if scaled[i], err=weightedAverage(alg, u, weightSum); err!=nil { return nil, err }
	}
	fused, err:=alg.SumImages(scaled)
	if err!=nil { return nil, err }
	return alg.Select(fused, keep)
}

// Unmixes one ensemble draw, returning the class fraction bands named after
// their classes plus an RMSE band
func unmixDraw(c *Context, alg image.Algebra, img image.Ref, sets []*EndmemberSet, names []string, draw, nBands int, shadeNormalize bool) (out image.Ref, err error) {
	spectra:=make([][]float64, len(sets), len(sets)+1)
	for i, set:=range sets { spectra[i]=set.Spectra[draw] }
	if shadeNormalize {
		spectra=append(spectra, make([]float64, nBands)) // photometric shade, zero reflectance in every band
	}

	fractions, err:=alg.Unmix(img, spectra, true, true)
	if err!=nil { return nil, err }
	modeled, err:=computeModeledSpectra(alg, spectra, fractions, nBands)
	if err!=nil { return nil, err }
	rmse, err:=computeSpectralRMSE(alg, img, modeled)
	if err!=nil { return nil, err }

	if shadeNormalize {
		if fractions, err=shadeNormalized(c, alg, fractions, len(sets), draw); err!=nil { return nil, err }
	}

	indices:=make([]int, len(sets))
	for i:=range indices { indices[i]=i }
	classBands, err:=alg.SelectIndices(fractions, indices, names)
	if err!=nil { return nil, err }
	return alg.AddBands(classBands, rmse)
}

// Reconstructs each pixel's modeled reflectance as the fraction-weighted sum
// of the endmember spectra
func computeModeledSpectra(alg image.Algebra, spectra [][]float64, fractions image.Ref, nBands int) (modeled image.Ref, err error) {
	bandNames:=make([]string, nBands)
	for b:=range bandNames { bandNames[b]=fmt.Sprintf("M%02d", b) }

	perClass:=make([]image.Ref, len(spectra))
	for i, spectrum:=range spectra {
		fraction, err:=alg.SelectIndices(fractions, []int{i}, nil)
		if err!=nil { return nil, err }
		bands:=make([]image.Ref, nBands)
		for b, value:=range spectrum {
			if bands[b], err=alg.Multiply(fraction, alg.Constant(value, bandNames[b])); err!=nil { return nil, err }
		}
		img, err:=alg.AddBands(bands[0], bands[1:]...)
		if err!=nil { return nil, err }
		if perClass[i], err=alg.Rename(img, bandNames); err!=nil { return nil, err }
	}
	return alg.SumImages(perClass)
}

// Measures the per-pixel distance between measured and modeled reflectance as
// the root of the summed squared band residuals
func computeSpectralRMSE(alg image.Algebra, measured, modeled image.Ref) (rmse image.Ref, err error) {
	diff, err:=alg.Subtract(measured, modeled)
	if err!=nil { return nil, err }
	if diff, err=alg.Pow(diff, 2); err!=nil { return nil, err }
	if diff, err=alg.ReduceSum(diff, "RMSE"); err!=nil { return nil, err }
	return alg.Sqrt(diff)
}

// Rescales the material fractions of one draw to sum to one without the shade
// fraction. Fully shaded pixels cannot be rescaled; they are masked to NaN and
// reported on the log
func shadeNormalized(c *Context, alg image.Algebra, fractions image.Ref, shadeIndex, draw int) (out image.Ref, err error) {
	shade, err:=alg.SelectIndices(fractions, []int{shadeIndex}, []string{"shade"})
	if err!=nil { return nil, err }
	diff, err:=alg.Subtract(shade, alg.Constant(1, "one"))
	if err!=nil { return nil, err }
	shadeFraction, err:=alg.Abs(diff)
	if err!=nil { return nil, err }

	cube, err:=alg.Materialize(shadeFraction)
	if err!=nil { return nil, err }
	degenerate:=0
	for _, v:=range cube.Band(0) {
		if v==0 { degenerate++ }
	}
	if degenerate>0 {
		e:=DegenerateUnmixError{Draw: draw, Pixels: degenerate}
		fmt.Fprintf(c.Log, "Warning: %s\n", e.Error())
	}

	if fractions, err=alg.UpdateMask(fractions, shadeFraction); err!=nil { return nil, err }
	return alg.Divide(fractions, shadeFraction)
}

// Scores one draw by the inverse share of its RMSE in the summed ensemble
// RMSE, appending weight and ratio bands
func computeWeight(alg image.Algebra, fractions, rmseSum image.Ref) (out image.Ref, err error) {
	rmse, err:=alg.Select(fractions, []string{"RMSE"})
	if err!=nil { return nil, err }
	ratio, err:=alg.Divide(rmse, rmseSum)
	if err!=nil { return nil, err }
	if ratio, err=alg.Rename(ratio, []string{"ratio"}); err!=nil { return nil, err }
	weight, err:=alg.Subtract(alg.Constant(1, "one"), ratio)
	if err!=nil { return nil, err }
	if weight, err=alg.Rename(weight, []string{"weight"}); err!=nil { return nil, err }
	return alg.AddBands(fractions, weight, ratio)
}

// Scales every band but the weight itself by the draw's share of the total
// ensemble weight
func weightedAverage(alg image.Algebra, fractions, weightSum image.Ref) (out image.Ref, err error) {
	names:=[]string{}
	for _, b:=range fractions.Bands() {
		if b!="weight" { names=append(names, b) }
	}
	scaler, err:=alg.Select(fractions, []string{"weight"})
	if err!=nil { return nil, err }
	if scaler, err=alg.Divide(scaler, weightSum); err!=nil { return nil, err }
	sel, err:=alg.Select(fractions, names)
	if err!=nil { return nil, err }
	return alg.Multiply(sel, scaler)
}
