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
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"github.com/earth-chris/specmix/internal/image"
)

func newTestAlgebra() *image.Dense { return image.NewDense(io.Discard, 2) }

// a 1x1 image holding a single pixel spectrum
func pixelCube(names []string, spectrum []float64) *image.Cube {
	c:=image.NewCube(1, 1, names)
	for b, v:=range spectrum { c.Band(b)[0]=v }
	return c
}

func toySet(class string, draws ...[]float64) *EndmemberSet {
	return &EndmemberSet{Class: class, Level: 1, Sensor: "toy", Names: []string{"b0", "b1"}, Spectra: draws}
}

func TestFractionalCoverSingleDraw(t *testing.T) {
	c:=NewContext(io.Discard)
	alg:=newTestAlgebra()
	img:=pixelCube([]string{"b0", "b1"}, []float64{0.5, 0.5})
	sets:=[]*EndmemberSet{toySet("a", []float64{1, 0}), toySet("b", []float64{0, 1})}

	out, err:=FractionalCover(c, alg, img, sets, []string{"a", "b"}, 2, CoverOptions{})
	if err!=nil { t.Fatalf("fractional cover: %s", err.Error()) }
	cube, err:=alg.Materialize(out)
	if err!=nil { t.Fatalf("materializing: %s", err.Error()) }
	if len(cube.Names)!=2 || cube.Names[0]!="a" || cube.Names[1]!="b" {
		t.Fatalf("bands %v, expect [a b]", cube.Names)
	}
	if a:=cube.Band(0)[0]; math.Abs(a-0.5)>1e-6 { t.Errorf("fraction a=%g, expect 0.5", a) }
	if b:=cube.Band(1)[0]; math.Abs(b-0.5)>1e-6 { t.Errorf("fraction b=%g, expect 0.5", b) }

	out, err=FractionalCover(c, alg, img, sets, []string{"a", "b"}, 2, CoverOptions{KeepRMSE: true})
	if err!=nil { t.Fatalf("fractional cover with RMSE: %s", err.Error()) }
	if cube, err=alg.Materialize(out); err!=nil { t.Fatalf("materializing: %s", err.Error()) }
	if len(cube.Names)!=3 || cube.Names[2]!="RMSE" { t.Fatalf("bands %v, expect [a b RMSE]", cube.Names) }
	if r:=cube.Band(2)[0]; math.Abs(r)>1e-6 { t.Errorf("RMSE=%g for a pixel inside the hull, expect 0", r) }
}

func TestFractionalCoverEnsemble(t *testing.T) {
	// three identical draws fit every pixel equally well. With zero summed
	// error every ratio is zero, every weight is one, and fusion degrades
	// to the plain mean of the draws
	c:=NewContext(io.Discard)
	alg:=newTestAlgebra()
	img:=image.NewCube(2, 2, []string{"b0", "b1"})
	pixels:=[][2]float64{{1, 0}, {0, 1}, {0.5, 0.5}, {0.25, 0.75}}
	for i, p:=range pixels {
		img.Band(0)[i]=p[0]
		img.Band(1)[i]=p[1]
	}
	e1, e2:=[]float64{1, 0}, []float64{0, 1}
	sets:=[]*EndmemberSet{toySet("a", e1, e1, e1), toySet("b", e2, e2, e2)}

	out, err:=FractionalCover(c, alg, img, sets, []string{"a", "b"}, 2, CoverOptions{KeepRMSE: true})
	if err!=nil { t.Fatalf("fractional cover: %s", err.Error()) }
	cube, err:=alg.Materialize(out)
	if err!=nil { t.Fatalf("materializing: %s", err.Error()) }
	for i, p:=range pixels {
		if a:=cube.Band(0)[i]; math.Abs(a-p[0])>1e-5 { t.Errorf("pixel %d fraction a=%g, expect %g", i, a, p[0]) }
		if b:=cube.Band(1)[i]; math.Abs(b-p[1])>1e-5 { t.Errorf("pixel %d fraction b=%g, expect %g", i, b, p[1]) }
		if r:=cube.Band(2)[i]; math.Abs(r)>1e-5 { t.Errorf("pixel %d RMSE=%g, expect 0", i, r) }
		if sum:=cube.Band(0)[i]+cube.Band(1)[i]; math.Abs(sum-1)>1e-5 {
			t.Errorf("pixel %d fractions sum to %g, expect 1", i, sum)
		}
	}
}

func TestEnsembleWeighting(t *testing.T) {
	// three draws with errors 0, 1 and 2 score ratios 0, 1/3 and 2/3,
	// weights 1, 2/3 and 1/3, and a weight sum of 2
	alg:=newTestAlgebra()
	draws:=[]struct{ a, b, rmse float64 }{
		{0.9, 0.1, 0},
		{0.6, 0.4, 1},
		{0.3, 0.7, 2},
	}
	names:=[]string{"a", "b", "RMSE"}
	unmixed  :=make([]image.Ref, len(draws))
	rmseBands:=make([]image.Ref, len(draws))
	var err error
	for i, d:=range draws {
		unmixed[i]=pixelCube(names, []float64{d.a, d.b, d.rmse})
		if rmseBands[i], err=alg.Select(unmixed[i], []string{"RMSE"}); err!=nil { t.Fatalf("selecting RMSE: %s", err.Error()) }
	}
	rmseSum, err:=alg.SumImages(rmseBands)
	if err!=nil { t.Fatalf("summing RMSE: %s", err.Error()) }
	if rmseSum, err=alg.Rename(rmseSum, []string{"SUM"}); err!=nil { t.Fatalf("renaming: %s", err.Error()) }

	wantWeight:=[]float64{1, 2.0/3.0, 1.0/3.0}
	wantRatio :=[]float64{0, 1.0/3.0, 2.0/3.0}
	unscaled:=make([]image.Ref, len(draws))
	weightBands:=make([]image.Ref, len(draws))
	for i:=range draws {
		if unscaled[i], err=computeWeight(alg, unmixed[i], rmseSum); err!=nil { t.Fatalf("weighting draw %d: %s", i, err.Error()) }
		cube, err:=alg.Materialize(unscaled[i])
		if err!=nil { t.Fatalf("materializing draw %d: %s", i, err.Error()) }
		wb, err:=cube.BandIndex("weight")
		if err!=nil { t.Fatalf("draw %d: %s", i, err.Error()) }
		rb, err:=cube.BandIndex("ratio")
		if err!=nil { t.Fatalf("draw %d: %s", i, err.Error()) }
		if w:=cube.Band(wb)[0]; math.Abs(w-wantWeight[i])>1e-12 { t.Errorf("draw %d weight %g, expect %g", i, w, wantWeight[i]) }
		if r:=cube.Band(rb)[0]; math.Abs(r-wantRatio[i])>1e-12 { t.Errorf("draw %d ratio %g, expect %g", i, r, wantRatio[i]) }
		if weightBands[i], err=alg.Select(unscaled[i], []string{"weight"}); err!=nil { t.Fatalf("selecting weight: %s", err.Error()) }
	}
	weightSum, err:=alg.SumImages(weightBands)
	if err!=nil { t.Fatalf("summing weights: %s", err.Error()) }
	wsCube, err:=alg.Materialize(weightSum)
	if err!=nil { t.Fatalf("materializing weight sum: %s", err.Error()) }
	if ws:=wsCube.Band(0)[0]; math.Abs(ws-2)>1e-12 { t.Errorf("weight sum %g, expect 2", ws) }

	scaled:=make([]image.Ref, len(draws))
	for i:=range draws {
		if scaled[i], err=weightedAverage(alg, unscaled[i], weightSum); err!=nil { t.Fatalf("scaling draw %d: %s", i, err.Error()) }
	}
	fused, err:=alg.SumImages(scaled)
	if err!=nil { t.Fatalf("fusing: %s", err.Error()) }
	cube, err:=alg.Materialize(fused)
	if err!=nil { t.Fatalf("materializing fused: %s", err.Error()) }

	// fused a = (0.9*1 + 0.6*2/3 + 0.3*1/3)/2 = 0.7, b likewise 0.3
	ab, err:=cube.BandIndex("a")
	if err!=nil { t.Fatalf("%s", err.Error()) }
	bb, err:=cube.BandIndex("b")
	if err!=nil { t.Fatalf("%s", err.Error()) }
	if a:=cube.Band(ab)[0]; math.Abs(a-0.7)>1e-12 { t.Errorf("fused a=%g, expect 0.7", a) }
	if b:=cube.Band(bb)[0]; math.Abs(b-0.3)>1e-12 { t.Errorf("fused b=%g, expect 0.3", b) }
	// each draw summed to one, so the fused fractions do too
	if sum:=cube.Band(ab)[0]+cube.Band(bb)[0]; math.Abs(sum-1)>1e-12 { t.Errorf("fused fractions sum to %g", sum) }
}

func TestFractionalCoverShade(t *testing.T) {
	logBuf:=bytes.Buffer{}
	c:=NewContext(&logBuf)
	alg:=newTestAlgebra()
	img:=image.NewCube(2, 1, []string{"b0", "b1"})
	img.Band(0)[0]=0.5 // half lit, pure class a
	img.Band(1)[0]=0
	img.Band(0)[1]=0 // fully shaded
	img.Band(1)[1]=0
	sets:=[]*EndmemberSet{toySet("a", []float64{1, 0}), toySet("b", []float64{0, 1})}

	out, err:=FractionalCover(c, alg, img, sets, []string{"a", "b"}, 2, CoverOptions{ShadeNormalize: true})
	if err!=nil { t.Fatalf("fractional cover: %s", err.Error()) }
	cube, err:=alg.Materialize(out)
	if err!=nil { t.Fatalf("materializing: %s", err.Error()) }

	if a:=cube.Band(0)[0]; math.Abs(a-1)>1e-4 { t.Errorf("normalized fraction a=%g, expect 1", a) }
	if b:=cube.Band(1)[0]; math.Abs(b)>1e-4 { t.Errorf("normalized fraction b=%g, expect 0", b) }
	if !math.IsNaN(cube.Band(0)[1]) || !math.IsNaN(cube.Band(1)[1]) {
		t.Errorf("fully shaded pixel must propagate NaN, got a=%g b=%g", cube.Band(0)[1], cube.Band(1)[1])
	}
	if !strings.Contains(logBuf.String(), "degenerate") {
		t.Errorf("degenerate pixels must be reported on the log, got %q", logBuf.String())
	}
}

func TestFractionalCoverValidation(t *testing.T) {
	c:=NewContext(io.Discard)
	alg:=newTestAlgebra()
	img:=pixelCube([]string{"b0", "b1"}, []float64{0.5, 0.5})
	e1, e2:=[]float64{1, 0}, []float64{0, 1}

	_, err:=FractionalCover(c, alg, img, []*EndmemberSet{toySet("a", e1, e1), toySet("b", e2)}, []string{"a", "b"}, 2, CoverOptions{})
	var sizeErr *EndmemberSetSizeMismatchError
	if !errors.As(err, &sizeErr) { t.Errorf("unequal draw counts: got %v, expect EndmemberSetSizeMismatchError", err) }

	if _, err=FractionalCover(c, alg, img, nil, nil, 2, CoverOptions{}); err==nil {
		t.Errorf("no endmember sets must fail")
	}
	if _, err=FractionalCover(c, alg, img, []*EndmemberSet{toySet("a", e1)}, []string{"a", "b"}, 2, CoverOptions{}); err==nil {
		t.Errorf("class name count mismatch must fail")
	}
	if _, err=FractionalCover(c, alg, img, []*EndmemberSet{toySet("a", e1), toySet("b", e2)}, []string{"a", "b"}, 3, CoverOptions{}); err==nil {
		t.Errorf("band count mismatch must fail")
	}
}
