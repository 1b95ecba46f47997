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
	"math"
	"gonum.org/v1/gonum/mat"
)

// weight of the sum-to-one constraint row relative to the reflectance rows
const sumToOneWeight = 1e4

// gradient entries below this count as zero in the active set iteration
const nnlsTol = 1e-10

// UnmixPixel solves the linear mixture of the endmember spectra for a single
// pixel spectrum. With sumToOne the fractions are driven to sum to one via a
// strongly weighted constraint row, with nonNegative they are constrained to
// be non-negative by Lawson-Hanson active set iteration. The spectrum must be
// free of NaN samples and must have at least as many bands as there are
// endmembers
func UnmixPixel(spectrum []float64, endmembers [][]float64, sumToOne, nonNegative bool) ([]float64, error) {
	nb, k:=len(spectrum), len(endmembers)
	if k==0 { return nil, errors.New("no endmembers given") }
	for i, e:=range endmembers {
		if len(e)!=nb {
			return nil, errors.New(fmt.Sprintf("endmember %d has %d bands, spectrum has %d", i, len(e), nb))
		}
	}
	for _, v:=range spectrum {
		if math.IsNaN(v) { return nil, errors.New("spectrum contains NaN samples") }
	}

	rows:=nb
	if sumToOne { rows++ }
	if rows<k {
		return nil, errors.New(fmt.Sprintf("%d bands cannot constrain %d endmembers", nb, k))
	}

	a:=mat.NewDense(rows, k, nil)
	b:=mat.NewVecDense(rows, nil)
	for i:=0; i<nb; i++ {
		for j:=0; j<k; j++ { a.Set(i, j, endmembers[j][i]) }
		b.SetVec(i, spectrum[i])
	}
	if sumToOne {
		for j:=0; j<k; j++ { a.Set(nb, j, sumToOneWeight) }
		b.SetVec(nb, sumToOneWeight)
	}

	if nonNegative { return solveNNLS(a, b) }
	return solveLS(a, b)
}

// Unconstrained least squares via QR
func solveLS(a *mat.Dense, b *mat.VecDense) ([]float64, error) {
	_, k:=a.Dims()
	var qr mat.QR
	qr.Factorize(a)
	x:=mat.NewVecDense(k, nil)
	if err:=qr.SolveVecTo(x, false, b); err!=nil {
		// ill-conditioned solutions remain usable
		if _, ok:=err.(mat.Condition); !ok { return nil, err }
	}
	out:=make([]float64, k)
	for j:=range out { out[j]=x.AtVec(j) }
	return out, nil
}

// Non-negative least squares by Lawson-Hanson active set iteration
func solveNNLS(a *mat.Dense, b *mat.VecDense) ([]float64, error) {
	m, k:=a.Dims()
	x      :=make([]float64, k)
	passive:=make([]bool, k)
	resid  :=make([]float64, m)
	maxIter:=3*k
	if maxIter<30 { maxIter=30 }

	for iter:=0; ; iter++ {
		if iter>=maxIter {
			return nil, errors.New(fmt.Sprintf("non-negative least squares failed to converge after %d iterations", iter))
		}

		// gradient w = A^T (b - A x), only free variables with positive
		// gradient can improve the fit
		residual(a, b, x, resid)
		best, bestJ:=nnlsTol, -1
		for j:=0; j<k; j++ {
			if passive[j] { continue }
			wj:=0.0
			for i:=0; i<m; i++ { wj+=a.At(i, j)*resid[i] }
			if wj>best { best, bestJ=wj, j }
		}
		if bestJ<0 { break } // Karush-Kuhn-Tucker conditions hold
		passive[bestJ]=true

		// solve on the passive set, stepping back whenever a passive
		// variable is driven negative
		for {
			z, err:=solvePassive(a, b, passive)
			if err!=nil { return nil, err }

			feasible:=true
			for j:=0; j<k; j++ {
				if passive[j] && z[j]<=0 { feasible=false; break }
			}
			if feasible {
				for j:=0; j<k; j++ {
					if passive[j] { x[j]=z[j] } else { x[j]=0 }
				}
				break
			}

			alpha:=math.MaxFloat64
			for j:=0; j<k; j++ {
				if passive[j] && z[j]<=0 {
					if r:=x[j]/(x[j]-z[j]); r<alpha { alpha=r }
				}
			}
			for j:=0; j<k; j++ {
				if passive[j] { x[j]+=alpha*(z[j]-x[j]) }
			}
			for j:=0; j<k; j++ {
				if passive[j] && x[j]<=nnlsTol {
					passive[j]=false
					x[j]=0
				}
			}
		}
	}
	return x, nil
}

func residual(a *mat.Dense, b *mat.VecDense, x, resid []float64) {
	m, k:=a.Dims()
	for i:=0; i<m; i++ {
		s:=b.AtVec(i)
		for j:=0; j<k; j++ {
			if x[j]!=0 { s-=a.At(i, j)*x[j] }
		}
		resid[i]=s
	}
}

// Least squares restricted to the passive columns of a
func solvePassive(a *mat.Dense, b *mat.VecDense, passive []bool) ([]float64, error) {
	m, k:=a.Dims()
	var cols []int
	for j:=0; j<k; j++ {
		if passive[j] { cols=append(cols, j) }
	}

	sub:=mat.NewDense(m, len(cols), nil)
	for ci, j:=range cols {
		for i:=0; i<m; i++ { sub.Set(i, ci, a.At(i, j)) }
	}
	var qr mat.QR
	qr.Factorize(sub)
	zv:=mat.NewVecDense(len(cols), nil)
	if err:=qr.SolveVecTo(zv, false, b); err!=nil {
		if _, ok:=err.(mat.Condition); !ok { return nil, err }
	}

	z:=make([]float64, k)
	for ci, j:=range cols { z[j]=zv.AtVec(ci) }
	return z, nil
}
