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
	"io"
	"math"
	"runtime"
	"sync"
)

// Dense evaluates the algebra eagerly on in-memory cubes. Operations never
// modify their inputs; every result is freshly allocated or shares storage
// with an input that stays valid
type Dense struct {
	Log        io.Writer
	MaxThreads int
}

// NewDense returns a dense backend logging to logWriter, running heavy
// operations on up to maxThreads goroutines
func NewDense(logWriter io.Writer, maxThreads int) *Dense {
	if logWriter==nil { logWriter=io.Discard }
	if maxThreads<=0 { maxThreads=runtime.NumCPU() }
	return &Dense{Log: logWriter, MaxThreads: maxThreads}
}

// constant image, broadcast against any extent
type scalar struct {
	value float64
	name  string
}

func (s *scalar) Bands() []string { return []string{s.name} }

func (d *Dense) cube(img Ref) (*Cube, error) {
	switch t:=img.(type) {
	case *Cube:   return t, nil
	case *scalar: return nil, errors.New("constant image has no pixel grid")
	}
	return nil, errors.New(fmt.Sprintf("unsupported image reference type %T", img))
}

func (d *Dense) Constant(value float64, name string) Ref {
	return &scalar{value: value, name: name}
}

func (d *Dense) Select(img Ref, names []string) (Ref, error) {
	c, err:=d.cube(img)
	if err!=nil { return nil, err }
	indices:=make([]int, len(names))
	for i, name:=range names {
		if indices[i], err=c.BandIndex(name); err!=nil { return nil, err }
	}
	return d.SelectIndices(c, indices, names)
}

func (d *Dense) SelectIndices(img Ref, indices []int, names []string) (Ref, error) {
	c, err:=d.cube(img)
	if err!=nil { return nil, err }
	if names==nil {
		names=make([]string, len(indices))
		for i, b:=range indices {
			if b<0 || b>=c.NumBands() { return nil, errors.New(fmt.Sprintf("band index %d out of range 0..%d", b, c.NumBands()-1)) }
			names[i]=c.Names[b]
		}
	}
	if len(names)!=len(indices) {
		return nil, errors.New(fmt.Sprintf("selecting %d bands with %d names", len(indices), len(names)))
	}
	out:=NewCube(c.Width, c.Height, names)
	for i, b:=range indices {
		if b<0 || b>=c.NumBands() { return nil, errors.New(fmt.Sprintf("band index %d out of range 0..%d", b, c.NumBands()-1)) }
		copy(out.Band(i), c.Band(b))
	}
	return out, nil
}

func (d *Dense) Rename(img Ref, names []string) (Ref, error) {
	if s, ok:=img.(*scalar); ok && len(names)==1 {
		return &scalar{value: s.value, name: names[0]}, nil
	}
	c, err:=d.cube(img)
	if err!=nil { return nil, err }
	if len(names)!=c.NumBands() {
		return nil, errors.New(fmt.Sprintf("renaming %d bands with %d names", c.NumBands(), len(names)))
	}
	// shares pixel storage, operations never write into their inputs
	return &Cube{Width: c.Width, Height: c.Height, Names: append([]string{}, names...), Data: c.Data}, nil
}

func (d *Dense) AddBands(img Ref, more ...Ref) (Ref, error) {
	c, err:=d.cube(img)
	if err!=nil { return nil, err }
	cubes:=[]*Cube{c}
	names:=append([]string{}, c.Names...)
	for _, m:=range more {
		cm, err:=d.cube(m)
		if err!=nil { return nil, err }
		if cm.Width!=c.Width || cm.Height!=c.Height {
			return nil, errors.New(fmt.Sprintf("cannot add %dx%d bands to %dx%d image", cm.Width, cm.Height, c.Width, c.Height))
		}
		cubes=append(cubes, cm)
		names=append(names, cm.Names...)
	}
	out:=NewCube(c.Width, c.Height, names)
	b:=0
	for _, cm:=range cubes {
		for i:=0; i<cm.NumBands(); i++ {
			copy(out.Band(b), cm.Band(i))
			b++
		}
	}
	return out, nil
}

// division by zero yields zero for non-NaN operands, matching the convention
// of the remote platform this algebra stands in for
func divide(x, y float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) { return math.NaN() }
	if y==0 { return 0 }
	return x/y
}

func (d *Dense) Add(a, b Ref) (Ref, error)      { return d.binary(a, b, func(x, y float64) float64 { return x+y }) }
func (d *Dense) Subtract(a, b Ref) (Ref, error) { return d.binary(a, b, func(x, y float64) float64 { return x-y }) }
func (d *Dense) Multiply(a, b Ref) (Ref, error) { return d.binary(a, b, func(x, y float64) float64 { return x*y }) }
func (d *Dense) Divide(a, b Ref) (Ref, error)   { return d.binary(a, b, divide) }

func (d *Dense) Pow(img Ref, exp float64) (Ref, error) {
	return d.unary(img, func(x float64) float64 { return math.Pow(x, exp) })
}
func (d *Dense) Sqrt(img Ref) (Ref, error) { return d.unary(img, math.Sqrt) }
func (d *Dense) Abs(img Ref) (Ref, error)  { return d.unary(img, math.Abs) }

func (d *Dense) binary(a, b Ref, f func(x, y float64) float64) (Ref, error) {
	sa, aScalar:=a.(*scalar)
	sb, bScalar:=b.(*scalar)
	switch {
	case aScalar && bScalar:
		return &scalar{value: f(sa.value, sb.value), name: sa.name}, nil
	case aScalar:
		c, err:=d.cube(b)
		if err!=nil { return nil, err }
		out:=NewCube(c.Width, c.Height, c.Names)
		for i, v:=range c.Data { out.Data[i]=f(sa.value, v) }
		return out, nil
	case bScalar:
		c, err:=d.cube(a)
		if err!=nil { return nil, err }
		out:=NewCube(c.Width, c.Height, c.Names)
		for i, v:=range c.Data { out.Data[i]=f(v, sb.value) }
		return out, nil
	}

	ca, err:=d.cube(a)
	if err!=nil { return nil, err }
	cb, err:=d.cube(b)
	if err!=nil { return nil, err }
	if ca.Width!=cb.Width || ca.Height!=cb.Height {
		return nil, errors.New(fmt.Sprintf("image extents %dx%d and %dx%d differ", ca.Width, ca.Height, cb.Width, cb.Height))
	}

	pix:=ca.Pixels()
	switch {
	case ca.NumBands()==cb.NumBands():
		out:=NewCube(ca.Width, ca.Height, ca.Names)
		for i, v:=range ca.Data { out.Data[i]=f(v, cb.Data[i]) }
		return out, nil
	case cb.NumBands()==1:
		out:=NewCube(ca.Width, ca.Height, ca.Names)
		mb:=cb.Band(0)
		for bnd:=0; bnd<ca.NumBands(); bnd++ {
			src, dst:=ca.Band(bnd), out.Band(bnd)
			for i:=0; i<pix; i++ { dst[i]=f(src[i], mb[i]) }
		}
		return out, nil
	case ca.NumBands()==1:
		out:=NewCube(cb.Width, cb.Height, cb.Names)
		mb:=ca.Band(0)
		for bnd:=0; bnd<cb.NumBands(); bnd++ {
			src, dst:=cb.Band(bnd), out.Band(bnd)
			for i:=0; i<pix; i++ { dst[i]=f(mb[i], src[i]) }
		}
		return out, nil
	}
	return nil, errors.New(fmt.Sprintf("cannot combine %d-band and %d-band images", ca.NumBands(), cb.NumBands()))
}

func (d *Dense) unary(img Ref, f func(x float64) float64) (Ref, error) {
	if s, ok:=img.(*scalar); ok {
		return &scalar{value: f(s.value), name: s.name}, nil
	}
	c, err:=d.cube(img)
	if err!=nil { return nil, err }
	out:=NewCube(c.Width, c.Height, c.Names)
	for i, v:=range c.Data { out.Data[i]=f(v) }
	return out, nil
}

func (d *Dense) ReduceSum(img Ref, name string) (Ref, error) {
	c, err:=d.cube(img)
	if err!=nil { return nil, err }
	out:=NewCube(c.Width, c.Height, []string{name})
	for b:=0; b<c.NumBands(); b++ {
		addTo(out.Data, c.Band(b))
	}
	return out, nil
}

func (d *Dense) SumImages(imgs []Ref) (Ref, error) {
	if len(imgs)==0 { return nil, errors.New("image collection is empty") }
	first, err:=d.cube(imgs[0])
	if err!=nil { return nil, err }
	out:=first.clone()
	for _, img:=range imgs[1:] {
		c, err:=d.cube(img)
		if err!=nil { return nil, err }
		if c.Width!=out.Width || c.Height!=out.Height || c.NumBands()!=out.NumBands() {
			return nil, errors.New(fmt.Sprintf("collection images differ in shape: %dx%dx%d vs %dx%dx%d",
				                   out.Width, out.Height, out.NumBands(), c.Width, c.Height, c.NumBands()))
		}
		addTo(out.Data, c.Data)
	}
	return out, nil
}

func (d *Dense) MeanImages(imgs []Ref) (Ref, error) {
	sum, err:=d.SumImages(imgs)
	if err!=nil { return nil, err }
	c:=sum.(*Cube)
	scaleTo(c.Data, 1/float64(len(imgs)))
	return c, nil
}

func (d *Dense) BitwiseAnd(img Ref, bits int64) (Ref, error) {
	return d.unary(img, func(x float64) float64 {
		if math.IsNaN(x) { return x }
		return float64(int64(x)&bits)
	})
}

func (d *Dense) Eq(img Ref, value float64) (Ref, error) {
	return d.unary(img, func(x float64) float64 {
		if math.IsNaN(x) { return x }
		if x==value { return 1 }
		return 0
	})
}

func (d *Dense) And(a, b Ref) (Ref, error) {
	return d.binary(a, b, func(x, y float64) float64 {
		if math.IsNaN(x) || math.IsNaN(y) { return math.NaN() }
		if x!=0 && y!=0 { return 1 }
		return 0
	})
}

func (d *Dense) UpdateMask(img, mask Ref) (Ref, error) {
	c, err:=d.cube(img)
	if err!=nil { return nil, err }
	m, err:=d.cube(mask)
	if err!=nil { return nil, err }
	if m.Width!=c.Width || m.Height!=c.Height {
		return nil, errors.New(fmt.Sprintf("mask extent %dx%d does not match image %dx%d", m.Width, m.Height, c.Width, c.Height))
	}

	out:=c.clone()
	pix:=c.Pixels()
	switch {
	case m.NumBands()==1:
		mb:=m.Band(0)
		for i:=0; i<pix; i++ {
			if mb[i]==0 || math.IsNaN(mb[i]) {
				for b:=0; b<out.NumBands(); b++ { out.Data[b*pix+i]=math.NaN() }
			}
		}
	case m.NumBands()==c.NumBands():
		for i, v:=range m.Data {
			if v==0 || math.IsNaN(v) { out.Data[i]=math.NaN() }
		}
	default:
		return nil, errors.New(fmt.Sprintf("mask has %d bands, image has %d", m.NumBands(), c.NumBands()))
	}
	return out, nil
}

// Unmix solves the constrained linear mixture for every pixel. Pixels with
// masked samples pass through as NaN; pixels where the solver fails are set
// to NaN, counted and reported on the log
func (d *Dense) Unmix(img Ref, endmembers [][]float64, sumToOne, nonNegative bool) (Ref, error) {
	c, err:=d.cube(img)
	if err!=nil { return nil, err }
	if len(endmembers)==0 { return nil, errors.New("no endmembers to unmix") }
	for i, e:=range endmembers {
		if len(e)!=c.NumBands() {
			return nil, errors.New(fmt.Sprintf("endmember %d has %d bands, image has %d", i, len(e), c.NumBands()))
		}
	}

	names:=make([]string, len(endmembers))
	for i:=range names { names[i]=fmt.Sprintf("band_%d", i) }
	out:=NewCube(c.Width, c.Height, names)
	pix:=c.Pixels()

	// split into 8 MB work packages, no fewer than 8*MaxThreads
	numBatches:=8*pix*c.NumBands()/(8192*1024)
	if numBatches < 8*d.MaxThreads { numBatches=8*d.MaxThreads }
	batchSize:=(pix+numBatches-1)/(numBatches)
	sem:=make(chan bool, d.MaxThreads)

	failedLock, numFailed:=sync.Mutex{}, 0
	for lower:=0; lower<pix; lower+=batchSize {
		upper:=lower+batchSize
		if upper>pix { upper=pix }

		sem <- true
		go func(lower, upper int) {
			defer func() { <-sem }()

			spectrum:=make([]float64, c.NumBands())
			failed:=0
			for i:=lower; i<upper; i++ {
				masked:=false
				for b:=0; b<c.NumBands(); b++ {
					spectrum[b]=c.Data[b*pix+i]
					if math.IsNaN(spectrum[b]) { masked=true }
				}
				if masked {
					for b:=range endmembers { out.Data[b*pix+i]=math.NaN() }
					continue
				}
				fractions, err:=UnmixPixel(spectrum, endmembers, sumToOne, nonNegative)
				if err!=nil {
					for b:=range endmembers { out.Data[b*pix+i]=math.NaN() }
					failed++
					continue
				}
				for b, frac:=range fractions { out.Data[b*pix+i]=frac }
			}

			if failed>0 {
				failedLock.Lock()
				numFailed+=failed
				failedLock.Unlock()
			}
		}(lower, upper)
	}
	for i:=0; i<cap(sem); i++ {  // wait for goroutines to finish
		sem <- true
	}

	if numFailed>0 {
		fmt.Fprintf(d.Log, "Unmixing failed to converge for %d of %d pixels, propagating NaN\n", numFailed, pix)
	}
	return out, nil
}

func (d *Dense) Materialize(img Ref) (*Cube, error) {
	return d.cube(img)
}
