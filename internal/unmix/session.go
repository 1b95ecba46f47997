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
	"github.com/valyala/fastrand"
	"github.com/earth-chris/specmix/internal/image"
	"github.com/earth-chris/specmix/internal/spectral"
)

// The canonical material classes a session samples, in sampling order
var sessionClasses=[]string{"bare", "vegetation", "npv", "burn", "urban"}

// A Session holds one sampled endmember ensemble per canonical material
// class, all drawn for the same sensor, band subset and ensemble size. It is
// a value: build one per unmixing run and pass it around explicitly. Sessions
// are immutable after construction and safe to share across goroutines
type Session struct {
	Context *Context
	Sensor  string
	N       int
	Bands   []string
	Soil    *EndmemberSet
	PV      *EndmemberSet
	NPV     *EndmemberSet
	Burn    *EndmemberSet
	Urban   *EndmemberSet
}

// NewSession samples n endmember draws per canonical class from the library,
// resampled to the sensor's bands or the given subset of them. All classes
// draw from one RNG in fixed class order, so a given seed reproduces the
// session exactly. Seed 0 samples nondeterministically
func NewSession(c *Context, lib *spectral.Library, sensorName string, n int, subset *BandSubset, seed uint32) (s *Session, err error) {
	if n<1 { return nil, errors.New(fmt.Sprintf("session needs at least one draw per class, have %d", n)) }
	rng:=&fastrand.RNG{}
	rng.Seed(seed)

	sets:=make([]*EndmemberSet, len(sessionClasses))
	for i, class:=range sessionClasses {
		if sets[i], err=SelectSpectra(lib, class, sensorName, n, subset, rng); err!=nil { return nil, err }
	}
	s=&Session{
		Context : c,
		Sensor  : sets[0].Sensor,
		N       : n,
		Bands   : sets[0].Names,
		Soil    : sets[0],
		PV      : sets[1],
		NPV     : sets[2],
		Burn    : sets[3],
		Urban   : sets[4],
	}
	fmt.Fprintf(c.Log, "Sampled %d endmember draws per class from %d library spectra for %s on %d bands\n",
	            n, lib.NumSpectra(), s.Sensor, len(s.Bands))
	return s, nil
}

// NumBands is the band count of the sampled spectra
func (s *Session) NumBands() int { return len(s.Bands) }

func (s *Session) set(class string) (*EndmemberSet, error) {
	switch strings.ToLower(class) {
	case "bare", "soil":
		return s.Soil, nil
	case "vegetation", "pv":
		return s.PV, nil
	case "npv":
		return s.NPV, nil
	case "burn", "burned":
		return s.Burn, nil
	case "urban", "impervious":
		return s.Urban, nil
	}
	return nil, &InvalidClassError{Class: class, Valid: append([]string{}, sessionClasses...)}
}

// Cover unmixes the image against the named session classes, labeling the
// output fraction bands with names
func (s *Session) Cover(alg image.Algebra, img image.Ref, classes, names []string, opts CoverOptions) (image.Ref, error) {
	if len(classes)!=len(names) {
		return nil, errors.New(fmt.Sprintf("%d classes with %d band names", len(classes), len(names)))
	}
	sets:=make([]*EndmemberSet, len(classes))
	for i, class:=range classes {
		set, err:=s.set(class)
		if err!=nil { return nil, err }
		sets[i]=set
	}
	return FractionalCover(s.Context, alg, img, sets, names, s.NumBands(), opts)
}

// VIS unmixes with the vegetation-impervious-soil class trio
func (s *Session) VIS(alg image.Algebra, img image.Ref, opts CoverOptions) (image.Ref, error) {
	return s.Cover(alg, img, []string{"bare", "vegetation", "urban"}, []string{"soil", "pv", "impervious"}, opts)
}

// SVN unmixes with the soil-vegetation-npv class trio
func (s *Session) SVN(alg image.Algebra, img image.Ref, opts CoverOptions) (image.Ref, error) {
	return s.Cover(alg, img, []string{"bare", "vegetation", "npv"}, []string{"soil", "pv", "npv"}, opts)
}

// BVN unmixes with the burned-vegetation-npv class trio
func (s *Session) BVN(alg image.Algebra, img image.Ref, opts CoverOptions) (image.Ref, error) {
	return s.Cover(alg, img, []string{"burn", "vegetation", "npv"}, []string{"burned", "pv", "npv"}, opts)
}
