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
	"sort"
	"github.com/valyala/fastrand"
	"github.com/earth-chris/specmix/internal/sensor"
	"github.com/earth-chris/specmix/internal/spectral"
)

// BandSubset restricts sampling to a subset of a sensor's bands, given either
// as band names or as 0-based indices. Names resolve to indices in ascending
// band order; indices are used in the order given
type BandSubset struct {
	Names   []string
	Indices []int
}

func (s *BandSubset) resolve(p *sensor.Profile) (indices []int, err error) {
	if s==nil || (len(s.Names)==0 && len(s.Indices)==0) {
		indices=make([]int, p.NumBands())
		for i:=range indices { indices[i]=i }
		return indices, nil
	}
	if len(s.Names)>0 && len(s.Indices)>0 {
		return nil, errors.New("band subset takes names or indices, not both")
	}

	if len(s.Names)>0 {
		for _, name:=range s.Names {
			found:=-1
			for i, b:=range p.BandNames {
				if b==name { found=i; break }
			}
			if found<0 {
				return nil, errors.New(fmt.Sprintf("sensor %s has no band '%s', available: %v", p.Name, name, p.BandNames))
			}
			indices=append(indices, found)
		}
		sort.Ints(indices)
		return indices, nil
	}

	for _, i:=range s.Indices {
		if i<0 || i>=p.NumBands() {
			return nil, errors.New(fmt.Sprintf("band index %d out of range 0..%d for sensor %s", i, p.NumBands()-1, p.Name))
		}
	}
	return append([]int{}, s.Indices...), nil
}

// EndmemberSet holds the sampled, sensor-resampled endmember spectra of one
// material class: one row per draw, in draw order
type EndmemberSet struct {
	Class   string      `json:"class"`
	Level   int         `json:"level"`
	Sensor  string      `json:"sensor"`
	Names   []string    `json:"bands"`
	Spectra [][]float64 `json:"spectra"`
}

func (s *EndmemberSet) NumDraws() int { return len(s.Spectra) }

// SelectSpectra draws n endmember spectra of the given material class from
// the library, resampled to the sensor's response bands. Draws are uniform
// WITH replacement, so spectra may repeat across draws. n=0 returns every
// matching library row. A nil rng samples nondeterministically
func SelectSpectra(lib *spectral.Library, class, sensorName string, n int, subset *BandSubset, rng *fastrand.RNG) (set *EndmemberSet, err error) {
	rows, level:=lib.MatchLabel(class)
	if level==0 {
		return nil, &InvalidClassError{Class: class, Valid: lib.Labels()}
	}
	return selectRows(lib, rows, class, level, sensorName, n, subset, rng)
}

// SelectSpectraAtLevel draws like SelectSpectra but matches the class label
// at one explicit classification level only
func SelectSpectraAtLevel(lib *spectral.Library, class string, level int, sensorName string, n int, subset *BandSubset, rng *fastrand.RNG) (set *EndmemberSet, err error) {
	if level<1 || level>spectral.NumLevels {
		return nil, errors.New(fmt.Sprintf("classification level %d out of range 1..%d", level, spectral.NumLevels))
	}
	rows:=lib.MatchLabelAtLevel(class, level)
	return selectRows(lib, rows, class, level, sensorName, n, subset, rng)
}

func selectRows(lib *spectral.Library, rows []int, class string, level int, sensorName string, n int, subset *BandSubset, rng *fastrand.RNG) (set *EndmemberSet, err error) {
	id, err:=sensor.Parse(sensorName)
	if err!=nil { return nil, err }
	p:=id.Profile()

	indices, err:=subset.resolve(p)
	if err!=nil { return nil, err }
	centers:=make([]float64, len(indices))
	widths :=make([]float64, len(indices))
	names  :=make([]string, len(indices))
	for i, b:=range indices {
		centers[i], widths[i], names[i]=p.Centers[b], p.Widths[b], p.BandNames[b]
	}

	if len(rows)==0 {
		return nil, &EmptyEndmemberSetError{Class: class, Level: level, Sensor: p.Name}
	}
	if n>0 {
		if rng==nil { rng=&fastrand.RNG{} }
		drawn:=make([]int, n)
		for i:=range drawn {
			drawn[i]=rows[rng.Uint32n(uint32(len(rows)))]
		}
		rows=drawn
	}

	resampler, err:=spectral.NewBandResampler(lib.Centers, centers, widths)
	if err!=nil { return nil, err }
	spectra:=make([][]float64, len(rows))
	for i, row:=range rows {
		if spectra[i], err=resampler.Resample(lib.Row(row)); err!=nil { return nil, err }
	}

	return &EndmemberSet{
		Class:   class,
		Level:   level,
		Sensor:  p.Name,
		Names:   names,
		Spectra: spectra,
	}, nil
}
