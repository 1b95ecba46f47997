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
	"strings"
	"gonum.org/v1/gonum/floats"
)

// Wavelength units. Libraries are converted to nanometers on construction
const (
	UnitNanometers  = "Nanometers"
	UnitMicrometers = "Micrometers"
)

// A single named reflectance spectrum
type Spectrum struct {
	Name    string    `json:"name"`
	Unit    string    `json:"unit"`
	Centers []float64 `json:"centers"`
	Values  []float64 `json:"values"`
}

// Hierarchical class labels for one library entry, from coarse to fine,
// e.g. pervious / bare / soil / measured. Deeper levels may be empty
type Classification struct {
	Level1 string
	Level2 string
	Level3 string
	Level4 string
}

// Returns the label at the given 1-based level, or "" for levels out of range
func (c Classification) Level(n int) string {
	switch n {
	case 1: return c.Level1
	case 2: return c.Level2
	case 3: return c.Level3
	case 4: return c.Level4
	}
	return ""
}

// NumLevels is the depth of the classification hierarchy
const NumLevels = 4

// A library of reference spectra on a shared wavelength grid, with an optional
// classification table parallel to the rows. Centers are in nanometers and
// strictly increasing. Data is row-major, NumSpectra x NumChannels
type Library struct {
	Names   []string
	Classes []Classification
	Centers []float64
	Data    []float64
}

// Builds a library from raw parts. Micrometer centers are converted to
// nanometers. Class labels must not repeat across hierarchy levels, so that
// level resolution by label is unambiguous
func NewLibrary(names []string, classes []Classification, centers []float64, unit string, data []float64) (l *Library, err error) {
	if len(names)==0 { return nil, errors.New("spectral library with no entries") }
	if len(centers)==0 { return nil, errors.New("spectral library with no wavelengths") }
	if len(data)!=len(names)*len(centers) {
		return nil, errors.New(fmt.Sprintf("spectral library data has %d values, expect %d spectra x %d channels",
			                               len(data), len(names), len(centers)))
	}
	if classes!=nil && len(classes)!=len(names) {
		return nil, errors.New(fmt.Sprintf("classification table has %d rows, library has %d", len(classes), len(names)))
	}

	cs:=append([]float64(nil), centers...)
	switch strings.ToLower(unit) {
	case strings.ToLower(UnitNanometers), "":
	case strings.ToLower(UnitMicrometers):
		for i:=range cs { cs[i]*=1000 }
	default:
		return nil, errors.New(fmt.Sprintf("unknown wavelength unit %q", unit))
	}
	for i:=1; i<len(cs); i++ {
		if !(cs[i]>cs[i-1]) {
			return nil, errors.New(fmt.Sprintf("wavelengths not strictly increasing at channel %d: %g >= %g", i, cs[i-1], cs[i]))
		}
	}
	if err=validateClassLabels(classes); err!=nil { return nil, err }

	return &Library{
		Names:   append([]string(nil), names...),
		Classes: append([]Classification(nil), classes...),
		Centers: cs,
		Data:    append([]float64(nil), data...),
	}, nil
}

// Ensures no label appears at two different hierarchy levels
func validateClassLabels(classes []Classification) error {
	seen:=map[string]int{}
	for _, c:=range classes {
		for lv:=1; lv<=NumLevels; lv++ {
			label:=strings.ToLower(c.Level(lv))
			if label=="" { continue }
			if prev, ok:=seen[label]; ok && prev!=lv {
				return errors.New(fmt.Sprintf("class label %q appears at levels %d and %d, labels must be unique across levels",
					                          c.Level(lv), prev, lv))
			}
			seen[label]=lv
		}
	}
	return nil
}

func (l *Library) NumSpectra() int  { return len(l.Names) }
func (l *Library) NumChannels() int { return len(l.Centers) }

// Row returns the i-th spectrum's values as a view into the library data
func (l *Library) Row(i int) []float64 {
	nc:=l.NumChannels()
	return l.Data[i*nc : (i+1)*nc]
}

// Spectrum copies the i-th row out as a standalone named spectrum
func (l *Library) Spectrum(i int) *Spectrum {
	return &Spectrum{
		Name:    l.Names[i],
		Unit:    UnitNanometers,
		Centers: append([]float64(nil), l.Centers...),
		Values:  append([]float64(nil), l.Row(i)...),
	}
}

// Labels lists the distinct class labels at one hierarchy level, in first-seen row order
func (l *Library) LabelsAtLevel(level int) []string {
	seen:=map[string]bool{}
	labels:=[]string{}
	for _, c:=range l.Classes {
		label:=c.Level(level)
		if label=="" || seen[strings.ToLower(label)] { continue }
		seen[strings.ToLower(label)]=true
		labels=append(labels, label)
	}
	return labels
}

// Labels lists the distinct class labels across all hierarchy levels
func (l *Library) Labels() []string {
	labels:=[]string{}
	for lv:=1; lv<=NumLevels; lv++ {
		labels=append(labels, l.LabelsAtLevel(lv)...)
	}
	return labels
}

// MatchLabel resolves a class label against levels 1 to 4 in order, returning
// the matching row indices and the level that matched. Matching is case
// insensitive. A zero level means the label was not found anywhere
func (l *Library) MatchLabel(label string) (rows []int, level int) {
	for lv:=1; lv<=NumLevels; lv++ {
		rows=l.MatchLabelAtLevel(label, lv)
		if len(rows)>0 { return rows, lv }
	}
	return nil, 0
}

// MatchLabelAtLevel returns the row indices carrying the label at one specific level
func (l *Library) MatchLabelAtLevel(label string, level int) (rows []int) {
	for i, c:=range l.Classes {
		if strings.EqualFold(c.Level(level), label) {
			rows=append(rows, i)
		}
	}
	return rows
}

// Subset copies out the given rows into a new library
func (l *Library) Subset(rows []int) (*Library, error) {
	nc:=l.NumChannels()
	names:=make([]string, len(rows))
	var classes []Classification
	if len(l.Classes)>0 { classes=make([]Classification, len(rows)) }
	data:=make([]float64, len(rows)*nc)
	for o, i:=range rows {
		if i<0 || i>=l.NumSpectra() { return nil, errors.New(fmt.Sprintf("row index %d out of range [0,%d)", i, l.NumSpectra())) }
		names[o]=l.Names[i]
		if classes!=nil { classes[o]=l.Classes[i] }
		copy(data[o*nc:(o+1)*nc], l.Row(i))
	}
	return &Library{Names: names, Classes: classes, Centers: append([]float64(nil), l.Centers...), Data: data}, nil
}

// Atmospheric water vapor absorption windows in nanometers, exclusive bounds
var waterBands=[2][2]float64{{1350, 1460}, {1790, 1960}}

func inWaterBand(center float64) bool {
	for _, wb:=range waterBands {
		if center>wb[0] && center<wb[1] { return true }
	}
	return false
}

// MaskWaterBands returns a copy with reflectance inside the water absorption
// windows replaced by NaN, or by zero if setNaN is false. The wavelength grid
// is unchanged
func (l *Library) MaskWaterBands(setNaN bool) *Library {
	update:=0.0
	if setNaN { update=math.NaN() }
	out:=l.clone()
	nc:=out.NumChannels()
	for ch, c:=range out.Centers {
		if !inWaterBand(c) { continue }
		for row:=0; row<out.NumSpectra(); row++ {
			out.Data[row*nc+ch]=update
		}
	}
	return out
}

// DropWaterBands returns a copy with the water absorption channels removed entirely
func (l *Library) DropWaterBands() *Library {
	keep:=[]int{}
	for ch, c:=range l.Centers {
		if !inWaterBand(c) { keep=append(keep, ch) }
	}
	return l.subsetChannels(keep)
}

// ShortwaveChannelIndices returns the channels inside the shortwave range (350-2500 nm, exclusive)
func (l *Library) ShortwaveChannelIndices() (indices []int) {
	for ch, c:=range l.Centers {
		if c>350 && c<2500 { indices=append(indices, ch) }
	}
	return indices
}

// BrightnessNormalized subsets the library to the given channels and divides
// each spectrum by its L2 norm over those channels. Nil indices select all channels
func (l *Library) BrightnessNormalized(indices []int) (*Library, error) {
	if indices==nil {
		indices=make([]int, l.NumChannels())
		for i:=range indices { indices[i]=i }
	}
	for _, ch:=range indices {
		if ch<0 || ch>=l.NumChannels() { return nil, errors.New(fmt.Sprintf("channel index %d out of range [0,%d)", ch, l.NumChannels())) }
	}
	out:=l.subsetChannels(indices)
	nc:=out.NumChannels()
	for row:=0; row<out.NumSpectra(); row++ {
		values:=out.Data[row*nc : (row+1)*nc]
		norm:=floats.Norm(values, 2)
		if norm==0 { continue }
		floats.Scale(1/norm, values)
	}
	return out, nil
}

func (l *Library) clone() *Library {
	return &Library{
		Names:   append([]string(nil), l.Names...),
		Classes: append([]Classification(nil), l.Classes...),
		Centers: append([]float64(nil), l.Centers...),
		Data:    append([]float64(nil), l.Data...),
	}
}

func (l *Library) subsetChannels(indices []int) *Library {
	nc:=l.NumChannels()
	centers:=make([]float64, len(indices))
	data:=make([]float64, l.NumSpectra()*len(indices))
	for o, ch:=range indices {
		centers[o]=l.Centers[ch]
		for row:=0; row<l.NumSpectra(); row++ {
			data[row*len(indices)+o]=l.Data[row*nc+ch]
		}
	}
	return &Library{
		Names:   append([]string(nil), l.Names...),
		Classes: append([]Classification(nil), l.Classes...),
		Centers: centers,
		Data:    data,
	}
}
