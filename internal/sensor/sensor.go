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


// Package sensor holds the band response tables, reflectance scaling factors
// and cloud mask layouts for the supported earth observation sensors
package sensor

import (
	"fmt"
	"strings"
)

// ID identifies a supported sensor
type ID int

const (
	Landsat4 ID=iota
	Landsat5
	Landsat7
	Landsat8
	Sentinel2
	MODIS
	VIIRS
	ASTER
	AVNIR2
	NEON
	DoveR
	SuperDove
	PlanetScope
	numSensors
)

var sensorNames=[]string{
	"Landsat4", "Landsat5", "Landsat7", "Landsat8", "Sentinel2", "MODIS", "VIIRS",
	"ASTER", "AVNIR2", "NEON", "DoveR", "SuperDove", "PlanetScope",
}

func (id ID) String() string {
	if id<0 || id>=numSensors { return fmt.Sprintf("sensor(%d)", int(id)) }
	return sensorNames[id]
}

// IDs lists all supported sensors
func IDs() (ids []ID) {
	ids=make([]ID, numSensors)
	for i:=range ids { ids[i]=ID(i) }
	return ids
}

// Names lists all supported sensor names
func Names() []string {
	names:=make([]string, len(sensorNames))
	copy(names, sensorNames)
	return names
}

// InvalidSensorError reports a sensor name outside the supported set
type InvalidSensorError struct {
	Name      string
	Supported []string
}

func (e *InvalidSensorError) Error() string {
	return fmt.Sprintf("unsupported sensor '%s'. Supported: %s", e.Name, strings.Join(e.Supported, ", "))
}

// Parse resolves a sensor name, ignoring case
func Parse(name string) (ID, error) {
	for i, n:=range sensorNames {
		if strings.EqualFold(n, name) { return ID(i), nil }
	}
	return -1, &InvalidSensorError{Name: name, Supported: Names()}
}

// MaskSpec names a QA band and the bits which flag unusable pixels.
// A pixel passes when every listed bit reads zero
type MaskSpec struct {
	Band string
	Bits []uint
}

// Profile describes the reflectance bands of a sensor. Centers and Widths are
// band centers and full widths at half maximum in nanometers; reflectance is
// recovered from raw pixel values as value*Scale+Offset. QA is nil for
// sensors without a cloud mask band
type Profile struct {
	Name       string
	Collection string
	BandNames  []string
	Centers    []float64
	Widths     []float64
	Scale      float64
	Offset     float64
	QA         *MaskSpec
}

func (p *Profile) NumBands() int { return len(p.BandNames) }

var landsat4=Profile{
	Name:       "Landsat4",
	Collection: "LANDSAT/LT04/C02/T1_L2",
	BandNames:  []string{"SR_B1", "SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B7"},
	Centers:    []float64{485, 560, 659, 830, 1650, 2215},
	Widths:     []float64{70, 80, 60, 140, 200, 270},
	Scale:      2.75e-05,
	Offset:     -0.2,
	QA:         &MaskSpec{Band: "QA_PIXEL", Bits: []uint{3, 4}},
}

var landsat5=Profile{
	Name:       "Landsat5",
	Collection: "LANDSAT/LT05/C02/T1_L2",
	BandNames:  []string{"SR_B1", "SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B7"},
	Centers:    []float64{485, 560, 659, 830, 1650, 2215},
	Widths:     []float64{70, 80, 60, 140, 200, 270},
	Scale:      2.75e-05,
	Offset:     -0.2,
	QA:         &MaskSpec{Band: "QA_PIXEL", Bits: []uint{3, 4}},
}

var landsat7=Profile{
	Name:       "Landsat7",
	Collection: "LANDSAT/LE07/C02/T1_L2",
	BandNames:  []string{"SR_B1", "SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B7"},
	Centers:    []float64{485, 560, 660, 835, 1650, 2220},
	Widths:     []float64{70, 80, 60, 130, 200, 260},
	Scale:      2.75e-05,
	Offset:     -0.2,
	QA:         &MaskSpec{Band: "QA_PIXEL", Bits: []uint{3, 4}},
}

var landsat8=Profile{
	Name:       "Landsat8",
	Collection: "LANDSAT/LC08/C02/T1_L2",
	BandNames:  []string{"SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B6", "SR_B7"},
	Centers:    []float64{482, 561.5, 654.5, 865, 1608.5, 2200.5},
	Widths:     []float64{60, 57, 37, 28, 85, 187},
	Scale:      2.75e-05,
	Offset:     -0.2,
	QA:         &MaskSpec{Band: "QA_PIXEL", Bits: []uint{3, 4}},
}

var sentinel2=Profile{
	Name:       "Sentinel2",
	Collection: "COPERNICUS/S2_SR",
	BandNames:  []string{"B2", "B3", "B4", "B5", "B6", "B7", "B8", "B8A", "B11", "B12"},
	Centers:    []float64{492.1, 559, 665, 703.8, 739.1, 779.7, 833, 864, 1610.4, 2185.7},
	Widths:     []float64{66, 36, 31, 16, 15, 20, 106, 21, 94, 185},
	Scale:      0.0001,
	QA:         &MaskSpec{Band: "QA60", Bits: []uint{10, 11}},
}

var modis=Profile{
	Name:       "MODIS",
	Collection: "MODIS/061/MOD09GA",
	BandNames:  []string{"sur_refl_b03", "sur_refl_b04", "sur_refl_b01", "sur_refl_b02", "sur_refl_b06", "sur_refl_b07"},
	Centers:    []float64{469, 555, 645, 858.5, 1640, 2130},
	Widths:     []float64{20, 20, 50, 35, 24, 50},
	Scale:      0.0001,
	QA:         &MaskSpec{Band: "state_1km", Bits: []uint{0, 2}},
}

var viirs=Profile{
	Name:       "VIIRS",
	Collection: "NOAA/VIIRS/001/VNP09GA",
	BandNames:  []string{"M3", "M4", "M5", "M7", "M10", "M11"},
	Centers:    []float64{488, 555, 672, 865, 1610, 2250},
	Widths:     []float64{20, 20, 20, 39, 60, 50},
	Scale:      0.0001,
	QA:         &MaskSpec{Band: "QF1", Bits: []uint{2, 3}},
}

var aster=Profile{
	Name:       "ASTER",
	Collection: "ASTER/AST_L1T_003",
	BandNames:  []string{"B01", "B02", "B3N", "B04", "B05", "B06", "B07", "B08", "B09"},
	Centers:    []float64{560, 660, 820, 1650, 2165, 2205, 2260, 2330, 2395},
	Widths:     []float64{80, 60, 100, 100, 40, 40, 50, 60, 70},
	Scale:      0.001,
}

var avnir2=Profile{
	Name:       "AVNIR2",
	Collection: "JAXA/ALOS/AVNIR-2/ORI",
	BandNames:  []string{"B1", "B2", "B3", "B4"},
	Centers:    []float64{460, 560, 650, 825},
	Widths:     []float64{80, 80, 80, 130},
	Scale:      0.00392156862745098,
}

// neon covers 380-2505nm in 426 contiguous 5nm channels, built in init
var neon=Profile{
	Name:  "NEON",
	Scale: 0.0001,
}

var doveR=Profile{
	Name:      "DoveR",
	BandNames: []string{"B1", "B2", "B3", "B4"},
	Centers:   []float64{490.5, 566, 666, 867},
	Widths:    []float64{53, 38, 32, 42},
	Scale:     0.0001,
}

var superDove=Profile{
	Name:      "SuperDove",
	BandNames: []string{"B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8"},
	Centers:   []float64{441.5, 490, 531, 565, 610, 665, 705, 865},
	Widths:    []float64{21, 50, 36, 36, 20, 30, 16, 40},
	Scale:     0.0001,
}

var planetScope=Profile{
	Name:      "PlanetScope",
	BandNames: []string{"B1", "B2", "B3", "B4"},
	Centers:   []float64{485, 545, 630, 820},
	Widths:    []float64{60, 90, 80, 80},
	Scale:     0.0001,
}

func init() {
	const numNeonBands=426
	neon.BandNames=make([]string, numNeonBands)
	neon.Centers  =make([]float64, numNeonBands)
	neon.Widths   =make([]float64, numNeonBands)
	for i:=0; i<numNeonBands; i++ {
		neon.BandNames[i]=fmt.Sprintf("B%03d", i+1)
		neon.Centers[i]  =float64(380+5*i)
		neon.Widths[i]   =5.0
	}
}

// Profile returns the band response table for the sensor.
// The result is shared and must not be modified
func (id ID) Profile() *Profile {
	switch id {
	case Landsat4:    return &landsat4
	case Landsat5:    return &landsat5
	case Landsat7:    return &landsat7
	case Landsat8:    return &landsat8
	case Sentinel2:   return &sentinel2
	case MODIS:       return &modis
	case VIIRS:       return &viirs
	case ASTER:       return &aster
	case AVNIR2:      return &avnir2
	case NEON:        return &neon
	case DoveR:       return &doveR
	case SuperDove:   return &superDove
	case PlanetScope: return &planetScope
	}
	return nil
}
