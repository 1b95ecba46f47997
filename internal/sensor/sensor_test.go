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
	"errors"
	"math"
	"testing"
)

func TestProfiles(t *testing.T) {
	for _, id:=range IDs() {
		p:=id.Profile()
		if p==nil { t.Fatalf("sensor %s has no profile", id) }
		if p.Name!=id.String() { t.Errorf("profile name %s does not match id %s", p.Name, id) }
		nb:=p.NumBands()
		if nb==0 { t.Errorf("%s: profile has no bands", id) }
		if len(p.Centers)!=nb || len(p.Widths)!=nb {
			t.Errorf("%s: %d names, %d centers, %d widths", id, nb, len(p.Centers), len(p.Widths))
		}
		if p.Scale<=0 { t.Errorf("%s: scale %g, expect positive", id, p.Scale) }
		for i:=1; i<nb; i++ {
			if !(p.Centers[i]>p.Centers[i-1]) {
				t.Errorf("%s: band centers not increasing at %d: %g >= %g", id, i, p.Centers[i-1], p.Centers[i])
			}
		}
		for i, w:=range p.Widths {
			if !(w>0) { t.Errorf("%s: band %d has width %g", id, i, w) }
		}
		seen:=map[string]bool{}
		for _, name:=range p.BandNames {
			if seen[name] { t.Errorf("%s: duplicate band name %s", id, name) }
			seen[name]=true
		}
		if p.QA!=nil && (p.QA.Band=="" || len(p.QA.Bits)==0) {
			t.Errorf("%s: incomplete QA mask spec %+v", id, p.QA)
		}
	}
}

func TestMaskSpecs(t *testing.T) {
	cases:=[]struct {
		id   ID
		band string
		bits []uint
	}{
		{Landsat4, "QA_PIXEL", []uint{3, 4}},
		{Landsat5, "QA_PIXEL", []uint{3, 4}},
		{Landsat7, "QA_PIXEL", []uint{3, 4}},
		{Landsat8, "QA_PIXEL", []uint{3, 4}},
		{Sentinel2, "QA60", []uint{10, 11}},
		{MODIS, "state_1km", []uint{0, 2}},
		{VIIRS, "QF1", []uint{2, 3}},
	}
	for _, c:=range cases {
		qa:=c.id.Profile().QA
		if qa==nil { t.Errorf("%s: missing QA mask spec", c.id); continue }
		if qa.Band!=c.band { t.Errorf("%s: QA band %s, expect %s", c.id, qa.Band, c.band) }
		if len(qa.Bits)!=len(c.bits) { t.Errorf("%s: QA bits %v, expect %v", c.id, qa.Bits, c.bits); continue }
		for i:=range c.bits {
			if qa.Bits[i]!=c.bits[i] { t.Errorf("%s: QA bits %v, expect %v", c.id, qa.Bits, c.bits) }
		}
	}
	for _, id:=range []ID{ASTER, AVNIR2, NEON, DoveR, SuperDove, PlanetScope} {
		if id.Profile().QA!=nil { t.Errorf("%s: unexpected QA mask spec", id) }
	}
}

func TestParse(t *testing.T) {
	for _, name:=range []string{"Landsat8", "landsat8", "LANDSAT8"} {
		id, err:=Parse(name)
		if err!=nil { t.Errorf("parsing %s: %s", name, err.Error()) }
		if id!=Landsat8 { t.Errorf("parsing %s yields %s, expect Landsat8", name, id) }
	}

	_, err:=Parse("Quickbird")
	var sensorErr *InvalidSensorError
	if !errors.As(err, &sensorErr) { t.Fatalf("unknown sensor: got %v, expect InvalidSensorError", err) }
	if len(sensorErr.Supported)!=len(Names()) {
		t.Errorf("error lists %d supported sensors, expect %d", len(sensorErr.Supported), len(Names()))
	}
}

func TestNEONProfile(t *testing.T) {
	p:=NEON.Profile()
	if p.NumBands()!=426 { t.Fatalf("NEON has %d bands, expect 426", p.NumBands()) }
	if p.BandNames[0]!="B001" || p.Centers[0]!=380 { t.Errorf("first band %s at %g, expect B001 at 380", p.BandNames[0], p.Centers[0]) }
	if p.BandNames[425]!="B426" || p.Centers[425]!=2505 { t.Errorf("last band %s at %g, expect B426 at 2505", p.BandNames[425], p.Centers[425]) }
	for i, w:=range p.Widths {
		if w!=5 { t.Fatalf("band %d width %g, expect 5", i, w) }
	}
	if math.Abs(p.Scale-0.0001)>1e-12 { t.Errorf("NEON scale %g, expect 0.0001", p.Scale) }
}
