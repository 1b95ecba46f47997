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
	"math"
	"testing"
)


func testLibrary(t *testing.T) *Library {
	names:=[]string{"soil a", "soil b", "grass", "char"}
	classes:=[]Classification{
		{Level1: "bare", Level2: "soil", Level3: "loam"},
		{Level1: "bare", Level2: "soil", Level3: "sand"},
		{Level1: "vegetation", Level2: "grass"},
		{Level1: "burn", Level2: "char"},
	}
	centers:=[]float64{450, 550, 650, 1400, 1850, 2200}
	data:=[]float64{
		0.10, 0.15, 0.20, 0.30, 0.35, 0.40,
		0.12, 0.18, 0.24, 0.33, 0.38, 0.44,
		0.04, 0.10, 0.05, 0.40, 0.25, 0.15,
		0.02, 0.03, 0.04, 0.05, 0.06, 0.07,
	}
	l, err:=NewLibrary(names, classes, centers, UnitNanometers, data)
	if err!=nil { t.Fatalf("library: %s", err.Error()) }
	return l
}

func TestNewLibraryValidation(t *testing.T) {
	centers:=[]float64{450, 550}
	if _, err:=NewLibrary([]string{"a"}, nil, centers, UnitNanometers, []float64{1}); err==nil {
		t.Errorf("accepted data shorter than names x channels")
	}
	if _, err:=NewLibrary([]string{"a"}, nil, []float64{550, 450}, UnitNanometers, []float64{1, 2}); err==nil {
		t.Errorf("accepted decreasing wavelengths")
	}
	if _, err:=NewLibrary(nil, nil, centers, UnitNanometers, nil); err==nil {
		t.Errorf("accepted empty library")
	}

	// same label on two levels must be rejected, matching would be ambiguous
	classes:=[]Classification{
		{Level1: "bare", Level2: "soil"},
		{Level1: "soil", Level2: "sand"},
	}
	if _, err:=NewLibrary([]string{"a", "b"}, classes, centers, UnitNanometers, []float64{1, 2, 3, 4}); err==nil {
		t.Errorf("accepted class label reused across levels")
	}
}

func TestNewLibraryMicrometers(t *testing.T) {
	l, err:=NewLibrary([]string{"a"}, nil, []float64{0.45, 0.55}, UnitMicrometers, []float64{1, 2})
	if err!=nil { t.Fatalf("library: %s", err.Error()) }
	if l.Centers[0]!=450 || l.Centers[1]!=550 {
		t.Errorf("got centers %v expect [450 550] nm", l.Centers)
	}
}

func TestMatchLabel(t *testing.T) {
	l:=testLibrary(t)

	rows, level:=l.MatchLabel("bare")
	if level!=1 || len(rows)!=2 || rows[0]!=0 || rows[1]!=1 {
		t.Errorf("bare: got rows %v level %d", rows, level)
	}
	rows, level=l.MatchLabel("Soil") // case insensitive, level 2
	if level!=2 || len(rows)!=2 {
		t.Errorf("Soil: got rows %v level %d", rows, level)
	}
	rows, level=l.MatchLabel("sand")
	if level!=3 || len(rows)!=1 || rows[0]!=1 {
		t.Errorf("sand: got rows %v level %d", rows, level)
	}
	if rows, level=l.MatchLabel("water"); level!=0 || rows!=nil {
		t.Errorf("water: got rows %v level %d, expect no match", rows, level)
	}
}

func TestLabels(t *testing.T) {
	l:=testLibrary(t)
	got:=l.LabelsAtLevel(1)
	expect:=[]string{"bare", "vegetation", "burn"}
	if len(got)!=len(expect) { t.Fatalf("level 1 labels %v expect %v", got, expect) }
	for i:=range got {
		if got[i]!=expect[i] { t.Errorf("level 1 labels %v expect %v", got, expect) }
	}
}

func TestSubset(t *testing.T) {
	l:=testLibrary(t)
	s, err:=l.Subset([]int{2, 0})
	if err!=nil { t.Fatalf("subset: %s", err.Error()) }
	if s.NumSpectra()!=2 || s.Names[0]!="grass" || s.Names[1]!="soil a" {
		t.Errorf("subset names %v", s.Names)
	}
	if s.Row(0)[0]!=0.04 || s.Row(1)[0]!=0.10 {
		t.Errorf("subset rows not copied in order")
	}
	if _, err:=l.Subset([]int{4}); err==nil {
		t.Errorf("accepted out of range row")
	}
}

func TestWaterBands(t *testing.T) {
	if inWaterBand(1300) { t.Errorf("1300nm flagged as water band") }
	if !inWaterBand(1400) { t.Errorf("1400nm not flagged as water band") }
	if !inWaterBand(1850) { t.Errorf("1850nm not flagged as water band") }
	if inWaterBand(1350) { t.Errorf("1350nm flagged, bounds are exclusive") }
	if inWaterBand(1960) { t.Errorf("1960nm flagged, bounds are exclusive") }

	l:=testLibrary(t)
	m:=l.MaskWaterBands(true)
	if !math.IsNaN(m.Row(0)[3]) || !math.IsNaN(m.Row(0)[4]) {
		t.Errorf("water band channels not set to NaN")
	}
	if m.Row(0)[0]!=0.10 { t.Errorf("non-water channel modified") }
	if math.IsNaN(l.Row(0)[3]) { t.Errorf("masking modified the source library") }

	z:=l.MaskWaterBands(false)
	if z.Row(0)[3]!=0 { t.Errorf("water band channel not zeroed") }

	d:=l.DropWaterBands()
	if d.NumChannels()!=4 {
		t.Errorf("got %d channels after drop, expect 4", d.NumChannels())
	}
	if d.Centers[3]!=2200 { t.Errorf("dropped wrong channels: %v", d.Centers) }
}

func TestBrightnessNormalized(t *testing.T) {
	l:=testLibrary(t)
	n, err:=l.BrightnessNormalized(nil)
	if err!=nil { t.Fatalf("normalize: %s", err.Error()) }
	for i:=0; i<n.NumSpectra(); i++ {
		sum:=0.0
		for _, v:=range n.Row(i) { sum+=v*v }
		if math.Abs(math.Sqrt(sum)-1)>1e-12 {
			t.Errorf("row %d norm %f expect 1", i, math.Sqrt(sum))
		}
	}

	// normalizing on a channel subset keeps only those channels
	s, err:=l.BrightnessNormalized([]int{0, 1, 2})
	if err!=nil { t.Fatalf("normalize subset: %s", err.Error()) }
	if s.NumChannels()!=3 { t.Errorf("got %d channels, expect 3", s.NumChannels()) }
	v:=l.Row(0)
	norm:=math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if math.Abs(s.Row(0)[0]-v[0]/norm)>1e-12 {
		t.Errorf("got %f expect %f", s.Row(0)[0], v[0]/norm)
	}
}

func TestShortwaveChannelIndices(t *testing.T) {
	l, err:=NewLibrary([]string{"a"}, nil, []float64{350, 400, 2499, 2500}, UnitNanometers, []float64{1, 2, 3, 4})
	if err!=nil { t.Fatalf("library: %s", err.Error()) }
	got:=l.ShortwaveChannelIndices()
	if len(got)!=2 || got[0]!=1 || got[1]!=2 {
		t.Errorf("got %v expect [1 2], bounds are exclusive", got)
	}
}
