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
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)


func TestLibraryFileRoundTrip(t *testing.T) {
	l:=testLibrary(t)
	dir:=t.TempDir()
	path:=filepath.Join(dir, "lib.sli")
	if err:=l.WriteFile(path); err!=nil { t.Fatalf("write: %s", err.Error()) }

	got, err:=ReadLibraryFile(path, io.Discard)
	if err!=nil { t.Fatalf("read: %s", err.Error()) }
	if got.NumSpectra()!=l.NumSpectra() || got.NumChannels()!=l.NumChannels() {
		t.Fatalf("got %dx%d expect %dx%d", got.NumSpectra(), got.NumChannels(), l.NumSpectra(), l.NumChannels())
	}
	for i, name:=range l.Names {
		if got.Names[i]!=name { t.Errorf("name %d: got %s expect %s", i, got.Names[i], name) }
	}
	for i:=range l.Data {
		if math.Abs(got.Data[i]-l.Data[i])>1e-6 {
			t.Errorf("value %d: got %f expect %f", i, got.Data[i], l.Data[i])
		}
	}

	// classifications travel through the csv sidecar
	if len(got.Classes)!=len(l.Classes) { t.Fatalf("got %d classes expect %d", len(got.Classes), len(l.Classes)) }
	for i, c:=range l.Classes {
		if got.Classes[i]!=c { t.Errorf("class %d: got %v expect %v", i, got.Classes[i], c) }
	}
}

func TestReadLibraryFileWithoutSidecar(t *testing.T) {
	l, err:=NewLibrary([]string{"a", "b"}, nil, []float64{450, 550}, UnitNanometers, []float64{1, 2, 3, 4})
	if err!=nil { t.Fatalf("library: %s", err.Error()) }
	path:=filepath.Join(t.TempDir(), "plain.sli")
	if err:=l.WriteFile(path); err!=nil { t.Fatalf("write: %s", err.Error()) }

	got, err:=ReadLibraryFile(path, io.Discard)
	if err!=nil { t.Fatalf("read: %s", err.Error()) }
	if len(got.Classes)!=0 { t.Errorf("got %d classes from nowhere", len(got.Classes)) }
}

func TestReadClassificationsCSVErrors(t *testing.T) {
	dir:=t.TempDir()
	path:=filepath.Join(dir, "classes.csv")

	write:=func(content string) {
		if err:=os.WriteFile(path, []byte(content), 0644); err!=nil { t.Fatalf("write: %s", err.Error()) }
	}

	write("NAME,LEVEL_1,LEVEL_2,LEVEL_3,LEVEL_4\na,bare,soil,,\n")
	if _, err:=ReadClassificationsCSV(path, 2); err==nil {
		t.Errorf("accepted row count mismatch")
	}
	write("NAME,LEVEL_1\na,bare\n")
	if _, err:=ReadClassificationsCSV(path, 1); err==nil {
		t.Errorf("accepted missing level columns")
	}
	write("NAME, LEVEL_1, LEVEL_2, LEVEL_3, LEVEL_4\na, bare, soil, ,\n")
	classes, err:=ReadClassificationsCSV(path, 1)
	if err!=nil { t.Fatalf("read: %s", err.Error()) }
	if classes[0].Level1!="bare" || classes[0].Level2!="soil" || classes[0].Level3!="" {
		t.Errorf("got %v, whitespace not trimmed", classes[0])
	}
}

func TestReadJFSP(t *testing.T) {
	path:=filepath.Join(t.TempDir(), "white_ash.txt")
	f, err:=os.Create(path)
	if err!=nil { t.Fatalf("create: %s", err.Error()) }
	fmt.Fprintf(f, "Wavelength Mean +StdDev -StdDev\n")
	for wl:=350; wl<=2500; wl++ {
		v:=0.2+0.0001*float64(wl-350)
		fmt.Fprintf(f, "%d %f %f %f\n", wl, v, v+0.01, v-0.01)
	}
	f.Close()

	s, err:=ReadJFSP(path)
	if err!=nil { t.Fatalf("read: %s", err.Error()) }
	if s.Name!="white_ash" { t.Errorf("got name %s expect white_ash", s.Name) }
	if len(s.Centers)!=2151 || len(s.Values)!=2151 {
		t.Fatalf("got %d channels expect 2151", len(s.Centers))
	}
	if s.Centers[0]!=350 || s.Centers[2150]!=2500 {
		t.Errorf("grid runs %g-%g expect 350-2500", s.Centers[0], s.Centers[2150])
	}
	if math.Abs(s.Values[0]-0.2)>1e-9 { t.Errorf("got %f expect 0.2", s.Values[0]) }
	if math.Abs(s.Values[2150]-0.415)>1e-9 { t.Errorf("got %f expect 0.415", s.Values[2150]) }
}

func TestReadJFSPTruncated(t *testing.T) {
	path:=filepath.Join(t.TempDir(), "short.txt")
	content:="Wavelength Mean +StdDev -StdDev\n350 0.5 0.51 0.49\n351 0.5 0.51 0.49\n"
	if err:=os.WriteFile(path, []byte(content), 0644); err!=nil { t.Fatalf("write: %s", err.Error()) }
	if _, err:=ReadJFSP(path); err==nil {
		t.Errorf("accepted file with 2 of 2151 channels")
	}
}

func TestReadUSGS(t *testing.T) {
	path:=filepath.Join(t.TempDir(), "grass.asc")
	content:="USGS Digital Spectral Library\n"+
		"Name: lawn_grass gds91\n"+
		"X Units: Wavelength (micrometers)\n"+
		"Y Units: Reflectance (percent)\n"+
		"First X Value: 2.5\n"+
		"Number of X Values: 4\n"+
		"  2.5  40.0\n"+
		"  1.5  30.0\n"+
		"  0.9  20.0\n"+
		"  0.5  10.0\n"
	if err:=os.WriteFile(path, []byte(content), 0644); err!=nil { t.Fatalf("write: %s", err.Error()) }

	s, err:=ReadUSGS(path)
	if err!=nil { t.Fatalf("read: %s", err.Error()) }
	if s.Name!="lawn_grass gds91" { t.Errorf("got name %q", s.Name) }
	if len(s.Centers)!=4 { t.Fatalf("got %d channels expect 4", len(s.Centers)) }

	// wavelengths ascend in nanometers, reflectance in 0-1
	expectWl:=[]float64{500, 900, 1500, 2500}
	expectV:=[]float64{0.1, 0.2, 0.3, 0.4}
	for i:=range expectWl {
		if math.Abs(s.Centers[i]-expectWl[i])>1e-9 {
			t.Errorf("channel %d: got %f expect %f nm", i, s.Centers[i], expectWl[i])
		}
		if math.Abs(s.Values[i]-expectV[i])>1e-9 {
			t.Errorf("channel %d: got %f expect %f", i, s.Values[i], expectV[i])
		}
	}
}

func TestReadUSGSCountMismatch(t *testing.T) {
	path:=filepath.Join(t.TempDir(), "bad.asc")
	content:="Name: x\nX Units: Wavelength (micrometers)\nY Units: Reflectance (percent)\nNumber of X Values: 3\n0.5 10.0\n"
	if err:=os.WriteFile(path, []byte(content), 0644); err!=nil { t.Fatalf("write: %s", err.Error()) }
	if _, err:=ReadUSGS(path); err==nil {
		t.Errorf("accepted value count mismatch")
	}
}
