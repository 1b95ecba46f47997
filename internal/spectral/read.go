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
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"github.com/earth-chris/specmix/internal/envi"
)

// ReadLibraryFile loads an ENVI spectral library (.sli plus .hdr sidecar) and,
// when a .csv sidecar with the same basename exists, its classification table
func ReadLibraryFile(path string, logWriter io.Writer) (l *Library, err error) {
	hdrPath, err:=envi.FindHeader(path)
	if err!=nil { return nil, err }
	h, err:=envi.ReadHeaderFile(hdrPath)
	if err!=nil { return nil, err }
	if h.Bands!=1 {
		return nil, errors.New(fmt.Sprintf("%s: spectral library must have bands=1, got %d", hdrPath, h.Bands))
	}
	if len(h.Wavelength)!=h.Samples {
		return nil, errors.New(fmt.Sprintf("%s: header has %d wavelengths for %d samples", hdrPath, len(h.Wavelength), h.Samples))
	}

	data, err:=envi.ReadData(path, h)
	if err!=nil { return nil, err }

	names:=h.SpectraNames
	if len(names)==0 {
		names=make([]string, h.Lines)
		for i:=range names { names[i]=fmt.Sprintf("Spectrum %d", i) }
	}
	if len(names)!=h.Lines {
		return nil, errors.New(fmt.Sprintf("%s: header names %d spectra for %d lines", hdrPath, len(names), h.Lines))
	}

	var classes []Classification
	csvPath:=strings.TrimSuffix(path, filepath.Ext(path))+".csv"
	if _, statErr:=os.Stat(csvPath); statErr==nil {
		classes, err=ReadClassificationsCSV(csvPath, h.Lines)
		if err!=nil { return nil, err }
	}

	l, err=NewLibrary(names, classes, h.Wavelength, h.WavelengthUnits, data)
	if err!=nil { return nil, err }
	fmt.Fprintf(logWriter, "Loaded spectral library %s with %d spectra x %d channels (%g-%g nm)\n",
		        path, l.NumSpectra(), l.NumChannels(), l.Centers[0], l.Centers[len(l.Centers)-1])
	return l, nil
}

// WriteFile stores the library as ENVI .sli with .hdr sidecar, and a .csv
// classification sidecar when the library carries classes
func (l *Library) WriteFile(path string) error {
	base:=strings.TrimSuffix(path, filepath.Ext(path))
	h:=&envi.Header{
		Samples:         l.NumChannels(),
		Lines:           l.NumSpectra(),
		Bands:           1,
		FileType:        envi.FileTypeLibrary,
		DataType:        4,
		Interleave:      "bsq",
		ByteOrder:       0,
		SensorType:      "specmix",
		WavelengthUnits: UnitNanometers,
		SpectraNames:    l.Names,
		Wavelength:      l.Centers,
	}
	if err:=h.WriteFile(base+".hdr"); err!=nil { return err }
	if err:=envi.WriteData(base+".sli", l.Data); err!=nil { return err }
	if len(l.Classes)>0 {
		if err:=writeClassificationsCSV(base+".csv", l.Names, l.Classes); err!=nil { return err }
	}
	return nil
}

// ReadClassificationsCSV parses a NAME,LEVEL_1..LEVEL_4 table with one row per
// library entry, in library row order
func ReadClassificationsCSV(path string, numRows int) (classes []Classification, err error) {
	f, err:=os.Open(path)
	if err!=nil { return nil, err }
	defer f.Close()

	r:=csv.NewReader(f)
	r.TrimLeadingSpace=true
	records, err:=r.ReadAll()
	if err!=nil { return nil, err }
	if len(records)<1 { return nil, errors.New(fmt.Sprintf("%s: empty classification table", path)) }

	cols:=map[string]int{}
	for i, name:=range records[0] {
		cols[strings.ToUpper(strings.TrimSpace(name))]=i
	}
	for _, want:=range []string{"LEVEL_1", "LEVEL_2", "LEVEL_3", "LEVEL_4"} {
		if _, ok:=cols[want]; !ok {
			return nil, errors.New(fmt.Sprintf("%s: classification table missing column %s", path, want))
		}
	}

	rows:=records[1:]
	if len(rows)!=numRows {
		return nil, errors.New(fmt.Sprintf("%s: classification table has %d rows, library has %d", path, len(rows), numRows))
	}
	classes=make([]Classification, len(rows))
	for i, rec:=range rows {
		classes[i]=Classification{
			Level1: strings.TrimSpace(rec[cols["LEVEL_1"]]),
			Level2: strings.TrimSpace(rec[cols["LEVEL_2"]]),
			Level3: strings.TrimSpace(rec[cols["LEVEL_3"]]),
			Level4: strings.TrimSpace(rec[cols["LEVEL_4"]]),
		}
	}
	return classes, nil
}

func writeClassificationsCSV(path string, names []string, classes []Classification) error {
	f, err:=os.Create(path)
	if err!=nil { return err }
	defer f.Close()

	w:=csv.NewWriter(f)
	if err:=w.Write([]string{"NAME", "LEVEL_1", "LEVEL_2", "LEVEL_3", "LEVEL_4"}); err!=nil { return err }
	for i, c:=range classes {
		if err:=w.Write([]string{names[i], c.Level1, c.Level2, c.Level3, c.Level4}); err!=nil { return err }
	}
	w.Flush()
	return w.Error()
}

// The ASD field spectrometer grid used by the JFSP burn severity library
func asdGrid() []float64 {
	centers:=make([]float64, 2151)
	for i:=range centers { centers[i]=float64(350+i) }
	return centers
}

// ReadJFSP reads a Joint Fire Science Program ASCII spectrum: a header line,
// then per line the wavelength, mean reflectance and +/- standard deviations,
// on the 350-2500 nm ASD grid
func ReadJFSP(path string) (s *Spectrum, err error) {
	f, err:=os.Open(path)
	if err!=nil { return nil, err }
	defer f.Close()

	centers:=asdGrid()
	values:=make([]float64, len(centers))
	scanner:=bufio.NewScanner(f)
	if !scanner.Scan() { return nil, errors.New(fmt.Sprintf("%s: empty JFSP file", path)) }

	i:=0
	for scanner.Scan() {
		fields:=strings.Fields(scanner.Text())
		if len(fields)<2 { continue }
		if i>=len(values) { return nil, errors.New(fmt.Sprintf("%s: more than %d channels in JFSP file", path, len(values))) }
		v, err:=strconv.ParseFloat(fields[1], 64)
		if err!=nil { return nil, errors.New(fmt.Sprintf("%s: bad reflectance on channel %d: %s", path, i, err.Error())) }
		values[i]=v
		i++
	}
	if err:=scanner.Err(); err!=nil { return nil, err }
	if i!=len(values) {
		return nil, errors.New(fmt.Sprintf("%s: JFSP file has %d channels, expect %d", path, i, len(values)))
	}

	name:=strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Spectrum{Name: name, Unit: UnitNanometers, Centers: centers, Values: values}, nil
}

// ReadUSGS reads a USGS spectral library ASCII file: metadata lines naming the
// spectrum, units and value count, then wavelength/reflectance pairs.
// Micrometer wavelengths are converted to nanometers and percent reflectance
// is scaled to the 0-1 range
func ReadUSGS(path string) (s *Spectrum, err error) {
	f, err:=os.Open(path)
	if err!=nil { return nil, err }
	defer f.Close()

	name:=strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	xUnit, yUnit:="", ""
	nValues:=0

	var centers, values []float64
	scanner:=bufio.NewScanner(f)
	for scanner.Scan() {
		line:=strings.TrimSpace(scanner.Text())
		if line=="" { continue }

		switch {
		case strings.Contains(line, "Name:"):
			name=strings.TrimSpace(line[strings.Index(line, "Name:")+len("Name:"):])
			continue
		case strings.Contains(line, "X Units:"):
			xUnit=lastField(line)
			continue
		case strings.Contains(line, "Y Units:"):
			yUnit=lastField(line)
			continue
		case strings.Contains(line, "Number of X Values:"):
			nValues, err=strconv.Atoi(lastField(line))
			if err!=nil { return nil, errors.New(fmt.Sprintf("%s: bad value count: %s", path, err.Error())) }
			continue
		}

		fields:=strings.Fields(line)
		if len(fields)<2 { continue }
		x, errX:=strconv.ParseFloat(fields[0], 64)
		y, errY:=strconv.ParseFloat(fields[1], 64)
		if errX!=nil || errY!=nil { continue } // still in the header
		centers=append(centers, x)
		values=append(values, y)
	}
	if err:=scanner.Err(); err!=nil { return nil, err }
	if len(centers)==0 { return nil, errors.New(fmt.Sprintf("%s: no spectral data found", path)) }
	if nValues>0 && len(centers)!=nValues {
		return nil, errors.New(fmt.Sprintf("%s: read %d values, header declares %d", path, len(centers), nValues))
	}

	// some files store last to first wavelength
	if centers[0]>centers[len(centers)-1] {
		for i, j:=0, len(centers)-1; i<j; i, j=i+1, j-1 {
			centers[i], centers[j]=centers[j], centers[i]
			values[i], values[j]=values[j], values[i]
		}
	}

	if strings.EqualFold(xUnit, "micrometers") {
		for i:=range centers { centers[i]*=1000 }
	}
	if strings.EqualFold(yUnit, "percent") {
		for i:=range values { values[i]/=100 }
	}

	return &Spectrum{Name: name, Unit: UnitNanometers, Centers: centers, Values: values}, nil
}

func lastField(line string) string {
	fields:=strings.Fields(line)
	if len(fields)==0 { return "" }
	return strings.Trim(fields[len(fields)-1], "()")
}
