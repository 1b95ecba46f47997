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


package envi

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File type strings for the header "file type" field
const (
	FileTypeStandard = "ENVI Standard"
	FileTypeLibrary  = "ENVI Spectral Library"
)

// An ENVI header, the ASCII sidecar describing a flat binary data file.
// Spectral libraries store one spectrum per line with samples=number of
// channels and bands=1; image cubes store samples x lines pixels per band.
type Header struct {
	Description     string
	Samples         int
	Lines           int
	Bands           int
	HeaderOffset    int
	FileType        string
	DataType        int      // 4=float32, 5=float64
	Interleave      string   // bsq only
	ByteOrder       int      // 0=little endian, 1=big endian
	SensorType      string
	WavelengthUnits string
	BandNames       []string
	SpectraNames    []string
	Wavelength      []float64
	FWHM            []float64
}

// Number of data elements described by the header
func (h *Header) Elements() int { return h.Samples*h.Lines*h.Bands }

// Returns the conventional header path for a data file, replacing the extension with .hdr
func HeaderPath(dataPath string) string {
	return strings.TrimSuffix(dataPath, filepath.Ext(dataPath))+".hdr"
}

// Locates the header sidecar for a data file, trying the replaced extension first
// and the appended ".hdr" convention second
func FindHeader(dataPath string) (string, error) {
	p:=HeaderPath(dataPath)
	if _, err:=os.Stat(p); err==nil { return p, nil }
	p=dataPath+".hdr"
	if _, err:=os.Stat(p); err==nil { return p, nil }
	return "", errors.New(fmt.Sprintf("no .hdr sidecar found for %s", dataPath))
}

// Reads and parses an ENVI header file
func ReadHeaderFile(path string) (h *Header, err error) {
	f, err:=os.Open(path)
	if err!=nil { return nil, err }
	defer f.Close()
	return ReadHeader(f)
}

// Parses an ENVI header from a reader. The first line must be the "ENVI" magic
func ReadHeader(r io.Reader) (h *Header, err error) {
	scanner:=bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !scanner.Scan() { return nil, errors.New("empty ENVI header") }
	if strings.TrimSpace(scanner.Text())!="ENVI" { return nil, errors.New("missing ENVI magic in header") }

	h=&Header{Bands: 1, Interleave: "bsq", FileType: FileTypeStandard}
	for scanner.Scan() {
		line:=strings.TrimSpace(scanner.Text())
		if line=="" { continue }
		eq:=strings.Index(line, "=")
		if eq<0 { continue }
		key:=strings.ToLower(strings.TrimSpace(line[:eq]))
		value:=strings.TrimSpace(line[eq+1:])

		// brace-delimited values may span multiple lines
		if strings.HasPrefix(value, "{") && !strings.Contains(value, "}") {
			b:=strings.Builder{}
			b.WriteString(value)
			for scanner.Scan() {
				next:=scanner.Text()
				b.WriteString(" ")
				b.WriteString(next)
				if strings.Contains(next, "}") { break }
			}
			value=b.String()
		}

		if err:=h.set(key, value); err!=nil { return nil, err }
	}
	if err:=scanner.Err(); err!=nil { return nil, err }
	if h.Samples<=0 || h.Lines<=0 || h.Bands<=0 {
		return nil, errors.New(fmt.Sprintf("invalid ENVI dimensions %dx%dx%d", h.Samples, h.Lines, h.Bands))
	}
	return h, nil
}

func (h *Header) set(key, value string) (err error) {
	switch key {
	case "description":
		h.Description=trimBraces(value)
	case "samples":
		h.Samples, err=strconv.Atoi(value)
	case "lines":
		h.Lines, err=strconv.Atoi(value)
	case "bands":
		h.Bands, err=strconv.Atoi(value)
	case "header offset":
		h.HeaderOffset, err=strconv.Atoi(value)
	case "file type":
		h.FileType=value
	case "data type":
		h.DataType, err=strconv.Atoi(value)
	case "interleave":
		h.Interleave=strings.ToLower(value)
	case "byte order":
		h.ByteOrder, err=strconv.Atoi(value)
	case "sensor type":
		h.SensorType=value
	case "wavelength units":
		h.WavelengthUnits=value
	case "band names":
		h.BandNames=splitList(value)
	case "spectra names":
		h.SpectraNames=splitList(value)
	case "wavelength":
		h.Wavelength, err=parseFloats(value)
	case "fwhm":
		h.FWHM, err=parseFloats(value)
	default:
		// unknown keys are preserved nowhere, skip
	}
	if err!=nil { return errors.New(fmt.Sprintf("ENVI header field %s: %s", key, err.Error())) }
	return nil
}

func trimBraces(s string) string {
	s=strings.TrimSpace(s)
	s=strings.TrimPrefix(s, "{")
	s=strings.TrimSuffix(s, "}")
	return strings.TrimSpace(s)
}

func splitList(s string) []string {
	parts:=strings.Split(trimBraces(s), ",")
	out:=make([]string, 0, len(parts))
	for _, p:=range parts {
		p=strings.TrimSpace(p)
		if p!="" { out=append(out, p) }
	}
	return out
}

func parseFloats(s string) ([]float64, error) {
	parts:=splitList(s)
	out:=make([]float64, len(parts))
	for i, p:=range parts {
		v, err:=strconv.ParseFloat(p, 64)
		if err!=nil { return nil, err }
		out[i]=v
	}
	return out, nil
}

// Writes the header to a file
func (h *Header) WriteFile(path string) error {
	f, err:=os.Create(path)
	if err!=nil { return err }
	defer f.Close()
	w:=bufio.NewWriter(f)
	defer w.Flush()
	return h.Write(w)
}

// Writes the header in canonical field order
func (h *Header) Write(w io.Writer) (err error) {
	if _, err=fmt.Fprintf(w, "ENVI\n"); err!=nil { return err }
	if h.Description!="" { fmt.Fprintf(w, "description = {%s}\n", h.Description) }
	fmt.Fprintf(w, "samples = %d\n", h.Samples)
	fmt.Fprintf(w, "lines = %d\n",   h.Lines)
	fmt.Fprintf(w, "bands = %d\n",   h.Bands)
	fmt.Fprintf(w, "header offset = %d\n", h.HeaderOffset)
	if h.FileType!="" { fmt.Fprintf(w, "file type = %s\n", h.FileType) }
	fmt.Fprintf(w, "data type = %d\n",  h.DataType)
	fmt.Fprintf(w, "interleave = %s\n", h.Interleave)
	fmt.Fprintf(w, "byte order = %d\n", h.ByteOrder)
	if h.SensorType!="" { fmt.Fprintf(w, "sensor type = %s\n", h.SensorType) }
	if h.WavelengthUnits!="" { fmt.Fprintf(w, "wavelength units = %s\n", h.WavelengthUnits) }
	if len(h.BandNames)>0    { fmt.Fprintf(w, "band names = {%s}\n",    strings.Join(h.BandNames, ", ")) }
	if len(h.SpectraNames)>0 { fmt.Fprintf(w, "spectra names = {%s}\n", strings.Join(h.SpectraNames, ", ")) }
	if len(h.Wavelength)>0   { fmt.Fprintf(w, "wavelength = {%s}\n",    joinFloats(h.Wavelength)) }
	if len(h.FWHM)>0         { _, err=fmt.Fprintf(w, "fwhm = {%s}\n",   joinFloats(h.FWHM)) }
	return err
}

func joinFloats(vs []float64) string {
	b:=strings.Builder{}
	for i, v:=range vs {
		if i>0 { b.WriteString(", ") }
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

// Reads the flat binary data file described by the header into float64 values
func ReadData(path string, h *Header) (data []float64, err error) {
	f, err:=os.Open(path)
	if err!=nil { return nil, err }
	defer f.Close()
	if h.HeaderOffset>0 {
		if _, err=f.Seek(int64(h.HeaderOffset), io.SeekStart); err!=nil { return nil, err }
	}

	var order binary.ByteOrder=binary.LittleEndian
	if h.ByteOrder==1 { order=binary.BigEndian }
	r:=bufio.NewReader(f)
	n:=h.Elements()

	switch h.DataType {
	case 4:
		raw:=make([]float32, n)
		if err=binary.Read(r, order, raw); err!=nil { return nil, err }
		data=make([]float64, n)
		for i, v:=range raw { data[i]=float64(v) }
		return data, nil
	case 5:
		data=make([]float64, n)
		if err=binary.Read(r, order, data); err!=nil { return nil, err }
		return data, nil
	default:
		return nil, errors.New(fmt.Sprintf("unsupported ENVI data type %d, expect 4 or 5", h.DataType))
	}
}

// Writes data as little-endian float32, the format this package declares in headers it writes
func WriteData(path string, data []float64) error {
	f, err:=os.Create(path)
	if err!=nil { return err }
	defer f.Close()
	w:=bufio.NewWriter(f)
	defer w.Flush()

	raw:=make([]float32, len(data))
	for i, v:=range data { raw[i]=float32(v) }
	return binary.Write(w, binary.LittleEndian, raw)
}
