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

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/debug"
	"strings"
	"time"
	"github.com/valyala/fastrand"
	"github.com/earth-chris/specmix/internal/job"
	"github.com/earth-chris/specmix/internal/rest"
	"github.com/earth-chris/specmix/internal/sensor"
	"github.com/earth-chris/specmix/internal/spectral"
	"github.com/earth-chris/specmix/internal/unmix"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out  = flag.String("out", "cover.bsq", "save fraction cube to `file` (.bsq, .tif or .jpg)")
var jpg  = flag.String("jpg", "%auto", "save false color preview of output as JPEG to `file`. `%auto` replaces suffix of output file with .jpg")
var log  = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var lib  = flag.String("lib", "", "load endmember library from ENVI spectral library `file` (.sli with .hdr sidecar)")
var sens = flag.String("sensor", "Landsat8", "sensor the input image was acquired with; see command sensors")
var n    = flag.Int64("n", 30, "number of random endmember draws per cover class")
var seed = flag.Uint64("seed", 0, "seed for endmember draws, 0 seeds from entropy")
var bands= flag.String("bands", "", "comma separated sensor band names to unmix on, empty uses all")

var classes = flag.String("classes", "", "comma separated cover classes for the cover command")
var names   = flag.String("names", "", "comma separated output band names for the cover command, empty uses the classes")

var shade    = flag.Bool("shade", false, "normalize fractions by the photometric shade endmember")
var keepRMSE = flag.Bool("keepRMSE", false, "keep the fused RMSE band in the output")
var scale    = flag.Bool("scale", false, "scale raw pixel values to reflectance with the sensor gain and offset")
var mask     = flag.Bool("mask", false, "mask clouds and shadows from the sensor QA band")

var chroot = flag.String("chroot", "", "serve: change filesystem root to `dir` before serving (requires root)")
var setuid = flag.Int64("setuid", -1, "serve: switch to user `id` before serving (requires root)")

func main() {
	var logWriter io.Writer=os.Stdout
	debug.SetGCPercent(10)
	start:=time.Now()
	flag.Usage=func(){
 	    fmt.Fprintf(logWriter, `Specmix Copyright (c) 2025 The specmix authors
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (vis|svn|bvn|cover|run|spectra|classes|sensors|serve|legal|version) (scene.bsq ... | job.yaml ... | class)

Commands:
  vis     Unmix vegetation, impervious surface and soil fractions from an image
  svn     Unmix soil, photosynthetic and non-photosynthetic vegetation fractions
  bvn     Unmix burned, photosynthetic and non-photosynthetic vegetation fractions
  cover   Unmix the cover classes given with -classes
  run     Run unmixing jobs from YAML job files
  spectra Sample endmember spectra for a cover class, as JSON or an ENVI library
  classes Show the cover class hierarchy of the library given with -lib
  sensors Show supported sensors and their band definitions
  serve   Serve the unmixing API over HTTP
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
	    flag.PrintDefaults()
	}
	flag.Parse()

	// Log to file in addition to stdout, if selected
	if *log=="%auto" {
		if *out!="" {
			*log=strings.TrimSuffix(*out, filepath.Ext(*out))+".log"
		} else {
			*log=""
		}
	}
	if *log!="" {
		f, err:=os.Create(*log)
		if err!=nil {
			fmt.Fprintf(logWriter, "Unable to open logfile '%s'\n", *log)
			os.Exit(-1)
		}
		defer f.Close()
		logWriter=io.MultiWriter(os.Stdout, f)
	}

	// Also auto-select JPEG preview target
	if *jpg=="%auto" {
		if *out!="" {
			*jpg=strings.TrimSuffix(*out, filepath.Ext(*out))+".jpg"
		} else {
			*jpg=""
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile!="" {
		f, err:=os.Create(*cpuprofile)
		if err!=nil {
			fmt.Fprintf(logWriter, "Could not create CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		if err:=pprof.StartCPUProfile(f); err!=nil {
			fmt.Fprintf(logWriter, "Could not start CPU profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer pprof.StopCPUProfile()
	}

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "serve":
		if err=rest.MakeSandbox(logWriter, *chroot, int(*setuid)); err==nil {
			rest.Serve()
		}

	case "vis", "svn", "bvn", "cover":
		err=cmdUnmix(args[0], args[1:], logWriter)

	case "run":
		err=cmdRun(args[1:], logWriter)

	case "spectra":
		err=cmdSpectra(args[1:], logWriter)

	case "classes":
		err=cmdClasses(logWriter)

	case "sensors":
		cmdSensors()

	case "legal":
		fmt.Fprintf(logWriter, "%s", legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	elapsed:=time.Now().Sub(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile!="" {
		f, err:=os.Create(*memprofile)
		if err!=nil {
			fmt.Fprintf(logWriter, "Could not create memory profile: %s\n", err.Error())
			os.Exit(-1)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err:=pprof.Lookup("allocs").WriteTo(f, 0); err!=nil {
			fmt.Fprintf(logWriter, "Could not write allocation profile: %s\n", err.Error())
			os.Exit(-1)
		}
	}

	if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
}

// Split a comma separated flag value into trimmed nonempty fields
func splitList(s string) (fields []string) {
	for _, f:=range strings.Split(s, ",") {
		if f=strings.TrimSpace(f); f!="" { fields=append(fields, f) }
	}
	return fields
}

// Unmix one input image with the flags gathered into a job config
func cmdUnmix(mode string, args []string, logWriter io.Writer) error {
	if len(args)!=1 {
		return errors.New(fmt.Sprintf("%s needs one input image, e.g. specmix -lib library.sli %s scene.bsq", mode, mode))
	}
	cfg:=job.NewConfig()
	cfg.Library=*lib
	cfg.Image=args[0]
	cfg.Sensor=*sens
	cfg.Mode=mode
	cfg.N=int(*n)
	cfg.Seed=uint32(*seed)
	cfg.Bands=splitList(*bands)
	cfg.ShadeNormalize=*shade
	cfg.KeepRMSE=*keepRMSE
	cfg.ScaleReflectance=*scale
	cfg.MaskClouds=*mask
	if mode=="cover" {
		cfg.Classes=splitList(*classes)
		cfg.Names=splitList(*names)
	}
	cfg.Output=*out
	cfg.Preview=*jpg
	if err:=cfg.Finalize(); err!=nil { return err }
	return job.Run(cfg, unmix.NewContext(logWriter))
}

// Run YAML job files in sequence
func cmdRun(args []string, logWriter io.Writer) error {
	if len(args)<1 { return errors.New("run needs a job file, e.g. specmix run job.yaml") }
	for _, path:=range args {
		cfg, err:=job.LoadConfig(path)
		if err!=nil { return err }
		fmt.Fprintf(logWriter, "Running job %s\n", path)
		if err:=job.Run(cfg, unmix.NewContext(logWriter)); err!=nil { return err }
	}
	return nil
}

// Sample endmember spectra for a class and print them as JSON, or store them
// as an ENVI spectral library when -out names a .sli file
func cmdSpectra(args []string, logWriter io.Writer) error {
	if len(args)!=1 {
		return errors.New("spectra needs a cover class, e.g. specmix -lib library.sli spectra vegetation")
	}
	if *lib=="" { return errors.New("spectra needs an endmember library, set -lib") }
	l, err:=spectral.ReadLibraryFile(*lib, logWriter)
	if err!=nil { return err }

	var subset *unmix.BandSubset
	if *bands!="" { subset=&unmix.BandSubset{Names: splitList(*bands)} }
	rng:=&fastrand.RNG{}
	rng.Seed(uint32(*seed))

	set, err:=unmix.SelectSpectra(l, args[0], *sens, int(*n), subset, rng)
	if err!=nil { return err }

	if strings.HasSuffix(strings.ToLower(*out), ".sli") {
		return writeSpectraLibrary(set, *out, logWriter)
	}
	enc, err:=json.MarshalIndent(set, "", "  ")
	if err!=nil { return err }
	fmt.Fprintf(os.Stdout, "%s\n", enc)
	return nil
}

// Store sampled draws as an ENVI library, one named row per draw
func writeSpectraLibrary(set *unmix.EndmemberSet, path string, logWriter io.Writer) error {
	id, err:=sensor.Parse(set.Sensor)
	if err!=nil { return err }
	p:=id.Profile()
	centers:=make([]float64, len(set.Names))
	for i, name:=range set.Names {
		for b, bn:=range p.BandNames {
			if bn==name { centers[i]=p.Centers[b]; break }
		}
	}

	var class spectral.Classification
	switch set.Level {
	case 1: class.Level1=set.Class
	case 2: class.Level2=set.Class
	case 3: class.Level3=set.Class
	case 4: class.Level4=set.Class
	}
	names  :=make([]string, set.NumDraws())
	classes:=make([]spectral.Classification, set.NumDraws())
	data   :=make([]float64, 0, set.NumDraws()*len(set.Names))
	for i, s:=range set.Spectra {
		names[i]=fmt.Sprintf("%s_%02d", set.Class, i)
		classes[i]=class
		data=append(data, s...)
	}

	l, err:=spectral.NewLibrary(names, classes, centers, spectral.UnitNanometers, data)
	if err!=nil { return err }
	fmt.Fprintf(logWriter, "Writing %d sampled %s spectra to %s\n", len(names), set.Class, path)
	return l.WriteFile(path)
}

// Show the class hierarchy of the library
func cmdClasses(logWriter io.Writer) error {
	if *lib=="" { return errors.New("classes needs an endmember library, set -lib") }
	l, err:=spectral.ReadLibraryFile(*lib, logWriter)
	if err!=nil { return err }
	for lv:=1; lv<=spectral.NumLevels; lv++ {
		labels:=l.LabelsAtLevel(lv)
		if len(labels)==0 { continue }
		fmt.Fprintf(os.Stdout, "Level %d: %s\n", lv, strings.Join(labels, ", "))
	}
	return nil
}

// Show supported sensors with band counts, spectral range and masking support
func cmdSensors() {
	for _, id:=range sensor.IDs() {
		p:=id.Profile()
		qa:="no cloud mask"
		if p.QA!=nil { qa=fmt.Sprintf("cloud mask from %s bits %v", p.QA.Band, p.QA.Bits) }
		fmt.Fprintf(os.Stdout, "%-12s %3d bands %5.0f-%5.0f nm  scale %-8g %s\n",
		            p.Name, len(p.BandNames), p.Centers[0], p.Centers[len(p.Centers)-1], p.Scale, qa)
	}
}
