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


// Package rest serves the unmixing engine over HTTP. Unmixing jobs stream
// their log as plain text while they run
package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"github.com/gin-gonic/gin"

	"github.com/earth-chris/specmix/internal/job"
	"github.com/earth-chris/specmix/internal/sensor"
	"github.com/earth-chris/specmix/internal/spectral"
	"github.com/earth-chris/specmix/internal/unmix"
	"github.com/valyala/fastrand"
)


func Serve() {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET ("/ping",    getPing)
			v1.GET ("/sensors", getSensors)
			v1.POST("/classes", postClasses)
			v1.POST("/spectra", postSpectra)
			v1.POST("/unmix",   postUnmix)
		}
	}
	r.Run() // listen and serve on 0.0.0.0:8080
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m,err:=json.MarshalIndent(args, "", "  ")
	if err!=nil { return err }
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

func getSensors(c *gin.Context) {
	sensors:=[]gin.H{}
	for _, id:=range sensor.IDs() {
		p:=id.Profile()
		entry:=gin.H{
			"name":    p.Name,
			"bands":   p.BandNames,
			"centers": p.Centers,
			"fwhm":    p.Widths,
			"scale":   p.Scale,
			"offset":  p.Offset,
		}
		if p.QA!=nil {
			entry["qaBand"]=p.QA.Band
			entry["qaBits"]=p.QA.Bits
		}
		sensors=append(sensors, entry)
	}
	c.JSON(200, gin.H{"sensors": sensors})
}

type postClassesArgs struct {
	Library string `json:"library"`
}

func postClasses(c *gin.Context)  {
	var args postClassesArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	lib, err:=spectral.ReadLibraryFile(args.Library, io.Discard)
	if err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	levels:=make([][]string, 0, spectral.NumLevels)
	for lv:=1; lv<=spectral.NumLevels; lv++ {
		levels=append(levels, lib.LabelsAtLevel(lv))
	}
	c.JSON(200, gin.H{
		"labels":   lib.Labels(),
		"levels":   levels,
		"spectra":  lib.NumSpectra(),
		"channels": lib.NumChannels(),
	})
}

type postSpectraArgs struct {
	Library string   `json:"library"`
	Class   string   `json:"class"`
	Level   int      `json:"level"`
	Sensor  string   `json:"sensor"`
	N       int      `json:"n"`
	Seed    uint32   `json:"seed"`
	Bands   []string `json:"bands"`
}

func postSpectra(c *gin.Context) {
	var args postSpectraArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	lib, err:=spectral.ReadLibraryFile(args.Library, io.Discard)
	if err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	var subset *unmix.BandSubset
	if len(args.Bands)>0 { subset=&unmix.BandSubset{Names: args.Bands} }
	rng:=&fastrand.RNG{}
	rng.Seed(args.Seed)

	var set *unmix.EndmemberSet
	if args.Level>0 {
		set, err=unmix.SelectSpectraAtLevel(lib, args.Class, args.Level, args.Sensor, args.N, subset, rng)
	} else {
		set, err=unmix.SelectSpectra(lib, args.Class, args.Sensor, args.N, subset, rng)
	}
	if err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	c.JSON(200, gin.H{
		"class":   set.Class,
		"level":   set.Level,
		"sensor":  set.Sensor,
		"bands":   set.Names,
		"spectra": set.Spectra,
	})
}

func postUnmix(c *gin.Context) {
	logWriter := c.Writer
	cfg:=job.NewConfig()
	if err:=c.ShouldBind(cfg); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err:=printArgs(logWriter, "Arguments:\n", "\n", cfg); err!=nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	if err:=cfg.Finalize(); err!=nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		return
	}

	ctx:=unmix.NewContext(logWriter)
	if err:=job.Run(cfg, ctx); err!=nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.(http.Flusher).Flush()

	return
}
