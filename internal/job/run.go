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


package job

import (
	"errors"
	"fmt"
	"strings"
	"github.com/earth-chris/specmix/internal/image"
	"github.com/earth-chris/specmix/internal/sensor"
	"github.com/earth-chris/specmix/internal/spectral"
	"github.com/earth-chris/specmix/internal/unmix"
)

// Run executes a finalized job in the given context: load the library and
// the cube, mask and scale, unmix per the configured mode and write the
// outputs named by the config
func Run(cfg *Config, c *unmix.Context) error {
	id, err:=sensor.Parse(cfg.Sensor)
	if err!=nil { return err }
	p:=id.Profile()

	lib, err:=spectral.ReadLibraryFile(cfg.Library, c.Log)
	if err!=nil { return err }

	var subset *unmix.BandSubset
	if len(cfg.Bands)>0 { subset=&unmix.BandSubset{Names: cfg.Bands} }
	s, err:=unmix.NewSession(c, lib, cfg.Sensor, cfg.N, subset, cfg.Seed)
	if err!=nil { return err }

	cube, err:=image.ReadCubeFile(cfg.Image, c.Log)
	if err!=nil { return err }

	alg:=image.NewDense(c.Log, c.MaxThreads)
	var img image.Ref=cube
	if cfg.MaskClouds {
		// before scaling, the bit tests need raw QA values
		if img, err=p.MaskClouds(alg, img); err!=nil { return err }
	}
	if cfg.ScaleReflectance {
		if img, err=p.ScaleReflectance(alg, img); err!=nil { return err }
	}
	if img, err=alg.Select(img, s.Bands); err!=nil { return err }

	opts:=unmix.CoverOptions{ShadeNormalize: cfg.ShadeNormalize, KeepRMSE: cfg.KeepRMSE}
	var out image.Ref
	switch cfg.Mode {
	case "vis":
		out, err=s.VIS(alg, img, opts)
	case "svn":
		out, err=s.SVN(alg, img, opts)
	case "bvn":
		out, err=s.BVN(alg, img, opts)
	case "cover":
		out, err=s.Cover(alg, img, cfg.Classes, cfg.Names, opts)
	default:
		err=errors.New(fmt.Sprintf("no unmixing mode named '%s', have vis, svn, bvn and cover", cfg.Mode))
	}
	if err!=nil { return err }

	fused, err:=alg.Materialize(out)
	if err!=nil { return err }

	if cfg.Output!="" {
		if err=writeOutput(c, fused, cfg.Output); err!=nil { return err }
	}
	if cfg.Preview!="" {
		if err=writeOutput(c, fused, cfg.Preview); err!=nil { return err }
	}
	return nil
}

// Write a fraction cube to the format given by the file suffix
func writeOutput(c *unmix.Context, cube *image.Cube, fileName string) error {
	fnLower:=strings.ToLower(fileName)
	var err error
	if strings.HasSuffix(fnLower, ".bsq") || strings.HasSuffix(fnLower, ".envi") || strings.HasSuffix(fnLower, ".img") {
		fmt.Fprintf(c.Log, "Writing %dx%dx%d cube to %s\n", cube.Width, cube.Height, cube.NumBands(), fileName)
		err=cube.WriteCubeFile(fileName)
	} else if strings.HasSuffix(fnLower, ".tiff") || strings.HasSuffix(fnLower, ".tif") {
		// cover fractions and RMSE live in [0,1]
		if cube.NumBands()>=3 {
			fmt.Fprintf(c.Log, "Writing %dx%d pixel RGB TIFF to %s\n", cube.Width, cube.Height, fileName)
			err=cube.WriteTIFF16ToFile(fileName, 0, 1)
		} else {
			fmt.Fprintf(c.Log, "Writing %dx%d pixel mono TIFF to %s\n", cube.Width, cube.Height, fileName)
			err=cube.WriteMonoTIFF16ToFile(fileName, cube.Names[0], 0, 1)
		}
	} else if strings.HasSuffix(fnLower, ".jpeg") || strings.HasSuffix(fnLower, ".jpg") {
		fmt.Fprintf(c.Log, "Writing %dx%d pixel preview JPEG to %s\n", cube.Width, cube.Height, fileName)
		err=cube.WritePreviewToFile(fileName, 95)
	} else {
		err=errors.New("Unknown suffix")
	}
	if err!=nil { return errors.New(fmt.Sprintf("Error writing to file %s: %s", fileName, err.Error())) }
	return nil
}
