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


// Package job runs configured fractional cover jobs end to end: load a
// spectral library and an image cube, mask and scale per sensor, unmix with
// an endmember ensemble and write the fused fractions to disk
package job

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"gopkg.in/yaml.v2"
	"github.com/earth-chris/specmix/internal/sensor"
)

// A fractional cover job. Jobs load from YAML files and bind from JSON
// request bodies, then run after a Finalize
type Config struct {
	Library          string   `yaml:"library"          json:"library"`          // endmember library, ENVI .sli
	Image            string   `yaml:"image"            json:"image"`            // input cube, ENVI BSQ
	Sensor           string   `yaml:"sensor"           json:"sensor"`           // sensor the cube was acquired with
	Mode             string   `yaml:"mode"             json:"mode"`             // vis, svn, bvn or cover
	Classes          []string `yaml:"classes"          json:"classes"`          // cover mode: classes to unmix
	Names            []string `yaml:"names"            json:"names"`            // cover mode: output band names
	N                int      `yaml:"n"                json:"n"`                // endmember draws per class
	Seed             uint32   `yaml:"seed"             json:"seed"`             // draw seed, 0 samples nondeterministically
	Bands            []string `yaml:"bands"            json:"bands"`            // optional band subset by name
	ShadeNormalize   bool     `yaml:"shadeNormalize"   json:"shadeNormalize"`   // rescale fractions by photometric shade
	KeepRMSE         bool     `yaml:"keepRMSE"         json:"keepRMSE"`         // keep the fused RMSE band in the output
	ScaleReflectance bool     `yaml:"scaleReflectance" json:"scaleReflectance"` // apply the sensor reflectance scaling
	MaskClouds       bool     `yaml:"maskClouds"       json:"maskClouds"`       // mask clouds and shadows from the QA band
	Output           string   `yaml:"output"           json:"output"`           // output path, .bsq, .tif or .jpg
	Preview          string   `yaml:"preview"          json:"preview"`          // optional JPEG preview path
}

// NewConfig returns a job config with default settings
func NewConfig() *Config {
	return &Config{
		Mode : "svn",
		N    : 30,
	}
}

// LoadConfig reads and finalizes a job config from a YAML file
func LoadConfig(path string) (*Config, error) {
	cfg:=NewConfig()
	data, err:=os.ReadFile(path)
	if err!=nil { return nil, err }
	if err=yaml.Unmarshal(data, cfg); err!=nil {
		return nil, errors.New(fmt.Sprintf("Error parsing job file %s: %s", path, err.Error()))
	}
	return cfg, cfg.Finalize()
}

// Finalize fills defaults and checks the config for consistency.
// Bound configs need a Finalize before running
func (cfg *Config) Finalize() error {
	if cfg.Library=="" { return errors.New("job needs a spectral library, set library:") }
	if cfg.Image==""   { return errors.New("job needs an input image, set image:") }
	if cfg.Sensor==""  { return errors.New("job needs a sensor, set sensor:") }
	if _, err:=sensor.Parse(cfg.Sensor); err!=nil { return err }

	if cfg.Mode=="" { cfg.Mode="svn" }
	cfg.Mode=strings.ToLower(cfg.Mode)
	switch cfg.Mode {
	case "vis", "svn", "bvn":
	case "cover":
		if len(cfg.Classes)==0 { return errors.New("cover mode needs at least one class, set classes:") }
		if len(cfg.Names)==0 { cfg.Names=cfg.Classes }
		if len(cfg.Names)!=len(cfg.Classes) {
			return errors.New(fmt.Sprintf("job has %d names for %d classes", len(cfg.Names), len(cfg.Classes)))
		}
	default:
		return errors.New(fmt.Sprintf("no unmixing mode named '%s', have vis, svn, bvn and cover", cfg.Mode))
	}

	if cfg.N==0 { cfg.N=30 }
	if cfg.N<0 { return errors.New(fmt.Sprintf("job needs at least one draw per class, have %d", cfg.N)) }

	if cfg.Output=="" && cfg.Preview=="" {
		return errors.New("job writes nothing, set output: or preview:")
	}
	return nil
}
