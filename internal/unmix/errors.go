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


package unmix

import (
	"fmt"
	"strings"
)

// InvalidClassError reports a material class not found at any classification
// level of the library
type InvalidClassError struct {
	Class string
	Valid []string
}

func (e *InvalidClassError) Error() string {
	return fmt.Sprintf("invalid material class '%s'. Valid classes: %s", e.Class, strings.Join(e.Valid, ", "))
}

// EmptyEndmemberSetError reports a class filter that matched zero library
// rows when samples were requested
type EmptyEndmemberSetError struct {
	Class  string
	Level  int
	Sensor string
}

func (e *EmptyEndmemberSetError) Error() string {
	return fmt.Sprintf("class '%s' at level %d matched no spectra for sensor %s", e.Class, e.Level, e.Sensor)
}

// EndmemberSetSizeMismatchError reports ensemble draws of unequal length
// across classes, a caller configuration bug
type EndmemberSetSizeMismatchError struct {
	Class string
	Len   int
	Want  int
}

func (e *EndmemberSetSizeMismatchError) Error() string {
	return fmt.Sprintf("endmember set '%s' has %d draws, expect %d", e.Class, e.Len, e.Want)
}

// DegenerateUnmixError reports pixels of a draw where the shade fraction hit
// one and normalization was impossible. Reported on the log, the affected
// pixels propagate as NaN
type DegenerateUnmixError struct {
	Draw   int
	Pixels int
}

func (e *DegenerateUnmixError) Error() string {
	return fmt.Sprintf("draw %d: shade normalization degenerate for %d pixels", e.Draw, e.Pixels)
}
