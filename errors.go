/*
Copyright © 2025 the radarcal authors.
This file is part of radarcal.

radarcal is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

radarcal is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with radarcal.  If not, see <http://www.gnu.org/licenses/>.
*/

package radarcal

import (
	"fmt"
	"strings"
)

// GridMisalignmentError means the input grids are not co-registered
// and could not be resampled onto a common geometry.
type GridMisalignmentError struct {
	Reason string
}

func (e *GridMisalignmentError) Error() string {
	return "radarcal: grid misalignment: " + e.Reason
}

// AllStationsExcludedError means every station sampled onto nodata or
// carried unusable observations, leaving nothing to calibrate with.
type AllStationsExcludedError struct {
	Skipped []SkippedStation
}

func (e *AllStationsExcludedError) Error() string {
	reasons := make([]string, len(e.Skipped))
	for i, s := range e.Skipped {
		reasons[i] = fmt.Sprintf("%s: %s", s.Station.Label(), s.Reason)
	}
	return "radarcal: no usable stations: " + strings.Join(reasons, "; ")
}
