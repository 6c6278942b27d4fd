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

	"github.com/ctessum/geom"

	"github.com/hidromet/radarcal/interp"
)

// A Station is one ground observation for the calibration period.
// Its coordinates must be in the same spatial reference as the grids
// it is sampled against; LoadStations reprojects on read.
type Station struct {
	geom.Point

	Name string

	// Elevation is the true station elevation [m].
	Elevation float64

	// Precip is the observed precipitation [mm] for the period.
	Precip float64
}

// Label identifies a station in log and error messages.
func (s *Station) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("station (%g, %g)", s.X, s.Y)
}

// ResidualMode selects how a station's observation is compared to the
// radar estimate at its location.
type ResidualMode int

const (
	// RatioResidual compares by division: residual = observed/estimate.
	// The correction surface is applied multiplicatively.
	RatioResidual ResidualMode = iota
	// DifferenceResidual compares by subtraction:
	// residual = observed − estimate. The correction surface is
	// applied additively.
	DifferenceResidual
)

// String implements fmt.Stringer.
func (m ResidualMode) String() string {
	switch m {
	case RatioResidual:
		return "ratio"
	case DifferenceResidual:
		return "difference"
	default:
		return fmt.Sprintf("ResidualMode(%d)", int(m))
	}
}

// ParseResidualMode converts a mode name ("ratio" or "difference")
// to a ResidualMode.
func ParseResidualMode(s string) (ResidualMode, error) {
	switch s {
	case "ratio":
		return RatioResidual, nil
	case "difference":
		return DifferenceResidual, nil
	default:
		return 0, fmt.Errorf("radarcal: invalid residual mode %q; valid modes are `ratio` and `difference`", s)
	}
}

// Neutral returns the correction value that leaves an estimate
// unchanged in this mode.
func (m ResidualMode) Neutral() float64 {
	if m == DifferenceResidual {
		return 0
	}
	return 1
}

// estimateFloor guards ratio residuals against division by near-zero
// radar estimates.
const estimateFloor = 0.001

// A SkippedStation records a station excluded from a calibration run
// and why.
type SkippedStation struct {
	Station *Station
	Reason  string
}

// ComputeResiduals samples the corrected radar estimate grid at every
// station and returns the per-station residuals to be interpolated.
// Stations that sample onto nodata, fall outside the grid, or carry
// negative observations are returned in skipped rather than silently
// dropped. Status messages are sent to c if it is non-nil.
func ComputeResiduals(stations []*Station, estimate *RasterGrid, mode ResidualMode, c chan string) (samples []interp.Sample, skipped []SkippedStation) {
	for _, st := range stations {
		if st.Precip < 0 {
			skipped = append(skipped, SkippedStation{Station: st,
				Reason: fmt.Sprintf("negative precipitation observation (%g mm)", st.Precip)})
			continue
		}
		est := estimate.Sample(st.X, st.Y)
		if est == estimate.Nodata {
			skipped = append(skipped, SkippedStation{Station: st,
				Reason: "outside the grid or on a nodata radar cell"})
			continue
		}
		var r float64
		switch mode {
		case DifferenceResidual:
			r = st.Precip - est
		default:
			e := est
			if e < estimateFloor {
				e = estimateFloor
			}
			r = st.Precip / e
		}
		if c != nil {
			c <- fmt.Sprintf("%s: estimate=%.3f mm, observed=%.3f mm, %s residual=%.4f",
				st.Label(), est, st.Precip, mode, r)
		}
		samples = append(samples, interp.Sample{X: st.X, Y: st.Y, V: r})
	}
	return samples, skipped
}
