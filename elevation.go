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

import "math"

// An ElevationModel derates radar rain estimates over terrain whose
// height differs from the height the estimate is representative of.
// The radar beam overshoots low valleys and clips high ridges, so the
// larger the height discrepancy, the less weight the radar estimate
// deserves. The model is a linear attenuation of the correction
// factor per meter of absolute height difference, clipped so the
// factor stays within [MinFactor, 1].
type ElevationModel struct {
	// RefDifference is the height difference [m] at which the factor
	// reaches MinFactor. Differences beyond it are clipped.
	RefDifference float64

	// MinFactor is the smallest correction factor the model can
	// produce, in (0, 1].
	MinFactor float64
}

// DefaultElevation is the elevation model used when the caller does
// not supply one.
var DefaultElevation = ElevationModel{RefDifference: 1000, MinFactor: 0.5}

// Factor returns the multiplicative adjustment for a radar estimate
// representative of refElev applied at terrain height demElev.
// Identical heights give 1; the factor decays linearly to MinFactor
// at RefDifference meters of discrepancy.
func (m ElevationModel) Factor(refElev, demElev float64) float64 {
	d := math.Abs(refElev - demElev)
	frac := d / m.RefDifference
	if frac > 1 {
		frac = 1
	}
	return 1 - (1-m.MinFactor)*frac
}

// FactorGrid computes the per-cell correction factor between a
// reference elevation surface (typically station elevations
// interpolated onto the grid) and the DEM. The two grids must be
// pixel-aligned. Cells where either input is nodata get a neutral
// factor of 1.
func (m ElevationModel) FactorGrid(refElev, dem *RasterGrid) (*RasterGrid, error) {
	if !refElev.AlignedWith(dem) {
		return nil, &GridMisalignmentError{
			Reason: "elevation reference surface and DEM do not share a geometry",
		}
	}
	out := refElev.Clone()
	for i, re := range refElev.Data.Elements {
		de := dem.Data.Elements[i]
		if !refElev.valid(re) || !dem.valid(de) {
			out.Data.Elements[i] = 1
			continue
		}
		out.Data.Elements[i] = m.Factor(re, de)
	}
	return out, nil
}
