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

// ZRParams are the coefficients of the empirical Z–R power law
//
//	Z = A·Rᴮ
//
// relating radar reflectivity factor Z [mm⁶/m³] to rain rate R [mm/h].
// The defaults are the Marshall–Palmer coefficients, a reasonable
// choice for mixed convective-stratiform rain; operational radars are
// usually calibrated with site-specific values.
type ZRParams struct {
	A, B float64
}

// DefaultZR holds the Marshall–Palmer coefficients.
var DefaultZR = ZRParams{A: 200, B: 1.6}

// RainRate inverts the Z–R relationship for a reflectivity in dBZ:
//
//	R = (10^(dBZ/10) / A)^(1/B)
//
// The result is monotonic in dBZ.
func (p ZRParams) RainRate(dBZ float64) float64 {
	z := math.Pow(10, dBZ/10)
	return math.Pow(z/p.A, 1/p.B)
}

// ConvertReflectivity maps a reflectivity grid [dBZ] to an initial
// rain estimate grid [mm]. Reflectivities at or below thresholdDBZ
// are treated as no rain; rates above maxPrecip are clipped to it to
// suppress unphysical outliers from ground clutter and hail
// contamination. Nodata cells stay nodata.
func ConvertReflectivity(g *RasterGrid, p ZRParams, thresholdDBZ, maxPrecip float64) *RasterGrid {
	out := g.Clone()
	for i, dBZ := range g.Data.Elements {
		if !g.valid(dBZ) {
			out.Data.Elements[i] = g.Nodata
			continue
		}
		if dBZ <= thresholdDBZ {
			out.Data.Elements[i] = 0
			continue
		}
		r := p.RainRate(dBZ)
		if r > maxPrecip {
			r = maxPrecip
		}
		out.Data.Elements[i] = r
	}
	return out
}
