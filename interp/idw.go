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

package interp

import (
	"math"

	"github.com/ctessum/sparse"
)

func init() {
	Register(IDW{})
}

// IDW is inverse-distance-weighted interpolation: the estimate at a
// target location is the weighted mean of all samples, with weights
// proportional to 1/distanceᵖ. A target coinciding with a sample
// location returns that sample's value exactly.
type IDW struct{}

// Name returns "idw".
func (IDW) Name() string { return "idw" }

// Interpolate returns the inverse-distance-weighted surface for
// samples on grid. At least one sample is required.
func (w IDW) Interpolate(samples []Sample, grid GridSpec, p Params) (*sparse.DenseArray, error) {
	if len(samples) < 1 {
		return nil, &InsufficientStationsError{Method: w.Name(), Have: len(samples), Need: 1}
	}
	out := sparse.ZerosDense(grid.Ny, grid.Nx)
	i := 0
	for row := 0; row < grid.Ny; row++ {
		for col := 0; col < grid.Nx; col++ {
			x, y := grid.CellCenter(row, col)
			out.Elements[i] = w.At(samples, x, y, p)
			i++
		}
	}
	return out, nil
}

// At evaluates the inverse-distance-weighted estimate at a single
// location. It panics if samples is empty.
func (IDW) At(samples []Sample, x, y float64, p Params) float64 {
	power := p.Power
	if power <= 0 {
		power = 2
	}
	var sumW, sumWV float64
	for _, s := range samples {
		dx, dy := x-s.X, y-s.Y
		d := math.Sqrt(dx*dx + dy*dy)
		if d < coincidentTol {
			return s.V
		}
		w := 1 / math.Pow(d, power)
		sumW += w
		sumWV += w * s.V
	}
	return sumWV / sumW
}
