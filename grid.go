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
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"

	"github.com/hidromet/radarcal/interp"
)

// A RasterGrid is a 2-dimensional field of scalar values with an
// axis-aligned geotransform. Row 0 runs along the northern edge of
// the grid and rows proceed southward, matching the storage order of
// the radar scans this package consumes.
type RasterGrid struct {
	Data *sparse.DenseArray // shape [Ny, Nx]

	Xo, Yo float64 // coordinates of the upper-left grid corner
	Dx, Dy float64 // positive cell edge lengths

	// SRDef is the spatial reference of the grid coordinates in
	// Proj4 format.
	SRDef string

	// Nodata is the sentinel marking invalid cells. It must be
	// distinct from every valid measurement.
	Nodata float64
}

// NewRasterGrid returns a grid of the given shape and geotransform
// with every cell initialized to zero.
func NewRasterGrid(nx, ny int, xo, yo, dx, dy float64, srdef string, nodata float64) *RasterGrid {
	return &RasterGrid{
		Data:   sparse.ZerosDense(ny, nx),
		Xo:     xo,
		Yo:     yo,
		Dx:     dx,
		Dy:     dy,
		SRDef:  srdef,
		Nodata: nodata,
	}
}

// Nx returns the number of grid columns.
func (g *RasterGrid) Nx() int { return g.Data.Shape[1] }

// Ny returns the number of grid rows.
func (g *RasterGrid) Ny() int { return g.Data.Shape[0] }

// Bounds returns the bounding box of the grid.
func (g *RasterGrid) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.Xo, Y: g.Yo - float64(g.Ny())*g.Dy},
		Max: geom.Point{X: g.Xo + float64(g.Nx())*g.Dx, Y: g.Yo},
	}
}

// CellCenter returns the coordinates of the center of cell (row, col).
func (g *RasterGrid) CellCenter(row, col int) (x, y float64) {
	return g.Xo + (float64(col)+0.5)*g.Dx, g.Yo - (float64(row)+0.5)*g.Dy
}

// cellIndex converts coordinates to the containing cell, with
// ok false when (x, y) falls outside the grid.
func (g *RasterGrid) cellIndex(x, y float64) (row, col int, ok bool) {
	fc := (x - g.Xo) / g.Dx
	fr := (g.Yo - y) / g.Dy
	if fc < 0 || fr < 0 {
		return 0, 0, false
	}
	col, row = int(fc), int(fr)
	if col >= g.Nx() || row >= g.Ny() {
		return 0, 0, false
	}
	return row, col, true
}

// valid reports whether v is a usable measurement on this grid.
func (g *RasterGrid) valid(v float64) bool {
	return v != g.Nodata && !math.IsNaN(v)
}

// Sample returns the value of the cell containing (x, y), or the
// grid's nodata sentinel if the point is outside the grid or the cell
// holds no data.
func (g *RasterGrid) Sample(x, y float64) float64 {
	row, col, ok := g.cellIndex(x, y)
	if !ok {
		return g.Nodata
	}
	v := g.Data.Get(row, col)
	if !g.valid(v) {
		return g.Nodata
	}
	return v
}

// SampleBilinear returns the bilinear interpolation of the four cell
// centers surrounding (x, y). Nodata cells are left out with the
// remaining weights renormalized; if no surrounding cell holds data,
// or the point is outside the grid, the nodata sentinel is returned.
func (g *RasterGrid) SampleBilinear(x, y float64) float64 {
	if _, _, ok := g.cellIndex(x, y); !ok {
		return g.Nodata
	}
	fc := (x-g.Xo)/g.Dx - 0.5
	fr := (g.Yo-y)/g.Dy - 0.5
	c0, r0 := int(math.Floor(fc)), int(math.Floor(fr))
	tc, tr := fc-float64(c0), fr-float64(r0)

	var sumW, sumWV float64
	for dr := 0; dr <= 1; dr++ {
		for dc := 0; dc <= 1; dc++ {
			r, c := r0+dr, c0+dc
			if r < 0 || r >= g.Ny() || c < 0 || c >= g.Nx() {
				continue
			}
			v := g.Data.Get(r, c)
			if !g.valid(v) {
				continue
			}
			wr, wc := 1-tr, 1-tc
			if dr == 1 {
				wr = tr
			}
			if dc == 1 {
				wc = tc
			}
			sumW += wr * wc
			sumWV += wr * wc * v
		}
	}
	if sumW == 0 {
		return g.Nodata
	}
	return sumWV / sumW
}

// Spec returns the interpolation target lattice matching the grid.
func (g *RasterGrid) Spec() interp.GridSpec {
	return interp.GridSpec{
		Nx: g.Nx(), Ny: g.Ny(),
		Xo: g.Xo, Yo: g.Yo,
		Dx: g.Dx, Dy: g.Dy,
	}
}

// AlignedWith reports whether g and o share the same shape and
// geotransform, to within a small fraction of a cell.
func (g *RasterGrid) AlignedWith(o *RasterGrid) bool {
	if g.Nx() != o.Nx() || g.Ny() != o.Ny() {
		return false
	}
	tol := 1.e-6 * math.Min(g.Dx, g.Dy)
	return math.Abs(g.Xo-o.Xo) < tol && math.Abs(g.Yo-o.Yo) < tol &&
		math.Abs(g.Dx-o.Dx) < tol && math.Abs(g.Dy-o.Dy) < tol
}

// ResampleTo resamples g onto the shape and geotransform of ref using
// nearest-neighbor sampling. Cells of ref that fall outside g become
// nodata. The two grids must be in the same spatial reference.
func (g *RasterGrid) ResampleTo(ref *RasterGrid) (*RasterGrid, error) {
	if g.SRDef != ref.SRDef {
		return nil, &GridMisalignmentError{
			Reason: "grids are in different spatial references and cannot be resampled onto each other",
		}
	}
	out := NewRasterGrid(ref.Nx(), ref.Ny(), ref.Xo, ref.Yo, ref.Dx, ref.Dy, ref.SRDef, g.Nodata)
	i := 0
	for row := 0; row < ref.Ny(); row++ {
		for col := 0; col < ref.Nx(); col++ {
			x, y := ref.CellCenter(row, col)
			out.Data.Elements[i] = g.Sample(x, y)
			i++
		}
	}
	return out, nil
}

// Clone returns a deep copy of g.
func (g *RasterGrid) Clone() *RasterGrid {
	o := NewRasterGrid(g.Nx(), g.Ny(), g.Xo, g.Yo, g.Dx, g.Dy, g.SRDef, g.Nodata)
	copy(o.Data.Elements, g.Data.Elements)
	return o
}

// GridStats summarizes the valid cells of a grid.
type GridStats struct {
	Min, Max, Mean, StdDev float64
	ValidCells             int
}

// Stats computes nodata-masked statistics for the grid. ok is false
// if the grid holds no valid cells.
func (g *RasterGrid) Stats() (s GridStats, ok bool) {
	vals := make([]float64, 0, len(g.Data.Elements))
	for _, v := range g.Data.Elements {
		if g.valid(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return GridStats{}, false
	}
	s.ValidCells = len(vals)
	s.Min = floats.Min(vals)
	s.Max = floats.Max(vals)
	s.Mean = floats.Sum(vals) / float64(len(vals))
	var ss float64
	for _, v := range vals {
		ss += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDev = math.Sqrt(ss / float64(len(vals)))
	return s, true
}
