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
	"testing"
)

const (
	testProj   = "+proj=lcc +lat_1=33.000000 +lat_2=45.000000 +lat_0=40.000000 +lon_0=-97.000000 +x_0=0 +y_0=0 +a=6370997.000000 +b=6370997.000000 +to_meter=1"
	testNodata = -9999.
)

func different(a, b, tol float64) bool {
	return math.Abs(a-b) > tol
}

// newTestGrid returns an nx×ny grid over [0, nx·1000]×[0, ny·1000]
// meters with every cell set to fill.
func newTestGrid(nx, ny int, fill float64) *RasterGrid {
	g := NewRasterGrid(nx, ny, 0, float64(ny)*1000, 1000, 1000, testProj, testNodata)
	for i := range g.Data.Elements {
		g.Data.Elements[i] = fill
	}
	return g
}

func TestBounds(t *testing.T) {
	g := newTestGrid(4, 3, 0)
	b := g.Bounds()
	if different(b.Min.X, 0, 1.e-9) || different(b.Min.Y, 0, 1.e-9) ||
		different(b.Max.X, 4000, 1.e-9) || different(b.Max.Y, 3000, 1.e-9) {
		t.Errorf("have bounds (%g,%g)-(%g,%g), want (0,0)-(4000,3000)",
			b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
	}
	shifted := NewRasterGrid(4, 3, 2000, 5000, 1000, 1000, testProj, testNodata)
	if !b.Overlaps(shifted.Bounds()) {
		t.Error("overlapping grids should report overlapping bounds")
	}
	disjoint := NewRasterGrid(4, 3, 10000, 3000, 1000, 1000, testProj, testNodata)
	if b.Overlaps(disjoint.Bounds()) {
		t.Error("disjoint grids should not report overlapping bounds")
	}
}

func TestCellCenterRoundTrip(t *testing.T) {
	g := newTestGrid(4, 3, 0)
	for row := 0; row < g.Ny(); row++ {
		for col := 0; col < g.Nx(); col++ {
			x, y := g.CellCenter(row, col)
			r, c, ok := g.cellIndex(x, y)
			if !ok || r != row || c != col {
				t.Errorf("cell (%d,%d) center (%g,%g) maps to (%d,%d,%v)", row, col, x, y, r, c, ok)
			}
		}
	}
	// Row 0 is the northern edge.
	_, y0 := g.CellCenter(0, 0)
	_, y2 := g.CellCenter(2, 0)
	if y0 <= y2 {
		t.Errorf("row 0 (y=%g) should be north of row 2 (y=%g)", y0, y2)
	}
}

func TestSample(t *testing.T) {
	g := newTestGrid(4, 4, 7)
	g.Data.Set(testNodata, 1, 2)
	for _, test := range []struct {
		x, y, want float64
	}{
		{500, 3500, 7},            // cell (0, 0)
		{2500, 2500, testNodata},  // the nodata cell (1, 2)
		{-100, 2000, testNodata},  // west of the grid
		{2000, 4100, testNodata},  // north of the grid
		{4100, 2000, testNodata},  // east of the grid
		{2000, -0.01, testNodata}, // south of the grid
	} {
		if have := g.Sample(test.x, test.y); have != test.want {
			t.Errorf("Sample(%g, %g): have %g, want %g", test.x, test.y, have, test.want)
		}
	}
}

func TestSampleBilinear(t *testing.T) {
	// Value equals the column index, so the field is linear in x.
	g := newTestGrid(4, 4, 0)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			g.Data.Set(float64(col), row, col)
		}
	}
	// At a cell center the interpolation reproduces the cell.
	if v := g.SampleBilinear(1500, 2500); different(v, 1, 1.e-12) {
		t.Errorf("at a cell center: have %g, want 1", v)
	}
	// Midway between the centers of columns 1 and 2.
	if v := g.SampleBilinear(2000, 2500); different(v, 1.5, 1.e-12) {
		t.Errorf("between columns: have %g, want 1.5", v)
	}
	// Outside the grid.
	if v := g.SampleBilinear(-1, 2000); v != testNodata {
		t.Errorf("outside the grid: have %g, want nodata", v)
	}

	// A nodata corner drops out and the remaining weights renormalize.
	g.Data.Set(testNodata, 1, 1)
	v := g.SampleBilinear(2000, 2500)
	if v == testNodata {
		t.Fatal("renormalized sample should not be nodata")
	}
	if v <= 1.5 || v > 2 {
		t.Errorf("renormalized sample %g should be pulled toward column 2", v)
	}
}

func TestAlignedWith(t *testing.T) {
	a := newTestGrid(4, 4, 0)
	if !a.AlignedWith(a.Clone()) {
		t.Error("a grid must align with its clone")
	}
	b := a.Clone()
	b.Xo += 1 // 1 m offset on 1 km cells
	if a.AlignedWith(b) {
		t.Error("offset grids must not align")
	}
	c := newTestGrid(4, 5, 0)
	if a.AlignedWith(c) {
		t.Error("grids of different shapes must not align")
	}
}

func TestResampleTo(t *testing.T) {
	// A 2×2 coarse grid covering the same extent as a 4×4 fine one.
	coarse := NewRasterGrid(2, 2, 0, 4000, 2000, 2000, testProj, testNodata)
	coarse.Data.Set(1, 0, 0)
	coarse.Data.Set(2, 0, 1)
	coarse.Data.Set(3, 1, 0)
	coarse.Data.Set(4, 1, 1)
	fine := newTestGrid(4, 4, 0)

	out, err := coarse.ResampleTo(fine)
	if err != nil {
		t.Fatal(err)
	}
	if !out.AlignedWith(fine) {
		t.Fatal("resampled grid must share the reference geometry")
	}
	// Each quadrant of the fine grid takes the nearest coarse cell.
	for _, test := range []struct {
		row, col int
		want     float64
	}{
		{0, 0, 1}, {0, 1, 1}, {1, 1, 1},
		{0, 3, 2}, {3, 0, 3}, {2, 2, 4}, {3, 3, 4},
	} {
		if have := out.Data.Get(test.row, test.col); have != test.want {
			t.Errorf("cell (%d,%d): have %g, want %g", test.row, test.col, have, test.want)
		}
	}

	// Reference cells outside the source become nodata.
	small := NewRasterGrid(1, 1, 0, 1000, 1000, 1000, testProj, testNodata)
	small.Data.Set(9, 0, 0)
	out, err = small.ResampleTo(fine)
	if err != nil {
		t.Fatal(err)
	}
	if v := out.Data.Get(0, 3); v != testNodata {
		t.Errorf("cell outside the source: have %g, want nodata", v)
	}

	// Grids in different spatial references cannot be resampled.
	other := newTestGrid(4, 4, 0)
	other.SRDef = "+proj=longlat +datum=WGS84"
	if _, err := other.ResampleTo(fine); err == nil {
		t.Error("expected an error for mismatched spatial references")
	} else if _, ok := err.(*GridMisalignmentError); !ok {
		t.Errorf("expected a GridMisalignmentError, got %v", err)
	}
}

func TestStats(t *testing.T) {
	g := newTestGrid(2, 2, 0)
	g.Data.Elements = []float64{1, 3, testNodata, math.NaN()}
	s, ok := g.Stats()
	if !ok {
		t.Fatal("expected valid statistics")
	}
	if s.ValidCells != 2 {
		t.Errorf("have %d valid cells, want 2", s.ValidCells)
	}
	if different(s.Min, 1, 1.e-12) || different(s.Max, 3, 1.e-12) ||
		different(s.Mean, 2, 1.e-12) || different(s.StdDev, 1, 1.e-12) {
		t.Errorf("have %+v, want Min=1 Max=3 Mean=2 StdDev=1", s)
	}

	empty := newTestGrid(2, 2, testNodata)
	if _, ok := empty.Stats(); ok {
		t.Error("an all-nodata grid must not report statistics")
	}
}

func TestClone(t *testing.T) {
	a := newTestGrid(3, 3, 5)
	b := a.Clone()
	b.Data.Set(99, 1, 1)
	if a.Data.Get(1, 1) != 5 {
		t.Error("mutating a clone must not change the original")
	}
}
