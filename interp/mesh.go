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
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/mat"
)

func init() {
	Register(Linear{})
	Register(Cubic{})
	Register(Nearest{})
}

// Linear is piecewise-linear barycentric interpolation on a Delaunay
// triangulation of the sample locations. Cells outside the convex
// hull of the samples receive the neutral value.
type Linear struct{}

// Name returns "linear".
func (Linear) Name() string { return "linear" }

// Cubic is piecewise-cubic interpolation on a Delaunay triangulation,
// using cubic Bézier triangles with vertex gradients estimated by
// local least-squares plane fits. Cells outside the convex hull of
// the samples receive the neutral value.
type Cubic struct{}

// Name returns "cubic".
func (Cubic) Name() string { return "cubic" }

// Nearest assigns each cell the value of the nearest sample.
type Nearest struct{}

// Name returns "nearest".
func (Nearest) Name() string { return "nearest" }

// validateMesh checks that samples can support a triangulation-based
// method: at least 3 stations, not all coincident, not all collinear.
// It returns the samples with coincident duplicates removed.
func validateMesh(method string, samples []Sample) ([]Sample, error) {
	if len(samples) < 3 {
		return nil, &InsufficientStationsError{Method: method, Have: len(samples), Need: 3}
	}
	var unique []Sample
	for _, s := range samples {
		dup := false
		for _, u := range unique {
			if math.Abs(s.X-u.X) < coincidentTol && math.Abs(s.Y-u.Y) < coincidentTol {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, s)
		}
	}
	if len(unique) < 3 {
		return nil, &DegenerateGeometryError{Method: method,
			Reason: fmt.Sprintf("only %d distinct station locations", len(unique))}
	}
	// Collinearity: every point must lie on the line through the two
	// most distant points from unique[0] for the set to be degenerate.
	p0 := unique[0]
	p1 := unique[1]
	var dMax float64
	for _, u := range unique[1:] {
		d := (u.X-p0.X)*(u.X-p0.X) + (u.Y-p0.Y)*(u.Y-p0.Y)
		if d > dMax {
			dMax = d
			p1 = u
		}
	}
	collinear := true
	for _, u := range unique {
		cross := (p1.X-p0.X)*(u.Y-p0.Y) - (p1.Y-p0.Y)*(u.X-p0.X)
		if cross*cross > 1.e-18*dMax*dMax {
			collinear = false
			break
		}
	}
	if collinear {
		return nil, &DegenerateGeometryError{Method: method, Reason: "all stations are collinear"}
	}
	return unique, nil
}

// A dtri is one triangle in a Delaunay triangulation, holding vertex
// indices and its circumcircle.
type dtri struct {
	a, b, c    int
	cx, cy, r2 float64
}

func newDtri(pts []Sample, a, b, c int) (dtri, error) {
	ax, ay := pts[a].X, pts[a].Y
	bx, by := pts[b].X, pts[b].Y
	cx, cy := pts[c].X, pts[c].Y
	d := 2 * (ax*(by-cy) + bx*(cy-ay) + cx*(ay-by))
	if d == 0 {
		return dtri{}, fmt.Errorf("interp: triangulation: zero-area triangle")
	}
	a2 := ax*ax + ay*ay
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (a2*(by-cy) + b2*(cy-ay) + c2*(ay-by)) / d
	uy := (a2*(cx-bx) + b2*(ax-cx) + c2*(bx-ax)) / d
	r2 := (ax-ux)*(ax-ux) + (ay-uy)*(ay-uy)
	return dtri{a: a, b: b, c: c, cx: ux, cy: uy, r2: r2}, nil
}

func (t dtri) circumcircleContains(x, y float64) bool {
	return (x-t.cx)*(x-t.cx)+(y-t.cy)*(y-t.cy) <= t.r2
}

// triangulate computes the Delaunay triangulation of pts using the
// Bowyer–Watson incremental algorithm. pts must contain at least 3
// distinct, non-collinear points.
func triangulate(method string, pts []Sample) ([]dtri, error) {
	n := len(pts)

	// Super-triangle comfortably enclosing all points.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	dx, dy := maxX-minX, maxY-minY
	dMax := math.Max(dx, dy)
	if dMax == 0 {
		return nil, &DegenerateGeometryError{Method: method, Reason: "all stations are coincident"}
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2
	all := make([]Sample, n, n+3)
	copy(all, pts)
	all = append(all,
		Sample{X: midX - 20*dMax, Y: midY - dMax},
		Sample{X: midX, Y: midY + 20*dMax},
		Sample{X: midX + 20*dMax, Y: midY - dMax},
	)

	super, err := newDtri(all, n, n+1, n+2)
	if err != nil {
		return nil, err
	}
	tris := []dtri{super}

	type edge struct{ i, j int }
	normEdge := func(i, j int) edge {
		if i < j {
			return edge{i, j}
		}
		return edge{j, i}
	}

	for i := 0; i < n; i++ {
		x, y := all[i].X, all[i].Y
		var keep []dtri
		edgeCount := make(map[edge]int)
		for _, t := range tris {
			if t.circumcircleContains(x, y) {
				edgeCount[normEdge(t.a, t.b)]++
				edgeCount[normEdge(t.b, t.c)]++
				edgeCount[normEdge(t.c, t.a)]++
			} else {
				keep = append(keep, t)
			}
		}
		for e, count := range edgeCount {
			if count != 1 { // shared edge, interior to the cavity
				continue
			}
			t, err := newDtri(all, e.i, e.j, i)
			if err != nil {
				// The new point lies exactly on the cavity boundary
				// edge; the collinearity pre-check makes this a
				// numerical corner case, not a valid configuration.
				return nil, &DegenerateGeometryError{Method: method,
					Reason: "stations produce a degenerate triangulation"}
			}
			keep = append(keep, t)
		}
		tris = keep
	}

	var out []dtri
	for _, t := range tris {
		if t.a < n && t.b < n && t.c < n {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, &DegenerateGeometryError{Method: method, Reason: "triangulation produced no triangles"}
	}
	return out, nil
}

// A meshTriangle is a triangle stored in a spatial index for
// point-location queries.
type meshTriangle struct {
	geom.Polygon
	t dtri
}

// triangleIndex builds an r-tree over tris for point location.
func triangleIndex(pts []Sample, tris []dtri) *rtree.Rtree {
	index := rtree.NewTree(25, 50)
	for _, t := range tris {
		poly := geom.Polygon{{
			geom.Point{X: pts[t.a].X, Y: pts[t.a].Y},
			geom.Point{X: pts[t.b].X, Y: pts[t.b].Y},
			geom.Point{X: pts[t.c].X, Y: pts[t.c].Y},
		}}
		index.Insert(&meshTriangle{Polygon: poly, t: t})
	}
	return index
}

// barycentric returns the barycentric coordinates of (x, y) in the
// triangle with vertices a, b, c.
func barycentric(pts []Sample, t dtri, x, y float64) (l1, l2, l3 float64) {
	ax, ay := pts[t.a].X, pts[t.a].Y
	bx, by := pts[t.b].X, pts[t.b].Y
	cx, cy := pts[t.c].X, pts[t.c].Y
	den := (by-cy)*(ax-cx) + (cx-bx)*(ay-cy)
	l1 = ((by-cy)*(x-cx) + (cx-bx)*(y-cy)) / den
	l2 = ((cy-ay)*(x-cx) + (ax-cx)*(y-cy)) / den
	l3 = 1 - l1 - l2
	return
}

const insideTol = 1.e-9

// locate finds a triangle containing (x, y), returning its barycentric
// coordinates. ok is false if the point is outside the triangulation.
func locate(index *rtree.Rtree, pts []Sample, x, y float64) (t dtri, l1, l2, l3 float64, ok bool) {
	p := geom.Point{X: x, Y: y}
	for _, g := range index.SearchIntersect(p.Bounds()) {
		mt := g.(*meshTriangle)
		l1, l2, l3 = barycentric(pts, mt.t, x, y)
		if l1 >= -insideTol && l2 >= -insideTol && l3 >= -insideTol {
			return mt.t, l1, l2, l3, true
		}
	}
	return dtri{}, 0, 0, 0, false
}

// Interpolate returns the piecewise-linear surface for samples on grid.
func (m Linear) Interpolate(samples []Sample, grid GridSpec, p Params) (*sparse.DenseArray, error) {
	pts, err := validateMesh(m.Name(), samples)
	if err != nil {
		return nil, err
	}
	tris, err := triangulate(m.Name(), pts)
	if err != nil {
		return nil, err
	}
	index := triangleIndex(pts, tris)
	out := sparse.ZerosDense(grid.Ny, grid.Nx)
	i := 0
	for row := 0; row < grid.Ny; row++ {
		for col := 0; col < grid.Nx; col++ {
			x, y := grid.CellCenter(row, col)
			if t, l1, l2, l3, ok := locate(index, pts, x, y); ok {
				out.Elements[i] = l1*pts[t.a].V + l2*pts[t.b].V + l3*pts[t.c].V
			} else {
				out.Elements[i] = p.Neutral
			}
			i++
		}
	}
	return out, nil
}

// vertexGradients estimates the surface gradient at each sample
// location by least-squares plane fits over the nearest neighboring
// samples.
func vertexGradients(pts []Sample) [][2]float64 {
	const maxNeighbors = 8
	grads := make([][2]float64, len(pts))
	for i, pi := range pts {
		type neighbor struct {
			dx, dy, dv, d2 float64
		}
		neighbors := make([]neighbor, 0, len(pts)-1)
		for j, pj := range pts {
			if j == i {
				continue
			}
			dx, dy := pj.X-pi.X, pj.Y-pi.Y
			neighbors = append(neighbors, neighbor{dx: dx, dy: dy, dv: pj.V - pi.V, d2: dx*dx + dy*dy})
		}
		sort.Slice(neighbors, func(a, b int) bool { return neighbors[a].d2 < neighbors[b].d2 })
		if len(neighbors) > maxNeighbors {
			neighbors = neighbors[:maxNeighbors]
		}
		a := mat.NewDense(len(neighbors), 2, nil)
		b := mat.NewDense(len(neighbors), 1, nil)
		for k, nb := range neighbors {
			a.Set(k, 0, nb.dx)
			a.Set(k, 1, nb.dy)
			b.Set(k, 0, nb.dv)
		}
		var g mat.Dense
		if err := g.Solve(a, b); err != nil {
			continue // rank-deficient neighborhood; keep a zero gradient
		}
		grads[i] = [2]float64{g.At(0, 0), g.At(1, 0)}
	}
	return grads
}

// cubicPatch holds the Bézier control net of one cubic triangle.
type cubicPatch struct {
	b300, b030, b003                   float64
	b210, b201, b120, b021, b102, b012 float64
	b111                               float64
}

func newCubicPatch(pts []Sample, grads [][2]float64, t dtri) cubicPatch {
	pa, pb, pc := pts[t.a], pts[t.b], pts[t.c]
	ga, gb, gc := grads[t.a], grads[t.b], grads[t.c]
	edge := func(from, to Sample, g [2]float64) float64 {
		return from.V + ((to.X-from.X)*g[0]+(to.Y-from.Y)*g[1])/3
	}
	p := cubicPatch{
		b300: pa.V, b030: pb.V, b003: pc.V,
		b210: edge(pa, pb, ga), b201: edge(pa, pc, ga),
		b120: edge(pb, pa, gb), b021: edge(pb, pc, gb),
		b102: edge(pc, pa, gc), b012: edge(pc, pb, gc),
	}
	e := (p.b210 + p.b201 + p.b120 + p.b021 + p.b102 + p.b012) / 6
	v := (pa.V + pb.V + pc.V) / 3
	p.b111 = e + (e-v)/2
	return p
}

// at evaluates the patch at barycentric coordinates (u, v, w).
func (p cubicPatch) at(u, v, w float64) float64 {
	return p.b300*u*u*u + p.b030*v*v*v + p.b003*w*w*w +
		3*(p.b210*u*u*v+p.b201*u*u*w+
			p.b120*u*v*v+p.b021*v*v*w+
			p.b102*u*w*w+p.b012*v*w*w) +
		6*p.b111*u*v*w
}

// Interpolate returns the piecewise-cubic surface for samples on grid.
func (m Cubic) Interpolate(samples []Sample, grid GridSpec, p Params) (*sparse.DenseArray, error) {
	pts, err := validateMesh(m.Name(), samples)
	if err != nil {
		return nil, err
	}
	tris, err := triangulate(m.Name(), pts)
	if err != nil {
		return nil, err
	}
	index := triangleIndex(pts, tris)
	grads := vertexGradients(pts)
	patches := make(map[dtri]cubicPatch, len(tris))
	for _, t := range tris {
		patches[t] = newCubicPatch(pts, grads, t)
	}
	out := sparse.ZerosDense(grid.Ny, grid.Nx)
	i := 0
	for row := 0; row < grid.Ny; row++ {
		for col := 0; col < grid.Nx; col++ {
			x, y := grid.CellCenter(row, col)
			if t, l1, l2, l3, ok := locate(index, pts, x, y); ok {
				out.Elements[i] = patches[t].at(l1, l2, l3)
			} else {
				out.Elements[i] = p.Neutral
			}
			i++
		}
	}
	return out, nil
}

// A samplePoint is a sample stored in a spatial index.
type samplePoint struct {
	geom.Point
	v float64
}

// Interpolate returns the nearest-neighbor surface for samples on
// grid. Unlike the linear and cubic methods it is defined everywhere,
// but it shares their station-geometry preconditions.
func (m Nearest) Interpolate(samples []Sample, grid GridSpec, p Params) (*sparse.DenseArray, error) {
	pts, err := validateMesh(m.Name(), samples)
	if err != nil {
		return nil, err
	}
	index := rtree.NewTree(25, 50)
	for _, s := range pts {
		index.Insert(&samplePoint{Point: geom.Point{X: s.X, Y: s.Y}, v: s.V})
	}
	out := sparse.ZerosDense(grid.Ny, grid.Nx)
	i := 0
	for row := 0; row < grid.Ny; row++ {
		for col := 0; col < grid.Nx; col++ {
			x, y := grid.CellCenter(row, col)
			nn := index.NearestNeighbor(geom.Point{X: x, Y: y})
			out.Elements[i] = nn.(*samplePoint).v
			i++
		}
	}
	return out, nil
}
