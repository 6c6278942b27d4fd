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

// Package krige provides geostatistical interpolation backends.
// Importing it registers the "ordinary_kriging" and
// "universal_kriging" methods with the interp registry:
//
//	import _ "github.com/hidromet/radarcal/interp/krige"
//
// Programs that don't import this package report the kriging methods
// as unavailable, so the cost of the variogram fit and the kriging
// system solves is only paid where it was asked for.
package krige

import (
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hidromet/radarcal/interp"
)

func init() {
	interp.Register(Ordinary{})
	interp.Register(Universal{})
}

// Ordinary is ordinary kriging: a best linear unbiased estimator
// assuming an unknown but constant mean, using an exponential
// variogram model fitted to the samples.
type Ordinary struct{}

// Name returns "ordinary_kriging".
func (Ordinary) Name() string { return "ordinary_kriging" }

// Universal is universal kriging: like ordinary kriging but with a
// first-order (planar) drift in the mean.
type Universal struct{}

// Name returns "universal_kriging".
func (Universal) Name() string { return "universal_kriging" }

// A Variogram is a fitted exponential semivariogram model
//
//	γ(h) = Nugget + PartialSill·(1 − exp(−3h/Range))
//
// where Range is the practical range.
type Variogram struct {
	Nugget, PartialSill, Range float64
}

// At evaluates the model at separation distance h.
func (v Variogram) At(h float64) float64 {
	if h <= 0 {
		return 0
	}
	return v.Nugget + v.PartialSill*(1-math.Exp(-3*h/v.Range))
}

// nbins is the number of distance bins used for the empirical
// semivariogram.
const nbins = 10

// FitVariogram fits an exponential variogram model to the samples by
// binning the empirical semivariogram and searching candidate ranges,
// solving for nugget and partial sill by linear least squares at each.
func FitVariogram(samples []interp.Sample) Variogram {
	var dists, gammas []float64
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			dx := samples[i].X - samples[j].X
			dy := samples[i].Y - samples[j].Y
			dv := samples[i].V - samples[j].V
			dists = append(dists, math.Sqrt(dx*dx+dy*dy))
			gammas = append(gammas, dv*dv/2)
		}
	}
	maxDist := floats.Max(dists) / 2 // pairs beyond half the extent are unreliable
	if maxDist <= 0 {
		maxDist = floats.Max(dists)
	}

	binDist := make([]float64, 0, nbins)
	binGamma := make([]float64, 0, nbins)
	width := maxDist / nbins
	for b := 0; b < nbins; b++ {
		lo, hi := float64(b)*width, float64(b+1)*width
		var sumD, sumG float64
		var count int
		for k, d := range dists {
			if d > lo && d <= hi {
				sumD += d
				sumG += gammas[k]
				count++
			}
		}
		if count > 0 {
			binDist = append(binDist, sumD/float64(count))
			binGamma = append(binGamma, sumG/float64(count))
		}
	}
	if len(binDist) < 2 {
		// Too few distinct separations to fit anything; fall back to
		// a pure-nugget-free linear-ish model over the full extent.
		sill := floats.Max(gammas)
		if sill <= 0 {
			sill = 1
		}
		return Variogram{Nugget: 0, PartialSill: sill, Range: math.Max(maxDist, 1)}
	}

	best := Variogram{}
	bestSSE := math.Inf(1)
	for _, r := range binDist { // candidate practical ranges
		if r <= 0 {
			continue
		}
		// Linear least squares for γ(h) ≈ c0 + c1·basis(h).
		a := mat.NewDense(len(binDist), 2, nil)
		b := mat.NewDense(len(binDist), 1, nil)
		for k, h := range binDist {
			a.Set(k, 0, 1)
			a.Set(k, 1, 1-math.Exp(-3*h/r))
			b.Set(k, 0, binGamma[k])
		}
		var c mat.Dense
		if err := c.Solve(a, b); err != nil {
			continue
		}
		nugget, psill := c.At(0, 0), c.At(1, 0)
		if nugget < 0 {
			nugget = 0
		}
		if psill <= 0 {
			continue
		}
		var sse float64
		v := Variogram{Nugget: nugget, PartialSill: psill, Range: r}
		for k, h := range binDist {
			e := v.At(h) - binGamma[k]
			sse += e * e
		}
		if sse < bestSSE {
			bestSSE = sse
			best = v
		}
	}
	if math.IsInf(bestSSE, 1) {
		// No candidate produced a positive partial sill; the samples
		// are (nearly) constant. Any flat model reproduces them.
		mean := floats.Sum(binGamma) / float64(len(binGamma))
		if mean <= 0 {
			mean = 1
		}
		best = Variogram{Nugget: 0, PartialSill: mean, Range: floats.Max(binDist)}
	}
	return best
}

// dedupe removes coincident sample locations, which would make the
// kriging matrix singular.
func dedupe(samples []interp.Sample) []interp.Sample {
	const tol = 1.e-9
	var unique []interp.Sample
	for _, s := range samples {
		dup := false
		for _, u := range unique {
			if math.Abs(s.X-u.X) < tol && math.Abs(s.Y-u.Y) < tol {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, s)
		}
	}
	return unique
}

// krigeSurface solves a kriging system with ndrift monomial drift
// terms beyond the constant mean (0 for ordinary kriging, 2 for
// universal kriging with planar drift) and evaluates the estimator at
// every cell of grid.
func krigeSurface(method string, samples []interp.Sample, grid interp.GridSpec, need, ndrift int) (*sparse.DenseArray, error) {
	pts := dedupe(samples)
	if len(pts) < need {
		return nil, &interp.InsufficientStationsError{Method: method, Have: len(pts), Need: need}
	}
	v := FitVariogram(pts)

	n := len(pts)
	m := n + 1 + ndrift // one Lagrange row for the mean, plus drift rows
	drift := func(x, y float64, k int) float64 {
		switch k {
		case 0:
			return x
		default:
			return y
		}
	}

	k := mat.NewDense(m, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dx := pts[i].X - pts[j].X
			dy := pts[i].Y - pts[j].Y
			k.Set(i, j, v.At(math.Sqrt(dx*dx+dy*dy)))
		}
		k.Set(i, n, 1)
		k.Set(n, i, 1)
		for d := 0; d < ndrift; d++ {
			val := drift(pts[i].X, pts[i].Y, d)
			k.Set(i, n+1+d, val)
			k.Set(n+1+d, i, val)
		}
	}

	var kinv mat.Dense
	if err := kinv.Inverse(k); err != nil {
		return nil, &interp.DegenerateGeometryError{Method: method,
			Reason: "singular kriging system (stations too close together?)"}
	}

	// The estimate at a target is zᵀw with Kw = k(target); because K
	// is symmetric this is (K⁻¹z̃)ᵀ k(target) with z̃ the data vector
	// padded with zeros in the Lagrange/drift slots, so the system is
	// solved once rather than once per cell.
	zAug := mat.NewVecDense(m, nil)
	for i, p := range pts {
		zAug.SetVec(i, p.V)
	}
	u := mat.NewVecDense(m, nil)
	u.MulVec(&kinv, zAug)

	out := sparse.ZerosDense(grid.Ny, grid.Nx)
	idx := 0
	for row := 0; row < grid.Ny; row++ {
		for col := 0; col < grid.Nx; col++ {
			x, y := grid.CellCenter(row, col)
			est := u.AtVec(n) // Lagrange slot multiplies the constant 1
			for i, p := range pts {
				dx, dy := x-p.X, y-p.Y
				est += u.AtVec(i) * v.At(math.Sqrt(dx*dx+dy*dy))
			}
			for d := 0; d < ndrift; d++ {
				est += u.AtVec(n+1+d) * drift(x, y, d)
			}
			out.Elements[idx] = est
			idx++
		}
	}
	return out, nil
}

// Interpolate returns the ordinary-kriging surface for samples on
// grid. At least 3 distinct stations are required.
func (o Ordinary) Interpolate(samples []interp.Sample, grid interp.GridSpec, p interp.Params) (*sparse.DenseArray, error) {
	return krigeSurface(o.Name(), samples, grid, 3, 0)
}

// Interpolate returns the universal-kriging surface for samples on
// grid, using a planar drift. At least 5 distinct stations are
// required so that the drift is overdetermined.
func (u Universal) Interpolate(samples []interp.Sample, grid interp.GridSpec, p interp.Params) (*sparse.DenseArray, error) {
	return krigeSurface(u.Name(), samples, grid, 5, 2)
}
