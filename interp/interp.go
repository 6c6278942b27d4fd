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

// Package interp spreads sparse point samples across a dense grid.
// Interpolation strategies register themselves in a package-level
// registry; strategies with heavyweight dependencies live in
// subpackages so that linking them into a program is an explicit
// decision, and programs that don't can find out before doing any
// grid work.
package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ctessum/sparse"
)

// A Sample is one point observation to be spread across the grid.
type Sample struct {
	X, Y float64
	V    float64
}

// GridSpec describes the target lattice for an interpolation.
// Row 0 runs along the northern edge; Dx and Dy are positive cell
// sizes in the units of the grid's spatial projection.
type GridSpec struct {
	Nx, Ny int
	Xo, Yo float64 // coordinates of the upper-left grid corner
	Dx, Dy float64
}

// CellCenter returns the coordinates of the center of cell (row, col).
func (g GridSpec) CellCenter(row, col int) (x, y float64) {
	return g.Xo + (float64(col)+0.5)*g.Dx, g.Yo - (float64(row)+0.5)*g.Dy
}

// Params holds strategy options shared by all interpolators.
type Params struct {
	// Power is the inverse-distance weighting exponent.
	// Values ≤ 0 are replaced with the default of 2.
	Power float64

	// Neutral is the value assigned to cells the strategy cannot
	// produce an estimate for, such as cells outside the convex
	// hull of the samples.
	Neutral float64
}

// An Interpolator produces a dense surface, shaped [grid.Ny, grid.Nx],
// from sparse samples. Implementations must be stateless: calling
// Interpolate must not retain anything between calls.
type Interpolator interface {
	Name() string
	Interpolate(samples []Sample, grid GridSpec, p Params) (*sparse.DenseArray, error)
}

var interpolators = make(map[string]Interpolator)

// Register adds i to the method registry, replacing any
// previously-registered method with the same name. It is intended to
// be called from init functions.
func Register(i Interpolator) {
	interpolators[i.Name()] = i
}

// Methods returns the names of all registered interpolation methods,
// sorted alphabetically.
func Methods() []string {
	o := make([]string, 0, len(interpolators))
	for name := range interpolators {
		o = append(o, name)
	}
	sort.Strings(o)
	return o
}

// Lookup returns the named interpolation method, or a
// MissingBackendError if no such method is linked into the running
// program.
func Lookup(name string) (Interpolator, error) {
	if i, ok := interpolators[name]; ok {
		return i, nil
	}
	return nil, &MissingBackendError{Method: name, Available: Methods()}
}

// MissingBackendError means the requested interpolation method is not
// linked into the running program.
type MissingBackendError struct {
	Method    string
	Available []string
}

func (e *MissingBackendError) Error() string {
	return fmt.Sprintf("interp: method %q is not available in this program; available methods are: %s",
		e.Method, strings.Join(e.Available, ", "))
}

// InsufficientStationsError means a method was given fewer samples
// than it requires.
type InsufficientStationsError struct {
	Method     string
	Have, Need int
}

func (e *InsufficientStationsError) Error() string {
	return fmt.Sprintf("interp: method %q requires at least %d stations but only %d are usable",
		e.Method, e.Need, e.Have)
}

// DegenerateGeometryError means the sample locations cannot support
// the requested method, for example because they are coincident or
// collinear.
type DegenerateGeometryError struct {
	Method, Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("interp: method %q: degenerate station geometry: %s", e.Method, e.Reason)
}

// coincidentTol is the distance below which two sample locations are
// considered the same point, in grid projection units.
const coincidentTol = 1.e-9
