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
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// AggOp is a reduction applied across a time series of scans.
type AggOp int

const (
	// AggSum accumulates each cell across the series.
	AggSum AggOp = iota
	// AggMean averages each cell over its valid samples.
	AggMean
	// AggMax keeps each cell's largest valid sample.
	AggMax
	// AggMin keeps each cell's smallest valid sample.
	AggMin
)

// String implements fmt.Stringer.
func (op AggOp) String() string {
	switch op {
	case AggSum:
		return "sum"
	case AggMean:
		return "mean"
	case AggMax:
		return "max"
	case AggMin:
		return "min"
	default:
		return fmt.Sprintf("AggOp(%d)", int(op))
	}
}

// ParseAggOp converts an operation name to an AggOp.
func ParseAggOp(s string) (AggOp, error) {
	switch s {
	case "sum":
		return AggSum, nil
	case "mean":
		return AggMean, nil
	case "max":
		return AggMax, nil
	case "min":
		return AggMin, nil
	}
	return 0, fmt.Errorf("radarcal: invalid aggregation operation %q; valid operations are sum, mean, max, min", s)
}

// Aggregate folds a series of pixel-aligned grids into one. Cell
// values at or below threshold, and nodata cells, do not contribute.
// Mean divides by the per-cell count of contributing samples. Cells
// with no contributing sample at all hold zero, which keeps the
// output usable as an accumulation raster.
func Aggregate(grids []*RasterGrid, op AggOp, threshold float64) (*RasterGrid, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("radarcal: aggregating an empty scan series")
	}
	first := grids[0]
	for i, g := range grids[1:] {
		if !g.AlignedWith(first) {
			return nil, &GridMisalignmentError{
				Reason: fmt.Sprintf("scan %d does not share the geometry of scan 0", i+1),
			}
		}
	}

	out := NewRasterGrid(first.Nx(), first.Ny(),
		first.Xo, first.Yo, first.Dx, first.Dy, first.SRDef, first.Nodata)
	counts := make([]int, len(out.Data.Elements))
	switch op {
	case AggMax:
		for i := range out.Data.Elements {
			out.Data.Elements[i] = math.Inf(-1)
		}
	case AggMin:
		for i := range out.Data.Elements {
			out.Data.Elements[i] = math.Inf(1)
		}
	}

	for _, g := range grids {
		for i, v := range g.Data.Elements {
			if !g.valid(v) || v <= threshold {
				continue
			}
			counts[i]++
			switch op {
			case AggSum, AggMean:
				out.Data.Elements[i] += v
			case AggMax:
				out.Data.Elements[i] = math.Max(out.Data.Elements[i], v)
			case AggMin:
				out.Data.Elements[i] = math.Min(out.Data.Elements[i], v)
			}
		}
	}

	for i, n := range counts {
		if n == 0 {
			out.Data.Elements[i] = 0
			continue
		}
		if op == AggMean {
			out.Data.Elements[i] /= float64(n)
		}
	}
	return out, nil
}

// A Scan is one radar sweep with its acquisition time.
type Scan struct {
	Time time.Time
	Grid *RasterGrid
}

// AggregateByInterval buckets scans into consecutive intervals
// starting at the earliest scan time and folds each bucket with op.
// The returned scans carry each bucket's start time and are ordered
// chronologically; empty buckets are omitted.
func AggregateByInterval(scans []Scan, interval time.Duration, op AggOp, threshold float64) ([]Scan, error) {
	if len(scans) == 0 {
		return nil, fmt.Errorf("radarcal: aggregating an empty scan series")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("radarcal: aggregation interval must be positive, got %v", interval)
	}
	start := scans[0].Time
	for _, s := range scans[1:] {
		if s.Time.Before(start) {
			start = s.Time
		}
	}

	buckets := make(map[int][]*RasterGrid)
	for _, s := range scans {
		b := int(s.Time.Sub(start) / interval)
		buckets[b] = append(buckets[b], s.Grid)
	}
	keys := make([]int, 0, len(buckets))
	for b := range buckets {
		keys = append(keys, b)
	}
	sort.Ints(keys)

	out := make([]Scan, 0, len(keys))
	for _, b := range keys {
		g, err := Aggregate(buckets[b], op, threshold)
		if err != nil {
			return nil, err
		}
		out = append(out, Scan{
			Time: start.Add(time.Duration(b) * interval),
			Grid: g,
		})
	}
	return out, nil
}

// Scan filenames embed acquisition timestamps either as
// YYYYMMDD_HHMM or as YYYYMMDDHHMM.
var scanTimePattern = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})_?(\d{2})(\d{2})`)

// ScanTimeFromFilename extracts the acquisition timestamp embedded in
// a scan filename.
func ScanTimeFromFilename(filename string) (time.Time, error) {
	name := filepath.Base(filename)
	m := scanTimePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("radarcal: no timestamp in scan filename %q; expected YYYYMMDD_HHMM or YYYYMMDDHHMM", name)
	}
	t, err := time.Parse("200601021504", m[1]+m[2]+m[3]+m[4]+m[5])
	if err != nil {
		return time.Time{}, fmt.Errorf("radarcal: invalid timestamp in scan filename %q: %v", name, err)
	}
	return t, nil
}
