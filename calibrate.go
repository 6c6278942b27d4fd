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
	"context"
	"errors"
	"fmt"

	"github.com/ctessum/sparse"

	"github.com/hidromet/radarcal/interp"
)

// Config holds the options of one calibration run.
type Config struct {
	// InterpolationMethod selects how station residuals are spread
	// across the grid. Valid values are the names returned by
	// interp.Methods: "idw", "linear", "cubic", "nearest" and, when
	// the geostatistics backend is linked in, "ordinary_kriging" and
	// "universal_kriging".
	InterpolationMethod string

	// IDWPower is the inverse-distance weighting exponent.
	IDWPower float64

	// NodataThresholdDBZ is the reflectivity [dBZ] at or below which
	// a cell is treated as rain-free.
	NodataThresholdDBZ float64

	// ResidualMode selects ratio or difference residuals.
	ResidualMode ResidualMode

	// OutputNodata is the sentinel stamped on output cells where the
	// input reflectivity held no data.
	OutputNodata float64

	// MaxPlausiblePrecip caps the output [mm] to suppress unphysical
	// values.
	MaxPlausiblePrecip float64

	// ZR are the reflectivity-to-rainrate conversion coefficients.
	ZR ZRParams

	// Elevation is the beam-height representativeness model.
	Elevation ElevationModel

	// AllowNeutralFallback substitutes a neutral (identity)
	// correction surface when the selected method cannot run on the
	// usable stations, instead of failing the run.
	AllowNeutralFallback bool
}

// DefaultConfig returns the documented default options.
func DefaultConfig() Config {
	return Config{
		InterpolationMethod: "idw",
		IDWPower:            2,
		NodataThresholdDBZ:  25,
		ResidualMode:        RatioResidual,
		OutputNodata:        -9999,
		MaxPlausiblePrecip:  500,
		ZR:                  DefaultZR,
		Elevation:           DefaultElevation,
	}
}

// A Report summarizes what a calibration run did with its stations.
type Report struct {
	Method    string
	Used      []*Station
	Skipped   []SkippedStation
	Residuals []interp.Sample

	// NeutralFallback is true if the correction surface was replaced
	// with the neutral value because the interpolation method could
	// not run (only possible with Config.AllowNeutralFallback).
	NeutralFallback bool
}

// Calibrate converts a radar reflectivity scan [dBZ] to a calibrated
// precipitation grid [mm], fusing the radar field with ground-station
// observations and an elevation model.
//
// reflectivity and dem must be in the same spatial reference; a DEM
// at a different resolution or extent is resampled onto the
// reflectivity geometry. Stations must already be in the grid
// spatial reference (LoadStations reprojects on read).
//
// The run is a single synchronous computation. Cancellation via ctx
// is checked between the pipeline stages, not inside grid loops.
// Status messages are sent to c if it is non-nil; the caller must
// drain it.
func Calibrate(ctx context.Context, reflectivity, dem *RasterGrid, stations []*Station, cfg Config, c chan string) (*RasterGrid, *Report, error) {
	// Resolve the interpolation method first so a missing backend is
	// reported before any grid work happens.
	method, err := interp.Lookup(cfg.InterpolationMethod)
	if err != nil {
		return nil, nil, err
	}
	if len(stations) == 0 {
		return nil, nil, &interp.InsufficientStationsError{Method: method.Name(), Have: 0, Need: 1}
	}

	if !dem.AlignedWith(reflectivity) {
		if !dem.Bounds().Overlaps(reflectivity.Bounds()) {
			return nil, nil, &GridMisalignmentError{
				Reason: "DEM does not overlap the radar grid",
			}
		}
		statusf(c, "resampling DEM onto the %d×%d radar geometry", reflectivity.Nx(), reflectivity.Ny())
		dem, err = dem.ResampleTo(reflectivity)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := dem.Stats(); !ok {
			return nil, nil, &GridMisalignmentError{
				Reason: "DEM holds no valid data on the radar grid",
			}
		}
	}

	statusf(c, "converting reflectivity to rain rate (Z=%g·R^%g, threshold %g dBZ)",
		cfg.ZR.A, cfg.ZR.B, cfg.NodataThresholdDBZ)
	converted := ConvertReflectivity(reflectivity, cfg.ZR, cfg.NodataThresholdDBZ, cfg.MaxPlausiblePrecip)

	corrected, err := applyElevationCorrection(converted, dem, stations, method, cfg, c)
	if err != nil {
		return nil, nil, err
	}

	samples, skipped := ComputeResiduals(stations, corrected, cfg.ResidualMode, c)
	for _, s := range skipped {
		statusf(c, "skipping %s: %s", s.Station.Label(), s.Reason)
	}
	if len(samples) == 0 {
		return nil, nil, &AllStationsExcludedError{Skipped: skipped}
	}

	report := &Report{
		Method:    method.Name(),
		Used:      make([]*Station, 0, len(samples)),
		Skipped:   skipped,
		Residuals: samples,
	}
	excluded := make(map[*Station]bool, len(skipped))
	for _, s := range skipped {
		excluded[s.Station] = true
	}
	for _, st := range stations {
		if !excluded[st] {
			report.Used = append(report.Used, st)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	statusf(c, "interpolating %d station residuals with method %q", len(samples), method.Name())
	p := interp.Params{Power: cfg.IDWPower, Neutral: cfg.ResidualMode.Neutral()}
	surface, err := method.Interpolate(samples, reflectivity.Spec(), p)
	if err != nil {
		var insufficient *interp.InsufficientStationsError
		var degenerate *interp.DegenerateGeometryError
		if cfg.AllowNeutralFallback && (errors.As(err, &insufficient) || errors.As(err, &degenerate)) {
			statusf(c, "interpolation infeasible (%v); using the neutral correction surface", err)
			surface = sparse.ZerosDense(reflectivity.Ny(), reflectivity.Nx())
			for i := range surface.Elements {
				surface.Elements[i] = cfg.ResidualMode.Neutral()
			}
			report.NeutralFallback = true
		} else {
			return nil, nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	statusf(c, "compositing the calibrated precipitation grid")
	out := Compose(corrected, surface, cfg.ResidualMode, cfg.MaxPlausiblePrecip, cfg.OutputNodata)
	return out, report, nil
}

// applyElevationCorrection derates the converted rain estimate where
// the terrain height diverges from the heights the radar estimates
// are representative of. The reference surface is the station
// elevations interpolated onto the grid with the run's method; cells
// the method cannot reach keep a neutral factor.
func applyElevationCorrection(converted, dem *RasterGrid, stations []*Station, method interp.Interpolator, cfg Config, c chan string) (*RasterGrid, error) {
	elevSamples := make([]interp.Sample, len(stations))
	for i, st := range stations {
		elevSamples[i] = interp.Sample{X: st.X, Y: st.Y, V: st.Elevation}
	}
	statusf(c, "interpolating station elevations for the beam-height correction")
	dense, err := method.Interpolate(elevSamples, converted.Spec(), interp.Params{
		Power:   cfg.IDWPower,
		Neutral: converted.Nodata, // no elevation information: neutral factor
	})
	if err != nil {
		if cfg.AllowNeutralFallback {
			statusf(c, "elevation interpolation infeasible (%v); skipping the correction", err)
			return converted, nil
		}
		return nil, err
	}
	refElev := converted.Clone()
	refElev.Data = dense

	factors, err := cfg.Elevation.FactorGrid(refElev, dem)
	if err != nil {
		return nil, err
	}
	out := converted.Clone()
	for i, v := range converted.Data.Elements {
		if !converted.valid(v) {
			continue
		}
		out.Data.Elements[i] = v * factors.Data.Elements[i]
	}
	return out, nil
}

// Compose applies the interpolated correction surface to the radar
// rain estimate: multiplicatively for ratio residuals, additively for
// difference residuals. Results are clipped to [0, maxPrecip] and
// cells where the estimate held no data are stamped with outNodata.
// The output preserves the estimate grid's shape and geotransform.
func Compose(estimate *RasterGrid, correction *sparse.DenseArray, mode ResidualMode, maxPrecip, outNodata float64) *RasterGrid {
	out := NewRasterGrid(estimate.Nx(), estimate.Ny(),
		estimate.Xo, estimate.Yo, estimate.Dx, estimate.Dy, estimate.SRDef, outNodata)
	for i, v := range estimate.Data.Elements {
		if !estimate.valid(v) {
			out.Data.Elements[i] = outNodata
			continue
		}
		var o float64
		if mode == DifferenceResidual {
			o = v + correction.Elements[i]
		} else {
			o = v * correction.Elements[i]
		}
		if o < 0 {
			o = 0
		} else if o > maxPrecip {
			o = maxPrecip
		}
		out.Data.Elements[i] = o
	}
	return out
}

// statusf sends a formatted status message to c if it is non-nil.
func statusf(c chan string, format string, args ...interface{}) {
	if c != nil {
		c <- fmt.Sprintf(format, args...)
	}
}
