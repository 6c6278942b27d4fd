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

// Package radarcal calibrates weather-radar reflectivity scans to
// precipitation using ground-station observations and a digital
// elevation model.
//
// The pipeline converts reflectivity [dBZ] to an initial rain
// estimate through a configurable Z–R power law, derates the estimate
// where terrain height diverges from the heights the radar beam is
// representative of, compares the estimate against station
// observations to obtain per-station residuals, spreads the residuals
// across the grid with a selectable spatial interpolation method, and
// composites the resulting correction surface back onto the radar
// field. Calibrate is the single entry point.
package radarcal

// Version gives the version number.
const Version = "0.1.0"
