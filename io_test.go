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
	"os"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/hidromet/radarcal/interp"
)

const (
	testStationsFilename = "testStations.shp"
	testReportFilename   = "testReport.shp"
	testRasterFilename   = "testRaster.nc"
)

func writeTestStations() error {
	type stationHolder struct {
		geom.Point
		Name   string
		Elev   float64
		Precip float64
	}

	e, err := shp.NewEncoder(testStationsFilename, stationHolder{})
	if err != nil {
		return err
	}
	for _, s := range []stationHolder{
		{Point: geom.Point{X: 2500, Y: 2500}, Name: "valley", Elev: 120, Precip: 8.5},
		{Point: geom.Point{X: 7500, Y: 2500}, Name: "ridge", Elev: 1450, Precip: 12},
		{Point: geom.Point{X: 5000, Y: 7500}, Name: "plain", Elev: 300, Precip: 0},
	} {
		if err := e.Encode(s); err != nil {
			return err
		}
	}
	e.Close()

	f, err := os.Create("testStations.prj")
	if err != nil {
		return err
	}
	if _, err := f.WriteString(testProj); err != nil {
		return err
	}
	return f.Close()
}

func TestLoadStations(t *testing.T) {
	if err := writeTestStations(); err != nil {
		t.Fatal(err)
	}
	defer DeleteShapefile(testStationsFilename)

	stations, err := LoadStations(testStationsFilename, "Name", "Elev", "Precip", testProj)
	if err != nil {
		t.Fatal(err)
	}
	if len(stations) != 3 {
		t.Fatalf("have %d stations, want 3", len(stations))
	}
	s := stations[1]
	if s.Name != "ridge" {
		t.Errorf("have name %q, want ridge", s.Name)
	}
	// Grid and shapefile share a projection, so coordinates pass
	// through unchanged.
	if different(s.X, 7500, 1.e-6) || different(s.Y, 2500, 1.e-6) {
		t.Errorf("have location (%g, %g), want (7500, 2500)", s.X, s.Y)
	}
	if different(s.Elevation, 1450, 1.e-6) || different(s.Precip, 12, 1.e-6) {
		t.Errorf("have elev %g and precip %g, want 1450 and 12", s.Elevation, s.Precip)
	}
	// A dry gauge is a legitimate observation.
	if stations[2].Precip != 0 {
		t.Errorf("have precip %g, want 0", stations[2].Precip)
	}
}

// Stations recorded in geographic coordinates are reprojected onto
// the grid spatial reference on load.
func TestLoadStationsReproject(t *testing.T) {
	type stationHolder struct {
		geom.Point
		Name   string
		Elev   float64
		Precip float64
	}
	e, err := shp.NewEncoder(testStationsFilename, stationHolder{})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []stationHolder{
		// The grid projection's origin.
		{Point: geom.Point{X: -97, Y: 40}, Name: "origin", Elev: 250, Precip: 4},
		{Point: geom.Point{X: -96, Y: 40}, Name: "east", Elev: 310, Precip: 6},
	} {
		if err := e.Encode(s); err != nil {
			t.Fatal(err)
		}
	}
	e.Close()
	f, err := os.Create("testStations.prj")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("+proj=longlat +a=6370997.000000 +b=6370997.000000"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	defer DeleteShapefile(testStationsFilename)

	stations, err := LoadStations(testStationsFilename, "Name", "Elev", "Precip", testProj)
	if err != nil {
		t.Fatal(err)
	}
	if len(stations) != 2 {
		t.Fatalf("have %d stations, want 2", len(stations))
	}
	origin := stations[0]
	if different(origin.X, 0, 1.e-3) || different(origin.Y, 0, 1.e-3) {
		t.Errorf("have location (%g, %g), want (0, 0)", origin.X, origin.Y)
	}
	if different(origin.Elevation, 250, 1.e-6) || different(origin.Precip, 4, 1.e-6) {
		t.Errorf("have elev %g and precip %g, want 250 and 4", origin.Elevation, origin.Precip)
	}
	// One degree east of the projection origin lands about 85 km out,
	// bowed slightly north by the curvature of the parallel.
	east := stations[1]
	if east.X < 84000 || east.X > 85500 {
		t.Errorf("have x %g, want roughly 84700", east.X)
	}
	if east.Y < 300 || east.Y > 600 {
		t.Errorf("have y %g, want roughly 470", east.Y)
	}
}

func TestLoadStationsMissingField(t *testing.T) {
	if err := writeTestStations(); err != nil {
		t.Fatal(err)
	}
	defer DeleteShapefile(testStationsFilename)

	if _, err := LoadStations(testStationsFilename, "Name", "Altitude", "Precip", testProj); err == nil {
		t.Error("expected an error for a missing attribute column")
	}
}

func TestGridNCFRoundTrip(t *testing.T) {
	want := newTestGrid(5, 4, 0)
	for i := range want.Data.Elements {
		want.Data.Elements[i] = float64(i) * 1.5
	}
	want.Data.Set(testNodata, 2, 3)

	if err := WriteGridNCF(testRasterFilename, "precip", "calibrated precipitation", "mm", want); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(testRasterFilename)

	have, err := ReadGridNCF(testRasterFilename, "precip")
	if err != nil {
		t.Fatal(err)
	}
	if have.Nx() != want.Nx() || have.Ny() != want.Ny() {
		t.Fatalf("have shape %d×%d, want %d×%d", have.Nx(), have.Ny(), want.Nx(), want.Ny())
	}
	if different(have.Xo, want.Xo, 1.e-9) || different(have.Yo, want.Yo, 1.e-9) ||
		different(have.Dx, want.Dx, 1.e-9) || different(have.Dy, want.Dy, 1.e-9) {
		t.Errorf("geotransform: have (%g,%g,%g,%g), want (%g,%g,%g,%g)",
			have.Xo, have.Yo, have.Dx, have.Dy, want.Xo, want.Yo, want.Dx, want.Dy)
	}
	if have.Nodata != want.Nodata {
		t.Errorf("have nodata %g, want %g", have.Nodata, want.Nodata)
	}
	if have.SRDef != want.SRDef {
		t.Errorf("have projection %q, want %q", have.SRDef, want.SRDef)
	}
	for i, w := range want.Data.Elements {
		if different(have.Data.Elements[i], w, 1.e-9) {
			t.Errorf("cell %d: have %g, want %g", i, have.Data.Elements[i], w)
		}
	}
}

func TestReadGridNCFMissingVariable(t *testing.T) {
	g := newTestGrid(2, 2, 1)
	if err := WriteGridNCF(testRasterFilename, "precip", "", "mm", g); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(testRasterFilename)

	if _, err := ReadGridNCF(testRasterFilename, "reflectivity"); err == nil {
		t.Error("expected an error for a missing variable")
	}
}

func TestWriteReport(t *testing.T) {
	used := testStation("a", 2500, 2500, 120, 8.5)
	skippedStation := testStation("b", 7500, 2500, 1450, -1)
	report := &Report{
		Method:    "idw",
		Used:      []*Station{used},
		Residuals: []interp.Sample{{X: used.X, Y: used.Y, V: 1.25}},
		Skipped: []SkippedStation{
			{Station: skippedStation, Reason: "negative precipitation observation (-1 mm)"},
		},
	}
	if err := WriteReport(testReportFilename, report, testProj); err != nil {
		t.Fatal(err)
	}
	defer DeleteShapefile(testReportFilename)

	d, err := shp.NewDecoder(testReportFilename)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	var rows int
	status := make(map[string]string)
	for {
		g, attrs, more := d.DecodeRowFields("name", "status", "reason")
		if !more {
			break
		}
		if _, ok := g.(geom.Point); !ok {
			t.Fatalf("report geometry must be points, found %T", g)
		}
		status[strings.TrimSpace(attrs["name"])] = strings.TrimSpace(attrs["status"])
		rows++
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}
	if rows != 2 {
		t.Fatalf("have %d report rows, want 2", rows)
	}
	if status["a"] != "used" || status["b"] != "skipped" {
		t.Errorf("have statuses %v, want a=used, b=skipped", status)
	}
}
