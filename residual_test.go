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
	"strings"
	"testing"

	"github.com/ctessum/geom"
)

func testStation(name string, x, y, elev, precip float64) *Station {
	return &Station{
		Point:     geom.Point{X: x, Y: y},
		Name:      name,
		Elevation: elev,
		Precip:    precip,
	}
}

func TestComputeResiduals(t *testing.T) {
	estimate := newTestGrid(4, 4, 5) // 5 mm everywhere
	estimate.Data.Set(testNodata, 0, 0)

	stations := []*Station{
		testStation("a", 1500, 1500, 100, 10),   // ratio 2
		testStation("b", 2500, 2500, 100, 2.5),  // ratio 0.5
		testStation("c", 500, 3500, 100, 10),    // on the nodata cell
		testStation("d", 9999999, 500, 100, 10), // outside the grid
		testStation("e", 1500, 2500, 100, -1),   // accumulation error upstream
	}

	samples, skipped := ComputeResiduals(stations, estimate, RatioResidual, nil)
	if len(samples) != 2 {
		t.Fatalf("have %d samples, want 2", len(samples))
	}
	if different(samples[0].V, 2, 1.e-12) || different(samples[1].V, 0.5, 1.e-12) {
		t.Errorf("have residuals %g, %g, want 2, 0.5", samples[0].V, samples[1].V)
	}
	if len(skipped) != 3 {
		t.Fatalf("have %d skipped stations, want 3", len(skipped))
	}
	for _, s := range skipped {
		switch s.Station.Name {
		case "c", "d":
			if !strings.Contains(s.Reason, "nodata") {
				t.Errorf("station %s: reason %q should mention nodata", s.Station.Name, s.Reason)
			}
		case "e":
			if !strings.Contains(s.Reason, "negative") {
				t.Errorf("station %s: reason %q should mention the negative observation", s.Station.Name, s.Reason)
			}
		default:
			t.Errorf("station %s should not have been skipped", s.Station.Name)
		}
	}
}

func TestComputeResidualsDifference(t *testing.T) {
	estimate := newTestGrid(2, 2, 5)
	stations := []*Station{testStation("a", 500, 500, 100, 3)}
	samples, skipped := ComputeResiduals(stations, estimate, DifferenceResidual, nil)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped stations: %v", skipped)
	}
	if different(samples[0].V, -2, 1.e-12) {
		t.Errorf("have %g, want -2", samples[0].V)
	}
}

// A dry radar cell under a wet gauge must not blow the ratio up to
// infinity.
func TestComputeResidualsDryEstimate(t *testing.T) {
	estimate := newTestGrid(2, 2, 0) // no rain estimated anywhere
	stations := []*Station{testStation("a", 500, 500, 100, 5)}
	samples, _ := ComputeResiduals(stations, estimate, RatioResidual, nil)
	if len(samples) != 1 {
		t.Fatal("a zero estimate is still usable")
	}
	if want := 5 / .001; different(samples[0].V, want, 1.e-9) {
		t.Errorf("have %g, want the floored ratio %g", samples[0].V, want)
	}
}

func TestParseResidualMode(t *testing.T) {
	for _, test := range []struct {
		s    string
		want ResidualMode
	}{
		{"ratio", RatioResidual},
		{"difference", DifferenceResidual},
	} {
		m, err := ParseResidualMode(test.s)
		if err != nil {
			t.Fatal(err)
		}
		if m != test.want {
			t.Errorf("%q: have %v, want %v", test.s, m, test.want)
		}
		if m.String() != test.s {
			t.Errorf("round trip: have %q, want %q", m.String(), test.s)
		}
	}
	if _, err := ParseResidualMode("median"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}
