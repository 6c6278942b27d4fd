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

import "testing"

func TestRainRate(t *testing.T) {
	// 30 dBZ is Z=1000 mm⁶/m³; with Marshall–Palmer coefficients
	// R = (1000/200)^(1/1.6) = 5^0.625.
	if r := DefaultZR.RainRate(30); different(r, 2.73465, 1.e-4) {
		t.Errorf("30 dBZ: have %g mm/h, want 2.73465", r)
	}
	// Monotone increasing in reflectivity.
	prev := 0.
	for dBZ := 5.; dBZ <= 70; dBZ += 5 {
		r := DefaultZR.RainRate(dBZ)
		if r <= prev {
			t.Fatalf("rain rate not increasing at %g dBZ: %g <= %g", dBZ, r, prev)
		}
		prev = r
	}
}

func TestConvertReflectivity(t *testing.T) {
	g := newTestGrid(2, 2, 0)
	g.Data.Elements = []float64{30, 20, testNodata, 70}
	out := ConvertReflectivity(g, DefaultZR, 25, 500)

	if v := out.Data.Elements[0]; different(v, 2.73465, 1.e-4) {
		t.Errorf("30 dBZ: have %g, want 2.73465", v)
	}
	// At or below the threshold means no rain, not nodata.
	if v := out.Data.Elements[1]; v != 0 {
		t.Errorf("20 dBZ: have %g, want 0", v)
	}
	if v := out.Data.Elements[2]; v != testNodata {
		t.Errorf("nodata cell: have %g, want nodata", v)
	}
	// 70 dBZ converts to far more than 500 mm and is clipped.
	if v := out.Data.Elements[3]; v != 500 {
		t.Errorf("70 dBZ: have %g, want the 500 mm cap", v)
	}

	// The input grid is left untouched.
	if g.Data.Elements[0] != 30 {
		t.Error("conversion must not modify its input")
	}
}
