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
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
	goshp "github.com/jonas-p/go-shp"
)

// LoadStations reads ground stations from a point shapefile,
// reprojecting them to gridSRDef if the shapefile carries a different
// spatial reference. elevField and precipField name the numeric
// attribute columns holding station elevation [m] and observed
// precipitation [mm]; nameField optionally names an identifier column
// and may be empty.
func LoadStations(filename, nameField, elevField, precipField, gridSRDef string) ([]*Station, error) {
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, fmt.Errorf("radarcal: opening station shapefile: %v", err)
	}
	defer d.Close()

	gridSR, err := proj.Parse(gridSRDef)
	if err != nil {
		return nil, fmt.Errorf("radarcal: parsing grid projection: %v", err)
	}
	stationSR, err := d.SR()
	if err != nil {
		return nil, fmt.Errorf("radarcal: reading station projection: %v", err)
	}
	trans, err := stationSR.NewTransform(gridSR)
	if err != nil {
		return nil, fmt.Errorf("radarcal: reprojecting stations: %v", err)
	}

	fields := []string{elevField, precipField}
	if nameField != "" {
		fields = append(fields, nameField)
	}

	var stations []*Station
	for {
		g, attrs, more := d.DecodeRowFields(fields...)
		if !more {
			break
		}
		gg, err := g.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("radarcal: reprojecting station %d: %v", len(stations), err)
		}
		p, ok := gg.(geom.Point)
		if !ok {
			return nil, fmt.Errorf("radarcal: station shapefile must hold points, found %T", gg)
		}
		st := &Station{Point: p}
		if nameField != "" {
			st.Name = strings.TrimSpace(attrs[nameField])
		}
		if st.Elevation, err = s2f(attrs[elevField]); err != nil {
			return nil, fmt.Errorf("radarcal: station %s: parsing %s: %v", st.Label(), elevField, err)
		}
		if st.Precip, err = s2f(attrs[precipField]); err != nil {
			return nil, fmt.Errorf("radarcal: station %s: parsing %s: %v", st.Label(), precipField, err)
		}
		if math.IsNaN(st.Elevation) || math.IsNaN(st.Precip) {
			return nil, fmt.Errorf("radarcal: station %s: NaN attribute value", st.Label())
		}
		stations = append(stations, st)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("radarcal: reading station shapefile: %v", err)
	}
	return stations, nil
}

func s2f(s string) (float64, error) {
	if strings.Contains(s, "*") { // null value
		return 0., nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// ReadGridNCF reads variable varName from a NetCDF (classic format)
// file written by WriteGridNCF or following the same convention:
// dimensions (y, x) and global attributes x0, y0, dx, dy, nodata and
// proj4 describing the geotransform.
func ReadGridNCF(filename, varName string) (*RasterGrid, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("radarcal: opening raster file: %v", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("radarcal: reading raster file %s: %v", filename, err)
	}

	dims := ff.Header.Lengths(varName)
	if len(dims) != 2 {
		return nil, fmt.Errorf("radarcal: raster variable %s in %s must have 2 dimensions, found %d",
			varName, filename, len(dims))
	}
	ny, nx := dims[0], dims[1]

	attr := func(name string) (float64, error) {
		a := ff.Header.GetAttribute("", name)
		if a == nil {
			return 0, fmt.Errorf("radarcal: raster file %s is missing attribute %s", filename, name)
		}
		v, ok := a.([]float64)
		if !ok || len(v) == 0 {
			return 0, fmt.Errorf("radarcal: raster file %s: attribute %s is not a float", filename, name)
		}
		return v[0], nil
	}
	xo, err := attr("x0")
	if err != nil {
		return nil, err
	}
	yo, err := attr("y0")
	if err != nil {
		return nil, err
	}
	dx, err := attr("dx")
	if err != nil {
		return nil, err
	}
	dy, err := attr("dy")
	if err != nil {
		return nil, err
	}
	nodata, err := attr("nodata")
	if err != nil {
		return nil, err
	}
	var srdef string
	if a := ff.Header.GetAttribute("", "proj4"); a != nil {
		srdef, _ = a.(string)
	}

	r := ff.Reader(varName, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("radarcal: reading raster variable %s: %v", varName, err)
	}
	g := NewRasterGrid(nx, ny, xo, yo, dx, dy, srdef, nodata)
	switch data := buf.(type) {
	case []float64:
		copy(g.Data.Elements, data)
	case []float32:
		for i, v := range data {
			g.Data.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("radarcal: raster variable %s has unsupported type %T", varName, buf)
	}
	return g, nil
}

// WriteGridNCF writes g to a NetCDF (classic format) file as variable
// varName with the geotransform stored in global attributes, so that
// ReadGridNCF can reconstruct the grid.
func WriteGridNCF(filename, varName, description, units string, g *RasterGrid) error {
	h := cdf.NewHeader([]string{"y", "x"}, []int{g.Ny(), g.Nx()})
	h.AddAttribute("", "comment", "radarcal gridded data file")
	h.AddAttribute("", "x0", []float64{g.Xo})
	h.AddAttribute("", "y0", []float64{g.Yo})
	h.AddAttribute("", "dx", []float64{g.Dx})
	h.AddAttribute("", "dy", []float64{g.Dy})
	h.AddAttribute("", "nodata", []float64{g.Nodata})
	h.AddAttribute("", "proj4", g.SRDef)

	h.AddVariable(varName, []string{"y", "x"}, []float64{0})
	h.AddAttribute(varName, "description", description)
	h.AddAttribute(varName, "units", units)
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("radarcal: creating raster file %s: %v", filename, err)
	}

	ff, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("radarcal: creating raster file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("radarcal: creating raster file %s: %v", filename, err)
	}
	if err := writeNCF(f, varName, g.Data); err != nil {
		return fmt.Errorf("radarcal: writing raster variable %s: %v", varName, err)
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		return fmt.Errorf("radarcal: finalizing raster file %s: %v", filename, err)
	}
	return nil
}

func writeNCF(f *cdf.File, varName string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	end := f.Header.Lengths(varName)
	start := make([]int, len(end))
	w := f.Writer(varName, start, end)
	_, err := w.Write(data.Elements)
	return err
}

// WriteReport writes a point shapefile describing what the
// calibration run did with each station: its observation, whether it
// was used, its residual if so, and the reason it was skipped if not.
// Station i of report.Used corresponds to report.Residuals[i].
// srdef is the Proj4 spatial reference of the station coordinates,
// written to the accompanying .prj file.
func WriteReport(filename string, report *Report, srdef string) error {
	fields := []goshp.Field{
		goshp.StringField("name", 40),
		goshp.FloatField("elev", 14, 4),
		goshp.FloatField("precip", 14, 4),
		goshp.FloatField("residual", 14, 6),
		goshp.StringField("status", 8),
		goshp.StringField("reason", 128),
	}
	e, err := shp.NewEncoderFromFields(filename, goshp.POINT, fields...)
	if err != nil {
		return fmt.Errorf("radarcal: creating report shapefile: %v", err)
	}
	for i, st := range report.Used {
		err := e.EncodeFields(st.Point,
			st.Name, st.Elevation, st.Precip, report.Residuals[i].V, "used", "")
		if err != nil {
			return fmt.Errorf("radarcal: writing report shapefile: %v", err)
		}
	}
	for _, s := range report.Skipped {
		err := e.EncodeFields(s.Station.Point,
			s.Station.Name, s.Station.Elevation, s.Station.Precip, 0., "skipped", s.Reason)
		if err != nil {
			return fmt.Errorf("radarcal: writing report shapefile: %v", err)
		}
	}
	e.Close()

	f, err := os.Create(strings.TrimSuffix(filename, ".shp") + ".prj")
	if err != nil {
		return fmt.Errorf("radarcal: creating report prj file: %v", err)
	}
	fmt.Fprint(f, srdef)
	return f.Close()
}

// DeleteShapefile deletes the named shapefile and its support files.
func DeleteShapefile(filename string) error {
	base := strings.TrimSuffix(filename, ".shp")
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		if err := os.Remove(base + ext); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
