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

// Package radarcalutil holds the configuration and command-line
// interface of the radarcal program.
package radarcalutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hidromet/radarcal"
	"github.com/hidromet/radarcal/interp"

	// Link in the geostatistical interpolation methods.
	_ "github.com/hidromet/radarcal/interp/krige"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var logger *logrus.Logger

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	logger = logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})

	// Options are the configuration options available to radarcal.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "RadarFile",
			usage: `
              RadarFile is the path to the NetCDF file holding the radar
              reflectivity scan [dBZ] to calibrate.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "RadarVariable",
			usage: `
              RadarVariable is the name of the reflectivity variable in
              RadarFile.`,
			defaultVal: "reflectivity",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "DEMFile",
			usage: `
              DEMFile is the path to the NetCDF file holding the digital
              elevation model [m]. It must share the spatial reference of
              RadarFile; a DEM at a different resolution or extent is
              resampled onto the radar geometry.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "DEMVariable",
			usage: `
              DEMVariable is the name of the elevation variable in DEMFile.`,
			defaultVal: "elevation",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "StationsFile",
			usage: `
              StationsFile is the path to the point shapefile holding the
              ground stations. Stations are reprojected to the radar
              spatial reference on read.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "StationNameField",
			usage: `
              StationNameField is the shapefile attribute holding the
              station name.`,
			defaultVal: "name",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "StationElevField",
			usage: `
              StationElevField is the shapefile attribute holding the
              station elevation [m].`,
			defaultVal: "elev",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "StationPrecipField",
			usage: `
              StationPrecipField is the shapefile attribute holding the
              observed precipitation [mm] for the calibration period.`,
			defaultVal: "precip",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "InterpolationMethod",
			usage: `
              InterpolationMethod selects how station residuals are spread
              across the grid. Run 'radarcal methods' for the list of
              methods available in this build.`,
			shorthand:  "m",
			defaultVal: "idw",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "IDWPower",
			usage: `
              IDWPower is the inverse-distance weighting exponent.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "NodataThresholdDBZ",
			usage: `
              NodataThresholdDBZ is the reflectivity [dBZ] at or below
              which a radar cell is treated as rain-free.`,
			defaultVal: 25.0,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "ResidualMode",
			usage: `
              ResidualMode selects how station observations are compared
              with the radar estimate: 'ratio' (multiplicative correction)
              or 'difference' (additive correction).`,
			defaultVal: "ratio",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "OutputNodata",
			usage: `
              OutputNodata is the sentinel written to output cells where
              the input reflectivity held no data.`,
			defaultVal: -9999.0,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags(), aggregateCmd.Flags()},
		},
		{
			name: "MaxPlausiblePrecip",
			usage: `
              MaxPlausiblePrecip caps the calibrated precipitation [mm] to
              suppress unphysical values.`,
			defaultVal: 500.0,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "ZR.A",
			usage: `
              ZR.A is the multiplicative coefficient of the Z=A·R^B
              reflectivity-to-rainrate relationship. The default is the
              Marshall-Palmer value.`,
			defaultVal: 200.0,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "ZR.B",
			usage: `
              ZR.B is the exponent of the Z=A·R^B reflectivity-to-rainrate
              relationship. The default is the Marshall-Palmer value.`,
			defaultVal: 1.6,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Elevation.RefDifference",
			usage: `
              Elevation.RefDifference is the terrain height excess [m]
              above the station reference surface at which the beam-height
              derating reaches Elevation.MinFactor.`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Elevation.MinFactor",
			usage: `
              Elevation.MinFactor is the lower bound of the beam-height
              derating factor.`,
			defaultVal: 0.5,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "AllowNeutralFallback",
			usage: `
              AllowNeutralFallback substitutes a neutral (identity)
              correction surface when the selected interpolation method
              cannot run on the usable stations, instead of failing the
              run.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the NetCDF file to write the
              calibrated precipitation grid to.`,
			shorthand:  "o",
			defaultVal: "calibrated.nc",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags(), aggregateCmd.Flags()},
		},
		{
			name: "OutputVariable",
			usage: `
              OutputVariable is the name of the precipitation variable in
              the output file.`,
			defaultVal: "precip",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags(), aggregateCmd.Flags()},
		},
		{
			name: "ReportFile",
			usage: `
              ReportFile is the path of an optional point shapefile
              reporting, per station, the residual that entered the
              interpolation or the reason the station was excluded. Leave
              empty to skip the report.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "AggFiles",
			usage: `
              AggFiles lists the NetCDF precipitation files to aggregate.
              Entries may contain shell glob patterns.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
		{
			name: "AggVariable",
			usage: `
              AggVariable is the name of the precipitation variable in the
              AggFiles.`,
			defaultVal: "precip",
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
		{
			name: "AggOp",
			usage: `
              AggOp selects the aggregation operator: 'sum', 'mean', 'max'
              or 'min'.`,
			defaultVal: "sum",
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
		{
			name: "AggInterval",
			usage: `
              AggInterval buckets the input scans by their filename
              timestamps into windows of this duration (for example '1h'
              or '24h') and writes one output file per window. Leave empty
              to aggregate all inputs into a single grid.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
		{
			name: "AggThreshold",
			usage: `
              AggThreshold is the value [mm] at or below which input cells
              are ignored by the aggregation.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("RADARCAL")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(calibrateCmd)
	Root.AddCommand(aggregateCmd)
	Root.AddCommand(methodsCmd)
}

// outChan returns a channel that logs the status messages sent to it.
func outChan() chan string {
	c := make(chan string)
	go func() {
		for msg := range c {
			logger.Info(msg)
		}
	}()
	return c
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("radarcal: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "radarcal",
	Short: "Calibrate radar precipitation with ground stations.",
	Long: `radarcal fuses weather-radar reflectivity scans with ground-station
precipitation observations to produce calibrated precipitation grids.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'RADARCAL_var' where 'var'
is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of radarcal.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("radarcal v%s\n", radarcal.Version)
	},
	DisableAutoGenTag: true,
}

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List the available interpolation methods.",
	Long: `methods lists the residual interpolation methods linked into this
build of radarcal.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(strings.Join(interp.Methods(), "\n"))
	},
	DisableAutoGenTag: true,
}

// calibrateCmd runs one calibration.
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate one radar scan.",
	Long: `calibrate converts a radar reflectivity scan to rain rate, corrects it
for beam-height representativeness using a digital elevation model,
compares the estimate against ground-station observations, interpolates
the per-station residuals across the grid, and writes the calibrated
precipitation grid to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outChan := outChan()
		defer close(outChan)

		cfg, err := CalibratorConfig(Cfg)
		if err != nil {
			return err
		}
		radarFile, err := checkInputFile(Cfg.GetString("RadarFile"), "RadarFile")
		if err != nil {
			return err
		}
		demFile, err := checkInputFile(Cfg.GetString("DEMFile"), "DEMFile")
		if err != nil {
			return err
		}
		stationsFile, err := checkInputFile(Cfg.GetString("StationsFile"), "StationsFile")
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}

		reflectivity, err := radarcal.ReadGridNCF(radarFile, Cfg.GetString("RadarVariable"))
		if err != nil {
			return err
		}
		dem, err := radarcal.ReadGridNCF(demFile, Cfg.GetString("DEMVariable"))
		if err != nil {
			return err
		}
		stations, err := radarcal.LoadStations(stationsFile,
			Cfg.GetString("StationNameField"), Cfg.GetString("StationElevField"),
			Cfg.GetString("StationPrecipField"), reflectivity.SRDef)
		if err != nil {
			return err
		}
		logger.Infof("calibrating %s against %d stations", filepath.Base(radarFile), len(stations))

		out, report, err := radarcal.Calibrate(context.Background(), reflectivity, dem, stations, cfg, outChan)
		if err != nil {
			return err
		}
		logger.Infof("used %d stations, skipped %d", len(report.Used), len(report.Skipped))

		err = radarcal.WriteGridNCF(outputFile, Cfg.GetString("OutputVariable"),
			"calibrated precipitation", "mm", out)
		if err != nil {
			return err
		}
		if reportFile := Cfg.GetString("ReportFile"); reportFile != "" {
			if err := radarcal.WriteReport(reportFile, report, reflectivity.SRDef); err != nil {
				return err
			}
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// aggregateCmd accumulates calibrated scans over time.
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate precipitation grids over time.",
	Long: `aggregate combines a set of precipitation grids cell by cell using the
AggOp operator. With AggInterval set, the input scans are bucketed by
the timestamps in their filenames and one output file is written per
window, its name derived from OutputFile and the window start time;
otherwise all inputs are combined into the single OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, err := cast.ToStringSliceE(Cfg.Get("AggFiles"))
		if err != nil {
			return fmt.Errorf("radarcal: invalid AggFiles: %v", err)
		}
		files, err := expandGlobs(patterns)
		if err != nil {
			return err
		}
		op, err := radarcal.ParseAggOp(Cfg.GetString("AggOp"))
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		varName := Cfg.GetString("AggVariable")
		outVar := Cfg.GetString("OutputVariable")
		threshold := Cfg.GetFloat64("AggThreshold")

		if interval := Cfg.GetString("AggInterval"); interval != "" {
			d, err := checkInterval(interval)
			if err != nil {
				return err
			}
			scans := make([]radarcal.Scan, len(files))
			for i, f := range files {
				t, err := radarcal.ScanTimeFromFilename(f)
				if err != nil {
					return err
				}
				g, err := radarcal.ReadGridNCF(f, varName)
				if err != nil {
					return err
				}
				scans[i] = radarcal.Scan{Time: t, Grid: g}
			}
			windows, err := radarcal.AggregateByInterval(scans, d, op, threshold)
			if err != nil {
				return err
			}
			ext := filepath.Ext(outputFile)
			base := strings.TrimSuffix(outputFile, ext)
			for _, w := range windows {
				f := fmt.Sprintf("%s_%s%s", base, w.Time.Format("200601021504"), ext)
				logger.Infof("writing %s window %s to %s", op, w.Time.Format(time.RFC3339), f)
				err = radarcal.WriteGridNCF(f, outVar,
					fmt.Sprintf("%s of precipitation over %v", op, d), "mm", w.Grid)
				if err != nil {
					return err
				}
			}
			return nil
		}

		grids := make([]*radarcal.RasterGrid, len(files))
		for i, f := range files {
			if grids[i], err = radarcal.ReadGridNCF(f, varName); err != nil {
				return err
			}
		}
		out, err := radarcal.Aggregate(grids, op, threshold)
		if err != nil {
			return err
		}
		logger.Infof("writing %s of %d grids to %s", op, len(grids), outputFile)
		return radarcal.WriteGridNCF(outputFile, outVar,
			fmt.Sprintf("%s of %d precipitation grids", op, len(grids)), "mm", out)
	},
	DisableAutoGenTag: true,
}
