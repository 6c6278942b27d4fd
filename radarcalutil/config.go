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

package radarcalutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lnashier/viper"

	"github.com/hidromet/radarcal"
)

// CalibratorConfig assembles the calibration options from the
// configuration data.
func CalibratorConfig(cfg *viper.Viper) (radarcal.Config, error) {
	c := radarcal.DefaultConfig()
	c.InterpolationMethod = cfg.GetString("InterpolationMethod")
	mode, err := radarcal.ParseResidualMode(cfg.GetString("ResidualMode"))
	if err != nil {
		return c, err
	}
	c.ResidualMode = mode
	c.IDWPower = cfg.GetFloat64("IDWPower")
	c.NodataThresholdDBZ = cfg.GetFloat64("NodataThresholdDBZ")
	c.OutputNodata = cfg.GetFloat64("OutputNodata")
	c.MaxPlausiblePrecip = cfg.GetFloat64("MaxPlausiblePrecip")
	c.ZR.A = cfg.GetFloat64("ZR.A")
	c.ZR.B = cfg.GetFloat64("ZR.B")
	c.Elevation.RefDifference = cfg.GetFloat64("Elevation.RefDifference")
	c.Elevation.MinFactor = cfg.GetFloat64("Elevation.MinFactor")
	c.AllowNeutralFallback = cfg.GetBool("AllowNeutralFallback")
	if c.ZR.A <= 0 || c.ZR.B <= 0 {
		return c, fmt.Errorf("radarcal: the Z-R coefficients must be positive (have A=%g, B=%g)", c.ZR.A, c.ZR.B)
	}
	return c, nil
}

// checkInputFile makes sure that an input file is specified and
// exists, and expands any environment variables in its path.
func checkInputFile(f, name string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("you need to specify the %s configuration variable (for example: %s=\"input.nc\")", name, name)
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(f); err != nil {
		return f, fmt.Errorf("radarcal: the %s file doesn't exist: %v", name, err)
	}
	return f, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("radarcal: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// expandGlobs expands environment variables and shell glob patterns
// in a list of input paths, keeping the expansion order stable.
func expandGlobs(patterns []string) ([]string, error) {
	patterns = expandStringSlice(patterns)
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("radarcal: invalid input pattern %q: %v", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("radarcal: input pattern %q matched no files", p)
		}
		files = append(files, matches...)
	}
	return files, nil
}

// checkInterval parses an aggregation interval, requiring it to be
// positive.
func checkInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("radarcal: invalid AggInterval: %v", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("radarcal: AggInterval must be positive (have %v)", d)
	}
	return d, nil
}
