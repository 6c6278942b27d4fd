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

// Command radarcal is a command-line interface for calibrating
// weather-radar precipitation with ground-station observations.
package main

import (
	"fmt"
	"os"

	"github.com/hidromet/radarcal/radarcalutil"
)

func main() {
	if err := radarcalutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
