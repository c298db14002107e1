// seehuhn.de/go/pdr - convert e-reader PDR annotations into PDF annotations
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package buildinfo describes the version of the running command.
package buildinfo

import (
	"runtime/debug"
)

// Version returns a version string for the -version flag of a command,
// e.g. "pdr-annotate (seehuhn.de/go/pdr v0.1.0)".  For development
// builds the VCS revision is shown instead of the module version.
func Version(command string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return command
	}

	v := info.Main.Version
	if v == "" || v == "(devel)" {
		v = revision(info.Settings)
	}
	if v == "" {
		return command
	}
	return command + " (" + info.Main.Path + " " + v + ")"
}

// revision returns the abbreviated VCS revision recorded by the go
// command, or the empty string.
func revision(settings []debug.BuildSetting) string {
	var rev string
	modified := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if rev != "" && modified {
		rev += "+dirty"
	}
	return rev
}
