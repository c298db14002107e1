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

// Pdr-dump prints the contents of a PDR file.
//
// The argument is either a PDR file, or a PDF file whose PDR file is
// then read.  With -trace, every field is listed together with its
// offset in the file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"seehuhn.de/go/pdr"
	"seehuhn.de/go/pdr/tools/internal/buildinfo"
)

func main() {
	trace := flag.Bool("trace", false, "show the offset and value of every field")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: pdr-dump [-trace] file.pdr|file.pdf")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.Version("pdr-dump"))
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	err := dump(os.Stdout, flag.Arg(0), *trace)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func dump(w io.Writer, fname string, trace bool) error {
	if strings.HasSuffix(strings.ToLower(fname), ".pdf") {
		fname = pdr.SidecarPath(fname)
	}
	data, err := os.ReadFile(fname)
	if err != nil {
		return err
	}

	opt := &pdr.DecodeOptions{}
	if trace {
		opt.Trace = w
	}
	f, err := pdr.Decode(data, opt)
	var badMagic *pdr.BadMagicError
	if errors.As(err, &badMagic) {
		return err
	}
	if trace {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "last page: %d\n", f.LastPage+1)
	fmt.Fprintf(w, "sentinel: %08x\n", f.Sentinel)

	fmt.Fprintf(w, "\n%d bookmarks\n", len(f.Bookmarks))
	for i, b := range f.Bookmarks {
		fmt.Fprintf(w, "%4d  page %d\n", i, b.Page+1)
	}

	fmt.Fprintf(w, "\n%d markings\n", len(f.Markings))
	for i, m := range f.Markings {
		fmt.Fprintf(w, "%4d  page %d  x %.4f..%.4f  y %.4f..%.4f", i, m.Page+1,
			m.LeftX, m.RightX, m.LowerY, m.UpperY)
		if m.EndPage != m.Page {
			fmt.Fprintf(w, "  (ends on page %d)", m.EndPage+1)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\n%d comments\n", len(f.Comments))
	for i, c := range f.Comments {
		fmt.Fprintf(w, "%4d  page %d  at (%.4f, %.4f)  %q\n", i, c.Page+1, c.X, c.Y, c.Text)
	}

	if len(f.Warnings) > 0 {
		fmt.Fprintf(w, "\n%d warnings\n", len(f.Warnings))
		for _, warn := range f.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}

	// A truncated file is reported after the records which could be read.
	return err
}
