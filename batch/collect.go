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

// Package batch finds the documents to convert and runs the conversions
// on a pool of worker goroutines.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"seehuhn.de/go/pdr"
)

// Task describes the conversion of a single document.
type Task struct {
	// Input is the PDF file to read.  The annotations are read from the
	// PDR file next to it, see [pdr.SidecarPath].
	Input string

	// Output is the file the annotated document is written to.  This may
	// be the same as Input.
	Output string
}

func (t Task) String() string {
	if t.Output == t.Input {
		return t.Input
	}
	return t.Input + " -> " + t.Output
}

// Errors returned by [Collect].
var (
	ErrNotPDF       = errors.New("input file is not a PDF file")
	ErrNoOutputDir  = errors.New("output for a directory must be an existing directory")
	ErrNotDirectory = errors.New("input is neither a file nor a directory")
)

// Collect returns the conversion tasks for the given input and output
// paths.
//
// If input is a file, its name must end in ".pdf".  An empty output
// means that the input file is overwritten, and if output is an existing
// directory, the result is written to a file with the same base name
// inside this directory.  No task is returned if the PDR file for the
// input does not exist.
//
// If input is a directory, one task is returned for every readable
// ".pdf" file in the directory which has a PDR file.  Subdirectories are
// not searched.  The output must then be empty or an existing directory.
func Collect(input, output string) ([]Task, error) {
	fi, err := os.Stat(input)
	if err != nil {
		return nil, err
	}

	switch {
	case fi.Mode().IsRegular():
		return collectFile(input, output)
	case fi.IsDir():
		return collectDir(input, output)
	default:
		return nil, fmt.Errorf("%s: %w", input, ErrNotDirectory)
	}
}

func collectFile(input, output string) ([]Task, error) {
	if !isPDF(input) {
		return nil, fmt.Errorf("%s: %w", input, ErrNotPDF)
	}
	if err := checkReadable(input); err != nil {
		return nil, err
	}

	if output == "" {
		output = input
	} else if fi, err := os.Stat(output); err == nil && fi.IsDir() {
		output = filepath.Join(output, filepath.Base(input))
	}

	if !hasSidecar(input) {
		return nil, nil
	}
	return []Task{{Input: input, Output: output}}, nil
}

func collectDir(input, output string) ([]Task, error) {
	if output == "" {
		output = input
	} else if fi, err := os.Stat(output); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%s: %w", output, ErrNoOutputDir)
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".pdf") {
			continue
		}
		fname := filepath.Join(input, e.Name())
		if checkReadable(fname) != nil || !hasSidecar(fname) {
			continue
		}
		tasks = append(tasks, Task{
			Input:  fname,
			Output: filepath.Join(output, e.Name()),
		})
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].Input < tasks[j].Input
	})
	return tasks, nil
}

func isPDF(fname string) bool {
	return strings.HasSuffix(strings.ToLower(fname), ".pdf")
}

func checkReadable(fname string) error {
	fd, err := os.Open(fname)
	if err != nil {
		return err
	}
	return fd.Close()
}

func hasSidecar(fname string) bool {
	fi, err := os.Stat(pdr.SidecarPath(fname))
	return err == nil && fi.Mode().IsRegular()
}
