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

package pdr

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNoSidecar is returned by [ReadSidecar] if the PDR file does not exist
// or cannot be read.  A document without a PDR file has no annotations.
var ErrNoSidecar = errors.New("no PDR file")

// BadMagicError is returned if a file does not start with the PDR magic
// number.  Nothing is decoded from such a file.
type BadMagicError struct {
	Got uint32
}

func (err *BadMagicError) Error() string {
	return fmt.Sprintf("not a PDR file: bad magic %08x (expected %08x)", err.Got, Magic)
}

// TruncatedError is returned if the data end in the middle of the file
// structure.  Records decoded before the end of data are still returned.
type TruncatedError struct {
	// Section is the part of the file which was being read,
	// e.g. "header" or "markings".
	Section string

	// Record is the index of the record within the section, or -1 if the
	// error occurred outside of a record.
	Record int

	// Err is the underlying read error.
	Err error
}

func (err *TruncatedError) Error() string {
	where := err.Section
	if err.Record >= 0 {
		where += " record " + strconv.Itoa(err.Record)
	}
	return "truncated PDR file (" + where + "): " + err.Err.Error()
}

func (err *TruncatedError) Unwrap() error {
	return err.Err
}

// WarningKind describes the type of a [Warning].
type WarningKind int

// These are the conditions reported as warnings.
const (
	// OutOfRangeFactor indicates a position factor outside [0, 1].
	OutOfRangeFactor WarningKind = iota + 1

	// NegativePage indicates a negative page index.  Records with
	// negative page indices are never placed.
	NegativePage
)

func (k WarningKind) String() string {
	switch k {
	case OutOfRangeFactor:
		return "factor out of range"
	case NegativePage:
		return "negative page"
	default:
		return "pdr.WarningKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Warning describes a suspicious value.  Warnings never stop decoding,
// and the value is used unmodified.
type Warning struct {
	Kind WarningKind

	// Record is the type and Index the position of the affected record.
	Record Kind
	Index  int

	// Field names the affected field, e.g. "LowerY".
	Field string
	Value float64
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %d: %s: %s=%g", w.Record, w.Index, w.Kind, w.Field, w.Value)
}
