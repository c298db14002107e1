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
	"fmt"
	"os"
	"unicode/utf8"
)

// SidecarPath returns the name of the PDR file which belongs to the
// document at pdfPath.  The last character of the path is replaced by "r",
// so that "book.pdf" maps to "book.pdr".
func SidecarPath(pdfPath string) string {
	_, n := utf8.DecodeLastRuneInString(pdfPath)
	if n == 0 {
		return ""
	}
	return pdfPath[:len(pdfPath)-n] + "r"
}

// ReadSidecar reads and decodes the PDR file which belongs to the document
// at pdfPath.
//
// If the PDR file does not exist or cannot be read, an empty File is
// returned, together with an error wrapping [ErrNoSidecar].  Other errors
// are the same as for [Decode].
func ReadSidecar(pdfPath string, opt *DecodeOptions) (*File, error) {
	fname := SidecarPath(pdfPath)
	data, err := os.ReadFile(fname)
	if err != nil {
		return &File{}, fmt.Errorf("%w: %w", ErrNoSidecar, err)
	}
	return Decode(data, opt)
}
