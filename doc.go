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

// Package pdr reads the annotation files which e-readers store next to PDF
// documents.
//
// A PDR file lives next to the document it belongs to, with the last
// letter of the file name changed from "f" to "r".  It holds three lists
// of records: bookmarks, markings (highlighted regions) and comments.
// Positions are stored as fractions of the page width and height,
// measured from the top-left corner of the page.
//
// The usual way to read the records for a document is
//
//	doc, err := pdr.ReadSidecar("book.pdf", nil)
//	if errors.Is(err, pdr.ErrNoSidecar) {
//	    ... the document has no annotations ...
//	} else if err != nil {
//	    ... doc may still hold the records read before the error ...
//	}
//	for _, a := range doc.Annotations() {
//	    ...
//	}
//
// The records can be converted into page coordinates using
// package [seehuhn.de/go/pdr/place], and added to a PDF file using
// package [seehuhn.de/go/pdr/annotate].
//
// All integers and floating point numbers in a PDR file are stored in
// big-endian byte order.  The layout is as follows:
//
//	header     magic (4), reserved (1), last page (4)
//	bookmarks  count (4), then per record:
//	           reserved (1), page (4), label (2+n)
//	padding    reserved (20)
//	markings   count (4), then per record two locations and reserved (2);
//	           each location is reserved (1), page (4), label (2+n),
//	           location tag (2+n), unknown float32 (4), x (8), y (8)
//	comments   count (4), then per record:
//	           reserved (1), page (4), label (2+n), x (8), y (8),
//	           location tag (2+n), text (2+n)
//	trailer    sentinel (4)
//
// Text fields are prefixed with their length as a 16 bit unsigned integer.
package pdr
