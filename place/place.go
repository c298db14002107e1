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

// Package place converts PDR records into positions on a PDF page.
//
// PDR files store positions as fractions of the page width and height,
// with the vertical fraction measured from the top edge of the page.  The
// functions in this package map these fractions into the bottom-up
// coordinate system of a page box.  Values outside the range [0, 1] are
// mapped unchanged, so that they may end up outside the page box.
package place

import (
	"strconv"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/pdr"
)

// ZeroHeight is added to the lower vertical fraction of a marking whose
// upper and lower fractions coincide.  This gives single-line markings a
// visible height.
const ZeroHeight = 0.025

// Kind is the type of PDF annotation used to show a record.
type Kind int

// These are the supported kinds of placements.
const (
	// Bookmark is shown as an entry in the document outline.
	Bookmark Kind = iota + 1

	// Highlight is shown as a highlight annotation.
	Highlight

	// TextNote is shown as a text annotation.
	TextNote
)

func (k Kind) String() string {
	switch k {
	case Bookmark:
		return "bookmark"
	case Highlight:
		return "highlight"
	case TextNote:
		return "text note"
	default:
		return "place.Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Placement describes where and how a record is shown on a page.
type Placement struct {
	// Page is the zero-based index of the target page.
	Page int

	Kind Kind

	// Point is the anchor of a text note.
	Point vec.Vec2

	// Rect is the bounding box of a highlight, with LLx <= URx and
	// LLy <= URy.
	Rect rect.Rect

	// Quad gives the corners of a highlight in the order upper-left,
	// upper-right, lower-left, lower-right.
	Quad [4]vec.Vec2

	Style pdr.Style

	// Text is the body of a text note, or the text of the comment merged
	// into a highlight.
	Text string

	// Source is the record the placement was computed from.
	Source pdr.Annotation
}

// Point maps a pair of fractions to a point inside the page box.
func Point(box rect.Rect, xFactor, yFactor float64) vec.Vec2 {
	return vec.Vec2{
		X: box.LLx + xFactor*(box.URx-box.LLx),
		Y: box.URy - yFactor*(box.URy-box.LLy),
	}
}

// Quad maps the area of a marking into the page box.
//
// The first return value is the bounding box of the marked area.  The
// second gives the corners of the area in the order expected for the
// QuadPoints of a PDF highlight annotation.  The corners are not
// normalized, so that the quad keeps the orientation given by the
// marking.
func Quad(box rect.Rect, m *pdr.Marking) (rect.Rect, [4]vec.Vec2) {
	lower := m.LowerY
	if m.UpperY-m.LowerY == 0 {
		lower += ZeroHeight
	}

	ll := Point(box, m.LeftX, lower)
	ur := Point(box, m.RightX, m.UpperY)

	quad := [4]vec.Vec2{
		{X: ll.X, Y: ur.Y},
		{X: ur.X, Y: ur.Y},
		{X: ll.X, Y: ll.Y},
		{X: ur.X, Y: ll.Y},
	}

	bbox := rect.Rect{
		LLx: min(ll.X, ur.X),
		LLy: min(ll.Y, ur.Y),
		URx: max(ll.X, ur.X),
		URy: max(ll.Y, ur.Y),
	}
	return bbox, quad
}

// Resolve computes the placement of a record on a page with the given box.
func Resolve(a pdr.Annotation, box rect.Rect) *Placement {
	p := &Placement{
		Page:   a.PageIndex(),
		Style:  a.Style(),
		Source: a,
	}

	switch a := a.(type) {
	case *pdr.Bookmark:
		p.Kind = Bookmark
	case *pdr.Marking:
		p.Kind = Highlight
		p.Rect, p.Quad = Quad(box, a)
		if c := a.Comment(); c != nil {
			p.Text = c.Text
		}
	case *pdr.Comment:
		p.Kind = TextNote
		p.Point = Point(box, a.X, a.Y)
		p.Text = a.Text
	default:
		panic("unexpected annotation type")
	}
	return p
}
