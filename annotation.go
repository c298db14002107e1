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

// Annotation is one record from a PDR file.
//
// The concrete type is one of [*Bookmark], [*Marking] or [*Comment].
// Code outside this package cannot add new implementations.
type Annotation interface {
	// PageIndex returns the zero-based number of the page the annotation
	// is anchored to.
	PageIndex() int

	// Kind returns the record type.
	Kind() Kind

	// Style returns the display color and opacity.
	Style() Style

	isAnnotation()
}

var (
	_ Annotation = (*Bookmark)(nil)
	_ Annotation = (*Marking)(nil)
	_ Annotation = (*Comment)(nil)
)

// Kind identifies the type of an annotation record.
type Kind int

// These are the record types found in PDR files.
const (
	KindBookmark Kind = iota + 1
	KindMarking
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindBookmark:
		return "bookmark"
	case KindMarking:
		return "marking"
	case KindComment:
		return "comment"
	default:
		return "pdr.Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Bookmark marks a page.  There is no data apart from the page number.
type Bookmark struct {
	Page  int
	style Style
}

// PageIndex implements the [Annotation] interface.
func (b *Bookmark) PageIndex() int { return b.Page }

// Kind returns [KindBookmark].
func (b *Bookmark) Kind() Kind { return KindBookmark }

// Style implements the [Annotation] interface.
func (b *Bookmark) Style() Style { return b.style }

func (b *Bookmark) isAnnotation() {}

// Marking is a highlighted region on a page.
//
// The position fields are fractions of the page width and height, measured
// from the left and from the top edge of the page.  LeftX is not guaranteed
// to be smaller than RightX.
type Marking struct {
	Page int

	// EndPage is the page where the highlighted span ends.  Only Page is
	// used for placement.
	EndPage int

	LeftX, LowerY  float64
	RightX, UpperY float64

	style   Style
	comment *Comment
}

// PageIndex implements the [Annotation] interface.
func (m *Marking) PageIndex() int { return m.Page }

// Kind returns [KindMarking].
func (m *Marking) Kind() Kind { return KindMarking }

// Style implements the [Annotation] interface.
func (m *Marking) Style() Style { return m.style }

func (m *Marking) isAnnotation() {}

// Comment returns the comment associated with the marking, or nil.
func (m *Marking) Comment() *Comment {
	return m.comment
}

// WithComment returns a copy of m which owns the comment c.
func (m *Marking) WithComment(c *Comment) *Marking {
	res := *m
	res.comment = c
	return &res
}

// Comment is a text note attached to a point on a page.
//
// X and Y are fractions of the page width and height, measured from the
// left and from the top edge of the page.
type Comment struct {
	Page int
	X, Y float64
	Text string

	style Style
}

// PageIndex implements the [Annotation] interface.
func (c *Comment) PageIndex() int { return c.Page }

// Kind returns [KindComment].
func (c *Comment) Kind() Kind { return KindComment }

// Style implements the [Annotation] interface.
func (c *Comment) Style() Style { return c.style }

func (c *Comment) isAnnotation() {}

// NewBookmark creates a bookmark record.
func NewBookmark(page int, s Style) *Bookmark {
	return &Bookmark{Page: page, style: s}
}

// NewMarking creates a marking record.  The marking starts on page at
// (x1, y1) and ends on endPage at (x2, y2).
func NewMarking(page int, x1, y1 float64, endPage int, x2, y2 float64, s Style) *Marking {
	return &Marking{
		Page:    page,
		EndPage: endPage,
		LeftX:   x1,
		LowerY:  y1,
		RightX:  x2,
		UpperY:  y2,
		style:   s,
	}
}

// NewComment creates a comment record.
func NewComment(page int, x, y float64, text string, s Style) *Comment {
	return &Comment{Page: page, X: x, Y: y, Text: text, style: s}
}

// Color is an RGB color with 8 bits per channel.
type Color struct {
	R, G, B uint8
}

// Blue is the color used when no color is configured.
var Blue = Color{0, 0, 255}

// ParseColor parses a color of the form "#RRGGBB".
func ParseColor(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, fmt.Errorf("invalid color %q: expected #RRGGBB", s)
	}
	var c [3]uint8
	for i := range c {
		v, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, errors.Unwrap(err))
		}
		c[i] = uint8(v)
	}
	return Color{c[0], c[1], c[2]}, nil
}

// String returns the color in the form "#RRGGBB".
func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// RGB returns the color components as values between 0 and 1.
func (c Color) RGB() (r, g, b float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

// MarshalText implements the [encoding.TextMarshaler] interface.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (c *Color) UnmarshalText(text []byte) error {
	col, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = col
	return nil
}

// Style describes how an annotation is displayed.
type Style struct {
	Color Color

	// Opacity is the constant opacity, between 0 (invisible) and 1 (opaque).
	Opacity float64
}

// DefaultStyle is used for all kinds of annotations, unless configured
// otherwise.
var DefaultStyle = Style{Color: Blue, Opacity: 0.2}

// Styles holds one style per kind of annotation.
type Styles struct {
	Bookmark Style
	Marking  Style
	Comment  Style
}

// DefaultStyles returns the built-in styles.
func DefaultStyles() Styles {
	return Styles{
		Bookmark: DefaultStyle,
		Marking:  DefaultStyle,
		Comment:  DefaultStyle,
	}
}

// For returns the style for annotations of kind k.
func (s *Styles) For(k Kind) Style {
	switch k {
	case KindBookmark:
		return s.Bookmark
	case KindMarking:
		return s.Marking
	case KindComment:
		return s.Comment
	default:
		return DefaultStyle
	}
}
