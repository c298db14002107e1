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

package annotate

import (
	"fmt"
	"math"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/annotation"
	"seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/pdr"
	"seehuhn.de/go/pdr/place"
)

// IconSize is the width and height of the rectangle used for text notes.
// The upper left corner of the rectangle is at the position of the
// comment.
const IconSize = 20

// pageSink turns placements for a single page into PDF annotations.
type pageSink struct {
	rm   *pdf.ResourceManager
	page pdf.Reference

	annots    pdf.Array
	bookmarks []bookmark
}

type encoder interface {
	Encode(rm *pdf.ResourceManager) (pdf.Native, error)
}

// Place implements the [place.Sink] interface.
func (s *pageSink) Place(p *place.Placement) error {
	var a encoder
	switch p.Kind {
	case place.Bookmark:
		s.bookmarks = append(s.bookmarks, bookmark{
			page:  p.Page,
			ref:   s.page,
			color: p.Style.Color,
		})
		return nil
	case place.Highlight:
		a = &annotation.TextMarkup{
			Common:     common(p, p.Rect),
			Type:       annotation.TextMarkupTypeHighlight,
			QuadPoints: p.Quad[:],
		}
	case place.TextNote:
		box := rect.Rect{
			LLx: p.Point.X,
			LLy: p.Point.Y - IconSize,
			URx: p.Point.X + IconSize,
			URy: p.Point.Y,
		}
		a = &annotation.Text{
			Common: common(p, box),
			Icon:   annotation.TextIconComment,
		}
	default:
		return fmt.Errorf("unsupported placement %s", p.Kind)
	}

	obj, err := a.Encode(s.rm)
	if err != nil {
		return err
	}
	ref := s.rm.Out.Alloc()
	err = s.rm.Out.Put(ref, obj)
	if err != nil {
		return err
	}
	s.annots = append(s.annots, ref)
	return nil
}

// noBoxSink is used for pages whose size is unknown.  Only bookmarks can
// be placed on such pages.
type noBoxSink struct {
	*pageSink
	err error
}

// Place implements the [place.Sink] interface.
func (s *noBoxSink) Place(p *place.Placement) error {
	if p.Kind != place.Bookmark {
		return s.err
	}
	return s.pageSink.Place(p)
}

func common(p *place.Placement, box rect.Rect) annotation.Common {
	t := 1 - clampOpacity(p.Style.Opacity)
	return annotation.Common{
		Rect: pdf.Rectangle{
			LLx: box.LLx,
			LLy: box.LLy,
			URx: box.URx,
			URy: box.URy,
		},
		Contents:                p.Text,
		Color:                   deviceColor(p.Style.Color),
		Flags:                   annotation.FlagPrint,
		StrokingTransparency:    t,
		NonStrokingTransparency: t,
	}
}

// clampOpacity maps an opacity into the range [0, 1] required by PDF.
// NaN is treated as fully opaque.
func clampOpacity(x float64) float64 {
	if math.IsNaN(x) {
		return 1
	}
	return min(max(x, 0), 1)
}

func deviceColor(c pdr.Color) color.Color {
	r, g, b := c.RGB()
	return color.DeviceRGB{r, g, b}
}
