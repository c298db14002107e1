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
	"io"

	"seehuhn.de/go/pdr/parser"
)

// Magic is the value of the first four bytes of every PDR file.
const Magic uint32 = 0xDEADCABB

// Minimal encoded sizes of the records, used to bound preallocation.
const (
	minBookmarkSize = 1 + 4 + 2
	minLocationSize = 1 + 4 + 2 + 2 + 4 + 8 + 8
	minMarkingSize  = 2*minLocationSize + 2
	minCommentSize  = 1 + 4 + 2 + 8 + 8 + 2 + 2
)

// File is the decoded contents of a PDR file.
type File struct {
	// LastPage is the page which was open when the document was last
	// closed on the device.
	LastPage int

	Bookmarks []*Bookmark
	Markings  []*Marking
	Comments  []*Comment

	// Sentinel is the value of the last field in the file.
	Sentinel uint32

	Warnings []Warning
}

// Annotations returns all records in placement order: bookmarks first,
// then markings, then comments.  Comments which have been merged into a
// marking are omitted.
func (f *File) Annotations() []Annotation {
	merged := make(map[*Comment]bool)
	for _, m := range f.Markings {
		if m.comment != nil {
			merged[m.comment] = true
		}
	}

	res := make([]Annotation, 0, len(f.Bookmarks)+len(f.Markings)+len(f.Comments))
	for _, b := range f.Bookmarks {
		res = append(res, b)
	}
	for _, m := range f.Markings {
		res = append(res, m)
	}
	for _, c := range f.Comments {
		if !merged[c] {
			res = append(res, c)
		}
	}
	return res
}

// IsEmpty reports whether the file contains no records.
func (f *File) IsEmpty() bool {
	return len(f.Bookmarks) == 0 && len(f.Markings) == 0 && len(f.Comments) == 0
}

// DecodeOptions can be used to control the decoding of PDR files.
type DecodeOptions struct {
	// Styles gives the color and opacity for each kind of record.
	// If this is nil, [DefaultStyles] is used.
	Styles *Styles

	// Trace, if not nil, receives a line of text for every field read
	// from the file.
	Trace io.Writer
}

// Decode reads the records from the contents of a PDR file.
//
// The returned File is never nil.  If the data do not start with [Magic],
// a [*BadMagicError] is returned together with an empty File.  If the data
// end prematurely, a [*TruncatedError] is returned together with all
// records which were decoded completely.
func Decode(data []byte, opt *DecodeOptions) (*File, error) {
	if opt == nil {
		opt = &DecodeOptions{}
	}
	d := &decoder{
		p:     parser.New(data),
		file:  &File{},
		trace: opt.Trace,
	}
	if opt.Styles != nil {
		d.styles = *opt.Styles
	} else {
		d.styles = DefaultStyles()
	}

	err := d.decode()
	return d.file, err
}

type decoder struct {
	p      *parser.Parser
	file   *File
	styles Styles
	trace  io.Writer

	section string
	record  int
}

func (d *decoder) decode() error {
	d.enter("header")
	magic, err := d.readUint32("magic")
	if err != nil {
		if got, ok := d.partialMagic(); !ok {
			return &BadMagicError{Got: got}
		}
		return d.truncated(err)
	}
	if magic != Magic {
		return &BadMagicError{Got: magic}
	}
	if err := d.skip(1, "reserved"); err != nil {
		return d.truncated(err)
	}
	lastPage, err := d.readInt32("last page")
	if err != nil {
		return d.truncated(err)
	}
	d.file.LastPage = int(lastPage)

	if err := d.readBookmarks(); err != nil {
		return err
	}

	d.enter("padding")
	if err := d.skip(20, "reserved"); err != nil {
		return d.truncated(err)
	}

	if err := d.readMarkings(); err != nil {
		return err
	}
	if err := d.readComments(); err != nil {
		return err
	}

	d.enter("trailer")
	sentinel, err := d.readUint32("sentinel")
	if err != nil {
		return d.truncated(err)
	}
	d.file.Sentinel = sentinel

	if n := d.p.Remaining(); n > 0 {
		d.tracef(d.p.Pos(), "%d bytes of unused data", n)
	}
	return nil
}

func (d *decoder) readBookmarks() error {
	d.enter("bookmarks")
	n, err := d.readUint32("count")
	if err != nil {
		return d.truncated(err)
	}
	d.file.Bookmarks = make([]*Bookmark, 0, d.capacity(n, minBookmarkSize))
	for i := range int(n) {
		d.record = i
		if err := d.skip(1, "reserved"); err != nil {
			return d.truncated(err)
		}
		page, err := d.readInt32("page")
		if err != nil {
			return d.truncated(err)
		}
		if _, err := d.readText("page label"); err != nil {
			return d.truncated(err)
		}

		d.checkPage(KindBookmark, i, "Page", page)
		d.file.Bookmarks = append(d.file.Bookmarks, NewBookmark(int(page), d.styles.Bookmark))
	}
	return nil
}

// location is one end of a highlighted span.
type location struct {
	page int32
	x, y float64
}

func (d *decoder) readLocation() (*location, error) {
	if err := d.skip(1, "reserved"); err != nil {
		return nil, err
	}
	page, err := d.readInt32("page")
	if err != nil {
		return nil, err
	}
	if _, err := d.readText("page label"); err != nil {
		return nil, err
	}
	if _, err := d.readText("location"); err != nil {
		return nil, err
	}
	if _, err := d.readFloat32("unknown"); err != nil {
		return nil, err
	}
	x, err := d.readFloat64("x")
	if err != nil {
		return nil, err
	}
	y, err := d.readFloat64("y")
	if err != nil {
		return nil, err
	}
	return &location{page: page, x: x, y: y}, nil
}

func (d *decoder) readMarkings() error {
	d.enter("markings")
	n, err := d.readUint32("count")
	if err != nil {
		return d.truncated(err)
	}
	d.file.Markings = make([]*Marking, 0, d.capacity(n, minMarkingSize))
	for i := range int(n) {
		d.record = i
		start, err := d.readLocation()
		if err != nil {
			return d.truncated(err)
		}
		end, err := d.readLocation()
		if err != nil {
			return d.truncated(err)
		}
		if err := d.skip(2, "reserved"); err != nil {
			return d.truncated(err)
		}

		d.checkPage(KindMarking, i, "Page", start.page)
		d.checkPage(KindMarking, i, "EndPage", end.page)
		d.checkFactor(KindMarking, i, "LeftX", start.x)
		d.checkFactor(KindMarking, i, "LowerY", start.y)
		d.checkFactor(KindMarking, i, "RightX", end.x)
		d.checkFactor(KindMarking, i, "UpperY", end.y)
		m := NewMarking(int(start.page), start.x, start.y,
			int(end.page), end.x, end.y, d.styles.Marking)
		d.file.Markings = append(d.file.Markings, m)
	}
	return nil
}

func (d *decoder) readComments() error {
	d.enter("comments")
	n, err := d.readUint32("count")
	if err != nil {
		return d.truncated(err)
	}
	d.file.Comments = make([]*Comment, 0, d.capacity(n, minCommentSize))
	for i := range int(n) {
		d.record = i
		if err := d.skip(1, "reserved"); err != nil {
			return d.truncated(err)
		}
		page, err := d.readInt32("page")
		if err != nil {
			return d.truncated(err)
		}
		if _, err := d.readText("page label"); err != nil {
			return d.truncated(err)
		}
		x, err := d.readFloat64("x")
		if err != nil {
			return d.truncated(err)
		}
		y, err := d.readFloat64("y")
		if err != nil {
			return d.truncated(err)
		}
		if _, err := d.readText("location"); err != nil {
			return d.truncated(err)
		}
		text, err := d.readText("text")
		if err != nil {
			return d.truncated(err)
		}

		d.checkPage(KindComment, i, "Page", page)
		d.checkFactor(KindComment, i, "X", x)
		d.checkFactor(KindComment, i, "Y", y)
		c := NewComment(int(page), x, y, text, d.styles.Comment)
		d.file.Comments = append(d.file.Comments, c)
	}
	return nil
}

// partialMagic checks a buffer shorter than the magic number against
// the corresponding prefix of [Magic].  The bytes seen are returned
// left-aligned.
func (d *decoder) partialMagic() (uint32, bool) {
	prefix, _ := d.p.ReadBytes(d.p.Remaining())
	var got uint32
	for i, c := range prefix {
		got |= uint32(c) << (24 - 8*i)
	}
	mask := ^uint32(0) << (32 - 8*len(prefix))
	return got, got == Magic&mask
}

// enter starts a new section of the file.
func (d *decoder) enter(section string) {
	d.section = section
	d.record = -1
	d.tracef(d.p.Pos(), "[%s]", section)
}

func (d *decoder) truncated(err error) error {
	return &TruncatedError{
		Section: d.section,
		Record:  d.record,
		Err:     err,
	}
}

// capacity limits the preallocation for n records to what the remaining
// data can hold.
func (d *decoder) capacity(n uint32, minSize int) int {
	return int(min(uint64(n), uint64(d.p.Remaining()/minSize)))
}

func (d *decoder) checkFactor(k Kind, idx int, field string, v float64) {
	if v >= 0 && v <= 1 {
		return
	}
	d.file.Warnings = append(d.file.Warnings, Warning{
		Kind:   OutOfRangeFactor,
		Record: k,
		Index:  idx,
		Field:  field,
		Value:  v,
	})
}

func (d *decoder) checkPage(k Kind, idx int, field string, page int32) {
	if page >= 0 {
		return
	}
	d.file.Warnings = append(d.file.Warnings, Warning{
		Kind:   NegativePage,
		Record: k,
		Index:  idx,
		Field:  field,
		Value:  float64(page),
	})
}

func (d *decoder) skip(n int, name string) error {
	pos := d.p.Pos()
	data, err := d.p.ReadBytes(n)
	if err != nil {
		return err
	}
	d.tracef(pos, "%-12s % x", name, data)
	return nil
}

func (d *decoder) readUint32(name string) (uint32, error) {
	pos := d.p.Pos()
	v, err := d.p.ReadUint32()
	if err != nil {
		return 0, err
	}
	d.tracef(pos, "%-12s %d (%08x)", name, v, v)
	return v, nil
}

func (d *decoder) readInt32(name string) (int32, error) {
	pos := d.p.Pos()
	v, err := d.p.ReadInt32()
	if err != nil {
		return 0, err
	}
	d.tracef(pos, "%-12s %d", name, v)
	return v, nil
}

func (d *decoder) readFloat32(name string) (float32, error) {
	pos := d.p.Pos()
	v, err := d.p.ReadFloat32()
	if err != nil {
		return 0, err
	}
	d.tracef(pos, "%-12s %g", name, v)
	return v, nil
}

func (d *decoder) readFloat64(name string) (float64, error) {
	pos := d.p.Pos()
	v, err := d.p.ReadFloat64()
	if err != nil {
		return 0, err
	}
	d.tracef(pos, "%-12s %g", name, v)
	return v, nil
}

func (d *decoder) readText(name string) (string, error) {
	pos := d.p.Pos()
	raw, err := d.p.ReadPascalString()
	if err != nil {
		return "", err
	}
	s := decodeText(raw)
	d.tracef(pos, "%-12s %q", name, s)
	return s, nil
}

func (d *decoder) tracef(pos int, format string, args ...any) {
	if d.trace == nil {
		return
	}
	prefix := fmt.Sprintf("%06x ", pos)
	if d.record >= 0 {
		prefix += fmt.Sprintf("%4d ", d.record)
	} else {
		prefix += "     "
	}
	fmt.Fprintf(d.trace, prefix+format+"\n", args...)
}
