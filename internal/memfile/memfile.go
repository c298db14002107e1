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

// Package memfile builds small PDF files in memory, for use in tests.
package memfile

import (
	"bytes"
	"time"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/outline"
	"seehuhn.de/go/xmp"
)

// NewPDFWriter returns a PDF writer which stores the file in memory.
// The file contents are available in the returned buffer once the writer
// has been closed.
func NewPDFWriter(v pdf.Version, opt *pdf.WriterOptions) (*pdf.Writer, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	w, err := pdf.NewWriter(buf, v, opt)
	if err != nil {
		panic(err)
	}
	return w, buf
}

// Open reads a PDF file from memory.
func Open(data []byte, opt *pdf.ReaderOptions) (*pdf.Reader, error) {
	return pdf.NewReader(bytes.NewReader(data), opt)
}

// Page describes one page of a test document.
type Page struct {
	MediaBox pdf.Rectangle

	// CropBox and TrimBox are omitted from the page dictionary if nil.
	CropBox *pdf.Rectangle
	TrimBox *pdf.Rectangle

	// Annots is the number of pre-existing square annotations on the page.
	Annots int
}

// Document describes a test document.
type Document struct {
	Version pdf.Version
	Pages   []Page

	// Outline, if set, is called with the references of the pages to
	// construct the document outline.
	Outline func(pages []pdf.Reference) *outline.Outline

	// Title is stored in the document information dictionary.
	Title string

	// XMP, if non-zero, requests an XMP metadata stream with the given
	// modification time.
	XMP time.Time

	WriterOptions *pdf.WriterOptions
}

// Letter is the size of a US letter page.
var Letter = pdf.Rectangle{URx: 612, URy: 792}

// Bytes writes the document and returns the file contents.
func (d *Document) Bytes() ([]byte, error) {
	v := d.Version
	if v == 0 {
		v = pdf.V1_7
	}
	w, buf := NewPDFWriter(v, d.WriterOptions)
	rm := pdf.NewResourceManager(w)

	treeRef := w.Alloc()
	pageRefs := make([]pdf.Reference, len(d.Pages))
	for i := range pageRefs {
		pageRefs[i] = w.Alloc()
	}

	kids := make(pdf.Array, len(pageRefs))
	for i, p := range d.Pages {
		kids[i] = pageRefs[i]

		box := p.MediaBox
		dict := pdf.Dict{
			"Type":      pdf.Name("Page"),
			"Parent":    treeRef,
			"MediaBox":  &box,
			"Resources": pdf.Dict{},
		}
		if p.CropBox != nil {
			dict["CropBox"] = p.CropBox
		}
		if p.TrimBox != nil {
			dict["TrimBox"] = p.TrimBox
		}

		var annots pdf.Array
		for j := range p.Annots {
			ref := w.Alloc()
			x := float64(10 + 20*j)
			err := w.Put(ref, pdf.Dict{
				"Type":    pdf.Name("Annot"),
				"Subtype": pdf.Name("Square"),
				"Rect":    &pdf.Rectangle{LLx: x, LLy: 10, URx: x + 10, URy: 20},
				"P":       pageRefs[i],
			})
			if err != nil {
				return nil, err
			}
			annots = append(annots, ref)
		}
		if annots != nil {
			dict["Annots"] = annots
		}

		err := w.Put(pageRefs[i], dict)
		if err != nil {
			return nil, err
		}
	}
	err := w.Put(treeRef, pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  kids,
		"Count": pdf.Integer(len(kids)),
	})
	if err != nil {
		return nil, err
	}
	w.GetMeta().Catalog.Pages = treeRef

	if d.Outline != nil {
		err := d.Outline(pageRefs).Write(rm)
		if err != nil {
			return nil, err
		}
	}

	if d.Title != "" {
		w.GetMeta().Info = &pdf.Info{Title: pdf.TextString(d.Title)}
	}

	if !d.XMP.IsZero() {
		ref, err := writeXMP(w, d.XMP)
		if err != nil {
			return nil, err
		}
		w.GetMeta().Catalog.Metadata = ref
	}

	err = rm.Close()
	if err != nil {
		return nil, err
	}
	err = w.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXMP(w *pdf.Writer, modTime time.Time) (pdf.Reference, error) {
	basic := &xmp.Basic{}
	basic.CreateDate = xmp.NewDate(modTime)
	basic.ModifyDate = xmp.NewDate(modTime)
	packet := xmp.NewPacket()
	packet.Set(basic)

	ref := w.Alloc()
	dict := pdf.Dict{
		"Type":    pdf.Name("Metadata"),
		"Subtype": pdf.Name("XML"),
	}
	stm, err := w.OpenStream(ref, dict)
	if err != nil {
		return 0, err
	}
	err = packet.Write(stm, nil)
	if err != nil {
		return 0, err
	}
	err = stm.Close()
	if err != nil {
		return 0, err
	}
	return ref, nil
}
