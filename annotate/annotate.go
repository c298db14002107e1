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

// Package annotate adds the records of a PDR file to a PDF document.
//
// Markings become highlight annotations, comments become text
// annotations, and bookmarks become entries in the document outline,
// collected under a top-level item called "Bookmarks".  All other
// content of the document is copied unchanged.
package annotate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/pdr"
	"seehuhn.de/go/pdr/place"
)

// Options control the conversion of a document.
type Options struct {
	// ReadPassword is used to obtain the password for encrypted
	// documents.  See [pdf.ReaderOptions] for details.
	ReadPassword func(ID []byte, try int) string

	// HumanReadable requests output which is easier to inspect in a text
	// editor.
	HumanReadable bool

	// Now returns the modification time recorded in the output.
	// If this is nil, [time.Now] is used.
	Now func() time.Time
}

// Report summarizes the conversion of one document.
type Report struct {
	// Version is the PDF version of the output.
	Version pdf.Version

	// Pages is the number of pages in the document.
	Pages int

	// Results has one entry for every record which was matched with a
	// page, in placement order.
	Results []place.Result

	// Pending lists the records whose page does not exist in the document.
	Pending []pdr.Annotation
}

// Placed returns the number of records added to the document.
func (r *Report) Placed() int {
	n := 0
	for _, res := range r.Results {
		if res.State == place.Placed {
			n++
		}
	}
	return n
}

// Failed returns the results of the records which could not be added.
func (r *Report) Failed() []place.Result {
	var res []place.Result
	for _, x := range r.Results {
		if x.State == place.Failed {
			res = append(res, x)
		}
	}
	return res
}

// Convert reads the PDF file inPath, adds the records from doc and writes
// the result to outPath.  The output is first written to a temporary file
// in the same directory, so that inPath and outPath may be the same.
func Convert(inPath, outPath string, doc *pdr.File, opt *Options) (*Report, error) {
	if opt == nil {
		opt = &Options{}
	}

	ropt := &pdf.ReaderOptions{
		ReadPassword:  opt.ReadPassword,
		ErrorHandling: pdf.ErrorHandlingReport,
	}
	r, err := pdf.Open(inPath, ropt)
	if err != nil {
		return nil, err
	}

	tmpName, rep, err := writeTemp(r, outPath, doc, opt)
	closeErr := r.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if tmpName != "" {
			os.Remove(tmpName)
		}
		return nil, err
	}

	if fi, err := os.Stat(inPath); err == nil {
		os.Chmod(tmpName, fi.Mode().Perm())
	}
	err = os.Rename(tmpName, outPath)
	if err != nil {
		os.Remove(tmpName)
		return nil, err
	}
	return rep, nil
}

func writeTemp(r *pdf.Reader, outPath string, doc *pdr.File, opt *Options) (string, *Report, error) {
	dir, base := filepath.Split(outPath)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return "", nil, err
	}
	tmpName := tmp.Name()

	v := max(pdf.GetVersion(r), pdf.V1_4)
	wopt := &pdf.WriterOptions{
		HumanReadable: opt.HumanReadable,
	}
	w, err := pdf.NewWriter(tmp, v, wopt)
	if err != nil {
		tmp.Close()
		return tmpName, nil, err
	}

	rep, err := Write(w, r, doc, opt)
	if err != nil {
		tmp.Close()
		return tmpName, nil, err
	}
	err = w.Close()
	if err != nil {
		tmp.Close()
		return tmpName, nil, err
	}
	err = tmp.Close()
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return tmpName, nil, err
	}
	return tmpName, rep, nil
}

// Write copies the document from r to w and adds the records from doc.
//
// The output must use PDF version 1.4 or newer.  The caller is
// responsible for closing w.
func Write(w *pdf.Writer, r pdf.Getter, doc *pdr.File, opt *Options) (*Report, error) {
	if opt == nil {
		opt = &Options{}
	}
	now := time.Now
	if opt.Now != nil {
		now = opt.Now
	}

	if err := pdf.CheckVersion(w, "annotation opacity", pdf.V1_4); err != nil {
		return nil, err
	}

	meta := r.GetMeta()
	pageRefs, err := pagetree.FindPages(r)
	if err != nil {
		return nil, fmt.Errorf("reading page tree: %w", err)
	}

	// Pages are written after the new annotations are attached,
	// so they get fresh references in the output.
	c := pdf.NewCopier(w, r)
	newPages := make([]pdf.Reference, len(pageRefs))
	for i, ref := range pageRefs {
		newPages[i] = w.Alloc()
		c.Redirect(ref, newPages[i])
	}

	rm := pdf.NewResourceManager(w)
	rep := &Report{
		Version: pdf.GetVersion(w),
		Pages:   len(pageRefs),
	}

	pass := place.NewPass(doc.Annotations())
	newAnnots := make([]pdf.Array, len(pageRefs))
	var marks []bookmark
	for i := range pageRefs {
		if !pass.HasPending(i) {
			continue
		}
		sink := &pageSink{rm: rm, page: newPages[i]}

		var target place.Sink = sink
		box, err := pageBoxAt(r, i)
		if err != nil {
			// Bookmarks do not depend on the page geometry.
			target = &noBoxSink{pageSink: sink, err: fmt.Errorf("page %d: %w", i+1, err)}
		}
		rep.Results = append(rep.Results, pass.Page(i, box, target)...)
		newAnnots[i] = sink.annots
		marks = append(marks, sink.bookmarks...)
	}
	rep.Pending = pass.Pending()

	ol, err := planOutline(r, w, c, len(marks) > 0)
	if err != nil {
		return nil, err
	}

	var newXMP pdf.Reference
	if ref := meta.Catalog.Metadata; ref != 0 {
		newXMP = w.Alloc()
		c.Redirect(ref, newXMP)
	}

	catalog, err := pdf.CopierCopyStruct(c, meta.Catalog)
	if err != nil {
		return nil, err
	}
	w.GetMeta().Catalog = catalog

	for i, ref := range pageRefs {
		err := writePage(r, w, c, ref, newPages[i], newAnnots[i])
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
	}

	if len(marks) > 0 {
		err = ol.write(rm, r, c, marks)
		if err != nil {
			return nil, fmt.Errorf("outline: %w", err)
		}
	}

	modTime := now()
	info := &pdf.Info{}
	if meta.Info != nil {
		info, err = pdf.CopierCopyStruct(c, meta.Info)
		if err != nil {
			return nil, err
		}
	}
	info.ModDate = pdf.Date(modTime)
	w.GetMeta().Info = info
	w.GetMeta().ID = meta.ID

	if newXMP != 0 {
		err = updateXMP(r, w, c, meta.Catalog.Metadata, newXMP, modTime, opt.HumanReadable)
		if err != nil {
			return nil, fmt.Errorf("XMP metadata: %w", err)
		}
	}

	err = rm.Close()
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// writePage copies a page dictionary and appends the new annotations.
func writePage(r pdf.Getter, w *pdf.Writer, c *pdf.Copier, src, dst pdf.Reference, annots pdf.Array) error {
	dict, err := pdf.GetDict(r, src)
	if err != nil {
		return err
	}

	rest := make(pdf.Dict, len(dict))
	for key, val := range dict {
		if key != "Annots" {
			rest[key] = val
		}
	}
	out, err := c.CopyDict(rest)
	if err != nil {
		return err
	}

	old, err := pdf.GetArray(r, dict["Annots"])
	if err != nil {
		return err
	}
	merged, err := c.CopyArray(old)
	if err != nil {
		return err
	}
	merged = append(merged, annots...)
	if len(merged) > 0 {
		out["Annots"] = merged
	}

	return w.Put(dst, out)
}

var errNoPageBox = errors.New("missing page box")

func pageBoxAt(r pdf.Getter, pageNo int) (rect.Rect, error) {
	_, pageDict, err := pagetree.GetPage(r, pageNo)
	if err != nil {
		return rect.Rect{}, err
	}
	return pageBox(r, pageDict)
}

// pageBox returns the area of the page the positions in a PDR file refer
// to.  This is the trim box, falling back to the crop box and then the
// media box.
func pageBox(r pdf.Getter, page pdf.Dict) (rect.Rect, error) {
	for _, key := range []pdf.Name{"TrimBox", "CropBox", "MediaBox"} {
		if page[key] == nil {
			continue
		}
		b, err := pdf.GetRectangle(r, page[key])
		if err != nil || b == nil {
			continue
		}
		box := rect.Rect{
			LLx: min(b.LLx, b.URx),
			LLy: min(b.LLy, b.URy),
			URx: max(b.LLx, b.URx),
			URy: max(b.LLy, b.URy),
		}
		if box.URx > box.LLx && box.URy > box.LLy {
			return box, nil
		}
	}
	return rect.Rect{}, errNoPageBox
}
