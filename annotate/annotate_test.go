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
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/outline"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/pdr"
	"seehuhn.de/go/pdr/internal/memfile"
	"seehuhn.de/go/pdr/place"
)

var testTime = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

var testOpt = &Options{
	Now: func() time.Time { return testTime },
}

// convert runs Write on the given document and returns the output,
// opened for reading.
func convert(t *testing.T, in *memfile.Document, doc *pdr.File) (*pdf.Reader, *Report) {
	t.Helper()

	data, err := in.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	r, err := memfile.Open(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	w, buf := memfile.NewPDFWriter(max(pdf.GetVersion(r), pdf.V1_4), nil)
	rep, err := Write(w, r, doc, testOpt)
	if err != nil {
		t.Fatal(err)
	}
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}

	out, err := memfile.Open(buf.Bytes(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { out.Close() })
	return out, rep
}

// pageAnnots returns the annotation dictionaries of a page.
func pageAnnots(t *testing.T, r pdf.Getter, pageNo int) []pdf.Dict {
	t.Helper()
	_, page, err := pagetree.GetPage(r, pageNo)
	if err != nil {
		t.Fatal(err)
	}
	annots, err := pdf.GetArray(r, page["Annots"])
	if err != nil {
		t.Fatal(err)
	}
	var res []pdf.Dict
	for _, obj := range annots {
		dict, err := pdf.GetDict(r, obj)
		if err != nil {
			t.Fatal(err)
		}
		res = append(res, dict)
	}
	return res
}

func TestHighlightAndNote(t *testing.T) {
	trim := &pdf.Rectangle{LLx: 6, LLy: 12, URx: 206, URy: 312}
	in := &memfile.Document{
		Pages: []memfile.Page{
			{MediaBox: memfile.Letter, TrimBox: trim, Annots: 1},
			{MediaBox: memfile.Letter},
		},
	}
	style := pdr.Style{Color: pdr.Color{R: 255, G: 255}, Opacity: 0.4}
	doc := &pdr.File{
		Markings: []*pdr.Marking{
			pdr.NewMarking(0, 0.1, 0.5, 0, 0.6, 0.2, style),
		},
		Comments: []*pdr.Comment{
			pdr.NewComment(0, 0.25, 0.75, "hello", style),
			pdr.NewComment(7, 0.5, 0.5, "missing page", style),
		},
	}

	r, rep := convert(t, in, doc)

	if rep.Pages != 2 || rep.Placed() != 2 || len(rep.Failed()) != 0 {
		t.Errorf("unexpected report: %d pages, %d placed, %v failed",
			rep.Pages, rep.Placed(), rep.Failed())
	}
	if len(rep.Pending) != 1 || rep.Pending[0] != doc.Comments[1] {
		t.Errorf("wrong pending records: %v", rep.Pending)
	}

	annots := pageAnnots(t, r, 0)
	if len(annots) != 3 {
		t.Fatalf("got %d annotations, want 3", len(annots))
	}
	if annots[0]["Subtype"] != pdf.Name("Square") {
		t.Errorf("existing annotation lost, got %v", annots[0]["Subtype"])
	}

	hl := annots[1]
	if hl["Subtype"] != pdf.Name("Highlight") {
		t.Fatalf("wrong subtype %v", hl["Subtype"])
	}
	quad, err := pdf.GetFloatArray(r, hl["QuadPoints"])
	if err != nil {
		t.Fatal(err)
	}
	// box (6,12)-(206,312), x in [0.1, 0.6], y from top in [0.2, 0.5]
	wantQuad := []float64{26, 252, 126, 252, 26, 162, 126, 162}
	if d := cmp.Diff(quad, wantQuad, cmpopts.EquateApprox(0, 1e-4)); d != "" {
		t.Errorf("wrong QuadPoints (-got +want):\n%s", d)
	}
	ca, err := pdf.GetNumber(r, hl["CA"])
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(float64(ca), 0.4, cmpopts.EquateApprox(0, 1e-6)); d != "" {
		t.Errorf("wrong opacity (-got +want):\n%s", d)
	}

	note := annots[2]
	if note["Subtype"] != pdf.Name("Text") {
		t.Fatalf("wrong subtype %v", note["Subtype"])
	}
	contents, err := pdf.GetTextString(r, note["Contents"])
	if err != nil {
		t.Fatal(err)
	}
	if contents != "hello" {
		t.Errorf("wrong contents %q", contents)
	}
	box, err := pdf.GetRectangle(r, note["Rect"])
	if err != nil {
		t.Fatal(err)
	}
	// the icon hangs below and to the right of the point (56, 87)
	got := []float64{box.LLx, box.LLy, box.URx, box.URy}
	want := []float64{56, 87 - IconSize, 56 + IconSize, 87}
	if d := cmp.Diff(got, want, cmpopts.EquateApprox(0, 1e-4)); d != "" {
		t.Errorf("wrong note rectangle (-got +want):\n%s", d)
	}

	if len(pageAnnots(t, r, 1)) != 0 {
		t.Error("annotations added to page 2")
	}
}

func TestMergedComment(t *testing.T) {
	in := &memfile.Document{
		Pages: []memfile.Page{{MediaBox: memfile.Letter}},
	}
	doc := &pdr.File{
		Markings: []*pdr.Marking{
			pdr.NewMarking(0, 0.1, 0.2, 0, 0.9, 0.3, pdr.DefaultStyle),
		},
		Comments: []*pdr.Comment{
			pdr.NewComment(0, 0.9, 0.3, "merged", pdr.DefaultStyle),
		},
	}
	if pdr.Merge(doc, pdr.EndPointMatch) != 1 {
		t.Fatal("comment not merged")
	}

	r, _ := convert(t, in, doc)
	annots := pageAnnots(t, r, 0)
	if len(annots) != 1 {
		t.Fatalf("got %d annotations, want 1", len(annots))
	}
	contents, _ := pdf.GetTextString(r, annots[0]["Contents"])
	if contents != "merged" {
		t.Errorf("wrong contents %q", contents)
	}
}

func titles(items []*outline.Item) []string {
	var res []string
	for _, item := range items {
		res = append(res, item.Title)
	}
	return res
}

func bookmarkDoc(pages ...int) *pdr.File {
	f := &pdr.File{}
	for _, p := range pages {
		f.Bookmarks = append(f.Bookmarks, pdr.NewBookmark(p, pdr.DefaultStyle))
	}
	return f
}

func TestBookmarksNewOutline(t *testing.T) {
	in := &memfile.Document{
		Pages: []memfile.Page{
			{MediaBox: memfile.Letter},
			{MediaBox: memfile.Letter},
			{MediaBox: memfile.Letter},
		},
	}
	r, rep := convert(t, in, bookmarkDoc(2, 0))
	if rep.Placed() != 2 {
		t.Errorf("placed %d bookmarks", rep.Placed())
	}

	o, err := outline.Read(r)
	if err != nil {
		t.Fatal(err)
	}
	if o == nil {
		t.Fatal("no outline")
	}
	if d := cmp.Diff(titles(o.Items), []string{GroupTitle}); d != "" {
		t.Fatalf("top-level items (-got +want):\n%s", d)
	}
	// page order, since bookmarks are placed while visiting the pages
	want := []string{"Bookmark on page 1", "Bookmark on page 3"}
	if d := cmp.Diff(titles(o.Items[0].Children), want); d != "" {
		t.Errorf("bookmarks (-got +want):\n%s", d)
	}
}

func TestBookmarksExistingGroup(t *testing.T) {
	in := &memfile.Document{
		Pages: []memfile.Page{
			{MediaBox: memfile.Letter},
			{MediaBox: memfile.Letter},
		},
		Outline: func(pages []pdf.Reference) *outline.Outline {
			o := &outline.Outline{}
			o.AddItem("Intro")
			g := o.AddItem(GroupTitle)
			g.AddChild("Old")
			o.AddItem("Appendix")
			return o
		},
	}
	r, _ := convert(t, in, bookmarkDoc(1))

	o, err := outline.Read(r)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(titles(o.Items), []string{"Intro", GroupTitle, "Appendix"}); d != "" {
		t.Fatalf("top-level items (-got +want):\n%s", d)
	}
	want := []string{"Old", "Bookmark on page 2"}
	if d := cmp.Diff(titles(o.Items[1].Children), want); d != "" {
		t.Errorf("bookmarks (-got +want):\n%s", d)
	}
}

func TestBookmarksNewGroup(t *testing.T) {
	in := &memfile.Document{
		Pages: []memfile.Page{{MediaBox: memfile.Letter}},
		Outline: func(pages []pdf.Reference) *outline.Outline {
			o := &outline.Outline{}
			o.AddItem("Intro")
			c := o.AddItem("Chapter")
			c.AddChild("Section")
			c.Open = true
			return o
		},
	}
	r, _ := convert(t, in, bookmarkDoc(0, 0))

	o, err := outline.Read(r)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(titles(o.Items), []string{"Intro", "Chapter", GroupTitle}); d != "" {
		t.Fatalf("top-level items (-got +want):\n%s", d)
	}
	if d := cmp.Diff(titles(o.Items[1].Children), []string{"Section"}); d != "" {
		t.Errorf("existing children changed (-got +want):\n%s", d)
	}
	group := o.Items[2]
	if group.Open {
		t.Error("new group is open")
	}
	want := []string{"Bookmark on page 1", "Bookmark on page 1"}
	if d := cmp.Diff(titles(group.Children), want); d != "" {
		t.Errorf("bookmarks (-got +want):\n%s", d)
	}
}

func TestNoBookmarksKeepsOutline(t *testing.T) {
	in := &memfile.Document{
		Pages: []memfile.Page{{MediaBox: memfile.Letter}},
		Outline: func(pages []pdf.Reference) *outline.Outline {
			o := &outline.Outline{}
			o.AddItem("Only")
			return o
		},
	}
	r, _ := convert(t, in, &pdr.File{})
	o, err := outline.Read(r)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(titles(o.Items), []string{"Only"}); d != "" {
		t.Errorf("outline changed (-got +want):\n%s", d)
	}
}

func TestMetadata(t *testing.T) {
	in := &memfile.Document{
		Pages: []memfile.Page{{MediaBox: memfile.Letter}},
		Title: "A Book",
		XMP:   time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC),
	}
	r, _ := convert(t, in, &pdr.File{})

	info := r.GetMeta().Info
	if info == nil {
		t.Fatal("no info dictionary")
	}
	if info.Title != "A Book" {
		t.Errorf("title changed to %q", info.Title)
	}
	if !info.ModDate.Equal(pdf.Date(testTime)) {
		t.Errorf("ModDate = %s, want %s", info.ModDate, testTime)
	}

	ref := r.GetMeta().Catalog.Metadata
	if ref == 0 {
		t.Fatal("XMP metadata lost")
	}
	body, err := pdf.GetStreamReader(r, ref)
	if err != nil {
		t.Fatal(err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("2026-10-17")) {
		t.Errorf("modification date not updated:\n%s", data)
	}
	if !bytes.Contains(data, []byte("2001-02-03")) {
		t.Errorf("creation date lost:\n%s", data)
	}
}

// outlineItems returns the dictionaries of the items directly below the
// given outline node.
func outlineItems(t *testing.T, r pdf.Getter, node pdf.Dict) []pdf.Dict {
	t.Helper()
	var res []pdf.Dict
	ref, _ := node["First"].(pdf.Reference)
	for ref != 0 && len(res) < 100 {
		dict, err := pdf.GetDict(r, ref)
		if err != nil {
			t.Fatal(err)
		}
		res = append(res, dict)
		ref, _ = dict["Next"].(pdf.Reference)
	}
	return res
}

func TestBookmarkColor(t *testing.T) {
	red := pdr.Style{Color: pdr.Color{R: 255}, Opacity: 1}
	doc := &pdr.File{
		Bookmarks: []*pdr.Bookmark{pdr.NewBookmark(0, red)},
	}

	withGroup := func(pages []pdf.Reference) *outline.Outline {
		o := &outline.Outline{}
		o.AddItem(GroupTitle).AddChild("Old")
		return o
	}
	withoutGroup := func(pages []pdf.Reference) *outline.Outline {
		o := &outline.Outline{}
		o.AddItem("Intro")
		return o
	}

	for _, build := range []func([]pdf.Reference) *outline.Outline{nil, withGroup, withoutGroup} {
		in := &memfile.Document{
			Pages:   []memfile.Page{{MediaBox: memfile.Letter}},
			Outline: build,
		}
		r, _ := convert(t, in, doc)

		root, err := pdf.GetDict(r, r.GetMeta().Catalog.Outlines)
		if err != nil {
			t.Fatal(err)
		}
		top := outlineItems(t, r, root)
		group := top[len(top)-1]
		children := outlineItems(t, r, group)
		item := children[len(children)-1]

		title, _ := pdf.GetTextString(r, item["Title"])
		if title != "Bookmark on page 1" {
			t.Fatalf("wrong item %q", title)
		}
		c, err := pdf.GetFloatArray(r, item["C"])
		if err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff(c, []float64{1, 0, 0}); d != "" {
			t.Errorf("wrong bookmark color (-got +want):\n%s", d)
		}
	}
}

func TestMissingPageBox(t *testing.T) {
	in := &memfile.Document{
		Pages: []memfile.Page{
			{MediaBox: memfile.Letter},
			{}, // zero-size media box
		},
	}

	doc := &pdr.File{
		Comments: []*pdr.Comment{pdr.NewComment(0, 0.5, 0.5, "fine", pdr.DefaultStyle)},
	}
	r, rep := convert(t, in, doc)
	if rep.Placed() != 1 || len(rep.Failed()) != 0 {
		t.Errorf("unused page without box affected the result: %d placed, %v failed",
			rep.Placed(), rep.Failed())
	}
	if len(pageAnnots(t, r, 0)) != 1 {
		t.Error("annotation on page 1 missing")
	}

	doc = &pdr.File{
		Bookmarks: []*pdr.Bookmark{pdr.NewBookmark(1, pdr.DefaultStyle)},
		Comments: []*pdr.Comment{
			pdr.NewComment(0, 0.5, 0.5, "fine", pdr.DefaultStyle),
			pdr.NewComment(1, 0.5, 0.5, "lost", pdr.DefaultStyle),
		},
	}
	r, rep = convert(t, in, doc)
	failed := rep.Failed()
	if len(failed) != 1 || failed[0].Placement.Source != doc.Comments[1] {
		t.Fatalf("wrong failures: %v", failed)
	}
	if !errors.Is(failed[0].Err, errNoPageBox) {
		t.Errorf("unexpected error %v", failed[0].Err)
	}
	if rep.Placed() != 2 {
		t.Errorf("placed %d records, want 2", rep.Placed())
	}
	if len(pageAnnots(t, r, 1)) != 0 {
		t.Error("annotation added to page without box")
	}
	o, err := outline.Read(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Items) != 1 || len(o.Items[0].Children) != 1 {
		t.Error("bookmark on page without box missing")
	}
}

func TestClampOpacity(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.3, 0.3},
		{-1, 0},
		{2, 1},
		{math.NaN(), 1},
		{math.Inf(-1), 0},
	}
	for _, c := range cases {
		if got := clampOpacity(c.in); got != c.want {
			t.Errorf("clampOpacity(%g) = %g, want %g", c.in, got, c.want)
		}
	}
}

func TestNaNOpacity(t *testing.T) {
	in := &memfile.Document{
		Pages: []memfile.Page{{MediaBox: memfile.Letter}},
	}
	style := pdr.Style{Color: pdr.Blue, Opacity: math.NaN()}
	doc := &pdr.File{
		Markings: []*pdr.Marking{pdr.NewMarking(0, 0.1, 0.5, 0, 0.6, 0.2, style)},
	}
	r, _ := convert(t, in, doc)
	annots := pageAnnots(t, r, 0)
	if len(annots) != 1 {
		t.Fatalf("got %d annotations, want 1", len(annots))
	}
	// fully opaque annotations may omit CA
	if annots[0]["CA"] != nil {
		ca, err := pdf.GetNumber(r, annots[0]["CA"])
		if err != nil {
			t.Fatal(err)
		}
		if float64(ca) != 1 {
			t.Errorf("CA = %g, want 1", float64(ca))
		}
	}
}

func TestOldVersion(t *testing.T) {
	in := &memfile.Document{
		Version: pdf.V1_2,
		Pages:   []memfile.Page{{MediaBox: memfile.Letter}},
	}
	data, err := in.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	r, err := memfile.Open(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	w, _ := memfile.NewPDFWriter(pdf.V1_3, nil)
	_, err = Write(w, r, &pdr.File{}, nil)
	if err == nil {
		t.Error("PDF 1.3 output accepted")
	}
}

func TestPageBox(t *testing.T) {
	arr := func(llx, lly, urx, ury float64) pdf.Array {
		return pdf.Array{pdf.Number(llx), pdf.Number(lly), pdf.Number(urx), pdf.Number(ury)}
	}
	media := arr(0, 0, 600, 800)
	crop := arr(10, 10, 590, 790)
	trim := arr(20, 20, 580, 780)
	reversed := arr(580, 780, 20, 20)

	cases := []struct {
		page pdf.Dict
		want rect.Rect
	}{
		{pdf.Dict{"MediaBox": media}, rect.Rect{URx: 600, URy: 800}},
		{pdf.Dict{"MediaBox": media, "CropBox": crop}, rect.Rect{LLx: 10, LLy: 10, URx: 590, URy: 790}},
		{pdf.Dict{"MediaBox": media, "CropBox": crop, "TrimBox": trim}, rect.Rect{LLx: 20, LLy: 20, URx: 580, URy: 780}},
		{pdf.Dict{"MediaBox": media, "TrimBox": reversed}, rect.Rect{LLx: 20, LLy: 20, URx: 580, URy: 780}},
		{pdf.Dict{"MediaBox": media, "TrimBox": arr(0, 0, 0, 0)}, rect.Rect{URx: 600, URy: 800}},
	}
	for i, c := range cases {
		got, err := pageBox(nil, c.page)
		if err != nil {
			t.Errorf("%d: %v", i, err)
			continue
		}
		if d := cmp.Diff(got, c.want); d != "" {
			t.Errorf("%d: (-got +want):\n%s", i, d)
		}
	}

	if _, err := pageBox(nil, pdf.Dict{}); err == nil {
		t.Error("page without box accepted")
	}
}

func TestConvertInPlace(t *testing.T) {
	in := &memfile.Document{
		Pages: []memfile.Page{{MediaBox: memfile.Letter}},
	}
	data, err := in.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	fname := filepath.Join(dir, "book.pdf")
	err = os.WriteFile(fname, data, 0o640)
	if err != nil {
		t.Fatal(err)
	}

	doc := &pdr.File{
		Comments: []*pdr.Comment{pdr.NewComment(0, 0.5, 0.5, "note", pdr.DefaultStyle)},
	}
	rep, err := Convert(fname, fname, doc, testOpt)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Placed() != 1 {
		t.Errorf("placed %d records", rep.Placed())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
	fi, err := os.Stat(fname)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o640 {
		t.Errorf("file mode changed to %v", fi.Mode().Perm())
	}

	r, err := pdf.Open(fname, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if len(pageAnnots(t, r, 0)) != 1 {
		t.Error("annotation missing")
	}
}

func TestConvertMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := Convert(filepath.Join(dir, "none.pdf"), filepath.Join(dir, "out.pdf"), &pdr.File{}, nil)
	if err == nil {
		t.Error("missing input accepted")
	}
}

func TestSinkRejectsUnknownKind(t *testing.T) {
	w, _ := memfile.NewPDFWriter(pdf.V1_7, nil)
	s := &pageSink{rm: pdf.NewResourceManager(w)}
	err := s.Place(&place.Placement{Kind: place.Kind(99)})
	if err == nil {
		t.Error("unknown kind accepted")
	}
}
