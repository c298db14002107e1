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

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/destination"

	"seehuhn.de/go/pdr"
)

// GroupTitle is the title of the top-level outline item which holds the
// bookmarks.
const GroupTitle = "Bookmarks"

// bookmark is a page which needs an outline entry.
type bookmark struct {
	page  int
	ref   pdf.Reference // the page in the output file
	color pdr.Color
}

func (b bookmark) title() string {
	return fmt.Sprintf("Bookmark on page %d", b.page+1)
}

func (b bookmark) destination() *destination.XYZ {
	return &destination.XYZ{
		Page: b.ref,
		Left: destination.Unset,
		Top:  destination.Unset,
		Zoom: destination.Unset,
	}
}

// item returns the outline item dictionary for the bookmark, without
// the entries which link it into the outline tree.
func (b bookmark) item(rm *pdf.ResourceManager) (pdf.Dict, error) {
	dest, err := b.destination().Encode(rm)
	if err != nil {
		return nil, err
	}
	dict := pdf.Dict{
		"Title": pdf.TextString(b.title()),
		"Dest":  dest,
	}
	if b.color != (pdr.Color{}) {
		red, green, blue := b.color.RGB()
		dict["C"] = pdf.Array{pdf.Number(red), pdf.Number(green), pdf.Number(blue)}
	}
	return dict, nil
}

// outlinePlan describes how the bookmarks are added to the document
// outline.
//
// Nodes which need to change are redirected to new references before
// the document catalog is copied.  They are written later, with the
// required changes.
type outlinePlan struct {
	root, newRoot pdf.Reference

	// group is the existing "Bookmarks" item, or 0 if a new item is needed.
	group, newGroup pdf.Reference

	// last is the node which will be followed by the first new item:
	// the last child of an existing group, or the last top-level item.
	last, newLast pdf.Reference
}

// maxOutlineItems limits the number of top-level items inspected.
const maxOutlineItems = 1 << 16

func planOutline(r pdf.Getter, w *pdf.Writer, c *pdf.Copier, needed bool) (*outlinePlan, error) {
	if !needed {
		return nil, nil
	}
	pl := &outlinePlan{root: r.GetMeta().Catalog.Outlines}
	if pl.root == 0 {
		return pl, nil
	}

	rootDict, err := pdf.GetDict(r, pl.root)
	if err != nil {
		return nil, err
	}

	seen := map[pdf.Reference]bool{pl.root: true}
	var lastTop pdf.Reference
	ref, _ := rootDict["First"].(pdf.Reference)
	for ref != 0 && !seen[ref] && len(seen) < maxOutlineItems {
		seen[ref] = true
		dict, err := pdf.GetDict(r, ref)
		if err != nil {
			return nil, err
		}
		lastTop = ref

		title, _ := pdf.GetTextString(r, dict["Title"])
		if string(title) == GroupTitle && pl.group == 0 {
			pl.group = ref
			pl.last, _ = dict["Last"].(pdf.Reference)
		}
		ref, _ = dict["Next"].(pdf.Reference)
	}
	if pl.group == 0 {
		pl.last = lastTop
	}

	pl.newRoot = w.Alloc()
	c.Redirect(pl.root, pl.newRoot)
	if pl.group != 0 {
		pl.newGroup = w.Alloc()
		c.Redirect(pl.group, pl.newGroup)
	}
	if pl.last != 0 {
		pl.newLast = w.Alloc()
		c.Redirect(pl.last, pl.newLast)
	}
	return pl, nil
}

// write adds the bookmarks to the outline of the output file.
// This must be called after the document catalog has been copied.
func (pl *outlinePlan) write(rm *pdf.ResourceManager, r pdf.Getter, c *pdf.Copier, marks []bookmark) error {
	w := rm.Out
	n := pdf.Integer(len(marks))

	parent := pl.newGroup
	if parent == 0 {
		parent = w.Alloc()
	}

	refs := make([]pdf.Reference, len(marks))
	for i := range refs {
		refs[i] = w.Alloc()
	}
	var prev pdf.Reference
	if pl.group != 0 {
		prev = pl.newLast
	}
	for i, m := range marks {
		dict, err := m.item(rm)
		if err != nil {
			return err
		}
		dict["Parent"] = parent
		if i > 0 {
			dict["Prev"] = refs[i-1]
		} else if prev != 0 {
			dict["Prev"] = prev
		}
		if i < len(refs)-1 {
			dict["Next"] = refs[i+1]
		}
		err = w.Put(refs[i], dict)
		if err != nil {
			return err
		}
	}

	var rootDict pdf.Dict
	if pl.root == 0 {
		pl.newRoot = w.Alloc()
		rootDict = pdf.Dict{"Type": pdf.Name("Outlines")}
	} else {
		var err error
		rootDict, err = copyNode(r, c, pl.root)
		if err != nil {
			return err
		}
	}
	rootCount, hasCount := rootDict["Count"].(pdf.Integer)

	if pl.group != 0 {
		// append to the existing group
		srcGroup, err := pdf.GetDict(r, pl.group)
		if err != nil {
			return err
		}
		groupDict, err := c.CopyDict(srcGroup)
		if err != nil {
			return err
		}
		if pl.last == 0 {
			groupDict["First"] = refs[0]
		}
		groupDict["Last"] = refs[len(refs)-1]
		count, _ := pdf.GetInteger(r, srcGroup["Count"])
		if count > 0 {
			groupDict["Count"] = count + n
			if hasCount {
				rootDict["Count"] = rootCount + n
			}
		} else {
			groupDict["Count"] = count - n
		}
		err = w.Put(pl.newGroup, groupDict)
		if err != nil {
			return err
		}

		if pl.last != 0 {
			err = linkNext(r, c, w, pl.last, pl.newLast, refs[0])
			if err != nil {
				return err
			}
		}
	} else {
		// add a new, closed group after the last top-level item
		groupDict := pdf.Dict{
			"Title":  pdf.TextString(GroupTitle),
			"Parent": pl.newRoot,
			"First":  refs[0],
			"Last":   refs[len(refs)-1],
			"Count":  -n,
		}
		if pl.last != 0 {
			groupDict["Prev"] = pl.newLast
			err := linkNext(r, c, w, pl.last, pl.newLast, parent)
			if err != nil {
				return err
			}
		} else {
			rootDict["First"] = parent
		}
		rootDict["Last"] = parent
		if hasCount && rootCount > 0 {
			rootDict["Count"] = rootCount + 1
		}
		err := w.Put(parent, groupDict)
		if err != nil {
			return err
		}
	}

	err := w.Put(pl.newRoot, rootDict)
	if err != nil {
		return err
	}
	w.GetMeta().Catalog.Outlines = pl.newRoot
	return nil
}

// copyNode copies an outline node which has been redirected, and so is
// not copied automatically.
func copyNode(r pdf.Getter, c *pdf.Copier, src pdf.Reference) (pdf.Dict, error) {
	dict, err := pdf.GetDict(r, src)
	if err != nil {
		return nil, err
	}
	return c.CopyDict(dict)
}

// linkNext writes a copy of the node src to dst, with its Next entry
// pointing to next.
func linkNext(r pdf.Getter, c *pdf.Copier, w *pdf.Writer, src, dst, next pdf.Reference) error {
	dict, err := copyNode(r, c, src)
	if err != nil {
		return err
	}
	dict["Next"] = next
	return w.Put(dst, dict)
}
