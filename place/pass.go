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

package place

import (
	"fmt"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdr"
)

// Sink receives the placements computed during a [Pass].
type Sink interface {
	Place(p *Placement) error
}

// State is the progress of a single record during a [Pass].
type State int

// These are the possible states of a record.
const (
	// Pending records have not been matched with a page yet.
	Pending State = iota

	// Placed records have been given to the sink.
	Placed

	// Failed records were rejected by the sink.  They are not retried.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Placed:
		return "placed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("place.State(%d)", int(s))
	}
}

// Result reports what happened to one record on a page.
type Result struct {
	// Index is the position of the record in the list given to [NewPass].
	Index int

	Placement *Placement
	State     State

	// Err is the error returned by the sink, for failed records.
	Err error
}

// Pass places a list of records, one page at a time.
//
// Every record is placed at most once, on the first page with matching
// index.  Records are given to the sink in list order.
type Pass struct {
	annots []pdr.Annotation
	states []State
}

// NewPass starts placing the given records.
// The list is not copied and must not be modified while the pass is used.
func NewPass(annots []pdr.Annotation) *Pass {
	return &Pass{
		annots: annots,
		states: make([]State, len(annots)),
	}
}

// Page places all pending records which belong to the page with the given
// index.  The returned slice has one entry for every record handled.
func (p *Pass) Page(pageIndex int, box rect.Rect, sink Sink) []Result {
	var res []Result
	for i, a := range p.annots {
		if p.states[i] != Pending || a.PageIndex() != pageIndex {
			continue
		}

		pl := Resolve(a, box)
		r := Result{Index: i, Placement: pl}
		if err := sink.Place(pl); err != nil {
			r.State = Failed
			r.Err = err
		} else {
			r.State = Placed
		}
		p.states[i] = r.State
		res = append(res, r)
	}
	return res
}

// HasPending reports whether any pending record belongs to the page with
// the given index.
func (p *Pass) HasPending(pageIndex int) bool {
	for i, a := range p.annots {
		if p.states[i] == Pending && a.PageIndex() == pageIndex {
			return true
		}
	}
	return false
}

// Len returns the number of records in the pass.
func (p *Pass) Len() int {
	return len(p.annots)
}

// State returns the state of the i-th record.
func (p *Pass) State(i int) State {
	return p.states[i]
}

// Pending returns the records which have not been matched with any page.
func (p *Pass) Pending() []pdr.Annotation {
	var res []pdr.Annotation
	for i, a := range p.annots {
		if p.states[i] == Pending {
			res = append(res, a)
		}
	}
	return res
}
