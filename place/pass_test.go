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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdr"
)

type recordingSink struct {
	placed []*Placement
	fail   func(*Placement) error
}

func (s *recordingSink) Place(p *Placement) error {
	if s.fail != nil {
		if err := s.fail(p); err != nil {
			return err
		}
	}
	s.placed = append(s.placed, p)
	return nil
}

func TestPass(t *testing.T) {
	style := pdr.DefaultStyle
	annots := []pdr.Annotation{
		pdr.NewBookmark(1, style),
		pdr.NewBookmark(0, style),
		pdr.NewMarking(1, 0, 0, 1, 1, 1, style),
		pdr.NewComment(1, 0.5, 0.5, "x", style),
		pdr.NewComment(9, 0.5, 0.5, "nowhere", style),
	}
	pass := NewPass(annots)
	sink := &recordingSink{}

	res := pass.Page(0, page, sink)
	if len(res) != 1 || res[0].Index != 1 || res[0].State != Placed {
		t.Errorf("page 0: unexpected results %+v", res)
	}

	res = pass.Page(1, page, sink)
	var indices []int
	for _, r := range res {
		indices = append(indices, r.Index)
		if r.State != Placed || r.Err != nil {
			t.Errorf("record %d: state %s, err %v", r.Index, r.State, r.Err)
		}
	}
	if d := cmp.Diff(indices, []int{0, 2, 3}); d != "" {
		t.Errorf("page 1: wrong order (-got +want):\n%s", d)
	}

	// visiting a page again places nothing
	if res := pass.Page(1, page, sink); len(res) != 0 {
		t.Errorf("records placed twice: %+v", res)
	}

	var kinds []Kind
	for _, p := range sink.placed {
		kinds = append(kinds, p.Kind)
	}
	if d := cmp.Diff(kinds, []Kind{Bookmark, Bookmark, Highlight, TextNote}); d != "" {
		t.Errorf("wrong kinds (-got +want):\n%s", d)
	}

	pending := pass.Pending()
	if len(pending) != 1 || pending[0] != annots[4] {
		t.Errorf("wrong pending records %v", pending)
	}
	if pass.State(4) != Pending || pass.Len() != 5 {
		t.Errorf("unexpected state %s", pass.State(4))
	}
}

func TestPassFailure(t *testing.T) {
	errFull := errors.New("sink full")
	annots := []pdr.Annotation{
		pdr.NewComment(0, 0, 0, "a", pdr.DefaultStyle),
		pdr.NewComment(0, 0, 0, "b", pdr.DefaultStyle),
		pdr.NewComment(0, 0, 0, "c", pdr.DefaultStyle),
	}
	sink := &recordingSink{
		fail: func(p *Placement) error {
			if p.Text == "b" {
				return errFull
			}
			return nil
		},
	}
	pass := NewPass(annots)
	res := pass.Page(0, page, sink)

	var states []State
	for _, r := range res {
		states = append(states, r.State)
	}
	if d := cmp.Diff(states, []State{Placed, Failed, Placed}); d != "" {
		t.Errorf("wrong states (-got +want):\n%s", d)
	}
	if !errors.Is(res[1].Err, errFull) {
		t.Errorf("wrong error %v", res[1].Err)
	}

	// failed records are not retried
	if res := pass.Page(0, page, sink); len(res) != 0 {
		t.Errorf("failed record retried: %+v", res)
	}
	if len(pass.Pending()) != 0 {
		t.Errorf("failed record still pending")
	}
}

func TestNegativePageNeverPlaced(t *testing.T) {
	annots := []pdr.Annotation{pdr.NewBookmark(-1, pdr.DefaultStyle)}
	pass := NewPass(annots)
	sink := &recordingSink{}
	for i := range 10 {
		pass.Page(i, page, sink)
	}
	if len(sink.placed) != 0 {
		t.Errorf("record with negative page was placed")
	}
}

func TestHasPending(t *testing.T) {
	annots := []pdr.Annotation{
		pdr.NewBookmark(2, pdr.DefaultStyle),
		pdr.NewComment(4, 0.5, 0.5, "x", pdr.DefaultStyle),
	}
	pass := NewPass(annots)

	for i, want := range []bool{false, false, true, false, true} {
		if got := pass.HasPending(i); got != want {
			t.Errorf("page %d: got %t, want %t", i, got, want)
		}
	}

	pass.Page(2, page, &recordingSink{})
	if pass.HasPending(2) {
		t.Error("page 2 still pending after placement")
	}

	failing := &recordingSink{fail: func(*Placement) error { return errors.New("no") }}
	pass.Page(4, page, failing)
	if pass.HasPending(4) {
		t.Error("failed record still pending")
	}
}
