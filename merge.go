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

import "math"

// MatchFunc decides whether comment c belongs to marking m.
type MatchFunc func(m *Marking, c *Comment) bool

// EndPointMatch matches a comment which sits at the end point of a
// marking.
func EndPointMatch(m *Marking, c *Comment) bool {
	const eps = 1e-6
	return m.Page == c.Page &&
		math.Abs(m.RightX-c.X) <= eps &&
		math.Abs(m.UpperY-c.Y) <= eps
}

// Merge associates comments with markings.
//
// Every comment is given to the first marking on the same page for which
// match returns true and which has no comment yet.  The markings in
// f.Markings are replaced by copies which carry the comment.  Merged
// comments stay in f.Comments, but are no longer returned by
// [File.Annotations].
//
// The return value is the number of comments merged.
func Merge(f *File, match MatchFunc) int {
	taken := make(map[*Comment]bool)
	for _, m := range f.Markings {
		if c := m.Comment(); c != nil {
			taken[c] = true
		}
	}

	count := 0
	for _, c := range f.Comments {
		if taken[c] {
			continue
		}
		for i, m := range f.Markings {
			if m.Page != c.Page || m.Comment() != nil || !match(m, c) {
				continue
			}
			f.Markings[i] = m.WithComment(c)
			taken[c] = true
			count++
			break
		}
	}
	return count
}
