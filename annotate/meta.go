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
	"time"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/xmp"
)

// updateXMP writes the XMP metadata stream src to dst, with the
// modification date set to modTime.  If the metadata cannot be parsed,
// the stream is copied unchanged.
func updateXMP(r pdf.Getter, w *pdf.Writer, c *pdf.Copier, src, dst pdf.Reference, modTime time.Time, pretty bool) error {
	packet, err := readXMP(r, src)
	if err != nil {
		return copyStream(r, w, c, src, dst)
	}

	basic := &xmp.Basic{}
	packet.Get(basic)
	basic.ModifyDate = xmp.NewDate(modTime)
	packet.Set(basic)

	dict := pdf.Dict{
		"Type":    pdf.Name("Metadata"),
		"Subtype": pdf.Name("XML"),
	}
	stm, err := w.OpenStream(dst, dict)
	if err != nil {
		return err
	}
	err = packet.Write(stm, &xmp.PacketOptions{Pretty: pretty})
	if err != nil {
		return err
	}
	return stm.Close()
}

func readXMP(r pdf.Getter, ref pdf.Reference) (*xmp.Packet, error) {
	body, err := pdf.GetStreamReader(r, ref)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return xmp.Read(body)
}

func copyStream(r pdf.Getter, w *pdf.Writer, c *pdf.Copier, src, dst pdf.Reference) error {
	stm, err := pdf.GetStream(r, src)
	if err != nil {
		return err
	}
	copied, err := c.Copy(stm)
	if err != nil {
		return err
	}
	return w.Put(dst, copied)
}
