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

// Package parser reads big-endian binary data from an in-memory buffer.
//
// Every read either consumes exactly the number of bytes it needs, or
// fails with an [*EndOfDataError] and leaves the reading position
// unchanged.
package parser

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
)

// Parser allows to read data from a byte buffer.
type Parser struct {
	buf []byte
	pos int
}

// New allocates a new Parser which reads from data.
// The Parser does not copy data; the caller must not modify the buffer
// while the Parser is in use.
func New(data []byte) *Parser {
	return &Parser{buf: data}
}

// Size returns the total size of the underlying buffer.
func (p *Parser) Size() int {
	return len(p.buf)
}

// Pos returns the current reading position.
func (p *Parser) Pos() int {
	return p.pos
}

// Remaining returns the number of bytes which have not been read yet.
func (p *Parser) Remaining() int {
	return len(p.buf) - p.pos
}

// ReadBytes reads n bytes from the buffer, starting at the current position.
// The returned slice points into the underlying buffer and must not be
// modified by the caller.
func (p *Parser) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		panic("negative read")
	}
	if n > p.Remaining() {
		return nil, &EndOfDataError{
			Pos:  int64(p.pos),
			Want: n,
			Have: p.Remaining(),
		}
	}
	res := p.buf[p.pos : p.pos+n]
	p.pos += n
	return res, nil
}

// Discard skips the next n bytes of input.
// If fewer than n bytes remain, nothing is skipped and an error is returned.
func (p *Parser) Discard(n int) error {
	_, err := p.ReadBytes(n)
	return err
}

// ReadUint8 reads a single uint8 value from the current position.
func (p *Parser) ReadUint8() (uint8, error) {
	buf, err := p.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a single big-endian uint16 value from the current position.
func (p *Parser) ReadUint16() (uint16, error) {
	buf, err := p.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadInt16 reads a single big-endian int16 value from the current position.
func (p *Parser) ReadInt16() (int16, error) {
	val, err := p.ReadUint16()
	return int16(val), err
}

// ReadUint32 reads a single big-endian uint32 value from the current position.
func (p *Parser) ReadUint32() (uint32, error) {
	buf, err := p.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadInt32 reads a single big-endian int32 value from the current position.
func (p *Parser) ReadInt32() (int32, error) {
	val, err := p.ReadUint32()
	return int32(val), err
}

// ReadFloat32 reads a big-endian IEEE 754 single precision value.
func (p *Parser) ReadFloat32() (float32, error) {
	val, err := p.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(val), nil
}

// ReadFloat64 reads a big-endian IEEE 754 double precision value.
func (p *Parser) ReadFloat64() (float64, error) {
	buf, err := p.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf)), nil
}

// ReadPascalString reads a 2-byte big-endian length, followed by that many
// bytes of data.  The data are returned unchanged; a zero byte inside the
// string is content, not a terminator.
//
// If the string is truncated, the position is left at the start of the
// length field.
func (p *Parser) ReadPascalString() ([]byte, error) {
	start := p.pos
	n, err := p.ReadUint16()
	if err != nil {
		return nil, err
	}
	data, err := p.ReadBytes(int(n))
	if err != nil {
		p.pos = start
		return nil, err
	}
	return data, nil
}

// EndOfDataError is returned when a read extends beyond the end of the buffer.
type EndOfDataError struct {
	// Pos is the reading position at which the read was attempted.
	Pos int64

	// Want is the number of bytes requested.
	Want int

	// Have is the number of bytes which were still available.
	Have int
}

func (err *EndOfDataError) Error() string {
	return "unexpected end of data at byte " + strconv.FormatInt(err.Pos, 10) +
		": need " + strconv.Itoa(err.Want) + " bytes, have " + strconv.Itoa(err.Have)
}

// Is allows to use errors.Is(err, io.ErrUnexpectedEOF) on the error.
func (err *EndOfDataError) Is(target error) bool {
	return target == io.ErrUnexpectedEOF
}
