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

// Package config reads the settings for converting PDR files.
//
// Settings are stored in a YAML file like the following:
//
//	bookmark:
//	  color: "#0000FF"
//	  opacity: 0.2
//	markings:
//	  color: "#FFFF00"
//	  opacity: 0.4
//	comments:
//	  color: "#00FF00"
//	  opacity: 1
//	dumpDebugFile: false
//	mergeComments: false
//	workers: 4
//
// All keys are optional.  Missing keys keep their default values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"seehuhn.de/go/pdr"
)

// Config holds the settings for a conversion run.
type Config struct {
	Bookmark Style `yaml:"bookmark"`
	Markings Style `yaml:"markings"`
	Comments Style `yaml:"comments"`

	// DumpDebugFile requests that a trace of the PDR file is written
	// next to each input file, with ".log" appended to the file name.
	DumpDebugFile bool `yaml:"dumpDebugFile"`

	// MergeComments requests that comments at the end point of a marking
	// are attached to the marking instead of being shown on their own.
	MergeComments bool `yaml:"mergeComments"`

	// Workers is the number of files converted in parallel.
	// Zero means one per CPU.
	Workers int `yaml:"workers"`
}

// Style is the color and opacity for one kind of annotation.
type Style struct {
	Color   pdr.Color `yaml:"color"`
	Opacity float64   `yaml:"opacity"`
}

// Default returns the built-in settings.
func Default() *Config {
	s := Style{Color: pdr.DefaultStyle.Color, Opacity: pdr.DefaultStyle.Opacity}
	return &Config{
		Bookmark: s,
		Markings: s,
		Comments: s,
	}
}

// Load reads settings from a YAML file.
func Load(fname string) (*Config, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return c, nil
}

// Parse reads settings from the contents of a YAML file.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(c)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Keys lists the names accepted by [Config.Set].
var Keys = []string{
	"bookmark.color", "bookmark.opacity",
	"markings.color", "markings.opacity",
	"comments.color", "comments.opacity",
	"dumpDebugFile", "mergeComments", "workers",
}

// Set changes a single setting.  Keys are the dotted names listed in
// [Keys], for example "markings.color".
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)

	if prefix, field, ok := strings.Cut(key, "."); ok {
		var s *Style
		switch prefix {
		case "bookmark":
			s = &c.Bookmark
		case "markings":
			s = &c.Markings
		case "comments":
			s = &c.Comments
		default:
			return &KeyError{Key: key}
		}
		switch field {
		case "color":
			col, err := pdr.ParseColor(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			s.Color = col
		case "opacity":
			x, err := strconv.ParseFloat(value, 64)
			if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%s: invalid opacity %q", key, value)
			}
			s.Opacity = x
		default:
			return &KeyError{Key: key}
		}
		return nil
	}

	switch key {
	case "dumpDebugFile", "mergeComments":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", key, value)
		}
		if key == "dumpDebugFile" {
			c.DumpDebugFile = b
		} else {
			c.MergeComments = b
		}
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", key, value)
		}
		if n < 0 {
			return fmt.Errorf("%s: negative value %d", key, n)
		}
		c.Workers = n
	default:
		return &KeyError{Key: key}
	}
	return nil
}

// SetString applies a setting of the form "key=value".
func (c *Config) SetString(kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("invalid setting %q: expected key=value", kv)
	}
	return c.Set(strings.TrimSpace(key), value)
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers: negative value %d", c.Workers)
	}
	for name, x := range map[string]float64{
		"bookmark.opacity": c.Bookmark.Opacity,
		"markings.opacity": c.Markings.Opacity,
		"comments.opacity": c.Comments.Opacity,
	} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%s: invalid opacity %g", name, x)
		}
	}
	return nil
}

// Warnings returns a description of every setting which is accepted but
// suspicious.
func (c *Config) Warnings() []string {
	var res []string
	for _, s := range []struct {
		name string
		val  float64
	}{
		{"bookmark.opacity", c.Bookmark.Opacity},
		{"markings.opacity", c.Markings.Opacity},
		{"comments.opacity", c.Comments.Opacity},
	} {
		if !(s.val >= 0 && s.val <= 1) {
			res = append(res, fmt.Sprintf("%s=%g is outside [0, 1]", s.name, s.val))
		}
	}
	return res
}

// Styles returns the display styles for the three kinds of records.
func (c *Config) Styles() pdr.Styles {
	return pdr.Styles{
		Bookmark: pdr.Style(c.Bookmark),
		Marking:  pdr.Style(c.Markings),
		Comment:  pdr.Style(c.Comments),
	}
}

// Marshal returns the settings in YAML format.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// KeyError is returned by [Config.Set] for unknown keys.
type KeyError struct {
	Key string
}

func (err *KeyError) Error() string {
	return fmt.Sprintf("unknown setting %q", err.Key)
}
