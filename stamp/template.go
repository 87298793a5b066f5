// seehuhn.de/go/pdfstamp - stamp form fields and a signature onto PDF pages
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

package stamp

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"seehuhn.de/go/pdf/font/standard"
)

// TemplateVersion is the template format version understood by this package.
const TemplateVersion = 1

// DefaultDateFormat renders dates as DD/MM/YYYY.
const DefaultDateFormat = "02/01/2006"

//go:embed default.toml
var defaultTemplate []byte

// Template describes the text fields and the signature image which are
// stamped onto a page.
//
// The zero value is not usable; use [DefaultTemplate], [ParseTemplate] or
// [LoadTemplate] to obtain a template.
type Template struct {
	Version int `toml:"version"`

	// Font is the name of one of the 14 standard PDF fonts.  It is ignored
	// if FontFile is set.
	Font string `toml:"font,omitempty"`

	// FontFile, if set, is the path of a TrueType font file with glyf
	// outlines.
	FontFile string `toml:"font_file,omitempty"`

	// Language is a BCP 47 tag used for glyph layout with FontFile.
	Language string `toml:"language,omitempty"`

	FontSize float64 `toml:"font_size"`

	// Color is the RGB fill color for all text, components in [0, 1].
	Color []float64 `toml:"color"`

	// DateFormat is a Go time layout used for date fields.
	DateFormat string `toml:"date_format"`

	// Page selects the target page.  Negative values count from the end of
	// the document, so -1 is the last page.  This is also the default if
	// the template file does not set a page.
	Page int `toml:"page"`

	Fields    []Field        `toml:"field"`
	Signature *SignatureSpec `toml:"signature,omitempty"`
}

// Field is a single line of text on the stamped page.
type Field struct {
	Name string `toml:"name"`

	// Text is the literal text of the field.  If Date is set, the text
	// is replaced by the date of the invocation.
	Text string `toml:"text,omitempty"`
	Date bool   `toml:"date,omitempty"`

	X Coord `toml:"x"`
	Y Coord `toml:"y"`

	// Size overrides the template font size, if non-zero.
	Size float64 `toml:"size,omitempty"`
}

// SignatureSpec describes the placement of the signature image.
type SignatureSpec struct {
	// File, if set, replaces the bundled signature image.
	File string `toml:"file,omitempty"`

	X Coord `toml:"x"`
	Y Coord `toml:"y"`

	// Scale converts image pixels to PDF points.
	Scale float64 `toml:"scale"`
}

// Coord is a coordinate relative to the page size.  The value is
// Scale*size + Offset, where size is the page width for x coordinates
// and the page height for y coordinates.
type Coord struct {
	Scale  float64 `toml:"scale,omitempty"`
	Offset float64 `toml:"offset,omitempty"`
}

// Resolve returns the coordinate value for a page dimension of the given size.
func (c Coord) Resolve(size float64) float64 {
	return c.Scale*size + c.Offset
}

// Placement is a text field resolved against a concrete page and date.
type Placement struct {
	Name string
	Text string
	X, Y float64
	Size float64
}

// ImagePlacement is the rectangle covered by the signature image.
type ImagePlacement struct {
	X, Y          float64
	Width, Height float64
}

// DefaultTemplate returns a fresh copy of the built-in template.
func DefaultTemplate() *Template {
	t, err := ParseTemplate(bytes.NewReader(defaultTemplate))
	if err != nil {
		panic("stamp: invalid built-in template: " + err.Error())
	}
	return t
}

// DefaultTemplateSource returns the TOML source of the built-in template.
func DefaultTemplateSource() []byte {
	return bytes.Clone(defaultTemplate)
}

// LoadTemplate reads a template from a TOML file.
func LoadTemplate(fname string) (*Template, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	t, err := ParseTemplate(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return t, nil
}

// ParseTemplate reads a template in TOML format.
// Missing optional settings are filled in from the built-in defaults.
func ParseTemplate(r io.Reader) (*Template, error) {
	t := &Template{Page: -1}
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	err := dec.Decode(t)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	if t.Font == "" {
		t.Font = string(standard.Helvetica)
	}
	if t.FontSize == 0 {
		t.FontSize = 12
	}
	if t.Color == nil {
		t.Color = []float64{0, 0, 0}
	}
	if t.DateFormat == "" {
		t.DateFormat = DefaultDateFormat
	}

	err = t.Validate()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// WriteTo writes the template in TOML format.
// This implements the [io.WriterTo] interface.
func (t *Template) WriteTo(w io.Writer) (int64, error) {
	data, err := toml.Marshal(t)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Validate checks the template for consistency.
func (t *Template) Validate() error {
	if t.Version != TemplateVersion {
		return fmt.Errorf("unsupported template version %d", t.Version)
	}
	if t.FontFile == "" {
		if _, err := standardFont(t.Font); err != nil {
			return err
		}
	}
	if t.Language != "" {
		if _, err := language.Parse(t.Language); err != nil {
			return fmt.Errorf("invalid language %q: %w", t.Language, err)
		}
	}
	if t.FontSize <= 0 {
		return errors.New("font size must be positive")
	}
	if len(t.Color) != 3 {
		return fmt.Errorf("color needs 3 components, got %d", len(t.Color))
	}
	for _, c := range t.Color {
		if c < 0 || c > 1 {
			return fmt.Errorf("color component %g out of range [0, 1]", c)
		}
	}

	seen := make(map[string]bool, len(t.Fields))
	for i, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: missing name", i+1)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q: duplicate name", f.Name)
		}
		seen[f.Name] = true
		if !f.Date && f.Text == "" {
			return fmt.Errorf("field %q: missing text", f.Name)
		}
		if f.Size < 0 {
			return fmt.Errorf("field %q: negative font size", f.Name)
		}
	}

	if t.Signature != nil && t.Signature.Scale <= 0 {
		return errors.New("signature scale must be positive")
	}
	return nil
}

// Resolve computes the text of all fields and their positions on a page
// of the given size.  Date fields show the date of the given time.
func (t *Template) Resolve(width, height float64, now time.Time) []Placement {
	today := now.Format(t.DateFormat)

	res := make([]Placement, len(t.Fields))
	for i, f := range t.Fields {
		text := f.Text
		if f.Date {
			text = today
		}
		size := f.Size
		if size == 0 {
			size = t.FontSize
		}
		res[i] = Placement{
			Name: f.Name,
			Text: text,
			X:    f.X.Resolve(width),
			Y:    f.Y.Resolve(height),
			Size: size,
		}
	}
	return res
}

// Resolve computes the rectangle covered by a signature image with the
// given pixel dimensions on a page of the given size.
func (s *SignatureSpec) Resolve(width, height float64, dx, dy int) ImagePlacement {
	return ImagePlacement{
		X:      s.X.Resolve(width),
		Y:      s.Y.Resolve(height),
		Width:  float64(dx) * s.Scale,
		Height: float64(dy) * s.Scale,
	}
}

// FormatDate formats a date as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DefaultDateFormat)
}
