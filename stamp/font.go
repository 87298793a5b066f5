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
	"fmt"
	"slices"

	"golang.org/x/text/language"

	"seehuhn.de/go/pdf/font"
	"seehuhn.de/go/pdf/font/standard"
	"seehuhn.de/go/pdf/font/truetype"
	"seehuhn.de/go/sfnt"
)

func standardFont(name string) (standard.Font, error) {
	f := standard.Font(name)
	if !slices.Contains(standard.All, f) {
		return "", fmt.Errorf("%q is not a standard PDF font", name)
	}
	return f, nil
}

// loadFont returns a new font instance for the template.
//
// Font instances keep track of the glyphs used, so every document needs
// its own instance.
func (t *Template) loadFont() (font.Layouter, error) {
	if t.FontFile == "" {
		f, err := standardFont(t.Font)
		if err != nil {
			return nil, err
		}
		return f.New(), nil
	}

	info, err := sfnt.ReadFile(t.FontFile)
	if err != nil {
		return nil, err
	}
	opt := &truetype.OptionsSimple{}
	if t.Language != "" {
		opt.Language, err = language.Parse(t.Language)
		if err != nil {
			return nil, err
		}
	}
	return truetype.NewSimple(info, opt)
}
