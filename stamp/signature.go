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
	"image"
	"io"
	"os"

	// image formats accepted for signature files
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

//go:embed assets/signature.png
var bundledSignature []byte

// Signature is a decoded signature image.
type Signature struct {
	Img image.Image
}

// BundledSignature returns the signature image shipped with the package.
func BundledSignature() (*Signature, error) {
	return DecodeSignature(bytes.NewReader(bundledSignature))
}

// LoadSignature reads a signature image from a file.
// PNG, JPEG, GIF, BMP, TIFF and WebP files are supported.
func LoadSignature(fname string) (*Signature, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, &AssetLoadError{Asset: fname, Err: err}
	}
	defer fd.Close()

	return decodeSignature(fd, fname)
}

// DecodeSignature decodes a signature image.
func DecodeSignature(r io.Reader) (*Signature, error) {
	return decodeSignature(r, "signature")
}

func decodeSignature(r io.Reader, name string) (*Signature, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &AssetLoadError{Asset: name, Err: err}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, &AssetLoadError{Asset: name, Err: errEmptyImage}
	}
	return &Signature{Img: img}, nil
}

// Size returns the natural size of the image in pixels.
func (s *Signature) Size() (int, int) {
	b := s.Img.Bounds()
	return b.Dx(), b.Dy()
}
