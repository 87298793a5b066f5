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
	"errors"
	"fmt"
)

var (
	errEmptyImage = errors.New("image has no pixels")
	errNoPageSize = errors.New("page has no MediaBox")
)

// DecodeError indicates that the input could not be read as a PDF file.
type DecodeError struct {
	Err error
}

func (err *DecodeError) Error() string {
	return "cannot decode PDF: " + err.Err.Error()
}

func (err *DecodeError) Unwrap() error {
	return err.Err
}

// EmptyDocumentError is returned for PDF files without pages.
type EmptyDocumentError struct{}

func (err *EmptyDocumentError) Error() string {
	return "document has no pages"
}

// PageRangeError is returned if the requested page does not exist.
type PageRangeError struct {
	Page     int
	NumPages int
}

func (err *PageRangeError) Error() string {
	return fmt.Sprintf("page index %d out of range for %d pages", err.Page, err.NumPages)
}

// AssetLoadError indicates that the font or the signature image could not
// be loaded.
type AssetLoadError struct {
	Asset string
	Err   error
}

func (err *AssetLoadError) Error() string {
	return fmt.Sprintf("cannot load %s: %s", err.Asset, err.Err)
}

func (err *AssetLoadError) Unwrap() error {
	return err.Err
}

// SerializationError indicates that the output document could not be
// written.
type SerializationError struct {
	Err error
}

func (err *SerializationError) Error() string {
	return "cannot write PDF: " + err.Err.Error()
}

func (err *SerializationError) Unwrap() error {
	return err.Err
}

// IsUserError reports whether err was caused by the input document,
// rather than by the annotator or its assets.
func IsUserError(err error) bool {
	var (
		decodeErr *DecodeError
		emptyErr  *EmptyDocumentError
		rangeErr  *PageRangeError
	)
	return errors.As(err, &decodeErr) ||
		errors.As(err, &emptyErr) ||
		errors.As(err, &rangeErr)
}
