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

// Package stamp fills in a fixed form by drawing text and a signature image
// onto a page of a PDF file.
//
// A [Template] describes the text fields, their positions relative to the
// page size, and the placement of the signature.  An [Annotator] applies a
// template to a PDF file: the selected page (by default the last one) is
// copied into a new single-page document and the template fields are
// painted on top of the existing page content.  The result is returned
// both as raw PDF data and as a data URI, suitable for displaying in a
// browser.
//
// Errors caused by the input document are reported as [*DecodeError],
// [*EmptyDocumentError] or [*PageRangeError]; use [IsUserError] to tell
// them apart from problems with the annotator itself.
package stamp
