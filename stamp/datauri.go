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
	"encoding/base64"
	"errors"
	"strings"
)

// DataURIPrefix starts every data URI produced by [EncodeDataURI].
const DataURIPrefix = "data:application/pdf;base64,"

var errNotDataURI = errors.New("not a PDF data URI")

// EncodeDataURI returns a data URI containing the given PDF file.
func EncodeDataURI(data []byte) string {
	buf := &strings.Builder{}
	buf.Grow(len(DataURIPrefix) + base64.StdEncoding.EncodedLen(len(data)))
	buf.WriteString(DataURIPrefix)
	enc := base64.NewEncoder(base64.StdEncoding, buf)
	enc.Write(data)
	enc.Close()
	return buf.String()
}

// DecodeDataURI extracts the PDF file from a data URI produced by
// [EncodeDataURI].
func DecodeDataURI(uri string) ([]byte, error) {
	payload, ok := strings.CutPrefix(uri, DataURIPrefix)
	if !ok {
		return nil, errNotDataURI
	}
	return base64.StdEncoding.DecodeString(payload)
}
