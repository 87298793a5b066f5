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
	"time"

	"seehuhn.de/go/xmp"

	"seehuhn.de/go/pdf/metadata"
)

// xmpMetadata returns the XMP metadata stream for an output file created
// on the given date.
func xmpMetadata(date time.Time) (*metadata.Stream, error) {
	info := &xmp.Basic{
		CreatorTool: xmp.NewAgentName(Producer),
		CreateDate:  xmp.NewDate(date),
	}
	packet := xmp.NewPacket()
	err := packet.Set(info)
	if err != nil {
		return nil, err
	}
	return &metadata.Stream{Data: packet}, nil
}
