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

// Pdfstamp stamps a fixed set of form fields, the current date and a
// signature image onto the last page of a PDF file.
//
// Usage:
//
//	pdfstamp stamp [-o output.pdf] [-f] [--data-uri] [-p n] input.pdf
//	pdfstamp serve [--addr host:port] [--watch --template file.toml]
//	pdfstamp template
//	pdfstamp version
package main

import (
	"fmt"
	"os"

	"seehuhn.de/go/pdfstamp/internal/cli"
)

func main() {
	err := cli.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
