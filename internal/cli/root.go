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

// Package cli implements the pdfstamp command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"seehuhn.de/go/pdfstamp/internal/logger"
	"seehuhn.de/go/pdfstamp/stamp"
)

// version is set at build time.
var version = "dev"

var (
	verbose       bool
	templateFile  string
	signatureFile string
)

var rootCmd = &cobra.Command{
	Use:   "pdfstamp",
	Short: "Stamp form fields and a signature onto a PDF page",
	Long: `pdfstamp fills in a form by drawing a fixed set of text fields, the
current date and a signature image onto the last page of a PDF file.
The stamped page is written to a new single-page PDF file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "show progress messages")
	flags.StringVar(&templateFile, "template", "", "read the stamp template from `file`")
	flags.StringVar(&signatureFile, "signature", "", "read the signature image from `file`")
}

// Execute runs the command given on the command line.
func Execute() error {
	return rootCmd.Execute()
}

// loadTemplate returns the template selected by the --template flag.
func loadTemplate() (*stamp.Template, error) {
	if templateFile == "" {
		return stamp.DefaultTemplate(), nil
	}
	logger.Debug("loading template %s", templateFile)
	return stamp.LoadTemplate(templateFile)
}

// newAnnotator returns an annotator for the template and signature
// selected on the command line.
func newAnnotator() (*stamp.Annotator, error) {
	t, err := loadTemplate()
	if err != nil {
		return nil, err
	}
	a, err := stamp.NewAnnotator(t)
	if err != nil {
		return nil, err
	}
	if signatureFile != "" {
		logger.Debug("loading signature %s", signatureFile)
		a.Signature, err = stamp.LoadSignature(signatureFile)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}
