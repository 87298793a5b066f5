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

package cli

import (
	"github.com/spf13/cobra"

	"seehuhn.de/go/pdfstamp/stamp"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print the stamp template",
	Long: `Prints the built-in stamp template in TOML format.  The output can be
edited and passed back to pdfstamp using the --template option.  If
--template is given, the named template is checked and printed instead.`,
	Args: cobra.NoArgs,
	RunE: runTemplate,
}

func init() {
	rootCmd.AddCommand(templateCmd)
}

func runTemplate(cmd *cobra.Command, _ []string) error {
	if templateFile == "" {
		cmd.Print(string(stamp.DefaultTemplateSource()))
		return nil
	}

	t, err := loadTemplate()
	if err != nil {
		return err
	}
	_, err = t.WriteTo(cmd.OutOrStdout())
	return err
}
