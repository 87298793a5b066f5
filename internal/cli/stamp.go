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
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"seehuhn.de/go/pdfstamp/internal/logger"
	"seehuhn.de/go/pdfstamp/stamp"
)

var (
	stampOutput   string
	stampForce    bool
	stampDataURI  bool
	stampPage     int
	stampDate     string
	stampPassword string
)

var stampCmd = &cobra.Command{
	Use:   "stamp input.pdf",
	Short: "Stamp a PDF file",
	Long: `Stamps the template fields onto the last page of a PDF file and writes
the stamped page as a new single-page PDF file.  Use "-" to read the
input from stdin.

By default the output is written to "input-stamped.pdf".`,
	Args: cobra.ExactArgs(1),
	RunE: runStamp,
}

func init() {
	flags := stampCmd.Flags()
	flags.StringVarP(&stampOutput, "output", "o", "", "write output to `file` (\"-\" for stdout)")
	flags.BoolVarP(&stampForce, "force", "f", false, "overwrite an existing output file")
	flags.BoolVar(&stampDataURI, "data-uri", false, "write a data: URI instead of a PDF file")
	flags.IntVarP(&stampPage, "page", "p", -1, "stamp page `n` (0-based, negative counts from the end)")
	flags.StringVar(&stampDate, "date", "", "use `DD/MM/YYYY` instead of today's date")
	flags.StringVar(&stampPassword, "password", "", "password for encrypted input files")
	rootCmd.AddCommand(stampCmd)
}

func runStamp(cmd *cobra.Command, args []string) error {
	inputFile := args[0]

	a, err := newAnnotator()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("page") {
		a.Template.Page = stampPage
	}
	if stampDate != "" {
		date, err := time.ParseInLocation(stamp.DefaultDateFormat, stampDate, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected DD/MM/YYYY", stampDate)
		}
		a.Now = func() time.Time { return date }
	}
	a.Password = stampPassword

	logger.Section("stamp " + inputFile)
	data, err := readInput(cmd, inputFile)
	if err != nil {
		return err
	}
	logger.Debug("read %d bytes from %s", len(data), inputFile)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	res, err := a.Annotate(ctx, data)
	if err != nil {
		return fmt.Errorf("%s: %w", inputFile, err)
	}
	logger.Info("stamped page %d of %d (%gx%g)",
		res.PageIndex+1, res.PageCount, res.Width, res.Height)
	if logger.IsVerbose() {
		now := time.Now()
		if a.Now != nil {
			now = a.Now()
		}
		for _, p := range a.Template.Resolve(res.Width, res.Height, now) {
			logger.Debug("field %s at (%g, %g): %q", p.Name, p.X, p.Y, p.Text)
		}
	}

	out := res.PDF
	if stampDataURI {
		out = []byte(res.DataURI + "\n")
	}

	outputFile := stampOutput
	if outputFile == "" {
		outputFile = defaultOutputName(inputFile, stampDataURI)
	}
	w, closer, err := openOutputFile(cmd, outputFile, stampForce)
	if err != nil {
		return err
	}
	if !stampDataURI && isTerminal(w) {
		if closer != nil {
			closer.Close()
		}
		return errors.New("refusing to write PDF data to a terminal, use -o or --data-uri")
	}

	_, err = w.Write(out)
	if closer != nil {
		err = errors.Join(err, closer.Close())
	}
	if err != nil {
		return err
	}
	if outputFile != "-" {
		logger.Info("wrote %s", outputFile)
	}
	return nil
}

func readInput(cmd *cobra.Command, inputFile string) ([]byte, error) {
	if inputFile == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(inputFile)
}

// defaultOutputName derives the output file name from the input file name.
func defaultOutputName(inputFile string, dataURI bool) string {
	if inputFile == "-" || dataURI {
		return "-"
	}
	ext := filepath.Ext(inputFile)
	return strings.TrimSuffix(inputFile, ext) + "-stamped.pdf"
}

func openOutputFile(cmd *cobra.Command, outputFile string, forceOverwrite bool) (io.Writer, io.Closer, error) {
	if outputFile == "-" {
		return cmd.OutOrStdout(), nil, nil
	}

	flags := os.O_WRONLY | os.O_CREATE
	if forceOverwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(outputFile, flags, 0666)
	if err != nil {
		if os.IsExist(err) {
			return nil, nil, fmt.Errorf("file %s already exists and -f is not set", outputFile)
		}
		return nil, nil, err
	}

	return file, file, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
