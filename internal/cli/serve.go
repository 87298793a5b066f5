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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"seehuhn.de/go/pdfstamp/internal/logger"
	"seehuhn.de/go/pdfstamp/internal/server"
	"seehuhn.de/go/pdfstamp/widget"
)

var (
	serveAddr      string
	serveRate      float64
	serveBurst     int
	serveMaxUpload int64
	serveWatch     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the annotator web page",
	Long: `Serves a web page where a PDF file can be dropped or selected.  The
file is stamped and the result is shown inline.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&serveAddr, "addr", "localhost:8080", "listen on `address`")
	flags.Float64Var(&serveRate, "rate", 0, "maximum uploads per second (0 for no limit)")
	flags.IntVar(&serveBurst, "burst", 5, "number of uploads allowed in a burst")
	flags.Int64Var(&serveMaxUpload, "max-upload", server.DefaultMaxUpload, "maximum upload size in `bytes`")
	flags.BoolVar(&serveWatch, "watch", false, "reload the template file when it changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveWatch && templateFile == "" {
		return errors.New("--watch requires --template")
	}

	a, err := newAnnotator()
	if err != nil {
		return err
	}
	w := widget.New(a)

	opt := &server.Options{
		MaxUpload: serveMaxUpload,
		Rate:      rate.Limit(serveRate),
		Burst:     serveBurst,
	}
	s := server.New(w, opt)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if serveWatch {
		go func() {
			err := server.WatchFile(ctx, templateFile, func() error {
				a, err := newAnnotator()
				if err != nil {
					return err
				}
				w.SetAnnotator(a)
				return nil
			})
			if err != nil {
				logger.Error("cannot watch %s: %v", templateFile, err)
			}
		}()
	}

	cmd.Printf("serving on http://%s/\n", serveAddr)
	return s.ListenAndServe(ctx, serveAddr)
}
