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

// Package server implements the web front end of the document annotator.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"seehuhn.de/go/pdfstamp/internal/logger"
	"seehuhn.de/go/pdfstamp/stamp"
	"seehuhn.de/go/pdfstamp/widget"
)

// DefaultMaxUpload is the default limit for the size of uploaded files.
const DefaultMaxUpload = 32 << 20

//go:embed page.html
var pageSource string

var pageTmpl = template.Must(template.New("page").Parse(pageSource))

// Options configures a [Server].
type Options struct {
	// MaxUpload limits the size of uploaded files in bytes.
	// If zero, DefaultMaxUpload is used.
	MaxUpload int64

	// Rate and Burst limit the number of uploads.  If Rate is zero,
	// uploads are not rate limited.
	Rate  rate.Limit
	Burst int
}

// Server serves the annotator page and accepts uploads.
type Server struct {
	widget    *widget.Widget
	limiter   *rate.Limiter
	maxUpload int64
	mux       *http.ServeMux
}

// New returns a server which forwards uploads to w.
func New(w *widget.Widget, opt *Options) *Server {
	if opt == nil {
		opt = &Options{}
	}
	s := &Server{
		widget:    w,
		maxUpload: opt.MaxUpload,
		mux:       http.NewServeMux(),
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUpload
	}
	if opt.Rate > 0 {
		burst := opt.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(opt.Rate, burst)
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /annotate", s.handleAnnotate)
	s.mux.HandleFunc("GET /state", s.handleState)
	s.mux.HandleFunc("GET /events", s.handleEvents)
	return s
}

// ServeHTTP implements the [http.Handler] interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	w.Header().Set("X-Request-Id", id)
	r = r.WithContext(withRequestID(r.Context(), id))

	start := time.Now()
	s.mux.ServeHTTP(w, r)
	logger.Debug("%s %s %s (%s)", id, r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
}

// ListenAndServe serves HTTP requests on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

// Serve serves HTTP requests on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	logger.Info("listening on http://%s/", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(l)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	if err := <-errc; err != http.ErrServerClosed {
		return err
	}
	return nil
}

type pageData struct {
	Loaded  bool
	DataURI template.URL
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := &pageData{
		Loaded: s.widget.Loaded(),
		// The output is always produced by stamp.EncodeDataURI.
		DataURI: template.URL(s.widget.Output()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTmpl.Execute(w, data)
	if err != nil {
		logger.Error("%s: %v", requestID(r.Context()), err)
	}
}

type annotateResponse struct {
	DataURI string `json:"dataUri,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	id := requestID(r.Context())

	if s.limiter != nil && !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, &annotateResponse{Error: "too many requests"})
		return
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, &annotateResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, &annotateResponse{Error: err.Error()})
		return
	}
	logger.Info("%s: received %d bytes", id, len(data))

	res, err := s.widget.Load(r.Context(), data)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("%s: %v", id, err)
		} else {
			logger.Info("%s: %v", id, err)
		}
		writeJSON(w, status, &annotateResponse{Error: err.Error()})
		return
	}
	logger.Info("%s: stamped page %d of %d", id, res.PageIndex+1, res.PageCount)

	writeJSON(w, http.StatusOK, &annotateResponse{DataURI: res.DataURI})
}

// readUpload returns the uploaded file.  The file is either the request
// body, or the first file of the multipart field "file".
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	err := r.ParseMultipartForm(s.maxUpload)
	if err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()
	fd, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return io.ReadAll(fd)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, widget.ErrBusy):
		return http.StatusConflict
	case stamp.IsUserError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		// client went away
		return 499
	default:
		return http.StatusInternalServerError
	}
}

type stateResponse struct {
	Loaded bool `json:"loaded"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &stateResponse{Loaded: s.widget.Loaded()})
}

// handleEvents sends an "update" server-sent event after every completed
// load.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	events, cancel := s.widget.Subscribe()
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			body, err := json.Marshal(&annotateResponse{DataURI: ev.DataURI})
			if err != nil {
				logger.Error("%s: %v", requestID(r.Context()), err)
				return
			}
			_, err = fmt.Fprintf(w, "event: update\nid: %d\ndata: %s\n\n", ev.Seq, body)
			if err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
