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

// Package widget holds the state of the document annotator user interface.
//
// A [Widget] accepts one PDF file at a time, runs it through a
// [stamp.Annotator] and keeps the most recent result.  Observers are
// notified once after each successful load.
package widget

import (
	"context"
	"errors"
	"sync"

	"seehuhn.de/go/pdfstamp/stamp"
)

// ErrBusy is returned by [Widget.Load] while another file is being
// processed.
var ErrBusy = errors.New("widget: annotation already in progress")

// Annotator is the part of [stamp.Annotator] used by the widget.
type Annotator interface {
	Annotate(ctx context.Context, data []byte) (*stamp.Result, error)
}

// Event reports a completed load.
type Event struct {
	// Seq counts successful loads, starting at 1.
	Seq int

	DataURI string
}

// Widget is the state cell behind the annotator user interface.
// It is safe for concurrent use.
type Widget struct {
	mu        sync.Mutex
	annotator Annotator
	busy      bool
	loaded    bool
	output    string
	seq       int
	subs      map[chan Event]struct{}
}

// New returns a widget which uses a for processing files.
func New(a Annotator) *Widget {
	return &Widget{
		annotator: a,
		subs:      make(map[chan Event]struct{}),
	}
}

// SetAnnotator replaces the annotator used for subsequent loads.
func (w *Widget) SetAnnotator(a Annotator) {
	w.mu.Lock()
	w.annotator = a
	w.mu.Unlock()
}

// Load annotates a PDF file and stores the result.
//
// Only one file is processed at a time; if a load is already running,
// ErrBusy is returned immediately.  On failure the previous state is kept.
func (w *Widget) Load(ctx context.Context, data []byte) (*stamp.Result, error) {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	w.busy = true
	a := w.annotator
	w.mu.Unlock()

	res, err := a.Annotate(ctx, data)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if err != nil {
		return nil, err
	}

	w.output = res.DataURI
	w.loaded = true
	w.seq++
	ev := Event{Seq: w.seq, DataURI: res.DataURI}
	for ch := range w.subs {
		select {
		case ch <- ev:
		default:
			// The subscriber is behind; replace the stale event.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
	return res, nil
}

// Busy reports whether a load is in progress.
func (w *Widget) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Loaded reports whether a file has been processed successfully.
// Once set, the flag stays set.
func (w *Widget) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// Output returns the data URI of the most recent result, or the empty
// string if no file has been loaded yet.
func (w *Widget) Output() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.output
}

// Subscribe returns a channel which receives an event after every
// successful load.  The channel holds at most one pending event; a slow
// reader sees only the most recent one.  The returned function cancels
// the subscription and closes the channel.
func (w *Widget) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, ch)
			w.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
