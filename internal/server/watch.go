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

package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"seehuhn.de/go/pdfstamp/internal/logger"
)

// reloadDelay collects the bursts of events caused by a single save.
const reloadDelay = 200 * time.Millisecond

// WatchFile calls reload whenever the file fname changes, until ctx is
// cancelled.  Errors returned by reload are logged and the watch
// continues.
//
// The directory containing the file is watched, so that editors which
// replace the file on save are handled.
func WatchFile(ctx context.Context, fname string, reload func() error) error {
	fname = filepath.Clean(fname)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = watcher.Add(filepath.Dir(fname))
	if err != nil {
		return err
	}
	logger.Debug("watching %s", fname)

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isChange(ev, fname) {
				timer = time.After(reloadDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watching %s: %v", fname, err)

		case <-timer:
			timer = nil
			err := reload()
			if err != nil {
				logger.Warn("reloading %s: %v", fname, err)
			} else {
				logger.Info("reloaded %s", fname)
			}
		}
	}
}

// isChange reports whether ev may have changed the contents of fname.
func isChange(ev fsnotify.Event, fname string) bool {
	if filepath.Clean(ev.Name) != fname {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}
