// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/logger"
)

// Watcher - signals writes to and removal of one file
//
// the containing directory is watched so that editors which replace
// the file are still seen
type Watcher struct {
	log      *logger.L
	watcher  *fsnotify.Watcher
	filePath string
	change   chan struct{}
	remove   chan struct{}
	done     chan struct{}
}

// NewWatcher - watcher for an existing file, not yet started
func NewWatcher(fileName string) (*Watcher, error) {
	log := logger.New("watcher")
	if nil == log {
		return nil, fault.ErrInvalidLoggerChannel
	}

	filePath, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}
	if _, err := os.Stat(filePath); nil != err {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, err
	}

	return &Watcher{
		log:      log,
		watcher:  watcher,
		filePath: filePath,
		change:   make(chan struct{}, 1),
		remove:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Change - receives after the file is written
func (w *Watcher) Change() <-chan struct{} {
	return w.change
}

// Remove - receives after the file is removed or renamed away
func (w *Watcher) Remove() <-chan struct{} {
	return w.remove
}

// Start - begin delivering events
func (w *Watcher) Start() error {
	err := w.watcher.Add(filepath.Dir(w.filePath))
	if nil != err {
		w.log.Errorf("watch: %q  error: %s", w.filePath, err)
		return err
	}

	go w.run()
	return nil
}

// Stop - no more events are delivered after this returns
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func (w *Watcher) run() {
	base := filepath.Base(w.filePath)

loop:
	for {
		select {
		case <-w.done:
			break loop

		case event, ok := <-w.watcher.Events:
			if !ok {
				break loop
			}
			if filepath.Base(event.Name) != base {
				continue loop
			}
			w.log.Debugf("file event: %s", event)

			switch {
			case isRemove(event):
				w.log.Warnf("file: %q removed", w.filePath)
				w.send(w.remove, "remove")
			case isChange(event):
				w.log.Infof("file: %q changed", w.filePath)
				w.send(w.change, "change")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				break loop
			}
			w.log.Errorf("watch: %q  error: %s", w.filePath, err)
		}
	}
	w.log.Debug("stopped")
}

// a pending event already covers this one
func (w *Watcher) send(ch chan struct{}, name string) {
	select {
	case ch <- struct{}{}:
	default:
		w.log.Debugf("event channel: %s full, discard event", name)
	}
}

func isRemove(event fsnotify.Event) bool {
	return event.Op&fsnotify.Remove == fsnotify.Remove ||
		event.Op&fsnotify.Rename == fsnotify.Rename
}

func isChange(event fsnotify.Event) bool {
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Chmod == fsnotify.Chmod
}
