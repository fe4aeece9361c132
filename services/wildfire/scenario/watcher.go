// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scenario ingests timestamped condition frames from a drop
// directory. Field teams (or a replay harness) write one JSON file per
// observation window; the watcher parses each file and hands it to the
// service for analysis, so scripted scenarios and live feeds share one
// path into the engine.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/WildfireOS/pkg/validation"
	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// Frame is one timestamped observation window dropped into the directory.
type Frame struct {
	Timestamp time.Time `json:"timestamp"`

	// TimeLabel is the operator-facing window label, e.g. "T+30min".
	TimeLabel string `json:"time_label"`

	Telemetry      datatypes.RawTelemetry          `json:"live_graph"`
	Environment    datatypes.EnvironmentContext    `json:"environment_data"`
	Infrastructure datatypes.InfrastructureContext `json:"infrastructure_data"`
}

// Validate checks every embedded context.
func (f Frame) Validate() error {
	if err := f.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid live_graph: %w", err)
	}
	if err := f.Environment.Validate(); err != nil {
		return fmt.Errorf("invalid environment_data: %w", err)
	}
	if err := f.Infrastructure.Validate(); err != nil {
		return fmt.Errorf("invalid infrastructure_data: %w", err)
	}
	for _, town := range f.Infrastructure.Towns {
		if err := validation.ValidateTownName(town.Name); err != nil {
			return fmt.Errorf("invalid infrastructure_data: %w", err)
		}
	}
	return nil
}

// FrameHandler receives parsed frames in arrival order.
type FrameHandler func(Frame)

// settleDelay gives the writer time to finish the file before it is read.
// Drop directories see whole-file renames or short writes; this avoids
// parsing a half-written frame.
const settleDelay = 50 * time.Millisecond

// Watcher tails a drop directory for frame files.
//
// # Description
//
// Only files ending in .json directly in the directory are considered.
// Create and write events both trigger a (re)parse after a short settle
// delay; a file rewritten in place is treated as a new frame. Parse
// failures are logged and skipped, never fatal.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine.
type Watcher struct {
	dir      string
	handler  FrameHandler
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	watching bool
}

// NewWatcher creates a watcher for the given drop directory. Call Start to
// begin, Stop to release the inotify handle.
func NewWatcher(dir string, handler FrameHandler, logger *slog.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("frame handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create directory watcher: %w", err)
	}
	return &Watcher{
		dir:     dir,
		handler: handler,
		logger:  logger,
		watcher: fw,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. The directory is created when missing. Watching
// stops when ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return fmt.Errorf("create drop directory %s: %w", w.dir, err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch drop directory %s: %w", w.dir, err)
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isFrameFile(event.Name) {
				continue
			}
			time.Sleep(settleDelay)
			w.ingest(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("drop directory watch error", "error", err)
		}
	}
}

// ingest parses one frame file and hands it to the handler.
func (w *Watcher) ingest(path string) {
	frame, err := LoadFrame(path)
	if err != nil {
		w.logger.Warn("skipping unreadable frame file", "path", path, "error", err)
		return
	}
	w.logger.Info("scenario frame ingested",
		"path", filepath.Base(path),
		"time_label", frame.TimeLabel,
		"step", frame.Telemetry.Step)
	w.handler(frame)
}

func isFrameFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// LoadFrame reads and validates a single frame file.
func LoadFrame(path string) (Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("read frame file: %w", err)
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("parse frame file: %w", err)
	}
	if err := frame.Validate(); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

// LoadDir reads every frame file already present in a directory, sorted by
// filename so timestamped names replay in order. Unreadable files are
// skipped.
func LoadDir(dir string, logger *slog.Logger) ([]Frame, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read drop directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isFrameFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	frames := make([]Frame, 0, len(names))
	for _, name := range names {
		frame, err := LoadFrame(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping unreadable frame file", "path", name, "error", err)
			continue
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
