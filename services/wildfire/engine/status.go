// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "sync"

// =============================================================================
// Stages and States
// =============================================================================

// Stage identifies one step of the orchestration pipeline.
type Stage string

const (
	StageGraphPhysics Stage = "graph_physics"
	StageLevelOne     Stage = "level_1_agents"
	StageLevelTwo     Stage = "level_2_agents"
	StageValidation   Stage = "validation"
)

// Stages lists all pipeline stages in execution order.
var Stages = []Stage{StageGraphPhysics, StageLevelOne, StageLevelTwo, StageValidation}

// StageState is the lifecycle state of a single stage.
type StageState string

const (
	StateIdle     StageState = "idle"
	StateRunning  StageState = "running"
	StateComplete StageState = "complete"
	StateError    StageState = "error"
)

// StatusSnapshot is an immutable copy of all stage states.
type StatusSnapshot map[Stage]StageState

// =============================================================================
// Status Tracker
// =============================================================================

// StatusTracker tracks per-stage lifecycle for one orchestration call.
//
// # Description
//
// Created per request and discarded when the call ends. Only the
// orchestration goroutine writes; external observers read through Snapshot
// or a Subscribe channel, so there is no shared mutable map crossing
// goroutines. Trackers must never be shared between concurrent requests.
//
// # Thread Safety
//
// Safe for concurrent use. Writes are serialized by the orchestration loop;
// reads take copies under the same mutex.
type StatusTracker struct {
	mu     sync.Mutex
	states map[Stage]StageState
	subs   []chan StatusSnapshot
	closed bool
}

// NewStatusTracker returns a tracker with every stage idle.
func NewStatusTracker() *StatusTracker {
	states := make(map[Stage]StageState, len(Stages))
	for _, s := range Stages {
		states[s] = StateIdle
	}
	return &StatusTracker{states: states}
}

// set transitions one stage and fans the new snapshot out to subscribers.
func (t *StatusTracker) set(stage Stage, state StageState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.states[stage] = state
	snap := t.snapshotLocked()
	for _, ch := range t.subs {
		// Non-blocking: a slow observer drops intermediate snapshots rather
		// than stalling the pipeline.
		select {
		case ch <- snap:
		default:
		}
	}
}

// MarkRunning transitions a stage to running.
func (t *StatusTracker) MarkRunning(stage Stage) { t.set(stage, StateRunning) }

// MarkComplete transitions a stage to complete.
func (t *StatusTracker) MarkComplete(stage Stage) { t.set(stage, StateComplete) }

// MarkError transitions a stage to error.
func (t *StatusTracker) MarkError(stage Stage) { t.set(stage, StateError) }

// Reset returns a stage to idle (used when a retry re-runs agent stages).
func (t *StatusTracker) Reset(stage Stage) { t.set(stage, StateIdle) }

// Snapshot returns a copy of all current stage states.
func (t *StatusTracker) Snapshot() StatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *StatusTracker) snapshotLocked() StatusSnapshot {
	snap := make(StatusSnapshot, len(t.states))
	for k, v := range t.states {
		snap[k] = v
	}
	return snap
}

// State returns the current state of one stage.
func (t *StatusTracker) State(stage Stage) StageState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[stage]
}

// Subscribe registers an observer channel receiving a snapshot after every
// transition. The channel is buffered; intermediate snapshots may be dropped
// for slow readers. Close releases all subscriber channels.
func (t *StatusTracker) Subscribe() <-chan StatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan StatusSnapshot, 16)
	if t.closed {
		close(ch)
		return ch
	}
	t.subs = append(t.subs, ch)
	return ch
}

// Close ends the tracker's lifecycle and closes all subscriber channels.
// Called by the orchestration loop when the request finishes.
func (t *StatusTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, ch := range t.subs {
		close(ch)
	}
	t.subs = nil
}
