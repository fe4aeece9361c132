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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTracker_InitialStatesIdle(t *testing.T) {
	tracker := NewStatusTracker()

	snap := tracker.Snapshot()

	require.Len(t, snap, len(Stages))
	for _, stage := range Stages {
		assert.Equal(t, StateIdle, snap[stage], "stage %s", stage)
	}
}

func TestStatusTracker_Transitions(t *testing.T) {
	tracker := NewStatusTracker()

	tracker.MarkRunning(StageGraphPhysics)
	assert.Equal(t, StateRunning, tracker.State(StageGraphPhysics))

	tracker.MarkComplete(StageGraphPhysics)
	assert.Equal(t, StateComplete, tracker.State(StageGraphPhysics))

	tracker.MarkError(StageValidation)
	assert.Equal(t, StateError, tracker.State(StageValidation))

	tracker.Reset(StageValidation)
	assert.Equal(t, StateIdle, tracker.State(StageValidation))
}

func TestStatusTracker_SnapshotIsCopy(t *testing.T) {
	tracker := NewStatusTracker()

	snap := tracker.Snapshot()
	snap[StageLevelOne] = StateError

	assert.Equal(t, StateIdle, tracker.State(StageLevelOne),
		"mutating a snapshot must not leak back into the tracker")
}

func TestStatusTracker_SubscribeReceivesTransitions(t *testing.T) {
	tracker := NewStatusTracker()
	ch := tracker.Subscribe()

	tracker.MarkRunning(StageLevelOne)

	snap := <-ch
	assert.Equal(t, StateRunning, snap[StageLevelOne])
	assert.Equal(t, StateIdle, snap[StageLevelTwo])
}

func TestStatusTracker_CloseReleasesSubscribers(t *testing.T) {
	tracker := NewStatusTracker()
	ch := tracker.Subscribe()

	tracker.Close()

	_, open := <-ch
	assert.False(t, open, "subscriber channel must close with the tracker")

	// Transitions after close are no-ops and must not panic.
	tracker.MarkRunning(StageLevelOne)
	tracker.Close()
}

func TestStatusTracker_SubscribeAfterClose(t *testing.T) {
	tracker := NewStatusTracker()
	tracker.Close()

	ch := tracker.Subscribe()

	_, open := <-ch
	assert.False(t, open)
}

func TestStatusTracker_SlowSubscriberDoesNotBlock(t *testing.T) {
	tracker := NewStatusTracker()
	tracker.Subscribe() // never drained

	// More transitions than the channel buffer; must not deadlock.
	for i := 0; i < 40; i++ {
		tracker.MarkRunning(StageLevelOne)
		tracker.MarkComplete(StageLevelOne)
	}

	assert.Equal(t, StateComplete, tracker.State(StageLevelOne))
}
