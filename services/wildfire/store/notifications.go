// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
)

// =============================================================================
// Urgency
// =============================================================================

// Urgency classifies a notification for operator triage.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyWarning  Urgency = "warning"
	UrgencyInfo     Urgency = "info"
)

var criticalKeywords = []string{"critical", "immediate", "emergency", "evacuation", "approaching", "reaching"}
var warningKeywords = []string{"warning", "caution", "elevated", "increasing", "ahead"}

// InferUrgency classifies notification text by keyword bands: critical
// terms win over warning terms, everything else is informational.
func InferUrgency(text string) Urgency {
	lower := strings.ToLower(text)
	for _, w := range criticalKeywords {
		if strings.Contains(lower, w) {
			return UrgencyCritical
		}
	}
	for _, w := range warningKeywords {
		if strings.Contains(lower, w) {
			return UrgencyWarning
		}
	}
	return UrgencyInfo
}

// =============================================================================
// Records
// =============================================================================

// StoredNotification is one persisted feed entry.
type StoredNotification struct {
	// ID is assigned sequentially at write time; higher is newer.
	ID uint64 `json:"id"`

	Timestamp   time.Time `json:"timestamp"`
	TimeLabel   string    `json:"time_label"`
	Headline    string    `json:"headline"`
	Explanation string    `json:"explanation"`
	Urgency     Urgency   `json:"urgency"`

	// Source is "agent" for pipeline output, "system" for fallback alerts.
	Source string `json:"source"`

	// DataStep is the simulation tick the notification describes.
	DataStep int `json:"data_step"`
}

// StoredRecommendation is one persisted recommendation with its tick
// metadata.
type StoredRecommendation struct {
	datatypes.Recommendation

	Timestamp time.Time `json:"timestamp"`
	TimeLabel string    `json:"time_label"`
	DataStep  int       `json:"data_step"`

	// Fallback marks the degraded manual-override payload.
	Fallback bool `json:"fallback"`
}

// TickMeta carries the metadata attached to every record from one tick.
type TickMeta struct {
	Timestamp time.Time
	TimeLabel string
	DataStep  int
}

// =============================================================================
// Store
// =============================================================================

var (
	notifPrefix = []byte("notif:")
	recPrefix   = []byte("rec:")
)

// NotificationStore persists the notification feed and recommendation
// history in BadgerDB.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation and the
// ID sequence serializes assignment.
type NotificationStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewNotificationStore opens the store with the given configuration.
// Callers must Close it to release the database and the ID sequence.
func NewNotificationStore(cfg Config) (*NotificationStore, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	seq, err := db.GetSequence([]byte("meta:notif_seq"), 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open notification sequence: %w", err)
	}
	return &NotificationStore{db: db, seq: seq}, nil
}

// Close releases the sequence and the database.
func (s *NotificationStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.db.Close()
		return fmt.Errorf("release notification sequence: %w", err)
	}
	return s.db.Close()
}

// key layout: prefix + big-endian ID, so lexicographic order is ID order
// and reverse iteration yields newest first.
func notifKey(id uint64) []byte {
	key := make([]byte, len(notifPrefix)+8)
	copy(key, notifPrefix)
	binary.BigEndian.PutUint64(key[len(notifPrefix):], id)
	return key
}

func recKey(id uint64) []byte {
	key := make([]byte, len(recPrefix)+8)
	copy(key, recPrefix)
	binary.BigEndian.PutUint64(key[len(recPrefix):], id)
	return key
}

// AppendNotifications persists one tick's alerts with inferred urgency and
// returns the stored records in write order.
func (s *NotificationStore) AppendNotifications(
	items []datatypes.NotificationItem,
	source string,
	meta TickMeta,
) ([]StoredNotification, error) {
	stored := make([]StoredNotification, 0, len(items))
	for _, item := range items {
		id, err := s.seq.Next()
		if err != nil {
			return stored, fmt.Errorf("next notification id: %w", err)
		}
		record := StoredNotification{
			ID:          id,
			Timestamp:   meta.Timestamp,
			TimeLabel:   meta.TimeLabel,
			Headline:    item.Headline,
			Explanation: item.Explanation,
			Urgency:     InferUrgency(item.Headline + " " + item.Explanation),
			Source:      source,
			DataStep:    meta.DataStep,
		}
		data, err := json.Marshal(record)
		if err != nil {
			return stored, fmt.Errorf("marshal notification %d: %w", id, err)
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(notifKey(id), data)
		})
		if err != nil {
			return stored, fmt.Errorf("store notification %d: %w", id, err)
		}
		stored = append(stored, record)
	}
	return stored, nil
}

// Notifications returns stored entries newest first. A limit of 0 means no
// limit; offset skips from the newest end.
func (s *NotificationStore) Notifications(limit, offset int) ([]StoredNotification, error) {
	var out []StoredNotification
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = notifPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must seek past the end of the prefix range.
		seekKey := append(append([]byte{}, notifPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		skipped := 0
		for it.Seek(seekKey); it.ValidForPrefix(notifPrefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(out) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var record StoredNotification
				if err := json.Unmarshal(val, &record); err != nil {
					return fmt.Errorf("decode notification: %w", err)
				}
				out = append(out, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// SaveRecommendation appends one recommendation to the history.
func (s *NotificationStore) SaveRecommendation(rec StoredRecommendation) error {
	id, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next recommendation id: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal recommendation: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recKey(id), data)
	})
}

// LatestRecommendation returns the most recent recommendation, or nil when
// none is stored.
func (s *NotificationStore) LatestRecommendation() (*StoredRecommendation, error) {
	var out *StoredRecommendation
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = recPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seekKey := append(append([]byte{}, recPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		it.Seek(seekKey)
		if !it.ValidForPrefix(recPrefix) {
			return nil
		}
		return it.Item().Value(func(val []byte) error {
			var record StoredRecommendation
			if err := json.Unmarshal(val, &record); err != nil {
				return fmt.Errorf("decode recommendation: %w", err)
			}
			out = &record
			return nil
		})
	})
	return out, err
}

// Recommendations returns the full recommendation history, oldest first.
func (s *NotificationStore) Recommendations() ([]StoredRecommendation, error) {
	var out []StoredRecommendation
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(recPrefix); it.ValidForPrefix(recPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record StoredRecommendation
				if err := json.Unmarshal(val, &record); err != nil {
					return fmt.Errorf("decode recommendation: %w", err)
				}
				out = append(out, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// ClearAll drops every stored notification and recommendation. The ID
// sequence keeps advancing, so IDs stay monotonic across clears.
func (s *NotificationStore) ClearAll() error {
	if err := s.db.DropPrefix(notifPrefix); err != nil {
		return fmt.Errorf("drop notifications: %w", err)
	}
	if err := s.db.DropPrefix(recPrefix); err != nil {
		return fmt.Errorf("drop recommendations: %w", err)
	}
	return nil
}
