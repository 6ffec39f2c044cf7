// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

// Package journal persists combat events for audit and replay. Combat
// outcomes are seeded and reproducible; the journal is the record that lets
// an operator replay a disputed kill from its swing seed.
package journal

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/duskmire/duskmire/internal/combat"
)

// Entry is one journaled combat event.
type Entry struct {
	ID         ulid.ULID
	Stream     string
	Type       string
	Payload    []byte
	RecordedAt time.Time
}

// Journal stores combat event entries.
type Journal interface {
	// Append persists an entry. Appending an already-stored entry id is a
	// no-op, so retries cannot duplicate history.
	Append(ctx context.Context, entry Entry) error

	// Replay returns entries for a stream after the given id, oldest first.
	Replay(ctx context.Context, stream string, afterID ulid.ULID, limit int) ([]Entry, error)
}

// Recorder adapts a Journal to the combat engine's event sink.
type Recorder struct {
	journal Journal
}

// NewRecorder wraps a journal for use as a combat.EventSink.
func NewRecorder(j Journal) *Recorder {
	return &Recorder{journal: j}
}

// Record implements combat.EventSink.
func (r *Recorder) Record(ctx context.Context, event combat.Event) error {
	return r.journal.Append(ctx, Entry{
		ID:         event.ID,
		Stream:     event.Stream,
		Type:       string(event.Type),
		Payload:    event.Payload,
		RecordedAt: event.Timestamp,
	})
}

// Noop discards entries; used when no database is configured.
type Noop struct{}

// Append implements Journal.
func (Noop) Append(_ context.Context, _ Entry) error { return nil }

// Replay implements Journal.
func (Noop) Replay(_ context.Context, _ string, _ ulid.ULID, _ int) ([]Entry, error) {
	return nil, nil
}
