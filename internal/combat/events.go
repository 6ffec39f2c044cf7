// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType identifies the kind of combat event.
type EventType string

const (
	// EventSwingStarted fires when a swing wait begins. Cosmetic.
	EventSwingStarted EventType = "swing_started"
	// EventHitLanded fires after damage is applied. Cosmetic.
	EventHitLanded EventType = "hit_landed"
	// EventLoopStopped fires when an attack loop ends its engagement.
	EventLoopStopped EventType = "loop_stopped"
	// EventCombatStateChanged fires on Peaceful/InCombat/Dead transitions.
	EventCombatStateChanged EventType = "combat_state_changed"
	// EventCombatEnded fires when a combat window expires.
	EventCombatEnded EventType = "combat_ended"
	// EventActorDied fires exactly once per death, after the loot handoff.
	EventActorDied EventType = "actor_died"
)

// Event is something that happened during combat resolution.
type Event struct {
	ID        ulid.ULID
	Stream    string // "actor:<ulid>"
	Type      EventType
	Timestamp time.Time
	Payload   []byte // JSON
}

// ActorStream returns the event stream name for an actor.
func ActorStream(id ulid.ULID) string {
	return "actor:" + id.String()
}

// SwingStartedPayload is the JSON payload for swing_started events.
type SwingStartedPayload struct {
	AttackerID string        `json:"attacker_id"`
	TargetID   string        `json:"target_id"`
	Duration   time.Duration `json:"duration"`
}

// HitLandedPayload is the JSON payload for hit_landed events.
type HitLandedPayload struct {
	AttackerID string     `json:"attacker_id"`
	TargetID   string     `json:"target_id"`
	Amount     int        `json:"amount"`
	DamageType DamageType `json:"damage_type"`
	Seed       uint32     `json:"seed"`
}

// LoopStoppedPayload is the JSON payload for loop_stopped events.
type LoopStoppedPayload struct {
	AttackerID string `json:"attacker_id"`
	TargetID   string `json:"target_id,omitempty"`
	Reason     string `json:"reason"`
}

// StateChangedPayload is the JSON payload for combat_state_changed events.
type StateChangedPayload struct {
	ActorID string `json:"actor_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// CombatEndedPayload is the JSON payload for combat_ended events.
type CombatEndedPayload struct {
	ActorID string `json:"actor_id"`
}

// ActorDiedPayload is the JSON payload for actor_died events.
type ActorDiedPayload struct {
	ActorID     string `json:"actor_id"`
	KillerID    string `json:"killer_id"`
	LootTableID string `json:"loot_table_id,omitempty"`
}

// Broadcaster distributes combat events to subscribers. Delivery is
// fire-and-forget: a slow subscriber loses events rather than stalling
// resolution, so nothing downstream can affect a combat outcome.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[string][]chan Event
	dropped func()
}

// NewBroadcaster creates a new broadcaster. onDrop, if non-nil, is invoked
// once per dropped event (metrics hook).
func NewBroadcaster(onDrop func()) *Broadcaster {
	return &Broadcaster{
		subs:    make(map[string][]chan Event),
		dropped: onDrop,
	}
}

// Subscribe creates a channel for receiving events on a stream.
func (b *Broadcaster) Subscribe(stream string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100)
	b.subs[stream] = append(b.subs[stream], ch)
	return ch
}

// Unsubscribe removes a channel from a stream.
func (b *Broadcaster) Unsubscribe(stream string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[stream]
	for i, sub := range subs {
		if sub == ch {
			b.subs[stream] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Broadcast sends an event to all subscribers of its stream.
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.Stream] {
		select {
		case ch <- event:
		default:
			if b.dropped != nil {
				b.dropped()
			}
			slog.Warn("combat event dropped: subscriber buffer full",
				"stream", event.Stream,
				"event_id", event.ID.String(),
				"event_type", event.Type,
			)
		}
	}
}
