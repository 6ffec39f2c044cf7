// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// CombatState classifies an actor's aggregate combat status.
type CombatState uint8

const (
	// StatePeaceful means no live combat window.
	StatePeaceful CombatState = iota
	// StateInCombat means the combat-until deadline is in the future.
	StateInCombat
	// StateDead is terminal until an external respawn resets it.
	StateDead
)

func (s CombatState) String() string {
	switch s {
	case StatePeaceful:
		return "peaceful"
	case StateInCombat:
		return "in_combat"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Tracker derives an actor's combat state from a single monotonic
// combat-until deadline. It is independent of any attack loop: an endless
// out-of-range chase still times out here, and damage from a source with no
// loop still opens the window.
type Tracker struct {
	world   *World
	actorID ulid.ULID

	state       CombatState
	combatUntil time.Time
	lastFoe     ulid.ULID
	lastEval    time.Time

	// cancel force-stops the actor's scheduled combat actions when the
	// window closes, even mid-chase.
	cancel func(ctx context.Context, now time.Time)
}

func newTracker(w *World, id ulid.ULID, cancel func(ctx context.Context, now time.Time)) *Tracker {
	return &Tracker{
		world:   w,
		actorID: id,
		cancel:  cancel,
	}
}

// State returns the current combat state.
func (t *Tracker) State() CombatState {
	return t.state
}

// CombatUntil returns the current window deadline. Zero when no hostile
// event has been recorded since the last reset.
func (t *Tracker) CombatUntil() time.Time {
	return t.combatUntil
}

// LastCounterparty returns the most recent hostile counterparty.
func (t *Tracker) LastCounterparty() ulid.ULID {
	return t.lastFoe
}

// RefreshWindow extends the combat window for a hostile event involving foe.
// Overlapping events only ever push the deadline out, never pull it in.
// Called on validated hostile intent and on hostile resolution, never on
// mere target selection. No-op for dead actors.
func (t *Tracker) RefreshWindow(ctx context.Context, now time.Time, foe ulid.ULID) {
	if t.state == StateDead {
		return
	}
	if deadline := now.Add(t.world.cfg.DisengageDuration); deadline.After(t.combatUntil) {
		t.combatUntil = deadline
	}
	t.lastFoe = foe
	if t.state != StateInCombat {
		t.setState(ctx, now, StateInCombat)
	}
}

// Evaluate closes the window once the deadline passes. Evaluations are
// throttled to at most one per EvalInterval to limit per-tick churn, so the
// Peaceful transition lands within one evaluation interval of the deadline.
func (t *Tracker) Evaluate(ctx context.Context, now time.Time) {
	if t.state != StateInCombat {
		return
	}
	if now.Sub(t.lastEval) < t.world.cfg.EvalInterval {
		return
	}
	t.lastEval = now
	if now.Before(t.combatUntil) {
		return
	}

	t.setState(ctx, now, StatePeaceful)
	if t.cancel != nil {
		t.cancel(ctx, now)
	}
	t.world.publish(ctx, now, t.actorID, EventCombatEnded, CombatEndedPayload{
		ActorID: t.actorID.String(),
	})
}

// ForcePeaceful unconditionally resets the window and cancels scheduled
// combat actions. Used by scripted resets.
func (t *Tracker) ForcePeaceful(ctx context.Context, now time.Time) {
	t.combatUntil = time.Time{}
	t.lastFoe = ulid.ULID{}
	if t.state != StatePeaceful {
		t.setState(ctx, now, StatePeaceful)
	}
	if t.cancel != nil {
		t.cancel(ctx, now)
	}
}

// MarkDead moves the tracker to its terminal state and clears the window.
func (t *Tracker) MarkDead(ctx context.Context, now time.Time) {
	if t.state == StateDead {
		return
	}
	t.combatUntil = time.Time{}
	t.setState(ctx, now, StateDead)
}

// ResetForRespawn returns a dead tracker to Peaceful. Called by the external
// respawn path via World.ResetForRespawn.
func (t *Tracker) ResetForRespawn(ctx context.Context, now time.Time) {
	t.combatUntil = time.Time{}
	t.lastFoe = ulid.ULID{}
	t.lastEval = time.Time{}
	if t.state != StatePeaceful {
		t.setState(ctx, now, StatePeaceful)
	}
}

func (t *Tracker) setState(ctx context.Context, now time.Time, next CombatState) {
	prev := t.state
	t.state = next
	t.world.publish(ctx, now, t.actorID, EventCombatStateChanged, StateChangedPayload{
		ActorID: t.actorID.String(),
		From:    prev.String(),
		To:      next.String(),
	})
}
