// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// LoopPhase is the explicit phase of an attack loop's recurring cycle.
type LoopPhase uint8

const (
	// PhaseIdle means no engagement.
	PhaseIdle LoopPhase = iota
	// PhaseSeeking means engaged and waiting for gate, range, or resource.
	PhaseSeeking
	// PhaseSwinging means a swing is in flight until resumeAt.
	PhaseSwinging
)

func (p LoopPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSeeking:
		return "seeking"
	case PhaseSwinging:
		return "swinging"
	default:
		return "unknown"
	}
}

// AttackLoop owns one attacker's engagement: at most one active target,
// replaced wholesale on re-target. The loop decides when a swing starts and
// completes; the resolver decides what it does.
//
// Leaving range never terminates an engagement. The loop idles and keeps
// checking ("chase"); only explicit stop, death, or loss of legality end it.
type AttackLoop struct {
	world      *World
	attackerID ulid.ULID

	targetID ulid.ULID
	engaged  bool
	phase    LoopPhase
	resumeAt time.Time
}

func newAttackLoop(w *World, attackerID ulid.ULID) *AttackLoop {
	return &AttackLoop{world: w, attackerID: attackerID}
}

// Engaged reports whether the loop has an active engagement.
func (l *AttackLoop) Engaged() bool {
	return l.engaged
}

// Phase returns the loop's current phase.
func (l *AttackLoop) Phase() LoopPhase {
	return l.phase
}

// TargetID returns the current target, or the zero ULID when idle.
func (l *AttackLoop) TargetID() ulid.ULID {
	return l.targetID
}

// IsAttackingTarget reports whether the loop is running and engaged with id.
func (l *AttackLoop) IsAttackingTarget(id ulid.ULID) bool {
	return l.engaged && l.targetID == id
}

// StartEngagement engages the attacker with a target. Re-issuing the same
// target is a no-op; a different target replaces the engagement wholesale.
func (l *AttackLoop) StartEngagement(ctx context.Context, now time.Time, targetID ulid.ULID) error {
	if _, ok := l.world.Actor(targetID); !ok {
		return oops.Code("COMBAT_TARGET_UNKNOWN").With("target_id", targetID.String()).
			Errorf("target is not attached")
	}
	if l.engaged && l.targetID == targetID {
		// Spam-restart guard: same target keeps the running cycle.
		return nil
	}
	if !l.engaged {
		l.world.metrics.engagement(1)
	}
	_ = ctx
	l.targetID = targetID
	l.engaged = true
	l.phase = PhaseSeeking
	l.resumeAt = now
	return nil
}

// StopEngagement cancels the cycle and clears the target. A stopped loop
// never resolves an in-flight swing. Idempotent on an idle loop.
func (l *AttackLoop) StopEngagement(ctx context.Context, now time.Time, reason string) {
	if !l.engaged {
		return
	}
	target := l.targetID
	l.engaged = false
	l.targetID = ulid.ULID{}
	l.phase = PhaseIdle
	l.resumeAt = time.Time{}
	l.world.metrics.engagement(-1)
	l.world.publish(ctx, now, l.attackerID, EventLoopStopped, LoopStoppedPayload{
		AttackerID: l.attackerID.String(),
		TargetID:   target.String(),
		Reason:     reason,
	})
}

// Advance runs the loop's cycle for one tick. The scheduler calls it on every
// tick; the loop suspends itself by setting resumeAt and returning.
func (l *AttackLoop) Advance(ctx context.Context, now time.Time) {
	if !l.engaged || now.Before(l.resumeAt) {
		return
	}

	attacker, okA := l.world.Actor(l.attackerID)
	target, okT := l.world.Actor(l.targetID)
	if !okA || !okT || !attacker.IsAlive() || !target.IsAlive() {
		l.StopEngagement(ctx, now, "invalid_actor")
		return
	}

	switch l.phase {
	case PhaseSwinging:
		l.completeSwing(ctx, now, attacker, target)
	default:
		l.beginSwing(ctx, now, attacker, target)
	}
}

// beginSwing checks gate and range, then starts the swing wait.
func (l *AttackLoop) beginSwing(ctx context.Context, now time.Time, attacker, target Actor) {
	if verdict := l.world.deps.Gate.Check(attacker, target); !verdict.Allowed {
		l.phase = PhaseSeeking
		l.resumeAt = now.Add(l.world.cfg.RetryDelay)
		return
	}

	stats := attacker.CombatStats()
	if Distance(attacker.Position(), target.Position()) > stats.MaxRange {
		// Chase: out of range suspends resolution, never the engagement.
		l.phase = PhaseSeeking
		l.resumeAt = now.Add(l.world.cfg.RetryDelay)
		return
	}

	duration := stats.SwingDuration
	if duration < l.world.cfg.MinSwingDuration {
		duration = l.world.cfg.MinSwingDuration
	}

	l.world.publish(ctx, now, l.attackerID, EventSwingStarted, SwingStartedPayload{
		AttackerID: l.attackerID.String(),
		TargetID:   l.targetID.String(),
		Duration:   duration,
	})
	if tracker, ok := l.world.Tracker(l.attackerID); ok {
		// Validated hostile intent opens the attacker's combat window.
		tracker.RefreshWindow(ctx, now, l.targetID)
	}

	l.phase = PhaseSwinging
	l.resumeAt = now.Add(duration)
}

// completeSwing re-validates after the wait, spends the resource, and hands
// the outcome to the resolver.
func (l *AttackLoop) completeSwing(ctx context.Context, now time.Time, attacker, target Actor) {
	stats := attacker.CombatStats()
	if Distance(attacker.Position(), target.Position()) > stats.MaxRange {
		// Target moved during the wait: back to seeking, nothing resolves.
		l.phase = PhaseSeeking
		l.resumeAt = now
		return
	}

	// Spent before the hit roll: a miss still costs the resource.
	if !attacker.TrySpendResource(stats.ResourceCostPerSwing) {
		l.phase = PhaseSeeking
		l.resumeAt = now.Add(l.world.cfg.RetryDelay)
		return
	}

	l.world.resolver.ResolveSwing(ctx, now, attacker, target)
	l.phase = PhaseSeeking
	l.resumeAt = now
}
