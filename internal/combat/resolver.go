// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duskmire/duskmire/internal/rng"
	"github.com/duskmire/duskmire/pkg/errutil"
)

// Hit chance bounds: a swing can never be a guaranteed hit or miss.
const (
	baseHitChance = 0.5
	minHitChance  = 0.05
	maxHitChance  = 0.95
)

// SwingOutcome classifies one resolved swing attempt.
type SwingOutcome uint8

const (
	// SwingAborted means a precondition failed at resolution time. Expected
	// control flow, not an error: the world changed during the wait.
	SwingAborted SwingOutcome = iota
	// SwingMissed means the hit roll failed. The combat window refresh stands.
	SwingMissed
	// SwingHit means damage was applied.
	SwingHit
)

func (o SwingOutcome) String() string {
	switch o {
	case SwingAborted:
		return "aborted"
	case SwingMissed:
		return "miss"
	case SwingHit:
		return "hit"
	default:
		return "unknown"
	}
}

// Resolver turns attack attempts into hit/miss/damage/death outcomes. It is
// stateless; all mutable resolution state (death record, swing counter) lives
// on the owning World. The resolver is the only permitted path to apply
// damage.
type Resolver struct {
	world *World
}

// ResolveSwing resolves one weapon swing from attacker against target.
// Both actors are re-validated here regardless of earlier checks: schedule
// time and resolution time are different worlds.
func (r *Resolver) ResolveSwing(ctx context.Context, now time.Time, attacker, target Actor) SwingOutcome {
	w := r.world

	if !r.validate(attacker, target) {
		w.metrics.swing(outcomeAborted)
		return SwingAborted
	}

	// This attempt counts as a hostile resolution event for both parties,
	// hit or miss.
	r.refreshWindows(ctx, now, attacker, target)

	swingSeed := w.nextSwingSeed(attacker.ID(), target.ID())
	stream := rng.New(swingSeed)

	stats := attacker.CombatStats()
	targetStats := target.CombatStats()

	hitChance := clamp(baseHitChance+stats.HitBonus-targetStats.DefenseBonus, minHitChance, maxHitChance)
	if stream.Float01() > hitChance {
		w.metrics.swing(outcomeMiss)
		return SwingMissed
	}

	amount := rollDamage(stream, stats)
	packet := NewDamagePacket(attacker.ID(), target.ID(), amount, stats.DamageType, swingSeed, TagWeaponHit)
	r.applyPacket(ctx, now, packet)

	w.publish(ctx, now, target.ID(), EventHitLanded, HitLandedPayload{
		AttackerID: attacker.ID().String(),
		TargetID:   target.ID().String(),
		Amount:     packet.Amount,
		DamageType: packet.Type,
		Seed:       packet.Seed,
	})
	w.metrics.swing(outcomeHit)
	return SwingHit
}

// ResolveSpellDamage applies already-rolled spell damage through the same
// validation and application path as a swing, skipping the hit roll. The
// packet carries no combat-stream provenance (seed zero).
func (r *Resolver) ResolveSpellDamage(ctx context.Context, now time.Time, caster, target Actor, amount int, damageType DamageType) bool {
	if !r.validate(caster, target) {
		return false
	}
	r.refreshWindows(ctx, now, caster, target)

	packet := NewDamagePacket(caster.ID(), target.ID(), amount, damageType, 0, TagSpell)
	return r.applyPacket(ctx, now, packet)
}

// validate re-checks that both actors exist, are alive, and that the attacker
// is permitted to act. Failures abort silently with no side effects; the
// world legitimately changes between scheduling and resolution.
func (r *Resolver) validate(attacker, target Actor) bool {
	if attacker == nil || target == nil {
		return false
	}
	if _, ok := r.world.Actor(attacker.ID()); !ok {
		return false
	}
	if _, ok := r.world.Actor(target.ID()); !ok {
		return false
	}
	if !attacker.IsAlive() || !target.IsAlive() {
		return false
	}
	if !attacker.CanAttack() {
		return false
	}
	if verdict := r.world.deps.Gate.Check(attacker, target); !verdict.Allowed {
		return false
	}
	return true
}

func (r *Resolver) refreshWindows(ctx context.Context, now time.Time, attacker, target Actor) {
	if tracker, ok := r.world.Tracker(attacker.ID()); ok {
		tracker.RefreshWindow(ctx, now, target.ID())
	}
	if tracker, ok := r.world.Tracker(target.ID()); ok {
		tracker.RefreshWindow(ctx, now, attacker.ID())
	}
}

// applyPacket is the single code path that mutates target health. Zero-amount
// packets short-circuit before any mutation. Returns true when damage was
// applied.
func (r *Resolver) applyPacket(ctx context.Context, now time.Time, packet DamagePacket) bool {
	if packet.Amount == 0 {
		return false
	}
	target, ok := r.world.Actor(packet.TargetID)
	if !ok {
		return false
	}

	target.ApplyDamage(packet.Amount, packet.Type, packet.SourceID)
	r.world.metrics.damage(packet.Amount)

	if !target.IsAlive() {
		r.handleDeath(ctx, now, target, packet.SourceID)
	}
	return true
}

// handleDeath runs the death handoff exactly once per actor per death. The
// first lethal packet wins; later packets against the dead target no-op.
func (r *Resolver) handleDeath(ctx context.Context, now time.Time, victim Actor, killerID ulid.ULID) {
	w := r.world
	victimID := victim.ID()
	if !w.markDead(victimID) {
		return
	}

	if tracker, ok := w.Tracker(victimID); ok {
		tracker.MarkDead(ctx, now)
	}
	if loop, ok := w.Loop(victimID); ok {
		loop.StopEngagement(ctx, now, "died")
	}

	// The loot seed is deliberately not derived from the deterministic
	// combat stream: loot uniqueness must not be predictable from swing
	// seeds.
	lootSeed, err := newLootSeed()
	if err != nil {
		errutil.LogError(w.logger, "loot seed generation failed",
			oops.Code("COMBAT_LOOT_SEED_FAILED").With("victim_id", victimID.String()).Wrap(err))
	}

	lootTableID := w.deps.Loot.LootTableFor(victimID)
	req := CorpseRequest{
		VictimID:    victimID,
		Position:    victim.Position(),
		LootSeed:    lootSeed,
		LootTableID: lootTableID,
	}
	if err := w.deps.Corpses.SpawnCorpse(ctx, req); err != nil {
		errutil.LogError(w.logger, "corpse spawn failed",
			oops.Code("COMBAT_CORPSE_SPAWN_FAILED").With("victim_id", victimID.String()).Wrap(err))
	}

	w.scheduleDespawn(victimID, now)
	w.publish(ctx, now, victimID, EventActorDied, ActorDiedPayload{
		ActorID:     victimID.String(),
		KillerID:    killerID.String(),
		LootTableID: lootTableID,
	})
	w.metrics.death()
}

// rollDamage rolls uniformly over [MinDamage, MaxDamage] inclusive, scales by
// the damage increase, rounds, and floors at zero.
func rollDamage(stream *rng.Stream, stats StatBlock) int {
	base := stream.IntBetween(stats.MinDamage, stats.MaxDamage+1)
	scaled := math.Round(float64(base) * (1 + stats.DamageIncreasePercent))
	if scaled < 0 {
		return 0
	}
	return int(scaled)
}

// newLootSeed draws a cryptographically strong seed for death loot rolls.
func newLootSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
