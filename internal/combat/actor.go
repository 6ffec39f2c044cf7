// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

// Package combat implements the server-authoritative combat engine: per-actor
// attack loops, combat-state tracking, and swing resolution with reproducible
// randomness. The engine never inspects concrete actor kinds; everything it
// needs from the surrounding game is expressed as capability interfaces.
package combat

import (
	"context"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
)

// Position is a 2D world position.
type Position struct {
	X float64
	Y float64
}

// Distance returns the euclidean distance between two positions.
func Distance(a, b Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Hypot(dx, dy)
}

// StatBlock is a snapshot of the weapon and status state that feeds one swing.
// Values are read fresh each cycle; equipment aggregation happens outside the
// engine.
type StatBlock struct {
	MinDamage             int
	MaxDamage             int
	DamageIncreasePercent float64
	DamageType            DamageType
	HitBonus              float64
	DefenseBonus          float64
	SwingDuration         time.Duration
	ResourceCostPerSwing  int
	MaxRange              float64
}

// Actor is the capability surface the engine consumes. Implementations live
// with the game server; the engine only relies on liveness, permission,
// position, damage application, resource spend, and weapon stats.
type Actor interface {
	ID() ulid.ULID
	IsAlive() bool
	CanAttack() bool
	Position() Position
	CombatStats() StatBlock

	// ApplyDamage applies a resolved damage amount. Implementations own hit
	// points; the engine observes the result through IsAlive.
	ApplyDamage(amount int, damageType DamageType, sourceID ulid.ULID)

	// TrySpendResource deducts the per-swing resource cost. Returns false
	// without mutation when the actor cannot afford it.
	TrySpendResource(amount int) bool
}

// Verdict is a legality gate answer.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Allow returns an allowing verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Deny returns a denying verdict with a reason for the external UI layer.
func Deny(reason string) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}

// Gate answers "may this attacker act on this target now". It is consulted at
// engagement scheduling and again at swing resolution, since world state can
// change during waits. The engine adds only its own liveness, range, and
// resource checks on top.
type Gate interface {
	Check(attacker, target Actor) Verdict
}

// CorpseRequest carries everything the external corpse/loot spawner needs.
type CorpseRequest struct {
	VictimID    ulid.ULID
	Position    Position
	LootSeed    int64
	LootTableID string
}

// CorpseSpawner spawns a corpse and hands off the loot context on death.
type CorpseSpawner interface {
	SpawnCorpse(ctx context.Context, req CorpseRequest) error
}

// LootTableProvider resolves an optional victim-specific loot table id.
// A blank return preserves any default loot configuration downstream.
type LootTableProvider interface {
	LootTableFor(victimID ulid.ULID) string
}

// Despawner removes a victim from the scene once its despawn delay elapses.
type Despawner interface {
	Despawn(victimID ulid.ULID)
}

// EventSink receives every published combat event, typically for journaling.
type EventSink interface {
	Record(ctx context.Context, event Event) error
}
