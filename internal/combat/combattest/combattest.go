// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

// Package combattest provides stub actors and collaborators for combat
// engine tests.
package combattest

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/duskmire/duskmire/internal/combat"
)

// Actor is a configurable stub implementing combat.Actor.
type Actor struct {
	ActorID  ulid.ULID
	HP       int
	Resource int
	Attack   bool
	Pos      combat.Position
	Stats    combat.StatBlock

	// DamageTaken records every ApplyDamage call in order.
	DamageTaken []DamageCall
	// ResourceSpent counts successful TrySpendResource calls.
	ResourceSpent int

	// OnDamage, if set, runs after each damage application.
	OnDamage func(a *Actor)
}

// DamageCall records one ApplyDamage invocation.
type DamageCall struct {
	Amount   int
	Type     combat.DamageType
	SourceID ulid.ULID
}

// NewActor creates a live stub actor with sane melee defaults.
func NewActor(hp int) *Actor {
	return &Actor{
		ActorID:  ulid.Make(),
		HP:       hp,
		Resource: 1000,
		Attack:   true,
		Stats: combat.StatBlock{
			MinDamage:            5,
			MaxDamage:            5,
			DamageType:           combat.DamagePhysical,
			SwingDuration:        time.Second,
			ResourceCostPerSwing: 10,
			MaxRange:             5,
		},
	}
}

// ID implements combat.Actor.
func (a *Actor) ID() ulid.ULID { return a.ActorID }

// IsAlive implements combat.Actor.
func (a *Actor) IsAlive() bool { return a.HP > 0 }

// CanAttack implements combat.Actor.
func (a *Actor) CanAttack() bool { return a.Attack }

// Position implements combat.Actor.
func (a *Actor) Position() combat.Position { return a.Pos }

// CombatStats implements combat.Actor.
func (a *Actor) CombatStats() combat.StatBlock { return a.Stats }

// ApplyDamage implements combat.Actor.
func (a *Actor) ApplyDamage(amount int, damageType combat.DamageType, sourceID ulid.ULID) {
	a.DamageTaken = append(a.DamageTaken, DamageCall{Amount: amount, Type: damageType, SourceID: sourceID})
	a.HP -= amount
	if a.OnDamage != nil {
		a.OnDamage(a)
	}
}

// TrySpendResource implements combat.Actor.
func (a *Actor) TrySpendResource(amount int) bool {
	if a.Resource < amount {
		return false
	}
	a.Resource -= amount
	a.ResourceSpent++
	return true
}

// Gate is a scriptable legality gate.
type Gate struct {
	// Verdicts maps attacker id to a fixed verdict. Unlisted attackers
	// fall through to Default.
	Verdicts map[ulid.ULID]combat.Verdict
	Default  combat.Verdict
	Checks   int
}

// AllowAll returns a gate that permits everything.
func AllowAll() *Gate {
	return &Gate{Default: combat.Allow()}
}

// DenyAll returns a gate that refuses everything with the given reason.
func DenyAll(reason string) *Gate {
	return &Gate{Default: combat.Deny(reason)}
}

// Check implements combat.Gate.
func (g *Gate) Check(attacker, _ combat.Actor) combat.Verdict {
	g.Checks++
	if v, ok := g.Verdicts[attacker.ID()]; ok {
		return v
	}
	return g.Default
}

// CorpseSpawner records corpse requests.
type CorpseSpawner struct {
	Requests []combat.CorpseRequest
	Err      error
}

// SpawnCorpse implements combat.CorpseSpawner.
func (s *CorpseSpawner) SpawnCorpse(_ context.Context, req combat.CorpseRequest) error {
	s.Requests = append(s.Requests, req)
	return s.Err
}

// LootTables serves a fixed mapping of victim to loot table id.
type LootTables struct {
	Tables map[ulid.ULID]string
}

// LootTableFor implements combat.LootTableProvider.
func (l *LootTables) LootTableFor(victimID ulid.ULID) string {
	if l.Tables == nil {
		return ""
	}
	return l.Tables[victimID]
}

// Despawner records despawn requests.
type Despawner struct {
	Despawned []ulid.ULID
}

// Despawn implements combat.Despawner.
func (d *Despawner) Despawn(victimID ulid.ULID) {
	d.Despawned = append(d.Despawned, victimID)
}

// Sink collects every published event in order.
type Sink struct {
	Events []combat.Event
	Err    error
}

// Record implements combat.EventSink.
func (s *Sink) Record(_ context.Context, event combat.Event) error {
	s.Events = append(s.Events, event)
	if s.Err != nil {
		return s.Err
	}
	return nil
}

// TypesOf returns the recorded event types in order.
func (s *Sink) TypesOf() []combat.EventType {
	types := make([]combat.EventType, 0, len(s.Events))
	for _, ev := range s.Events {
		types = append(types, ev.Type)
	}
	return types
}

// Count returns how many recorded events have the given type.
func (s *Sink) Count(typ combat.EventType) int {
	n := 0
	for _, ev := range s.Events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}
