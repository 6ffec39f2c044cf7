// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/duskmire/duskmire/internal/rng"
	"github.com/duskmire/duskmire/pkg/errutil"
)

// Deps bundles the external collaborators the engine consumes. Missing
// collaborators are logged loudly at construction and replaced with disabled
// no-ops; a partially wired world degrades rather than crashes.
type Deps struct {
	Gate       Gate
	Corpses    CorpseSpawner
	Loot       LootTableProvider
	Despawner  Despawner
	Sink       EventSink
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// World owns all per-simulation combat state: the actor registry, the death
// record, the swing sequence counter, and the collaborator wiring. Multiple
// independent worlds (tests, shards) never share mutable state.
//
// World is not internally locked. All mutation must happen on the single
// authoritative scheduler context; see Scheduler.
type World struct {
	cfg     Config
	deps    Deps
	logger  *slog.Logger
	events  *Broadcaster
	metrics *Metrics

	actors map[ulid.ULID]*actorEntry
	order  []ulid.ULID

	rootSeed  uint32
	dead      map[ulid.ULID]struct{}
	swingSeq  uint64
	despawnAt map[ulid.ULID]time.Time

	resolver *Resolver
}

type actorEntry struct {
	actor   Actor
	loop    *AttackLoop
	tracker *Tracker
}

// NewWorld constructs a combat world with the given tuning and collaborators.
func NewWorld(cfg Config, deps Deps) *World {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if deps.Gate == nil {
		errutil.LogError(logger, "combat world wiring incomplete",
			oops.Code("COMBAT_GATE_MISSING").Errorf("no legality gate attached; all engagements will be allowed"))
		deps.Gate = allowAllGate{}
	}
	if deps.Corpses == nil {
		errutil.LogError(logger, "combat world wiring incomplete",
			oops.Code("COMBAT_SPAWNER_MISSING").Errorf("no corpse spawner attached; deaths will not produce corpses"))
		deps.Corpses = noopCorpseSpawner{logger: logger}
	}
	if deps.Loot == nil {
		deps.Loot = emptyLootTables{}
	}
	if deps.Despawner == nil {
		errutil.LogError(logger, "combat world wiring incomplete",
			oops.Code("COMBAT_DESPAWNER_MISSING").Errorf("no despawner attached; victims will linger"))
		deps.Despawner = noopDespawner{}
	}
	if deps.Sink == nil {
		deps.Sink = NoopSink{}
	}
	if deps.Registerer == nil {
		deps.Registerer = prometheus.NewRegistry()
	}

	w := &World{
		cfg:       cfg.normalized(),
		deps:      deps,
		logger:    logger,
		actors:    make(map[ulid.ULID]*actorEntry),
		dead:      make(map[ulid.ULID]struct{}),
		despawnAt: make(map[ulid.ULID]time.Time),
	}
	w.rootSeed = rng.SeedFrom(w.cfg.RootSeed, "swing")
	w.metrics = NewMetrics(deps.Registerer)
	w.events = NewBroadcaster(w.metrics.eventDropped)
	w.resolver = &Resolver{world: w}
	return w
}

// Config returns the normalized engine tuning.
func (w *World) Config() Config {
	return w.cfg
}

// Events returns the broadcaster for cosmetic and observable event streams.
func (w *World) Events() *Broadcaster {
	return w.events
}

// Resolver returns the world's swing resolver.
func (w *World) Resolver() *Resolver {
	return w.resolver
}

// Attach registers an actor and creates its attack loop and combat tracker.
func (w *World) Attach(a Actor) error {
	if a == nil {
		return oops.Code("COMBAT_ACTOR_NIL").Errorf("cannot attach nil actor")
	}
	id := a.ID()
	if _, exists := w.actors[id]; exists {
		return oops.Code("COMBAT_ACTOR_DUPLICATE").With("actor_id", id.String()).
			Errorf("actor already attached")
	}

	entry := &actorEntry{actor: a}
	entry.loop = newAttackLoop(w, id)
	entry.tracker = newTracker(w, id, func(ctx context.Context, now time.Time) {
		entry.loop.StopEngagement(ctx, now, "combat_ended")
	})
	w.actors[id] = entry
	w.order = append(w.order, id)
	return nil
}

// Detach removes an actor and cancels any engagement it owns. now is the
// scheduler's simulated time; events stay on the authoritative clock.
func (w *World) Detach(ctx context.Context, now time.Time, id ulid.ULID) {
	entry, ok := w.actors[id]
	if !ok {
		return
	}
	entry.loop.StopEngagement(ctx, now, "detached")
	delete(w.actors, id)
	delete(w.despawnAt, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Actor returns an attached actor by id.
func (w *World) Actor(id ulid.ULID) (Actor, bool) {
	entry, ok := w.actors[id]
	if !ok {
		return nil, false
	}
	return entry.actor, true
}

// Tracker returns the combat-state tracker for an attached actor.
func (w *World) Tracker(id ulid.ULID) (*Tracker, bool) {
	entry, ok := w.actors[id]
	if !ok {
		return nil, false
	}
	return entry.tracker, true
}

// Loop returns the attack loop for an attached actor.
func (w *World) Loop(id ulid.ULID) (*AttackLoop, bool) {
	entry, ok := w.actors[id]
	if !ok {
		return nil, false
	}
	return entry.loop, true
}

// StartEngagement points the attacker's loop at a target.
func (w *World) StartEngagement(ctx context.Context, now time.Time, attackerID, targetID ulid.ULID) error {
	entry, ok := w.actors[attackerID]
	if !ok {
		return oops.Code("COMBAT_ATTACKER_UNKNOWN").With("actor_id", attackerID.String()).
			Errorf("attacker is not attached")
	}
	return entry.loop.StartEngagement(ctx, now, targetID)
}

// StopEngagement cancels the attacker's engagement, if any.
func (w *World) StopEngagement(ctx context.Context, now time.Time, attackerID ulid.ULID) {
	if entry, ok := w.actors[attackerID]; ok {
		entry.loop.StopEngagement(ctx, now, "stopped")
	}
}

// IsAttackingTarget reports whether the attacker's loop is currently engaged
// with the given target.
func (w *World) IsAttackingTarget(attackerID, targetID ulid.ULID) bool {
	entry, ok := w.actors[attackerID]
	if !ok {
		return false
	}
	return entry.loop.IsAttackingTarget(targetID)
}

// ForcePeaceful immediately resets an actor's combat window and cancels its
// scheduled combat actions. Used by scripted resets.
func (w *World) ForcePeaceful(ctx context.Context, now time.Time, id ulid.ULID) {
	if entry, ok := w.actors[id]; ok {
		entry.tracker.ForcePeaceful(ctx, now)
	}
}

// ResetForRespawn clears an actor's death record and combat state so a
// respawned actor can fight and die again.
func (w *World) ResetForRespawn(ctx context.Context, now time.Time, id ulid.ULID) {
	delete(w.dead, id)
	delete(w.despawnAt, id)
	if entry, ok := w.actors[id]; ok {
		entry.tracker.ResetForRespawn(ctx, now)
	}
}

// markDead records a death. Returns false when the actor's death was already
// handed off; later lethal packets in the same tick are dropped here.
func (w *World) markDead(id ulid.ULID) bool {
	if _, done := w.dead[id]; done {
		return false
	}
	w.dead[id] = struct{}{}
	return true
}

// nextSwingSeq advances the monotonic swing counter feeding seed derivation.
func (w *World) nextSwingSeq() uint64 {
	w.swingSeq++
	return w.swingSeq
}

// nextSwingSeed derives the seed for one swing from the world's root seed,
// both actor ids, and the swing counter. Worlds with different root seeds
// resolve the same command sequence differently; a zero mix is bumped to 1 so
// the "no provenance" seed stays reserved.
func (w *World) nextSwingSeed(attackerID, targetID ulid.ULID) uint32 {
	seed := rng.Combine(attackerID.String(), targetID.String(), w.nextSwingSeq()) ^ w.rootSeed
	if seed == 0 {
		seed = 1
	}
	return seed
}

func (w *World) scheduleDespawn(id ulid.ULID, now time.Time) {
	w.despawnAt[id] = now.Add(w.cfg.DespawnDelay)
}

// dueDespawns pops the victims whose despawn delay has elapsed.
func (w *World) dueDespawns(now time.Time) []ulid.ULID {
	var due []ulid.ULID
	for id, at := range w.despawnAt {
		if !now.Before(at) {
			due = append(due, id)
		}
	}
	for _, id := range due {
		delete(w.despawnAt, id)
	}
	return due
}

// publish records and broadcasts a combat event. Broadcast delivery is
// fire-and-forget; sink failures are logged and never affect outcomes.
func (w *World) publish(ctx context.Context, now time.Time, actorID ulid.ULID, typ EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		errutil.LogError(w.logger, "failed to marshal combat event payload",
			oops.Code("COMBAT_EVENT_MARSHAL_FAILED").With("event_type", string(typ)).Wrap(err))
		return
	}

	event := Event{
		ID:        NewEventID(),
		Stream:    ActorStream(actorID),
		Type:      typ,
		Timestamp: now,
		Payload:   data,
	}

	if err := w.deps.Sink.Record(ctx, event); err != nil {
		errutil.LogError(w.logger, "combat event sink failed",
			oops.Code("COMBAT_EVENT_SINK_FAILED").With("event_type", string(typ)).Wrap(err))
	}
	w.events.Broadcast(event)
}

// Disabled no-op collaborators used when wiring is incomplete.

type allowAllGate struct{}

func (allowAllGate) Check(_, _ Actor) Verdict { return Allow() }

type noopCorpseSpawner struct {
	logger *slog.Logger
}

func (s noopCorpseSpawner) SpawnCorpse(_ context.Context, req CorpseRequest) error {
	s.logger.Debug("corpse spawn skipped: no spawner attached", "victim_id", req.VictimID.String())
	return nil
}

type emptyLootTables struct{}

func (emptyLootTables) LootTableFor(_ ulid.ULID) string { return "" }

type noopDespawner struct{}

func (noopDespawner) Despawn(_ ulid.ULID) {}

// NoopSink discards events. The default sink when no journal is configured.
type NoopSink struct{}

// Record implements EventSink.
func (NoopSink) Record(_ context.Context, _ Event) error { return nil }
