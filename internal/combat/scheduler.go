// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import (
	"context"
	"time"
)

// Scheduler drives a World on a fixed tick. One cooperative task per actor:
// each tick advances every attack loop and evaluates every combat tracker in
// attach order, then fires due despawns. No actor's task blocks another's;
// waits are soft deadlines re-checked per tick, never hard preemption.
//
// All world mutation happens on the goroutine that calls Tick. That single
// authoritative context is what lets the death record and swing counter go
// unlocked: different attackers may resolve against one target within a tick,
// but never concurrently.
type Scheduler struct {
	world *World
}

// NewScheduler creates a scheduler for the given world.
func NewScheduler(world *World) *Scheduler {
	return &Scheduler{world: world}
}

// World returns the scheduled world.
func (s *Scheduler) World() *World {
	return s.world
}

// Tick advances the simulation to now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	w := s.world

	// Attach order keeps per-tick resolution deterministic.
	for _, id := range w.order {
		entry, ok := w.actors[id]
		if !ok {
			continue
		}
		entry.loop.Advance(ctx, now)
		entry.tracker.Evaluate(ctx, now)
	}

	for _, id := range w.dueDespawns(now) {
		w.deps.Despawner.Despawn(id)
	}
}

// Run ticks the world until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.world.cfg.TickInterval)
	defer ticker.Stop()

	s.world.logger.Info("combat scheduler started",
		"tick_interval", s.world.cfg.TickInterval.String(),
		"root_seed", s.world.cfg.RootSeed,
	)
	for {
		select {
		case <-ctx.Done():
			s.world.logger.Info("combat scheduler stopped")
			return ctx.Err()
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}
