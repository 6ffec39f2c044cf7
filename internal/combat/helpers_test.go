// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/duskmire/duskmire/internal/combat"
	"github.com/duskmire/duskmire/internal/combat/combattest"
)

// fixture wires a world with recording collaborators and a hand-cranked
// clock. Tests advance simulated time; nothing sleeps.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	world *combat.World
	sched *combat.Scheduler

	gate      *combattest.Gate
	corpses   *combattest.CorpseSpawner
	loot      *combattest.LootTables
	despawner *combattest.Despawner
	sink      *combattest.Sink

	now time.Time
}

func testConfig() combat.Config {
	return combat.Config{
		RootSeed:          "test",
		TickInterval:      100 * time.Millisecond,
		DisengageDuration: 2 * time.Second,
		RetryDelay:        100 * time.Millisecond,
		MinSwingDuration:  100 * time.Millisecond,
		EvalInterval:      100 * time.Millisecond,
		DespawnDelay:      1 * time.Second,
	}
}

func newFixture(t *testing.T, cfg combat.Config) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		gate:      combattest.AllowAll(),
		corpses:   &combattest.CorpseSpawner{},
		loot:      &combattest.LootTables{},
		despawner: &combattest.Despawner{},
		sink:      &combattest.Sink{},
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.world = combat.NewWorld(cfg, combat.Deps{
		Gate:       f.gate,
		Corpses:    f.corpses,
		Loot:       f.loot,
		Despawner:  f.despawner,
		Sink:       f.sink,
		Registerer: prometheus.NewRegistry(),
	})
	f.sched = combat.NewScheduler(f.world)
	return f
}

// attach registers an actor and fails the test on wiring errors.
func (f *fixture) attach(a combat.Actor) {
	f.t.Helper()
	require.NoError(f.t, f.world.Attach(a))
}

// tick advances one tick interval and runs the scheduler.
func (f *fixture) tick() {
	f.now = f.now.Add(f.world.Config().TickInterval)
	f.sched.Tick(f.ctx, f.now)
}

// advance runs whole ticks until at least d of simulated time has passed.
func (f *fixture) advance(d time.Duration) {
	deadline := f.now.Add(d)
	for f.now.Before(deadline) {
		f.tick()
	}
}

func mustULID(s string) ulid.ULID {
	return ulid.MustParse(s)
}

// engage starts an engagement at the current simulated time.
func (f *fixture) engage(attacker, target *combattest.Actor) {
	f.t.Helper()
	require.NoError(f.t, f.world.StartEngagement(f.ctx, f.now, attacker.ID(), target.ID()))
}
