// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskmire/duskmire/internal/combat"
	"github.com/duskmire/duskmire/internal/combat/combattest"
)

func TestAttackLoop_StartEngagement(t *testing.T) {
	t.Run("unknown target is rejected", func(t *testing.T) {
		f := newFixture(t, testConfig())
		attacker := combattest.NewActor(100)
		stranger := combattest.NewActor(100)
		f.attach(attacker)

		err := f.world.StartEngagement(f.ctx, f.now, attacker.ID(), stranger.ID())
		assert.Error(t, err)
	})

	t.Run("same target is a no-op", func(t *testing.T) {
		f := newFixture(t, testConfig())
		attacker := combattest.NewActor(100)
		target := combattest.NewActor(100)
		f.attach(attacker)
		f.attach(target)

		f.engage(attacker, target)
		loop, _ := f.world.Loop(attacker.ID())

		// Run partway into a swing, then spam-restart with the same target.
		f.tick()
		require.Equal(t, combat.PhaseSwinging, loop.Phase())
		require.NoError(t, f.world.StartEngagement(f.ctx, f.now, attacker.ID(), target.ID()))

		assert.Equal(t, combat.PhaseSwinging, loop.Phase(), "re-issuing the same target must not restart the cycle")
	})

	t.Run("different target replaces the engagement", func(t *testing.T) {
		f := newFixture(t, testConfig())
		attacker := combattest.NewActor(100)
		first := combattest.NewActor(100)
		second := combattest.NewActor(100)
		f.attach(attacker)
		f.attach(first)
		f.attach(second)

		f.engage(attacker, first)
		f.engage(attacker, second)

		assert.True(t, f.world.IsAttackingTarget(attacker.ID(), second.ID()))
		assert.False(t, f.world.IsAttackingTarget(attacker.ID(), first.ID()))
	})
}

func TestAttackLoop_StopEngagement(t *testing.T) {
	f := newFixture(t, testConfig())
	attacker := combattest.NewActor(100)
	target := combattest.NewActor(100)
	f.attach(attacker)
	f.attach(target)

	loop, _ := f.world.Loop(attacker.ID())

	// Idempotent on an idle loop: no event, no error.
	f.world.StopEngagement(f.ctx, f.now, attacker.ID())
	assert.Zero(t, f.sink.Count(combat.EventLoopStopped))

	f.engage(attacker, target)
	f.world.StopEngagement(f.ctx, f.now, attacker.ID())

	assert.False(t, loop.Engaged())
	assert.Equal(t, combat.PhaseIdle, loop.Phase())
	assert.Equal(t, 1, f.sink.Count(combat.EventLoopStopped))
}

func TestAttackLoop_SwingCycleResolves(t *testing.T) {
	f := newFixture(t, testConfig())
	attacker := combattest.NewActor(100)
	target := combattest.NewActor(1000)
	attacker.Stats.SwingDuration = 200 * time.Millisecond
	attacker.Stats.HitBonus = 2 // clamps to the 95% ceiling
	f.attach(attacker)
	f.attach(target)

	f.engage(attacker, target)
	f.advance(10 * time.Second)

	assert.Greater(t, attacker.ResourceSpent, 0, "completed swings consume the resource")
	assert.NotEmpty(t, target.DamageTaken, "a 95% hit chance over many swings must land")
	assert.Greater(t, f.sink.Count(combat.EventSwingStarted), 1)
	assert.Equal(t, len(target.DamageTaken), f.sink.Count(combat.EventHitLanded))
}

func TestAttackLoop_OutOfRangeChase(t *testing.T) {
	f := newFixture(t, testConfig())
	attacker := combattest.NewActor(100)
	target := combattest.NewActor(100)
	target.Pos = combat.Position{X: 100} // beyond the 5 unit range
	f.attach(attacker)
	f.attach(target)

	f.engage(attacker, target)
	startResource := attacker.Resource
	f.advance(5 * time.Second)

	loop, _ := f.world.Loop(attacker.ID())
	assert.True(t, loop.Engaged(), "out of range never terminates the engagement")
	assert.Empty(t, target.DamageTaken, "no swing resolves out of range")
	assert.Equal(t, startResource, attacker.Resource, "no resource spent while chasing")
	assert.Zero(t, f.sink.Count(combat.EventSwingStarted), "no swing even starts out of range")
}

func TestAttackLoop_TargetMovesAwayMidSwing(t *testing.T) {
	f := newFixture(t, testConfig())
	attacker := combattest.NewActor(100)
	target := combattest.NewActor(100)
	attacker.Stats.SwingDuration = 300 * time.Millisecond
	f.attach(attacker)
	f.attach(target)

	f.engage(attacker, target)
	f.tick() // swing starts
	require.Equal(t, 1, f.sink.Count(combat.EventSwingStarted))

	target.Pos = combat.Position{X: 100}
	f.advance(time.Second)

	loop, _ := f.world.Loop(attacker.ID())
	assert.True(t, loop.Engaged())
	assert.Empty(t, target.DamageTaken, "the post-wait range re-check must drop the swing")
	assert.Zero(t, attacker.ResourceSpent, "an unresolved swing costs nothing")
}

func TestAttackLoop_TargetDiesMidSwing(t *testing.T) {
	f := newFixture(t, testConfig())
	attacker := combattest.NewActor(100)
	target := combattest.NewActor(100)
	attacker.Stats.SwingDuration = 300 * time.Millisecond
	f.attach(attacker)
	f.attach(target)

	f.engage(attacker, target)
	f.tick() // swing starts
	require.Equal(t, 1, f.sink.Count(combat.EventSwingStarted))

	// Another source kills the target during the wait.
	killer := combattest.NewActor(100)
	f.attach(killer)
	require.True(t, f.world.Resolver().ResolveSpellDamage(f.ctx, f.now, killer, target, 100, combat.DamageFire))
	require.False(t, target.IsAlive())
	require.Len(t, f.corpses.Requests, 1)

	f.advance(time.Second)

	loop, _ := f.world.Loop(attacker.ID())
	assert.False(t, loop.Engaged(), "a dead target ends the engagement on re-validation")
	assert.Len(t, target.DamageTaken, 1, "only the killing spell ever touched the target")
	assert.Len(t, f.corpses.Requests, 1, "no duplicate death handoff")
}

func TestAttackLoop_GateDeniedIdlesAndRechecks(t *testing.T) {
	f := newFixture(t, testConfig())
	attacker := combattest.NewActor(100)
	target := combattest.NewActor(100)
	attacker.Stats.SwingDuration = 200 * time.Millisecond
	attacker.Stats.HitBonus = 2
	f.attach(attacker)
	f.attach(target)

	f.gate.Default = combat.Deny("sanctuary")
	f.engage(attacker, target)
	f.advance(time.Second)

	loop, _ := f.world.Loop(attacker.ID())
	assert.True(t, loop.Engaged(), "a denied gate idles the loop, it does not cancel it")
	assert.Zero(t, f.sink.Count(combat.EventSwingStarted))

	// Permission restored: the loop picks the cycle back up.
	f.gate.Default = combat.Allow()
	f.advance(2 * time.Second)
	assert.Greater(t, f.sink.Count(combat.EventSwingStarted), 0)
}

func TestAttackLoop_InsufficientResourceKeepsEngagement(t *testing.T) {
	f := newFixture(t, testConfig())
	attacker := combattest.NewActor(100)
	target := combattest.NewActor(100)
	attacker.Stats.SwingDuration = 200 * time.Millisecond
	attacker.Resource = 5 // below the per-swing cost of 10
	f.attach(attacker)
	f.attach(target)

	f.engage(attacker, target)
	f.advance(2 * time.Second)

	loop, _ := f.world.Loop(attacker.ID())
	assert.True(t, loop.Engaged(), "resource starvation idles the loop, engagement stays alive")
	assert.Empty(t, target.DamageTaken)
	assert.Zero(t, attacker.ResourceSpent)

	attacker.Resource = 100
	f.advance(2 * time.Second)
	assert.Greater(t, attacker.ResourceSpent, 0)
}

func TestAttackLoop_MinimumSwingDurationFloor(t *testing.T) {
	f := newFixture(t, testConfig())
	attacker := combattest.NewActor(100)
	target := combattest.NewActor(100)
	attacker.Stats.SwingDuration = time.Millisecond // below the 100ms floor
	f.attach(attacker)
	f.attach(target)

	f.engage(attacker, target)
	f.tick()

	require.Equal(t, 1, f.sink.Count(combat.EventSwingStarted))
	var payload combat.SwingStartedPayload
	for _, ev := range f.sink.Events {
		if ev.Type == combat.EventSwingStarted {
			require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		}
	}
	assert.Equal(t, f.world.Config().MinSwingDuration, payload.Duration)
}
