// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

//go:build integration

package combat_test

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/duskmire/duskmire/internal/combat"
	"github.com/duskmire/duskmire/internal/combat/combattest"
)

// harness drives a world on a hand-cranked clock so specs advance simulated
// time without real sleeps.
type harness struct {
	world     *combat.World
	scheduler *combat.Scheduler
	gate      *combattest.Gate
	corpses   *combattest.CorpseSpawner
	loot      *combattest.LootTables
	despawner *combattest.Despawner
	sink      *combattest.Sink
	now       time.Time
	ctx       context.Context
}

func newHarness() *harness {
	h := &harness{
		gate:      combattest.AllowAll(),
		corpses:   &combattest.CorpseSpawner{},
		loot:      &combattest.LootTables{Tables: map[ulid.ULID]string{}},
		despawner: &combattest.Despawner{},
		sink:      &combattest.Sink{},
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ctx:       context.Background(),
	}
	h.world = combat.NewWorld(combat.Config{
		RootSeed:          "integration",
		TickInterval:      100 * time.Millisecond,
		DisengageDuration: 2 * time.Second,
		RetryDelay:        100 * time.Millisecond,
		MinSwingDuration:  100 * time.Millisecond,
		EvalInterval:      100 * time.Millisecond,
		DespawnDelay:      time.Second,
	}, combat.Deps{
		Gate:      h.gate,
		Corpses:   h.corpses,
		Loot:      h.loot,
		Despawner: h.despawner,
		Sink:      h.sink,
	})
	h.scheduler = combat.NewScheduler(h.world)
	return h
}

func (h *harness) attach(actors ...*combattest.Actor) {
	for _, a := range actors {
		Expect(h.world.Attach(a)).To(Succeed())
	}
}

func (h *harness) engage(attacker, target *combattest.Actor) {
	Expect(h.world.StartEngagement(h.ctx, h.now, attacker.ID(), target.ID())).To(Succeed())
}

// advance moves simulated time forward, ticking at the configured interval.
func (h *harness) advance(d time.Duration) {
	interval := h.world.Config().TickInterval
	deadline := h.now.Add(d)
	for h.now.Before(deadline) {
		h.now = h.now.Add(interval)
		h.scheduler.Tick(h.ctx, h.now)
	}
}

// fightUntilDeath advances until the victim dies or the time budget runs out.
func (h *harness) fightUntilDeath(victim *combattest.Actor, budget time.Duration) {
	deadline := h.now.Add(budget)
	for victim.IsAlive() && h.now.Before(deadline) {
		h.advance(h.world.Config().TickInterval)
	}
}

var _ = Describe("Engagement lifecycle", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness()
	})

	Describe("a fight to the death", func() {
		var attacker, victim *combattest.Actor

		BeforeEach(func() {
			attacker = combattest.NewActor(500)
			attacker.Stats.HitBonus = 2.0 // clamps to the 95% cap
			victim = combattest.NewActor(30)
			h.loot.Tables[victim.ID()] = "wolf-common"
			h.attach(attacker, victim)
			h.engage(attacker, victim)
		})

		It("kills the victim and hands off exactly one corpse", func() {
			h.fightUntilDeath(victim, time.Minute)

			Expect(victim.IsAlive()).To(BeFalse())
			Expect(h.corpses.Requests).To(HaveLen(1))

			req := h.corpses.Requests[0]
			Expect(req.VictimID).To(Equal(victim.ID()))
			Expect(req.LootTableID).To(Equal("wolf-common"))
			Expect(req.LootSeed).NotTo(BeZero())
		})

		It("publishes the death exactly once", func() {
			h.fightUntilDeath(victim, time.Minute)
			h.advance(time.Second)

			Expect(h.sink.Count(combat.EventActorDied)).To(Equal(1))
		})

		It("stops the winner's loop and marks the victim dead", func() {
			h.fightUntilDeath(victim, time.Minute)
			h.advance(5 * time.Second)

			Expect(h.world.IsAttackingTarget(attacker.ID(), victim.ID())).To(BeFalse())

			tracker, ok := h.world.Tracker(victim.ID())
			Expect(ok).To(BeTrue())
			Expect(tracker.State()).To(Equal(combat.StateDead))
		})

		It("despawns the victim after the configured delay", func() {
			h.fightUntilDeath(victim, time.Minute)

			Expect(h.despawner.Despawned).To(BeEmpty())
			h.advance(2 * time.Second)
			Expect(h.despawner.Despawned).To(ConsistOf(victim.ID()))
		})

		It("emits swing and hit events on the actor streams", func() {
			h.fightUntilDeath(victim, time.Minute)

			Expect(h.sink.Count(combat.EventSwingStarted)).To(BeNumerically(">", 0))
			Expect(h.sink.Count(combat.EventHitLanded)).To(BeNumerically(">", 0))

			for _, ev := range h.sink.Events {
				Expect(ev.Stream).To(HavePrefix("actor:"))
				Expect(ev.ID).NotTo(Equal(ulid.ULID{}))
			}
		})
	})

	Describe("combat state windows", func() {
		It("returns both actors to peaceful after the disengage window", func() {
			attacker := combattest.NewActor(500)
			attacker.Stats.HitBonus = 2.0
			target := combattest.NewActor(500)
			h.attach(attacker, target)
			h.engage(attacker, target)

			// Past the first completed swing, both sides carry a live window.
			h.advance(1500 * time.Millisecond)

			attackerTracker, _ := h.world.Tracker(attacker.ID())
			targetTracker, _ := h.world.Tracker(target.ID())
			Expect(attackerTracker.State()).To(Equal(combat.StateInCombat))
			Expect(targetTracker.State()).To(Equal(combat.StateInCombat))

			h.world.StopEngagement(h.ctx, h.now, attacker.ID())
			h.advance(3 * time.Second)

			Expect(attackerTracker.State()).To(Equal(combat.StatePeaceful))
			Expect(targetTracker.State()).To(Equal(combat.StatePeaceful))
		})

		It("keeps an out-of-range chase engaged without swinging", func() {
			attacker := combattest.NewActor(500)
			target := combattest.NewActor(500)
			target.Pos = combat.Position{X: 100, Y: 100}
			h.attach(attacker, target)
			h.engage(attacker, target)

			h.advance(5 * time.Second)

			Expect(h.world.IsAttackingTarget(attacker.ID(), target.ID())).To(BeTrue())
			Expect(target.DamageTaken).To(BeEmpty())
			Expect(h.sink.Count(combat.EventSwingStarted)).To(BeZero())
		})

		It("resumes swinging when the target comes back into range", func() {
			attacker := combattest.NewActor(500)
			attacker.Stats.HitBonus = 2.0
			target := combattest.NewActor(500)
			target.Pos = combat.Position{X: 100, Y: 100}
			h.attach(attacker, target)
			h.engage(attacker, target)

			h.advance(2 * time.Second)
			Expect(h.sink.Count(combat.EventSwingStarted)).To(BeZero())

			target.Pos = combat.Position{}
			h.advance(3 * time.Second)

			Expect(h.sink.Count(combat.EventSwingStarted)).To(BeNumerically(">", 0))
			Expect(target.DamageTaken).NotTo(BeEmpty())
		})
	})

	Describe("gate enforcement", func() {
		It("never damages a target the gate protects", func() {
			attacker := combattest.NewActor(500)
			target := combattest.NewActor(500)
			h.gate.Verdicts = map[ulid.ULID]combat.Verdict{
				attacker.ID(): combat.Deny("sanctuary"),
			}
			h.attach(attacker, target)
			h.engage(attacker, target)

			h.advance(5 * time.Second)

			Expect(target.DamageTaken).To(BeEmpty())
			Expect(h.world.IsAttackingTarget(attacker.ID(), target.ID())).To(BeTrue())
		})
	})

	Describe("multiple attackers", func() {
		It("credits one death and one corpse for a shared kill", func() {
			a1 := combattest.NewActor(500)
			a1.Stats.HitBonus = 2.0
			a2 := combattest.NewActor(500)
			a2.Stats.HitBonus = 2.0
			victim := combattest.NewActor(40)
			h.attach(a1, a2, victim)
			h.engage(a1, victim)
			h.engage(a2, victim)

			h.fightUntilDeath(victim, time.Minute)
			h.advance(time.Second)

			Expect(victim.IsAlive()).To(BeFalse())
			Expect(h.corpses.Requests).To(HaveLen(1))
			Expect(h.sink.Count(combat.EventActorDied)).To(Equal(1))
		})
	})

	Describe("determinism and loot", func() {
		It("resolves identical worlds identically", func() {
			run := func() []combattest.DamageCall {
				hh := newHarness()
				attacker := combattest.NewActor(500)
				attacker.ActorID = ulid.MustParse("01HZZZZZZZZZZZZZZZZZZZZZZA")
				victim := combattest.NewActor(60)
				victim.ActorID = ulid.MustParse("01HZZZZZZZZZZZZZZZZZZZZZZB")
				hh.attach(attacker, victim)
				hh.engage(attacker, victim)
				hh.fightUntilDeath(victim, time.Minute)
				return victim.DamageTaken
			}

			Expect(run()).To(Equal(run()))
		})

		It("issues fresh loot seeds across identical kills", func() {
			seedOf := func() int64 {
				hh := newHarness()
				attacker := combattest.NewActor(500)
				attacker.ActorID = ulid.MustParse("01HZZZZZZZZZZZZZZZZZZZZZZA")
				attacker.Stats.HitBonus = 2.0
				victim := combattest.NewActor(20)
				victim.ActorID = ulid.MustParse("01HZZZZZZZZZZZZZZZZZZZZZZB")
				hh.attach(attacker, victim)
				hh.engage(attacker, victim)
				hh.fightUntilDeath(victim, time.Minute)
				Expect(hh.corpses.Requests).To(HaveLen(1))
				return hh.corpses.Requests[0].LootSeed
			}

			Expect(seedOf()).NotTo(Equal(seedOf()))
		})
	})

	Describe("respawn", func() {
		It("lets a reset victim fight and die again", func() {
			attacker := combattest.NewActor(500)
			attacker.Stats.HitBonus = 2.0
			victim := combattest.NewActor(20)
			h.attach(attacker, victim)
			h.engage(attacker, victim)

			h.fightUntilDeath(victim, time.Minute)
			Expect(victim.IsAlive()).To(BeFalse())

			victim.HP = 20
			h.world.ResetForRespawn(h.ctx, h.now, victim.ID())

			h.engage(attacker, victim)
			h.fightUntilDeath(victim, time.Minute)

			Expect(victim.IsAlive()).To(BeFalse())
			Expect(h.sink.Count(combat.EventActorDied)).To(Equal(2))
			Expect(h.corpses.Requests).To(HaveLen(2))
		})
	})
})
