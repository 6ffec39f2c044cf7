// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import (
	"slices"

	"github.com/oklog/ulid/v2"
)

// DamageType classifies a damage application.
type DamageType string

const (
	DamagePhysical DamageType = "physical"
	DamageFire     DamageType = "fire"
	DamageFrost    DamageType = "frost"
	DamageShadow   DamageType = "shadow"
)

// Tag marks the provenance of a damage packet.
type Tag string

const (
	// TagWeaponHit marks damage produced by a resolved weapon swing.
	TagWeaponHit Tag = "weapon_hit"
	// TagSpell marks damage whose hit resolution happened elsewhere.
	TagSpell Tag = "spell"
)

// DamagePacket is an immutable description of one atomic damage event.
// Seed records the combat stream that produced the amount; zero means the
// packet has no deterministic provenance (spells, scripted damage).
type DamagePacket struct {
	SourceID ulid.ULID
	TargetID ulid.ULID
	Amount   int
	Type     DamageType
	Seed     uint32
	tags     []Tag
}

// NewDamagePacket builds a packet. Negative amounts are floored at zero;
// a zero amount is a valid no-op packet.
func NewDamagePacket(source, target ulid.ULID, amount int, damageType DamageType, seed uint32, tags ...Tag) DamagePacket {
	if amount < 0 {
		amount = 0
	}
	return DamagePacket{
		SourceID: source,
		TargetID: target,
		Amount:   amount,
		Type:     damageType,
		Seed:     seed,
		tags:     slices.Clone(tags),
	}
}

// HasTag reports whether the packet carries the given tag.
func (p DamagePacket) HasTag(tag Tag) bool {
	return slices.Contains(p.tags, tag)
}

// Tags returns a copy of the packet's tags.
func (p DamagePacket) Tags() []Tag {
	return slices.Clone(p.tags)
}
