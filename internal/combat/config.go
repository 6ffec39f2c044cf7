// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import "time"

// Default engine tuning.
const (
	DefaultTickInterval      = 100 * time.Millisecond
	DefaultDisengageDuration = 8 * time.Second
	DefaultRetryDelay        = 500 * time.Millisecond
	DefaultMinSwingDuration  = 600 * time.Millisecond
	DefaultEvalInterval      = 200 * time.Millisecond
	DefaultDespawnDelay      = 30 * time.Second
	DefaultRootSeed          = "duskmire"
)

// Config tunes the combat engine.
type Config struct {
	// RootSeed keys the deterministic combat streams. Two worlds with the
	// same root seed and the same command sequence resolve identically.
	RootSeed string

	// TickInterval is the scheduler resolution. All waits are soft and
	// re-evaluated on tick boundaries, never hard-preempted.
	TickInterval time.Duration

	// DisengageDuration is how long an actor stays InCombat past the last
	// hostile event.
	DisengageDuration time.Duration

	// RetryDelay is the idle wait before re-checking a blocked swing
	// (gate denied, out of range, insufficient resource).
	RetryDelay time.Duration

	// MinSwingDuration floors the per-swing wait regardless of weapon state.
	MinSwingDuration time.Duration

	// EvalInterval throttles combat-state evaluation to at most one check
	// per interval. The Peaceful transition lands within one interval of
	// the window deadline.
	EvalInterval time.Duration

	// DespawnDelay is how long a victim lingers before the external
	// despawn request fires.
	DespawnDelay time.Duration
}

// DefaultConfig returns the default engine tuning.
func DefaultConfig() Config {
	return Config{
		RootSeed:          DefaultRootSeed,
		TickInterval:      DefaultTickInterval,
		DisengageDuration: DefaultDisengageDuration,
		RetryDelay:        DefaultRetryDelay,
		MinSwingDuration:  DefaultMinSwingDuration,
		EvalInterval:      DefaultEvalInterval,
		DespawnDelay:      DefaultDespawnDelay,
	}
}

// normalized fills zero values with defaults so a partially populated config
// never stalls the scheduler.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.RootSeed == "" {
		c.RootSeed = def.RootSeed
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.DisengageDuration <= 0 {
		c.DisengageDuration = def.DisengageDuration
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.MinSwingDuration <= 0 {
		c.MinSwingDuration = def.MinSwingDuration
	}
	if c.EvalInterval <= 0 {
		c.EvalInterval = def.EvalInterval
	}
	if c.DespawnDelay <= 0 {
		c.DespawnDelay = def.DespawnDelay
	}
	return c
}
