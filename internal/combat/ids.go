// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package combat

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewEventID generates a new event ULID.
func NewEventID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// ParseActorID parses an actor ULID string.
func ParseActorID(s string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("invalid actor ID %q: %w", s, err)
	}
	return id, nil
}
