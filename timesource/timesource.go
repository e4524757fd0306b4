// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package timesource provides the wall clock kept between time signal
// updates, and a time source using the host clock.
package timesource

import (
	"sync"
	"time"
)

// DefaultInterval is the update interval of the host clock source.
const DefaultInterval = time.Hour

// Keeper keeps the time of day, advancing from the last time set using
// the local clock.
type Keeper struct {
	mu    sync.Mutex
	now   func() time.Time
	base  time.Time // Time last set
	local time.Time // Local clock when last set
}

// NewKeeper creates a Keeper. If now is nil, time.Now is used.
// Until set, the Keeper returns the local clock.
func NewKeeper(now func() time.Time) *Keeper {
	k := new(Keeper)
	k.now = now
	if k.now == nil {
		k.now = time.Now
	}
	return k
}

// Set sets the current time.
func (k *Keeper) Set(t time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.base = t
	k.local = k.now()
}

// Now returns the current time.
func (k *Keeper) Now() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := k.now()
	if k.base.IsZero() {
		return n
	}
	return k.base.Add(n.Sub(k.local))
}

// Clock returns the hour, minute and second of the current time.
func (k *Keeper) Clock() (hour, minute, second int) {
	return k.Now().Clock()
}

// System is a time source that reads the host clock, which is assumed
// to be kept accurate by other means.
// The time is provided on the first poll and then once each interval.
type System struct {
	Interval time.Duration
	now      func() time.Time
	next     time.Time
}

// NewSystem creates a System source. If now is nil, time.Now is used.
func NewSystem(interval time.Duration, now func() time.Time) *System {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	return &System{Interval: interval, now: now}
}

// Poll returns the host time when an update is due.
func (s *System) Poll() (time.Time, bool) {
	n := s.now()
	if !s.next.IsZero() && n.Before(s.next) {
		return time.Time{}, false
	}
	s.next = n.Add(s.Interval)
	return n, true
}
