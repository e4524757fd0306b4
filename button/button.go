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

// Package button debounces a push button input and classifies presses
// as short or long.
package button

import (
	"fmt"
	"time"

	"github.com/aamcrae/meterclock/internal/logger"
)

// Event is a button press event.
type Event int

const (
	None Event = iota
	ShortPress
	LongPress
)

func (e Event) String() string {
	switch e {
	case None:
		return "none"
	case ShortPress:
		return "short"
	case LongPress:
		return "long"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Default timings.
const (
	DefaultDebounce  = 50 * time.Millisecond
	DefaultLongPress = time.Second
)

// IO returns the current input level of the button.
type IO interface {
	Get() (int, error)
}

// Button polls an input and reports press events.
// A change of the input must be stable for the debounce time before it is
// accepted. Holding the button for the long press time reports a single
// LongPress while still held; releasing it earlier reports a ShortPress.
type Button struct {
	Name      string
	ActiveLow bool          // Input reads 0 when pressed
	Debounce  time.Duration // Minimum stable time of a change
	LongPress time.Duration // Hold time for a long press
	in        IO
	now       func() time.Time
	raw       bool      // Last raw pressed state
	rawSince  time.Time // Time raw state last changed
	pressed   bool      // Debounced pressed state
	downAt    time.Time // Time of debounced press
	long      bool      // Long press already reported
	failed    bool      // Input read failing
}

// New creates a Button reading in. If now is nil, time.Now is used.
func New(name string, in IO, now func() time.Time) *Button {
	b := new(Button)
	b.Name = name
	b.in = in
	b.now = now
	if b.now == nil {
		b.now = time.Now
	}
	b.Debounce = DefaultDebounce
	b.LongPress = DefaultLongPress
	return b
}

// Poll samples the input and returns any event detected.
// Poll should be called frequently compared to the debounce time.
func (b *Button) Poll() Event {
	now := b.now()
	v, err := b.in.Get()
	if err != nil {
		if !b.failed {
			logger.Warnf("%s: input: %v", b.Name, err)
		}
		b.failed = true
		return None
	}
	b.failed = false
	raw := v != 0
	if b.ActiveLow {
		raw = !raw
	}
	if raw != b.raw || b.rawSince.IsZero() {
		b.raw = raw
		b.rawSince = now
	}
	if b.raw != b.pressed && now.Sub(b.rawSince) >= b.Debounce {
		b.pressed = b.raw
		if b.pressed {
			b.downAt = now
			b.long = false
			return None
		}
		if !b.long {
			logger.Debugf("%s: short press", b.Name)
			return ShortPress
		}
		return None
	}
	if b.pressed && !b.long && now.Sub(b.downAt) >= b.LongPress {
		b.long = true
		logger.Debugf("%s: long press", b.Name)
		return LongPress
	}
	return None
}

// Pressed returns the debounced state of the button.
func (b *Button) Pressed() bool {
	return b.pressed
}
