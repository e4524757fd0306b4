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

// Package dcf77 decodes the DCF77 longwave time signal from the
// pulse output of a receiver module.
//
// Each second except the last of a minute the receiver outputs a pulse;
// a 100ms pulse is a 0 bit and a 200ms pulse a 1 bit. The missing
// pulse of second 59 marks the start of the next minute, and the 59 bits
// received during the minute encode the time at that minute mark.
package dcf77

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aamcrae/meterclock/internal/logger"
)

// Pulse width limits.
const (
	minPulse   = 40 * time.Millisecond
	splitPulse = 150 * time.Millisecond
	maxPulse   = 250 * time.Millisecond
	minuteGap  = 1500 * time.Millisecond
)

// FrameBits is the number of bits in a minute frame.
const FrameBits = 59

var (
	ErrFrameLength = errors.New("dcf77: wrong frame length")
	ErrStartBit    = errors.New("dcf77: missing start of time bit")
	ErrParity      = errors.New("dcf77: parity error")
	ErrRange       = errors.New("dcf77: value out of range")
	ErrZone        = errors.New("dcf77: invalid time zone bits")
)

var (
	cet  = time.FixedZone("CET", 1*60*60)
	cest = time.FixedZone("CEST", 2*60*60)
)

// IO returns the input level when it changes.
type IO interface {
	Get() (int, error)
}

// Decoder assembles pulses into minute frames and decodes them.
type Decoder struct {
	Name       string
	Invert     bool // Invert input signal
	Frames     int  // Frames decoded
	Errors     int  // Frames rejected
	now        func() time.Time
	mu         sync.Mutex
	level      int
	bits       []int
	pulseStart time.Time
	lastStart  time.Time
	decoded    time.Time // Last decoded time
	decodedAt  time.Time // Local time of the minute mark of the decoded time
	pending    bool      // Decoded time not yet polled
}

// New creates a Decoder. If now is nil, time.Now is used.
func New(name string, now func() time.Time) *Decoder {
	d := new(Decoder)
	d.Name = name
	d.now = now
	if d.now == nil {
		d.now = time.Now
	}
	d.bits = make([]int, 0, FrameBits+1)
	return d
}

// Run reads input changes until the input returns an error.
func (d *Decoder) Run(in IO) error {
	for {
		v, err := in.Get()
		if err != nil {
			return fmt.Errorf("%s: input: %w", d.Name, err)
		}
		if d.Invert {
			v ^= 1
		}
		d.Edge(v, d.now())
	}
}

// Poll returns a newly decoded time, advanced by the time since it was received.
// Each decoded time is returned once.
func (d *Decoder) Poll() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending {
		return time.Time{}, false
	}
	d.pending = false
	return d.decoded.Add(d.now().Sub(d.decodedAt)), true
}

// Edge processes a change of input level at the time given.
func (d *Decoder) Edge(level int, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if level == d.level {
		return
	}
	d.level = level
	if level != 0 {
		d.pulseStart = at
		if !d.lastStart.IsZero() && at.Sub(d.lastStart) > minuteGap {
			d.minute(at)
		}
		d.lastStart = at
		return
	}
	if d.pulseStart.IsZero() {
		return
	}
	w := at.Sub(d.pulseStart)
	switch {
	case w < minPulse || w > maxPulse:
		logger.Debugf("%s: ignoring pulse of %s", d.Name, w)
		return
	case w < splitPulse:
		d.bits = append(d.bits, 0)
	default:
		d.bits = append(d.bits, 1)
	}
	if len(d.bits) > FrameBits {
		// Minute mark missed.
		d.bits = d.bits[:0]
	}
}

// minute decodes the accumulated bits at a minute mark.
func (d *Decoder) minute(at time.Time) {
	defer func() { d.bits = d.bits[:0] }()
	if len(d.bits) == 0 {
		return
	}
	t, err := Decode(d.bits)
	if err != nil {
		d.Errors++
		logger.Infof("%s: frame rejected (%d bits): %v", d.Name, len(d.bits), err)
		return
	}
	d.Frames++
	d.decoded = t
	d.decodedAt = at
	d.pending = true
	logger.Infof("%s: decoded %s", d.Name, t.Format(time.RFC3339))
}

// Decode returns the time encoded in a minute frame.
func Decode(bits []int) (time.Time, error) {
	if len(bits) != FrameBits {
		return time.Time{}, ErrFrameLength
	}
	if bits[20] != 1 {
		return time.Time{}, ErrStartBit
	}
	if !even(bits[21:29]) || !even(bits[29:36]) || !even(bits[36:59]) {
		return time.Time{}, ErrParity
	}
	var loc *time.Location
	switch {
	case bits[17] == 1 && bits[18] == 0:
		loc = cest
	case bits[17] == 0 && bits[18] == 1:
		loc = cet
	default:
		return time.Time{}, ErrZone
	}
	minute, ok1 := bcd(bits[21:28])
	hour, ok2 := bcd(bits[29:35])
	day, ok3 := bcd(bits[36:42])
	month, ok4 := bcd(bits[45:50])
	year, ok5 := bcd(bits[50:58])
	if !(ok1 && ok2 && ok3 && ok4 && ok5) ||
		minute > 59 || hour > 23 || day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, ErrRange
	}
	t := time.Date(2000+year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day {
		// Day beyond the end of the month.
		return time.Time{}, ErrRange
	}
	return t, nil
}

// bcd decodes little endian BCD bits, with weights 1, 2, 4, 8, 10, 20, 40, 80.
func bcd(b []int) (int, bool) {
	units, tens := 0, 0
	for i, v := range b {
		if i < 4 {
			units |= v << i
		} else {
			tens |= v << (i - 4)
		}
	}
	return tens*10 + units, units <= 9
}

// even returns true if the bits have even parity.
func even(b []int) bool {
	n := 0
	for _, v := range b {
		n += v
	}
	return n%2 == 0
}
