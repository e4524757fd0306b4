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

// Meter clock display state machine

package meter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aamcrae/meterclock/button"
	"github.com/aamcrae/meterclock/internal/logger"
	"github.com/aamcrae/meterclock/status"
)

// State is the display state.
type State int

const (
	Startup State = iota
	DisplayTime
	WaitForTime
	Calibrating
)

func (s State) String() string {
	switch s {
	case Startup:
		return "startup"
	case DisplayTime:
		return "display-time"
	case WaitForTime:
		return "wait-for-time"
	case Calibrating:
		return "calibration"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Button returns the press event detected since the last poll.
type Button interface {
	Poll() button.Event
}

// TimeSource provides a new absolute time when one has been received.
// Poll must not block.
type TimeSource interface {
	Poll() (time.Time, bool)
}

// WallClock keeps the time of day between time source updates.
type WallClock interface {
	Set(time.Time)
	Clock() (hour, minute, second int)
}

// StatusSink receives human readable status lines.
type StatusSink interface {
	Status(line string)
}

// Speeds holds the needle pacing in steps per second.
type Speeds struct {
	Fast   int // Startup sweep
	Normal int // Displaying time and calibrating
	Idle   int // Waiting for time
}

// DefaultSpeeds are used when no speeds are configured.
var DefaultSpeeds = Speeds{Fast: 128, Normal: 32, Idle: 16}

// Phases of the startup sweep.
const (
	sweepUp = iota
	sweepDown
)

// Snapshot is a copy of the observable display state.
type Snapshot struct {
	State           string    `yaml:"state"`
	Position        int       `yaml:"position"`
	Target          int       `yaml:"target"`
	Speed           int       `yaml:"speed"`
	LastSync        time.Time `yaml:"last_sync,omitempty"`
	CalibrationHour *int      `yaml:"calibration_hour,omitempty"` // Only while calibrating
}

// Display drives the meter according to the current state.
// A single control loop calls Tick; each tick polls the button and
// the time source once and then runs one step of the current state.
// Startup sweeps the needle to full scale and back. Once the time is known,
// the needle shows the time, otherwise it swings across the scale until a
// time is received. A long press enters or leaves calibration.
type Display struct {
	Name   string
	mu     sync.Mutex // Guards the state for Snapshot
	state  State
	motion *Motion
	cal    *Calibration
	button Button
	source TimeSource
	clock  WallClock
	sink   StatusSink
	speeds Speeds
	lines  []string // Status lines waiting to be sent to the sink
	sweep  int       // Startup sweep phase
	synced time.Time // Time of last time source update, zero if none
}

// NewDisplay creates a Display in the startup state.
// The button and sink may be nil.
func NewDisplay(name string, m *Motion, b Button, src TimeSource, clk WallClock, sink StatusSink, sp Speeds) *Display {
	d := new(Display)
	d.Name = name
	d.motion = m
	d.button = b
	d.source = src
	d.clock = clk
	d.sink = sink
	d.speeds = sp
	d.cal = NewCalibration(m, sp.Normal)
	d.enter(Startup)
	d.flush(d.takeLines())
	return d
}

// State returns the current state.
func (d *Display) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Synced returns the time of the last time source update.
func (d *Display) Synced() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.synced, !d.synced.IsZero()
}

// Snapshot returns a copy of the current display state.
func (d *Display) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Snapshot{
		State:    d.state.String(),
		Position: d.motion.Position(),
		Target:   d.motion.Target(),
		Speed:    d.motion.Speed(),
		LastSync: d.synced,
	}
	if h, ok := d.cal.Hour(); ok {
		s.CalibrationHour = &h
	}
	return s
}

// Run calls Tick at the interval until the context is cancelled.
func (d *Display) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Infof("%s: running, tick %s", d.Name, interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Tick runs a single step of the control loop.
func (d *Display) Tick() {
	d.mu.Lock()
	d.step()
	lines := d.takeLines()
	d.mu.Unlock()
	d.flush(lines)
}

func (d *Display) step() {
	ev := button.None
	if d.button != nil {
		ev = d.button.Poll()
	}
	updated := d.receiveTime()
	if ev == button.LongPress {
		if d.state == Calibrating {
			d.cal.Exit()
			d.status("Exit calibration")
			d.afterSync(true)
		} else {
			d.enter(Calibrating)
		}
		return
	}
	switch d.state {
	case Startup:
		d.startup()
	case DisplayTime:
		d.displayTime()
	case WaitForTime:
		d.waitForTime(updated)
	case Calibrating:
		d.calibrate(ev)
	}
}

// receiveTime polls the time source, and if a new time is available,
// sets the wall clock and records the update.
func (d *Display) receiveTime() bool {
	t, ok := d.source.Poll()
	if !ok {
		return false
	}
	d.clock.Set(t)
	d.synced = t
	h, m, s := d.clock.Clock()
	d.status("New time received " + status.Format(h, m, s, Position(h, m, s)))
	return true
}

func (d *Display) startup() {
	if !d.motion.Advance() {
		return
	}
	if d.sweep == sweepUp {
		d.sweep = sweepDown
		d.motion.SetTarget(0)
		return
	}
	d.status("Startup finished")
	d.afterSync(false)
}

func (d *Display) displayTime() {
	d.motion.SetTarget(Position(d.clock.Clock()))
	d.motion.Advance()
}

// While waiting for the time, swing the needle between opposite ends of the scale.
func (d *Display) waitForTime(updated bool) {
	if updated {
		d.enter(DisplayTime)
		return
	}
	if d.motion.Advance() {
		d.motion.SetTarget(Opposite(d.motion.Target()))
	}
}

func (d *Display) calibrate(ev button.Event) {
	if ev == button.ShortPress {
		h := d.cal.AdvanceHour()
		d.status(fmt.Sprintf("Calibration hour %d (%d)", h, d.cal.Target()))
	}
	d.motion.Advance()
}

// afterSync selects the next state once startup or calibration is done,
// depending on whether a time has been received.
func (d *Display) afterSync(resetTarget bool) {
	if !d.synced.IsZero() {
		d.enter(DisplayTime)
		return
	}
	if resetTarget {
		d.motion.SetTarget(0)
	}
	d.enter(WaitForTime)
}

// enter runs the entry actions of a new state.
func (d *Display) enter(s State) {
	d.state = s
	switch s {
	case Startup:
		d.sweep = sweepUp
		d.motion.SetSpeed(d.speeds.Fast)
		d.motion.SetTarget(MaxPosition)
	case DisplayTime:
		d.motion.SetSpeed(d.speeds.Normal)
	case WaitForTime:
		d.motion.SetSpeed(d.speeds.Idle)
	case Calibrating:
		d.cal.Enter()
	}
	d.status("Entering " + s.String())
}

// status queues a line for the sink. Lines are sent once the lock is
// released, so a slow sink does not block Snapshot.
func (d *Display) status(line string) {
	if d.sink != nil {
		d.lines = append(d.lines, line)
	}
}

func (d *Display) takeLines() []string {
	l := d.lines
	d.lines = nil
	return l
}

func (d *Display) flush(lines []string) {
	for _, l := range lines {
		d.sink.Status(l)
	}
}

// Opposite returns the position at the other end of the scale, mirrored
// around the midpoint.
func Opposite(p int) int {
	return MaxPosition - clamp(p)
}
