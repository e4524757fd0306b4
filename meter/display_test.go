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

package meter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aamcrae/meterclock/button"
	"github.com/aamcrae/meterclock/internal/logger"
	"github.com/aamcrae/meterclock/timesource"
)

type fakeButton struct {
	events []button.Event
}

func (b *fakeButton) Poll() button.Event {
	if len(b.events) == 0 {
		return button.None
	}
	e := b.events[0]
	b.events = b.events[1:]
	return e
}

func (b *fakeButton) press(e button.Event) {
	b.events = append(b.events, e)
}

type fakeSource struct {
	t   time.Time
	set bool
}

func (s *fakeSource) Poll() (time.Time, bool) {
	if !s.set {
		return time.Time{}, false
	}
	s.set = false
	return s.t, true
}

func (s *fakeSource) send(t time.Time) {
	s.t = t
	s.set = true
}

type sink struct {
	lines []string
}

func (s *sink) Status(line string) {
	s.lines = append(s.lines, line)
}

func (s *sink) has(prefix string) bool {
	for _, l := range s.lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

type rig struct {
	clock  *fakeClock
	out    *fakeOutput
	motion *Motion
	button *fakeButton
	source *fakeSource
	sink   *sink
	d      *Display
}

func newRig() *rig {
	r := &rig{
		clock:  newClock(),
		out:    &fakeOutput{},
		button: &fakeButton{},
		source: &fakeSource{},
		sink:   &sink{},
	}
	r.motion = NewMotion("test", r.out, r.clock.now)
	keeper := timesource.NewKeeper(r.clock.now)
	r.d = NewDisplay("test", r.motion, r.button, r.source, keeper, r.sink, Speeds{Fast: 100, Normal: 50, Idle: 25})
	return r
}

// tick advances the clock by 10ms and runs one control loop step.
func (r *rig) tick() {
	r.clock.step(10 * time.Millisecond)
	r.d.Tick()
}

// until ticks until the condition is true, failing after the limit.
func (r *rig) until(t *testing.T, limit int, cond func() bool) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if cond() {
			return
		}
		r.tick()
	}
	require.Fail(t, "condition not reached", "state %s, snapshot %+v", r.d.State(), r.d.Snapshot())
}

func (r *rig) startup(t *testing.T) {
	t.Helper()
	r.until(t, 1000, func() bool { return r.d.State() != Startup })
}

// TestStartupSweep checks startup sweeps to full scale and back, then waits
// for the time when none has been received.
func TestStartupSweep(t *testing.T) {
	t.Parallel()

	r := newRig()
	require.Equal(t, Startup, r.d.State())
	require.Equal(t, MaxPosition, r.motion.Target())
	require.Equal(t, 100, r.motion.Speed())

	maxPos := 0
	r.until(t, 1000, func() bool {
		if r.motion.Position() > maxPos {
			maxPos = r.motion.Position()
		}
		return r.d.State() != Startup
	})
	require.Equal(t, MaxPosition, maxPos)
	require.Equal(t, 0, r.motion.Position())
	require.Equal(t, WaitForTime, r.d.State())
	require.Equal(t, 25, r.motion.Speed())
	require.True(t, r.sink.has("Startup finished"))
}

// TestStartupSynced checks startup goes directly to showing the time when
// a time was received during the sweep.
func TestStartupSynced(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.source.send(time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC))
	r.startup(t)
	require.Equal(t, DisplayTime, r.d.State())
	require.Equal(t, 50, r.motion.Speed())
}

// TestWaitAnimation checks the needle swings between opposite ends while
// waiting for the time.
func TestWaitAnimation(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.startup(t)
	r.tick()
	require.Equal(t, MaxPosition, r.motion.Target())
	r.until(t, 2000, func() bool { return r.motion.Position() == MaxPosition })
	r.tick()
	require.Equal(t, 0, r.motion.Target())
	require.Equal(t, WaitForTime, r.d.State())
}

// TestWaitFromMidScale checks the swing target is the mirror of the reached target.
func TestWaitFromMidScale(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.startup(t)
	r.motion.SetTarget(64)
	r.until(t, 1000, func() bool { return r.motion.Target() != 64 })
	require.Equal(t, 64, r.motion.Position())
	require.Equal(t, 191, r.motion.Target())
}

// TestEndToEnd checks the time is displayed once received.
func TestEndToEnd(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.startup(t)
	require.Equal(t, WaitForTime, r.d.State())
	r.until(t, 1000, func() bool { return r.motion.Position() > 100 })

	r.source.send(time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC))
	r.tick()
	require.Equal(t, DisplayTime, r.d.State())
	require.Equal(t, 50, r.motion.Speed())
	require.True(t, r.sink.has("New time received 14:30:00 (53)"))
	synced, ok := r.d.Synced()
	require.True(t, ok)
	require.Equal(t, 14, synced.Hour())

	r.tick()
	require.Equal(t, 53, r.motion.Target())
	r.until(t, 1000, func() bool { return r.motion.Position() == 53 })
	require.Equal(t, 53, r.out.last())
}

// TestDisplayFollowsTime checks the target tracks the wall clock.
func TestDisplayFollowsTime(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.source.send(time.Date(2024, 5, 1, 2, 57, 0, 0, time.UTC))
	r.startup(t)
	r.tick()
	require.Equal(t, 62, r.motion.Target())
	r.clock.step(3 * time.Minute)
	r.tick()
	require.Equal(t, 63, r.motion.Target())
}

// TestCalibration checks entering, stepping and leaving calibration.
func TestCalibration(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.source.send(time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC))
	r.startup(t)
	r.tick()
	require.Equal(t, DisplayTime, r.d.State())

	r.button.press(button.ShortPress)
	r.tick()
	require.Equal(t, DisplayTime, r.d.State())

	r.button.press(button.LongPress)
	r.tick()
	require.Equal(t, Calibrating, r.d.State())
	require.Equal(t, MaxPosition, r.motion.Target())
	require.Equal(t, 50, r.motion.Speed())
	snap := r.d.Snapshot()
	require.Equal(t, "calibration", snap.State)
	require.NotNil(t, snap.CalibrationHour)
	require.Equal(t, 12, *snap.CalibrationHour)

	var targets []int
	for i := 0; i < 13; i++ {
		r.button.press(button.ShortPress)
		r.tick()
		targets = append(targets, r.motion.Target())
	}
	require.Equal(t, 0, targets[0])
	require.Equal(t, 252, targets[12])
	require.Equal(t, 12, *r.d.Snapshot().CalibrationHour)
	require.True(t, r.sink.has("Calibration hour 3 (63)"))

	r.button.press(button.LongPress)
	r.tick()
	require.Equal(t, DisplayTime, r.d.State())
	r.tick()
	require.Equal(t, 53, r.motion.Target())
	require.Nil(t, r.d.Snapshot().CalibrationHour)
}

// TestCalibrationUnsynced checks leaving calibration without a time goes
// back to waiting from the bottom of the scale.
func TestCalibrationUnsynced(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.startup(t)
	r.button.press(button.LongPress)
	r.tick()
	require.Equal(t, Calibrating, r.d.State())
	r.until(t, 1000, func() bool { return r.motion.Position() == MaxPosition })

	r.button.press(button.LongPress)
	r.tick()
	require.Equal(t, WaitForTime, r.d.State())
	require.Equal(t, 0, r.motion.Target())
	require.Equal(t, 25, r.motion.Speed())
}

// TestCalibrationFromStartup checks a long press during the startup sweep.
func TestCalibrationFromStartup(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.tick()
	r.button.press(button.LongPress)
	r.tick()
	require.Equal(t, Calibrating, r.d.State())
}

// TestRun checks the loop stops when the context is cancelled.
func TestRun(t *testing.T) {
	t.Parallel()

	d := NewDisplay("run", NewMotion("run", nil, nil), nil, &fakeSource{}, timesource.NewKeeper(nil), nil, DefaultSpeeds)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := d.Run(ctx, time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestStateString checks state names.
func TestStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "startup", Startup.String())
	require.Equal(t, "display-time", DisplayTime.String())
	require.Equal(t, "wait-for-time", WaitForTime.String())
	require.Equal(t, "calibration", Calibrating.String())
	require.Equal(t, "state(7)", State(7).String())
}

// snapshotSink reads the display snapshot for every status line.
type snapshotSink struct {
	d     *Display
	snaps []Snapshot
}

func (s *snapshotSink) Status(string) {
	if s.d != nil {
		s.snaps = append(s.snaps, s.d.Snapshot())
	}
}

// TestSinkUnlocked checks status lines are sent without holding the
// display lock, so a sink may read a snapshot.
func TestSinkUnlocked(t *testing.T) {
	t.Parallel()

	c := newClock()
	s := &snapshotSink{}
	m := NewMotion("test", &fakeOutput{}, c.now)
	d := NewDisplay("test", m, nil, &fakeSource{}, timesource.NewKeeper(c.now), s, DefaultSpeeds)
	s.d = d

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Tick()
		d.Tick()
		for i := 0; i < 1000 && d.State() == Startup; i++ {
			c.step(100 * time.Millisecond)
			d.Tick()
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "tick blocked by the status sink")
	}
	require.Equal(t, WaitForTime, d.State())
	require.NotEmpty(t, s.snaps)
	require.Equal(t, "wait-for-time", s.snaps[len(s.snaps)-1].State)
}

// TestTransitionLoggedOnce checks state changes are reported only through
// the status sink.
func TestTransitionLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	old := logger.Logger()
	logger.SetLogger(zap.New(core).Sugar())
	defer logger.SetLogger(old)

	r := newRig()
	r.button.press(button.LongPress)
	r.tick()
	require.Equal(t, Calibrating, r.d.State())
	require.True(t, r.sink.has("Entering calibration"))
	require.Zero(t, logs.FilterMessageSnippet("ntering").Len())
}

