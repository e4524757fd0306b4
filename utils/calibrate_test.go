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

package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aamcrae/meterclock/meter"
)

type output struct {
	last   int
	writes []int
}

func (o *output) Write(p int) error {
	o.last = p
	o.writes = append(o.writes, p)
	return nil
}

// stepClock moves on by a fixed step each time it is read.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

// slowInput returns one line per read, with the clock moved on as if the
// operator took a while to type it.
type slowInput struct {
	lines []string
	clock *stepClock
	pause time.Duration
}

func (in *slowInput) Read(b []byte) (int, error) {
	if len(in.lines) == 0 {
		return 0, io.EOF
	}
	in.clock.t = in.clock.t.Add(in.pause)
	n := copy(b, in.lines[0])
	in.lines[0] = in.lines[0][n:]
	if in.lines[0] == "" {
		in.lines = in.lines[1:]
	}
	return n, nil
}

// TestCalibrate steps through hours and positions from commands.
func TestCalibrate(t *testing.T) {
	t.Parallel()

	out := &output{}
	m := meter.NewMotion("test", out, nil)
	var w bytes.Buffer
	in := strings.NewReader("\n\nh6\n100\nbad\nh13\nq\n")
	require.NoError(t, calibrate(in, &w, m, 100000, time.Millisecond))
	require.Equal(t, 100, out.last)
	s := w.String()
	require.Contains(t, s, "Hour 12, position 255")
	require.Contains(t, s, "Hour 0, position 0")
	require.Contains(t, s, "Hour 1, position 21")
	require.Contains(t, s, "Hour 6, position 126")
	require.Contains(t, s, "Unrecognised input")
	require.Contains(t, s, "Unrecognised hour")
}

// TestCalibrateEOF checks the end of input stops calibration.
func TestCalibrateEOF(t *testing.T) {
	t.Parallel()

	m := meter.NewMotion("test", &output{}, nil)
	require.NoError(t, calibrate(strings.NewReader(""), &bytes.Buffer{}, m, 100000, time.Millisecond))
}

// TestCalibrateSpeedLimit checks time spent waiting for input does not let
// the needle jump to the next target.
func TestCalibrateSpeedLimit(t *testing.T) {
	t.Parallel()

	c := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: 10 * time.Millisecond}
	out := &output{}
	m := meter.NewMotion("test", out, c.now)
	in := &slowInput{lines: []string{"\n", "q\n"}, clock: c, pause: 10 * time.Second}
	require.NoError(t, calibrate(in, &bytes.Buffer{}, m, 32, 0))

	require.Equal(t, 0, out.last)
	for i := 1; i < len(out.writes); i++ {
		d := out.writes[i] - out.writes[i-1]
		require.LessOrEqual(t, d, 1, "write %d", i)
		require.GreaterOrEqual(t, d, -1, "write %d", i)
	}
}

