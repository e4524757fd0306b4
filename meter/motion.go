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

// Rate limited needle movement

package meter

import (
	"time"

	"github.com/aamcrae/meterclock/internal/logger"
)

// Output is the physical channel driving the meter, such as a PWM.
type Output interface {
	Write(position int) error
}

// Motion moves the meter needle towards a target position, limited
// to a maximum number of steps per second.
// Each call to Advance moves the needle by the number of steps allowed by the
// time elapsed since the previous call. Fractional steps are carried to the
// next call so that irregular call intervals do not change the overall speed.
type Motion struct {
	Name     string
	out      Output
	now      func() time.Time
	position int       // Current needle position
	target   int       // Target position
	speed    int       // Steps per second
	carry    float64   // Fractional steps carried from the last advance
	last     time.Time // Time of last advance
	failing  bool      // Output is returning errors
}

// NewMotion creates a Motion writing to out. If now is nil, time.Now is used.
// The needle is assumed to start at position 0.
func NewMotion(name string, out Output, now func() time.Time) *Motion {
	m := new(Motion)
	m.Name = name
	m.out = out
	m.now = now
	if m.now == nil {
		m.now = time.Now
	}
	m.speed = 1
	return m
}

// SetTarget sets the position the needle should move to.
func (m *Motion) SetTarget(p int) {
	m.target = clamp(p)
}

// SetSpeed sets the maximum steps per second, taking effect on the next Advance.
func (m *Motion) SetSpeed(stepsPerSecond int) {
	if stepsPerSecond < 1 {
		stepsPerSecond = 1
	}
	m.speed = stepsPerSecond
}

// Target returns the current target.
func (m *Motion) Target() int {
	return m.target
}

// Position returns the current needle position.
func (m *Motion) Position() int {
	return m.position
}

// Speed returns the steps per second.
func (m *Motion) Speed() int {
	return m.speed
}

// Rebase restarts the step budget from now, dropping any time since the
// last Advance. Call it before moving again after a pause in advancing.
func (m *Motion) Rebase() {
	m.last = m.now()
	m.carry = 0
}

// Advance moves the needle towards the target and writes the position to
// the output. It returns true if the needle is at the target.
func (m *Motion) Advance() bool {
	now := m.now()
	if m.last.IsZero() {
		m.last = now
	}
	elapsed := now.Sub(m.last)
	m.last = now
	if elapsed < 0 {
		elapsed = 0
	}
	budget := m.carry + elapsed.Seconds()*float64(m.speed)
	steps := int(budget)
	m.carry = budget - float64(steps)
	d := m.target - m.position
	switch {
	case d == 0:
		m.carry = 0
	case d > 0 && d <= steps, d < 0 && -d <= steps:
		m.position = m.target
		m.carry = 0
	case d > 0:
		m.position += steps
	default:
		m.position -= steps
	}
	m.write()
	return m.position == m.target
}

// write sends the position to the output, logging only the first of
// a run of failures.
func (m *Motion) write() {
	if m.out == nil {
		return
	}
	err := m.out.Write(m.position)
	if err != nil && !m.failing {
		logger.Warnf("%s: output write failed: %v", m.Name, err)
	} else if err == nil && m.failing {
		logger.Infof("%s: output recovered", m.Name)
	}
	m.failing = err != nil
}
