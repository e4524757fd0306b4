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

// Manual calibration of the meter face

package meter

// Number of calibration stops; the 12 hour marks plus the reference point.
const calibrationStops = 13

// Calibration steps the needle through the hour marks of the face so
// that the meter range can be aligned against a printed dial.
// On entry the needle is sent to full scale as a reference, and each
// step moves to the next hour mark, cycling through 13 stops.
type Calibration struct {
	motion *Motion
	speed  int // Pacing used while calibrating
	hour   int
	active bool
}

// NewCalibration creates a calibration session driving m at the speed given.
func NewCalibration(m *Motion, speed int) *Calibration {
	return &Calibration{motion: m, speed: speed}
}

// Enter starts calibration, moving the needle to full scale.
func (c *Calibration) Enter() {
	c.hour = 12
	c.active = true
	c.motion.SetTarget(MaxPosition)
	c.motion.SetSpeed(c.speed)
}

// AdvanceHour moves to the next hour mark and returns the new hour.
func (c *Calibration) AdvanceHour() int {
	c.hour = (c.hour + 1) % calibrationStops
	c.motion.SetTarget(c.Target())
	return c.hour
}

// Target returns the position of the current calibration hour.
func (c *Calibration) Target() int {
	return Position(12+c.hour, 0, 0)
}

// Exit ends the calibration session.
func (c *Calibration) Exit() {
	c.active = false
}

// Hour returns the calibration hour, and whether calibration is active.
// The hour is not meaningful outside of calibration.
func (c *Calibration) Hour() (int, bool) {
	return c.hour, c.active
}
