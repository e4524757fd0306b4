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

package io

import (
	"fmt"
	"strconv"
	"time"
)

// FullScale is the meter position of full scale deflection.
const FullScale = 255

// MeterOutput drives a voltmeter from a PWM, where the duty cycle
// sets the needle deflection.
type MeterOutput struct {
	pwm    PWM
	period time.Duration
}

// NewMeterOutput returns a meter output on the PWM.
func NewMeterOutput(pwm PWM, period time.Duration) *MeterOutput {
	return &MeterOutput{pwm: pwm, period: period}
}

// Write sets the needle to the position, 0 to FullScale.
func (m *MeterOutput) Write(position int) error {
	if position < 0 || position > FullScale {
		return fmt.Errorf("%d: position out of range", position)
	}
	return m.pwm.Set(m.period, float64(position)/FullScale)
}

// Close turns off the PWM.
func (m *MeterOutput) Close() {
	m.pwm.Close()
}

// OpenMeter opens the meter output for a driver and name.
// pwm uses a sysfs hardware PWM unit, gpio runs a software PWM on a
// sysfs GPIO, and periph uses a periph.io pin.
func OpenMeter(driver, name string, period time.Duration) (*MeterOutput, error) {
	switch driver {
	case "pwm", "gpio":
		n, err := strconv.Atoi(name)
		if err != nil {
			return nil, fmt.Errorf("%s:%s: %w", driver, name, err)
		}
		if driver == "pwm" {
			p, err := NewHwPWM(n)
			if err != nil {
				return nil, err
			}
			return NewMeterOutput(p, period), nil
		}
		g, err := OutputPin(n)
		if err != nil {
			return nil, err
		}
		return NewMeterOutput(&closer{NewSwPWM(g), g.Close}, period), nil
	case "periph":
		p, err := PeriphPin(name)
		if err != nil {
			return nil, err
		}
		return NewMeterOutput(NewPeriphPWM(p), period), nil
	}
	return nil, fmt.Errorf("%s: unknown meter driver", driver)
}

// Input is a digital input.
type Input interface {
	Get() (int, error)
	Close()
}

// OpenInput opens a digital input for a driver and name. With edge set,
// Get blocks until the input changes.
func OpenInput(driver, name string, pullUp, edge bool) (Input, error) {
	switch driver {
	case "gpio":
		n, err := strconv.Atoi(name)
		if err != nil {
			return nil, fmt.Errorf("%s:%s: %w", driver, name, err)
		}
		g, err := Pin(n)
		if err != nil {
			return nil, err
		}
		if edge {
			if err := g.Edge(BOTH); err != nil {
				g.Close()
				return nil, err
			}
		}
		return g, nil
	case "periph":
		p, err := PeriphPin(name)
		if err != nil {
			return nil, err
		}
		return NewPeriphInput(p, pullUp, edge)
	}
	return nil, fmt.Errorf("%s: unknown input driver", driver)
}

// closer closes a PWM and then its pin.
type closer struct {
	PWM
	pin func()
}

func (c *closer) Close() {
	c.PWM.Close()
	c.pin()
}
