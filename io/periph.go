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
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// PeriphPin initialises the periph.io host drivers and looks up a pin by name.
func PeriphPin(name string) (gpio.PinIO, error) {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, fmt.Errorf("periph: %w", hostErr)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph: %s: no such pin", name)
	}
	return p, nil
}

// PeriphPWM is a PWM on a periph.io pin.
type PeriphPWM struct {
	pin gpio.PinIO
}

// NewPeriphPWM returns a PWM on the pin.
func NewPeriphPWM(pin gpio.PinIO) *PeriphPWM {
	return &PeriphPWM{pin: pin}
}

// Set sets the period and the duty cycle as a fraction of the period.
func (p *PeriphPWM) Set(period time.Duration, duty float64) error {
	if duty < 0 || duty > 1 {
		return fmt.Errorf("%s: %g: invalid duty cycle", p.pin, duty)
	}
	if period <= 0 {
		return fmt.Errorf("%s: %v: invalid period", p.pin, period)
	}
	d := gpio.Duty(duty*float64(gpio.DutyMax) + 0.5)
	return p.pin.PWM(d, physic.PeriodToFrequency(period))
}

// Close stops the PWM and leaves the pin low.
func (p *PeriphPWM) Close() {
	p.pin.Out(gpio.Low)
	p.pin.Halt()
}

// PeriphInput is a digital input on a periph.io pin.
type PeriphInput struct {
	pin  gpio.PinIO
	edge bool
}

// NewPeriphInput sets the pin as an input, optionally with a pull up
// and edge detection.
func NewPeriphInput(pin gpio.PinIO, pullUp, edge bool) (*PeriphInput, error) {
	pull, e := gpio.Float, gpio.NoEdge
	if pullUp {
		pull = gpio.PullUp
	}
	if edge {
		e = gpio.BothEdges
	}
	if err := pin.In(pull, e); err != nil {
		return nil, fmt.Errorf("%s: %w", pin, err)
	}
	return &PeriphInput{pin: pin, edge: edge}, nil
}

// Get returns the pin level as 0 or 1. With edge detection, Get
// blocks until the level changes.
func (p *PeriphInput) Get() (int, error) {
	if p.edge && !p.pin.WaitForEdge(-1) {
		return 0, fmt.Errorf("%s: edge wait failed", p.pin)
	}
	if p.pin.Read() == gpio.High {
		return 1, nil
	}
	return 0, nil
}

// Close halts the pin.
func (p *PeriphInput) Close() {
	p.pin.Halt()
}
