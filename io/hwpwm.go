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
	"os"
	"strconv"
	"time"
)

const (
	pwmBaseDir      = "/sys/class/pwm/pwmchip0/"
	pwmExportFile   = pwmBaseDir + "export"
	pwmUnexportFile = pwmBaseDir + "unexport"
	periodFile      = "/period"
	dutyFile        = "/duty_cycle"
	enableFile      = "/enable"
)

// HwPwm is a sysfs hardware PWM unit.
type HwPwm struct {
	unit   int
	base   string
	pFile  *os.File
	dFile  *os.File
	period int64 // Current period in nanoseconds, -1 if unknown
	duty   int64 // Current duty time in nanoseconds, -1 if unknown
}

// NewHwPWM exports and enables a hardware PWM unit, with the output off.
func NewHwPWM(unit int) (*HwPwm, error) {
	p := &HwPwm{unit: unit, period: -1, duty: -1}
	p.base = fmt.Sprintf("%spwm%d", pwmBaseDir, unit)

	pName := p.base + periodFile
	if err := export(pName, pwmExportFile, unit); err != nil {
		return nil, fmt.Errorf("pwm%d: %w", unit, err)
	}
	var err error
	fail := func(err error) (*HwPwm, error) {
		if p.pFile != nil {
			p.pFile.Close()
		}
		if p.dFile != nil {
			p.dFile.Close()
		}
		unexport(pwmUnexportFile, unit)
		return nil, fmt.Errorf("pwm%d: %w", unit, err)
	}
	if p.pFile, err = os.OpenFile(pName, os.O_RDWR, 0600); err != nil {
		return fail(err)
	}
	dName := p.base + dutyFile
	if err = verifyFile(dName); err != nil {
		return fail(err)
	}
	if p.dFile, err = os.OpenFile(dName, os.O_RDWR, 0600); err != nil {
		return fail(err)
	}
	if err = p.Set(time.Millisecond, 0); err != nil {
		return fail(err)
	}
	if err = writeFile(p.base+enableFile, "1"); err != nil {
		return fail(err)
	}
	return p, nil
}

// Close disables and unexports the PWM unit.
func (p *HwPwm) Close() {
	writeFile(p.base+enableFile, "0")
	p.pFile.Close()
	p.dFile.Close()
	unexport(pwmUnexportFile, p.unit)
}

// Set sets the period and the duty cycle as a fraction (0 to 1) of the period.
// Unchanged values are not rewritten.
func (p *HwPwm) Set(period time.Duration, duty float64) error {
	pNano, dNano, err := dutyTime(period, duty)
	if err != nil {
		return fmt.Errorf("pwm%d: %w", p.unit, err)
	}
	// The duty cycle must never exceed the current period, so
	// a longer duty needs the period written first.
	if dNano > p.period {
		if err := p.write(p.pFile, pNano); err != nil {
			return err
		}
		if err := p.write(p.dFile, dNano); err != nil {
			return err
		}
	} else {
		if dNano != p.duty {
			if err := p.write(p.dFile, dNano); err != nil {
				return err
			}
		}
		if pNano != p.period {
			if err := p.write(p.pFile, pNano); err != nil {
				return err
			}
		}
	}
	p.period = pNano
	p.duty = dNano
	return nil
}

func (p *HwPwm) write(f *os.File, v int64) error {
	if _, err := f.WriteAt([]byte(strconv.FormatInt(v, 10)), 0); err != nil {
		return fmt.Errorf("pwm%d: %w", p.unit, err)
	}
	return nil
}

// dutyTime converts a period and a duty fraction to nanoseconds.
func dutyTime(period time.Duration, duty float64) (int64, int64, error) {
	if duty < 0 || duty > 1 {
		return 0, 0, fmt.Errorf("%g: invalid duty cycle", duty)
	}
	pNano := period.Nanoseconds()
	if pNano < 15 {
		return 0, 0, fmt.Errorf("%v: invalid period", period)
	}
	return pNano, int64(float64(pNano)*duty + 0.5), nil
}
