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
	"fmt"
	"strings"
	"time"

	"github.com/aamcrae/config"
)

// Driver names used in the config.
const (
	DriverNone   = "none"
	DriverPWM    = "pwm"    // sysfs hardware PWM unit
	DriverGPIO   = "gpio"   // sysfs GPIO number
	DriverPeriph = "periph" // periph.io pin name
	SourceSystem = "system"
	SourceDCF77  = "dcf77"
)

// Configuration data for the meter clock, read from a configuration file.
type Config struct {
	Name      string
	Output    string        // Meter output as driver:name
	Period    time.Duration // PWM period
	Button    string        // Button input as driver:name
	ActiveLow bool          // Button reads 0 when pressed
	Source    string        // system, or dcf77:driver:name
	Invert    bool          // Invert the DCF77 receiver signal
	Sync      time.Duration // Update interval of the system time source
	Speeds    Speeds
	Tick      time.Duration // Control loop interval
	Serial    string        // Serial port for status lines
	Baud      int
	Port      int // HTTP server port, 0 to disable
}

// ReadConfig reads and validates the meter config from a config file section.
// Sample config:
//
//	[meter]
//	output=pwm:0             # Meter drive, pwm:<unit>, gpio:<pin>, periph:<name> or none
//	period=1ms               # PWM period
//	button=gpio:17           # Calibration button, gpio:<pin>, periph:<name> or none
//	activelow=1              # Button input is low when pressed
//	source=dcf77:gpio:21     # Time source, system or dcf77:<driver>:<pin>
//	invert=0                 # Invert the receiver output
//	sync=1h                  # Update interval of the system time source
//	speed=128,32,16          # Steps per second for startup, time display and waiting
//	tick=10ms                # Control loop interval
//	serial=/dev/ttyUSB0      # Serial port for status lines
//	baud=9600                # Serial port speed
//	port=8080                # Status web server port
//
// Missing entries use default values.
func ReadConfig(conf *config.Config, name string) (*Config, error) {
	s := conf.GetSection(name)
	if s == nil {
		return nil, fmt.Errorf("no config for %s", name)
	}
	c := &Config{
		Name:   name,
		Output: DriverNone,
		Period: time.Millisecond,
		Button: DriverNone,
		Source: SourceSystem,
		Sync:   time.Hour,
		Speeds: DefaultSpeeds,
		Tick:   10 * time.Millisecond,
	}
	// arg returns the value of the key, or "" if not present.
	arg := func(key string) string {
		v, err := s.GetArg(key)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}
	duration := func(key string, d *time.Duration) error {
		v := arg(key)
		if v == "" {
			return nil
		}
		var err error
		*d, err = time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
		if *d <= 0 {
			return fmt.Errorf("%s: must be positive", key)
		}
		return nil
	}
	flag := func(key string, b *bool) error {
		switch arg(key) {
		case "":
		case "1", "true", "yes":
			*b = true
		case "0", "false", "no":
			*b = false
		default:
			return fmt.Errorf("%s: invalid value", key)
		}
		return nil
	}
	if v := arg("output"); v != "" {
		c.Output = v
	}
	if v := arg("button"); v != "" {
		c.Button = v
	}
	if v := arg("source"); v != "" {
		c.Source = v
	}
	for _, d := range []struct {
		key string
		d   *time.Duration
	}{{"period", &c.Period}, {"sync", &c.Sync}, {"tick", &c.Tick}} {
		if err := duration(d.key, d.d); err != nil {
			return nil, err
		}
	}
	if err := flag("activelow", &c.ActiveLow); err != nil {
		return nil, err
	}
	if err := flag("invert", &c.Invert); err != nil {
		return nil, err
	}
	var sp Speeds
	n, err := s.Parse("speed", "%d,%d,%d", &sp.Fast, &sp.Normal, &sp.Idle)
	if err == nil {
		if n != 3 {
			return nil, fmt.Errorf("speed: argument count")
		}
		if sp.Fast < 1 || sp.Normal < 1 || sp.Idle < 1 {
			return nil, fmt.Errorf("speed: must be positive")
		}
		c.Speeds = sp
	} else if arg("speed") != "" {
		return nil, fmt.Errorf("speed: %v", err)
	}
	c.Serial = arg("serial")
	for _, i := range []struct {
		key string
		v   *int
	}{{"baud", &c.Baud}, {"port", &c.Port}} {
		if arg(i.key) == "" {
			continue
		}
		n, err := s.Parse(i.key, "%d", i.v)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", i.key, err)
		}
		if n != 1 || *i.v < 0 {
			return nil, fmt.Errorf("%s: invalid value", i.key)
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks the driver specifications.
func (c *Config) validate() error {
	drv, _, err := SplitDriver(c.Output)
	if err != nil {
		return fmt.Errorf("output: %v", err)
	}
	if drv != DriverNone && drv != DriverPWM && drv != DriverGPIO && drv != DriverPeriph {
		return fmt.Errorf("output: unknown driver %q", drv)
	}
	drv, _, err = SplitDriver(c.Button)
	if err != nil {
		return fmt.Errorf("button: %v", err)
	}
	if drv != DriverNone && drv != DriverGPIO && drv != DriverPeriph {
		return fmt.Errorf("button: unknown driver %q", drv)
	}
	if c.Source == SourceSystem {
		return nil
	}
	src, in, found := strings.Cut(c.Source, ":")
	if src != SourceDCF77 || !found {
		return fmt.Errorf("source: unknown source %q", c.Source)
	}
	drv, _, err = SplitDriver(in)
	if err != nil {
		return fmt.Errorf("source: %v", err)
	}
	if drv != DriverGPIO && drv != DriverPeriph {
		return fmt.Errorf("source: unknown driver %q", drv)
	}
	return nil
}

// SplitDriver splits a driver:name specification. The none driver takes no name.
func SplitDriver(spec string) (string, string, error) {
	if spec == DriverNone {
		return DriverNone, "", nil
	}
	drv, name, found := strings.Cut(spec, ":")
	if !found || drv == "" || name == "" {
		return "", "", fmt.Errorf("%q: expected driver:name", spec)
	}
	return drv, name, nil
}
