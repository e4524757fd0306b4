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

// Meter clock program

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aamcrae/config"
	"github.com/spf13/cobra"

	"github.com/aamcrae/meterclock/button"
	"github.com/aamcrae/meterclock/dcf77"
	"github.com/aamcrae/meterclock/internal/logger"
	"github.com/aamcrae/meterclock/io"
	"github.com/aamcrae/meterclock/meter"
	"github.com/aamcrae/meterclock/status"
	"github.com/aamcrae/meterclock/timesource"
)

var (
	configFile string
	section    string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "meterclock",
		Short: "Show the time on an analog voltmeter.",
		Long: `Drives a voltmeter needle from a PWM output so that it points at the
hour marks of the meter face. The time is taken from the system clock or
from a DCF77 receiver, and a button selects a calibration mode that steps
the needle through the hour marks.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return run(ctx)
		},
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&section, "section", "s", "meter", "configuration section")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	lvl, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%s: unknown log level", logLevel)
	}
	logger.SetLevel(lvl)
	defer logger.Sync()

	conf, err := config.ParseFile(configFile)
	if err != nil {
		return fmt.Errorf("%s: %w", configFile, err)
	}
	c, err := meter.ReadConfig(conf, section)
	if err != nil {
		return fmt.Errorf("%s: %w", section, err)
	}
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	out, err := output(c)
	if err != nil {
		return err
	}
	if mo, ok := out.(*io.MeterOutput); ok {
		closers = append(closers, mo.Close)
	}
	var sinks status.Multi
	sinks = append(sinks, &status.Logger{Name: c.Name})
	if c.Serial != "" {
		s, err := status.OpenSerial(c.Serial, c.Baud)
		if err != nil {
			return err
		}
		closers = append(closers, func() { s.Close() })
		sinks = append(sinks, s)
	}
	var b meter.Button
	if c.Button != meter.DriverNone {
		drv, name, _ := meter.SplitDriver(c.Button)
		in, err := io.OpenInput(drv, name, c.ActiveLow, false)
		if err != nil {
			return fmt.Errorf("button: %w", err)
		}
		closers = append(closers, in.Close)
		bt := button.New(c.Name+"-button", in, nil)
		bt.ActiveLow = c.ActiveLow
		b = bt
	}
	src, err := source(ctx, c, &closers)
	if err != nil {
		return err
	}
	m := meter.NewMotion(c.Name, out, nil)
	d := meter.NewDisplay(c.Name, m, b, src, timesource.NewKeeper(nil), sinks, c.Speeds)
	if c.Port != 0 {
		go func() {
			if err := meter.Server(c.Port, d); err != nil {
				logger.Errorf("%s: server: %v", c.Name, err)
			}
		}()
	}
	err = d.Run(ctx, c.Tick)
	if errors.Is(err, context.Canceled) {
		logger.Infof("%s: shutting down", c.Name)
		return nil
	}
	return err
}

// output opens the meter drive.
func output(c *meter.Config) (meter.Output, error) {
	drv, name, _ := meter.SplitDriver(c.Output)
	if drv == meter.DriverNone {
		logger.Warnf("%s: no meter output configured", c.Name)
		return discard{}, nil
	}
	o, err := io.OpenMeter(drv, name, c.Period)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	return o, nil
}

// source opens the time source. A DCF77 receiver is decoded in its own goroutine.
func source(ctx context.Context, c *meter.Config, closers *[]func()) (meter.TimeSource, error) {
	if c.Source == meter.SourceSystem {
		return timesource.NewSystem(c.Sync, nil), nil
	}
	_, spec, _ := strings.Cut(c.Source, ":")
	drv, name, _ := meter.SplitDriver(spec)
	in, err := io.OpenInput(drv, name, false, true)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	*closers = append(*closers, in.Close)
	dec := dcf77.New(c.Name+"-dcf77", nil)
	dec.Invert = c.Invert
	go func() {
		if err := dec.Run(in); err != nil && ctx.Err() == nil {
			logger.Errorf("%s: receiver stopped: %v", c.Name, err)
		}
	}()
	return dec, nil
}

// discard is the output used when no meter is connected.
type discard struct{}

func (discard) Write(int) error {
	return nil
}
