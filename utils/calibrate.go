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

// Calibration utility

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aamcrae/config"
	"github.com/spf13/cobra"

	"github.com/aamcrae/meterclock/internal/logger"
	mio "github.com/aamcrae/meterclock/io"
	"github.com/aamcrae/meterclock/meter"
)

var (
	configFile string
	section    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Step the meter needle through the hour marks.",
		Long: `Moves the meter needle to each hour mark in turn so that the meter
face can be marked or the meter trimmed. Press return to move to the
next hour, or enter a position or an hour to move to.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			conf, err := config.ParseFile(configFile)
			if err != nil {
				return fmt.Errorf("%s: %w", configFile, err)
			}
			c, err := meter.ReadConfig(conf, section)
			if err != nil {
				return fmt.Errorf("%s: %w", section, err)
			}
			drv, name, _ := meter.SplitDriver(c.Output)
			out, err := mio.OpenMeter(drv, name, c.Period)
			if err != nil {
				return err
			}
			defer out.Close()
			m := meter.NewMotion(c.Name, out, nil)
			return calibrate(os.Stdin, os.Stdout, m, c.Speeds.Normal, c.Tick)
		},
	}
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&section, "section", "s", "meter", "configuration section")
	rootCmd.MarkFlagRequired("config")

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// calibrate reads commands and moves the needle until the input ends or q is entered.
func calibrate(in io.Reader, w io.Writer, m *meter.Motion, speed int, tick time.Duration) error {
	cal := meter.NewCalibration(m, speed)
	cal.Enter()
	move(m, tick)
	reader := bufio.NewReader(in)
	for {
		h, _ := cal.Hour()
		fmt.Fprintf(w, "Hour %d, position %d\n", h, m.Position())
		fmt.Fprint(w, "Enter command ('help' for help) ")
		text, err := reader.ReadString('\n')
		if err != nil && text == "" {
			if err == io.EOF {
				return nil
			}
			return err
		}
		// The needle has been idle while waiting for input.
		m.Rebase()
		text = strings.TrimSpace(text)
		var n int
		switch {
		case text == "":
			cal.AdvanceHour()
		case text == "help":
			fmt.Fprintln(w, "  <return> - move to next hour")
			fmt.Fprintln(w, "  hNN - move to hour NN")
			fmt.Fprintln(w, "  NNN - move to position NNN")
			fmt.Fprintln(w, "  q - quit")
			continue
		case text == "q":
			return nil
		case strings.HasPrefix(text, "h"):
			if k, err := fmt.Sscanf(text, "h%d", &n); err != nil || k != 1 || n < 0 || n > 12 {
				fmt.Fprintln(w, "Unrecognised hour")
				continue
			}
			// Step round to the hour requested.
			for h, _ := cal.Hour(); h != n; h, _ = cal.Hour() {
				cal.AdvanceHour()
			}
		default:
			if k, err := fmt.Sscanf(text, "%d", &n); err != nil || k != 1 || n < 0 || n > meter.MaxPosition {
				fmt.Fprintln(w, "Unrecognised input")
				continue
			}
			m.SetTarget(n)
		}
		move(m, tick)
	}
}

// move runs the motion until the needle reaches the target.
func move(m *meter.Motion, tick time.Duration) {
	for !m.Advance() {
		time.Sleep(tick)
	}
}
