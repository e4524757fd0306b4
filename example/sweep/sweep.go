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

// Program to demonstrate driving a meter from a PWM output

package main

import (
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/aamcrae/meterclock/internal/logger"
	"github.com/aamcrae/meterclock/io"
)

var (
	driver string
	name   string
	period time.Duration
	cycles int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep a meter needle across the scale.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			out, err := io.OpenMeter(driver, name, period)
			if err != nil {
				return err
			}
			defer out.Close()
			for i := 0; i < cycles; i++ {
				for v := 0; v < 90; v++ {
					if err := set(out, v); err != nil {
						return err
					}
				}
				for v := 89; v >= 0; v-- {
					if err := set(out, v); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	rootCmd.Flags().StringVar(&driver, "driver", "pwm", "Output driver (pwm, gpio or periph)")
	rootCmd.Flags().StringVar(&name, "name", "0", "PWM unit, GPIO number or pin name")
	rootCmd.Flags().DurationVar(&period, "period", time.Millisecond, "PWM period")
	rootCmd.Flags().IntVar(&cycles, "cycles", 10, "Number of sweeps")
	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("%v", err)
	}
}

// set moves the needle to the sine of the angle in degrees.
func set(out *io.MeterOutput, v int) error {
	p := int(math.Sin(float64(v)*math.Pi/180) * io.FullScale)
	if err := out.Write(p); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}
