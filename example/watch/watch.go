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

// Program to demonstrate watching button presses

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aamcrae/meterclock/button"
	"github.com/aamcrae/meterclock/internal/logger"
	"github.com/aamcrae/meterclock/io"
)

var (
	driver    string
	name      string
	activeLow bool
	edges     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print input changes or button presses.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			in, err := io.OpenInput(driver, name, activeLow, edges)
			if err != nil {
				return err
			}
			defer in.Close()
			if edges {
				for {
					v, err := in.Get()
					if err != nil {
						return err
					}
					logger.Infof("%s:%s = %d", driver, name, v)
				}
			}
			b := button.New(name, in, nil)
			b.ActiveLow = activeLow
			for range time.Tick(10 * time.Millisecond) {
				if e := b.Poll(); e != button.None {
					logger.Infof("%s:%s %s press", driver, name, e)
				}
			}
			return nil
		},
	}
	rootCmd.Flags().StringVar(&driver, "driver", "gpio", "Input driver (gpio or periph)")
	rootCmd.Flags().StringVar(&name, "name", "17", "GPIO number or pin name")
	rootCmd.Flags().BoolVar(&activeLow, "active-low", true, "Input is low when pressed")
	rootCmd.Flags().BoolVar(&edges, "edges", false, "Print each input edge instead of button presses")
	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("%v", err)
	}
}
