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

// Simulator meter clock program

package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/aamcrae/meterclock/button"
	"github.com/aamcrae/meterclock/internal/logger"
	"github.com/aamcrae/meterclock/meter"
	"github.com/aamcrae/meterclock/timesource"
)

const (
	scaleWidth = 61 // Cells across the meter face
	maxLines   = 8  // Status lines shown
)

var (
	flagPort  int
	flagTick  time.Duration
	flagSync  bool
	flagSpeed []int
)

var (
	styleFace   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	styleNeedle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3366FF")).Bold(true)
	styleCal    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3300")).Bold(true)
	styleState  = lipgloss.NewStyle().Bold(true)
	styleHelp   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "simulator",
		Short: "Simulate the meter clock in a terminal.",
		Long: `Runs the meter clock control loop against a simulated meter, button
and time source. Keys: space for a short press, l for a long press,
t to send the host time, q to quit.`,
		Args: cobra.NoArgs,
		RunE: run,
	}
	rootCmd.Flags().IntVar(&flagPort, "port", 0, "Web server port number, 0 to disable")
	rootCmd.Flags().DurationVar(&flagTick, "tick", 20*time.Millisecond, "Control loop interval")
	rootCmd.Flags().BoolVar(&flagSync, "sync", false, "Send the host time at startup")
	rootCmd.Flags().IntSliceVar(&flagSpeed, "speed", []int{128, 32, 16}, "Steps per second for startup, time display and waiting")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	if len(flagSpeed) != 3 {
		return fmt.Errorf("speed: expected 3 values")
	}
	// Log lines would corrupt the terminal display.
	logger.SetLevel(zapcore.ErrorLevel)
	sim := newSim(meter.Speeds{Fast: flagSpeed[0], Normal: flagSpeed[1], Idle: flagSpeed[2]}, time.Now)
	if flagSync {
		sim.source.send(time.Now())
	}
	if flagPort != 0 {
		go func() {
			if err := meter.Server(flagPort, sim.display); err != nil {
				logger.Errorf("server: %v", err)
			}
		}()
	}
	_, err := tea.NewProgram(model{sim: sim, tick: flagTick}, tea.WithAltScreen()).Run()
	return err
}

// simButton reports key presses as button events.
type simButton struct {
	mu    sync.Mutex
	event button.Event
}

func (b *simButton) press(e button.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.event = e
}

func (b *simButton) Poll() button.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.event
	b.event = button.None
	return e
}

// simSource delivers times sent from the keyboard.
type simSource struct {
	mu      sync.Mutex
	t       time.Time
	pending bool
}

func (s *simSource) send(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t, s.pending = t, true
}

func (s *simSource) Poll() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return time.Time{}, false
	}
	s.pending = false
	return s.t, true
}

// simMeter records the needle position.
type simMeter struct {
	mu       sync.Mutex
	position int
	writes   int
}

func (m *simMeter) Write(p int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = p
	m.writes++
	return nil
}

func (m *simMeter) get() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position, m.writes
}

// lines keeps the most recent status lines.
type lines struct {
	mu    sync.Mutex
	lines []string
}

func (l *lines) Status(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, time.Now().Format("15:04:05")+" "+line)
	if len(l.lines) > maxLines {
		l.lines = l.lines[len(l.lines)-maxLines:]
	}
}

func (l *lines) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// sim is the simulated clock, shared between model copies.
type sim struct {
	button  *simButton
	source  *simSource
	meter   *simMeter
	status  *lines
	display *meter.Display
	now     func() time.Time
}

func newSim(sp meter.Speeds, now func() time.Time) *sim {
	s := &sim{
		button: &simButton{},
		source: &simSource{},
		meter:  &simMeter{},
		status: &lines{},
		now:    now,
	}
	m := meter.NewMotion("sim", s.meter, now)
	s.display = meter.NewDisplay("sim", m, s.button, s.source, timesource.NewKeeper(now), s.status, sp)
	return s
}

type tickMsg time.Time

type model struct {
	sim  *sim
	tick time.Duration
}

func (m model) Init() tea.Cmd {
	return tickCmd(m.tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "space":
			m.sim.button.press(button.ShortPress)
		case "l":
			m.sim.button.press(button.LongPress)
		case "t":
			m.sim.source.send(m.sim.now())
		}
	case tickMsg:
		m.sim.display.Tick()
		return m, tickCmd(m.tick)
	}
	return m, nil
}

func (m model) View() string {
	s := m.sim.display.Snapshot()
	pos, writes := m.sim.meter.get()
	needle := styleNeedle
	if s.State == meter.Calibrating.String() {
		needle = styleCal
	}
	var b strings.Builder
	b.WriteString(scale() + "\n")
	b.WriteString(strings.Repeat(" ", cell(pos)) + needle.Render("^") + "\n")
	fmt.Fprintf(&b, "%s  position %d  target %d  speed %d  writes %d\n",
		styleState.Render(s.State), pos, s.Target, s.Speed, writes)
	if !s.LastSync.IsZero() {
		fmt.Fprintf(&b, "last sync %s\n", s.LastSync.Format("15:04:05"))
	}
	if s.CalibrationHour != nil {
		fmt.Fprintf(&b, "calibration hour %d\n", *s.CalibrationHour)
	}
	face := styleFace.Render(b.String())
	help := styleHelp.Render("space: short press  l: long press  t: send time  q: quit")
	return lipgloss.JoinVertical(lipgloss.Left, face, strings.Join(m.sim.status.get(), "\n"), help)
}

// scale returns the meter face with the hour labels.
func scale() string {
	row := []byte(strings.Repeat(" ", scaleWidth+1))
	for h := 0; h <= 12; h++ {
		label := fmt.Sprintf("%d", h)
		if h == 0 {
			label = "12"
		}
		c := cell(meter.Position(12+h, 0, 0))
		if c+len(label) > len(row) {
			c = len(row) - len(label)
		}
		copy(row[c:], label)
	}
	return string(row)
}

// cell returns the character column of a position.
func cell(p int) int {
	return p * (scaleWidth - 1) / meter.MaxPosition
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
