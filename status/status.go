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

// Package status provides sinks for human readable status lines,
// such as time updates and state changes.
package status

import (
	"fmt"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/aamcrae/meterclock/internal/logger"
)

// DefaultBaud is the serial rate used when none is configured.
const DefaultBaud = 9600

// Format returns the time as HH:MM:SS followed by the meter position.
func Format(hour, minute, second, position int) string {
	return fmt.Sprintf("%02d:%02d:%02d (%d)", hour, minute, second, position)
}

// Logger writes status lines to the global logger.
type Logger struct {
	Name string
}

// Status logs the line.
func (l *Logger) Status(line string) {
	logger.Infof("%s: %s", l.Name, line)
}

// Serial writes status lines to a serial port.
type Serial struct {
	name string
	mu   sync.Mutex
	port serial.Port
}

// OpenSerial opens the named serial port at the baud rate given.
func OpenSerial(name string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Serial{name: name, port: p}, nil
}

// Status writes the line terminated with CR LF.
// Write errors are logged and the line discarded.
func (s *Serial) Status(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.port.Write([]byte(line + "\r\n")); err != nil {
		logger.Warnf("%s: write: %v", s.name, err)
	}
}

// Close closes the serial port.
func (s *Serial) Close() error {
	return s.port.Close()
}

// Sink is the interface implemented by status sinks.
type Sink interface {
	Status(line string)
}

// Multi sends each line to all of the sinks.
type Multi []Sink

func (m Multi) Status(line string) {
	line = strings.TrimRight(line, "\r\n")
	for _, s := range m {
		s.Status(line)
	}
}
