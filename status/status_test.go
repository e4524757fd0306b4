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

package status

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aamcrae/meterclock/internal/logger"
)

type recorder struct {
	lines []string
}

func (r *recorder) Status(line string) {
	r.lines = append(r.lines, line)
}

// TestFormat checks zero padding of the time fields.
func TestFormat(t *testing.T) {
	t.Parallel()

	require.Equal(t, "14:30:00 (53)", Format(14, 30, 0, 53))
	require.Equal(t, "01:02:03 (0)", Format(1, 2, 3, 0))
}

// TestMulti checks that every sink receives each line.
func TestMulti(t *testing.T) {
	t.Parallel()

	a, b := &recorder{}, &recorder{}
	m := Multi{a, b}
	m.Status("Startup finished\n")
	m.Status("Entering wait-for-time")

	require.Equal(t, []string{"Startup finished", "Entering wait-for-time"}, a.lines)
	require.Equal(t, a.lines, b.lines)
}

// TestLogger checks that status lines are logged with the sink name.
func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	old := logger.Logger()
	logger.SetLogger(zap.New(core).Sugar())
	defer logger.SetLogger(old)

	l := &Logger{Name: "meter"}
	l.Status("Startup finished")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "meter: Startup finished", logs.All()[0].Message)
}
