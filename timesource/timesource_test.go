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

package timesource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestKeeper checks the keeper advances from the time set.
func TestKeeper(t *testing.T) {
	t.Parallel()

	local := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	k := NewKeeper(func() time.Time { return local })

	h, m, s := k.Clock()
	require.Equal(t, []int{3, 0, 0}, []int{h, m, s})

	k.Set(time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC))
	local = local.Add(90 * time.Second)
	h, m, s = k.Clock()
	require.Equal(t, []int{14, 31, 30}, []int{h, m, s})
}

// TestSystem checks the host source yields immediately and then once per interval.
func TestSystem(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	s := NewSystem(time.Minute, func() time.Time { return now })

	got, ok := s.Poll()
	require.True(t, ok)
	require.Equal(t, now, got)

	now = now.Add(30 * time.Second)
	_, ok = s.Poll()
	require.False(t, ok)

	now = now.Add(30 * time.Second)
	got, ok = s.Poll()
	require.True(t, ok)
	require.Equal(t, now, got)
}

// TestSystemDefault checks the default interval.
func TestSystemDefault(t *testing.T) {
	t.Parallel()

	s := NewSystem(0, nil)
	require.Equal(t, DefaultInterval, s.Interval)
	_, ok := s.Poll()
	require.True(t, ok)
}
