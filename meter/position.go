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

// Mapping of time of day to meter position.

package meter

// MaxPosition is the full scale output of the meter.
const MaxPosition = 255

// The 12 hour face is scaled to slightly less than full scale so that
// the 12:00 mark is clear of the meter end stop.
const faceScale = 252

const secondsPerFace = 12 * 60 * 60

// Position returns the meter position representing the time.
// Hours of 12 or more are reduced by 12 so that a 24 hour clock
// folds onto the 12 hour face; noon and midnight are both at 0.
// An hour of 24 maps to the 12:00 mark at the top of the face.
// The result is rounded to the nearest step and clamped to the meter range.
func Position(hour, minute, second int) int {
	if hour >= 12 {
		hour -= 12
	}
	secs := hour*60*60 + minute*60 + second
	if secs < 0 {
		return 0
	}
	// Round half up using integer arithmetic to avoid float error on
	// exact half steps e.g 2:30 is 52.5.
	return clamp((secs*faceScale*2 + secondsPerFace) / (secondsPerFace * 2))
}

// Limit a position to the meter range.
func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > MaxPosition {
		return MaxPosition
	}
	return p
}
