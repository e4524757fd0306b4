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

// HTTP server for meter images and status

package meter

import (
	"fmt"
	"math"
	"net/http"

	"github.com/fogleman/gg"
	"gopkg.in/yaml.v3"

	"github.com/aamcrae/meterclock/internal/logger"
)

// Dial geometry.
const (
	imageWidth  = 500
	imageHeight = 300
	midX        = imageWidth / 2
	midY        = imageHeight - 30
	dialRadius  = 220
	sweep       = math.Pi / 2 // Angle of full scale deflection
)

// Server serves the meter image and status on the port until it fails.
func Server(port int, d *Display) error {
	url := fmt.Sprintf(":%d", port)
	logger.Infof("%s: starting server on %s", d.Name, url)
	server := &http.Server{Addr: url, Handler: Handler(d)}
	return server.ListenAndServe()
}

// Handler returns the handler for /meter.png and /status.
func Handler(d *Display) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/meter.png", func(w http.ResponseWriter, r *http.Request) {
		c := DrawMeter(d.Snapshot())
		w.Header().Set("Content-Type", "image/png")
		if err := c.EncodePNG(w); err != nil {
			logger.Warnf("%s: error writing image: %v", d.Name, err)
		}
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		b, err := yaml.Marshal(d.Snapshot())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(b)
	})
	return mux
}

// DrawMeter draws the meter face with the hour marks and the needle.
func DrawMeter(s Snapshot) *gg.Context {
	c := gg.NewContext(imageWidth, imageHeight)
	c.SetRGB(1, 1, 1)
	c.Clear()
	c.SetRGB(0, 0, 0)
	c.SetLineWidth(2)
	c.DrawArc(midX, midY, dialRadius, angle(0), angle(MaxPosition))
	c.Stroke()
	for h := 0; h <= 12; h++ {
		a := angle(Position(12+h, 0, 0))
		mark(c, a, dialRadius-15, dialRadius)
		label := fmt.Sprintf("%d", h)
		if h == 0 {
			label = "12"
		}
		x, y := polar(a, dialRadius+15)
		c.DrawStringAnchored(label, x, y, 0.5, 0.5)
	}
	c.DrawStringAnchored(s.State, midX, midY-dialRadius/3, 0.5, 0.5)
	if s.State == Calibrating.String() {
		c.SetRGB(1, 0, 0)
	} else {
		c.SetRGB(0, 0, 1)
	}
	c.SetLineWidth(3)
	mark(c, angle(s.Position), 0, dialRadius-5)
	return c
}

// angle returns the needle angle of a position. The scale is centred
// on vertical, and y increases downwards.
func angle(p int) float64 {
	return -math.Pi/2 - sweep/2 + float64(p)*sweep/MaxPosition
}

func polar(a, r float64) (float64, float64) {
	return midX + r*math.Cos(a), midY + r*math.Sin(a)
}

// mark draws a radial line between the two radii.
func mark(c *gg.Context, a, r1, r2 float64) {
	x1, y1 := polar(a, r1)
	x2, y2 := polar(a, r2)
	c.DrawLine(x1, y1, x2, y2)
	c.Stroke()
}
