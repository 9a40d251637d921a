package service

import (
	"math"
	"time"

	"github.com/voltguard/voltguard-backend/internal/models"
)

// telemetryWindow holds the trailing power samples for one device. It backs
// both the per-device history endpoint and the rolling anomaly statistics.
// Access is serialized by the device service's per-device lock.
type telemetryWindow struct {
	samples     []models.PowerSample
	max         int
	lastAnomaly time.Time
}

func newTelemetryWindow(max int) *telemetryWindow {
	if max <= 0 {
		max = 64
	}
	return &telemetryWindow{max: max}
}

func (w *telemetryWindow) push(s models.PowerSample) {
	w.samples = append(w.samples, s)
	if len(w.samples) > w.max {
		w.samples = w.samples[len(w.samples)-w.max:]
	}
}

// snapshot returns a copy of the window, oldest first.
func (w *telemetryWindow) snapshot() []models.PowerSample {
	out := make([]models.PowerSample, len(w.samples))
	copy(out, w.samples)
	return out
}

// stats returns mean and standard deviation of power over the window.
func (w *telemetryWindow) stats() (mean, stddev float64, n int) {
	n = len(w.samples)
	if n == 0 {
		return 0, 0, 0
	}
	for _, s := range w.samples {
		mean += s.Power
	}
	mean /= float64(n)
	var sumsq float64
	for _, s := range w.samples {
		d := s.Power - mean
		sumsq += d * d
	}
	stddev = math.Sqrt(sumsq / float64(n))
	return mean, stddev, n
}

// isAnomalous reports whether power deviates from the trailing average by
// more than sigma standard deviations. The window must have warmed up past
// minSamples, and a flat window (zero deviation) never flags.
func (w *telemetryWindow) isAnomalous(power, sigma float64, minSamples int) bool {
	mean, stddev, n := w.stats()
	if n < minSamples || stddev == 0 {
		return false
	}
	return math.Abs(power-mean) > sigma*stddev
}
