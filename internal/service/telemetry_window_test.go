package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltguard/voltguard-backend/internal/models"
)

func TestTelemetryWindowTrimsToCapacity(t *testing.T) {
	w := newTelemetryWindow(3)
	for i := 0; i < 5; i++ {
		w.push(models.PowerSample{Power: float64(i)})
	}
	got := w.snapshot()
	require.Len(t, got, 3)
	require.Equal(t, 2.0, got[0].Power)
	require.Equal(t, 4.0, got[2].Power)
}

func TestTelemetryWindowStats(t *testing.T) {
	w := newTelemetryWindow(8)
	for _, p := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.push(models.PowerSample{Power: p})
	}
	mean, stddev, n := w.stats()
	require.Equal(t, 8, n)
	require.InDelta(t, 5.0, mean, 1e-9)
	require.InDelta(t, 2.0, stddev, 1e-9)
}

func TestTelemetryWindowAnomaly(t *testing.T) {
	w := newTelemetryWindow(16)
	for i := 0; i < 10; i++ {
		p := 100.0
		if i%2 == 1 {
			p = 101.0
		}
		w.push(models.PowerSample{Power: p})
	}

	require.False(t, w.isAnomalous(100.5, 3, 8))
	require.True(t, w.isAnomalous(1000, 3, 8))
	require.True(t, w.isAnomalous(-100, 3, 8))

	// min-samples warm-up suppresses detection
	require.False(t, w.isAnomalous(1000, 3, 20))
}

func TestTelemetryWindowFlatNeverFlags(t *testing.T) {
	w := newTelemetryWindow(16)
	for i := 0; i < 10; i++ {
		w.push(models.PowerSample{Power: 60})
	}
	require.False(t, w.isAnomalous(5000, 3, 8))
}

func TestTelemetryWindowEmpty(t *testing.T) {
	w := newTelemetryWindow(4)
	mean, stddev, n := w.stats()
	require.Zero(t, n)
	require.Zero(t, mean)
	require.Zero(t, stddev)
	require.Empty(t, w.snapshot())
	require.True(t, w.lastAnomaly.Equal(time.Time{}))
}
