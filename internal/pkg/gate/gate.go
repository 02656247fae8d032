package gate

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

// DefaultCapacity of simultaneous conversions
const DefaultCapacity = 3

var inUseGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "scribe_gate_in_use",
	Help: "Conversion slots in use",
})

func init() {
	prometheus.MustRegister(inUseGauge)
}

// Gate bounds how many conversions run at once
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	inUse    int32
}

// New creates gate, capacity < 1 is treated as 1
func New(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	goapp.Log.Info().Int("capacity", capacity).Msg("gate")
	return &Gate{sem: semaphore.NewWeighted(int64(capacity)), capacity: capacity}
}

// Acquire blocks until a slot is free or ctx is done
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("can't acquire slot: %w", err)
	}
	inUseGauge.Set(float64(atomic.AddInt32(&g.inUse, 1)))
	return nil
}

// Release returns slot
func (g *Gate) Release() {
	inUseGauge.Set(float64(atomic.AddInt32(&g.inUse, -1)))
	g.sem.Release(1)
}

// InUse returns taken slots count
func (g *Gate) InUse() int {
	return int(atomic.LoadInt32(&g.inUse))
}

// Capacity returns gate size
func (g *Gate) Capacity() int {
	return g.capacity
}
