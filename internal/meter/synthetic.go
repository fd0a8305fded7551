package meter

import (
	"math/rand"
	"sync"
)

// syntheticGenerator produces plausible panel readings when no device
// endpoint answers. Development and testing aid only; the synthetic path
// carries no production guarantees.
//
// Each branch circuit performs a bounded random walk around a base load,
// so charts look like a real house rather than white noise. The two main
// feeds report roughly half the branch total each.
type syntheticGenerator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	loads []float64
}

// branchBaseLoads are resting watt draws for circuits 3-18.
var branchBaseLoads = []float64{
	3500, // HVAC
	1200, // kitchen
	800,  // laundry
	450, 400, 350, 300, 250,
	200, 180, 150, 120, 100, 80, 60, 40,
}

func newSyntheticGenerator() *syntheticGenerator {
	g := &syntheticGenerator{
		rng:   rand.New(rand.NewSource(rand.Int63())), //nolint:gosec // Not security sensitive
		loads: make([]float64, len(branchBaseLoads)),
	}
	copy(g.loads, branchBaseLoads)
	return g
}

// Generate returns a full panel of synthetic readings.
func (g *syntheticGenerator) Generate() []Reading {
	g.mu.Lock()
	defer g.mu.Unlock()

	readings := make([]Reading, 0, CircuitCount)

	var total float64
	branches := make([]float64, len(g.loads))
	for i, load := range g.loads {
		// Random walk within ±10% of the current load, floored at zero.
		load += load * (g.rng.Float64()*0.2 - 0.1)
		if load < 0 {
			load = 0
		}
		g.loads[i] = load
		branches[i] = load
		total += load
	}

	// Circuits 1-2: main feeds, splitting the branch total.
	for i := 0; i < 2; i++ {
		readings = append(readings, g.reading(i+1, total/2))
	}
	// Circuits 3-18: branches.
	for i, load := range branches {
		readings = append(readings, g.reading(i+3, load))
	}
	return readings
}

// reading builds one synthetic reading with consistent derived values.
func (g *syntheticGenerator) reading(circuit int, watts float64) Reading {
	voltage := DefaultVoltage + g.rng.Float64()*2 - 1
	pf := 0.92 + g.rng.Float64()*0.08
	return Reading{
		Circuit:     circuit,
		Voltage:     voltage,
		CurrentAmps: watts / (voltage * pf),
		PowerWatts:  watts,
		PowerFactor: pf,
		Frequency:   DefaultFrequency + g.rng.Float64()*0.04 - 0.02,
	}
}
