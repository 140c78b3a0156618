package orchestrator

import "github.com/molthub/warren/internal/config"

// weightedPick draws one archetype from the configured distribution: a
// uniform draw over [0, totalWeight) walks the cumulative weights in slice
// order. If accumulation never catches the draw (floating-point edge), the
// first category wins deterministically.
func weightedPick(rng Rand, weights []config.ArchetypeWeight) string {
	if len(weights) == 0 {
		return ""
	}

	total := 0
	for _, w := range weights {
		total += w.Weight
	}
	if total <= 0 {
		return weights[0].Archetype
	}

	draw := rng.Float64() * float64(total)
	cumulative := 0.0
	for _, w := range weights {
		cumulative += float64(w.Weight)
		if draw < cumulative {
			return w.Archetype
		}
	}

	return weights[0].Archetype
}
