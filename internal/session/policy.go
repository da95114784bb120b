package session

import (
	"time"

	"raydium-sniper/internal/store"
)

// Step policy constants. The step is the take-profit threshold in
// percent; it climbs while momentum holds and decays when it fades.
const (
	initialStep  = 40
	stepRaise    = 40
	stepDecay    = 10
	hardExitStep = -99
)

// sellToBuyRatio is sell ticks per hundred buy ticks.
func sellToBuyRatio(volume store.Volume) float64 {
	if volume.Buy <= 0 {
		return 0
	}
	return float64(volume.Sell*100) / float64(volume.Buy)
}

// inEntryRange reports whether the sample count and tick ratio allow a
// buy. Very young sessions carry too little signal; very old ones have
// already run.
func inEntryRange(sellToBuy float64, samples int) bool {
	if samples <= 50 {
		return false
	}
	if samples <= 2000 {
		return sellToBuy <= 80
	}
	return false
}

// allDiffsAbove reports whether every recorded change delta stays above
// the floor.
func allDiffsAbove(diffs []float64, floor float64) bool {
	for _, d := range diffs {
		if d < floor {
			return false
		}
	}
	return true
}

// nextStep advances the take-profit step for a held position.
// hardExitStep forces an immediate sell.
func nextStep(momentum float64, volume store.Volume, ownChange float64, sinceBuy time.Duration, step int) int {
	if volume.Sell > volume.Buy && ownChange <= 10 && sinceBuy >= 30*time.Second {
		return hardExitStep
	}
	if ownChange <= -35 || (ownChange <= -20 && sinceBuy >= 140*time.Second) {
		return hardExitStep
	}

	if momentum <= -0.05 {
		if step >= 20 {
			step -= stepDecay
		}
		return step
	}

	threshold := float64(step - 20)
	if ownChange >= threshold && momentum >= 0.15 {
		return step + stepRaise
	}
	return step
}
