package cycles

import "math"

// DetectCycleExtremes finds peak and trough indices in series spaced for
// the given cycle length. Spacing allows some drift (0.6 of the cycle) and
// prominence is scaled to the series volatility so quiet symbols don't
// sprout phantom extremes.
func DetectCycleExtremes(series []float64, cycleLength int) (peaks, troughs []int) {
	if len(series) < 3 || cycleLength < 2 {
		return nil, nil
	}
	prominence := stddev(series) * 0.5
	distance := int(float64(cycleLength) * 0.6)
	if distance < 1 {
		distance = 1
	}

	peaks = findPeaks(series, distance, prominence)

	inverted := make([]float64, len(series))
	for i, v := range series {
		inverted[i] = -v
	}
	troughs = findPeaks(inverted, distance, prominence)
	return peaks, troughs
}

// findPeaks returns indices of strict local maxima with at least the given
// prominence, thinned so surviving peaks are at least distance bars apart
// (higher peaks win).
func findPeaks(x []float64, distance int, prominence float64) []int {
	var locals []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] > x[i-1] && x[i] > x[i+1] {
			locals = append(locals, i)
		}
	}

	var prominent []int
	for _, p := range locals {
		if peakProminence(x, p) >= prominence {
			prominent = append(prominent, p)
		}
	}

	// Thin by distance, keeping the taller peak of any close pair.
	order := make([]int, len(prominent))
	copy(order, prominent)
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && x[order[j]] > x[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	kept := make(map[int]bool)
	for _, p := range order {
		ok := true
		for k := range kept {
			if abs(p-k) < distance {
				ok = false
				break
			}
		}
		if ok {
			kept[p] = true
		}
	}

	out := make([]int, 0, len(kept))
	for _, p := range prominent {
		if kept[p] {
			out = append(out, p)
		}
	}
	return out
}

// peakProminence measures how far the peak rises above the higher of the
// two valley floors between it and the nearest taller point on each side.
func peakProminence(x []float64, peak int) float64 {
	left := x[peak]
	for i := peak - 1; i >= 0; i-- {
		if x[i] > x[peak] {
			break
		}
		if x[i] < left {
			left = x[i]
		}
	}
	right := x[peak]
	for i := peak + 1; i < len(x); i++ {
		if x[i] > x[peak] {
			break
		}
		if x[i] < right {
			right = x[i]
		}
	}
	base := left
	if right > base {
		base = right
	}
	return x[peak] - base
}

// GenerateCycleWave produces a synthetic sine overlay for a cycle: numPoints
// samples spanning numPoints/length full cycles, shifted by phaseShift
// radians. Used only for the rendering payload.
func GenerateCycleWave(length, numPoints int, phaseShift float64) []float64 {
	if numPoints <= 0 || length <= 0 {
		return nil
	}
	out := make([]float64, numPoints)
	if numPoints == 1 {
		out[0] = math.Sin(phaseShift)
		return out
	}
	span := 2 * math.Pi * float64(numPoints) / float64(length)
	step := span / float64(numPoints-1)
	for i := range out {
		out[i] = math.Sin(float64(i)*step + phaseShift)
	}
	return out
}

func stddev(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	var ss float64
	for _, v := range x {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(x)))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
