package sweep

import "math"

// freqCompare compares frequencies using a bin width based tolerance.
// Returns:
//
//	-1 if a < b
//	 0 if a ≈ b (within tolerance)
//	+1 if a > b
func freqCompare(a, b, binWidth float64) int {
	tolerance := binWidth * 0.01 // 1% of bin width

	diff := a - b
	if math.Abs(diff) <= tolerance {
		return 0
	}
	if diff < 0 {
		return -1
	}
	return 1
}

// freqEqual returns true if a equals b within bin width based tolerance
func freqEqual(a, b, binWidth float64) bool {
	return freqCompare(a, b, binWidth) == 0
}
