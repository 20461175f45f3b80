// Package quality gates captured samples on their device-reported quality
// score before they are allowed into verification.
package quality

// DefaultThreshold is the minimum acceptable score when no threshold is
// configured.
const DefaultThreshold = 40

// DefaultScore substitutes for samples whose device reported no quality
// metric at all.
const DefaultScore = 50

// guidanceEscalationAttempt is the attempt number from which operators get
// concrete handling advice instead of a plain retry prompt.
const guidanceEscalationAttempt = 3

// Accept reports whether a quality score clears the threshold.
// Deterministic, no state.
func Accept(score, threshold int) bool {
	return score >= threshold
}

// Clamp normalizes a device-reported score into the 0-100 range.
// Negative values mean the device reported no metric; DefaultScore applies.
func Clamp(score int) int {
	switch {
	case score < 0:
		return DefaultScore
	case score > 100:
		return 100
	default:
		return score
	}
}

// Guidance returns operator guidance for a rejected attempt. From the third
// attempt on the advice escalates to concrete scanner handling.
func Guidance(attempt int) string {
	if attempt >= guidanceEscalationAttempt {
		return "clean the scanner surface and ask the customer to press firmly with the center of the finger"
	}
	return "quality too low, please try again"
}
