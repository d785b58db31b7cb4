package util

// Converts seconds to milliseconds
func Millis(seconds float64) float64 {
	return seconds * 1e3
}
