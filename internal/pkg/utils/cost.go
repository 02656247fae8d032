package utils

import (
	"math"
	"strconv"
	"strings"
)

// CostMinutes returns billable minutes, any started minute is charged
func CostMinutes(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Ceil(seconds / 60))
}

// NumberOr parses a persisted setting value, def is returned for empty, invalid or negative values
func NumberOr(s string, def float64) float64 {
	res, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || res < 0 || math.IsNaN(res) || math.IsInf(res, 0) {
		return def
	}
	return res
}
