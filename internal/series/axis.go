package series

import "math"

// NiceCeiling rounds v up to one significant digit at its own power of ten:
// 47 -> 50, 340 -> 400, 0.47 -> 0.5, 100 -> 100. Non-positive input gives 0.
func NiceCeiling(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow(10, math.Floor(math.Log10(v)))
	bound := math.Ceil(v/p) * p
	// Float error can land a hair under v (e.g. 0.3/0.1), step up once.
	if bound < v {
		bound += p
	}
	return bound
}

// Level is the display severity of a value relative to its configured max.
type Level int

const (
	LevelNominal Level = iota
	LevelWarning
	LevelAlert
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelAlert:
		return "alert"
	}
	return "nominal"
}

// LevelFor grades value against max: at least three quarters is an alert,
// at least a third a warning. A non-positive max is always nominal.
func LevelFor(value, max float64) Level {
	if max <= 0 {
		return LevelNominal
	}
	switch {
	case value >= max*3/4:
		return LevelAlert
	case value >= max/3:
		return LevelWarning
	}
	return LevelNominal
}
