package score

import "math"

var typeNames = map[string]string{
	"maxima":  "Maxima",
	"long":    "Longa",
	"breve":   "Breve",
	"whole":   "Whole",
	"half":    "Half",
	"quarter": "Quarter",
	"eighth":  "Eighth",
	"16th":    "16th",
	"32nd":    "32nd",
	"64th":    "64th",
	"128th":   "128th",
}

var baseDurations = []struct {
	quarters float64
	name     string
}{
	{8, "Breve"},
	{4, "Whole"},
	{2, "Half"},
	{1, "Quarter"},
	{0.5, "Eighth"},
	{0.25, "16th"},
	{0.125, "32nd"},
	{0.0625, "64th"},
}

var dotPrefixes = []string{"", "Dotted ", "Double Dotted ", "Triple Dotted "}

// DurationName names a rhythmic value. An explicit notated type wins;
// otherwise the name is inferred from the quarter length.
func DurationName(quarters float64, dots int, noteType string) string {
	if name, ok := typeNames[noteType]; ok {
		return dotPrefix(dots) + name
	}
	for _, b := range baseDurations {
		factor := 1.0
		add := b.quarters / 2
		for d := 0; d < len(dotPrefixes); d++ {
			if almostEqual(quarters, b.quarters*factor) {
				return dotPrefixes[d] + b.name
			}
			factor += add / b.quarters
			add /= 2
		}
	}
	if quarters == 0 {
		return "Zero"
	}
	return "Complex"
}

func dotPrefix(dots int) string {
	if dots < 0 {
		dots = 0
	}
	if dots >= len(dotPrefixes) {
		dots = len(dotPrefixes) - 1
	}
	return dotPrefixes[dots]
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
