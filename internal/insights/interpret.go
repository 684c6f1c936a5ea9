package insights

// Category is a coarse label for a blink rate.
type Category string

const (
	CategoryNoData      Category = "no_data"
	CategorySeverelyLow Category = "severely_low"
	CategoryBelowNormal Category = "below_normal"
	CategoryNormal      Category = "normal"
	CategoryElevated    Category = "elevated"
	CategoryVeryHigh    Category = "very_high"
)

// Interpretation describes a blink rate for display.
type Interpretation struct {
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
}

// Interpret maps a blink rate onto a display category. Rates of zero or
// below mean nothing has been measured yet.
func Interpret(bpm float64) Interpretation {
	switch {
	case bpm <= 0:
		return Interpretation{CategoryNoData, "Start tracking to see your blink rate", "gray"}
	case bpm < VeryLowRate:
		return Interpretation{CategorySeverelyLow, "Significant reduction, take action now", "red"}
	case bpm < LowRate:
		return Interpretation{CategoryBelowNormal, "Reduced blinking, may indicate eye strain", "orange"}
	case bpm <= HighRate:
		return Interpretation{CategoryNormal, "Healthy blink rate", "green"}
	case bpm <= VeryHighRate:
		return Interpretation{CategoryElevated, "Increased blinking, check for irritation", "yellow"}
	default:
		return Interpretation{CategoryVeryHigh, "Excessive blinking, may need attention", "red"}
	}
}
