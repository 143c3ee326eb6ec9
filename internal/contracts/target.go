package contracts

// Target expresses a desired allocation for a security as a signed fraction
// of total portfolio value. Negative percents are short targets; a zero
// percent closes the position.
type Target struct {
	Symbol  string  `json:"symbol"`
	Percent float64 `json:"percent"`
}

// IsFlatten reports whether the target closes the position
func (t Target) IsFlatten() bool {
	return t.Percent == 0
}

// TotalPercent returns the sum of absolute target percents
func TotalPercent(targets []Target) float64 {
	total := 0.0
	for _, t := range targets {
		if t.Percent < 0 {
			total -= t.Percent
		} else {
			total += t.Percent
		}
	}
	return total
}
