package scoring

// Tier is an ordinal score band.
type Tier string

const (
	TierExcellent    Tier = "excellent"
	TierGood         Tier = "good"
	TierAverage      Tier = "average"
	TierBelowAverage Tier = "below_average"
	TierPoor         Tier = "poor"
)

// Tiers lists every tier from best to worst.
var Tiers = []Tier{TierExcellent, TierGood, TierAverage, TierBelowAverage, TierPoor}

// TierOf classifies a score. Lower bounds are inclusive.
func TierOf(score int) Tier {
	switch {
	case score >= 90:
		return TierExcellent
	case score >= 75:
		return TierGood
	case score >= 50:
		return TierAverage
	case score >= 25:
		return TierBelowAverage
	default:
		return TierPoor
	}
}
