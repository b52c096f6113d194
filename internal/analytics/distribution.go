package analytics

import "github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"

// Bucket labels, one per tier.
const (
	BucketExcellent    = "excellent (90-100)"
	BucketGood         = "good (75-89)"
	BucketAverage      = "average (50-74)"
	BucketBelowAverage = "below_average (25-49)"
	BucketPoor         = "poor (0-24)"
)

// Distribution is a histogram of scores over the five tiers. Every bucket
// is always present in the JSON form.
type Distribution struct {
	Excellent    int `json:"excellent (90-100)"`
	Good         int `json:"good (75-89)"`
	Average      int `json:"average (50-74)"`
	BelowAverage int `json:"below_average (25-49)"`
	Poor         int `json:"poor (0-24)"`
}

// ScoreDistribution counts scores per tier.
func ScoreDistribution(scores []int) Distribution {
	var d Distribution
	for _, s := range scores {
		switch scoring.TierOf(s) {
		case scoring.TierExcellent:
			d.Excellent++
		case scoring.TierGood:
			d.Good++
		case scoring.TierAverage:
			d.Average++
		case scoring.TierBelowAverage:
			d.BelowAverage++
		default:
			d.Poor++
		}
	}
	return d
}

// Buckets returns the histogram keyed by bucket label.
func (d Distribution) Buckets() map[string]int {
	return map[string]int{
		BucketExcellent:    d.Excellent,
		BucketGood:         d.Good,
		BucketAverage:      d.Average,
		BucketBelowAverage: d.BelowAverage,
		BucketPoor:         d.Poor,
	}
}

// Labels returns the bucket labels from best to worst.
func Labels() []string {
	return []string{BucketExcellent, BucketGood, BucketAverage, BucketBelowAverage, BucketPoor}
}

// Total returns the number of scores counted.
func (d Distribution) Total() int {
	return d.Excellent + d.Good + d.Average + d.BelowAverage + d.Poor
}
