package analytics

import (
	"time"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
)

// Overview holds the headline counts of the executive report.
type Overview struct {
	TotalJobs       int       `json:"totalJobs"`
	TotalPlacements int       `json:"totalPlacements"`
	FillRate        int       `json:"fillRate"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// ExecutiveReport bundles every dashboard.
type ExecutiveReport struct {
	Overview    Overview          `json:"overview"`
	Attribution AttributionReport `json:"attribution"`
	Velocity    VelocityReport    `json:"velocity"`
	ROI         ROIReport         `json:"roi"`
}

// Executive builds all three reports plus the overview. Fill rate is
// placements per job as a percentage, 0 when there are no jobs.
func (e *Engine) Executive(placements []model.Placement, jobs []model.Job) ExecutiveReport {
	return ExecutiveReport{
		Overview: Overview{
			TotalJobs:       len(jobs),
			TotalPlacements: len(placements),
			FillRate:        percent(float64(len(placements)), float64(len(jobs))),
			GeneratedAt:     e.now().UTC(),
		},
		Attribution: e.Attribution(placements),
		Velocity:    e.Velocity(placements),
		ROI:         e.ROI(placements),
	}
}
