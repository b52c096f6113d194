package model

import "strings"

// UnassignedServiceLine is the bucket for placements without a service line.
const UnassignedServiceLine = "Unassigned"

// Attribution holds the marketing and sales cost attributed to a placement.
type Attribution struct {
	MarketingCost *float64 `json:"marketingCost,omitempty" yaml:"marketingCost,omitempty"`
	SalesCost     *float64 `json:"salesCost,omitempty" yaml:"salesCost,omitempty"`
}

// Costs returns the marketing and sales cost, defaulting absent values to 0.
// A nil Attribution has zero cost.
func (a *Attribution) Costs() (marketing, sales float64) {
	if a == nil {
		return 0, 0
	}
	return deref(a.MarketingCost), deref(a.SalesCost)
}

// Placement is a filled position. JobID is a weak reference to a Job; Job
// and Attribution may be embedded by the fetch layer before scoring.
type Placement struct {
	ID            string       `json:"id" yaml:"id"`
	JobID         string       `json:"jobId,omitempty" yaml:"jobId,omitempty"`
	CandidateName string       `json:"candidateName,omitempty" yaml:"candidateName,omitempty"`
	Status        string       `json:"status,omitempty" yaml:"status,omitempty"`
	StartDate     string       `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	CreatedAt     string       `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	Revenue       *float64     `json:"revenue,omitempty" yaml:"revenue,omitempty"`
	Margin        *float64     `json:"margin,omitempty" yaml:"margin,omitempty"`
	ServiceLine   string       `json:"serviceLine,omitempty" yaml:"serviceLine,omitempty"`
	Attribution   *Attribution `json:"attribution,omitempty" yaml:"attribution,omitempty"`
	Job           *Job         `json:"job,omitempty" yaml:"job,omitempty"`

	// Derived scores, set on copies by the scoring engine.
	VelocityScore *int `json:"velocityScore,omitempty" yaml:"velocityScore,omitempty"`
	ROIScore      *int `json:"roiScore,omitempty" yaml:"roiScore,omitempty"`
	OverallScore  *int `json:"overallScore,omitempty" yaml:"overallScore,omitempty"`
}

// FillTimestamp returns the raw fill timestamp: startDate when present,
// otherwise createdAt.
func (p *Placement) FillTimestamp() string {
	if p.StartDate != "" {
		return p.StartDate
	}
	return p.CreatedAt
}

// Line returns the service line, or UnassignedServiceLine when blank.
func (p *Placement) Line() string {
	if strings.TrimSpace(p.ServiceLine) == "" {
		return UnassignedServiceLine
	}
	return p.ServiceLine
}

// RevenueValue returns revenue, 0 when absent.
func (p *Placement) RevenueValue() float64 { return deref(p.Revenue) }

// MarginValue returns margin, 0 when absent.
func (p *Placement) MarginValue() float64 { return deref(p.Margin) }

// AttachJobs returns copies of placements with Job embedded from jobs by
// JobID. Placements that already carry a Job, or whose JobID is unknown,
// are copied unchanged.
func AttachJobs(placements []Placement, jobs []Job) []Placement {
	idx := IndexJobs(jobs)
	out := make([]Placement, len(placements))
	for i, p := range placements {
		if p.Job == nil && p.JobID != "" {
			if j, ok := idx[p.JobID]; ok {
				jc := *j
				p.Job = &jc
			}
		}
		out[i] = p
	}
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
