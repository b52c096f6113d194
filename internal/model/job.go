package model

// Job is a staffing-system job snapshot. Records are owned by TrackerRMS and
// only ever read here.
type Job struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title,omitempty" yaml:"title,omitempty"`
	Status           string   `json:"status,omitempty" yaml:"status,omitempty"`
	ClientName       string   `json:"clientName,omitempty" yaml:"clientName,omitempty"`
	ServiceLine      string   `json:"serviceLine,omitempty" yaml:"serviceLine,omitempty"`
	CreatedAt        string   `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	OpenDate         string   `json:"openDate,omitempty" yaml:"openDate,omitempty"`
	TargetDate       string   `json:"targetDate,omitempty" yaml:"targetDate,omitempty"`
	BillRate         *float64 `json:"billRate,omitempty" yaml:"billRate,omitempty"`
	EstimatedRevenue *float64 `json:"estimatedRevenue,omitempty" yaml:"estimatedRevenue,omitempty"`
}

// OpenTimestamp returns the raw job-open timestamp used as the velocity
// baseline: createdAt when present, otherwise openDate.
func (j *Job) OpenTimestamp() string {
	if j.CreatedAt != "" {
		return j.CreatedAt
	}
	return j.OpenDate
}

// IndexJobs returns the jobs keyed by ID. Later duplicates win.
func IndexJobs(jobs []Job) map[string]*Job {
	idx := make(map[string]*Job, len(jobs))
	for i := range jobs {
		idx[jobs[i].ID] = &jobs[i]
	}
	return idx
}
