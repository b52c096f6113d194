package trackerrms

import (
	"bytes"
	"encoding/json"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
)

// id accepts record ids sent either as JSON numbers or strings.
type id string

func (i *id) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*i = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = id(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*i = id(n.String())
	return nil
}

type jobRecord struct {
	ID               id       `json:"id"`
	Title            string   `json:"jobTitle"`
	Status           string   `json:"status"`
	ClientName       string   `json:"clientName"`
	ServiceLine      string   `json:"serviceLine"`
	DateCreated      string   `json:"dateCreated"`
	OpenDate         string   `json:"openDate"`
	TargetDate       string   `json:"targetDate"`
	BillRate         *float64 `json:"billRate"`
	EstimatedRevenue *float64 `json:"estimatedRevenue"`
}

func (r jobRecord) toModel() model.Job {
	return model.Job{
		ID:               string(r.ID),
		Title:            r.Title,
		Status:           r.Status,
		ClientName:       r.ClientName,
		ServiceLine:      r.ServiceLine,
		CreatedAt:        r.DateCreated,
		OpenDate:         r.OpenDate,
		TargetDate:       r.TargetDate,
		BillRate:         r.BillRate,
		EstimatedRevenue: r.EstimatedRevenue,
	}
}

type placementRecord struct {
	ID            id       `json:"id"`
	JobID         id       `json:"jobId"`
	CandidateName string   `json:"candidateName"`
	Status        string   `json:"status"`
	StartDate     string   `json:"startDate"`
	DateCreated   string   `json:"dateCreated"`
	Revenue       *float64 `json:"revenue"`
	Margin        *float64 `json:"margin"`
	ServiceLine   string   `json:"serviceLine"`
	MarketingCost *float64 `json:"marketingCost"`
	SalesCost     *float64 `json:"salesCost"`
}

func (r placementRecord) toModel() model.Placement {
	p := model.Placement{
		ID:            string(r.ID),
		JobID:         string(r.JobID),
		CandidateName: r.CandidateName,
		Status:        r.Status,
		StartDate:     r.StartDate,
		CreatedAt:     r.DateCreated,
		Revenue:       r.Revenue,
		Margin:        r.Margin,
		ServiceLine:   r.ServiceLine,
	}
	if r.MarketingCost != nil || r.SalesCost != nil {
		p.Attribution = &model.Attribution{
			MarketingCost: r.MarketingCost,
			SalesCost:     r.SalesCost,
		}
	}
	return p
}
