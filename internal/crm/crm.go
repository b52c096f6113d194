// Package crm maps scored placements onto CRM deals and hides which CRM
// holds them.
package crm

import (
	"context"
	"strconv"
	"strings"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"
)

// Deal property names written on every synced deal.
const (
	PropDealName      = "dealname"
	PropAmount        = "amount"
	PropPlacementID   = "trackerrms_placement_id"
	PropJobID         = "trackerrms_job_id"
	PropServiceLine   = "trackerrms_service_line"
	PropMargin        = "trackerrms_margin"
	PropVelocityScore = "trackerrms_velocity_score"
	PropROIScore      = "trackerrms_roi_score"
	PropOverallScore  = "trackerrms_overall_score"
	PropScoreTier     = "trackerrms_score_tier"
)

// Properties are deal properties keyed by HubSpot property name.
type Properties map[string]string

// Deal is a deal found in the CRM.
type Deal struct {
	ID         string
	Properties Properties
}

// Deals is the deal store of one CRM portal.
type Deals interface {
	// Find returns the deal linked to placementID, or nil when none exists.
	Find(ctx context.Context, placementID string) (*Deal, error)
	// Create creates a deal and returns its id.
	Create(ctx context.Context, props Properties) (string, error)
	// Update overwrites the given properties of deal id.
	Update(ctx context.Context, id string, props Properties) error
}

// Factory returns the Deals of a portal.
type Factory func(ctx context.Context, portalID string) (Deals, error)

// DealProperties maps a scored placement to deal properties. Absent scores
// are written as 0.
func DealProperties(p model.Placement, tier scoring.Tier) Properties {
	return Properties{
		PropDealName:      DealName(p),
		PropAmount:        formatFloat(p.RevenueValue()),
		PropPlacementID:   p.ID,
		PropJobID:         p.JobID,
		PropServiceLine:   p.Line(),
		PropMargin:        formatFloat(p.MarginValue()),
		PropVelocityScore: formatScore(p.VelocityScore),
		PropROIScore:      formatScore(p.ROIScore),
		PropOverallScore:  formatScore(p.OverallScore),
		PropScoreTier:     string(tier),
	}
}

// DealName builds "<candidate> - <job title>", falling back to the
// placement id when neither is known.
func DealName(p model.Placement) string {
	var parts []string
	if s := strings.TrimSpace(p.CandidateName); s != "" {
		parts = append(parts, s)
	}
	if p.Job != nil {
		if s := strings.TrimSpace(p.Job.Title); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "Placement " + p.ID
	}
	return strings.Join(parts, " - ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatScore(v *int) string {
	if v == nil {
		return "0"
	}
	return strconv.Itoa(*v)
}
