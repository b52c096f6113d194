package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// PlacementIDField is the external-id field linking an Opportunity to its
// TrackerRMS placement.
const PlacementIDField = "TrackerRMS_Placement_Id__c"

// Opportunity represents the Opportunity fields the sync reads back.
type Opportunity struct {
	ID          string  `json:"Id" salesforce:"Id"`
	Name        string  `json:"Name" salesforce:"Name"`
	Amount      float64 `json:"Amount" salesforce:"Amount"`
	StageName   string  `json:"StageName" salesforce:"StageName"`
	PlacementID string  `json:"TrackerRMS_Placement_Id__c" salesforce:"TrackerRMS_Placement_Id__c"`
}

var opportunityFields = []string{"Id", "Name", "Amount", "StageName", PlacementIDField}

// FindOpportunityByPlacement returns the Opportunity linked to placementID,
// or nil when none exists.
func FindOpportunityByPlacement(ctx context.Context, c Client, placementID string) (*Opportunity, error) {
	if placementID == "" {
		return nil, eris.New("sf: placement id is required")
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM Opportunity WHERE %s = '%s' LIMIT 1",
		strings.Join(opportunityFields, ", "),
		PlacementIDField,
		escapeSoql(placementID),
	)

	var opps []Opportunity
	if err := c.Query(ctx, soql, &opps); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find opportunity for placement %s", placementID))
	}
	if len(opps) == 0 {
		return nil, nil
	}
	return &opps[0], nil
}

// CreateOpportunity creates an Opportunity and returns its id.
func CreateOpportunity(ctx context.Context, c Client, fields map[string]any) (string, error) {
	if fields["Name"] == nil || fields["Name"] == "" {
		return "", eris.New("sf: opportunity Name is required")
	}
	id, err := c.InsertOne(ctx, "Opportunity", fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create opportunity")
	}
	return id, nil
}

// UpdateOpportunity updates an Opportunity with the given fields.
func UpdateOpportunity(ctx context.Context, c Client, id string, fields map[string]any) error {
	if id == "" {
		return eris.New("sf: opportunity id is required")
	}
	if len(fields) == 0 {
		return eris.New("sf: no fields to update")
	}
	if err := c.UpdateOne(ctx, "Opportunity", id, fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: update opportunity %s", id))
	}
	return nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
