package crm

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/pkg/salesforce"
)

// opportunityFields maps deal properties to Opportunity fields.
var opportunityFields = map[string]string{
	PropDealName:      "Name",
	PropAmount:        "Amount",
	PropPlacementID:   salesforce.PlacementIDField,
	PropJobID:         "TrackerRMS_Job_Id__c",
	PropServiceLine:   "TrackerRMS_Service_Line__c",
	PropMargin:        "TrackerRMS_Margin__c",
	PropVelocityScore: "TrackerRMS_Velocity_Score__c",
	PropROIScore:      "TrackerRMS_ROI_Score__c",
	PropOverallScore:  "TrackerRMS_Overall_Score__c",
	PropScoreTier:     "TrackerRMS_Score_Tier__c",
}

// numericFields are sent as numbers rather than strings.
var numericFields = map[string]bool{
	PropAmount:        true,
	PropMargin:        true,
	PropVelocityScore: true,
	PropROIScore:      true,
	PropOverallScore:  true,
}

// ClosedWonStage is the stage of newly created opportunities.
const ClosedWonStage = "Closed Won"

// SalesforceDeals stores deals as Salesforce Opportunities.
type SalesforceDeals struct {
	client salesforce.Client
	now    func() time.Time
}

// NewSalesforce wraps a Salesforce client.
func NewSalesforce(c salesforce.Client) *SalesforceDeals {
	return &SalesforceDeals{client: c, now: time.Now}
}

func (s *SalesforceDeals) Find(ctx context.Context, placementID string) (*Deal, error) {
	opp, err := salesforce.FindOpportunityByPlacement(ctx, s.client, placementID)
	if err != nil {
		return nil, eris.Wrap(err, "crm: find opportunity")
	}
	if opp == nil {
		return nil, nil
	}
	return &Deal{
		ID: opp.ID,
		Properties: Properties{
			PropDealName:    opp.Name,
			PropAmount:      formatFloat(opp.Amount),
			PropPlacementID: opp.PlacementID,
		},
	}, nil
}

func (s *SalesforceDeals) Create(ctx context.Context, props Properties) (string, error) {
	fields := toOpportunity(props)
	fields["StageName"] = ClosedWonStage
	fields["CloseDate"] = s.now().UTC().Format("2006-01-02")

	id, err := salesforce.CreateOpportunity(ctx, s.client, fields)
	if err != nil {
		return "", eris.Wrap(err, "crm: create opportunity")
	}
	return id, nil
}

func (s *SalesforceDeals) Update(ctx context.Context, id string, props Properties) error {
	if err := salesforce.UpdateOpportunity(ctx, s.client, id, toOpportunity(props)); err != nil {
		return eris.Wrap(err, "crm: update opportunity")
	}
	return nil
}

// toOpportunity converts known properties; unknown ones are dropped.
func toOpportunity(props Properties) map[string]any {
	fields := make(map[string]any, len(props))
	for k, v := range props {
		name, ok := opportunityFields[k]
		if !ok {
			continue
		}
		if numericFields[k] {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			fields[name] = n
			continue
		}
		fields[name] = v
	}
	return fields
}
