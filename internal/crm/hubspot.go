package crm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/pkg/hubspot"
)

// HubSpotDeals stores deals in a HubSpot portal.
type HubSpotDeals struct {
	client hubspot.Client
}

// NewHubSpot wraps a HubSpot client already authenticated for one portal.
func NewHubSpot(c hubspot.Client) *HubSpotDeals {
	return &HubSpotDeals{client: c}
}

func (h *HubSpotDeals) Find(ctx context.Context, placementID string) (*Deal, error) {
	deals, err := h.client.SearchDeals(ctx, PropPlacementID, placementID)
	if err != nil {
		return nil, eris.Wrap(err, "crm: find hubspot deal")
	}
	if len(deals) == 0 {
		return nil, nil
	}
	return &Deal{ID: deals[0].ID, Properties: deals[0].Properties}, nil
}

func (h *HubSpotDeals) Create(ctx context.Context, props Properties) (string, error) {
	d, err := h.client.CreateDeal(ctx, props)
	if err != nil {
		return "", eris.Wrap(err, "crm: create hubspot deal")
	}
	return d.ID, nil
}

func (h *HubSpotDeals) Update(ctx context.Context, id string, props Properties) error {
	if _, err := h.client.UpdateDeal(ctx, id, props); err != nil {
		return eris.Wrap(err, "crm: update hubspot deal")
	}
	return nil
}
