package campaign

import (
	"context"

	"wyckoff/internal/signal"
)

// Repository is the durability collaborator for campaigns. The associator
// tolerates its absence entirely (nil repository) and degrades gracefully.
type Repository interface {
	// GetActiveCampaigns returns every non-terminal campaign for symbol.
	GetActiveCampaigns(ctx context.Context, symbol string) ([]*Campaign, error)

	// CreateCampaign persists a new campaign built from spec.
	CreateCampaign(ctx context.Context, spec Spec) (*Campaign, error)

	// AddSignalToCampaign binds a signal to an existing campaign and folds
	// its risk/shares into the campaign aggregates.
	AddSignalToCampaign(ctx context.Context, campaignID string, sig *signal.Signal) error
}
