package campaign

import (
	"context"
	"fmt"

	"wyckoff/internal/logger"
	"wyckoff/internal/signal"
)

// Associator decides create-vs-reuse for each signal's campaign binding.
//
// State machine: no campaign -> created (first initiating pattern) ->
// extended (subsequent patterns). Termination happens outside this write
// path. Creation is only attempted when the active-campaign query returns
// empty, which keeps at most one live campaign per instrument/range.
type Associator struct {
	repo Repository
}

// NewAssociator accepts a nil repository: campaign association is optional
// and must not be a single point of failure for signal flow.
func NewAssociator(repo Repository) *Associator {
	return &Associator{repo: repo}
}

// Associate binds sig to an existing or newly created campaign and returns
// the campaign, or nil when the signal proceeds unassociated.
func (a *Associator) Associate(ctx context.Context, sig *signal.Signal) (*Campaign, error) {
	if sig == nil {
		return nil, fmt.Errorf("nil signal")
	}
	if a.repo == nil {
		logger.Debugf("Associator: no campaign repository configured, %s proceeds unassociated", sig.ID)
		return nil, nil
	}

	active, err := a.repo.GetActiveCampaigns(ctx, sig.Symbol)
	if err != nil {
		// Collaborator failure degrades to no association rather than
		// halting the pipeline.
		logger.WarnEvent("campaign_lookup_failed",
			"signal_id", sig.ID,
			"symbol", sig.Symbol,
			"error", err.Error(),
		)
		return nil, nil
	}

	if len(active) > 0 {
		c := active[0]
		if err := a.repo.AddSignalToCampaign(ctx, c.ID, sig); err != nil {
			logger.WarnEvent("campaign_extend_failed",
				"signal_id", sig.ID,
				"campaign_id", c.ID,
				"error", err.Error(),
			)
			return nil, nil
		}
		if err := sig.BindCampaign(c.ID); err != nil {
			return nil, err
		}
		logger.Event("campaign_extended",
			"signal_id", sig.ID,
			"campaign_id", c.ID,
			"campaign", c.HumanID,
			"pattern", string(sig.Pattern),
		)
		return c, nil
	}

	if !sig.Pattern.CampaignInitiating() {
		// An SOS/LPS with no prior Spring proceeds without a campaign
		// reference instead of being rejected outright.
		logger.WarnEvent("campaign_missing",
			"signal_id", sig.ID,
			"symbol", sig.Symbol,
			"pattern", string(sig.Pattern),
		)
		return nil, nil
	}

	c, err := a.repo.CreateCampaign(ctx, Spec{
		Symbol:     sig.Symbol,
		RangeStart: sig.CreatedAt,
	})
	if err != nil {
		logger.WarnEvent("campaign_create_failed",
			"signal_id", sig.ID,
			"symbol", sig.Symbol,
			"error", err.Error(),
		)
		return nil, nil
	}
	if err := a.repo.AddSignalToCampaign(ctx, c.ID, sig); err != nil {
		logger.WarnEvent("campaign_extend_failed",
			"signal_id", sig.ID,
			"campaign_id", c.ID,
			"error", err.Error(),
		)
	}
	if err := sig.BindCampaign(c.ID); err != nil {
		return nil, err
	}
	logger.Event("campaign_created",
		"signal_id", sig.ID,
		"campaign_id", c.ID,
		"campaign", c.HumanID,
		"symbol", sig.Symbol,
	)
	return c, nil
}
