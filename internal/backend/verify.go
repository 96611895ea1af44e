package backend

import (
	"context"
	"fmt"
	"net/http"
)

// GetVerificationBudget fetches the remaining paid-lookup allowance.
func (c *Client) GetVerificationBudget(ctx context.Context) (*VerificationBudget, error) {
	var b VerificationBudget
	if err := c.doJSON(ctx, http.MethodGet, "verification/budget", nil, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// VerifyVessel runs a registry verification for a vessel through the given
// provider. Callers must check the budget first; the console disables the
// action preemptively once remaining <= 0.
func (c *Client) VerifyVessel(ctx context.Context, vesselID int64, provider string) (*VerificationResult, error) {
	body := map[string]string{"provider": provider}
	var res VerificationResult
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("vessels/%d/verify", vesselID), nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateVesselOwner patches a vessel's registered owner.
func (c *Client) UpdateVesselOwner(ctx context.Context, vesselID int64, owner string) error {
	body := map[string]string{"owner": owner}
	return c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("vessels/%d/owner", vesselID), nil, body, nil)
}
