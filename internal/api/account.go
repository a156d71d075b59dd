package api

import (
	"context"

	"github.com/onscale/onscale-go/internal/models"
)

// AccountList returns the accounts visible to the authenticated user.
func (c *Client) AccountList(ctx context.Context) ([]models.AccountListEntry, error) {
	var accounts []models.AccountListEntry
	if err := c.get(ctx, "/account/list", &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// AccountBalance returns the core-hour balance of an account.
func (c *Client) AccountBalance(ctx context.Context, accountID string) (*models.AccountBalance, error) {
	var balance models.AccountBalance
	if err := c.post(ctx, "/account/balance", models.AccountRequest{AccountID: accountID}, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// HpcList returns the HPC clusters available to an account.
func (c *Client) HpcList(ctx context.Context, accountID string) ([]models.Hpc, error) {
	var hpcs []models.Hpc
	if err := c.post(ctx, "/account/hpc/list", models.AccountRequest{AccountID: accountID}, &hpcs); err != nil {
		return nil, err
	}
	return hpcs, nil
}

// UserDetails returns the authenticated user's profile.
func (c *Client) UserDetails(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.get(ctx, "/user/details", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
