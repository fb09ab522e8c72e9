package chainapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetExpirations fetches the listed expirations for an underlying, ascending.
func (c *Client) GetExpirations(ctx context.Context, underlying string) ([]string, error) {
	var resp ExpirationsResponse
	path := "/v1/chains/" + url.PathEscape(underlying) + "/expirations"
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get expirations %s: %w", underlying, err)
	}
	return resp.Expirations, nil
}

// GetChain fetches one page of the chain for an underlying and expiration.
func (c *Client) GetChain(ctx context.Context, underlying, expiration string, opts GetChainOptions) (*ChainResponse, error) {
	query := url.Values{}

	if opts.StrikeGTE > 0 {
		query.Set("strike_gte", strconv.FormatFloat(opts.StrikeGTE, 'f', -1, 64))
	}
	if opts.StrikeLTE > 0 {
		query.Set("strike_lte", strconv.FormatFloat(opts.StrikeLTE, 'f', -1, 64))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}

	var resp ChainResponse
	path := "/v1/chains/" + url.PathEscape(underlying) + "/" + url.PathEscape(expiration)
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("get chain %s %s: %w", underlying, expiration, err)
	}

	return &resp, nil
}

// GetFullChain fetches the complete chain within the strike bounds by
// paginating through results.
func (c *Client) GetFullChain(ctx context.Context, underlying, expiration string, opts GetChainOptions) ([]APIContract, error) {
	var all []APIContract
	opts.Limit = 250 // Max page size

	for {
		resp, err := c.GetChain(ctx, underlying, expiration, opts)
		if err != nil {
			return nil, err
		}

		all = append(all, resp.Contracts...)

		if resp.Cursor == "" {
			break
		}
		opts.Cursor = resp.Cursor
	}

	return all, nil
}

// GetSpot fetches the current underlying price and 30-day implied vol.
func (c *Client) GetSpot(ctx context.Context, underlying string) (*SpotResponse, error) {
	var resp SpotResponse
	path := "/v1/spot/" + url.PathEscape(underlying)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get spot %s: %w", underlying, err)
	}
	return &resp, nil
}
