// Package api is the typed client for the backend REST API. Every
// surface the console touches is a method here; there is no runtime
// probing for optional endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/veles-markets/console/pkg/httpclient"
)

type Client struct {
	http *httpclient.Client
}

// New creates a backend client. token is consulted per request, so the
// session owns credential state, not this client.
func New(baseURL string, token func() string) *Client {
	return &Client{http: httpclient.New(baseURL, token)}
}

// Login exchanges credentials for a bearer token and the user summary.
func (c *Client) Login(ctx context.Context, email, password string) (string, UserSummary, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := httpclient.PostResource[loginResponse](ctx, c.http, "/users/login/", body)
	if err != nil {
		return "", UserSummary{}, fmt.Errorf("couldn't log in: %w", err)
	}
	token := resp.bearerToken()
	if token == "" {
		return "", UserSummary{}, fmt.Errorf("login response carried no token")
	}
	return token, resp.User, nil
}

func (c *Client) Me(ctx context.Context) (UserSummary, error) {
	user, err := httpclient.GetResource[UserSummary](ctx, c.http, "/users/me/", nil)
	if err != nil {
		return UserSummary{}, fmt.Errorf("couldn't get current user: %w", err)
	}
	return user, nil
}

func (c *Client) Markets(ctx context.Context) ([]Market, error) {
	markets, err := httpclient.GetResource[[]Market](ctx, c.http, "/markets/", nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't get markets: %w", err)
	}
	return markets, nil
}

func (c *Client) Market(ctx context.Context, id string) (Market, error) {
	market, err := httpclient.GetResource[Market](ctx, c.http, "/markets/"+id+"/", nil)
	if err != nil {
		return Market{}, fmt.Errorf("couldn't get market %s: %w", id, err)
	}
	return market, nil
}

func (c *Client) PlaceTrade(ctx context.Context, req TradeRequest) (Trade, error) {
	trade, err := httpclient.PostResource[Trade](ctx, c.http, "/trade/", req)
	if err != nil {
		return Trade{}, fmt.Errorf("couldn't place trade: %w", err)
	}
	return trade, nil
}

func (c *Client) Trades(ctx context.Context, cursor string) (TradePage, error) {
	var params url.Values
	if cursor != "" {
		params = url.Values{"cursor": {cursor}}
	}
	page, err := httpclient.GetResource[TradePage](ctx, c.http, "/trades/", params)
	if err != nil {
		return TradePage{}, fmt.Errorf("couldn't get trades: %w", err)
	}
	return page, nil
}

// RecentTrades returns the newest trades, bounded by limit.
func (c *Client) RecentTrades(ctx context.Context, limit int) ([]Trade, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	page, err := httpclient.GetResource[TradePage](ctx, c.http, "/trades/", params)
	if err != nil {
		return nil, fmt.Errorf("couldn't get recent trades: %w", err)
	}
	return page.Results, nil
}

func (c *Client) WeeklyStats(ctx context.Context, cursor string) (StatsPage, error) {
	return c.statsPage(ctx, "/analytics/weekly/", cursor)
}

func (c *Client) MonthlyStats(ctx context.Context, cursor string) (StatsPage, error) {
	return c.statsPage(ctx, "/analytics/monthly/", cursor)
}

func (c *Client) statsPage(ctx context.Context, endpoint, cursor string) (StatsPage, error) {
	var params url.Values
	if cursor != "" {
		params = url.Values{"cursor": {cursor}}
	}
	page, err := httpclient.GetResource[StatsPage](ctx, c.http, endpoint, params)
	if err != nil {
		return StatsPage{}, fmt.Errorf("couldn't get stats page %s: %w", endpoint, err)
	}
	return page, nil
}

// AllTimeLeaderboard is unpaginated on the backend.
func (c *Client) AllTimeLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	entries, err := httpclient.GetResource[[]LeaderboardEntry](ctx, c.http, "/users/leaderboard/", nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't get leaderboard: %w", err)
	}
	return entries, nil
}

func (c *Client) AdminUsers(ctx context.Context) ([]AdminUser, error) {
	users, err := httpclient.GetResource[[]AdminUser](ctx, c.http, "/admin/users/", nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't get admin users: %w", err)
	}
	return users, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, patch UserPatch) (AdminUser, error) {
	endpoint := fmt.Sprintf("/users/%d/", id)
	user, err := httpclient.PatchResource[AdminUser](ctx, c.http, endpoint, patch)
	if err != nil {
		return AdminUser{}, fmt.Errorf("couldn't update user %d: %w", id, err)
	}
	return user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("/users/%d/", id)
	if err := httpclient.Delete(ctx, c.http, endpoint); err != nil {
		return fmt.Errorf("couldn't delete user %d: %w", id, err)
	}
	return nil
}

func (c *Client) Disputes(ctx context.Context) ([]Dispute, error) {
	disputes, err := httpclient.GetResource[[]Dispute](ctx, c.http, "/disputes/", nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't get disputes: %w", err)
	}
	return disputes, nil
}

// ResolveDispute accepts or rejects a dispute.
func (c *Client) ResolveDispute(ctx context.Context, id int64, accept bool) (Dispute, error) {
	action := "reject"
	if accept {
		action = "accept"
	}
	endpoint := fmt.Sprintf("/disputes/%d/%s/", id, action)
	dispute, err := httpclient.PostResource[Dispute](ctx, c.http, endpoint, nil)
	if err != nil {
		return Dispute{}, fmt.Errorf("couldn't %s dispute %d: %w", action, id, err)
	}
	return dispute, nil
}

// RiskyUsers is an experimental ML endpoint; 404 degrades to empty.
func (c *Client) RiskyUsers(ctx context.Context) ([]RiskyUser, error) {
	users, err := httpclient.GetResource[[]RiskyUser](ctx, c.http, "/ml/risky-users/", nil)
	if err != nil {
		if errors.Is(err, httpclient.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("couldn't get risky users: %w", err)
	}
	return users, nil
}

// SecurityOverview may 404 on older backends; degrades to zero value.
func (c *Client) SecurityOverview(ctx context.Context) (SecurityOverview, error) {
	overview, err := httpclient.GetResource[SecurityOverview](ctx, c.http, "/admin/security/", nil)
	if err != nil {
		if errors.Is(err, httpclient.ErrNotFound) {
			return SecurityOverview{}, nil
		}
		return SecurityOverview{}, fmt.Errorf("couldn't get security overview: %w", err)
	}
	return overview, nil
}

// Revenue may 404 on older backends; degrades to zero value.
func (c *Client) Revenue(ctx context.Context) (RevenueSummary, error) {
	revenue, err := httpclient.GetResource[RevenueSummary](ctx, c.http, "/admin/revenue/", nil)
	if err != nil {
		if errors.Is(err, httpclient.ErrNotFound) {
			return RevenueSummary{}, nil
		}
		return RevenueSummary{}, fmt.Errorf("couldn't get revenue: %w", err)
	}
	return revenue, nil
}

// AdminHealth probes the backend health endpoint; 404 means the probe
// isn't deployed and reads as unknown, not failure.
func (c *Client) AdminHealth(ctx context.Context) (HealthStatus, error) {
	health, err := httpclient.GetResource[HealthStatus](ctx, c.http, "/admin/health/", nil)
	if err != nil {
		if errors.Is(err, httpclient.ErrNotFound) {
			return HealthStatus{Status: "unknown"}, nil
		}
		return HealthStatus{}, fmt.Errorf("couldn't get admin health: %w", err)
	}
	return health, nil
}

func (c *Client) MLHealth(ctx context.Context) (HealthStatus, error) {
	health, err := httpclient.GetResource[HealthStatus](ctx, c.http, "/ml/health/dashboard/", nil)
	if err != nil {
		if errors.Is(err, httpclient.ErrNotFound) {
			return HealthStatus{Status: "unknown"}, nil
		}
		return HealthStatus{}, fmt.Errorf("couldn't get ml health: %w", err)
	}
	return health, nil
}
