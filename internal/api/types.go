package api

import (
	"github.com/veles-markets/console/internal/amount"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTrader  Role = "TRADER"
	RoleWhale   Role = "WHALE"
	RoleBlocked Role = "BLOCKED"
)

type UserSummary struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Role        Role   `json:"role"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

// IsAdmin reports whether this user passes the admin-access gate.
func (u UserSummary) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsStaff
}

// loginResponse tolerates the three token shapes the backend has
// shipped over time.
type loginResponse struct {
	Token  string `json:"token"`
	Access string `json:"access"`
	Tokens struct {
		Access string `json:"access"`
	} `json:"tokens"`
	User UserSummary `json:"user"`
}

func (r loginResponse) bearerToken() string {
	switch {
	case r.Token != "":
		return r.Token
	case r.Access != "":
		return r.Access
	default:
		return r.Tokens.Access
	}
}

type Market struct {
	ID          string        `json:"id"`
	Question    string        `json:"question"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	YesPrice    amount.Amount `json:"yes_price"`
	NoPrice     amount.Amount `json:"no_price"`
	Volume      amount.Amount `json:"volume"`
	EndDate     string        `json:"end_date"`
}

// Trade keeps the backend's overlapping amount and timestamp fields as
// optionals; the aggregators apply the first-defined-wins policy.
type Trade struct {
	ID           int64          `json:"id"`
	EventID      string         `json:"event_id"`
	UserID       int64          `json:"user_id"`
	Outcome      string         `json:"outcome"`
	Side         string         `json:"side"`
	Amount       *amount.Amount `json:"amount"`
	AmountStaked *amount.Amount `json:"amount_staked"`
	TradeAmount  *amount.Amount `json:"trade_amount"`
	Revenue      *amount.Amount `json:"revenue"`
	CreatedAt    string         `json:"created_at"`
	Timestamp    string         `json:"timestamp"`
	Created      string         `json:"created"`
	Time         string         `json:"time"`
}

type TradeRequest struct {
	EventID string        `json:"event_id"`
	UserID  int64         `json:"user_id"`
	Amount  amount.Amount `json:"amount"`
	Outcome string        `json:"outcome"`
	Side    string        `json:"side"`
}

type TradePage struct {
	Results []Trade `json:"results"`
	Next    string  `json:"next"`
}

type LeaderboardEntry struct {
	UserID   int64         `json:"user_id"`
	Username string        `json:"username"`
	Profit   amount.Amount `json:"profit"`
	Volume   amount.Amount `json:"volume"`
	Rank     int           `json:"rank"`
}

// StatsPage is one cursor page of aggregate leaderboard stats. Next is
// an absolute URL whose cursor query parameter identifies the next
// page boundary.
type StatsPage struct {
	Results []LeaderboardEntry `json:"results"`
	Next    string             `json:"next"`
}

type AdminUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IsStaff   bool   `json:"is_staff"`
	Flagged   bool   `json:"flagged"`
	CreatedAt string `json:"created_at"`
}

type UserPatch struct {
	Role    *Role `json:"role,omitempty"`
	IsStaff *bool `json:"is_staff,omitempty"`
	Flagged *bool `json:"flagged,omitempty"`
}

type RiskyUser struct {
	UserID    int64   `json:"user_id"`
	Username  string  `json:"username"`
	RiskScore float64 `json:"risk_score"`
	Reason    string  `json:"reason"`
}

type Dispute struct {
	ID        int64  `json:"id"`
	TradeID   int64  `json:"trade_id"`
	UserID    int64  `json:"user_id"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

type RevenuePoint struct {
	Date    string        `json:"date"`
	Revenue amount.Amount `json:"revenue"`
}

type RevenueSummary struct {
	TotalRevenue amount.Amount  `json:"total_revenue"`
	Points       []RevenuePoint `json:"points"`
}

type SecurityOverview struct {
	FailedLogins   int `json:"failed_logins"`
	FlaggedUsers   int `json:"flagged_users"`
	OpenDisputes   int `json:"open_disputes"`
	BlockedUsers24 int `json:"blocked_users_24h"`
}
