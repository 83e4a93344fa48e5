package model

import "github.com/anuj-sharma9/SpendingInsights-WebApp/internal/money"

// CategoryTotal is the summed spend for one category label.
type CategoryTotal struct {
	Category string       `json:"category"`
	Total    money.Amount `json:"total"`
}

// InsightsSnapshot is the aggregate view of one user's spending. It is
// derived from transaction rows and never persisted.
type InsightsSnapshot struct {
	TotalSpent       money.Amount    `json:"totalSpent"`
	TransactionCount int             `json:"transactionCount"`
	ByCategory       []CategoryTotal `json:"byCategory"`
}
