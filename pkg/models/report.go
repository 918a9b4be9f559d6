package models

import "github.com/shopspring/decimal"

type StatusBucket struct {
	Status  string          `json:"status" bson:"_id"`
	Orders  int             `json:"orders" bson:"orders"`
	Items   int             `json:"items" bson:"items"`
	Revenue decimal.Decimal `json:"revenue" bson:"revenue"`
}

type DayBucket struct {
	Date    string          `json:"date" bson:"_id"`
	Orders  int             `json:"orders" bson:"orders"`
	Items   int             `json:"items" bson:"items"`
	Revenue decimal.Decimal `json:"revenue" bson:"revenue"`
}

// SalesSummary aggregates every order by status and by calendar day.
// Days are sorted ascending.
type SalesSummary struct {
	TotalOrders  int             `json:"totalOrders"`
	TotalItems   int             `json:"totalItems"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	ByStatus     []StatusBucket  `json:"byStatus"`
	ByDay        []DayBucket     `json:"byDay"`
}

// SalesReport is the summary plus an optional generated narrative.
type SalesReport struct {
	Summary  *SalesSummary `json:"summary"`
	Insights string        `json:"insights,omitempty"`
}
