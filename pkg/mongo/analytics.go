package mongo

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/pureview/api/pkg/models"
)

type salesFacets struct {
	ByStatus []models.StatusBucket `bson:"byStatus"`
	ByDay    []models.DayBucket    `bson:"byDay"`
	Totals   []struct {
		Orders  int             `bson:"orders"`
		Items   int             `bson:"items"`
		Revenue decimal.Decimal `bson:"revenue"`
	} `bson:"totals"`
}

// salesGroup sums orders, items and revenue per value of key. Totals are
// stored as decimal strings, so revenue is summed as Decimal128.
func salesGroup(key any) bson.A {
	return bson.A{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: key},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "items", Value: bson.D{{Key: "$sum", Value: "$count"}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$toDecimal", Value: "$total"}}}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func salesPipeline() bson.A {
	return bson.A{
		bson.D{{Key: "$facet", Value: bson.D{
			{Key: "byStatus", Value: salesGroup("$status")},
			{Key: "byDay", Value: salesGroup("$date")},
			{Key: "totals", Value: salesGroup(nil)},
		}}},
	}
}

func (s *Store) SummarizeOrders(ctx context.Context) (*models.SalesSummary, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	cursor, err := s.orders.Aggregate(ctx, salesPipeline())
	if err != nil {
		return nil, translate(err, "")
	}
	defer cursor.Close(ctx)

	var facets []salesFacets
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, translate(err, "")
	}

	summary := &models.SalesSummary{
		TotalRevenue: decimal.Zero,
		ByStatus:     []models.StatusBucket{},
		ByDay:        []models.DayBucket{},
	}
	if len(facets) == 0 {
		return summary, nil
	}
	f := facets[0]
	if f.ByStatus != nil {
		summary.ByStatus = f.ByStatus
	}
	if f.ByDay != nil {
		summary.ByDay = f.ByDay
	}
	if len(f.Totals) > 0 {
		summary.TotalOrders = f.Totals[0].Orders
		summary.TotalItems = f.Totals[0].Items
		summary.TotalRevenue = f.Totals[0].Revenue
	}
	return summary, nil
}
