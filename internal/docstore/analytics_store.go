package docstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/store"
)

// AnalyticsStore implements store.AnalyticsStore with aggregation pipelines.
// Revenue aggregates exclude cancelled orders.
type AnalyticsStore struct {
	ds *DocStore
}

func createdRange(from, to *time.Time) bson.M {
	created := bson.M{}
	if from != nil {
		created["$gte"] = *from
	}
	if to != nil {
		created["$lte"] = *to
	}
	return created
}

func revenueMatch(from, to *time.Time) bson.M {
	match := bson.M{"status": bson.M{"$ne": string(models.OrderStatusCancelled)}}
	if created := createdRange(from, to); len(created) > 0 {
		match["created_at"] = created
	}
	return match
}

func (s *AnalyticsStore) RevenueTotals(ctx context.Context, from, to *time.Time) (float64, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: revenueMatch(from, to)}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"revenue": bson.M{"$sum": "$total_amount"},
			"orders":  bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.ds.db.Collection(colOrders).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, mapError(err)
	}

	var rows []struct {
		Revenue float64 `bson:"revenue"`
		Orders  int     `bson:"orders"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, mapError(err)
	}

	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Revenue, rows[0].Orders, nil
}

func (s *AnalyticsStore) CustomersCreated(ctx context.Context, from, to *time.Time) (int, error) {
	query := bson.M{}
	if created := createdRange(from, to); len(created) > 0 {
		query["created_at"] = created
	}

	count, err := s.ds.db.Collection(colCustomers).CountDocuments(ctx, query)
	if err != nil {
		return 0, mapError(err)
	}
	return int(count), nil
}

func (s *AnalyticsStore) ProductsCount(ctx context.Context) (int, error) {
	count, err := s.ds.db.Collection(colProducts).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, mapError(err)
	}
	return int(count), nil
}

// DailySeries groups non-cancelled orders by creation day. Days without
// orders are absent; the aggregator fills the gaps.
func (s *AnalyticsStore) DailySeries(ctx context.Context, from, to *time.Time) ([]store.DayPoint, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: revenueMatch(from, to)}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateTrunc": bson.M{"date": "$created_at", "unit": "day"}},
			"revenue": bson.M{"$sum": "$total_amount"},
			"orders":  bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := s.ds.db.Collection(colOrders).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapError(err)
	}

	var rows []struct {
		Date    time.Time `bson:"_id"`
		Revenue float64   `bson:"revenue"`
		Orders  int       `bson:"orders"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mapError(err)
	}

	points := make([]store.DayPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, store.DayPoint{Date: row.Date.UTC(), Revenue: row.Revenue, Orders: row.Orders})
	}
	return points, nil
}

func (s *AnalyticsStore) TopProducts(ctx context.Context, from, to *time.Time, limit int) ([]store.TopProduct, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: revenueMatch(from, to)}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$items.product_id",
			"quantity": bson.M{"$sum": "$items.quantity"},
			"revenue":  bson.M{"$sum": bson.M{"$multiply": bson.A{"$items.quantity", "$items.unit_price"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "revenue", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         colProducts,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "product",
		}}},
	}

	cursor, err := s.ds.db.Collection(colOrders).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapError(err)
	}

	var rows []struct {
		ProductID string `bson:"_id"`
		Quantity  int    `bson:"quantity"`
		Revenue   float64 `bson:"revenue"`
		Product   []struct {
			Name string `bson:"name"`
		} `bson:"product"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mapError(err)
	}

	top := make([]store.TopProduct, 0, len(rows))
	for _, row := range rows {
		name := ""
		if len(row.Product) > 0 {
			name = row.Product[0].Name
		}
		top = append(top, store.TopProduct{
			ProductID:    row.ProductID,
			Name:         name,
			QuantitySold: row.Quantity,
			Revenue:      row.Revenue,
		})
	}
	return top, nil
}

func (s *AnalyticsStore) StatusCounts(ctx context.Context, from, to *time.Time) (map[string]int, error) {
	match := bson.M{}
	if created := createdRange(from, to); len(created) > 0 {
		match["created_at"] = created
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.ds.db.Collection(colOrders).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapError(err)
	}

	var rows []struct {
		Status string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mapError(err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ProductPerformance lists every product with its sales rollup over the range
func (s *AnalyticsStore) ProductPerformance(ctx context.Context, from, to *time.Time) ([]store.ProductPerformance, error) {
	// Sales per product over the window, then joined onto the catalog so
	// products with no sales still appear.
	salesPipeline := mongo.Pipeline{
		{{Key: "$match", Value: revenueMatch(from, to)}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$items.product_id",
			"quantity": bson.M{"$sum": "$items.quantity"},
			"revenue":  bson.M{"$sum": bson.M{"$multiply": bson.A{"$items.quantity", "$items.unit_price"}}},
		}}},
	}

	cursor, err := s.ds.db.Collection(colOrders).Aggregate(ctx, salesPipeline)
	if err != nil {
		return nil, mapError(err)
	}

	var salesRows []struct {
		ProductID string  `bson:"_id"`
		Quantity  int     `bson:"quantity"`
		Revenue   float64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &salesRows); err != nil {
		return nil, mapError(err)
	}

	sales := make(map[string]store.ProductSales, len(salesRows))
	for _, row := range salesRows {
		sales[row.ProductID] = store.ProductSales{QuantitySold: row.Quantity, Revenue: row.Revenue}
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	productCursor, err := s.ds.db.Collection(colProducts).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mapError(err)
	}

	var products []*models.Product
	if err := productCursor.All(ctx, &products); err != nil {
		return nil, mapError(err)
	}

	perf := make([]store.ProductPerformance, 0, len(products))
	for _, p := range products {
		s := sales[p.ID]
		perf = append(perf, store.ProductPerformance{
			ProductID:    p.ID,
			Name:         p.Name,
			Category:     p.Category,
			Price:        p.Price,
			SalePrice:    p.SalePrice,
			Stock:        p.StockQuantity,
			QuantitySold: s.QuantitySold,
			Revenue:      s.Revenue,
		})
	}
	return perf, nil
}
