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

// OrderStore implements store.OrderStore on Mongo. Each order document embeds
// its items and timeline, so single-order reads need no joins.
type OrderStore struct {
	ds *DocStore
}

func (s *OrderStore) orders() *mongo.Collection {
	return s.ds.db.Collection(colOrders)
}

// Create writes the order document and the outbox message in one transaction
func (s *OrderStore) Create(ctx context.Context, order *models.Order, msg *models.OutboxMessage) error {
	return s.ds.withTx(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.orders().InsertOne(sessCtx, order); err != nil {
			return mapError(err)
		}
		if msg != nil {
			if _, err := s.ds.db.Collection(colOutbox).InsertOne(sessCtx, msg); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetByID retrieves an order with its embedded items and timeline
func (s *OrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.orders().FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, mapError(err)
	}
	return &order, nil
}

// GetMany retrieves orders by id
func (s *OrderStore) GetMany(ctx context.Context, ids []string) ([]*models.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := s.orders().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, mapError(err)
	}

	var orders []*models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

func orderFilterQuery(filter store.OrderFilter) bson.M {
	query := bson.M{}

	if filter.Search != "" {
		regex := bson.M{"$regex": filter.Search, "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"_id": regex},
			bson.M{"customer_name": regex},
			bson.M{"customer_email": regex},
		}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	created := bson.M{}
	if filter.From != nil {
		created["$gte"] = *filter.From
	}
	if filter.To != nil {
		created["$lte"] = *filter.To
	}
	if len(created) > 0 {
		query["created_at"] = created
	}

	amount := bson.M{}
	if filter.MinAmount != nil {
		amount["$gte"] = *filter.MinAmount
	}
	if filter.MaxAmount != nil {
		amount["$lte"] = *filter.MaxAmount
	}
	if len(amount) > 0 {
		query["total_amount"] = amount
	}

	return query
}

// List retrieves orders matching the filter plus the total match count
func (s *OrderStore) List(ctx context.Context, filter store.OrderFilter) ([]*models.Order, int, error) {
	query := orderFilterQuery(filter)

	total, err := s.orders().CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mapError(err)
	}

	sortCol := "created_at"
	if filter.SortBy == "total_amount" {
		sortCol = "total_amount"
	}
	dir := 1
	if filter.SortDesc {
		dir = -1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortCol, Value: dir}}).
		SetLimit(int64(filter.Limit)).
		SetSkip(int64(filter.Offset))

	cursor, err := s.orders().Find(ctx, query, opts)
	if err != nil {
		return nil, 0, mapError(err)
	}

	var orders []*models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, mapError(err)
	}

	return orders, int(total), nil
}

// Stats aggregates count and revenue per status over the filtered set
func (s *OrderStore) Stats(ctx context.Context, filter store.OrderFilter) ([]store.OrderStatusStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: orderFilterQuery(filter)}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$status",
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$total_amount"},
		}}},
	}

	cursor, err := s.orders().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapError(err)
	}

	var rows []struct {
		Status  string  `bson:"_id"`
		Count   int     `bson:"count"`
		Revenue float64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mapError(err)
	}

	stats := make([]store.OrderStatusStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, store.OrderStatusStat{Status: row.Status, Count: row.Count, Revenue: row.Revenue})
	}
	return stats, nil
}

// UpdateContact corrects the order's phone and shipping address
func (s *OrderStore) UpdateContact(ctx context.Context, id, phone, address string) error {
	result, err := s.orders().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"customer_phone":   phone,
		"shipping_address": address,
		"updated_at":       models.GetCurrentTime(),
	}})
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *OrderStore) applyStatus(sessCtx mongo.SessionContext, order *models.Order, entry *models.TimelineEntry, msg *models.OutboxMessage) error {
	update := bson.M{
		"$set": bson.M{
			"status":     order.Status,
			"updated_at": order.UpdatedAt,
		},
	}
	if entry != nil {
		update["$push"] = bson.M{"timeline": entry}
	}

	result, err := s.orders().UpdateOne(sessCtx, bson.M{"_id": order.ID}, update)
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}

	if msg != nil {
		if _, err := s.ds.db.Collection(colOutbox).InsertOne(sessCtx, msg); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// UpdateStatus writes the transition, timeline entry and outbox message atomically
func (s *OrderStore) UpdateStatus(ctx context.Context, order *models.Order, entry *models.TimelineEntry, msg *models.OutboxMessage) error {
	return s.ds.withTx(ctx, func(sessCtx mongo.SessionContext) error {
		return s.applyStatus(sessCtx, order, entry, msg)
	})
}

// BulkUpdateStatus applies every transition in one transaction
func (s *OrderStore) BulkUpdateStatus(ctx context.Context, orders []*models.Order, entries []*models.TimelineEntry, msgs []*models.OutboxMessage) error {
	return s.ds.withTx(ctx, func(sessCtx mongo.SessionContext) error {
		for i, order := range orders {
			var entry *models.TimelineEntry
			if i < len(entries) {
				entry = entries[i]
			}
			var msg *models.OutboxMessage
			if i < len(msgs) {
				msg = msgs[i]
			}
			if err := s.applyStatus(sessCtx, order, entry, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the order document; embedded items and timeline go with it
func (s *OrderStore) Delete(ctx context.Context, id string) error {
	result, err := s.orders().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// HasItemsForProduct reports whether any order embeds an item for the product
func (s *OrderStore) HasItemsForProduct(ctx context.Context, productID string) (bool, error) {
	count, err := s.orders().CountDocuments(ctx, bson.M{"items.product_id": productID})
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}

// CountForCustomerEmail counts the orders attributed to the email
func (s *OrderStore) CountForCustomerEmail(ctx context.Context, email string) (int, error) {
	count, err := s.orders().CountDocuments(ctx, bson.M{"customer_email": email})
	if err != nil {
		return 0, mapError(err)
	}
	return int(count), nil
}

// ListForCustomerEmail returns the order history for a customer, newest first
func (s *OrderStore) ListForCustomerEmail(ctx context.Context, email string) ([]*models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.orders().Find(ctx, bson.M{"customer_email": email}, opts)
	if err != nil {
		return nil, mapError(err)
	}

	var orders []*models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

// RollupForCustomerEmail aggregates spend and order dates over non-cancelled orders
func (s *OrderStore) RollupForCustomerEmail(ctx context.Context, email string) (store.CustomerRollup, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"customer_email": email,
			"status":         bson.M{"$ne": string(models.OrderStatusCancelled)},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"total_spent": bson.M{"$sum": "$total_amount"},
			"order_count": bson.M{"$sum": 1},
			"first_order": bson.M{"$min": "$created_at"},
			"last_order":  bson.M{"$max": "$created_at"},
		}}},
	}

	cursor, err := s.orders().Aggregate(ctx, pipeline)
	if err != nil {
		return store.CustomerRollup{}, mapError(err)
	}

	var rows []struct {
		TotalSpent float64   `bson:"total_spent"`
		OrderCount int       `bson:"order_count"`
		FirstOrder time.Time `bson:"first_order"`
		LastOrder  time.Time `bson:"last_order"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return store.CustomerRollup{}, mapError(err)
	}

	if len(rows) == 0 {
		return store.CustomerRollup{}, nil
	}

	first, last := rows[0].FirstOrder, rows[0].LastOrder
	return store.CustomerRollup{
		TotalSpent:   rows[0].TotalSpent,
		OrderCount:   rows[0].OrderCount,
		FirstOrderAt: &first,
		LastOrderAt:  &last,
	}, nil
}
