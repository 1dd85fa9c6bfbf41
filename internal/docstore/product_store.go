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

const lowStockThreshold = 5

// ProductStore implements store.ProductStore on Mongo
type ProductStore struct {
	ds *DocStore
}

func (s *ProductStore) products() *mongo.Collection {
	return s.ds.db.Collection(colProducts)
}

func (s *ProductStore) Create(ctx context.Context, product *models.Product) error {
	if _, err := s.products().InsertOne(ctx, product); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *ProductStore) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := s.products().FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, mapError(err)
	}
	return &product, nil
}

// List retrieves products matching the filter plus the total match count
func (s *ProductStore) List(ctx context.Context, filter store.ProductFilter) ([]*models.Product, int, error) {
	query := bson.M{}

	if filter.Search != "" {
		regex := bson.M{"$regex": filter.Search, "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"name": regex},
			bson.M{"description": regex},
		}
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Featured != nil {
		query["is_featured"] = *filter.Featured
	}

	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}

	stock := bson.M{}
	if filter.MinStock != nil {
		stock["$gte"] = *filter.MinStock
	}
	if filter.MaxStock != nil {
		stock["$lte"] = *filter.MaxStock
	}
	if filter.LowStock {
		stock["$lt"] = lowStockThreshold
	}
	if len(stock) > 0 {
		query["stock_quantity"] = stock
	}

	total, err := s.products().CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mapError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(filter.Limit)).
		SetSkip(int64(filter.Offset))

	cursor, err := s.products().Find(ctx, query, opts)
	if err != nil {
		return nil, 0, mapError(err)
	}

	var products []*models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, mapError(err)
	}

	return products, int(total), nil
}

// Update replaces the product document, writing the outbox message in the
// same transaction when one is supplied
func (s *ProductStore) Update(ctx context.Context, product *models.Product, msg *models.OutboxMessage) error {
	if msg == nil {
		result, err := s.products().ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
		if err != nil {
			return mapError(err)
		}
		if result.MatchedCount == 0 {
			return store.ErrNotFound
		}
		return nil
	}

	return s.ds.withTx(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := s.products().ReplaceOne(sessCtx, bson.M{"_id": product.ID}, product)
		if err != nil {
			return mapError(err)
		}
		if result.MatchedCount == 0 {
			return store.ErrNotFound
		}
		if _, err := s.ds.db.Collection(colOutbox).InsertOne(sessCtx, msg); err != nil {
			return mapError(err)
		}
		return nil
	})
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	result, err := s.products().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SalesRollup unwinds order items across non-cancelled orders and sums the
// product's quantity and revenue over the range
func (s *ProductStore) SalesRollup(ctx context.Context, productID string, from, to *time.Time) (store.ProductSales, error) {
	match := bson.M{"status": bson.M{"$ne": string(models.OrderStatusCancelled)}}
	created := bson.M{}
	if from != nil {
		created["$gte"] = *from
	}
	if to != nil {
		created["$lte"] = *to
	}
	if len(created) > 0 {
		match["created_at"] = created
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$match", Value: bson.M{"items.product_id": productID}}},
		{{Key: "$group", Value: bson.M{
			"_id":      nil,
			"quantity": bson.M{"$sum": "$items.quantity"},
			"revenue":  bson.M{"$sum": bson.M{"$multiply": bson.A{"$items.quantity", "$items.unit_price"}}},
		}}},
	}

	cursor, err := s.ds.db.Collection(colOrders).Aggregate(ctx, pipeline)
	if err != nil {
		return store.ProductSales{}, mapError(err)
	}

	var rows []struct {
		Quantity int     `bson:"quantity"`
		Revenue  float64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return store.ProductSales{}, mapError(err)
	}

	if len(rows) == 0 {
		return store.ProductSales{}, nil
	}
	return store.ProductSales{QuantitySold: rows[0].Quantity, Revenue: rows[0].Revenue}, nil
}

// CategoryStore implements store.CategoryStore on Mongo
type CategoryStore struct {
	ds *DocStore
}

func (s *CategoryStore) categories() *mongo.Collection {
	return s.ds.db.Collection(colCategories)
}

func (s *CategoryStore) Create(ctx context.Context, category *models.Category) error {
	if _, err := s.categories().InsertOne(ctx, category); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *CategoryStore) List(ctx context.Context) ([]*models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := s.categories().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mapError(err)
	}

	var categories []*models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, mapError(err)
	}
	return categories, nil
}

func (s *CategoryStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	count, err := s.categories().CountDocuments(ctx, bson.M{"name": name})
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}
