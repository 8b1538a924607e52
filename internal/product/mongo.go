package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/storage/mongodb"
)

type productDoc struct {
	ID          bson.ObjectID   `bson:"_id,omitempty"`
	Name        string          `bson:"name"`
	Category    string          `bson:"category"`
	Subtext     string          `bson:"subtext"`
	Stock       int             `bson:"stock"`
	Description string          `bson:"description"`
	Price       bson.Decimal128 `bson:"price"`
	Discount    bson.Decimal128 `bson:"discount"`
	Image       string          `bson:"image"`
	CreatedAt   time.Time       `bson:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt"`
}

func newProductDoc(p *Product) (productDoc, error) {
	price, err := mongodb.Decimal(p.Price)
	if err != nil {
		return productDoc{}, err
	}
	discount, err := mongodb.Decimal(p.Discount)
	if err != nil {
		return productDoc{}, err
	}
	return productDoc{
		Name:        p.Name,
		Category:    p.Category,
		Subtext:     p.Subtext,
		Stock:       p.Stock,
		Description: p.Description,
		Price:       price,
		Discount:    discount,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d productDoc) product() Product {
	return Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Category:    d.Category,
		Subtext:     d.Subtext,
		Stock:       d.Stock,
		Description: d.Description,
		Price:       mongodb.FromDecimal(d.Price),
		Discount:    mongodb.FromDecimal(d.Discount),
		Image:       d.Image,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func mongoID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, ErrInvalidID
	}
	return oid, nil
}

type MongoRepo struct{ coll *mongo.Collection }

func NewMongoRepo(conn *mongodb.Connection) *MongoRepo {
	return &MongoRepo{coll: conn.Collection(mongodb.Products)}
}

func (r *MongoRepo) Create(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	doc, err := newProductDoc(p)
	if err != nil {
		return err
	}
	doc.ID = bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	p.ID = doc.ID.Hex()
	return nil
}

func (r *MongoRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	oid, err := mongoID(id)
	if err != nil {
		return nil, err
	}
	var d productDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p := d.product()
	return &p, nil
}

func (r *MongoRepo) Update(ctx context.Context, id string, f Fields) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	oid, err := mongoID(id)
	if err != nil {
		return nil, err
	}
	set, err := mongoSet(f)
	if err != nil {
		return nil, err
	}
	var d productDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	p := d.product()
	return &p, nil
}

// mongoSet builds the $set document for the supplied fields.
func mongoSet(f Fields) (bson.D, error) {
	var set bson.D
	add := func(key string, v any) { set = append(set, bson.E{Key: key, Value: v}) }
	if f.Name != nil {
		add("name", *f.Name)
	}
	if f.Category != nil {
		add("category", *f.Category)
	}
	if f.Subtext != nil {
		add("subtext", *f.Subtext)
	}
	if f.Description != nil {
		add("description", *f.Description)
	}
	if f.Image != nil {
		add("image", *f.Image)
	}
	if f.Stock != nil {
		add("stock", *f.Stock)
	}
	if f.Price != nil {
		v, err := mongodb.Decimal(*f.Price)
		if err != nil {
			return nil, err
		}
		add("price", v)
	}
	if f.Discount != nil {
		v, err := mongodb.Decimal(*f.Discount)
		if err != nil {
			return nil, err
		}
		add("discount", v)
	}
	add("updatedAt", time.Now().UTC())
	return set, nil
}

func (r *MongoRepo) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	oid, err := mongoID(id)
	if err != nil {
		return false, err
	}
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepo) List(ctx context.Context, q listing.Query) ([]Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	docs, total, err := mongodb.List[productDoc](ctx, r.coll, q, nil)
	if err != nil {
		return nil, 0, err
	}
	return products(docs), total, nil
}

func (r *MongoRepo) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := r.coll.Find(ctx,
		bson.D{{Key: "category", Value: category}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products(docs), nil
}

func (r *MongoRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	oid, err := mongoID(id)
	if err != nil {
		return err
	}
	filter := bson.D{{Key: "_id", Value: oid}}
	if delta < 0 {
		filter = append(filter, bson.E{Key: "stock", Value: bson.D{{Key: "$gte", Value: -delta}}})
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "stock", Value: delta}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	})
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

func products(docs []productDoc) []Product {
	out := make([]Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.product())
	}
	return out
}
