package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/storage/mongodb"
)

// counterID is the key of the order sequence in the counters collection.
const counterID = "orders"

type itemDoc struct {
	ProductID string          `bson:"productId"`
	Name      string          `bson:"name"`
	Image     string          `bson:"image,omitempty"`
	Quantity  int             `bson:"quantity"`
	Price     bson.Decimal128 `bson:"price"`
}

type orderDoc struct {
	ID        int64           `bson:"_id"`
	Owner     string          `bson:"owner"`
	Items     []itemDoc       `bson:"items"`
	Total     bson.Decimal128 `bson:"total"`
	Status    string          `bson:"status"`
	Address   string          `bson:"address"`
	Phone     string          `bson:"phone"`
	Payment   map[string]any  `bson:"payment,omitempty"`
	CreatedAt time.Time       `bson:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt"`
}

func newOrderDoc(o *Order) (orderDoc, error) {
	total, err := mongodb.Decimal(o.Total)
	if err != nil {
		return orderDoc{}, err
	}
	items := make([]itemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		price, err := mongodb.Decimal(it.Price)
		if err != nil {
			return orderDoc{}, err
		}
		items = append(items, itemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Quantity:  it.Quantity,
			Price:     price,
		})
	}
	return orderDoc{
		ID:        o.ID,
		Owner:     o.Owner,
		Items:     items,
		Total:     total,
		Status:    o.Status,
		Address:   o.Address,
		Phone:     o.Phone,
		Payment:   o.Payment,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}, nil
}

func (d orderDoc) order() Order {
	items := make([]Item, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Quantity:  it.Quantity,
			Price:     mongodb.FromDecimal(it.Price),
		})
	}
	return Order{
		ID:        d.ID,
		Owner:     d.Owner,
		Items:     items,
		Total:     mongodb.FromDecimal(d.Total),
		Status:    d.Status,
		Address:   d.Address,
		Phone:     d.Phone,
		Payment:   d.Payment,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type MongoRepo struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

func NewMongoRepo(conn *mongodb.Connection) *MongoRepo {
	return &MongoRepo{
		coll:     conn.Collection(mongodb.Orders),
		counters: conn.Collection(mongodb.Counters),
	}
}

// nextID atomically bumps the order sequence and returns the new value.
func (r *MongoRepo) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: counterID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate order number: %w", err)
	}
	return counter.Seq, nil
}

func (r *MongoRepo) Create(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	o.ID, o.CreatedAt, o.UpdatedAt = id, now, now

	doc, err := newOrderDoc(o)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *MongoRepo) GetByID(ctx context.Context, id int64) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d orderDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	o := d.order()
	return &o, nil
}

func (r *MongoRepo) List(ctx context.Context, q listing.Query) ([]Order, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	docs, total, err := mongodb.List[orderDoc](ctx, r.coll, q, nil)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.order())
	}
	return out, total, nil
}

func (r *MongoRepo) SetStatus(ctx context.Context, id int64, status string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var prev orderDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "status", Value: bson.D{{Key: "$ne", Value: StatusCanceled}}},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: status},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&prev)
	if err == nil {
		o := prev.order()
		return &o, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return nil, r.missOr(ctx, bson.D{{Key: "_id", Value: id}}, ErrCanceled)
}

func (r *MongoRepo) Pay(ctx context.Context, id int64, owner string, payment map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	keys := make([]string, 0, len(payment))
	for k := range payment {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := bson.D{
		{Key: "status", Value: StatusPaid},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
	for _, k := range keys {
		set = append(set, bson.E{Key: "payment." + k, Value: payment[k]})
	}

	owned := bson.D{{Key: "_id", Value: id}, {Key: "owner", Value: owner}}
	res, err := r.coll.UpdateOne(ctx,
		append(owned, bson.E{Key: "status", Value: StatusPending}),
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.missOr(ctx, owned, ErrNotPending)
}

func (r *MongoRepo) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, fmt.Errorf("failed to delete order: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// missOr explains a guarded update that matched nothing: ErrNotFound when
// filter matches no order, otherwise guardErr.
func (r *MongoRepo) missOr(ctx context.Context, filter bson.D, guardErr error) error {
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return guardErr
}
