package user

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

type userDoc struct {
	ID        bson.ObjectID  `bson:"_id,omitempty"`
	UID       string         `bson:"uid"`
	Role      string         `bson:"role"`
	Profile   map[string]any `bson:"profile"`
	CreatedAt time.Time      `bson:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt"`
}

func (d userDoc) user() User {
	return User{
		UID:       d.UID,
		Role:      roleFromStore(d.Role),
		Profile:   Profile(d.Profile),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type MongoRepo struct{ coll *mongo.Collection }

func NewMongoRepo(conn *mongodb.Connection) *MongoRepo {
	return &MongoRepo{coll: conn.Collection(mongodb.Users)}
}

// Upsert sets each profile field individually so fields not supplied keep
// their stored value. Role is only written on insert.
func (r *MongoRepo) Upsert(ctx context.Context, uid string, profile Profile) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := bson.D{{Key: "updatedAt", Value: now}}
	for _, k := range keys {
		set = append(set, bson.E{Key: "profile." + k, Value: profile[k]})
	}
	onInsert := bson.D{
		{Key: "createdAt", Value: now},
		{Key: "role", Value: RoleNone.String()},
	}
	if len(keys) == 0 {
		onInsert = append(onInsert, bson.E{Key: "profile", Value: bson.M{}})
	}

	_, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "uid", Value: uid}},
		bson.D{{Key: "$set", Value: set}, {Key: "$setOnInsert", Value: onInsert}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *MongoRepo) GetByUID(ctx context.Context, uid string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d userDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "uid", Value: uid}}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u := d.user()
	return &u, nil
}

func (r *MongoRepo) SetRole(ctx context.Context, uid string, role Role) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "uid", Value: uid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "role", Value: role.String()},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) List(ctx context.Context, q listing.Query) ([]User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	docs, total, err := mongodb.List[userDoc](ctx, r.coll, q, nil)
	if err != nil {
		return nil, 0, err
	}
	out := make([]User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.user())
	}
	return out, total, nil
}
