package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MikeMC777/annoor-shop/internal/listing"
)

// Filter translates p into a MongoDB filter document. fields maps logical
// predicate fields to document paths; unmapped fields are used verbatim.
func Filter(p listing.Predicate, fields map[string]string) bson.D {
	path := func(f string) string {
		if mapped, ok := fields[f]; ok {
			return mapped
		}
		return f
	}

	switch p.Op {
	case listing.OpText:
		return bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: p.Value}}}}
	case listing.OpEq:
		return bson.D{{Key: path(p.Field), Value: p.Value}}
	case listing.OpGt:
		return bson.D{{Key: path(p.Field), Value: bson.D{{Key: "$gt", Value: p.Value}}}}
	case listing.OpAnd:
		terms := bson.A{}
		for _, t := range p.Terms {
			terms = append(terms, Filter(t, fields))
		}
		return bson.D{{Key: "$and", Value: terms}}
	default:
		return bson.D{}
	}
}

// FindOptions returns paging and ordering for q. Newest-first relies on
// _id growing with insertion order (ObjectIDs and order numbers both do).
func FindOptions(q listing.Query) *options.FindOptionsBuilder {
	opts := options.Find().SetSkip(q.Skip).SetLimit(q.Limit)
	if q.Sort == listing.SortNewest && !q.Predicate.HasText() {
		opts.SetSort(bson.D{{Key: "_id", Value: -1}})
	}
	return opts
}

// List counts and fetches one page of coll with the same filter, decoding
// every document into D.
func List[D any](ctx context.Context, coll *mongo.Collection, q listing.Query, fields map[string]string) ([]D, int64, error) {
	filter := Filter(q.Predicate, fields)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", coll.Name(), err)
	}

	cur, err := coll.Find(ctx, filter, FindOptions(q))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find %s: %w", coll.Name(), err)
	}
	docs := make([]D, 0, q.Limit)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return docs, total, nil
}
