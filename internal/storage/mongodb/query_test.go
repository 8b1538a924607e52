package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MikeMC777/annoor-shop/internal/listing"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		pred listing.Predicate
		want bson.D
	}{
		{"all", listing.All(), bson.D{}},
		{"text", listing.Text("dates"), bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: "dates"}}}}},
		{"eq", listing.Eq("stock", 0), bson.D{{Key: "stock", Value: 0}}},
		{"gt", listing.Gt("discount", 0), bson.D{{Key: "discount", Value: bson.D{{Key: "$gt", Value: 0}}}}},
		{"mapped field", listing.Eq("name", "Ann"), bson.D{{Key: "profile.name", Value: "Ann"}}},
		{
			"and",
			listing.And(listing.Eq("owner", "u1"), listing.Eq("status", "paid")),
			bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "owner", Value: "u1"}},
				bson.D{{Key: "status", Value: "paid"}},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filter(tt.pred, map[string]string{"name": "profile.name"}))
		})
	}
}

func applyFind(t *testing.T, b *options.FindOptionsBuilder) options.FindOptions {
	t.Helper()
	var fo options.FindOptions
	for _, set := range b.Opts {
		require.NoError(t, set(&fo))
	}
	return fo
}

func TestFindOptions(t *testing.T) {
	q, err := listing.Build(listing.Params{Page: 3}, nil)
	require.NoError(t, err)

	fo := applyFind(t, FindOptions(q))
	require.NotNil(t, fo.Skip)
	require.NotNil(t, fo.Limit)
	assert.Equal(t, int64(30), *fo.Skip)
	assert.Equal(t, int64(listing.PageSize), *fo.Limit)
	assert.Equal(t, bson.D{{Key: "_id", Value: -1}}, fo.Sort)

	q, err = listing.Build(listing.Params{Page: 1, Search: "honey"}, nil)
	require.NoError(t, err)
	fo = applyFind(t, FindOptions(q))
	assert.Nil(t, fo.Sort, "text search leaves ordering to the store")
}
