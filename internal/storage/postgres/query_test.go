package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/annoor-shop/internal/listing"
)

var productColumns = Columns{
	Fields: map[string]string{"stock": "stock", "discount": "discount", "category": "category"},
	Search: "search",
	Newest: "created_at DESC, id DESC",
}

func TestCompile_Filter(t *testing.T) {
	q, err := listing.Build(listing.Params{Page: 2, Filter: "Stock out"}, listing.Filters{"Stock out": listing.Eq("stock", 0)})
	require.NoError(t, err)

	c, err := Compile(q, productColumns)
	require.NoError(t, err)
	assert.Equal(t, "stock = $1", c.Where)
	assert.Equal(t, "created_at DESC, id DESC", c.Order)
	assert.Equal(t, []any{0}, c.Args)

	suffix, args := c.PageArgs(q)
	assert.Equal(t, "LIMIT $2 OFFSET $3", suffix)
	assert.Equal(t, []any{0, int64(15), int64(15)}, args)
	assert.Equal(t, []any{0}, c.Args, "page args must not alias count args")
}

func TestCompile_TextRanksByRelevance(t *testing.T) {
	q, err := listing.Build(listing.Params{Page: 1, Search: "black seed"}, nil)
	require.NoError(t, err)

	c, err := Compile(q, productColumns)
	require.NoError(t, err)
	assert.Equal(t, "search @@ websearch_to_tsquery('simple', $1)", c.Where)
	assert.Equal(t, "ts_rank(search, websearch_to_tsquery('simple', $1)) DESC", c.Order)
	assert.Equal(t, []any{"black seed"}, c.Args)
}

func TestCompile_ScopedAndAll(t *testing.T) {
	cols := Columns{Fields: map[string]string{"owner": "owner", "status": "status"}, Search: "search", Newest: "id DESC"}

	q, _ := listing.Build(listing.Params{Page: 1}, nil)
	c, err := Compile(q, cols)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", c.Where)
	assert.Empty(t, c.Args)

	q, _ = listing.Build(listing.Params{Page: 1, Search: "paid"}, nil)
	c, err = Compile(q.Scope(listing.Eq("owner", "u1")), cols)
	require.NoError(t, err)
	assert.Equal(t, "(owner = $1 AND search @@ websearch_to_tsquery('simple', $2))", c.Where)
	assert.Equal(t, "ts_rank(search, websearch_to_tsquery('simple', $2)) DESC", c.Order)
	assert.Equal(t, []any{"u1", "paid"}, c.Args)
}

func TestCompile_RejectsUnknownField(t *testing.T) {
	q := listing.Query{Predicate: listing.Eq("password; DROP TABLE users", 1), Limit: 15}
	_, err := Compile(q, productColumns)
	assert.Error(t, err)
}
