// Package listing turns the page/search/filter query string shared by every
// list endpoint into a store-neutral query.
package listing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
)

// PageSize is the fixed window of every list endpoint.
const PageSize = 15

// MaxPage is the last page whose skip still fits in an int64.
const MaxPage = math.MaxInt64 / PageSize

var errPageRange = fmt.Errorf("%w: page must be between 1 and %d", apperr.ErrInvalidInput, int64(MaxPage))

// Op is the kind of a Predicate node.
type Op int

const (
	OpAll Op = iota
	OpText
	OpEq
	OpGt
	OpAnd
)

// Predicate is a small filter tree that each store translates into its own
// query language. Field names are logical names that stores map to columns.
type Predicate struct {
	Op    Op
	Field string
	Value any
	Terms []Predicate
}

// All matches every record.
func All() Predicate { return Predicate{Op: OpAll} }

// Text matches records whose indexed text fields match the search terms.
func Text(search string) Predicate { return Predicate{Op: OpText, Value: search} }

// Eq matches records whose field equals v.
func Eq(field string, v any) Predicate { return Predicate{Op: OpEq, Field: field, Value: v} }

// Gt matches records whose field is strictly greater than v.
func Gt(field string, v any) Predicate { return Predicate{Op: OpGt, Field: field, Value: v} }

// And matches records satisfying every term. Match-all terms are dropped and
// a single remaining term is returned as is.
func And(terms ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		if t.Op == OpAll {
			continue
		}
		kept = append(kept, t)
	}
	switch len(kept) {
	case 0:
		return All()
	case 1:
		return kept[0]
	}
	return Predicate{Op: OpAnd, Terms: kept}
}

// HasText reports whether p contains a text-search node.
func (p Predicate) HasText() bool {
	if p.Op == OpText {
		return true
	}
	for _, t := range p.Terms {
		if t.HasText() {
			return true
		}
	}
	return false
}

// Sort is the result ordering of a query.
type Sort int

const (
	// SortNewest returns the most recently inserted records first.
	SortNewest Sort = iota
	// SortRelevance leaves ordering to the store's text-search primitive.
	SortRelevance
)

// Filters maps a filter token from the query string to its predicate.
type Filters map[string]Predicate

// Params are the raw listing parameters after parsing.
type Params struct {
	Page   int
	Search string
	Filter string
}

// Query is what a repository needs to fetch one page and its total count.
// Count and page fetch must both use Predicate.
type Query struct {
	Predicate Predicate
	Sort      Sort
	Skip      int64
	Limit     int64
}

// ParseParams reads the page, search and filter query values. An empty page
// defaults to the first one; anything that is not an integer in
// [1, MaxPage] is rejected.
func ParseParams(page, search, filter string) (Params, error) {
	p := Params{Page: 1, Search: strings.TrimSpace(search), Filter: strings.TrimSpace(filter)}
	page = strings.TrimSpace(page)
	if page == "" {
		return p, nil
	}
	n, err := strconv.Atoi(page)
	if err != nil {
		return Params{}, fmt.Errorf("%w: page must be an integer", apperr.ErrInvalidInput)
	}
	if n < 1 || int64(n) > MaxPage {
		return Params{}, errPageRange
	}
	p.Page = n
	return p, nil
}

// Build derives the query for p. A non-empty search takes precedence over a
// filter token; an unknown or empty filter token matches everything.
func Build(p Params, filters Filters) (Query, error) {
	if p.Page < 1 || int64(p.Page) > MaxPage {
		return Query{}, errPageRange
	}
	q := Query{
		Predicate: All(),
		Sort:      SortNewest,
		Skip:      int64(p.Page-1) * PageSize,
		Limit:     PageSize,
	}

	search := strings.TrimSpace(p.Search)
	switch {
	case search != "":
		q.Predicate = Text(search)
		q.Sort = SortRelevance
	case p.Filter != "":
		if pred, ok := filters[p.Filter]; ok {
			q.Predicate = pred
		}
	}
	return q, nil
}

// Scope narrows q to records that also satisfy extra, keeping its paging.
func (q Query) Scope(extra Predicate) Query {
	q.Predicate = And(extra, q.Predicate)
	return q
}
