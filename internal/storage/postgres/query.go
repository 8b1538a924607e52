package postgres

import (
	"fmt"
	"strings"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/listing"
)

// Columns describes how one table exposes logical predicate fields.
type Columns struct {
	// Fields maps logical field names to column expressions. Fields not listed
	// here are rejected, so predicate names never reach SQL unchecked.
	Fields map[string]string
	// Search is the tsvector column matched by text predicates.
	Search string
	// Newest is the ORDER BY clause for newest-first listings.
	Newest string
}

// Compiled is a listing query rendered as SQL fragments with positional args.
// Where and Args alone form the count query; Order, Limit and Offset extend
// them into the page query, so both see the same predicate.
type Compiled struct {
	Where string
	Order string
	Args  []any
}

type compiler struct {
	cols    Columns
	args    []any
	textArg int
}

// Compile renders q against cols. The first placeholder is $1.
func Compile(q listing.Query, cols Columns) (Compiled, error) {
	c := &compiler{cols: cols}
	where, err := c.expr(q.Predicate)
	if err != nil {
		return Compiled{}, err
	}

	order := cols.Newest
	if c.textArg > 0 {
		order = fmt.Sprintf("ts_rank(%s, websearch_to_tsquery('simple', $%d)) DESC", cols.Search, c.textArg)
	}
	return Compiled{Where: where, Order: order, Args: c.args}, nil
}

// PageArgs returns the args of the page query and the LIMIT/OFFSET suffix.
func (c Compiled) PageArgs(q listing.Query) (string, []any) {
	args := append(append([]any(nil), c.Args...), q.Limit, q.Skip)
	n := len(args)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", n-1, n), args
}

func (c *compiler) push(v any) int {
	c.args = append(c.args, v)
	return len(c.args)
}

func (c *compiler) expr(p listing.Predicate) (string, error) {
	switch p.Op {
	case listing.OpAll:
		return "TRUE", nil
	case listing.OpText:
		if c.cols.Search == "" {
			return "", fmt.Errorf("%w: search is not supported here", apperr.ErrInvalidInput)
		}
		n := c.push(p.Value)
		if c.textArg == 0 {
			c.textArg = n
		}
		return fmt.Sprintf("%s @@ websearch_to_tsquery('simple', $%d)", c.cols.Search, n), nil
	case listing.OpEq, listing.OpGt:
		col, ok := c.cols.Fields[p.Field]
		if !ok {
			return "", fmt.Errorf("unknown predicate field %q", p.Field)
		}
		op := "="
		if p.Op == listing.OpGt {
			op = ">"
		}
		return fmt.Sprintf("%s %s $%d", col, op, c.push(p.Value)), nil
	case listing.OpAnd:
		parts := make([]string, 0, len(p.Terms))
		for _, t := range p.Terms {
			s, err := c.expr(t)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	}
	return "", fmt.Errorf("unsupported predicate op %d", p.Op)
}
