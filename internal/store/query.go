package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Op is a filter operator.
type Op string

const (
	// OpEq matches documents whose field equals the value.
	OpEq Op = "eq"
	// OpContains matches documents whose array field contains the value.
	OpContains Op = "contains"
)

// Filter is a single predicate on a document field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query is a declarative description of a live or one-shot read: one
// collection, a conjunction of filters, an optional sort and a limit.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int64
}

// NewQuery starts a query on collection.
func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

// Where adds an equality predicate.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: OpEq, Value: value})
	return q
}

// WhereContains adds an array membership predicate.
func (q Query) WhereContains(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: OpContains, Value: value})
	return q
}

// Sort orders results by field.
func (q Query) Sort(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// Take limits the number of results. Zero means unlimited.
func (q Query) Take(n int64) Query {
	q.Limit = n
	return q
}

// Validate rejects malformed queries before they reach a backend.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	for _, f := range q.Filters {
		if f.Field == "" {
			return fmt.Errorf("%w: filter without field", ErrInvalidQuery)
		}
		if f.Op != OpEq && f.Op != OpContains {
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, f.Op)
		}
	}
	return nil
}

// String renders the query canonically. Two queries with the same string
// return the same result set.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Collection)
	for _, f := range q.Filters {
		b.WriteString("|")
		b.WriteString(f.Field)
		b.WriteString(" ")
		b.WriteString(string(f.Op))
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%v", f.Value))
	}
	if q.OrderBy != "" {
		b.WriteString("|order ")
		b.WriteString(q.OrderBy)
		if q.Descending {
			b.WriteString(" desc")
		}
	}
	if q.Limit > 0 {
		b.WriteString("|limit ")
		b.WriteString(strconv.FormatInt(q.Limit, 10))
	}
	return b.String()
}

// Key is a short stable hash of the query, used for cache keys.
func (q Query) Key() string {
	return strconv.FormatUint(xxhash.Sum64String(q.String()), 16)
}
