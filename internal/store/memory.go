package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Store with the same query semantics as
// MongoStore. Sort ties fall back to insertion sequence, the counterpart of
// MongoStore's FieldInsertOrder. Documents are kept in their BSON form so that field names,
// omitempty and time precision behave exactly as they do in MongoDB.
type MemoryStore struct {
	mu          sync.RWMutex
	seq         uint64
	collections map[string]map[string]*memDoc
}

type memDoc struct {
	seq    uint64
	fields bson.M
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]*memDoc)}
}

func (s *MemoryStore) Find(ctx context.Context, q Query, out any) error {
	if err := q.Validate(); err != nil {
		return err
	}
	filters := make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		v, err := normalize(f.Value)
		if err != nil {
			return err
		}
		filters[i] = Filter{Field: f.Field, Op: f.Op, Value: v}
	}

	s.mu.RLock()
	var matched []*memDoc
	for _, d := range s.collections[q.Collection] {
		if matches(d.fields, filters) {
			matched = append(matched, d)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.OrderBy != "" {
			if c := compareValues(a.fields[q.OrderBy], b.fields[q.OrderBy]); c != 0 {
				if q.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		if q.Descending {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	docs := make([]bson.M, len(matched))
	for i, d := range matched {
		docs[i] = d.fields
	}
	return decodeAll(docs, out)
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string, out any) error {
	s.mu.RLock()
	d, ok := s.collections[collection][id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return decodeOne(d.fields, out)
}

func (s *MemoryStore) Insert(ctx context.Context, collection, id string, doc any) error {
	fields, err := toM(doc)
	if err != nil {
		return err
	}
	fields[fieldID] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]*memDoc)
		s.collections[collection] = col
	}
	if _, exists := col[id]; exists {
		return ErrDuplicateID
	}
	s.seq++
	col[id] = &memDoc{seq: s.seq, fields: fields}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, set map[string]any) error {
	normalized := make(map[string]any, len(set))
	for k, v := range set {
		nv, err := normalize(v)
		if err != nil {
			return err
		}
		normalized[k] = nv
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range normalized {
		d.fields[k] = v
	}
	return nil
}

func (s *MemoryStore) AddToSet(ctx context.Context, collection, id, field string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	arr, _ := d.fields[field].(primitive.A)
	for _, existing := range arr {
		if reflect.DeepEqual(existing, v) {
			return nil
		}
	}
	d.fields[field] = append(append(primitive.A(nil), arr...), v)
	return nil
}

func (s *MemoryStore) Pull(ctx context.Context, collection, id, field string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	arr, _ := d.fields[field].(primitive.A)
	kept := primitive.A{}
	for _, existing := range arr {
		if !reflect.DeepEqual(existing, v) {
			kept = append(kept, existing)
		}
	}
	d.fields[field] = kept
	return nil
}

func (s *MemoryStore) PullMatching(ctx context.Context, collection, id, field string, match map[string]any) error {
	m, err := normalizeFields(match)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	arr, _ := d.fields[field].(primitive.A)
	kept := primitive.A{}
	for _, el := range arr {
		if !elementMatches(el, m) {
			kept = append(kept, el)
		}
	}
	d.fields[field] = kept
	return nil
}

func (s *MemoryStore) UpdateElements(ctx context.Context, collection, id, field string, match, set map[string]any) error {
	m, err := normalizeFields(match)
	if err != nil {
		return err
	}
	values, err := normalizeFields(set)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	arr, _ := d.fields[field].(primitive.A)
	updated := make(primitive.A, len(arr))
	for i, el := range arr {
		if elementMatches(el, m) {
			el = withFields(el, values)
		}
		updated[i] = el
	}
	d.fields[field] = updated
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

const fieldID = "_id"

func matches(doc bson.M, filters []Filter) bool {
	for _, f := range filters {
		v := doc[f.Field]
		switch f.Op {
		case OpEq:
			if !reflect.DeepEqual(v, f.Value) {
				return false
			}
		case OpContains:
			arr, ok := v.(primitive.A)
			if !ok {
				return false
			}
			found := false
			for _, el := range arr {
				if reflect.DeepEqual(el, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// compareValues orders BSON scalar values; missing values sort first.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch av := a.(type) {
	case primitive.DateTime:
		if bv, ok := b.(primitive.DateTime); ok {
			return cmpOrdered(int64(av), int64(bv))
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int32:
		if bv, ok := b.(int32); ok {
			return cmpOrdered(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmpOrdered(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpOrdered(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[T int32 | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func normalizeFields(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		nv, err := normalize(v)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

// subfield reads key from an embedded document in either decoded form.
func subfield(el any, key string) (any, bool) {
	switch doc := el.(type) {
	case bson.M:
		v, ok := doc[key]
		return v, ok
	case bson.D:
		for _, e := range doc {
			if e.Key == key {
				return e.Value, true
			}
		}
	}
	return nil, false
}

func elementMatches(el any, match map[string]any) bool {
	for k, want := range match {
		got, ok := subfield(el, k)
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// withFields returns a copy of the embedded document el with set applied.
func withFields(el any, set map[string]any) any {
	switch doc := el.(type) {
	case bson.M:
		out := make(bson.M, len(doc)+len(set))
		for k, v := range doc {
			out[k] = v
		}
		for k, v := range set {
			out[k] = v
		}
		return out
	case bson.D:
		out := append(bson.D(nil), doc...)
		for k, v := range set {
			replaced := false
			for i := range out {
				if out[i].Key == k {
					out[i].Value = v
					replaced = true
				}
			}
			if !replaced {
				out = append(out, bson.E{Key: k, Value: v})
			}
		}
		return out
	}
	return el
}

func toM(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return m, nil
}

// normalize converts v to the value it would have after a round trip
// through BSON, so comparisons match what MongoDB would compare.
func normalize(v any) (any, error) {
	m, err := toM(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

func decodeOne(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func decodeAll(docs []bson.M, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%w: out must be a pointer to a slice", ErrInvalidQuery)
	}
	sliceType := rv.Elem().Type()
	result := reflect.MakeSlice(sliceType, 0, len(docs))
	for _, d := range docs {
		el := reflect.New(sliceType.Elem())
		if err := decodeOne(d, el.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, el.Elem())
	}
	rv.Elem().Set(result)
	return nil
}
