// Package teststore provides an in-memory store.Driver used by the
// primitive packages' tests, evaluating the same expression.Condition /
// expression.KeyCondition / expression.Update builders the real
// dynamoDriver builds, so a primitive's test exercises its actual
// conditional-write logic instead of a hand-stubbed substitute.
package teststore

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/store"
)

// Fake is an in-memory store.Driver. Construct it with New; the zero
// value has no item map and panics on its first write.
type Fake struct {
	mu    sync.Mutex
	items map[string]store.Record
}

func New() *Fake {
	return &Fake{items: make(map[string]store.Record)}
}

func itemKey(pk, sk string) string { return pk + "/" + sk }

func (f *Fake) PutItem(ctx context.Context, item store.Record, condition *expression.ConditionBuilder) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := itemKey(item.PartitionKey, item.SortKey)
	existing, has := f.items[key]
	var existingPtr *store.Record
	if has {
		existingPtr = &existing
	}
	if condition != nil {
		ok, err := evalCondition(*condition, existingPtr)
		if err != nil {
			return errs.ServiceError("fake put: building condition").WithCause(err)
		}
		if !ok {
			return errs.ConditionFailed("conditional put failed")
		}
	}
	f.items[key] = item
	return nil
}

func (f *Fake) GetItem(ctx context.Context, key store.Key, consistentRead bool) (*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.items[itemKey(key.PartitionKey, key.SortKey)]
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("no item at %s / %s", key.PartitionKey, key.SortKey))
	}
	cp := rec
	return &cp, nil
}

func (f *Fake) UpdateItem(ctx context.Context, spec store.UpdateSpec, returnUpdated bool) (*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := itemKey(spec.Key.PartitionKey, spec.Key.SortKey)
	existing, has := f.items[key]
	var existingPtr *store.Record
	if has {
		existingPtr = &existing
	}
	if spec.Condition != nil {
		ok, err := evalCondition(*spec.Condition, existingPtr)
		if err != nil {
			return nil, errs.ServiceError("fake update: building condition").WithCause(err)
		}
		if !ok {
			return nil, errs.ConditionFailed("conditional update failed")
		}
	}

	base := flatten(existingPtr)
	if base == nil {
		base = map[string]any{
			"partitionKey": spec.Key.PartitionKey,
			"sortKey":      spec.Key.SortKey,
		}
	}
	updated, err := applyUpdate(spec.Update, base)
	if err != nil {
		return nil, errs.ServiceError("fake update: applying update expression").WithCause(err)
	}
	newRec := unflatten(spec.Key.PartitionKey, spec.Key.SortKey, updated)
	f.items[key] = newRec

	if !returnUpdated {
		return nil, nil
	}
	cp := newRec
	return &cp, nil
}

func (f *Fake) DeleteItem(ctx context.Context, key store.Key, condition *expression.ConditionBuilder) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := itemKey(key.PartitionKey, key.SortKey)
	existing, has := f.items[k]
	var existingPtr *store.Record
	if has {
		existingPtr = &existing
	}
	if condition != nil {
		ok, err := evalCondition(*condition, existingPtr)
		if err != nil {
			return errs.ServiceError("fake delete: building condition").WithCause(err)
		}
		if !ok {
			return errs.ConditionFailed("conditional delete failed")
		}
	}
	delete(f.items, k)
	return nil
}

func (f *Fake) Query(ctx context.Context, in store.QueryInput) (*store.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []store.Record
	for _, rec := range f.items {
		flat := flatten(&rec)
		ok, err := evalKeyCondition(in.KeyCondition, flat)
		if err != nil {
			return nil, errs.ServiceError("fake query: key condition").WithCause(err)
		}
		if !ok {
			continue
		}
		if in.Filter != nil {
			fok, err := evalCondition(*in.Filter, &rec)
			if err != nil {
				return nil, errs.ServiceError("fake query: filter").WithCause(err)
			}
			if !fok {
				continue
			}
		}
		matches = append(matches, rec)
	}

	sort.Slice(matches, func(i, j int) bool {
		if in.Ascending {
			return matches[i].SortKey < matches[j].SortKey
		}
		return matches[i].SortKey > matches[j].SortKey
	})

	if in.Limit > 0 && int32(len(matches)) > in.Limit {
		matches = matches[:in.Limit]
	}

	result := &store.QueryResult{Count: int32(len(matches))}
	if !in.CountOnly {
		result.Items = matches
	}
	return result, nil
}

func (f *Fake) TransactWrite(ctx context.Context, actions []store.TransactAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	failed := map[string]any{}
	for i, a := range actions {
		var key store.Key
		var cond *expression.ConditionBuilder
		switch {
		case a.Put != nil:
			key = store.Key{PartitionKey: a.Put.PartitionKey, SortKey: a.Put.SortKey}
			cond = a.PutCondition
		case a.Update != nil:
			key = a.Update.Key
			cond = a.Update.Condition
		case a.Delete != nil:
			key = *a.Delete
			cond = a.DeleteCondition
		case a.ConditionCheck != nil:
			key = *a.ConditionCheck
			cond = a.CheckCondition
		}
		if cond == nil {
			continue
		}
		existing, has := f.items[itemKey(key.PartitionKey, key.SortKey)]
		var existingPtr *store.Record
		if has {
			existingPtr = &existing
		}
		ok, err := evalCondition(*cond, existingPtr)
		if err != nil {
			return errs.ServiceError("fake transact-write: condition").WithCause(err)
		}
		if !ok {
			failed[fmt.Sprintf("action[%d]", i)] = "ConditionalCheckFailed"
		}
	}
	if len(failed) > 0 {
		return errs.ConditionFailed("transaction canceled: one or more conditions failed").WithDetails(failed)
	}

	for _, a := range actions {
		switch {
		case a.Put != nil:
			f.items[itemKey(a.Put.PartitionKey, a.Put.SortKey)] = *a.Put
		case a.Update != nil:
			existing, has := f.items[itemKey(a.Update.Key.PartitionKey, a.Update.Key.SortKey)]
			var existingPtr *store.Record
			if has {
				existingPtr = &existing
			}
			base := flatten(existingPtr)
			if base == nil {
				base = map[string]any{"partitionKey": a.Update.Key.PartitionKey, "sortKey": a.Update.Key.SortKey}
			}
			updated, err := applyUpdate(a.Update.Update, base)
			if err != nil {
				return errs.ServiceError("fake transact-write: update expression").WithCause(err)
			}
			f.items[itemKey(a.Update.Key.PartitionKey, a.Update.Key.SortKey)] = unflatten(a.Update.Key.PartitionKey, a.Update.Key.SortKey, updated)
		case a.Delete != nil:
			delete(f.items, itemKey(a.Delete.PartitionKey, a.Delete.SortKey))
		}
	}
	return nil
}

func (f *Fake) TransactGet(ctx context.Context, keys []store.Key) ([]*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	results := make([]*store.Record, len(keys))
	for i, k := range keys {
		if rec, ok := f.items[itemKey(k.PartitionKey, k.SortKey)]; ok {
			cp := rec
			results[i] = &cp
		}
	}
	return results, nil
}

// Put seeds the fake with a record directly, bypassing condition checks,
// for test setup.
func (f *Fake) Put(rec store.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[itemKey(rec.PartitionKey, rec.SortKey)] = rec
}

// Get returns the raw stored record for assertions, without the
// store.Driver's NotFound wrapping.
func (f *Fake) Get(pk, sk string) (store.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.items[itemKey(pk, sk)]
	return rec, ok
}

// ---- flatten / unflatten ----

func flatten(rec *store.Record) map[string]any {
	if rec == nil {
		return nil
	}
	m := map[string]any{
		"partitionKey": rec.PartitionKey,
		"sortKey":      rec.SortKey,
		"type":         rec.Type,
		"createdAt":    rec.CreatedAt,
		"updatedAt":    rec.UpdatedAt,
	}
	if rec.Value != nil {
		m["value"] = rec.Value
	}
	if rec.TTL != nil {
		m["ttl"] = *rec.TTL
	}
	if rec.Version != nil {
		m["version"] = *rec.Version
	}
	for k, v := range rec.Metadata {
		m["metadata."+k] = v
	}
	return m
}

func unflatten(pk, sk string, m map[string]any) store.Record {
	rec := store.Record{PartitionKey: pk, SortKey: sk}
	if v, ok := m["type"].(string); ok {
		rec.Type = v
	}
	if v, ok := m["value"]; ok {
		rec.Value = v
	}
	if v, ok := m["ttl"]; ok {
		n := toInt64(v)
		rec.TTL = &n
	}
	if v, ok := m["version"]; ok {
		n := toInt64(v)
		rec.Version = &n
	}
	rec.CreatedAt = toInt64(m["createdAt"])
	rec.UpdatedAt = toInt64(m["updatedAt"])
	metadata := map[string]any{}
	for k, v := range m {
		if rest, ok := strings.CutPrefix(k, "metadata."); ok {
			metadata[rest] = v
		}
	}
	if len(metadata) > 0 {
		rec.Metadata = metadata
	}
	return rec
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ---- expression introspection ----

var tokenRe = regexp.MustCompile(`SET|ADD|REMOVE|\(|\)|,|AND|OR|BETWEEN|<=|>=|<>|=|<|>|attribute_not_exists|attribute_exists|begins_with|if_not_exists|#[\w.#]*|:[\w]*`)

type tokens struct {
	toks []string
	pos  int
}

func tokenize(s string) *tokens { return &tokens{toks: tokenRe.FindAllString(s, -1)} }

func (t *tokens) peek() string {
	if t.pos >= len(t.toks) {
		return ""
	}
	return t.toks[t.pos]
}

func (t *tokens) next() string {
	tok := t.peek()
	t.pos++
	return tok
}

func resolvePath(token string, names map[string]string) string {
	parts := strings.Split(token, ".")
	resolved := make([]string, len(parts))
	for i, p := range parts {
		if name, ok := names[p]; ok {
			resolved[i] = name
		} else {
			resolved[i] = p
		}
	}
	return strings.Join(resolved, ".")
}

func resolveValues(values map[string]any, token string) (any, bool) {
	v, ok := values[token]
	return v, ok
}

// boolEval walks a tokenized boolean expression (AND/OR/parens/compare/
// functions) against item (nil meaning "no item at this key") and a
// resolved values map.
type boolEval struct {
	t      *tokens
	names  map[string]string
	values map[string]any
	item   map[string]any
}

func (e *boolEval) attr(path string) (any, bool) {
	resolved := resolvePath(path, e.names)
	if e.item == nil {
		return nil, false
	}
	v, ok := e.item[resolved]
	return v, ok
}

func (e *boolEval) orExpr() (bool, error) {
	left, err := e.andExpr()
	if err != nil {
		return false, err
	}
	for e.t.peek() == "OR" {
		e.t.next()
		right, err := e.andExpr()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (e *boolEval) andExpr() (bool, error) {
	left, err := e.primary()
	if err != nil {
		return false, err
	}
	for e.t.peek() == "AND" {
		e.t.next()
		right, err := e.primary()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (e *boolEval) primary() (bool, error) {
	switch e.t.peek() {
	case "(":
		e.t.next()
		v, err := e.orExpr()
		if err != nil {
			return false, err
		}
		if e.t.next() != ")" {
			return false, fmt.Errorf("expected ) in condition expression")
		}
		return v, nil
	case "attribute_exists":
		e.t.next()
		e.t.next() // (
		path := e.t.next()
		e.t.next() // )
		_, ok := e.attr(path)
		return ok, nil
	case "attribute_not_exists":
		e.t.next()
		e.t.next() // (
		path := e.t.next()
		e.t.next() // )
		_, ok := e.attr(path)
		return !ok, nil
	case "begins_with":
		e.t.next()
		e.t.next() // (
		path := e.t.next()
		e.t.next() // ,
		valTok := e.t.next()
		e.t.next() // )
		av, ok := e.attr(path)
		if !ok {
			return false, nil
		}
		as, ok1 := av.(string)
		prefixAny, ok2 := resolveValues(e.values, valTok)
		prefix, ok3 := prefixAny.(string)
		if !ok1 || !ok2 || !ok3 {
			return false, nil
		}
		return strings.HasPrefix(as, prefix), nil
	default:
		return e.comparison()
	}
}

func (e *boolEval) comparison() (bool, error) {
	path := e.t.next()
	av, hasAttr := e.attr(path)

	op := e.t.next()
	if op == "BETWEEN" {
		lowTok := e.t.next()
		if e.t.next() != "AND" {
			return false, fmt.Errorf("expected AND in BETWEEN")
		}
		highTok := e.t.next()
		low, _ := resolveValues(e.values, lowTok)
		high, _ := resolveValues(e.values, highTok)
		if !hasAttr {
			return false, nil
		}
		return compareOrdered(av, low) >= 0 && compareOrdered(av, high) <= 0, nil
	}

	valTok := e.t.next()
	val, _ := resolveValues(e.values, valTok)

	switch op {
	case "=":
		if !hasAttr {
			return false, nil
		}
		return compareEqual(av, val), nil
	case "<>":
		if !hasAttr {
			return true, nil
		}
		return !compareEqual(av, val), nil
	case "<":
		if !hasAttr {
			return false, nil
		}
		return compareOrdered(av, val) < 0, nil
	case "<=":
		if !hasAttr {
			return false, nil
		}
		return compareOrdered(av, val) <= 0, nil
	case ">":
		if !hasAttr {
			return false, nil
		}
		return compareOrdered(av, val) > 0, nil
	case ">=":
		if !hasAttr {
			return false, nil
		}
		return compareOrdered(av, val) >= 0, nil
	}
	return false, fmt.Errorf("unsupported operator %q", op)
}

func compareEqual(a, b any) bool {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	ab, aok2 := a.(bool)
	bb, bok2 := b.(bool)
	if aok2 && bok2 {
		return ab == bb
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareOrdered(a, b any) int {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	return strings.Compare(as, bs)
}

// evalCondition builds cond and evaluates it against item (nil if absent).
func evalCondition(cond expression.ConditionBuilder, item *store.Record) (bool, error) {
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return false, err
	}
	values, err := valuesToMap(expr.Values())
	if err != nil {
		return false, err
	}
	ev := &boolEval{t: tokenize(*expr.Condition()), names: expr.Names(), values: values, item: flatten(item)}
	return ev.orExpr()
}

// evalKeyCondition builds kc and evaluates it against a flattened item.
func evalKeyCondition(kc expression.KeyConditionBuilder, flat map[string]any) (bool, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(kc).Build()
	if err != nil {
		return false, err
	}
	values, err := valuesToMap(expr.Values())
	if err != nil {
		return false, err
	}
	ev := &boolEval{t: tokenize(*expr.KeyCondition()), names: expr.Names(), values: values, item: flat}
	return ev.orExpr()
}

// ---- update expressions ----

// applyUpdate builds upd and applies its SET/ADD clauses to a copy of base.
func applyUpdate(upd expression.UpdateBuilder, base map[string]any) (map[string]any, error) {
	expr, err := expression.NewBuilder().WithUpdate(upd).Build()
	if err != nil {
		return nil, err
	}
	values, err := valuesToMap(expr.Values())
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}

	names := expr.Names()
	t := tokenize(*expr.Update())
	for t.pos < len(t.toks) {
		clause := t.next()
		switch clause {
		case "SET":
			for {
				path := resolvePath(t.next(), names)
				if t.next() != "=" {
					return nil, fmt.Errorf("expected = in SET clause")
				}
				val, err := evalSetValue(t, names, values, out, path)
				if err != nil {
					return nil, err
				}
				out[path] = val
				if t.peek() == "," {
					t.next()
					continue
				}
				break
			}
		case "ADD":
			for {
				path := resolvePath(t.next(), names)
				valTok := t.next()
				delta, _ := resolveValues(values, valTok)
				cur, _ := out[path]
				out[path] = addNumeric(cur, delta)
				if t.peek() == "," {
					t.next()
					continue
				}
				break
			}
		case "REMOVE":
			for {
				path := resolvePath(t.next(), names)
				delete(out, path)
				if t.peek() == "," {
					t.next()
					continue
				}
				break
			}
		default:
			return nil, fmt.Errorf("unsupported update clause %q", clause)
		}
	}
	return out, nil
}

func evalSetValue(t *tokens, names map[string]string, values map[string]any, out map[string]any, targetPath string) (any, error) {
	if t.peek() == "if_not_exists" {
		t.next()
		t.next() // (
		path := resolvePath(t.next(), names)
		t.next() // ,
		valTok := t.next()
		t.next() // )
		if existing, ok := out[path]; ok {
			return existing, nil
		}
		v, _ := resolveValues(values, valTok)
		return v, nil
	}
	valTok := t.next()
	v, _ := resolveValues(values, valTok)
	return v, nil
}

func addNumeric(cur, delta any) any {
	cf, cok := toFloat64(cur)
	df, dok := toFloat64(delta)
	if !dok {
		return cur
	}
	if !cok {
		cf = 0
	}
	return int64(cf + df)
}

func valuesToMap(values map[string]types.AttributeValue) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, av := range values {
		var v any
		if err := attributevalue.Unmarshal(av, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
