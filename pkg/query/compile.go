package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/vmops/snapfleet/internal/filter"
)

type predicate func(filter.SnapshotView) bool

// Query is a compiled expression, ready to be evaluated against any
// number of snapshot records.
type Query struct {
	expr  Expression
	match predicate
}

// Compile parses and binds a query. Unknown fields and operator/value
// combinations the field does not support are rejected here, never at
// match time.
func Compile(src []byte) (*Query, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}
	match, err := compile(expr)
	if err != nil {
		return nil, err
	}
	return &Query{expr: expr, match: match}, nil
}

// Match reports whether the record satisfies the query.
func (q *Query) Match(view filter.SnapshotView) bool {
	return q.match(view)
}

func (q *Query) String() string {
	return q.expr.String()
}

type fieldKind int

const (
	stringField fieldKind = iota
	numberField
	boolField
	dateField
)

// fieldDef binds a query identifier to one snapshot record attribute.
// Exactly one accessor is set, matching the kind.
type fieldDef struct {
	kind fieldKind
	str  func(filter.SnapshotView) string
	num  func(filter.SnapshotView) float64
	flag func(filter.SnapshotView) bool
	date func(filter.SnapshotView) time.Time
}

func strField(get func(filter.SnapshotView) string) fieldDef {
	return fieldDef{kind: stringField, str: get}
}

func numField(get func(filter.SnapshotView) float64) fieldDef {
	return fieldDef{kind: numberField, num: get}
}

func boolFieldDef(get func(filter.SnapshotView) bool) fieldDef {
	return fieldDef{kind: boolField, flag: get}
}

var fields = map[string]fieldDef{
	"vm":      strField(func(v filter.SnapshotView) string { return v.VMName }),
	"vm_name": strField(func(v filter.SnapshotView) string { return v.VMName }),
	"vm_id":   strField(func(v filter.SnapshotView) string { return v.VMID }),

	"id":          strField(func(v filter.SnapshotView) string { return v.Snapshot.ID }),
	"name":        strField(func(v filter.SnapshotView) string { return v.Snapshot.Name }),
	"snapshot":    strField(func(v filter.SnapshotView) string { return v.Snapshot.Name }),
	"description": strField(func(v filter.SnapshotView) string { return v.Snapshot.Description }),
	"hostname":    strField(func(v filter.SnapshotView) string { return v.Hostname }),
	"creator":     strField(func(v filter.SnapshotView) string { return v.Snapshot.CreatedBy }),
	"created_by":  strField(func(v filter.SnapshotView) string { return v.Snapshot.CreatedBy }),
	"kind":        strField(func(v filter.SnapshotView) string { return string(v.Kind) }),

	"chain_protected": boolFieldDef(func(v filter.SnapshotView) bool { return v.ChainProtected }),
	"memory":          boolFieldDef(func(v filter.SnapshotView) bool { return v.Snapshot.Memory }),

	"age":          numField(func(v filter.SnapshotView) float64 { return float64(v.AgeBusinessDays) }),
	"age_calendar": numField(func(v filter.SnapshotView) float64 { return float64(v.AgeCalendarDays) }),

	"created": {kind: dateField, date: func(v filter.SnapshotView) time.Time { return v.Snapshot.CreatedAt }},
}

func compile(expr Expression) (predicate, error) {
	b, ok := expr.(*binaryExpression)
	if !ok {
		return nil, fmt.Errorf("expected a comparison, got %s", expr)
	}

	switch b.Op {
	case and, or:
		left, err := compile(b.Left)
		if err != nil {
			return nil, err
		}
		right, err := compile(b.Right)
		if err != nil {
			return nil, err
		}
		if b.Op == and {
			return func(v filter.SnapshotView) bool { return left(v) && right(v) }, nil
		}
		return func(v filter.SnapshotView) bool { return left(v) || right(v) }, nil
	default:
		return compileComparison(b)
	}
}

func compileComparison(b *binaryExpression) (predicate, error) {
	name, ok := b.Left.(*varExpression)
	if !ok {
		return nil, fmt.Errorf("expected a field on the left of %s", b.Op)
	}
	def, ok := fields[strings.ToLower(name.Name)]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", name.Name)
	}

	switch def.kind {
	case stringField:
		return compileString(name.Name, def, b.Op, b.Right)
	case numberField:
		return compileNumber(name.Name, def, b.Op, b.Right)
	case boolField:
		return compileBool(name.Name, def, b.Op, b.Right)
	case dateField:
		return compileDate(name.Name, def, b.Op, b.Right)
	}
	return nil, fmt.Errorf("unsupported field %q", name.Name)
}

func compileString(name string, def fieldDef, op Token, rhs Expression) (predicate, error) {
	switch lit := rhs.(type) {
	case *stringExpression:
		switch op {
		case equal:
			return func(v filter.SnapshotView) bool { return strings.EqualFold(def.str(v), lit.Value) }, nil
		case notEqual:
			return func(v filter.SnapshotView) bool { return !strings.EqualFold(def.str(v), lit.Value) }, nil
		default:
			return nil, fmt.Errorf("field %q does not support %s", name, op)
		}
	case *regexExpression:
		switch op {
		case like:
			return func(v filter.SnapshotView) bool { return lit.compiled.MatchString(def.str(v)) }, nil
		case notLike:
			return func(v filter.SnapshotView) bool { return !lit.compiled.MatchString(def.str(v)) }, nil
		default:
			return nil, fmt.Errorf("regex values require ~ or !~, got %s", op)
		}
	default:
		return nil, fmt.Errorf("field %q expects a string or regex value", name)
	}
}

func compileNumber(name string, def fieldDef, op Token, rhs Expression) (predicate, error) {
	lit, ok := rhs.(*quantityExpression)
	if !ok {
		return nil, fmt.Errorf("field %q expects a numeric value", name)
	}
	if op == like || op == notLike {
		return nil, fmt.Errorf("field %q does not support %s", name, op)
	}
	want := lit.Days()
	return func(v filter.SnapshotView) bool { return compareFloat(def.num(v), want, op) }, nil
}

func compileBool(name string, def fieldDef, op Token, rhs Expression) (predicate, error) {
	lit, ok := rhs.(*booleanExpression)
	if !ok {
		return nil, fmt.Errorf("field %q expects a boolean value", name)
	}
	switch op {
	case equal:
		return func(v filter.SnapshotView) bool { return def.flag(v) == lit.Value }, nil
	case notEqual:
		return func(v filter.SnapshotView) bool { return def.flag(v) != lit.Value }, nil
	default:
		return nil, fmt.Errorf("field %q does not support %s", name, op)
	}
}

// compileDate compares against a 'YYYY-MM-DD' literal. Equality means
// the timestamp falls anywhere within that calendar day (UTC).
func compileDate(name string, def fieldDef, op Token, rhs Expression) (predicate, error) {
	lit, ok := rhs.(*stringExpression)
	if !ok {
		return nil, fmt.Errorf("field %q expects a 'YYYY-MM-DD' value", name)
	}
	day, err := time.Parse("2006-01-02", lit.Value)
	if err != nil {
		return nil, fmt.Errorf("field %q expects a 'YYYY-MM-DD' value: %w", name, err)
	}
	next := day.AddDate(0, 0, 1)

	switch op {
	case equal:
		return func(v filter.SnapshotView) bool {
			t := def.date(v)
			return !t.Before(day) && t.Before(next)
		}, nil
	case notEqual:
		return func(v filter.SnapshotView) bool {
			t := def.date(v)
			return t.Before(day) || !t.Before(next)
		}, nil
	case less:
		return func(v filter.SnapshotView) bool { return def.date(v).Before(day) }, nil
	case lte:
		return func(v filter.SnapshotView) bool { return def.date(v).Before(next) }, nil
	case greater:
		return func(v filter.SnapshotView) bool { return !def.date(v).Before(next) }, nil
	case gte:
		return func(v filter.SnapshotView) bool { return !def.date(v).Before(day) }, nil
	default:
		return nil, fmt.Errorf("field %q does not support %s", name, op)
	}
}

func compareFloat(got, want float64, op Token) bool {
	switch op {
	case equal:
		return got == want
	case notEqual:
		return got != want
	case less:
		return got < want
	case lte:
		return got <= want
	case greater:
		return got > want
	case gte:
		return got >= want
	default:
		return false
	}
}
