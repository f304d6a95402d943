package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type QuantityUnit int

func (q QuantityUnit) String() string {
	switch q {
	case DayQuantityUnit:
		return "d"
	case WeekQuantityUnit:
		return "w"
	case NoQuantityUnit:
		return "noUnit"
	default:
		return "unknown"
	}
}

const (
	NoQuantityUnit QuantityUnit = iota
	DayQuantityUnit // this is the baseline. Ages are measured in days
	WeekQuantityUnit
)

// Expression is the abstract syntax tree for any expression.
type Expression interface {
	String() string
}

// binaryExpression is an expression like "a = b" or "a and b".
type binaryExpression struct {
	Left  Expression
	Op    Token
	Right Expression
}

func (e *binaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Op.String(), e.Right.String())
}

// stringExpression is a literal string like "foo".
type stringExpression struct {
	Value string
}

func (e *stringExpression) String() string {
	return strconv.Quote(e.Value)
}

// varExpression is a field reference like "vm_name" or "age".
type varExpression struct {
	Name string
}

func (v *varExpression) String() string {
	return v.Name
}

// booleanExpression is a boolean literal (true or false).
type booleanExpression struct {
	Value bool
}

func (b *booleanExpression) String() string {
	return strconv.FormatBool(b.Value)
}

// regexExpression is a regex literal like /pattern/.
type regexExpression struct {
	Pattern  string
	compiled *regexp.Regexp
}

func newRegexExpression(pos int, pattern string) *regexExpression {
	re, err := regexp.Compile(pattern)
	if err != nil {
		panic(ParseError{pos, fmt.Sprintf("invalid regex: %s", err)})
	}
	return &regexExpression{Pattern: pattern, compiled: re}
}

func (r *regexExpression) String() string {
	return fmt.Sprintf("/%s/", r.Pattern)
}

type quantityExpression struct {
	Value float64
	Unit  QuantityUnit
}

func newQuantityExpression(val string) *quantityExpression {
	qe := &quantityExpression{Unit: NoQuantityUnit}

	numStr := val
	if len(val) >= 2 {
		switch strings.ToLower(val[len(val)-1:]) {
		case "d":
			qe.Unit = DayQuantityUnit
			numStr = val[:len(val)-1]
		case "w":
			qe.Unit = WeekQuantityUnit
			numStr = val[:len(val)-1]
		default:
			qe.Unit = NoQuantityUnit
		}
	}

	qe.Value, _ = strconv.ParseFloat(numStr, 64)
	return qe
}

func (q *quantityExpression) String() string {
	if q.Unit == NoQuantityUnit {
		return fmt.Sprintf("%.2f", q.Value)
	}
	return fmt.Sprintf("%.2f%s", q.Value, q.Unit)
}

// Days converts the quantity to the baseline unit.
func (q *quantityExpression) Days() float64 {
	if q.Unit == WeekQuantityUnit {
		return q.Value * 7
	}
	return q.Value
}
