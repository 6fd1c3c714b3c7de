package machine

import (
	"fmt"

	"github.com/mna/cedar/lang/value"
)

// RuntimeError is the error type raised from inside the VM loop, carrying
// the source line looked up through the current chunk's line map (spec
// §7, tier 3).
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] Runtime error: %s", e.Line, e.Message)
}

// equal implements `==`/`!=` per spec §4.3.4: numbers compare by IEEE ==,
// strings lexicographically, booleans by value, Null equals Null, and any
// other cross-variant pair is simply unequal (never an error — only
// ordering is restricted to same-variant operands).
func equal(a, b value.Value) bool {
	eq, sameVariant := value.Equal(a, b)
	return eq && sameVariant
}

// order implements `<`, `<=`, `>`, `>=` per spec §4.3.4: Null orders equal
// to Null on <= and >=, false otherwise; any other mixed-variant
// comparison is a runtime error ("mixed-type ordering is an error", spec
// §9).
func order(line int, a, b value.Value) (lt, eq bool, err error) {
	switch x := a.(type) {
	case value.Number:
		y, ok := b.(value.Number)
		if !ok {
			return false, false, typeErrorOrder(line, a, b)
		}
		return x < y, x == y, nil
	case value.String:
		y, ok := b.(value.String)
		if !ok {
			return false, false, typeErrorOrder(line, a, b)
		}
		return x < y, x == y, nil
	case value.Bool:
		y, ok := b.(value.Bool)
		if !ok {
			return false, false, typeErrorOrder(line, a, b)
		}
		return !bool(x) && bool(y), x == y, nil
	case value.Null:
		if _, ok := b.(value.Null); ok {
			return false, true, nil
		}
		return false, false, typeErrorOrder(line, a, b)
	}
	return false, false, typeErrorOrder(line, a, b)
}

func typeErrorOrder(line int, a, b value.Value) error {
	return &RuntimeError{Line: line, Message: fmt.Sprintf("cannot compare %s and %s", a.Type(), b.Type())}
}
