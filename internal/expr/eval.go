package expr

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Env binds the names an expression may reference. Nothing outside the Env
// is reachable.
type Env map[string]Value

var (
	// ErrUnknownIdentifier is returned for names missing from the Env.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrUnknownField is returned for member access to a missing field.
	ErrUnknownField = errors.New("unknown field")

	// ErrType is returned when an operator is applied to unsupported operands.
	ErrType = errors.New("type error")
)

// Program is a parsed expression ready for repeated evaluation.
type Program struct {
	src  string
	root Node
}

// Compile parses src into a Program.
func Compile(src string) (*Program, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Program{src: src, root: root}, nil
}

// Source returns the expression text.
func (p *Program) Source() string { return p.src }

// Root returns the expression tree.
func (p *Program) Root() Node { return p.root }

// Eval evaluates the program against env. Host function panics are
// converted to errors.
func (p *Program) Eval(env Env) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = Null(), fmt.Errorf("evaluation panic: %v", r)
		}
	}()
	return eval(p.root, env)
}

// EvalBool evaluates the program and applies truthiness.
func (p *Program) EvalBool(env Env) (bool, error) {
	v, err := p.Eval(env)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

func eval(n Node, env Env) (Value, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil

	case *Ident:
		v, ok := env[n.Name]
		if !ok {
			return Null(), fmt.Errorf("%w: %s", ErrUnknownIdentifier, n.Name)
		}
		return v, nil

	case *ListLit:
		items := make([]Value, len(n.Elems))
		for i, e := range n.Elems {
			v, err := eval(e, env)
			if err != nil {
				return Null(), err
			}
			items[i] = v
		}
		return List(items...), nil

	case *Unary:
		x, err := eval(n.X, env)
		if err != nil {
			return Null(), err
		}
		return evalUnary(n.Op, x)

	case *Logical:
		x, err := eval(n.X, env)
		if err != nil {
			return Null(), err
		}
		if n.Op == "and" && !x.Truthy() {
			return x, nil
		}
		if n.Op == "or" && x.Truthy() {
			return x, nil
		}
		return eval(n.Y, env)

	case *Binary:
		x, err := eval(n.X, env)
		if err != nil {
			return Null(), err
		}
		y, err := eval(n.Y, env)
		if err != nil {
			return Null(), err
		}
		return evalBinary(n.Op, x, y)

	case *Compare:
		left, err := eval(n.Operands[0], env)
		if err != nil {
			return Null(), err
		}
		for i, op := range n.Ops {
			right, err := eval(n.Operands[i+1], env)
			if err != nil {
				return Null(), err
			}
			ok, err := compare(op, left, right)
			if err != nil {
				return Null(), err
			}
			if !ok {
				return Bool(false), nil
			}
			left = right
		}
		return Bool(true), nil

	case *Member:
		x, err := eval(n.X, env)
		if err != nil {
			return Null(), err
		}
		return member(x, n.Name)

	case *Index:
		x, err := eval(n.X, env)
		if err != nil {
			return Null(), err
		}
		key, err := eval(n.Key, env)
		if err != nil {
			return Null(), err
		}
		return index(x, key)

	case *Call:
		return evalCall(n, env)
	}

	return Null(), fmt.Errorf("unsupported expression node %T", n)
}

func evalUnary(op string, x Value) (Value, error) {
	switch op {
	case "not":
		return Bool(!x.Truthy()), nil
	case "-", "+":
		n, ok := x.AsNumber()
		if !ok {
			return Null(), fmt.Errorf("%w: bad operand for unary %s: %s", ErrType, op, x.describe())
		}
		if op == "-" {
			n = -n
		}
		return Number(n), nil
	}
	return Null(), fmt.Errorf("unknown unary operator %q", op)
}

func evalBinary(op string, x, y Value) (Value, error) {
	if op == "+" {
		if xs, ok := x.AsString(); ok {
			if ys, ok := y.AsString(); ok {
				return String(xs + ys), nil
			}
		}
		if x.kind == KindList && y.kind == KindList {
			items := make([]Value, 0, len(x.list)+len(y.list))
			items = append(items, x.list...)
			return List(append(items, y.list...)...), nil
		}
	}

	a, aok := x.AsNumber()
	b, bok := y.AsNumber()
	if !aok || !bok {
		return Null(), fmt.Errorf("%w: unsupported operands for %s: %s and %s", ErrType, op, x.describe(), y.describe())
	}

	switch op {
	case "+":
		return Number(a + b), nil
	case "-":
		return Number(a - b), nil
	case "*":
		return Number(a * b), nil
	case "/":
		if b == 0 {
			return Null(), errors.New("division by zero")
		}
		return Number(a / b), nil
	case "%":
		if b == 0 {
			return Null(), errors.New("modulo by zero")
		}
		// floored modulo: the result takes the sign of the divisor
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return Number(m), nil
	case "**":
		if a == 0 && b < 0 {
			return Null(), errors.New("zero cannot be raised to a negative power")
		}
		r := math.Pow(a, b)
		if math.IsNaN(r) && !math.IsNaN(a) && !math.IsNaN(b) {
			return Null(), fmt.Errorf("%w: %v ** %v is not a real number", ErrType, a, b)
		}
		return Number(r), nil
	}
	return Null(), fmt.Errorf("unknown operator %q", op)
}

func compare(op string, x, y Value) (bool, error) {
	switch op {
	case "==":
		return x.Equal(y), nil
	case "!=":
		return !x.Equal(y), nil
	case "is", "is not":
		same := x.kind == y.kind && x.Equal(y)
		if x.kind == KindNull || y.kind == KindNull {
			same = x.kind == y.kind
		}
		return same == (op == "is"), nil
	case "in", "not in":
		found, err := contains(y, x)
		if err != nil {
			return false, err
		}
		return found == (op == "in"), nil
	}

	if a, ok := x.AsNumber(); ok {
		if b, ok := y.AsNumber(); ok {
			return orderResult(op, cmpFloat(a, b), math.IsNaN(a) || math.IsNaN(b)), nil
		}
	}
	if a, ok := x.AsString(); ok {
		if b, ok := y.AsString(); ok {
			return orderResult(op, strings.Compare(a, b), false), nil
		}
	}
	return false, fmt.Errorf("%w: %s not supported between %s and %s", ErrType, op, x.describe(), y.describe())
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func orderResult(op string, c int, nan bool) bool {
	if nan {
		return false
	}
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func contains(container, needle Value) (bool, error) {
	switch container.kind {
	case KindList:
		for _, item := range container.list {
			if item.Equal(needle) {
				return true, nil
			}
		}
		return false, nil
	case KindString:
		s, ok := needle.AsString()
		if !ok {
			return false, fmt.Errorf("%w: 'in <string>' requires a string, not %s", ErrType, needle.describe())
		}
		return strings.Contains(container.s, s), nil
	case KindMap, KindRecord:
		key, ok := needle.AsString()
		if !ok {
			return false, nil
		}
		_, found := container.fields[key]
		return found, nil
	}
	return false, fmt.Errorf("%w: %s is not a container", ErrType, container.describe())
}

func member(x Value, name string) (Value, error) {
	if x.kind != KindMap && x.kind != KindRecord {
		return Null(), fmt.Errorf("%w: %s has no field %q", ErrType, x.describe(), name)
	}
	v, ok := x.fields[name]
	if !ok {
		return Null(), fmt.Errorf("%w: %s.%s", ErrUnknownField, x.describe(), name)
	}
	return v, nil
}

func index(x, key Value) (Value, error) {
	switch x.kind {
	case KindList:
		f, ok := key.AsNumber()
		if !ok || f != math.Trunc(f) {
			return Null(), fmt.Errorf("%w: list indices must be integers, not %s", ErrType, key.describe())
		}
		i := int(f)
		if i < 0 {
			i += len(x.list)
		}
		if i < 0 || i >= len(x.list) {
			return Null(), errors.New("list index out of range")
		}
		return x.list[i], nil
	case KindMap, KindRecord:
		k, ok := key.AsString()
		if !ok {
			return Null(), fmt.Errorf("%w: keys must be strings, not %s", ErrType, key.describe())
		}
		v, found := x.fields[k]
		if !found {
			return Null(), fmt.Errorf("%w: %s[%q]", ErrUnknownField, x.describe(), k)
		}
		return v, nil
	}
	return Null(), fmt.Errorf("%w: %s is not subscriptable", ErrType, x.describe())
}

func evalCall(n *Call, env Env) (Value, error) {
	// m.get(key[, default]) is the one method, available on maps and records.
	if m, ok := n.Fn.(*Member); ok && m.Name == "get" {
		recv, err := eval(m.X, env)
		if err != nil {
			return Null(), err
		}
		if recv.kind == KindMap || recv.kind == KindRecord {
			args, err := evalArgs(n.Args, env)
			if err != nil {
				return Null(), err
			}
			return methodGet(recv, args)
		}
	}

	fn, err := eval(n.Fn, env)
	if err != nil {
		return Null(), err
	}
	if fn.kind != KindFunc {
		return Null(), fmt.Errorf("%w: %s is not callable", ErrType, fn.describe())
	}
	args, err := evalArgs(n.Args, env)
	if err != nil {
		return Null(), err
	}
	return fn.fn(args)
}

func evalArgs(nodes []Node, env Env) ([]Value, error) {
	args := make([]Value, len(nodes))
	for i, a := range nodes {
		v, err := eval(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func methodGet(recv Value, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return Null(), fmt.Errorf("%w: get expects 1 or 2 arguments, got %d", ErrType, len(args))
	}
	key, ok := args[0].AsString()
	if !ok {
		return Null(), fmt.Errorf("%w: get key must be a string, not %s", ErrType, args[0].describe())
	}
	if v, found := recv.fields[key]; found {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return Null(), nil
}
