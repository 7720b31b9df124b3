package expr

import (
	"fmt"
	"math"
)

// Standard returns the math namespace and the builtin functions
// (abs, min, max, round, len). Callers add their own bindings on top.
func Standard() Env {
	return Env{
		"math":  mathNamespace(),
		"abs":   Function("abs", builtinAbs),
		"min":   Function("min", func(args []Value) (Value, error) { return extremum("min", args, -1) }),
		"max":   Function("max", func(args []Value) (Value, error) { return extremum("max", args, 1) }),
		"round": Function("round", builtinRound),
		"len":   Function("len", builtinLen),
	}
}

// Merge returns a new Env holding the bindings of all envs; later envs win.
func Merge(envs ...Env) Env {
	size := 0
	for _, e := range envs {
		size += len(e)
	}
	out := make(Env, size)
	for _, e := range envs {
		for k, v := range e {
			out[k] = v
		}
	}
	return out
}

// CheckArity returns an error unless len(args) is within [lo, hi].
func CheckArity(name string, args []Value, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%w: %s() takes %d argument(s), got %d", ErrType, name, lo, len(args))
		}
		return fmt.Errorf("%w: %s() takes %d to %d arguments, got %d", ErrType, name, lo, hi, len(args))
	}
	return nil
}

// NumberArg returns args[i] as a number.
func NumberArg(name string, args []Value, i int) (float64, error) {
	n, ok := args[i].AsNumber()
	if !ok {
		return 0, fmt.Errorf("%w: %s() argument %d must be a number, not %s", ErrType, name, i+1, args[i].describe())
	}
	return n, nil
}

// StringArg returns args[i] as a string.
func StringArg(name string, args []Value, i int) (string, error) {
	s, ok := args[i].AsString()
	if !ok {
		return "", fmt.Errorf("%w: %s() argument %d must be a string, not %s", ErrType, name, i+1, args[i].describe())
	}
	return s, nil
}

func unaryMath(name string, f func(float64) float64, domain func(float64) bool) Value {
	return Function("math."+name, func(args []Value) (Value, error) {
		if err := CheckArity(name, args, 1, 1); err != nil {
			return Null(), err
		}
		x, err := NumberArg(name, args, 0)
		if err != nil {
			return Null(), err
		}
		if domain != nil && !domain(x) {
			return Null(), fmt.Errorf("math domain error: %s(%v)", name, x)
		}
		return Number(f(x)), nil
	})
}

func positive(x float64) bool    { return x > 0 }
func nonNegative(x float64) bool { return x >= 0 }

func mathNamespace() Value {
	return Record("module math", nil, map[string]Value{
		"sqrt":  unaryMath("sqrt", math.Sqrt, nonNegative),
		"log10": unaryMath("log10", math.Log10, positive),
		"log2":  unaryMath("log2", math.Log2, positive),
		"exp":   unaryMath("exp", math.Exp, nil),
		"floor": unaryMath("floor", math.Floor, nil),
		"ceil":  unaryMath("ceil", math.Ceil, nil),
		"fabs":  unaryMath("fabs", math.Abs, nil),
		"log": Function("math.log", func(args []Value) (Value, error) {
			if err := CheckArity("log", args, 1, 2); err != nil {
				return Null(), err
			}
			x, err := NumberArg("log", args, 0)
			if err != nil {
				return Null(), err
			}
			if x <= 0 {
				return Null(), fmt.Errorf("math domain error: log(%v)", x)
			}
			if len(args) == 1 {
				return Number(math.Log(x)), nil
			}
			base, err := NumberArg("log", args, 1)
			if err != nil {
				return Null(), err
			}
			if base <= 0 || base == 1 {
				return Null(), fmt.Errorf("math domain error: log base %v", base)
			}
			return Number(math.Log(x) / math.Log(base)), nil
		}),
		"pow": Function("math.pow", func(args []Value) (Value, error) {
			if err := CheckArity("pow", args, 2, 2); err != nil {
				return Null(), err
			}
			return evalBinary("**", args[0], args[1])
		}),
		"pi":  Number(math.Pi),
		"e":   Number(math.E),
		"inf": Number(math.Inf(1)),
	})
}

func builtinAbs(args []Value) (Value, error) {
	if err := CheckArity("abs", args, 1, 1); err != nil {
		return Null(), err
	}
	x, err := NumberArg("abs", args, 0)
	if err != nil {
		return Null(), err
	}
	return Number(math.Abs(x)), nil
}

// extremum implements min/max over either one list or several numbers.
func extremum(name string, args []Value, sign float64) (Value, error) {
	items := args
	if len(args) == 1 && args[0].kind == KindList {
		items = args[0].list
	}
	if len(items) == 0 {
		return Null(), fmt.Errorf("%w: %s() arg is an empty sequence", ErrType, name)
	}

	best, err := NumberArg(name, items, 0)
	if err != nil {
		return Null(), err
	}
	for i := 1; i < len(items); i++ {
		n, err := NumberArg(name, items, i)
		if err != nil {
			return Null(), err
		}
		if (n-best)*sign > 0 {
			best = n
		}
	}
	return Number(best), nil
}

func builtinRound(args []Value) (Value, error) {
	if err := CheckArity("round", args, 1, 2); err != nil {
		return Null(), err
	}
	x, err := NumberArg("round", args, 0)
	if err != nil {
		return Null(), err
	}
	digits := 0.0
	if len(args) == 2 {
		if digits, err = NumberArg("round", args, 1); err != nil {
			return Null(), err
		}
	}
	scale := math.Pow(10, math.Trunc(digits))
	return Number(math.RoundToEven(x*scale) / scale), nil
}

func builtinLen(args []Value) (Value, error) {
	if err := CheckArity("len", args, 1, 1); err != nil {
		return Null(), err
	}
	switch v := args[0]; v.kind {
	case KindString:
		return Int(len([]rune(v.s))), nil
	case KindList:
		return Int(len(v.list)), nil
	case KindMap, KindRecord:
		return Int(len(v.fields)), nil
	default:
		return Null(), fmt.Errorf("%w: object of type %s has no len()", ErrType, v.describe())
	}
}
