package expr

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv() Env {
	item := Record("item", nil, map[string]Value{
		"brand":  String("Acme"),
		"price":  Number(1000),
		"rating": Number(4.8),
		"tags":   Strings([]string{"coding", "ssd"}),
	})
	prefs := Record("prefs", nil, map[string]Value{
		"brand_weights": NumberMap(map[string]float64{"Acme": 1.8}),
		"rating_weight": Number(1),
	})
	user := Record("user", nil, map[string]Value{
		"budget": Null(),
	})
	double := Function("Double", func(args []Value) (Value, error) {
		if err := CheckArity("Double", args, 1, 1); err != nil {
			return Null(), err
		}
		n, err := NumberArg("Double", args, 0)
		if err != nil {
			return Null(), err
		}
		return Number(n * 2), nil
	})
	return Merge(Standard(), Env{"p": item, "prefs": prefs, "user": user, "Double": double})
}

func evalString(t *testing.T, src string) (Value, error) {
	t.Helper()
	prog, err := Compile(src)
	if err != nil {
		return Null(), err
	}
	return prog.Eval(testEnv())
}

func TestEvalTruthiness(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"1 + 2 * 3 == 7", true},
		{"(1 + 2) * 3 == 9", true},
		{"2 ** 3 ** 2 == 512", true},
		{"-2 ** 2 == -4", true},
		{"7 % 3 == 1 and -7 % 3 == 2", true},
		{"10 / 4 == 2.5", true},
		{"p.price >= 1000 and p.rating > 4.5", true},
		{"p.price > 1000 or p.rating < 4", false},
		{"not p.price > 1000", true},
		{"!(p.price > 1000) && p.brand == 'Acme'", true},
		{"0 < p.rating <= 5", true},
		{"0 < p.rating < 4", false},
		{"'coding' in p.tags", true},
		{"'gaming' not in p.tags", true},
		{"'cme' in p.brand", true},
		{"'brand' in p", true},
		{"user.budget is None", true},
		{"user.budget is not None", false},
		{"prefs.brand_weights.get(p.brand, 1.0) > 1.5", true},
		{"prefs.brand_weights.get('Other', 1.0) == 1.0", true},
		{"prefs.brand_weights['Acme'] == 1.8", true},
		{"p.tags[0] == 'coding' and p.tags[-1] == 'ssd'", true},
		{"Double(p.rating) > 9", true},
		{"math.sqrt(16) == 4 and math.floor(2.7) == 2", true},
		{"2.99 < math.log10(1000) < 3.01", true},
		{"abs(-3) == 3 and max(1, 5, 2) == 5 and min([4, 2]) == 2", true},
		{"round(2.5) == 2 and round(3.14159, 2) == 3.14", true},
		{"len(p.tags) == 2", true},
		{"True == 1", true},
		{"None == 0", false},
		{"'a' + 'b' == 'ab'", true},
		{"[1, 2] + [3] == [1, 2, 3]", true},
		{"0", false},
		{"''", false},
		{"[]", false},
		{"p.brand", true},
	}

	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			v, err := evalString(t, tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.Truthy())
		})
	}
}

func TestLogicalShortCircuit(t *testing.T) {
	// the right operand would fail with an unknown identifier
	v, err := evalString(t, "False and nosuch")
	require.NoError(t, err)
	assert.False(t, v.Truthy())

	v, err = evalString(t, "True or nosuch")
	require.NoError(t, err)
	assert.True(t, v.Truthy())

	// a failing comparison chain stops at the first false link
	v, err = evalString(t, "1 > 2 > nosuch")
	require.NoError(t, err)
	assert.False(t, v.Truthy())
}

func TestClosedEvaluation(t *testing.T) {
	cases := []struct {
		src  string
		want error
	}{
		{"os", ErrUnknownIdentifier},
		{"__import__('os')", ErrUnknownIdentifier},
		{"open('/etc/passwd')", ErrUnknownIdentifier},
		{"p.__class__", ErrUnknownField},
		{"p.native", ErrUnknownField},
		{"Double.__globals__", ErrType},
		{"math.system('ls')", ErrUnknownField},
		{"p.price.real", ErrType},
		{"user.budget < 100", ErrType},
		{"'a' < 1", ErrType},
		{"p()", ErrType},
	}

	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			_, err := evalString(t, tc.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	for _, src := range []string{
		"1 / 0",
		"5 % 0",
		"math.sqrt(-1)",
		"math.log(0)",
		"(-8) ** 0.5",
		"p.tags[5]",
		"p.tags['x']",
		"Double(1, 2)",
		"min([])",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := evalString(t, src)
			assert.Error(t, err)
		})
	}
}

func TestSyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"1 +",
		"(1 + 2",
		"Rating(p) >=",
		"p.",
		"a = 1",
		"x; y",
		"'unterminated",
		"1e",
		"and 1",
		"f(1,,2)",
		"lambda: 1",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			require.Error(t, err)
			var se *SyntaxError
			assert.True(t, errors.As(err, &se), "expected SyntaxError, got %T", err)
		})
	}
}

func TestLimits(t *testing.T) {
	_, err := Compile(strings.Repeat("1+", MaxSourceLen) + "1")
	assert.Error(t, err)

	_, err = Compile(strings.Repeat("(", MaxDepth+1) + "1" + strings.Repeat(")", MaxDepth+1))
	assert.Error(t, err)

	// long flat chains are not nesting
	_, err = Compile(strings.Repeat("1 + ", 200) + "1")
	assert.NoError(t, err)
}

func TestHostPanicBecomesError(t *testing.T) {
	prog, err := Compile("Boom()")
	require.NoError(t, err)

	_, err = prog.Eval(Env{"Boom": Function("Boom", func([]Value) (Value, error) { panic("kaboom") })})
	assert.ErrorContains(t, err, "kaboom")
}

func TestIdentifiers(t *testing.T) {
	root, err := Parse("Rating(p) >= 4 and user.budget is not None and math.sqrt(x) > y.z")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rating", "p", "user", "math", "x", "y"}, Identifiers(root))
}

func TestEvalBool(t *testing.T) {
	prog, err := Compile("p.rating >= 4.5")
	require.NoError(t, err)

	ok, err := prog.EvalBool(testEnv())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "p.rating >= 4.5", prog.Source())
}
