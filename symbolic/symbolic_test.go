package symbolic_test

import (
	"errors"
	"math"
	"testing"

	"github.com/njchilds90/gotaylor/symbolic"
)

// ============================================================
// Num tests
// ============================================================

func TestNum_Integer(t *testing.T) {
	n := symbolic.N(42)
	if n.String() != "42" {
		t.Errorf("want 42, got %s", n.String())
	}
}

func TestNum_Rational(t *testing.T) {
	n := symbolic.F(1, 3)
	if n.String() != "1/3" {
		t.Errorf("want 1/3, got %s", n.String())
	}
}

func TestNum_LaTeX_Rational(t *testing.T) {
	n := symbolic.F(2, 5)
	if n.LaTeX() != `\frac{2}{5}` {
		t.Errorf("want \\frac{2}{5}, got %s", n.LaTeX())
	}
}

func TestNum_ExactFromDecimal(t *testing.T) {
	n := symbolic.NExact(0.1)
	if n.String() != "1/10" || n.IsApprox() {
		t.Errorf("want exact 1/10, got %s (approx=%v)", n.String(), n.IsApprox())
	}
}

func TestNum_ApproxPrintsDecimal(t *testing.T) {
	n := symbolic.NFloat(0.25)
	if n.String() != "0.25" || !n.IsApprox() {
		t.Errorf("want approximate 0.25, got %s", n.String())
	}
}

func TestNum_NonFiniteFloat(t *testing.T) {
	if symbolic.NFloat(math.Inf(1)) != nil || symbolic.NFloat(math.NaN()) != nil {
		t.Error("non-finite floats should not produce a number")
	}
}

func TestFactorial(t *testing.T) {
	cases := map[int]string{0: "1", 1: "1", 5: "120", 20: "2432902008176640000"}
	for n, want := range cases {
		if got := symbolic.Factorial(n).String(); got != want {
			t.Errorf("%d!: want %s, got %s", n, want, got)
		}
	}
}

// ============================================================
// Arithmetic simplification
// ============================================================

func TestAdd_LikeTerms(t *testing.T) {
	x := symbolic.S("x")
	result := symbolic.AddOf(x, x)
	if result.String() != "2*x" {
		t.Errorf("want 2*x, got %s", result.String())
	}
}

func TestAdd_CollapseToZero(t *testing.T) {
	x := symbolic.S("x")
	result := symbolic.AddOf(x, symbolic.MulOf(symbolic.N(-1), x))
	if result.String() != "0" {
		t.Errorf("want 0, got %s", result.String())
	}
}

func TestAdd_AscendingDegree(t *testing.T) {
	e := symbolic.MustParse("x^3/6 + 1 + x")
	if e.String() != "1 + x + x^3/6" {
		t.Errorf("want 1 + x + x^3/6, got %s", e.String())
	}
}

func TestMul_ZeroCollapse(t *testing.T) {
	result := symbolic.MulOf(symbolic.N(0), symbolic.S("x"))
	if result.String() != "0" {
		t.Errorf("want 0, got %s", result.String())
	}
}

func TestMul_ZeroKeepsValuelessFactor(t *testing.T) {
	inv := symbolic.PowOf(symbolic.N(0), symbolic.N(-1))
	result := symbolic.MulOf(symbolic.N(0), inv)
	if _, isNum := result.(*symbolic.Num); isNum {
		t.Fatalf("0*(1/0) must not fold to a number, got %s", result.String())
	}
	if _, ok := result.Eval(); ok {
		t.Errorf("want no value for %s", result.String())
	}

	sum := symbolic.AddOf(inv, symbolic.MulOf(symbolic.N(-1), inv))
	if _, isNum := sum.(*symbolic.Num); isNum {
		t.Errorf("1/0 - 1/0 must not fold to a number, got %s", sum.String())
	}
}

func TestMul_MergesPowers(t *testing.T) {
	x := symbolic.S("x")
	result := symbolic.MulOf(x, symbolic.PowOf(x, symbolic.N(2)))
	if result.String() != "x^3" {
		t.Errorf("want x^3, got %s", result.String())
	}
}

func TestPow_NumericFold(t *testing.T) {
	result := symbolic.PowOf(symbolic.N(2), symbolic.N(10))
	if result.String() != "1024" {
		t.Errorf("want 1024, got %s", result.String())
	}
}

func TestPow_ExactSquareRoot(t *testing.T) {
	result := symbolic.SqrtOf(symbolic.F(9, 4))
	if result.String() != "3/2" {
		t.Errorf("want 3/2, got %s", result.String())
	}
}

func TestPow_ZeroToNegativeStaysSymbolic(t *testing.T) {
	result := symbolic.PowOf(symbolic.N(0), symbolic.N(-1))
	if _, isNum := result.(*symbolic.Num); isNum {
		t.Errorf("0^-1 must not fold to a number, got %s", result.String())
	}
}

// ============================================================
// Differentiation
// ============================================================

func TestDiff_Rules(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"x^3", "3*x^2"},
		{"sin(x)", "cos(x)"},
		{"cos(x)", "-sin(x)"},
		{"exp(2*x)", "2*exp(2*x)"},
		{"ln(x)", "1/x"},
		{"5", "0"},
	}
	for _, c := range cases {
		got := symbolic.Diff(symbolic.MustParse(c.expr), "x").String()
		if got != c.want {
			t.Errorf("d/dx %s: want %s, got %s", c.expr, c.want, got)
		}
	}
}

func TestDiffN_Polynomial(t *testing.T) {
	result := symbolic.DiffN(symbolic.MustParse("x^5"), "x", 5)
	if result.String() != "120" {
		t.Errorf("want 120, got %s", result.String())
	}
	if symbolic.DiffN(symbolic.MustParse("x^5"), "x", 6).String() != "0" {
		t.Error("sixth derivative of x^5 should be 0")
	}
}

func TestDiffN_ZeroIsIdentity(t *testing.T) {
	e := symbolic.MustParse("sin(x)")
	if !symbolic.DiffN(e, "x", 0).Equal(e) {
		t.Error("zeroth derivative should return the expression")
	}
}

// ============================================================
// Substitution and folding
// ============================================================

func TestFold_ExactValue(t *testing.T) {
	v, ok := symbolic.Fold(symbolic.MustParse("exp(x)"), "x", symbolic.N(0))
	if !ok || v.String() != "1" {
		t.Errorf("want exact 1, got %s (ok=%v)", v.String(), ok)
	}
}

func TestFold_Transcendental(t *testing.T) {
	v, ok := symbolic.Fold(symbolic.MustParse("sin(x)"), "x", symbolic.F(1, 2))
	if !ok {
		t.Fatalf("sin(1/2) should fold, got %s", v.String())
	}
	n := v.(*symbolic.Num)
	if !n.IsApprox() || math.Abs(n.Float64()-math.Sin(0.5)) > 1e-15 {
		t.Errorf("want approximate %v, got %s", math.Sin(0.5), n.String())
	}
}

func TestFold_Singularity(t *testing.T) {
	_, ok := symbolic.Fold(symbolic.MustParse("ln(x)"), "x", symbolic.N(0))
	if ok {
		t.Error("ln(0) should not fold to a number")
	}
}

func TestFreeSymbols(t *testing.T) {
	syms := symbolic.FreeSymbols(symbolic.MustParse("x*y + sin(z) + pi"))
	if len(syms) != 3 {
		t.Errorf("want 3 symbols, got %d", len(syms))
	}
	for _, name := range []string{"x", "y", "z"} {
		if _, ok := syms[name]; !ok {
			t.Errorf("missing symbol %s", name)
		}
	}
}

// ============================================================
// Numeric evaluation
// ============================================================

func TestEvalAt(t *testing.T) {
	v, err := symbolic.EvalAt(symbolic.MustParse("x^2 + 1"), "x", 2)
	if err != nil || v != 5 {
		t.Errorf("want 5, got %v (err=%v)", v, err)
	}
}

func TestEvalAt_Undefined(t *testing.T) {
	for _, src := range []string{"ln(x)", "1/x", "sqrt(x - 1)"} {
		_, err := symbolic.EvalAt(symbolic.MustParse(src), "x", 0)
		if !errors.Is(err, symbolic.ErrUndefined) {
			t.Errorf("%s at 0: want ErrUndefined, got %v", src, err)
		}
	}
}

func TestEvalAt_UnboundVariable(t *testing.T) {
	_, err := symbolic.EvalAt(symbolic.MustParse("x + y"), "x", 1)
	if !errors.Is(err, symbolic.ErrUndefined) {
		t.Errorf("want ErrUndefined for unbound y, got %v", err)
	}
}

func TestLambdify(t *testing.T) {
	f := symbolic.Lambdify(symbolic.MustParse("exp(x)"), "x")
	v, err := f(1)
	if err != nil || math.Abs(v-math.E) > 1e-15 {
		t.Errorf("want e, got %v (err=%v)", v, err)
	}
}

// ============================================================
// LaTeX
// ============================================================

func TestLaTeX(t *testing.T) {
	cases := map[string]string{
		"sin(x)":    `\sin\left(x\right)`,
		"sqrt(x)":   `\sqrt{x}`,
		"x^2":       `x^{2}`,
		"pi":        `\pi`,
		"x^3/6":     `\frac{x^{3}}{6}`,
		"abs(x)":    `\left|x\right|`,
		"atan(x)":   `\arctan\left(x\right)`,
		"1/(x + 1)": `\frac{1}{1 + x}`,
	}
	for src, want := range cases {
		if got := symbolic.LaTeX(symbolic.MustParse(src)); got != want {
			t.Errorf("LaTeX(%s): want %s, got %s", src, want, got)
		}
	}
}

// ============================================================
// JSON
// ============================================================

func TestJSON_RoundTrip(t *testing.T) {
	for _, src := range []string{"sin(x)^2 + pi", "x^3/6 - x", "exp(-x) * 0.5", "E^x"} {
		e := symbolic.MustParse(src)
		s, err := symbolic.ToJSON(e)
		if err != nil {
			t.Fatalf("ToJSON(%s): %v", src, err)
		}
		back, err := symbolic.DecodeJSON(s)
		if err != nil {
			t.Fatalf("DecodeJSON(%s): %v", s, err)
		}
		if !back.Equal(e) {
			t.Errorf("round trip of %s: got %s", src, back.String())
		}
	}
}

func TestFromJSON_Rejects(t *testing.T) {
	bad := []map[string]interface{}{
		nil,
		{},
		{"type": "frob"},
		{"type": "num", "value": "abc"},
		{"type": "func", "name": "gamma", "arg": map[string]interface{}{"type": "sym", "name": "x"}},
		{"type": "const", "name": "tau"},
		{"type": "add", "terms": "x"},
	}
	for i, data := range bad {
		if _, err := symbolic.FromJSON(data); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
