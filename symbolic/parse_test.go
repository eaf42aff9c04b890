package symbolic_test

import (
	"errors"
	"testing"

	"github.com/njchilds90/gotaylor/symbolic"
)

func TestParse_Precedence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"x - x^3/6", "x - x^3/6"},
		{"-x^2", "-x^2"},
		{"2^3^2", "512"},
		{"x**2", "x^2"},
		{"(x + 1)*2", "2*(1 + x)"},
		{"2^-1", "1/2"},
		{"+x", "x"},
		{"3/4", "3/4"},
		{"log(x)", "ln(x)"},
		{"1 + x + x^2/2", "1 + x + x^2/2"},
	}
	for _, c := range cases {
		e, err := symbolic.Parse(c.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", c.in, err)
			continue
		}
		if e.String() != c.want {
			t.Errorf("Parse(%q): want %s, got %s", c.in, c.want, e.String())
		}
	}
}

func TestParse_Literals(t *testing.T) {
	e := symbolic.MustParse("0.5")
	n, ok := e.(*symbolic.Num)
	if !ok || !n.IsApprox() || n.Float64() != 0.5 {
		t.Errorf("decimal literal should be approximate 0.5, got %s", e.String())
	}
	e = symbolic.MustParse("1e3")
	if n, ok := e.(*symbolic.Num); !ok || n.Float64() != 1000 {
		t.Errorf("want 1000, got %s", e.String())
	}
	e = symbolic.MustParse("12345678901234567890")
	if n, ok := e.(*symbolic.Num); !ok || n.IsApprox() {
		t.Errorf("large integer literal should stay exact, got %s", e.String())
	}
}

func TestParse_Constants(t *testing.T) {
	if !symbolic.MustParse("pi").Equal(symbolic.Pi) {
		t.Error("pi should parse to the constant")
	}
	if !symbolic.MustParse("E").Equal(symbolic.E) {
		t.Error("E should parse to the constant")
	}
	if _, ok := symbolic.MustParse("e").(*symbolic.Sym); !ok {
		t.Error("lowercase e is an ordinary symbol")
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		in  string
		pos int
	}{
		{"", 0},
		{"sin(", 4},
		{"x $ 2", 2},
		{"foo(x)", 0},
		{"(x + 1", 6},
		{"x +", 3},
		{"2 3", 2},
		{"sin", 0},
	}
	for _, c := range cases {
		_, err := symbolic.Parse(c.in)
		var pe *symbolic.ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q): want *ParseError, got %v", c.in, err)
			continue
		}
		if pe.Pos != c.pos {
			t.Errorf("Parse(%q): want position %d, got %d (%s)", c.in, c.pos, pe.Pos, pe.Msg)
		}
	}
}
