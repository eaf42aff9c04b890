package symbolic

// ============================================================
// Polynomial utilities
// ============================================================

// maxPolyDegree bounds polynomial expansion of integer powers.
const maxPolyDegree = 1024

// Polynomial is a univariate polynomial with numeric coefficients.
type Polynomial struct {
	Var    string
	coeffs []*Num // coeffs[k] multiplies Var^k
}

// NewPolynomial builds a polynomial from ascending coefficients.
func NewPolynomial(varName string, coeffs ...*Num) *Polynomial {
	p := &Polynomial{Var: varName, coeffs: append([]*Num(nil), coeffs...)}
	p.trim()
	return p
}

func (p *Polynomial) trim() {
	for len(p.coeffs) > 0 && p.coeffs[len(p.coeffs)-1].IsZero() {
		p.coeffs = p.coeffs[:len(p.coeffs)-1]
	}
}

// Degree returns the polynomial degree, or -1 for the zero polynomial.
func (p *Polynomial) Degree() int { return len(p.coeffs) - 1 }

// Coeff returns the coefficient of Var^k.
func (p *Polynomial) Coeff(k int) *Num {
	if k < 0 || k >= len(p.coeffs) {
		return N(0)
	}
	return p.coeffs[k]
}

// Coeffs returns a copy of the ascending coefficients.
func (p *Polynomial) Coeffs() []*Num { return append([]*Num(nil), p.coeffs...) }

// Expr rebuilds the polynomial as a sum ordered by ascending degree.
func (p *Polynomial) Expr() Expr {
	terms := make([]Expr, 0, len(p.coeffs))
	x := S(p.Var)
	for k, c := range p.coeffs {
		if c.IsZero() {
			continue
		}
		terms = append(terms, MulOf(c, PowOf(x, N(int64(k)))))
	}
	return AddOf(terms...)
}

func (p *Polynomial) String() string { return p.Expr().String() }

// Equal compares coefficients exactly.
func (p *Polynomial) Equal(o *Polynomial) bool {
	if p.Var != o.Var || len(p.coeffs) != len(o.coeffs) {
		return false
	}
	for i := range p.coeffs {
		if p.coeffs[i].val.Cmp(o.coeffs[i].val) != 0 {
			return false
		}
	}
	return true
}

// Float evaluates the polynomial at x with Horner's rule.
func (p *Polynomial) Float(x float64) float64 {
	acc := 0.0
	for k := len(p.coeffs) - 1; k >= 0; k-- {
		acc = acc*x + p.coeffs[k].Float64()
	}
	return acc
}

func polyAdd(a, b []*Num) []*Num {
	if len(a) < len(b) {
		a, b = b, a
	}
	out := make([]*Num, len(a))
	copy(out, a)
	for i, c := range b {
		out[i] = numAdd(out[i], c)
	}
	return out
}

func polyMul(a, b []*Num) []*Num {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make([]*Num, len(a)+len(b)-1)
	for i := range out {
		out[i] = N(0)
	}
	for i, ca := range a {
		if ca.IsZero() {
			continue
		}
		for j, cb := range b {
			out[i+j] = numAdd(out[i+j], numMul(ca, cb))
		}
	}
	return out
}

func polyPow(base []*Num, n int64) []*Num {
	result := []*Num{N(1)}
	for n > 0 {
		if n&1 == 1 {
			result = polyMul(result, base)
		}
		n >>= 1
		if n > 0 {
			base = polyMul(base, base)
		}
	}
	return result
}

// ToPolynomial expands e into a polynomial in varName. It fails when e is not
// a polynomial or when a coefficient cannot be reduced to a number.
func ToPolynomial(e Expr, varName string) (*Polynomial, bool) {
	coeffs, ok := polyCoeffs(e.Simplify(), varName)
	if !ok {
		return nil, false
	}
	return NewPolynomial(varName, coeffs...), true
}

func polyCoeffs(e Expr, varName string) ([]*Num, bool) {
	if _, free := FreeSymbols(e)[varName]; !free {
		if len(FreeSymbols(e)) > 0 {
			return nil, false
		}
		n, ok := e.Eval()
		if !ok {
			return nil, false
		}
		return []*Num{n}, true
	}
	switch v := e.(type) {
	case *Sym:
		return []*Num{N(0), N(1)}, true
	case *Add:
		var acc []*Num
		for _, t := range v.terms {
			c, ok := polyCoeffs(t, varName)
			if !ok {
				return nil, false
			}
			acc = polyAdd(acc, c)
		}
		return acc, true
	case *Mul:
		acc := []*Num{N(1)}
		for _, f := range v.factors {
			c, ok := polyCoeffs(f, varName)
			if !ok {
				return nil, false
			}
			acc = polyMul(acc, c)
		}
		return acc, true
	case *Pow:
		k, ok := intExponent(v)
		if !ok || k < 0 || k > maxPolyDegree {
			return nil, false
		}
		base, ok := polyCoeffs(v.base, varName)
		if !ok {
			return nil, false
		}
		return polyPow(base, k), true
	}
	return nil, false
}

// TaylorShift converts sum(c[n] * (x - x0)^n) into a polynomial in x. It runs
// Horner's scheme over linear factors, so it stays quadratic in len(c).
func TaylorShift(varName string, c []*Num, x0 *Num) *Polynomial {
	acc := []*Num{}
	negX0 := numNeg(x0)
	for n := len(c) - 1; n >= 0; n-- {
		// acc = acc*(x - x0) + c[n]
		next := make([]*Num, len(acc)+1)
		for i := range next {
			next[i] = N(0)
		}
		for i, a := range acc {
			next[i+1] = numAdd(next[i+1], a)
			if !x0.IsZero() {
				next[i] = numAdd(next[i], numMul(a, negX0))
			}
		}
		next[0] = numAdd(next[0], c[n])
		acc = next
	}
	return NewPolynomial(varName, acc...)
}

// Equivalent reports whether a and b are the same function of varName. Two
// polynomials are compared coefficient by coefficient; anything else falls
// back to structural comparison of the simplified difference.
func Equivalent(a, b Expr, varName string) bool {
	pa, okA := ToPolynomial(a, varName)
	pb, okB := ToPolynomial(b, varName)
	if okA && okB {
		return pa.Equal(pb)
	}
	diff := AddOf(a, MulOf(N(-1), b))
	n, ok := diff.(*Num)
	return ok && n.IsZero()
}
