package symbolic

import (
	"math"
	"math/big"
	"sort"
	"strings"
)

var (
	bigOne  = big.NewInt(1)
	bigTwo  = big.NewInt(2)
	bigHalf = big.NewRat(1, 2)
)

// ============================================================
// Add: sum of terms
// ============================================================

type Add struct{ terms []Expr }

func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

// Simplify flattens nested sums, folds numbers and combines like terms
// (terms that differ only by their numeric coefficient).
func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}

	type likeTerm struct {
		coeff *Num
		rest  Expr
	}
	numAccum := N(0)
	groups := map[string]*likeTerm{}
	keys := []string{}
	for _, t := range flat {
		if n, ok := t.(*Num); ok {
			numAccum = numAdd(numAccum, n)
			continue
		}
		coeff, rest := extractCoefficient(t)
		k := rest.String()
		if g, seen := groups[k]; seen {
			g.coeff = numAdd(g.coeff, coeff)
			continue
		}
		groups[k] = &likeTerm{coeff: coeff, rest: rest}
		keys = append(keys, k)
	}

	result := make([]Expr, 0, len(keys)+1)
	for _, k := range keys {
		g := groups[k]
		switch {
		case g.coeff.IsZero() && !holdsValueless(g.rest):
			continue
		case g.coeff.IsOne() && !g.coeff.approx:
			result = append(result, g.rest)
		default:
			result = append(result, MulOf(g.coeff, g.rest))
		}
	}
	sortTerms(result)
	if !numAccum.IsZero() {
		result = append([]Expr{numAccum}, result...)
	}
	if len(result) == 0 {
		return N(0)
	}
	if len(result) == 1 {
		return result[0]
	}
	return &Add{terms: result}
}

func (a *Add) String() string {
	if len(a.terms) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range a.terms {
		neg, abs := splitSign(t)
		s := abs.String()
		switch {
		case i == 0 && neg:
			b.WriteString("-" + s)
		case i == 0:
			b.WriteString(s)
		case neg:
			b.WriteString(" - " + s)
		default:
			b.WriteString(" + " + s)
		}
	}
	return b.String()
}

func (a *Add) LaTeX() string {
	var b strings.Builder
	for i, t := range a.terms {
		neg, abs := splitSign(t)
		s := abs.LaTeX()
		switch {
		case i == 0 && neg:
			b.WriteString("-" + s)
		case i == 0:
			b.WriteString(s)
		case neg:
			b.WriteString(" - " + s)
		default:
			b.WriteString(" + " + s)
		}
	}
	return b.String()
}

func (a *Add) Sub(varName string, value Expr) Expr {
	newTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		newTerms[i] = t.Sub(varName, value)
	}
	return AddOf(newTerms...)
}

func (a *Add) Diff(varName string) Expr {
	dTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		dTerms[i] = t.Diff(varName)
	}
	return AddOf(dTerms...)
}

func (a *Add) Eval() (*Num, bool) {
	acc := N(0)
	for _, t := range a.terms {
		v, ok := t.Eval()
		if !ok {
			return nil, false
		}
		acc = numAdd(acc, v)
	}
	return acc, true
}

func (a *Add) Float(vars Vars) (float64, error) {
	sum := 0.0
	for _, t := range a.terms {
		v, err := t.Float(vars)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return finite(sum, a)
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *Add) exprType() string { return "add" }
func (a *Add) toJSON() map[string]interface{} {
	ts := make([]map[string]interface{}, len(a.terms))
	for i, t := range a.terms {
		ts[i] = t.toJSON()
	}
	return map[string]interface{}{"type": "add", "terms": ts}
}
func (a *Add) Terms() []Expr { return a.terms }

// ============================================================
// Mul: product of factors
// ============================================================

type Mul struct{ factors []Expr }

func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

// Simplify flattens nested products, folds the numeric coefficient to the
// front and merges powers of a common base.
func (m *Mul) Simplify() Expr {
	flat := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		s := f.Simplify()
		if inner, ok := s.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, s)
		}
	}

	type powGroup struct {
		base Expr
		exps []Expr
	}
	coeff := N(1)
	groups := map[string]*powGroup{}
	keys := []string{}
	for _, f := range flat {
		if v, ok := f.(*Num); ok {
			coeff = numMul(coeff, v)
			continue
		}
		base, exp := Expr(f), Expr(N(1))
		if p, ok := f.(*Pow); ok {
			base, exp = p.base, p.exp
		}
		k := base.String()
		if g, seen := groups[k]; seen {
			g.exps = append(g.exps, exp)
			continue
		}
		groups[k] = &powGroup{base: base, exps: []Expr{exp}}
		keys = append(keys, k)
	}
	if coeff.IsZero() && !anyValueless(flat) {
		return N(0)
	}

	others := make([]Expr, 0, len(keys))
	again := false
	for _, k := range keys {
		g := groups[k]
		var p Expr
		if len(g.exps) == 1 {
			p = PowOf(g.base, g.exps[0])
		} else {
			p = PowOf(g.base, AddOf(g.exps...))
		}
		switch v := p.(type) {
		case *Num:
			coeff = numMul(coeff, v)
			continue
		case *Mul:
			again = true
		}
		others = append(others, p)
	}
	if again {
		return MulOf(append([]Expr{coeff}, others...)...)
	}
	if coeff.IsZero() && !anyValueless(others) {
		return N(0)
	}
	if len(others) == 0 {
		return coeff
	}
	sortFactors(others)
	if coeff.IsOne() {
		if len(others) == 1 {
			return others[0]
		}
		return &Mul{factors: others}
	}
	return &Mul{factors: append([]Expr{coeff}, others...)}
}

func (m *Mul) String() string {
	numer, denom, neg := m.fraction(func(e Expr) string { return e.String() })
	out := strings.Join(numer, "*")
	if len(denom) > 0 {
		d := strings.Join(denom, "*")
		if len(denom) > 1 {
			d = "(" + d + ")"
		}
		out += "/" + d
	}
	if neg {
		return "-" + out
	}
	return out
}

func (m *Mul) LaTeX() string {
	numer, denom, neg := m.fraction(func(e Expr) string { return e.LaTeX() })
	out := strings.Join(numer, " ")
	if len(denom) > 0 {
		out = "\\frac{" + out + "}{" + strings.Join(denom, " ") + "}"
	}
	if neg {
		return "-" + out
	}
	return out
}

// fraction splits the product into numerator and denominator pieces for
// printing. Negative powers and the denominator of an exact coefficient go
// below the bar.
func (m *Mul) fraction(render func(Expr) string) (numer, denom []string, neg bool) {
	factors := m.factors
	coeff := N(1)
	if c, ok := factors[0].(*Num); ok {
		coeff, factors = c, factors[1:]
	}
	if coeff.IsNegative() {
		neg = true
		coeff = numAbs(coeff)
	}
	switch {
	case !coeff.approx && !coeff.IsInteger():
		if n := coeff.val.Num(); n.Cmp(bigOne) != 0 {
			numer = append(numer, n.String())
		}
		denom = append(denom, coeff.val.Denom().String())
	case !coeff.IsOne():
		numer = append(numer, render(coeff))
	}
	for _, f := range factors {
		if p, ok := f.(*Pow); ok {
			if en, ok2 := p.exp.(*Num); ok2 && en.IsNegative() {
				inv := &Pow{base: p.base, exp: numNeg(en)}
				if en.IsNegOne() {
					denom = append(denom, wrapFactor(p.base, render, true))
				} else {
					denom = append(denom, render(inv))
				}
				continue
			}
		}
		numer = append(numer, wrapFactor(f, render, false))
	}
	if len(numer) == 0 {
		numer = []string{"1"}
	}
	return numer, denom, neg
}

func (m *Mul) Sub(varName string, value Expr) Expr {
	newFactors := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		newFactors[i] = f.Sub(varName, value)
	}
	return MulOf(newFactors...)
}

func (m *Mul) Diff(varName string) Expr {
	terms := make([]Expr, len(m.factors))
	for i, fi := range m.factors {
		dfi := fi.Diff(varName)
		if n, ok := dfi.(*Num); ok && n.IsZero() {
			terms[i] = dfi
			continue
		}
		others := make([]Expr, 0, len(m.factors))
		others = append(others, dfi)
		for j, fj := range m.factors {
			if j != i {
				others = append(others, fj)
			}
		}
		terms[i] = MulOf(others...)
	}
	return AddOf(terms...)
}

func (m *Mul) Eval() (*Num, bool) {
	acc := N(1)
	for _, f := range m.factors {
		v, ok := f.Eval()
		if !ok {
			return nil, false
		}
		acc = numMul(acc, v)
	}
	return acc, true
}

func (m *Mul) Float(vars Vars) (float64, error) {
	prod := 1.0
	for _, f := range m.factors {
		v, err := f.Float(vars)
		if err != nil {
			return 0, err
		}
		prod *= v
	}
	return finite(prod, m)
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *Mul) exprType() string { return "mul" }
func (m *Mul) toJSON() map[string]interface{} {
	fs := make([]map[string]interface{}, len(m.factors))
	for i, f := range m.factors {
		fs[i] = f.toJSON()
	}
	return map[string]interface{}{"type": "mul", "factors": fs}
}
func (m *Mul) Factors() []Expr { return m.factors }

// ============================================================
// Pow: base^exponent
// ============================================================

type Pow struct{ base, exp Expr }

// maxExactPower caps exact integer powers of rationals.
const maxExactPower = 4096

func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	en, expIsNum := exp.(*Num)
	if expIsNum && en.IsZero() {
		return N(1)
	}
	if expIsNum && en.IsOne() {
		return base
	}

	if bn, ok := base.(*Num); ok {
		if bn.IsZero() {
			// 0^0 is indeterminate; 0^negative is division by zero.
			if expIsNum && en.IsPositive() {
				return N(0)
			}
			return &Pow{base: base, exp: exp}
		}
		if bn.IsOne() {
			return N(1)
		}
		if expIsNum {
			if k, ok2 := en.Int64(); ok2 && k >= -maxExactPower && k <= maxExactPower {
				r := numPowInt(bn, k)
				r.approx = r.approx || en.approx
				return r
			}
			if !en.approx && !bn.approx && en.val.Denom().Cmp(bigTwo) == 0 {
				if root, ok2 := numSqrt(bn); ok2 {
					return PowOf(root, &Num{val: new(big.Rat).SetInt(en.val.Num())})
				}
			}
			if bn.approx || en.approx {
				if r := NFloat(math.Pow(bn.Float64(), en.Float64())); r != nil {
					return r
				}
			}
		}
	}
	if inner, ok := base.(*Pow); ok && expIsNum && en.IsInteger() {
		return PowOf(inner.base, MulOf(inner.exp, exp))
	}
	if m, ok := base.(*Mul); ok && expIsNum && en.IsInteger() {
		fs := make([]Expr, len(m.factors))
		for i, f := range m.factors {
			fs[i] = PowOf(f, exp)
		}
		return MulOf(fs...)
	}
	return &Pow{base: base, exp: exp}
}

func (p *Pow) String() string {
	if en, ok := p.exp.(*Num); ok && en.IsNegative() {
		inv := numNeg(en)
		if inv.IsOne() {
			return "1/" + wrapFactor(p.base, func(e Expr) string { return e.String() }, true)
		}
		return "1/" + formatPow(p.base, inv)
	}
	return formatPow(p.base, p.exp)
}

func (p *Pow) LaTeX() string {
	if en, ok := p.exp.(*Num); ok && en.IsNegative() {
		inv := numNeg(en)
		if inv.IsOne() {
			return "\\frac{1}{" + p.base.LaTeX() + "}"
		}
		return "\\frac{1}{" + (&Pow{base: p.base, exp: inv}).LaTeX() + "}"
	}
	if en, ok := p.exp.(*Num); ok && !en.approx && en.val.Cmp(bigHalf) == 0 {
		return "\\sqrt{" + p.base.LaTeX() + "}"
	}
	baseStr := p.base.LaTeX()
	if needsParens(p.base) {
		baseStr = "\\left(" + baseStr + "\\right)"
	}
	return baseStr + "^{" + p.exp.LaTeX() + "}"
}

func (p *Pow) Sub(varName string, value Expr) Expr {
	return PowOf(p.base.Sub(varName, value), p.exp.Sub(varName, value))
}

func (p *Pow) Diff(varName string) Expr {
	du := p.base.Diff(varName)
	dv := p.exp.Diff(varName)
	if en, ok := p.exp.(*Num); ok {
		return MulOf(en, PowOf(p.base, numAdd(en, N(-1))), du)
	}
	if isConstant(p.base) {
		return MulOf(PowOf(p.base, p.exp), LnOf(p.base), dv)
	}
	logTerm := MulOf(dv, LnOf(p.base))
	divTerm := MulOf(p.exp, du, PowOf(p.base, N(-1)))
	return MulOf(PowOf(p.base, p.exp), AddOf(logTerm, divTerm))
}

func (p *Pow) Eval() (*Num, bool) {
	b, ok1 := p.base.Eval()
	e, ok2 := p.exp.Eval()
	if !ok1 || !ok2 {
		return nil, false
	}
	if b.IsZero() && !e.IsPositive() {
		return nil, false
	}
	if k, ok := e.Int64(); ok && k >= -maxExactPower && k <= maxExactPower {
		r := numPowInt(b, k)
		r.approx = r.approx || e.approx
		return r, true
	}
	r := NFloat(math.Pow(b.Float64(), e.Float64()))
	return r, r != nil
}

func (p *Pow) Float(vars Vars) (float64, error) {
	b, err := p.base.Float(vars)
	if err != nil {
		return 0, err
	}
	e, err := p.exp.Float(vars)
	if err != nil {
		return 0, err
	}
	if b == 0 && e < 0 {
		return 0, undefined(p, "division by zero")
	}
	return finite(math.Pow(b, e), p)
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) exprType() string { return "pow" }
func (p *Pow) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "pow", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}
func (p *Pow) Base() Expr    { return p.base }
func (p *Pow) ExpExpr() Expr { return p.exp }

// ============================================================
// Ordering and printing helpers
// ============================================================

// extractCoefficient splits a term into its numeric coefficient and the rest.
func extractCoefficient(e Expr) (*Num, Expr) {
	if m, ok := e.(*Mul); ok && len(m.factors) >= 2 {
		if coeff, ok2 := m.factors[0].(*Num); ok2 {
			rest := m.factors[1:]
			if len(rest) == 1 {
				return coeff, rest[0]
			}
			return coeff, &Mul{factors: rest}
		}
	}
	return N(1), e
}

// splitSign returns whether t prints with a leading minus and its absolute form.
func splitSign(t Expr) (bool, Expr) {
	switch v := t.(type) {
	case *Num:
		if v.IsNegative() {
			return true, numAbs(v)
		}
	case *Mul:
		c, ok := v.factors[0].(*Num)
		if !ok || !c.IsNegative() {
			return false, t
		}
		abs := numAbs(c)
		rest := v.factors[1:]
		if abs.IsOne() {
			if len(rest) == 1 {
				return true, rest[0]
			}
			return true, &Mul{factors: rest}
		}
		return true, &Mul{factors: append([]Expr{abs}, rest...)}
	}
	return false, t
}

// termKey orders sums: by polynomial degree first, then by text.
type termKey struct {
	class int
	name  string
	deg   int
	str   string
}

func keyOf(e Expr) termKey {
	switch v := e.(type) {
	case *Num:
		return termKey{class: 0}
	case *Sym:
		return termKey{class: 1, name: v.name, deg: 1, str: v.name}
	case *Pow:
		if k, ok := intExponent(v); ok {
			if s, ok2 := v.base.(*Sym); ok2 {
				return termKey{class: 1, name: s.name, deg: int(k), str: v.String()}
			}
			return termKey{class: 2, deg: int(k), str: v.String()}
		}
	case *Add:
		return termKey{class: 2, deg: 1, str: v.String()}
	case *Mul:
		best := termKey{class: 5, str: v.String()}
		for _, f := range v.factors {
			k := keyOf(f)
			if k.class == 1 || k.class == 2 {
				if best.class == 5 || k.class < best.class || (k.class == best.class && k.deg > best.deg) {
					best = termKey{class: k.class, name: k.name, deg: k.deg, str: v.String()}
				}
			}
		}
		return best
	case *Const:
		return termKey{class: 3, str: v.name}
	}
	return termKey{class: 4, str: e.String()}
}

func sortTerms(terms []Expr) {
	keys := make([]termKey, len(terms))
	for i, t := range terms {
		_, rest := extractCoefficient(t)
		keys[i] = keyOf(rest)
	}
	sort.Sort(&keyedExprs{exprs: terms, keys: keys, less: func(a, b termKey) bool {
		if a.class != b.class {
			return a.class < b.class
		}
		if a.name != b.name {
			return a.name < b.name
		}
		if a.deg != b.deg {
			return a.deg < b.deg
		}
		return a.str < b.str
	}})
}

// factorRank puts constants before variables, variables before function
// applications, and parenthesized sums last.
func factorRank(e Expr) int {
	if p, ok := e.(*Pow); ok {
		e = p.base
	}
	switch e.(type) {
	case *Const:
		return 0
	case *Sym:
		return 1
	case *Func:
		return 2
	case *Add:
		return 3
	}
	return 4
}

func sortFactors(factors []Expr) {
	keys := make([]termKey, len(factors))
	for i, f := range factors {
		keys[i] = termKey{class: factorRank(f), str: f.String()}
	}
	sort.Sort(&keyedExprs{exprs: factors, keys: keys, less: func(a, b termKey) bool {
		if a.class != b.class {
			return a.class < b.class
		}
		return a.str < b.str
	}})
}

type keyedExprs struct {
	exprs []Expr
	keys  []termKey
	less  func(a, b termKey) bool
}

func (k *keyedExprs) Len() int           { return len(k.exprs) }
func (k *keyedExprs) Less(i, j int) bool { return k.less(k.keys[i], k.keys[j]) }
func (k *keyedExprs) Swap(i, j int) {
	k.exprs[i], k.exprs[j] = k.exprs[j], k.exprs[i]
	k.keys[i], k.keys[j] = k.keys[j], k.keys[i]
}

func intExponent(p *Pow) (int64, bool) {
	n, ok := p.exp.(*Num)
	if !ok || n.approx {
		return 0, false
	}
	return n.Int64()
}

func needsParens(e Expr) bool {
	switch v := e.(type) {
	case *Add, *Mul, *Pow:
		return true
	case *Num:
		return v.IsNegative() || (!v.approx && !v.IsInteger())
	}
	return false
}

// wrapFactor renders a product factor, parenthesizing sums. Inside a
// denominator products need parentheses too.
func wrapFactor(e Expr, render func(Expr) string, inDenominator bool) string {
	s := render(e)
	switch e.(type) {
	case *Add:
		return "(" + s + ")"
	case *Mul:
		if inDenominator {
			return "(" + s + ")"
		}
	}
	return s
}

func formatPow(base, exp Expr) string {
	bs := base.String()
	if needsParens(base) {
		bs = "(" + bs + ")"
	}
	es := exp.String()
	switch v := exp.(type) {
	case *Sym, *Const:
	case *Num:
		if v.IsNegative() || (!v.approx && !v.IsInteger()) {
			es = "(" + es + ")"
		}
	default:
		es = "(" + es + ")"
	}
	return bs + "^" + es
}

func isConstant(e Expr) bool { return len(FreeSymbols(e)) == 0 }

// valueless reports whether e is constant but has no value, as 1/0 does.
// A zero coefficient must not absorb such a factor.
func valueless(e Expr) bool {
	if _, ok := e.(*Num); ok {
		return false
	}
	if !isConstant(e) {
		return false
	}
	_, ok := e.Eval()
	return !ok
}

// holdsValueless reports whether e, or one of its factors, is valueless.
func holdsValueless(e Expr) bool {
	if m, ok := e.(*Mul); ok {
		return anyValueless(m.factors)
	}
	return valueless(e)
}

func anyValueless(es []Expr) bool {
	for _, e := range es {
		if valueless(e) {
			return true
		}
	}
	return false
}
